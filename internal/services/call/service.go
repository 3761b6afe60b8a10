package call

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ridgelineradio/call-relay/internal/config"
	"github.com/ridgelineradio/call-relay/pkg/logger"
	"go.uber.org/zap"
)

// Notifier posts and updates actionable alerts on the team chat channel
// and resolves a responder's phone number from their chat identity.
type Notifier interface {
	PostCallAlert(ctx context.Context, callSID, caller string) (NotificationRef, error)
	UpdateAlert(ctx context.Context, ref NotificationRef, text string) error
	PostMessage(ctx context.Context, text string) error
	ResponderPhone(ctx context.Context, userID string) (string, error)
}

// Telephony places and redirects call legs through the carrier API.
type Telephony interface {
	// PlaceCall dials an outbound call; the carrier fetches call
	// instructions from answerURL once it is answered.
	PlaceCall(ctx context.Context, to, answerURL string) (string, error)
	// RedirectToConference moves an in-progress call leg into the named
	// conference room.
	RedirectToConference(ctx context.Context, callSID, room string) error
	// RedirectToURL points an in-progress call leg at a new instruction
	// document.
	RedirectToURL(ctx context.Context, callSID, instructionURL string) error
	SendSMS(ctx context.Context, to, body string) error
}

// Responder identifies the team member who accepted a call.
type Responder struct {
	ID   string
	Name string
}

// Service is the call lifecycle controller. It reacts to inbound-call,
// responder-accept and deadline events, and drives conference bridging,
// voicemail fallback and chat notifications. Accept and timeout race
// for each call; whichever resolves the pending record first wins and
// the loser is a no-op.
type Service struct {
	cfg       *config.Config
	store     *Store
	clock     Clock
	notifier  Notifier
	telephony Telephony
}

// NewService creates the lifecycle controller.
func NewService(cfg *config.Config, store *Store, clock Clock, notifier Notifier, telephony Telephony) *Service {
	return &Service{
		cfg:       cfg,
		store:     store,
		clock:     clock,
		notifier:  notifier,
		telephony: telephony,
	}
}

// Store exposes the pending-call registry, mainly for inspection.
func (s *Service) Store() *Store {
	return s.store
}

// HandleInboundCall registers a new inbound call: posts the chat alert,
// fires the optional SMS alert, and arms the voicemail deadline. The
// caller has already been answered with hold audio by the time this
// runs, so notification failures are logged and never block the call.
func (s *Service) HandleInboundCall(ctx context.Context, callSID, from string) {
	room := ConferenceRoomFor(callSID)
	logger.Base().Info("inbound call",
		zap.String("call_sid", callSID),
		zap.String("from", from),
		zap.String("room", room))

	ref, err := s.notifier.PostCallAlert(ctx, callSID, from)
	if err != nil {
		logger.Base().Error("failed to post call alert", zap.String("call_sid", callSID), zap.Error(err))
	}

	if s.cfg.AlertSMSTo != "" {
		body := fmt.Sprintf("%s is calling Ridgeline!", from)
		if err := s.telephony.SendSMS(ctx, s.cfg.AlertSMSTo, body); err != nil {
			logger.Base().Error("failed to send SMS alert", zap.String("call_sid", callSID), zap.Error(err))
		}
	}

	pc := &PendingCall{
		CallSID:        callSID,
		CallerNumber:   from,
		ConferenceRoom: room,
		Notification:   ref,
	}
	deadline := s.clock.AfterFunc(s.cfg.RingTimeout, func() {
		s.RedirectToVoicemail(context.Background(), callSID)
	})
	s.store.Add(pc, deadline)
}

// HandleResponderAccept connects the accepting responder to the caller.
// If the call is no longer pending (timed out, hung up, or accepted by
// someone faster) this is a no-op.
func (s *Service) HandleResponderAccept(ctx context.Context, callSID string, responder Responder) {
	pc, ok := s.store.Resolve(callSID)
	if !ok {
		logger.Base().Info("accept for already-resolved call",
			zap.String("call_sid", callSID),
			zap.String("responder", responder.ID))
		return
	}

	logger.Base().Info("call accepted",
		zap.String("call_sid", callSID),
		zap.String("responder", responder.ID),
		zap.String("room", pc.ConferenceRoom))

	if !pc.Notification.Zero() {
		text := fmt.Sprintf(":telephone_receiver: Call from %s — answered by <@%s>", pc.CallerNumber, responder.ID)
		if err := s.notifier.UpdateAlert(ctx, pc.Notification, text); err != nil {
			logger.Base().Error("failed to update call alert", zap.String("call_sid", callSID), zap.Error(err))
		}
	}

	phone, err := s.notifier.ResponderPhone(ctx, responder.ID)
	if err != nil || phone == "" {
		// The caller stays on hold audio with nobody coming. There is no
		// recovery path from here, so make it loud.
		logger.Base().Error("no phone number on file for responder, caller remains on hold",
			zap.String("call_sid", callSID),
			zap.String("responder", responder.ID),
			zap.Error(err))
		return
	}

	if _, err := s.telephony.PlaceCall(ctx, phone, s.joinURL(pc.ConferenceRoom)); err != nil {
		logger.Base().Error("failed to place responder call",
			zap.String("call_sid", callSID),
			zap.String("to", phone),
			zap.Error(err))
		return
	}

	if err := s.telephony.RedirectToConference(ctx, callSID, pc.ConferenceRoom); err != nil {
		logger.Base().Error("failed to redirect caller into conference",
			zap.String("call_sid", callSID),
			zap.String("room", pc.ConferenceRoom),
			zap.Error(err))
	}
}

// RedirectToVoicemail is the deadline action: if the call is still
// pending, send the caller to the voicemail flow and mark the alert as
// unanswered. Fires as a no-op when a responder won the race moments
// before the deadline.
func (s *Service) RedirectToVoicemail(ctx context.Context, callSID string) {
	pc, ok := s.store.Resolve(callSID)
	if !ok {
		return
	}

	logger.Base().Info("no responder before deadline, sending to voicemail",
		zap.String("call_sid", callSID))

	if !pc.Notification.Zero() {
		text := fmt.Sprintf(":telephone_receiver: Call from %s — no answer, sent to voicemail", pc.CallerNumber)
		if err := s.notifier.UpdateAlert(ctx, pc.Notification, text); err != nil {
			logger.Base().Error("failed to update call alert", zap.String("call_sid", callSID), zap.Error(err))
		}
	}

	if err := s.telephony.RedirectToURL(ctx, callSID, s.voicemailURL(callSID)); err != nil {
		logger.Base().Error("failed to redirect call to voicemail",
			zap.String("call_sid", callSID),
			zap.Error(err))
	}
}

// HandleRecordingReady posts the voicemail recording link to the chat
// channel. Independent of pending-call state; recordings can land long
// after the call resolved.
func (s *Service) HandleRecordingReady(ctx context.Context, recordingURL, from string) {
	text := fmt.Sprintf(":studio_microphone: New voicemail from %s: %s", from, recordingURL)
	if err := s.notifier.PostMessage(ctx, text); err != nil {
		logger.Base().Error("failed to post voicemail notification", zap.Error(err))
	}
}

// HandleTranscriptionReady posts the voicemail transcription as a
// follow-up message. Empty or failed transcriptions are dropped.
func (s *Service) HandleTranscriptionReady(ctx context.Context, text string) {
	if text == "" {
		return
	}
	msg := fmt.Sprintf(":memo: Voicemail transcription: %s", text)
	if err := s.notifier.PostMessage(ctx, msg); err != nil {
		logger.Base().Error("failed to post transcription", zap.Error(err))
	}
}

func (s *Service) joinURL(room string) string {
	return fmt.Sprintf("https://%s/join-conference?room=%s", s.cfg.PublicHost, url.QueryEscape(room))
}

func (s *Service) voicemailURL(callSID string) string {
	return fmt.Sprintf("https://%s/voicemail?callSid=%s", s.cfg.PublicHost, url.QueryEscape(callSID))
}
