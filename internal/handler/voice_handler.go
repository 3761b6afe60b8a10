package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	twilioadapter "github.com/ridgelineradio/call-relay/internal/adapters/twilio"
	"github.com/ridgelineradio/call-relay/internal/config"
	"github.com/ridgelineradio/call-relay/internal/services/call"
	"github.com/ridgelineradio/call-relay/pkg/logger"
	"go.uber.org/zap"
)

// VoiceHandler serves the Twilio voice webhooks: inbound calls,
// conference joins and the voicemail flow.
type VoiceHandler struct {
	cfg     *config.Config
	service *call.Service
}

// NewVoiceHandler creates the Twilio webhook handler.
func NewVoiceHandler(cfg *config.Config, service *call.Service) *VoiceHandler {
	return &VoiceHandler{cfg: cfg, service: service}
}

// publicHost returns the hostname callbacks should be built on,
// preferring the configured public host over the request's Host header.
func (h *VoiceHandler) publicHost(r *http.Request) string {
	if h.cfg.PublicHost != "" {
		return h.cfg.PublicHost
	}
	return r.Host
}

func writeTwiML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(doc))
}

// HandleInboundCall answers a new inbound call: greeting plus a media
// stream that plays the live broadcast while the team is paged. The
// answer document is sent before any notification work so the caller is
// never left hanging on a slow integration.
func (h *VoiceHandler) HandleInboundCall(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	callSID := r.FormValue("CallSid")
	from := r.FormValue("From")
	if callSID == "" {
		http.Error(w, "missing CallSid", http.StatusBadRequest)
		return
	}

	mediaURL := fmt.Sprintf("wss://%s/media", h.publicHost(r))
	doc, err := twilioadapter.AnswerDocument(h.cfg.GreetingURL, mediaURL)
	if err != nil {
		logger.Base().Error("failed to build answer document", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeTwiML(w, doc)

	go h.service.HandleInboundCall(context.Background(), callSID, from)
}

// HandleJoinConference answers the responder's outbound leg with a
// conference join for the room carried in the query string.
func (h *VoiceHandler) HandleJoinConference(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}

	doc, err := twilioadapter.ConferenceDocument(room)
	if err != nil {
		logger.Base().Error("failed to build conference document", zap.String("room", room), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeTwiML(w, doc)
}

// HandleVoicemail answers a redirected, unanswered call with the
// record-and-transcribe flow.
func (h *VoiceHandler) HandleVoicemail(w http.ResponseWriter, r *http.Request) {
	callSID := r.URL.Query().Get("callSid")
	host := h.publicHost(r)
	recordingCB := fmt.Sprintf("https://%s/voicemail-recording?callSid=%s", host, url.QueryEscape(callSID))
	transcriptionCB := fmt.Sprintf("https://%s/voicemail-complete?callSid=%s", host, url.QueryEscape(callSID))

	doc, err := twilioadapter.VoicemailDocument(recordingCB, transcriptionCB)
	if err != nil {
		logger.Base().Error("failed to build voicemail document", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeTwiML(w, doc)
}

// HandleVoicemailRecording acknowledges a finished recording and posts
// the link to the team channel.
func (h *VoiceHandler) HandleVoicemailRecording(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	recordingURL := r.FormValue("RecordingUrl")
	from := r.FormValue("From")
	if from == "" {
		from = "unknown caller"
	}
	w.WriteHeader(http.StatusOK)

	if recordingURL == "" {
		return
	}
	go h.service.HandleRecordingReady(context.Background(), recordingURL, from)
}

// HandleVoicemailComplete acknowledges a finished transcription and
// posts the text if there is any.
func (h *VoiceHandler) HandleVoicemailComplete(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	text := r.FormValue("TranscriptionText")
	w.WriteHeader(http.StatusOK)

	go h.service.HandleTranscriptionReady(context.Background(), text)
}

// HandleHealth is the health check.
func (h *VoiceHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("Ridgeline call relay"))
}
