package handler

import (
	"github.com/gorilla/mux"
	slackadapter "github.com/ridgelineradio/call-relay/internal/adapters/slack"
	twilioadapter "github.com/ridgelineradio/call-relay/internal/adapters/twilio"
	"github.com/ridgelineradio/call-relay/internal/config"
	"github.com/ridgelineradio/call-relay/internal/relay"
	"github.com/ridgelineradio/call-relay/internal/services/call"
	"github.com/ridgelineradio/call-relay/pkg/logger"
	"go.uber.org/zap"
)

// HandlerManager wires the adapters, the lifecycle controller and the
// HTTP handlers together.
type HandlerManager struct {
	cfg     *config.Config
	service *call.Service

	voiceHandler       *VoiceHandler
	interactionHandler *InteractionHandler
	mediaHandler       *MediaHandler
}

// NewHandlerManager creates all services and handlers.
func NewHandlerManager(cfg *config.Config) (*HandlerManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	telephony := twilioadapter.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioNumber)
	notifier := slackadapter.NewClient(cfg.SlackBotToken, cfg.SlackChannel)
	if !notifier.Enabled() && cfg.AlertSMSTo == "" {
		logger.Base().Warn("neither Slack nor SMS alerts configured, calls will ring unattended")
	}

	service := call.NewService(cfg, call.NewStore(), call.NewSystemClock(), notifier, telephony)

	return &HandlerManager{
		cfg:                cfg,
		service:            service,
		voiceHandler:       NewVoiceHandler(cfg, service),
		interactionHandler: NewInteractionHandler(service),
		mediaHandler:       NewMediaHandler(cfg, &relay.FFmpegOpener{}),
	}, nil
}

// Service returns the call lifecycle controller.
func (hm *HandlerManager) Service() *call.Service {
	return hm.service
}

// SetupAllRoutes registers every endpoint on the router.
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	router.HandleFunc("/voice", hm.voiceHandler.HandleInboundCall).Methods("POST")
	router.HandleFunc("/join-conference", hm.voiceHandler.HandleJoinConference).Methods("POST")
	router.HandleFunc("/voicemail", hm.voiceHandler.HandleVoicemail).Methods("POST")
	router.HandleFunc("/voicemail-recording", hm.voiceHandler.HandleVoicemailRecording).Methods("POST")
	router.HandleFunc("/voicemail-complete", hm.voiceHandler.HandleVoicemailComplete).Methods("POST")
	router.HandleFunc("/chat/interactive", hm.interactionHandler.HandleInteraction).Methods("POST")
	router.HandleFunc("/media", hm.mediaHandler.HandleMedia)
	router.HandleFunc("/", hm.voiceHandler.HandleHealth).Methods("GET")

	logger.Base().Info("routes registered",
		zap.String("media_ws", "/media"),
		zap.Duration("ring_timeout", hm.cfg.RingTimeout))
}
