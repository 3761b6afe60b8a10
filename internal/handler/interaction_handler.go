package handler

import (
	"context"
	"encoding/json"
	"net/http"

	slackadapter "github.com/ridgelineradio/call-relay/internal/adapters/slack"
	"github.com/ridgelineradio/call-relay/internal/services/call"
	"github.com/ridgelineradio/call-relay/pkg/logger"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// InteractionHandler receives Slack interactive-message callbacks (the
// "Answer call" button).
type InteractionHandler struct {
	service *call.Service
}

// NewInteractionHandler creates the Slack interaction handler.
func NewInteractionHandler(service *call.Service) *InteractionHandler {
	return &InteractionHandler{service: service}
}

// HandleInteraction acks the callback immediately and processes the
// accept asynchronously; Slack retries the whole interaction if the ack
// is slow. Malformed payloads are ignored, not errors.
func (h *InteractionHandler) HandleInteraction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	payload := r.FormValue("payload")
	w.WriteHeader(http.StatusOK)
	if payload == "" {
		return
	}

	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &cb); err != nil {
		logger.Base().Warn("ignoring unparseable interaction payload", zap.Error(err))
		return
	}
	if cb.Type != slack.InteractionTypeBlockActions {
		return
	}

	for _, action := range cb.ActionCallback.BlockActions {
		if action.ActionID != slackadapter.AcceptActionID || action.Value == "" {
			continue
		}
		callSID := action.Value
		responder := call.Responder{ID: cb.User.ID, Name: cb.User.Name}
		go h.service.HandleResponderAccept(context.Background(), callSID, responder)
	}
}
