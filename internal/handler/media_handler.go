package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ridgelineradio/call-relay/internal/config"
	"github.com/ridgelineradio/call-relay/internal/relay"
	"github.com/ridgelineradio/call-relay/pkg/logger"
	"go.uber.org/zap"
)

// controlMessage is an inbound Twilio Media Streams control event.
type controlMessage struct {
	Event string `json:"event"`
	Start struct {
		StreamSid string `json:"streamSid"`
	} `json:"start"`
}

// mediaFrame is an outbound media event carrying one base64 audio
// chunk.
type mediaFrame struct {
	Event     string       `json:"event"`
	StreamSid string       `json:"streamSid"`
	Media     mediaPayload `json:"media"`
}

type mediaPayload struct {
	Payload string `json:"payload"`
}

// MediaHandler bridges the live broadcast into Twilio media sockets.
// Each socket gets its own relay instance, torn down on stop or socket
// close, whichever comes first.
type MediaHandler struct {
	cfg      *config.Config
	opener   relay.Opener
	upgrader websocket.Upgrader
}

// NewMediaHandler creates the media bridge endpoint.
func NewMediaHandler(cfg *config.Config, opener relay.Opener) *MediaHandler {
	return &MediaHandler{
		cfg:    cfg,
		opener: opener,
		upgrader: websocket.Upgrader{
			// Twilio's media stream client sends no Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// mediaSession owns one relay stream and the goroutine forwarding its
// chunks onto the socket.
type mediaSession struct {
	streamSid string
	stream    relay.Stream
	closeOnce sync.Once
	done      chan struct{}
}

func (s *mediaSession) close() {
	s.closeOnce.Do(func() {
		_ = s.stream.Close()
		<-s.done // wait for the forwarder to stop writing
	})
}

// HandleMedia runs one media socket: waits for the start control
// message, opens a relay for the announced stream SID and forwards every
// chunk in arrival order. Malformed control messages are ignored.
func (h *MediaHandler) HandleMedia(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Base().Error("media socket upgrade failed", zap.Error(err))
		return
	}
	connID := uuid.NewString()
	log := logger.Base().With(zap.String("conn_id", connID))
	log.Info("media socket connected")

	var session *mediaSession
	defer func() {
		if session != nil {
			session.close()
		}
		_ = conn.Close()
		log.Info("media socket disconnected")
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var ctrl controlMessage
		if err := json.Unmarshal(msg, &ctrl); err != nil {
			log.Warn("ignoring malformed control message", zap.Error(err))
			continue
		}

		switch ctrl.Event {
		case "start":
			if session != nil {
				log.Warn("duplicate start event, keeping existing session",
					zap.String("stream_sid", ctrl.Start.StreamSid))
				continue
			}
			session = h.startSession(r.Context(), conn, ctrl.Start.StreamSid, log)

		case "stop":
			log.Info("stream stopped")
			if session != nil {
				session.close()
				session = nil
			}
		}
	}
}

// startSession opens the relay and forwards its chunks to the socket.
// Returns nil if the relay could not be opened; the socket stays up so
// the call itself is unaffected.
func (h *MediaHandler) startSession(ctx context.Context, conn *websocket.Conn, streamSid string, log *zap.Logger) *mediaSession {
	log.Info("stream started", zap.String("stream_sid", streamSid))

	stream, err := h.opener.Open(ctx, h.cfg.StreamURL)
	if err != nil {
		log.Error("failed to open media relay", zap.Error(err))
		return nil
	}

	session := &mediaSession{
		streamSid: streamSid,
		stream:    stream,
		done:      make(chan struct{}),
	}

	go func() {
		defer close(session.done)
		for {
			select {
			case chunk, ok := <-stream.Chunks():
				if !ok {
					return
				}
				frame := mediaFrame{
					Event:     "media",
					StreamSid: streamSid,
					Media:     mediaPayload{Payload: base64.StdEncoding.EncodeToString(chunk)},
				}
				if err := conn.WriteJSON(frame); err != nil {
					log.Warn("media socket write failed", zap.Error(err))
					return
				}
			case err := <-stream.Err():
				// The session just goes quiet; other sessions and the call
				// keep running. No auto-reconnect.
				log.Error("media source failed", zap.String("stream_sid", streamSid), zap.Error(err))
			}
		}
	}()

	return session
}
