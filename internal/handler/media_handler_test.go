package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ridgelineradio/call-relay/internal/config"
	"github.com/ridgelineradio/call-relay/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStream feeds canned chunks to the bridge and records teardown.
type fakeStream struct {
	chunks chan []byte
	errs   chan error

	mu     sync.Mutex
	closed bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		chunks: make(chan []byte, 16),
		errs:   make(chan error, 1),
	}
}

func (s *fakeStream) Chunks() <-chan []byte { return s.chunks }
func (s *fakeStream) Err() <-chan error     { return s.errs }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.chunks)
	}
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeOpener struct {
	mu      sync.Mutex
	streams []*fakeStream
	sources []string
}

func (o *fakeOpener) Open(_ context.Context, sourceURL string) (relay.Stream, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := newFakeStream()
	o.streams = append(o.streams, s)
	o.sources = append(o.sources, sourceURL)
	return s, nil
}

func (o *fakeOpener) openedSources() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.sources...)
}

func (o *fakeOpener) lastStream() *fakeStream {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.streams) == 0 {
		return nil
	}
	return o.streams[len(o.streams)-1]
}

func httpHandler(h *MediaHandler) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/media", h.HandleMedia)
	return router
}

func TestMediaBridgeForwardsChunksInOrder(t *testing.T) {
	opener := &fakeOpener{}
	cfg := &config.Config{StreamURL: "http://stream.example.org/live"}
	h := NewMediaHandler(cfg, opener)

	srv := httptest.NewServer(httpHandler(h))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/media"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "start",
		"start": map[string]any{"streamSid": "MZ123"},
	}))

	require.Eventually(t, func() bool { return opener.lastStream() != nil },
		time.Second, 5*time.Millisecond)
	stream := opener.lastStream()

	want := [][]byte{[]byte("chunk-one"), []byte("chunk-two"), []byte("chunk-three")}
	for _, c := range want {
		stream.chunks <- c
	}

	for _, c := range want {
		var frame mediaFrame
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, "media", frame.Event)
		assert.Equal(t, "MZ123", frame.StreamSid)
		assert.Equal(t, base64.StdEncoding.EncodeToString(c), frame.Media.Payload)
	}
}

func TestMediaBridgeStopTearsDownRelay(t *testing.T) {
	opener := &fakeOpener{}
	cfg := &config.Config{StreamURL: "http://stream.example.org/live"}
	h := NewMediaHandler(cfg, opener)

	srv := httptest.NewServer(httpHandler(h))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/media"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "start",
		"start": map[string]any{"streamSid": "MZ123"},
	}))
	require.Eventually(t, func() bool { return opener.lastStream() != nil },
		time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "stop"}))
	require.Eventually(t, func() bool { return opener.lastStream().isClosed() },
		time.Second, 5*time.Millisecond)
}

func TestMediaBridgeSocketCloseTearsDownRelay(t *testing.T) {
	opener := &fakeOpener{}
	cfg := &config.Config{StreamURL: "http://stream.example.org/live"}
	h := NewMediaHandler(cfg, opener)

	srv := httptest.NewServer(httpHandler(h))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/media"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "start",
		"start": map[string]any{"streamSid": "MZ123"},
	}))
	require.Eventually(t, func() bool { return opener.lastStream() != nil },
		time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return opener.lastStream().isClosed() },
		time.Second, 5*time.Millisecond)
}

func TestMediaBridgeIgnoresMalformedMessages(t *testing.T) {
	opener := &fakeOpener{}
	cfg := &config.Config{StreamURL: "http://stream.example.org/live"}
	h := NewMediaHandler(cfg, opener)

	srv := httptest.NewServer(httpHandler(h))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/media"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// The socket is still usable afterwards.
	require.NoError(t, conn.WriteJSON(map[string]any{
		"event": "start",
		"start": map[string]any{"streamSid": "MZ123"},
	}))
	require.Eventually(t, func() bool { return opener.lastStream() != nil },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"http://stream.example.org/live"}, opener.openedSources())
}
