package relay

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFmpegArgsTelephonyFormat(t *testing.T) {
	args := ffmpegArgs("http://stream.example.org/live")

	assert.Contains(t, args, "http://stream.example.org/live")
	// Twilio media streams require 8kHz mono mu-law.
	joined := ""
	for _, a := range args {
		joined += a + " "
	}
	assert.Contains(t, joined, "-acodec pcm_mulaw")
	assert.Contains(t, joined, "-ar 8000")
	assert.Contains(t, joined, "-ac 1")
	assert.Contains(t, joined, "pipe:1")
}

func TestStreamChunksInOrder(t *testing.T) {
	src := bytes.NewReader([]byte("aaaabbbbcc"))
	s := newStream(src, 4, nil)
	defer s.Close()

	var got [][]byte
	for chunk := range s.Chunks() {
		got = append(got, chunk)
	}

	require.Len(t, got, 3)
	assert.Equal(t, []byte("aaaa"), got[0])
	assert.Equal(t, []byte("bbbb"), got[1])
	assert.Equal(t, []byte("cc"), got[2])
}

func TestStreamReportsSourceEnd(t *testing.T) {
	s := newStream(bytes.NewReader(nil), 4, nil)
	defer s.Close()

	for range s.Chunks() {
	}

	select {
	case err := <-s.Err():
		assert.Contains(t, err.Error(), "ended")
	case <-time.After(time.Second):
		t.Fatal("expected a source-end error")
	}
}

func TestCloseStopsSource(t *testing.T) {
	pr, pw := io.Pipe()
	var stopped atomic.Bool
	s := newStream(pr, 4, func() {
		stopped.Store(true)
		_ = pw.Close()
		_ = pr.Close()
	})

	go func() {
		_, _ = pw.Write([]byte("xxxx"))
	}()
	chunk, ok := <-s.Chunks()
	require.True(t, ok)
	assert.Equal(t, []byte("xxxx"), chunk)

	require.NoError(t, s.Close())
	assert.True(t, stopped.Load())

	// The chunk channel drains and closes after teardown.
	for range s.Chunks() {
	}

	// Closing locally reports no source error.
	select {
	case err := <-s.Err():
		t.Fatalf("unexpected error after local close: %v", err)
	default:
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	var stops atomic.Int32
	s := newStream(bytes.NewReader(nil), 4, func() { stops.Add(1) })

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, int32(1), stops.Load())
}

func TestOpenRequiresSource(t *testing.T) {
	o := &FFmpegOpener{}
	_, err := o.Open(context.Background(), "")
	require.Error(t, err)
}
