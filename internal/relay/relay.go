// Package relay pulls a live audio source and transcodes it to
// telephony narrowband (8kHz mono mu-law) via an ffmpeg subprocess.
package relay

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/ridgelineradio/call-relay/pkg/logger"
	"go.uber.org/zap"
)

// DefaultChunkSize is how many transcoded bytes are republished per
// chunk (400ms of 8kHz mu-law audio).
const DefaultChunkSize = 3200

// Stream is an unbounded, non-restartable sequence of transcoded audio
// chunks. The chunk channel closes when the source ends or the stream
// is closed; source failures surface on Err.
type Stream interface {
	Chunks() <-chan []byte
	Err() <-chan error
	// Close tears down the stream and terminates the transcode process.
	// Mandatory on session end; a leaked ffmpeg is a resource-exhaustion
	// risk under repeated calls.
	Close() error
}

// Opener opens a relay stream for one media session. Abstracted so the
// media bridge can be exercised without a real ffmpeg binary.
type Opener interface {
	Open(ctx context.Context, sourceURL string) (Stream, error)
}

// FFmpegOpener spawns one ffmpeg per session to pull and transcode the
// source.
type FFmpegOpener struct {
	// ChunkSize overrides DefaultChunkSize when positive.
	ChunkSize int
}

func ffmpegArgs(sourceURL string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", sourceURL,
		"-acodec", "pcm_mulaw",
		"-f", "mulaw",
		"-ar", "8000",
		"-ac", "1",
		"pipe:1",
	}
}

// Open starts the transcode subprocess and begins republishing its
// output.
func (o *FFmpegOpener) Open(ctx context.Context, sourceURL string) (Stream, error) {
	if sourceURL == "" {
		return nil, fmt.Errorf("no stream source configured")
	}

	chunkSize := o.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	cmdCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cmdCtx, "ffmpeg", ffmpegArgs(sourceURL)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	logger.Base().Info("transcode pipeline started",
		zap.String("source", sourceURL),
		zap.Int("pid", cmd.Process.Pid))

	s := newStream(stdout, chunkSize, func() {
		cancel()
		_ = cmd.Wait() // reap; exit error is expected after a kill
	})
	return s, nil
}

// stream pumps a transcoded byte source into discrete chunks. Separate
// from the subprocess so tests can feed it any reader.
type stream struct {
	source    io.Reader
	chunkSize int
	stop      func()

	chunks chan []byte
	errs   chan error
	done   chan struct{}
	once   sync.Once
}

func newStream(source io.Reader, chunkSize int, stop func()) *stream {
	s := &stream{
		source:    source,
		chunkSize: chunkSize,
		stop:      stop,
		chunks:    make(chan []byte),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *stream) Chunks() <-chan []byte { return s.chunks }
func (s *stream) Err() <-chan error     { return s.errs }

func (s *stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		if s.stop != nil {
			s.stop()
		}
	})
	return nil
}

func (s *stream) pump() {
	defer close(s.chunks)
	for {
		buf := make([]byte, s.chunkSize)
		n, err := s.source.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- buf[:n]:
			case <-s.done:
				return
			}
		}
		if err != nil {
			select {
			case <-s.done:
				// Closed locally; EOF from the killed process is expected.
			default:
				if err != io.EOF {
					select {
					case s.errs <- err:
					default:
					}
				} else {
					select {
					case s.errs <- fmt.Errorf("audio source ended"):
					default:
					}
				}
			}
			return
		}
	}
}
