//go:build cgo

package speaker

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/osa030/tunebox/internal/app/transport"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

var (
	speakerOnce sync.Once
	speakerErr  error
	sampleRate  = beep.SampleRate(44100)
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(sampleRate, sampleRate.N(time.Second/10))
	})
	return speakerErr
}

// Open downloads and decodes url. Playback starts on the first Play.
func (e *Engine) Open(ctx context.Context, url string) (transport.Handle, error) {
	data, err := e.download(ctx, url)
	if err != nil {
		return nil, err
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode mp3")
	}

	if err := initSpeaker(); err != nil {
		_ = streamer.Close()
		return nil, errors.Wrap(err, "failed to initialize speaker")
	}

	h := &handle{
		streamer: streamer,
		format:   format,
		done:     make(chan struct{}),
	}
	h.ctrl = &beep.Ctrl{
		Streamer: beep.Resample(4, format.SampleRate, sampleRate, streamer),
		Paused:   true,
	}
	return h, nil
}

type handle struct {
	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	started  bool
	closed   bool
	done     chan struct{}
}

func (h *handle) Play(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errors.New("handle closed")
	}
	if !h.started {
		h.started = true
		h.ctrl.Paused = false
		done := h.done
		speaker.Play(beep.Seq(h.ctrl, beep.Callback(func() {
			close(done)
		})))
		return nil
	}

	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (h *handle) Pause(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

func (h *handle) Seek(ctx context.Context, position time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	speaker.Lock()
	defer speaker.Unlock()

	samples := h.format.SampleRate.N(position)
	if samples >= h.streamer.Len() {
		samples = h.streamer.Len() - 1
	}
	if samples < 0 {
		samples = 0
	}
	return h.streamer.Seek(samples)
}

func (h *handle) Status(ctx context.Context) (transport.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return transport.Status{}, errors.New("handle closed")
	}

	speaker.Lock()
	pos := h.streamer.Position()
	length := h.streamer.Len()
	paused := h.ctrl.Paused
	speaker.Unlock()

	finished := false
	select {
	case <-h.done:
		finished = true
	default:
	}

	return transport.Status{
		Position: h.format.SampleRate.D(pos),
		Duration: h.format.SampleRate.D(length),
		Loaded:   true,
		Playing:  h.started && !paused && !finished,
	}, nil
}

func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true

	speaker.Lock()
	h.ctrl.Streamer = nil
	h.ctrl.Paused = true
	speaker.Unlock()

	return h.streamer.Close()
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
