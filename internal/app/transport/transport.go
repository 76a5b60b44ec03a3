// Package transport owns the single audio handle and applies playback commands to it.
package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrPlayback marks failures reported by the audio engine.
// They are logged by Transport and never returned to callers.
var ErrPlayback = errors.New("playback error")

// State is the transport state.
type State int

const (
	StateEmpty   State = iota // No handle loaded
	StatePlaying              // Handle loaded and playing
	StatePaused               // Handle loaded and paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Transport wraps an Engine and owns at most one Handle at a time.
type Transport struct {
	engine Engine

	loading atomic.Bool

	mu     sync.Mutex
	handle Handle
	state  State
	url    string
	epoch  uint64 // bumped by every release
}

// New creates an empty transport.
func New(engine Engine) *Transport {
	return &Transport{
		engine: engine,
		state:  StateEmpty,
	}
}

// Load replaces the current handle with one for url and starts it.
// If another Load is in flight the call is dropped and false is returned.
// Engine failures, or a Stop while the stream is opening, leave the transport empty.
func (t *Transport) Load(ctx context.Context, url string) bool {
	if !t.loading.CompareAndSwap(false, true) {
		zlog.Debug().Msgf("transport: load already in progress, dropping: url=%s", url)
		return false
	}
	defer t.loading.Store(false)

	t.release()
	t.mu.Lock()
	epoch := t.epoch
	t.mu.Unlock()

	if url == "" {
		logFailure("load", errors.New("track has no playable stream"))
		return false
	}

	h, err := t.engine.Open(ctx, url)
	if err != nil {
		logFailure("open", err)
		return false
	}
	if err := h.Play(ctx); err != nil {
		logFailure("play", err)
		if cerr := h.Close(); cerr != nil {
			logFailure("close", cerr)
		}
		return false
	}

	t.mu.Lock()
	if t.epoch != epoch {
		// Stopped while opening
		t.mu.Unlock()
		if err := h.Close(); err != nil {
			logFailure("close", err)
		}
		zlog.Debug().Msgf("transport: stopped during load, discarding: url=%s", url)
		return false
	}
	t.handle = h
	t.state = StatePlaying
	t.url = url
	t.mu.Unlock()

	zlog.Debug().Msgf("transport: loaded: url=%s", url)
	return true
}

// Pause pauses the loaded handle. No-op when empty.
func (t *Transport) Pause(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handle == nil {
		return
	}
	if err := t.handle.Pause(ctx); err != nil {
		logFailure("pause", err)
		return
	}
	t.state = StatePaused
}

// Resume resumes the loaded handle. No-op when empty.
func (t *Transport) Resume(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handle == nil {
		return
	}
	if err := t.handle.Play(ctx); err != nil {
		logFailure("resume", err)
		return
	}
	t.state = StatePlaying
}

// Seek moves the playback position. No-op when empty.
func (t *Transport) Seek(ctx context.Context, position time.Duration) {
	if position < 0 {
		position = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handle == nil {
		return
	}
	if err := t.handle.Seek(ctx, position); err != nil {
		logFailure("seek", err)
	}
}

// Stop releases the loaded handle.
func (t *Transport) Stop() {
	t.release()
}

// Status returns the status of the loaded handle, or nil when empty.
func (t *Transport) Status(ctx context.Context) *Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handle == nil {
		return nil
	}
	st, err := t.handle.Status(ctx)
	if err != nil {
		logFailure("status", err)
		return nil
	}
	st.Loaded = true
	return &st
}

// State returns the transport state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// URL returns the URL of the loaded handle, or "" when empty.
func (t *Transport) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// Loading reports whether a Load is in flight.
func (t *Transport) Loading() bool {
	return t.loading.Load()
}

func (t *Transport) release() {
	t.mu.Lock()
	h := t.handle
	t.handle = nil
	t.epoch++
	t.state = StateEmpty
	t.url = ""
	t.mu.Unlock()

	if h == nil {
		return
	}
	if err := h.Close(); err != nil {
		logFailure("close", err)
	}
}

func logFailure(op string, err error) {
	err = errors.Mark(errors.Wrapf(err, "transport %s", op), ErrPlayback)
	zlog.Warn().Err(err).Msgf("transport: %s failed", op)
}
