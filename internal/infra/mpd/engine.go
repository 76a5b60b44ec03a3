package mpd

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fhs/gompd/v2/mpd"

	"github.com/osa030/tunebox/internal/app/transport"
)

// Backend is the part of Client used by the engine.
type Backend interface {
	Replace(uri string) (int, error)
	PlayID(id int) error
	Pause(pause bool) error
	Stop() error
	SeekCur(position time.Duration) error
	Status() (mpd.Attrs, error)
}

// Engine plays streams through MPD. MPD fetches and decodes the URL itself.
type Engine struct {
	backend Backend
}

// NewEngine creates an engine on top of backend.
func NewEngine(backend Backend) *Engine {
	return &Engine{backend: backend}
}

// Open replaces the MPD queue with url.
func (e *Engine) Open(ctx context.Context, url string) (transport.Handle, error) {
	id, err := e.backend.Replace(url)
	if err != nil {
		return nil, errors.Wrap(err, "mpd open")
	}
	return &handle{backend: e.backend, songID: id}, nil
}

type handle struct {
	backend Backend
	songID  int

	mu       sync.Mutex
	started  bool
	closed   bool
	duration time.Duration
}

func (h *handle) Play(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errors.New("handle closed")
	}
	if !h.started {
		if err := h.backend.PlayID(h.songID); err != nil {
			return err
		}
		h.started = true
		return nil
	}
	return h.backend.Pause(false)
}

func (h *handle) Pause(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || !h.started {
		return nil
	}
	return h.backend.Pause(true)
}

func (h *handle) Seek(ctx context.Context, position time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	return h.backend.SeekCur(position)
}

func (h *handle) Status(ctx context.Context) (transport.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	attrs, err := h.backend.Status()
	if err != nil {
		return transport.Status{}, err
	}

	st := transport.Status{Loaded: true}
	current := attrs["songid"] == strconv.Itoa(h.songID)

	if d := parseSeconds(attrs["duration"]); current && d > 0 {
		h.duration = d
	}
	st.Duration = h.duration

	switch attrs["state"] {
	case "play":
		st.Playing = current
		st.Position = parseSeconds(attrs["elapsed"])
	case "pause":
		st.Position = parseSeconds(attrs["elapsed"])
	default:
		// MPD drops back to "stop" and forgets the position once the
		// only queued entry has played out.
		if h.started {
			st.Position = h.duration
		}
	}
	return st, nil
}

func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	return h.backend.Stop()
}

// parseSeconds parses an MPD seconds value such as "12.345".
func parseSeconds(s string) time.Duration {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}
