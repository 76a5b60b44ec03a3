package transport

import (
	"context"
	"time"
)

// Engine opens playable handles for stream URLs.
type Engine interface {
	// Open prepares url for playback. The returned handle is not yet playing.
	Open(ctx context.Context, url string) (Handle, error)
}

// Handle is a single loaded stream.
type Handle interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, position time.Duration) error
	Status(ctx context.Context) (Status, error)
	// Close stops playback and releases the stream.
	Close() error
}

// Status is a point-in-time view of the loaded stream.
type Status struct {
	Position time.Duration
	Duration time.Duration
	Loaded   bool
	Playing  bool
}

// PositionMillis returns the position in milliseconds.
func (s Status) PositionMillis() int64 {
	return s.Position.Milliseconds()
}

// DurationMillis returns the duration in milliseconds.
func (s Status) DurationMillis() int64 {
	return s.Duration.Milliseconds()
}

// NearEnd reports whether the position is within tolerance of the end.
// A stream with unknown duration is never near its end.
func (s Status) NearEnd(tolerance time.Duration) bool {
	if s.Duration <= 0 {
		return false
	}
	return s.Position >= s.Duration-tolerance
}
