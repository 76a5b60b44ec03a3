// Package playback provides the playback coordinator tying the queue to the audio transport.
package playback

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tunebox/internal/domain/track"
)

// RepeatMode represents the repeat mode.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota // Stop advancing at the end of the queue
	RepeatAll                   // Wrap to the first track at the end of the queue
	RepeatOne                   // Replay the current track
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "unknown"
	}
}

// Next returns the mode that follows m in the off, all, one cycle.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatOff
	}
}

// ParseRepeatMode parses "off", "all" or "one".
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return RepeatOff, nil
	case "all":
		return RepeatAll, nil
	case "one":
		return RepeatOne, nil
	default:
		return RepeatOff, errors.Newf("unknown repeat mode: %q", s)
	}
}

// Snapshot is a read-only view of the coordinator state.
type Snapshot struct {
	Current  *track.Track
	Playing  bool
	Shuffle  bool
	Repeat   RepeatMode
	Position time.Duration
	Duration time.Duration
	Queue    []track.Track
}
