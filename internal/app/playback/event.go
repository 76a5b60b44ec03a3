package playback

import "github.com/osa030/tunebox/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackChanged EventType = iota // Current track selected
	EventStateChanged                  // Playing flag changed (pause/resume/stop)
	EventModeChanged                   // Shuffle or repeat changed
	EventQueueChanged                  // Queue contents changed
	EventQueueEnded                    // Auto-advance found nothing to play
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventStateChanged:
		return "state_changed"
	case EventModeChanged:
		return "mode_changed"
	case EventQueueChanged:
		return "queue_changed"
	case EventQueueEnded:
		return "queue_ended"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type    EventType
	Track   *track.Track // Current track (nil if nothing selected)
	Playing bool
}
