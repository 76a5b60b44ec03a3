package filter

import (
	"context"

	"github.com/osa030/tunebox/internal/domain/track"
)

// PlayableFilter rejects tracks that have no stream to play.
type PlayableFilter struct{}

// Name returns the filter name.
func (f *PlayableFilter) Name() string {
	return "playable_filter"
}

// Description returns the filter description.
func (f *PlayableFilter) Description() string {
	return "Rejects tracks without a playable stream URL"
}

// ReturnCodes returns possible return codes.
func (f *PlayableFilter) ReturnCodes() []string {
	return []string{"no_stream"}
}

// ValidateConfig validates the filter configuration.
func (f *PlayableFilter) ValidateConfig(settings map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks that the track has at least one stream URL.
func (f *PlayableFilter) Check(ctx context.Context, t track.Track) Result {
	if t.StreamURL("") == "" {
		return Reject("no_stream")
	}
	return Accept()
}

func init() {
	Register("playable_filter", func() Filter {
		return &PlayableFilter{}
	})
}
