// Package track provides the Track domain entity.
package track

import (
	"strings"
	"time"
)

// DefaultQuality is the stream quality preferred when none is configured.
// It is the highest bitrate the catalog defines.
const DefaultQuality = "320kbps"

// Variant is one rendition of a track resource (an image resolution or a stream bitrate).
type Variant struct {
	Quality string `json:"quality"` // e.g. "500x500" or "320kbps"
	URL     string `json:"url"`
}

// Track represents a song obtained from a catalog.
// Tracks are immutable once built by a catalog client.
type Track struct {
	ID       string        `json:"id"`                 // Catalog track ID
	Name     string        `json:"name"`               // Track name
	Artists  string        `json:"artists"`            // Normalized artist display string
	Album    string        `json:"album,omitempty"`    // Album name
	Images   []Variant     `json:"images,omitempty"`   // Artwork, ascending resolution
	Streams  []Variant     `json:"streams,omitempty"`  // Audio streams by quality
	Duration time.Duration `json:"duration,omitempty"` // Track duration (zero if unknown)
	Source   string        `json:"source,omitempty"`   // Catalog that produced the track
}

// StreamURL returns the URL of the stream whose quality label matches preferred,
// falling back to the first stream. Returns "" when the track has no streams.
func (t *Track) StreamURL(preferred string) string {
	if len(t.Streams) == 0 {
		return ""
	}
	if preferred == "" {
		preferred = DefaultQuality
	}
	for _, s := range t.Streams {
		if strings.EqualFold(s.Quality, preferred) {
			return s.URL
		}
	}
	return t.Streams[0].URL
}

// ImageURL returns the highest resolution artwork URL, or "" if none.
func (t *Track) ImageURL() string {
	if len(t.Images) == 0 {
		return ""
	}
	return t.Images[len(t.Images)-1].URL
}

// JoinArtists builds the display string for a list of artist names.
// Empty names are skipped.
func JoinArtists(names []string) string {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, ", ")
}
