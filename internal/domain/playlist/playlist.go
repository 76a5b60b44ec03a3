// Package playlist provides the ordered, deduplicated track list behind the play queue.
package playlist

import "github.com/osa030/tunebox/internal/domain/track"

// Playlist is an ordered list of tracks, unique by ID.
// Order is insertion/reorder order; nothing sorts it implicitly.
// Playlist is not safe for concurrent use.
type Playlist struct {
	Tracks []track.Track
}

// New creates an empty playlist.
func New() *Playlist {
	return &Playlist{Tracks: make([]track.Track, 0)}
}

// Len returns the number of tracks.
func (p *Playlist) Len() int {
	return len(p.Tracks)
}

// IndexOf returns the position of the track with the given ID, or -1.
func (p *Playlist) IndexOf(id string) int {
	for i, t := range p.Tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether a track with the given ID is present.
func (p *Playlist) Contains(id string) bool {
	return p.IndexOf(id) >= 0
}

// Append adds t at the end. Returns false (and leaves the list untouched)
// if a track with the same ID is already present.
func (p *Playlist) Append(t track.Track) bool {
	if p.Contains(t.ID) {
		return false
	}
	p.Tracks = append(p.Tracks, t)
	return true
}

// RemoveByID removes the first track with the given ID.
func (p *Playlist) RemoveByID(id string) bool {
	i := p.IndexOf(id)
	if i < 0 {
		return false
	}
	p.Tracks = append(p.Tracks[:i:i], p.Tracks[i+1:]...)
	return true
}

// MoveUp swaps the track at index with its predecessor.
// Index 0 and out-of-range indices are no-ops.
func (p *Playlist) MoveUp(index int) bool {
	if index <= 0 || index >= len(p.Tracks) {
		return false
	}
	p.Tracks[index-1], p.Tracks[index] = p.Tracks[index], p.Tracks[index-1]
	return true
}

// MoveDown swaps the track at index with its successor.
// The last index and out-of-range indices are no-ops.
func (p *Playlist) MoveDown(index int) bool {
	if index < 0 || index >= len(p.Tracks)-1 {
		return false
	}
	p.Tracks[index], p.Tracks[index+1] = p.Tracks[index+1], p.Tracks[index]
	return true
}

// Clear removes all tracks.
func (p *Playlist) Clear() {
	p.Tracks = make([]track.Track, 0)
}

// ReplaceAll replaces the contents with a copy of tracks as-is, without deduplication.
func (p *Playlist) ReplaceAll(tracks []track.Track) {
	p.Tracks = make([]track.Track, len(tracks))
	copy(p.Tracks, tracks)
}
