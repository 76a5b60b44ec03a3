// Package queue provides the persisted play queue.
package queue

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunebox/internal/domain/playlist"
	"github.com/osa030/tunebox/internal/domain/track"
)

// Persister saves and loads the whole queue.
// Implementations absorb their own failures: LoadQueue returns an empty
// list when nothing usable is stored.
type Persister interface {
	SaveQueue(ctx context.Context, tracks []track.Track)
	LoadQueue(ctx context.Context) []track.Track
}

// Store is the play queue shared by the coordinator and the control API.
type Store struct {
	mu        sync.RWMutex
	list      *playlist.Playlist
	persister Persister
	listeners []func()
}

// NewStore creates an empty queue. persister may be nil.
func NewStore(persister Persister) *Store {
	return &Store{
		list:      playlist.New(),
		persister: persister,
	}
}

// OnChange registers fn to run after every effective mutation.
// Listeners run without the store lock held.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Restore replaces the queue with the persisted one.
// It does not write back.
func (s *Store) Restore(ctx context.Context) int {
	if s.persister == nil {
		return 0
	}
	tracks := s.persister.LoadQueue(ctx)

	s.mu.Lock()
	s.list.ReplaceAll(tracks)
	n := s.list.Len()
	s.mu.Unlock()

	zlog.Info().Msgf("queue restored: tracks=%d", n)
	s.notify()
	return n
}

// Append adds t at the end of the queue unless a track with the same ID is present.
func (s *Store) Append(ctx context.Context, t track.Track) bool {
	return s.mutate(ctx, func(p *playlist.Playlist) bool {
		return p.Append(t)
	})
}

// RemoveByID removes the track with the given ID.
func (s *Store) RemoveByID(ctx context.Context, id string) bool {
	return s.mutate(ctx, func(p *playlist.Playlist) bool {
		return p.RemoveByID(id)
	})
}

// MoveUp swaps the track at index with its predecessor.
func (s *Store) MoveUp(ctx context.Context, index int) bool {
	return s.mutate(ctx, func(p *playlist.Playlist) bool {
		return p.MoveUp(index)
	})
}

// MoveDown swaps the track at index with its successor.
func (s *Store) MoveDown(ctx context.Context, index int) bool {
	return s.mutate(ctx, func(p *playlist.Playlist) bool {
		return p.MoveDown(index)
	})
}

// Clear empties the queue. Clearing an empty queue is not a change.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, func(p *playlist.Playlist) bool {
		if p.Len() == 0 {
			return false
		}
		p.Clear()
		return true
	})
}

// ReplaceAll replaces the queue contents verbatim, without de-duplication.
func (s *Store) ReplaceAll(ctx context.Context, tracks []track.Track) {
	s.mutate(ctx, func(p *playlist.Playlist) bool {
		p.ReplaceAll(tracks)
		return true
	})
}

// Tracks returns a copy of the queue in order.
func (s *Store) Tracks() []track.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]track.Track, len(s.list.Tracks))
	copy(result, s.list.Tracks)
	return result
}

// Len returns the number of queued tracks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.Len()
}

// IndexOf returns the position of the track with the given ID, or -1.
func (s *Store) IndexOf(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list.IndexOf(id)
}

// Get returns the track with the given ID.
func (s *Store) Get(id string) (track.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.list.IndexOf(id)
	if i < 0 {
		return track.Track{}, false
	}
	return s.list.Tracks[i], true
}

// mutate applies fn and, if it changed the queue, persists and notifies.
func (s *Store) mutate(ctx context.Context, fn func(p *playlist.Playlist) bool) bool {
	s.mu.Lock()
	if !fn(s.list) {
		s.mu.Unlock()
		return false
	}
	// Saved under the lock so writes land in mutation order.
	if s.persister != nil {
		snapshot := make([]track.Track, len(s.list.Tracks))
		copy(snapshot, s.list.Tracks)
		s.persister.SaveQueue(ctx, snapshot)
	}
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := make([]func(), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}
