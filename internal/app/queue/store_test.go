package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunebox/internal/domain/track"
)

type memoryPersister struct {
	mu     sync.Mutex
	saved  [][]track.Track
	stored []track.Track
}

func (m *memoryPersister) SaveQueue(ctx context.Context, tracks []track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, tracks)
	m.stored = tracks
}

func (m *memoryPersister) LoadQueue(ctx context.Context) []track.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stored
}

func (m *memoryPersister) saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func tr(id string) track.Track {
	return track.Track{ID: id, Name: "Song " + id}
}

func ids(tracks []track.Track) []string {
	result := make([]string, len(tracks))
	for i, t := range tracks {
		result[i] = t.ID
	}
	return result
}

func TestStore_AppendDedup(t *testing.T) {
	ctx := context.Background()
	p := &memoryPersister{}
	s := NewStore(p)

	assert.True(t, s.Append(ctx, tr("a")))
	assert.True(t, s.Append(ctx, tr("b")))
	assert.False(t, s.Append(ctx, tr("a")))

	assert.Equal(t, []string{"a", "b"}, ids(s.Tracks()))
	assert.Equal(t, 2, p.saves(), "duplicate append must not persist")
	assert.Equal(t, []string{"a", "b"}, ids(p.LoadQueue(ctx)))
}

func TestStore_RemoveAndMove(t *testing.T) {
	ctx := context.Background()
	p := &memoryPersister{}
	s := NewStore(p)
	for _, id := range []string{"a", "b", "c"} {
		s.Append(ctx, tr(id))
	}

	assert.False(t, s.MoveUp(ctx, 0))
	assert.False(t, s.MoveDown(ctx, 2))
	assert.False(t, s.MoveDown(ctx, 7))
	assert.Equal(t, 3, p.saves())

	assert.True(t, s.MoveUp(ctx, 2))
	assert.Equal(t, []string{"a", "c", "b"}, ids(s.Tracks()))

	assert.True(t, s.MoveDown(ctx, 0))
	assert.Equal(t, []string{"c", "a", "b"}, ids(s.Tracks()))

	assert.False(t, s.RemoveByID(ctx, "zzz"))
	assert.True(t, s.RemoveByID(ctx, "a"))
	assert.Equal(t, []string{"c", "b"}, ids(s.Tracks()))
	assert.Equal(t, 1, s.IndexOf("b"))
	assert.Equal(t, -1, s.IndexOf("a"))

	got, ok := s.Get("c")
	require.True(t, ok)
	assert.Equal(t, "Song c", got.Name)

	assert.Equal(t, []string{"c", "b"}, ids(p.LoadQueue(ctx)))
}

func TestStore_ClearAndReplaceAll(t *testing.T) {
	ctx := context.Background()
	p := &memoryPersister{}
	s := NewStore(p)
	s.Append(ctx, tr("a"))

	s.ReplaceAll(ctx, []track.Track{tr("x"), tr("x"), tr("y")})
	assert.Equal(t, []string{"x", "x", "y"}, ids(s.Tracks()))

	s.Clear(ctx)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, p.LoadQueue(ctx))
}

func TestStore_ClearEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	p := &memoryPersister{}
	s := NewStore(p)

	changes := 0
	s.OnChange(func() { changes++ })

	s.Clear(ctx)
	assert.Equal(t, 0, p.saves())
	assert.Equal(t, 0, changes)

	s.Append(ctx, tr("a"))
	s.Clear(ctx)
	s.Clear(ctx)
	assert.Equal(t, 2, p.saves())
	assert.Equal(t, 2, changes)
}

func TestStore_Restore(t *testing.T) {
	ctx := context.Background()
	p := &memoryPersister{stored: []track.Track{tr("a"), tr("b")}}
	s := NewStore(p)

	changes := 0
	s.OnChange(func() { changes++ })

	assert.Equal(t, 2, s.Restore(ctx))
	assert.Equal(t, []string{"a", "b"}, ids(s.Tracks()))
	assert.Equal(t, 0, p.saves(), "restore must not write back")
	assert.Equal(t, 1, changes)
}

func TestStore_OnChangeOnlyOnEffectiveMutation(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)

	var seen []int
	s.OnChange(func() { seen = append(seen, s.Len()) })

	s.Append(ctx, tr("a"))
	s.Append(ctx, tr("a"))
	s.MoveUp(ctx, 0)
	s.Append(ctx, tr("b"))
	s.RemoveByID(ctx, "a")

	assert.Equal(t, []int{1, 2, 1}, seen)
	assert.Equal(t, 0, NewStore(nil).Restore(ctx))
}

func TestStore_TracksIsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil)
	s.Append(ctx, tr("a"))

	got := s.Tracks()
	got[0].ID = "mutated"

	assert.Equal(t, []string{"a"}, ids(s.Tracks()))
}
