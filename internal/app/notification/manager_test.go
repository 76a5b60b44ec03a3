package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunebox/internal/app/playback"
	"github.com/osa030/tunebox/internal/domain/track"
)

type recordingStream struct {
	mu    sync.Mutex
	got   []*Notification
	err   error
	block chan struct{}
}

func (s *recordingStream) Send(n *Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, n)
	return nil
}

func (s *recordingStream) received() []*Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Notification(nil), s.got...)
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager()
	a := &recordingStream{}
	b := &recordingStream{}
	idA := m.Subscribe(a)
	m.Subscribe(b)
	assert.Equal(t, 2, m.SubscriberCount())

	m.Broadcast(&Notification{Event: "track_changed"})
	m.Broadcast(&Notification{Event: "state_changed"})

	require.Len(t, a.received(), 2)
	require.Len(t, b.received(), 2)
	assert.Equal(t, uint64(1), a.received()[0].SequenceNo)
	assert.Equal(t, uint64(2), a.received()[1].SequenceNo)

	m.Unsubscribe(idA)
	m.Broadcast(&Notification{Event: "mode_changed"})
	assert.Len(t, a.received(), 2)
	assert.Len(t, b.received(), 3)

	require.NoError(t, m.Send("missing", &Notification{}))

	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
	select {
	case <-m.Done():
	default:
		t.Fatal("done not closed")
	}
	m.Close()
}

func TestManager_FailingSubscriberIsDropped(t *testing.T) {
	m := NewManager()
	m.Subscribe(&recordingStream{err: errors.New("stream closed")})
	ok := &recordingStream{}
	m.Subscribe(ok)

	m.Broadcast(&Notification{Event: "track_changed"})

	assert.Equal(t, 1, m.SubscriberCount())
	assert.Len(t, ok.received(), 1)
}

func TestManager_SlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewManager()
	slow := &recordingStream{block: make(chan struct{})}
	defer close(slow.block)
	m.Subscribe(slow)

	start := time.Now()
	m.Broadcast(&Notification{Event: "track_changed"})
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, m.SubscriberCount())
}

func TestManager_Relay(t *testing.T) {
	m := NewManager()
	s := &recordingStream{}
	m.Subscribe(s)

	events := make(chan playback.Event, 2)
	events <- playback.Event{Type: playback.EventTrackChanged}
	events <- playback.Event{Type: playback.EventQueueChanged}
	close(events)

	cur := track.Track{ID: "a"}
	m.Relay(context.Background(), events, func(ctx context.Context) playback.Snapshot {
		return playback.Snapshot{Current: &cur, Playing: true}
	})

	got := s.received()
	require.Len(t, got, 2)
	assert.Equal(t, "track_changed", got[0].Event)
	assert.Equal(t, "queue_changed", got[1].Event)
	assert.Equal(t, "a", got[1].Snapshot.Current.ID)
}
