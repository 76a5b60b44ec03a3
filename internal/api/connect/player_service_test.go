package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunebox/internal/app/filter"
	"github.com/osa030/tunebox/internal/app/notification"
	"github.com/osa030/tunebox/internal/app/playback"
	"github.com/osa030/tunebox/internal/app/queue"
	"github.com/osa030/tunebox/internal/app/search"
	"github.com/osa030/tunebox/internal/app/transport"
	"github.com/osa030/tunebox/internal/domain/catalog"
	"github.com/osa030/tunebox/internal/domain/track"
)

type fakeTransport struct {
	mu     sync.Mutex
	loads  []string
	seeked time.Duration
	status *transport.Status
}

func (f *fakeTransport) Load(ctx context.Context, url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, url)
	f.status = &transport.Status{Loaded: true, Playing: true, Position: 2 * time.Second, Duration: 3 * time.Minute}
	return true
}

func (f *fakeTransport) Pause(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != nil {
		f.status.Playing = false
	}
}

func (f *fakeTransport) Resume(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != nil {
		f.status.Playing = true
	}
}

func (f *fakeTransport) Seek(ctx context.Context, position time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeked = position
}

func (f *fakeTransport) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = nil
}

func (f *fakeTransport) Status(ctx context.Context) *transport.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status == nil {
		return nil
	}
	st := *f.status
	return &st
}

func (f *fakeTransport) loaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loads...)
}

type stubCatalog struct {
	tracks []track.Track
}

func (c *stubCatalog) SearchSongs(ctx context.Context, query string) ([]track.Track, error) {
	return c.tracks, nil
}

func (c *stubCatalog) GetSongByID(ctx context.Context, id string) (*track.Track, error) {
	for _, t := range c.tracks {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, catalog.NotFound(id)
}

func (c *stubCatalog) Name() string {
	return "stub"
}

func testTrack(id string) track.Track {
	return track.Track{
		ID:       id,
		Name:     "Song " + id,
		Artists:  "Artist",
		Streams:  []track.Variant{{Quality: "320kbps", URL: "https://cdn.example.com/" + id + ".mp4"}},
		Duration: 3 * time.Minute,
		Source:   "saavn",
	}
}

type fixture struct {
	client        *Client
	transport     *fakeTransport
	queue         *queue.Store
	controller    *playback.Controller
	notifications *notification.Manager
}

func newFixture(t *testing.T, token string) *fixture {
	t.Helper()

	ft := &fakeTransport{}
	store := queue.NewStore(nil)
	controller := playback.NewController(ft, store, playback.Config{PollInterval: time.Hour})
	notifications := notification.NewManager()
	silent := track.Track{ID: "silent", Name: "No Stream", Artists: "Artist"}
	svc := search.NewService(&stubCatalog{tracks: []track.Track{testTrack("a"), testTrack("b"), testTrack("c"), silent}})

	ctx, cancel := context.WithCancel(context.Background())
	go notifications.Relay(ctx, controller.Events(), controller.Snapshot)

	mux := http.NewServeMux()
	path, handler := NewHandler(
		NewPlayerService(controller, store, svc, filter.NewChain(&filter.PlayableFilter{}), notifications),
		connect.WithInterceptors(NewTokenInterceptor(token)),
	)
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		cancel()
		controller.Close()
		notifications.Close()
	})

	return &fixture{
		client:        NewClient(server.Client(), server.URL, connect.WithInterceptors(NewTokenInterceptor(token))),
		transport:     ft,
		queue:         store,
		controller:    controller,
		notifications: notifications,
	}
}

func TestPlayerService_SearchAndGetSong(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	results, err := f.client.Search(ctx, "song")
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, 3*time.Minute, results[0].Duration)
	assert.Equal(t, "https://cdn.example.com/a.mp4", results[0].StreamURL("320kbps"))

	song, err := f.client.GetSong(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Song b", song.Name)

	_, err = f.client.GetSong(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestPlayerService_QueueOperations(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		ok, err := f.client.Enqueue(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := f.client.Enqueue(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.client.Enqueue(ctx, "missing")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = f.client.Enqueue(ctx, "silent")
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	ok, err = f.client.MoveUp(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.client.MoveDown(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	q, err := f.client.GetQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, ids(q))

	ok, err = f.client.RemoveFromQueue(ctx, "c")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.client.RemoveFromQueue(ctx, "c")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.client.ClearQueue(ctx))
	q, err = f.client.GetQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, q)
}

func TestPlayerService_Playback(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := f.client.Enqueue(ctx, id)
		require.NoError(t, err)
	}

	st, err := f.client.PlayTrack(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, st.Current)
	assert.Equal(t, "a", st.Current.ID)
	assert.True(t, st.Playing)
	assert.Equal(t, int64(180000), st.DurationMs)
	assert.Equal(t, int64(2000), st.PositionMs)
	assert.Len(t, st.Queue, 2)

	ok, err := f.client.Next(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.client.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.client.Previous(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{
		"https://cdn.example.com/a.mp4",
		"https://cdn.example.com/b.mp4",
		"https://cdn.example.com/a.mp4",
	}, f.transport.loaded())

	st, err = f.client.TogglePlayPause(ctx)
	require.NoError(t, err)
	assert.False(t, st.Playing)
	st, err = f.client.TogglePlayPause(ctx)
	require.NoError(t, err)
	assert.True(t, st.Playing)

	require.NoError(t, f.client.Seek(ctx, 30*time.Second))
	f.transport.mu.Lock()
	assert.Equal(t, 30*time.Second, f.transport.seeked)
	f.transport.mu.Unlock()

	err = f.client.Seek(ctx, -time.Second)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	require.NoError(t, f.client.Stop(ctx))
	st, err = f.client.GetState(ctx)
	require.NoError(t, err)
	assert.False(t, st.Playing)
	require.NotNil(t, st.Current)
	assert.Equal(t, "a", st.Current.ID)
}

func TestPlayerService_PlayTrackFromCatalog(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	st, err := f.client.PlayTrack(ctx, "c")
	require.NoError(t, err)
	require.NotNil(t, st.Current)
	assert.Equal(t, "c", st.Current.ID)
	assert.Empty(t, st.Queue)

	_, err = f.client.PlayTrack(ctx, "")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	_, err = f.client.PlayTrack(ctx, "missing")
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestPlayerService_Modes(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	st, err := f.client.SetShuffle(ctx, true)
	require.NoError(t, err)
	assert.True(t, st.Shuffle)

	st, err = f.client.SetRepeat(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, "one", st.Repeat)

	st, err = f.client.SetRepeat(ctx, "cycle")
	require.NoError(t, err)
	assert.Equal(t, "off", st.Repeat)

	st, err = f.client.SetRepeat(ctx, "cycle")
	require.NoError(t, err)
	assert.Equal(t, "all", st.Repeat)

	_, err = f.client.SetRepeat(ctx, "forever")
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestPlayerService_Subscribe(t *testing.T) {
	f := newFixture(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan Update, 16)
	done := make(chan error, 1)
	go func() {
		done <- f.client.Subscribe(ctx, func(u Update) { updates <- u })
	}()

	select {
	case u := <-updates:
		assert.Equal(t, "initial_state", u.Event)
		assert.Equal(t, "off", u.State.Repeat)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial state")
	}

	// Registered before the initial state went out, so no change is missed.
	assert.Equal(t, 1, f.notifications.SubscriberCount())

	_, err := f.client.Enqueue(context.Background(), "a")
	require.NoError(t, err)

	select {
	case u := <-updates:
		assert.Equal(t, "queue_changed", u.Event)
		require.Len(t, u.State.Queue, 1)
		assert.Equal(t, "a", u.State.Queue[0].ID)
	case <-time.After(5 * time.Second):
		t.Fatal("no queue update")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("subscribe did not return")
	}
}

func TestPlayerService_ControlToken(t *testing.T) {
	f := newFixture(t, "secret")
	ctx := context.Background()

	_, err := f.client.GetState(ctx)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"wrong token", "guess"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{}
			store := queue.NewStore(nil)
			controller := playback.NewController(ft, store, playback.Config{PollInterval: time.Hour})
			defer controller.Close()

			mux := http.NewServeMux()
			path, handler := NewHandler(
				NewPlayerService(controller, store, search.NewService(&stubCatalog{}), nil, notification.NewManager()),
				connect.WithInterceptors(NewTokenInterceptor("secret")),
			)
			mux.Handle(path, handler)
			srv := httptest.NewServer(mux)
			defer srv.Close()

			client := NewClient(srv.Client(), srv.URL, connect.WithInterceptors(NewTokenInterceptor(tt.token)))
			_, err := client.GetState(ctx)
			require.Error(t, err)
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

			err = client.Subscribe(ctx, func(Update) {})
			require.Error(t, err)
			assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		})
	}
}

func ids(tracks []track.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}
