package playback

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/tunebox/internal/app/transport"
	"github.com/osa030/tunebox/internal/domain/track"
)

// Transport is the audio transport driven by the controller.
type Transport interface {
	Load(ctx context.Context, url string) bool
	Pause(ctx context.Context)
	Resume(ctx context.Context)
	Seek(ctx context.Context, position time.Duration)
	Stop()
	Status(ctx context.Context) *transport.Status
}

// Queue is the play queue the controller navigates.
type Queue interface {
	Tracks() []track.Track
	OnChange(fn func())
}

// Config holds controller configuration.
type Config struct {
	PollInterval     time.Duration // How often transport status is polled for end of track
	EndTolerance     time.Duration // How close to the end a stopped track counts as finished
	PreferredQuality string        // Stream quality label to prefer
	Rand             *rand.Rand    // Source for shuffle picks (nil uses the global source)
}

// Controller is the playback coordinator. It owns the current track,
// the playing flag and the shuffle/repeat modes.
type Controller struct {
	mu sync.Mutex

	transport Transport
	queue     Queue
	config    Config

	current *track.Track
	playing bool
	shuffle bool
	repeat  RepeatMode

	// Poll
	pollCancel func()
	pollGen    uint64

	// Events
	eventCh chan Event
	closed  bool

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller and subscribes it to queue changes.
func NewController(t Transport, q Queue, config Config) *Controller {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.EndTolerance < 0 {
		config.EndTolerance = 0
	}
	if config.PreferredQuality == "" {
		config.PreferredQuality = track.DefaultQuality
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		transport: t,
		queue:     q,
		config:    config,
		repeat:    RepeatOff,
		eventCh:   make(chan Event, 32),
		ctx:       ctx,
		cancel:    cancel,
	}
	q.OnChange(c.onQueueChanged)
	return c
}

// Events returns the event channel. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Select makes t the current track and starts loading it.
// It reports whether the transport accepted the load.
func (c *Controller) Select(ctx context.Context, t track.Track) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.current = &t
	c.playing = true
	c.restartPollLocked()
	c.sendEventLocked(Event{
		Type:    EventTrackChanged,
		Track:   c.current,
		Playing: c.playing,
	})
	url := t.StreamURL(c.config.PreferredQuality)
	c.mu.Unlock()

	zlog.Info().Msgf("playback: selected: id=%s name=%s", t.ID, t.Name)
	return c.transport.Load(ctx, url)
}

// PlayNext advances to the next track. It reports whether a track was selected.
func (c *Controller) PlayNext(ctx context.Context) bool {
	c.mu.Lock()
	next := c.nextLocked()
	c.mu.Unlock()

	if next == nil {
		return false
	}
	c.Select(ctx, *next)
	return true
}

// PlayPrevious selects the predecessor of the current track in queue order.
// Shuffle and repeat do not apply.
func (c *Controller) PlayPrevious(ctx context.Context) bool {
	c.mu.Lock()
	prev := c.previousLocked()
	c.mu.Unlock()

	if prev == nil {
		return false
	}
	c.Select(ctx, *prev)
	return true
}

// TogglePlayPause pauses when playing and resumes otherwise.
// A stopped or finished transport is reloaded with the current track.
func (c *Controller) TogglePlayPause(ctx context.Context) {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}

	if c.playing {
		c.playing = false
		c.sendEventLocked(Event{
			Type:    EventStateChanged,
			Track:   c.current,
			Playing: false,
		})
		c.mu.Unlock()
		c.transport.Pause(ctx)
		return
	}

	current := *c.current
	c.mu.Unlock()

	// A stopped or played-out transport has nothing to resume.
	if st := c.transport.Status(ctx); st == nil || (!st.Playing && st.NearEnd(c.config.EndTolerance)) {
		c.Select(ctx, current)
		return
	}

	c.mu.Lock()
	c.playing = true
	c.restartPollLocked()
	c.sendEventLocked(Event{
		Type:    EventStateChanged,
		Track:   c.current,
		Playing: true,
	})
	c.mu.Unlock()
	c.transport.Resume(ctx)
}

// Stop releases the transport. The current track is kept.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.playing = false
	c.stopPollLocked()
	c.sendEventLocked(Event{
		Type:    EventStateChanged,
		Track:   c.current,
		Playing: false,
	})
	c.mu.Unlock()

	c.transport.Stop()
}

// Seek moves the playback position of the current track.
func (c *Controller) Seek(ctx context.Context, position time.Duration) {
	c.transport.Seek(ctx, position)
}

// SetShuffle sets the shuffle flag.
func (c *Controller) SetShuffle(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shuffle == on {
		return
	}
	c.shuffle = on
	c.modeChangedLocked()
}

// SetRepeat sets the repeat mode.
func (c *Controller) SetRepeat(mode RepeatMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.repeat == mode {
		return
	}
	c.repeat = mode
	c.modeChangedLocked()
}

// CycleRepeat advances the repeat mode (off, all, one) and returns the new mode.
func (c *Controller) CycleRepeat() RepeatMode {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.repeat = c.repeat.Next()
	c.modeChangedLocked()
	return c.repeat
}

// Current returns the current track.
func (c *Controller) Current() (*track.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil, false
	}
	t := *c.current
	return &t, true
}

// Snapshot returns the controller state together with transport progress.
func (c *Controller) Snapshot(ctx context.Context) Snapshot {
	st := c.transport.Status(ctx)

	c.mu.Lock()
	snap := Snapshot{
		Playing: c.playing && c.current != nil,
		Shuffle: c.shuffle,
		Repeat:  c.repeat,
	}
	if c.current != nil {
		t := *c.current
		snap.Current = &t
	}
	c.mu.Unlock()

	if st != nil {
		snap.Position = st.Position
		snap.Duration = st.Duration
	}
	snap.Queue = c.queue.Tracks()
	return snap
}

// Close stops polling, releases the transport and closes the event channel.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopPollLocked()
	c.cancel()
	close(c.eventCh)
	c.mu.Unlock()

	c.transport.Stop()
}

// nextLocked decides the track playNext selects, or nil.
// Must be called with lock held.
func (c *Controller) nextLocked() *track.Track {
	if c.current == nil {
		return nil
	}
	tracks := c.queue.Tracks()
	idx := indexOf(tracks, c.current.ID)
	if idx < 0 {
		return nil
	}

	if c.repeat == RepeatOne {
		t := *c.current
		return &t
	}

	if c.shuffle {
		currentID := c.current.ID
		remaining := lo.Filter(tracks, func(t track.Track, _ int) bool {
			return t.ID != currentID
		})
		if len(remaining) == 0 {
			return nil
		}
		t := remaining[c.intn(len(remaining))]
		return &t
	}

	if idx+1 < len(tracks) {
		return &tracks[idx+1]
	}
	if c.repeat == RepeatAll {
		return &tracks[0]
	}
	return nil
}

// previousLocked decides the track playPrevious selects, or nil.
// Must be called with lock held.
func (c *Controller) previousLocked() *track.Track {
	if c.current == nil {
		return nil
	}
	tracks := c.queue.Tracks()
	idx := indexOf(tracks, c.current.ID)
	if idx <= 0 {
		return nil
	}
	return &tracks[idx-1]
}

func (c *Controller) intn(n int) int {
	if c.config.Rand != nil {
		return c.config.Rand.IntN(n)
	}
	return rand.IntN(n)
}

func (c *Controller) onQueueChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.current != nil {
		c.restartPollLocked()
	}
	c.sendEventLocked(Event{
		Type:    EventQueueChanged,
		Track:   c.current,
		Playing: c.playing,
	})
}

// modeChangedLocked restarts the poll and reports the new modes.
// Must be called with lock held.
func (c *Controller) modeChangedLocked() {
	if c.closed {
		return
	}
	zlog.Debug().Msgf("playback: mode changed: shuffle=%v repeat=%s", c.shuffle, c.repeat)
	if c.current != nil {
		c.restartPollLocked()
	}
	c.sendEventLocked(Event{
		Type:    EventModeChanged,
		Track:   c.current,
		Playing: c.playing,
	})
}

// restartPollLocked tears down the running poll and starts a new generation.
// Must be called with lock held.
func (c *Controller) restartPollLocked() {
	c.stopPollLocked()
	if c.closed {
		return
	}

	c.pollGen++
	gen := c.pollGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.pollCancel = cancel

	go c.pollLoop(ctx, gen)
}

// stopPollLocked cancels the running poll, if any.
// Must be called with lock held.
func (c *Controller) stopPollLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.pollGen++
}

func (c *Controller) pollLoop(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkTrackEnd(ctx, gen)
		}
	}
}

// checkTrackEnd advances when the loaded track has played out.
func (c *Controller) checkTrackEnd(ctx context.Context, gen uint64) {
	st := c.transport.Status(ctx)
	if st == nil || st.Playing || !st.NearEnd(c.config.EndTolerance) {
		return
	}

	c.mu.Lock()
	if gen != c.pollGen || c.closed || c.current == nil || !c.playing {
		c.mu.Unlock()
		return
	}

	zlog.Debug().Msgf("playback: track ended: id=%s position=%v duration=%v", c.current.ID, st.Position, st.Duration)

	next := c.nextLocked()
	if next == nil {
		c.playing = false
		c.stopPollLocked()
		c.sendEventLocked(Event{
			Type:    EventQueueEnded,
			Track:   c.current,
			Playing: false,
		})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	// The poll context dies with this generation, so load under the controller's.
	c.Select(c.ctx, *next)
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	if e.Track != nil {
		t := *e.Track
		e.Track = &t
	}
	select {
	case c.eventCh <- e:
	default:
		// Channel full, drop event
	}
}

func indexOf(tracks []track.Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
