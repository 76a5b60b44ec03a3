// Package mpd plays streams through a Music Player Daemon.
package mpd

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fhs/gompd/v2/mpd"
	zlog "github.com/rs/zerolog/log"
)

// Client wraps the gompd client with reconnection logic.
type Client struct {
	mu       sync.Mutex
	client   *mpd.Client
	addr     string
	password string
}

// NewClient creates a new MPD client wrapper. It does not connect.
func NewClient(addr, password string) *Client {
	return &Client{
		addr:     addr,
		password: password,
	}
}

// Connect establishes the connection to MPD.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	zlog.Info().Msgf("mpd: connecting: addr=%s", c.addr)

	client, err := mpd.DialAuthenticated("tcp", c.addr, c.password)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to MPD at %s", c.addr)
	}

	c.client = client
	zlog.Info().Msg("mpd: connected")
	return nil
}

// withClient runs fn on a live connection, reconnecting once if the
// connection was lost.
func (c *Client) withClient(fn func(cl *mpd.Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		if err := c.connectLocked(); err != nil {
			return err
		}
	} else if err := c.client.Ping(); err != nil {
		zlog.Warn().Err(err).Msg("mpd: connection lost, reconnecting")
		_ = c.client.Close()
		c.client = nil
		if err := c.connectLocked(); err != nil {
			return err
		}
	}

	return fn(c.client)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// Replace clears the MPD queue and adds uri as its only entry.
// It returns the MPD song id of the new entry.
func (c *Client) Replace(uri string) (int, error) {
	var id int
	err := c.withClient(func(cl *mpd.Client) error {
		if err := cl.Clear(); err != nil {
			return errors.Wrap(err, "clear")
		}
		var err error
		id, err = cl.AddID(uri, -1)
		return errors.Wrap(err, "add")
	})
	return id, err
}

// PlayID starts playing the entry with the given song id.
func (c *Client) PlayID(id int) error {
	return c.withClient(func(cl *mpd.Client) error {
		return cl.PlayID(id)
	})
}

// Pause sets the pause state.
func (c *Client) Pause(pause bool) error {
	return c.withClient(func(cl *mpd.Client) error {
		return cl.Pause(pause)
	})
}

// Stop stops playback and clears the MPD queue.
func (c *Client) Stop() error {
	return c.withClient(func(cl *mpd.Client) error {
		if err := cl.Stop(); err != nil {
			return err
		}
		return cl.Clear()
	})
}

// SeekCur seeks within the current song.
func (c *Client) SeekCur(position time.Duration) error {
	return c.withClient(func(cl *mpd.Client) error {
		return cl.SeekCur(position, false)
	})
}

// Status returns the current MPD status.
func (c *Client) Status() (mpd.Attrs, error) {
	var attrs mpd.Attrs
	err := c.withClient(func(cl *mpd.Client) error {
		var err error
		attrs, err = cl.Status()
		return err
	})
	return attrs, err
}
