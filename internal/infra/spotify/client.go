// Package spotify provides a catalog client for the Spotify API.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/tunebox/internal/domain/catalog"
	"github.com/osa030/tunebox/internal/domain/track"
)

// SourceName identifies tracks produced by this client.
const SourceName = "spotify"

// PreviewQuality is the quality label of the only stream a Spotify track exposes.
const PreviewQuality = "preview"

// searchLimit is the number of tracks requested per search.
const searchLimit = 20

// api is the subset of the Spotify SDK used by Client.
type api interface {
	Search(ctx context.Context, query string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error)
	GetTrack(ctx context.Context, id spotify.ID, opts ...spotify.RequestOption) (*spotify.FullTrack, error)
}

// Client is a Spotify API client.
type Client struct {
	client api
	market string
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(spotifyauth.ScopeUserReadPrivate),
	)

	// Create token from refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// Get HTTP client with auto-refresh capability
	httpClient := auth.Client(ctx, token)

	return newWithAPI(spotify.New(httpClient), cfg.Market), nil
}

func newWithAPI(client api, market string) *Client {
	if market == "" {
		market = "JP"
	}
	return &Client{
		client: client,
		market: market,
	}
}

// Name returns the catalog name.
func (c *Client) Name() string {
	return SourceName
}

// SearchSongs searches tracks by free text.
func (c *Client) SearchSongs(ctx context.Context, query string) ([]track.Track, error) {
	if strings.TrimSpace(query) == "" {
		return []track.Track{}, nil
	}

	result, err := c.client.Search(ctx, query, spotify.SearchTypeTrack,
		spotify.Limit(searchLimit),
		spotify.Market(c.market),
	)
	if err != nil {
		return nil, catalog.Network(err, "failed to search")
	}
	if result.Tracks == nil {
		return nil, catalog.Malformed(errors.New("tracks page is missing"), "unexpected search response")
	}

	tracks := make([]track.Track, 0, len(result.Tracks.Tracks))
	for i := range result.Tracks.Tracks {
		tracks = append(tracks, convertTrack(&result.Tracks.Tracks[i]))
	}

	return tracks, nil
}

// GetSongByID retrieves track information by ID, URL, or URI.
func (c *Client) GetSongByID(ctx context.Context, id string) (*track.Track, error) {
	trackID := extractTrackID(id)
	if trackID == "" {
		return nil, errors.New("track id is required")
	}

	result, err := c.client.GetTrack(ctx, spotify.ID(trackID), spotify.Market(c.market))
	if err != nil {
		var spErr spotify.Error
		if errors.As(err, &spErr) && spErr.Status == 404 {
			return nil, catalog.NotFound(trackID)
		}
		return nil, catalog.Network(err, "failed to get track")
	}

	t := convertTrack(result)
	return &t, nil
}

// convertTrack converts a Spotify FullTrack to a domain Track.
func convertTrack(t *spotify.FullTrack) track.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	// Spotify lists album images widest first.
	images := make([]track.Variant, 0, len(t.Album.Images))
	for i := len(t.Album.Images) - 1; i >= 0; i-- {
		img := t.Album.Images[i]
		images = append(images, track.Variant{
			Quality: fmt.Sprintf("%dx%d", img.Width, img.Height),
			URL:     img.URL,
		})
	}

	var streams []track.Variant
	if t.PreviewURL != "" {
		streams = append(streams, track.Variant{Quality: PreviewQuality, URL: t.PreviewURL})
	}

	return track.Track{
		ID:       string(t.ID),
		Name:     t.Name,
		Artists:  track.JoinArtists(artists),
		Album:    t.Album.Name,
		Images:   images,
		Streams:  streams,
		Duration: time.Duration(t.Duration) * time.Millisecond,
		Source:   SourceName,
	}
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// Handle URL format: https://open.spotify.com/track/TRACK_ID or https://open.spotify.com/intl-XX/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "?")[0]
			return strings.TrimRight(id, "/")
		}
	}

	// Assume it's already a track ID
	return input
}
