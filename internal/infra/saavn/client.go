// Package saavn provides a client for the JioSaavn song search API.
package saavn

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunebox/internal/domain/catalog"
	"github.com/osa030/tunebox/internal/domain/track"
)

// DefaultBaseURL is the public API mirror used when none is configured.
const DefaultBaseURL = "https://saavn.sumit.co"

// SourceName identifies tracks produced by this client.
const SourceName = "saavn"

// Client is a JioSaavn API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config represents JioSaavn client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// link is an image or download entry. Older API versions use "link" instead of "url".
type link struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
	Link    string `json:"link"`
}

func (l link) href() string {
	if l.URL != "" {
		return l.URL
	}
	return l.Link
}

// flexSeconds accepts a JSON number, a numeric string, or null.
type flexSeconds int64

func (f *flexSeconds) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable durations are treated as unknown.
		*f = 0
		return nil
	}
	*f = flexSeconds(v)
	return nil
}

// songPayload is a song record as returned by the API.
type songPayload struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Title          string      `json:"title"`
	Duration       flexSeconds `json:"duration"`
	PrimaryArtists string      `json:"primaryArtists"`
	Artists        *struct {
		Primary []struct {
			Name string `json:"name"`
		} `json:"primary"`
	} `json:"artists"`
	Album *struct {
		Name string `json:"name"`
	} `json:"album"`
	Image       []link `json:"image"`
	DownloadURL []link `json:"downloadUrl"`
}

// SearchResponse represents the response from /api/search/songs.
type SearchResponse struct {
	Data *struct {
		Results *[]songPayload `json:"results"`
	} `json:"data"`
}

// SongResponse represents the response from /api/songs/{id}.
type SongResponse struct {
	Data *[]songPayload `json:"data"`
}

// New creates a new JioSaavn client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, errors.Wrapf(err, "invalid base url %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name returns the catalog name.
func (c *Client) Name() string {
	return SourceName
}

// SearchSongs searches songs by free text.
// Reference: GET {base}/api/search/songs?query={q}
func (c *Client) SearchSongs(ctx context.Context, query string) ([]track.Track, error) {
	if strings.TrimSpace(query) == "" {
		return []track.Track{}, nil
	}

	params := url.Values{}
	params.Set("query", query)
	reqURL := c.baseURL + "/api/search/songs?" + params.Encode()

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var response SearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, catalog.Malformed(err, "failed to parse search response")
	}
	if response.Data == nil || response.Data.Results == nil {
		return nil, catalog.Malformed(errors.New("data.results is missing"), "unexpected search response")
	}

	results := *response.Data.Results
	tracks := make([]track.Track, 0, len(results))
	for _, s := range results {
		if s.ID == "" {
			continue
		}
		tracks = append(tracks, convertSong(s))
	}

	zlog.Debug().Msgf("saavn: search query=%q results=%d", query, len(tracks))
	return tracks, nil
}

// GetSongByID retrieves a single song.
// Reference: GET {base}/api/songs/{id}
func (c *Client) GetSongByID(ctx context.Context, id string) (*track.Track, error) {
	if id == "" {
		return nil, errors.New("song id is required")
	}

	reqURL := fmt.Sprintf("%s/api/songs/%s", c.baseURL, url.PathEscape(id))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var response SongResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, catalog.Malformed(err, "failed to parse song response")
	}
	if response.Data == nil {
		return nil, catalog.Malformed(errors.New("data is missing"), "unexpected song response")
	}
	if len(*response.Data) == 0 {
		return nil, catalog.NotFound(id)
	}

	t := convertSong((*response.Data)[0])
	return &t, nil
}

// get performs a GET request and returns the body.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, catalog.Network(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, catalog.Network(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, catalog.Network(errors.Newf("unexpected status %d", resp.StatusCode), "request failed")
	}

	return body, nil
}

// convertSong converts an API record to a domain Track.
// Artist names are normalized here so no caller has to handle both payload shapes.
func convertSong(s songPayload) track.Track {
	name := s.Name
	if name == "" {
		name = s.Title
	}

	artists := s.PrimaryArtists
	if artists == "" && s.Artists != nil {
		names := make([]string, len(s.Artists.Primary))
		for i, a := range s.Artists.Primary {
			names[i] = a.Name
		}
		artists = track.JoinArtists(names)
	}

	var album string
	if s.Album != nil {
		album = html.UnescapeString(s.Album.Name)
	}

	return track.Track{
		ID:       s.ID,
		Name:     html.UnescapeString(name),
		Artists:  html.UnescapeString(artists),
		Album:    album,
		Images:   convertLinks(s.Image),
		Streams:  convertLinks(s.DownloadURL),
		Duration: time.Duration(s.Duration) * time.Second,
		Source:   SourceName,
	}
}

func convertLinks(links []link) []track.Variant {
	variants := make([]track.Variant, 0, len(links))
	for _, l := range links {
		href := l.href()
		if href == "" {
			continue
		}
		variants = append(variants, track.Variant{Quality: l.Quality, URL: href})
	}
	return variants
}
