package search

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tunebox/internal/domain/catalog"
	"github.com/osa030/tunebox/internal/domain/track"
	"github.com/osa030/tunebox/internal/infra/config"
)

type stubProvider struct {
	name    string
	results []track.Track
	err     error
	byID    map[string]track.Track
}

func (p *stubProvider) SearchSongs(ctx context.Context, query string) ([]track.Track, error) {
	return p.results, p.err
}

func (p *stubProvider) GetSongByID(ctx context.Context, id string) (*track.Track, error) {
	if p.err != nil {
		return nil, p.err
	}
	t, ok := p.byID[id]
	if !ok {
		return nil, catalog.NotFound(id)
	}
	return &t, nil
}

func (p *stubProvider) Name() string {
	return p.name
}

func chain(providers ...*stubProvider) *ProviderChain {
	var pm []ProviderWithMetadata
	for _, p := range providers {
		pm = append(pm, ProviderWithMetadata{Provider: p, DisplayName: p.name})
	}
	return NewProviderChain(pm)
}

func TestProviderChain_SearchMergesAndDedups(t *testing.T) {
	first := &stubProvider{name: "saavn", results: []track.Track{{ID: "a"}, {ID: "b"}, {ID: "a"}}}
	second := &stubProvider{name: "spotify", results: []track.Track{{ID: "b"}, {ID: "c"}}}

	got, err := chain(first, second).SearchSongs(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, trackIDs(got))
}

func TestProviderChain_SearchPartialFailure(t *testing.T) {
	broken := &stubProvider{name: "broken", err: catalog.Network(errors.New("timeout"), "search")}
	ok := &stubProvider{name: "ok", results: []track.Track{{ID: "a"}}}

	got, err := chain(broken, ok).SearchSongs(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, trackIDs(got))

	_, err = chain(broken).SearchSongs(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrNetwork))

	_, err = chain().SearchSongs(context.Background(), "q")
	assert.Error(t, err)
}

func TestProviderChain_GetSongByID(t *testing.T) {
	first := &stubProvider{name: "saavn", byID: map[string]track.Track{"a": {ID: "a", Source: "saavn"}}}
	second := &stubProvider{name: "spotify", byID: map[string]track.Track{"a": {ID: "a", Source: "spotify"}, "b": {ID: "b"}}}
	c := chain(first, second)

	got, err := c.GetSongByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "saavn", got.Source)

	got, err = c.GetSongByID(context.Background(), "b")
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)

	_, err = c.GetSongByID(context.Background(), "zzz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrNotFound))
	assert.Equal(t, "provider_chain", c.Name())
}

func TestService_DegradesErrors(t *testing.T) {
	broken := &stubProvider{name: "broken", err: catalog.Malformed(errors.New("no results"), "search")}
	svc := NewService(chain(broken))

	got := svc.Search(context.Background(), "q")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Nil(t, svc.Song(context.Background(), "a"))

	ok := &stubProvider{name: "ok", results: []track.Track{{ID: "a"}, {ID: "a"}}, byID: map[string]track.Track{"a": {ID: "a"}}}
	svc = NewService(ok)
	assert.Equal(t, []string{"a"}, trackIDs(svc.Search(context.Background(), "q")))
	require.NotNil(t, svc.Song(context.Background(), "a"))
}

func TestDedup(t *testing.T) {
	assert.Equal(t, []track.Track{}, Dedup(nil))
	assert.Equal(t, []string{"x", "y"}, trackIDs(Dedup([]track.Track{{ID: "x"}, {ID: "y"}, {ID: "x"}})))
}

func TestNewProviderChainFromConfig(t *testing.T) {
	cfg := &config.Config{
		Catalog: config.CatalogConfig{
			Providers: []config.ProviderConfig{
				{Type: "saavn", DisplayName: "JioSaavn", Settings: map[string]any{"base_url": "https://saavn.example.com", "timeout_sec": 5}},
				{Type: "saavn", DisplayName: "Mirror"},
			},
		},
	}
	c, err := NewProviderChainFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Len(t, c.providers, 2)
	assert.Equal(t, "saavn", c.providers[0].Provider.Name())
	assert.Equal(t, "Mirror", c.providers[1].DisplayName)
}

func TestNewProviderChainFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		providers []config.ProviderConfig
	}{
		{"no providers", nil},
		{"unknown type", []config.ProviderConfig{{Type: "lastfm", DisplayName: "x"}}},
		{"bad saavn url", []config.ProviderConfig{{Type: "saavn", DisplayName: "x", Settings: map[string]any{"base_url": "not a url"}}}},
		{"bad saavn timeout", []config.ProviderConfig{{Type: "saavn", DisplayName: "x", Settings: map[string]any{"timeout_sec": 999}}}},
		{"spotify without credentials", []config.ProviderConfig{{Type: "spotify", DisplayName: "x"}}},
		{"bad spotify market", []config.ProviderConfig{{Type: "spotify", DisplayName: "x", Settings: map[string]any{"market": "JPN"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Catalog: config.CatalogConfig{Providers: tt.providers}}
			_, err := NewProviderChainFromConfig(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}

func trackIDs(tracks []track.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
