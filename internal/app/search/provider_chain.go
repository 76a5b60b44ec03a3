package search

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/tunebox/internal/domain/catalog"
	"github.com/osa030/tunebox/internal/domain/track"
)

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// ProviderChain queries multiple providers in order.
type ProviderChain struct {
	providers []ProviderWithMetadata
}

// NewProviderChain creates a new provider chain.
func NewProviderChain(providers []ProviderWithMetadata) *ProviderChain {
	return &ProviderChain{
		providers: providers,
	}
}

// Providers returns the configured providers in query order.
func (c *ProviderChain) Providers() []ProviderWithMetadata {
	return append([]ProviderWithMetadata(nil), c.providers...)
}

// SearchSongs collects results from all providers, in provider order.
// It fails only when every provider fails; the last error is returned.
func (c *ProviderChain) SearchSongs(ctx context.Context, query string) ([]track.Track, error) {
	var all []track.Track
	var lastErr error
	succeeded := 0

	for i, pm := range c.providers {
		zlog.Debug().Msgf("searching provider: index=%d total=%d name=%s provider_type=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name())

		results, err := pm.Provider.SearchSongs(ctx, query)
		if err != nil {
			zlog.Warn().Msgf("provider search failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			lastErr = err
			continue
		}
		succeeded++
		all = append(all, results...)
	}

	if succeeded == 0 {
		if lastErr == nil {
			lastErr = errors.New("no catalog providers configured")
		}
		return nil, lastErr
	}

	return Dedup(all), nil
}

// GetSongByID returns the first provider hit.
func (c *ProviderChain) GetSongByID(ctx context.Context, id string) (*track.Track, error) {
	lastErr := catalog.NotFound(id)

	for _, pm := range c.providers {
		t, err := pm.Provider.GetSongByID(ctx, id)
		if err != nil {
			if !errors.Is(err, catalog.ErrNotFound) {
				zlog.Warn().Msgf("provider lookup failed: provider=%s id=%s error=%v", pm.DisplayName, id, err)
			}
			lastErr = err
			continue
		}
		return t, nil
	}

	return nil, lastErr
}

// Name returns the chain name.
func (c *ProviderChain) Name() string {
	return "provider_chain"
}

// Dedup drops tracks whose ID was already seen, keeping first occurrences in order.
func Dedup(tracks []track.Track) []track.Track {
	if tracks == nil {
		return []track.Track{}
	}
	return lo.UniqBy(tracks, func(t track.Track) string {
		return t.ID
	})
}
