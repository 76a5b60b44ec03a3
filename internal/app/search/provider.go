// Package search provides catalog search across the configured catalog backends.
package search

import (
	"context"

	"github.com/osa030/tunebox/internal/domain/track"
)

// Provider is the interface for catalog backends.
type Provider interface {
	// SearchSongs returns tracks matching a free-text query.
	SearchSongs(ctx context.Context, query string) ([]track.Track, error)
	// GetSongByID returns the track with the given catalog ID.
	GetSongByID(ctx context.Context, id string) (*track.Track, error)
	// Name returns the provider name (used in config).
	Name() string
}

// Catalog is what the rest of the application needs from search.
type Catalog interface {
	SearchSongs(ctx context.Context, query string) ([]track.Track, error)
	GetSongByID(ctx context.Context, id string) (*track.Track, error)
}
