package search

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunebox/internal/domain/track"
)

// Service is the UI-facing side of the catalog.
// Catalog failures never cross it: they are logged and become empty results.
type Service struct {
	catalog Catalog
}

// NewService creates a new search service.
func NewService(catalog Catalog) *Service {
	return &Service{catalog: catalog}
}

// Search returns de-duplicated results for query, or an empty list on any failure.
func (s *Service) Search(ctx context.Context, query string) []track.Track {
	results, err := s.catalog.SearchSongs(ctx, query)
	if err != nil {
		zlog.Warn().Err(err).Msgf("search failed: query=%q", query)
		return []track.Track{}
	}
	return Dedup(results)
}

// Song returns the track with the given id, or nil on any failure.
func (s *Service) Song(ctx context.Context, id string) *track.Track {
	t, err := s.catalog.GetSongByID(ctx, id)
	if err != nil {
		zlog.Warn().Err(err).Msgf("song lookup failed: id=%s", id)
		return nil
	}
	return t
}
