package storage

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunebox/internal/domain/track"
)

// DefaultQueueKey is the key the queue blob is stored under.
const DefaultQueueKey = "MUSIC_QUEUE"

// KV is the key-value surface the repository needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// QueueRepository stores the play queue as a JSON array under a single key.
// Failures are logged and absorbed.
type QueueRepository struct {
	kv  KV
	key string
}

// NewQueueRepository creates a queue repository.
func NewQueueRepository(kv KV, key string) *QueueRepository {
	if key == "" {
		key = DefaultQueueKey
	}
	return &QueueRepository{kv: kv, key: key}
}

// SaveQueue writes the whole queue.
func (r *QueueRepository) SaveQueue(ctx context.Context, tracks []track.Track) {
	if tracks == nil {
		tracks = []track.Track{}
	}
	data, err := json.Marshal(tracks)
	if err != nil {
		zlog.Error().Err(errors.Mark(err, ErrPersistence)).Msg("storage: failed to encode queue")
		return
	}
	if err := r.kv.Set(ctx, r.key, string(data)); err != nil {
		zlog.Error().Err(err).Msgf("storage: failed to save queue: key=%s", r.key)
	}
}

// LoadQueue reads the queue. A missing or unreadable value yields an empty queue.
func (r *QueueRepository) LoadQueue(ctx context.Context) []track.Track {
	value, err := r.kv.Get(ctx, r.key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			zlog.Error().Err(err).Msgf("storage: failed to load queue: key=%s", r.key)
		}
		return []track.Track{}
	}

	var tracks []track.Track
	if err := json.Unmarshal([]byte(value), &tracks); err != nil {
		zlog.Warn().Err(errors.Mark(err, ErrPersistence)).Msgf("storage: stored queue is malformed, starting empty: key=%s", r.key)
		return []track.Track{}
	}
	if tracks == nil {
		return []track.Track{}
	}
	return tracks
}
