package store

import (
	"context"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
)

// RedisTracker stores indexed videos in one hash: video_id → RFC3339 time.
// The key must sit outside the search index prefix.
type RedisTracker struct {
	rdb *redis.Client
	key string
}

var _ transcripts.Tracker = (*RedisTracker)(nil)

func NewRedisTracker(rdb *redis.Client, key string) *RedisTracker {
	return &RedisTracker{rdb: rdb, key: key}
}

func (t *RedisTracker) IsIndexed(ctx context.Context, videoID string) (bool, error) {
	ok, err := t.rdb.HExists(ctx, t.key, videoID).Result()
	if err != nil {
		return false, engine.StoreError("tracker lookup", err)
	}
	return ok, nil
}

// MarkIndexed uses HSETNX so the first indexing time is kept.
func (t *RedisTracker) MarkIndexed(ctx context.Context, videoID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if err := t.rdb.HSetNX(ctx, t.key, videoID, now).Err(); err != nil {
		return engine.StoreError("tracker mark", err)
	}
	return nil
}

// ListIndexed returns every indexed video, oldest first.
func (t *RedisTracker) ListIndexed(ctx context.Context) ([]engine.IndexedVideo, error) {
	all, err := t.rdb.HGetAll(ctx, t.key).Result()
	if err != nil {
		return nil, engine.StoreError("tracker list", err)
	}
	videos := make([]engine.IndexedVideo, 0, len(all))
	for id, ts := range all {
		at, _ := time.Parse(time.RFC3339, ts)
		videos = append(videos, engine.IndexedVideo{VideoID: id, IndexedAt: at})
	}
	sortIndexed(videos)
	return videos, nil
}

func sortIndexed(videos []engine.IndexedVideo) {
	sort.Slice(videos, func(i, j int) bool {
		if !videos[i].IndexedAt.Equal(videos[j].IndexedAt) {
			return videos[i].IndexedAt.Before(videos[j].IndexedAt)
		}
		return videos[i].VideoID < videos[j].VideoID
	})
}
