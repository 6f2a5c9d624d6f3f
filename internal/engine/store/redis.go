package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
)

// ConnectRedis opens a client and waits for the server to answer PING.
// RESP2 is forced: search commands go through Do and their replies are
// parsed from the RESP2 array layout.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.Protocol = 2
	rdb := redis.NewClient(opts)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	ping := func() (string, error) {
		return rdb.Ping(ctx).Result()
	}
	if _, err := backoff.Retry(ctx, ping, backoff.WithBackOff(bo), backoff.WithMaxTries(5), backoff.WithMaxElapsedTime(30*time.Second)); err != nil {
		rdb.Close()
		return nil, engine.StoreError("redis ping", err)
	}
	slog.Info("redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	return rdb, nil
}

// RedisStore keeps one hash per chunk under prefix+chunk_id, indexed by a
// RediSearch index over those hashes.
type RedisStore struct {
	rdb    *redis.Client
	index  string
	prefix string
}

var _ transcripts.ChunkStore = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client, index, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, index: index, prefix: prefix}
}

func (s *RedisStore) key(chunkID string) string { return s.prefix + chunkID }

// EnsureIndex creates the search index if it is missing. An existing index
// with the same definition is left alone; any other definition fails with
// engine.ErrSchemaConflict.
func (s *RedisStore) EnsureIndex(ctx context.Context) error {
	info, err := s.info(ctx)
	switch {
	case err == nil:
		return s.checkSchema(info)
	case !isUnknownIndex(err):
		return engine.StoreError("ft.info", err)
	}

	args := createIndexArgs(s.index, s.prefix)
	if err := s.rdb.Do(ctx, args...).Err(); err != nil {
		// Another process may have created it between INFO and CREATE.
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			info, ierr := s.info(ctx)
			if ierr != nil {
				return engine.StoreError("ft.info", ierr)
			}
			return s.checkSchema(info)
		}
		return engine.StoreError("ft.create", err)
	}
	slog.Info("search index created", slog.String("index", s.index), slog.String("prefix", s.prefix))
	return nil
}

func (s *RedisStore) info(ctx context.Context) (indexInfo, error) {
	raw, err := s.rdb.Do(ctx, "FT.INFO", s.index).Result()
	if err != nil {
		return indexInfo{}, err
	}
	return parseIndexInfo(raw)
}

func (s *RedisStore) checkSchema(info indexInfo) error {
	if err := info.matches(s.prefix); err != nil {
		return fmt.Errorf("index %q: %w: %w", s.index, engine.ErrSchemaConflict, err)
	}
	slog.Debug("search index present", slog.String("index", s.index), slog.Int64("docs", info.numDocs))
	return nil
}

func isUnknownIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index") || strings.Contains(msg, "no such index")
}

// UpsertChunks writes all chunks in one MULTI/EXEC so a video's chunk set
// becomes visible at once.
func (s *RedisStore) UpsertChunks(ctx context.Context, chunks []engine.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, c := range chunks {
			p.HSet(ctx, s.key(c.ChunkID), chunkFields(c))
		}
		return nil
	})
	if err != nil {
		return engine.StoreError("upsert chunks", err)
	}
	return nil
}

func chunkFields(c engine.Chunk) map[string]any {
	return map[string]any{
		fieldChunkID:    c.ChunkID,
		fieldVideoID:    c.VideoID,
		fieldVideoTitle: c.VideoTitle,
		fieldSeq:        c.Seq,
		fieldSnippet:    c.Snippet,
		fieldStartTime:  strconv.FormatFloat(c.StartTime, 'f', -1, 64),
		fieldTimecode:   c.Timecode,
	}
}

// PruneChunks deletes chunk keys from seq keep upward. Sequence numbers of
// a video are contiguous, so the first missing key ends the scan.
func (s *RedisStore) PruneChunks(ctx context.Context, videoID string, keep int) error {
	for seq := max(keep, 0); ; seq++ {
		n, err := s.rdb.Del(ctx, s.key(transcripts.ChunkID(videoID, seq))).Result()
		if err != nil {
			return engine.StoreError("prune chunks", err)
		}
		if n == 0 {
			if seq > keep {
				slog.Debug("pruned stale chunks", slog.String("video_id", videoID), slog.Int("count", seq-keep))
			}
			return nil
		}
	}
}

func (s *RedisStore) Search(ctx context.Context, rawQuery string, limit, offset int) ([]engine.SearchResult, error) {
	req, err := BuildQuery(s.index, rawQuery, limit, offset)
	if err != nil {
		return nil, err
	}
	raw, err := s.rdb.Do(ctx, req.Args()...).Result()
	if err != nil {
		return nil, engine.StoreError("ft.search", err)
	}
	results, err := ParseResults(raw)
	if err != nil {
		return nil, engine.StoreError("ft.search", err)
	}
	return results, nil
}

func (s *RedisStore) Stats(ctx context.Context) (engine.StoreStats, error) {
	info, err := s.info(ctx)
	if err != nil {
		return engine.StoreStats{}, engine.StoreError("ft.info", err)
	}
	return engine.StoreStats{Backend: engine.BackendRedis, Index: s.index, Documents: info.numDocs}, nil
}
