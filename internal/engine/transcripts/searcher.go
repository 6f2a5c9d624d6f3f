package transcripts

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

const slowSearch = 2 * time.Second

// Searcher is the query path in front of a ChunkStore: it normalizes
// limit/offset, consults the result cache and surfaces store errors as-is.
type Searcher struct {
	store        ChunkStore
	defaultLimit int
	maxLimit     int
}

// NewSearcher returns a Searcher. Non-positive limits fall back to 10/100.
func NewSearcher(store ChunkStore, defaultLimit, maxLimit int) *Searcher {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(10, maxLimit)
	}
	return &Searcher{store: store, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Limits returns the effective limit and offset for the given request values.
func (s *Searcher) Limits(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit, max(offset, 0)
}

// Search runs rawQuery against the store. The returned slice is never nil
// on success; an empty slice means no matches.
func (s *Searcher) Search(ctx context.Context, rawQuery string, limit, offset int) ([]engine.SearchResult, error) {
	engine.IncrSearchRequests()
	limit, offset = s.Limits(limit, offset)

	key := engine.CacheKey("search", strings.ToLower(strings.TrimSpace(rawQuery)), strconv.Itoa(limit), strconv.Itoa(offset))
	if cached, ok := engine.CacheLoadJSON[[]engine.SearchResult](ctx, key); ok && cached != nil {
		return cached, nil
	}

	var results []engine.SearchResult
	err := engine.TrackOperation(ctx, "search", slowSearch, func(ctx context.Context) error {
		var err error
		results, err = s.store.Search(ctx, rawQuery, limit, offset)
		return err
	})
	if err != nil {
		engine.IncrSearchErrors()
		if !errors.Is(err, engine.ErrInvalidQuery) {
			slog.Error("search failed", slog.String("query", engine.TruncateRunes(rawQuery, 100, "…")), slog.Any("error", err))
		}
		return nil, err
	}
	if results == nil {
		results = []engine.SearchResult{}
	}
	engine.CacheStoreJSON(ctx, key, results)
	return results, nil
}

// Stats proxies the store's document statistics.
func (s *Searcher) Stats(ctx context.Context) (engine.StoreStats, error) {
	return s.store.Stats(ctx)
}
