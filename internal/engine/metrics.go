package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	IndexRuns             atomic.Int64
	VideosIndexed         atomic.Int64
	VideosSkipped         atomic.Int64
	VideosFailed          atomic.Int64
	TranscriptFetches     atomic.Int64
	TranscriptFetchErrors atomic.Int64
	ChunksUpserted        atomic.Int64
	SearchRequests        atomic.Int64
	SearchErrors          atomic.Int64
	YouTubeAPIRequests    atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"index_runs", "videos_indexed", "videos_skipped", "videos_failed",
	"transcript_fetches", "transcript_fetch_errors", "chunks_upserted",
	"search_requests", "search_errors",
	"youtube_api_requests",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"index_runs":              metrics.IndexRuns.Load(),
		"videos_indexed":          metrics.VideosIndexed.Load(),
		"videos_skipped":          metrics.VideosSkipped.Load(),
		"videos_failed":           metrics.VideosFailed.Load(),
		"transcript_fetches":      metrics.TranscriptFetches.Load(),
		"transcript_fetch_errors": metrics.TranscriptFetchErrors.Load(),
		"chunks_upserted":         metrics.ChunksUpserted.Load(),
		"search_requests":         metrics.SearchRequests.Load(),
		"search_errors":           metrics.SearchErrors.Load(),
		"youtube_api_requests":    metrics.YouTubeAPIRequests.Load(),
		"cache_hits":              hits,
		"cache_misses":            misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the transcripts and sources sub-packages.
func IncrIndexRuns()             { metrics.IndexRuns.Add(1) }
func IncrVideosIndexed()         { metrics.VideosIndexed.Add(1) }
func IncrVideosSkipped()         { metrics.VideosSkipped.Add(1) }
func IncrVideosFailed()          { metrics.VideosFailed.Add(1) }
func IncrTranscriptFetches()     { metrics.TranscriptFetches.Add(1) }
func IncrTranscriptFetchErrors() { metrics.TranscriptFetchErrors.Add(1) }
func AddChunksUpserted(n int)    { metrics.ChunksUpserted.Add(int64(n)) }
func IncrSearchRequests()        { metrics.SearchRequests.Add(1) }
func IncrSearchErrors()          { metrics.SearchErrors.Add(1) }
func IncrYouTubeAPIRequests()    { metrics.YouTubeAPIRequests.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
