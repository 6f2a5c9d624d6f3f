package transcripts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// VideoState is a step of the per-video indexing state machine:
//
//	pending → fetching → chunking → persisting → done
//	pending → skipped                  (already indexed, or in flight elsewhere)
//	fetching|chunking|persisting → failed
type VideoState string

const (
	StatePending    VideoState = "pending"
	StateFetching   VideoState = "fetching"
	StateChunking   VideoState = "chunking"
	StatePersisting VideoState = "persisting"
	StateDone       VideoState = "done"
	StateSkipped    VideoState = "skipped"
	StateFailed     VideoState = "failed"
)

var errNoChunks = errors.New("transcript has no text")

// IndexerConfig configures an Indexer.
type IndexerConfig struct {
	Chunk        ChunkOptions
	Retry        engine.RetryConfig
	FetchTimeout time.Duration // per attempt
	Workers      int
	Playlists    []string
	Channels     []string
	Videos       []string
}

// VideoResult is the terminal outcome for one video.
type VideoResult struct {
	VideoID string     `json:"video_id"`
	State   VideoState `json:"state"`
	Chunks  int        `json:"chunks"`
	Err     error      `json:"-"`
}

// Indexer runs the fetch → chunk → persist → mark pipeline.
type Indexer struct {
	source   Source
	expander Expander
	store    ChunkStore
	tracker  Tracker
	cfg      IndexerConfig

	inflight sync.Map // videoID → struct{}
}

// NewIndexer wires an Indexer. expander may be nil when no playlists or
// channels are configured.
func NewIndexer(source Source, expander Expander, store ChunkStore, tracker Tracker, cfg IndexerConfig) *Indexer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Indexer{source: source, expander: expander, store: store, tracker: tracker, cfg: cfg}
}

// IndexAll expands the configured collections and indexes every video not
// yet marked indexed (every video when force is set). Per-video failures
// are collected in the summary; only context cancellation returns an error.
func (ix *Indexer) IndexAll(ctx context.Context, force bool) (*engine.IndexRunSummary, error) {
	engine.IncrIndexRuns()
	summary := &engine.IndexRunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Failures:  []engine.VideoFailure{},
	}
	log := slog.With(slog.String("run_id", summary.RunID))
	log.Info("index run started", slog.Bool("force", force))

	ids, failures := ix.collectVideoIDs(ctx)
	summary.Failures = append(summary.Failures, failures...)

	results := make([]VideoResult, len(ids))
	var g errgroup.Group
	g.SetLimit(ix.cfg.Workers)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = ix.IndexVideo(ctx, id, force)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		tally(summary, r)
	}
	summary.Duration = time.Since(summary.StartedAt).Round(time.Millisecond).String()

	log.Info("index run complete",
		slog.Int("videos", len(ids)),
		slog.Int("indexed", summary.VideosIndexed),
		slog.Int("skipped", summary.VideosSkipped),
		slog.Int("failed", len(summary.Failures)),
		slog.String("duration", summary.Duration),
	)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func tally(summary *engine.IndexRunSummary, r VideoResult) {
	switch r.State {
	case StateDone:
		summary.VideosIndexed++
	case StateSkipped:
		summary.VideosSkipped++
	default:
		reason := string(r.State)
		if r.Err != nil {
			reason = r.Err.Error()
		}
		summary.Failures = append(summary.Failures, engine.VideoFailure{VideoID: r.VideoID, Reason: reason})
	}
}

// collectVideoIDs expands playlists and channels and appends the explicit
// videos, deduplicated in first-seen order. Expansion failures are reported
// under "playlist:<id>" / "channel:<id>".
func (ix *Indexer) collectVideoIDs(ctx context.Context) ([]string, []engine.VideoFailure) {
	var (
		ids      []string
		failures []engine.VideoFailure
	)
	expand := func(kind, id string, fn func(context.Context, string) ([]string, error)) {
		if ix.expander == nil {
			failures = append(failures, engine.VideoFailure{VideoID: kind + ":" + id, Reason: "no collection expander configured"})
			return
		}
		videos, err := engine.RetryDo(ctx, ix.cfg.Retry, func() ([]string, error) {
			return fn(ctx, id)
		})
		if err != nil {
			slog.Warn("collection expansion failed", slog.String("kind", kind), slog.String("id", id), slog.Any("error", err))
			failures = append(failures, engine.VideoFailure{VideoID: kind + ":" + id, Reason: err.Error()})
			return
		}
		slog.Info("collection expanded", slog.String("kind", kind), slog.String("id", id), slog.Int("videos", len(videos)))
		ids = append(ids, videos...)
	}

	for _, id := range ix.cfg.Playlists {
		expand("playlist", id, ix.expanderFunc(true))
	}
	for _, id := range ix.cfg.Channels {
		expand("channel", id, ix.expanderFunc(false))
	}
	ids = append(ids, ix.cfg.Videos...)

	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, failures
}

func (ix *Indexer) expanderFunc(playlist bool) func(context.Context, string) ([]string, error) {
	if ix.expander == nil {
		return nil
	}
	if playlist {
		return ix.expander.ExpandPlaylist
	}
	return ix.expander.ExpandChannel
}

// IndexVideo drives one video through the state machine. The tracker is
// only marked after every chunk is persisted, so a failure at any earlier
// step leaves the video eligible for the next run.
func (ix *Indexer) IndexVideo(ctx context.Context, videoID string, force bool) VideoResult {
	log := slog.With(slog.String("video_id", videoID))

	if _, busy := ix.inflight.LoadOrStore(videoID, struct{}{}); busy {
		log.Info("video already being indexed, skipping")
		engine.IncrVideosSkipped()
		return VideoResult{VideoID: videoID, State: StateSkipped}
	}
	defer ix.inflight.Delete(videoID)

	if !force {
		done, err := ix.tracker.IsIndexed(ctx, videoID)
		if err != nil {
			return ix.fail(log, videoID, StatePending, fmt.Errorf("tracker: %w", err))
		}
		if done {
			log.Debug("already indexed")
			engine.IncrVideosSkipped()
			return VideoResult{VideoID: videoID, State: StateSkipped}
		}
	}

	ix.transition(log, StatePending, StateFetching)
	title, frags, err := ix.fetch(ctx, videoID)
	if err != nil {
		return ix.fail(log, videoID, StateFetching, err)
	}

	ix.transition(log, StateFetching, StateChunking)
	chunks := Chunk(videoID, title, frags, ix.cfg.Chunk)
	if len(chunks) == 0 {
		return ix.fail(log, videoID, StateChunking, engine.NewSourceError(videoID, engine.KindUnavailable, errNoChunks))
	}

	ix.transition(log, StateChunking, StatePersisting)
	if err := ix.store.UpsertChunks(ctx, chunks); err != nil {
		return ix.fail(log, videoID, StatePersisting, err)
	}
	if err := ix.store.PruneChunks(ctx, videoID, len(chunks)); err != nil {
		return ix.fail(log, videoID, StatePersisting, err)
	}
	if err := ix.tracker.MarkIndexed(ctx, videoID); err != nil {
		return ix.fail(log, videoID, StatePersisting, fmt.Errorf("tracker: %w", err))
	}

	ix.transition(log, StatePersisting, StateDone)
	engine.IncrVideosIndexed()
	engine.AddChunksUpserted(len(chunks))
	log.Info("video indexed",
		slog.String("title", engine.TruncateRunes(title, 80, "…")),
		slog.Int("fragments", len(frags)),
		slog.Int("chunks", len(chunks)),
	)
	return VideoResult{VideoID: videoID, State: StateDone, Chunks: len(chunks)}
}

// fetch gets the title and fragments, retrying transient source failures.
// FetchTimeout bounds each attempt.
func (ix *Indexer) fetch(ctx context.Context, videoID string) (string, []engine.Fragment, error) {
	engine.IncrTranscriptFetches()

	title, err := engine.RetryDo(ctx, ix.cfg.Retry, func() (string, error) {
		actx, cancel := ix.attemptContext(ctx)
		defer cancel()
		return ix.source.FetchVideoTitle(actx, videoID)
	})
	if err != nil {
		engine.IncrTranscriptFetchErrors()
		return "", nil, fmt.Errorf("fetch title: %w", err)
	}

	frags, err := engine.RetryDo(ctx, ix.cfg.Retry, func() ([]engine.Fragment, error) {
		actx, cancel := ix.attemptContext(ctx)
		defer cancel()
		return ix.source.FetchTranscript(actx, videoID)
	})
	if err != nil {
		engine.IncrTranscriptFetchErrors()
		return "", nil, fmt.Errorf("fetch transcript: %w", err)
	}
	return title, frags, nil
}

func (ix *Indexer) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ix.cfg.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, ix.cfg.FetchTimeout)
}

func (ix *Indexer) transition(log *slog.Logger, from, to VideoState) {
	log.Debug("state", slog.String("from", string(from)), slog.String("to", string(to)))
}

func (ix *Indexer) fail(log *slog.Logger, videoID string, at VideoState, err error) VideoResult {
	engine.IncrVideosFailed()
	log.Warn("video indexing failed", slog.String("state", string(at)), slog.Any("error", err))
	return VideoResult{VideoID: videoID, State: StateFailed, Err: err}
}

// RunEvery runs IndexAll now and then once per interval until ctx is done.
// A non-positive interval runs once.
func (ix *Indexer) RunEvery(ctx context.Context, interval time.Duration) {
	run := func() {
		if _, err := ix.IndexAll(ctx, false); err != nil && ctx.Err() == nil {
			slog.Error("index run failed", slog.Any("error", err))
		}
	}
	run()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
