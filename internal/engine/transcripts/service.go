package transcripts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// Service is what the tool, HTTP and CLI surfaces call.
type Service struct {
	Indexer  *Indexer
	Searcher *Searcher
	Tracker  Tracker
}

func (s *Service) Search(ctx context.Context, in engine.TranscriptSearchInput) (engine.TranscriptSearchOutput, error) {
	limit, offset := s.Searcher.Limits(in.Limit, in.Offset)
	results, err := s.Searcher.Search(ctx, in.Query, limit, offset)
	if err != nil {
		return engine.TranscriptSearchOutput{}, err
	}
	return engine.TranscriptSearchOutput{Query: in.Query, Limit: limit, Offset: offset, Results: results}, nil
}

// Index runs a full pass, or indexes only in.VideoID when set.
func (s *Service) Index(ctx context.Context, in engine.TranscriptIndexInput) (*engine.IndexRunSummary, error) {
	videoID := strings.TrimSpace(in.VideoID)
	if videoID == "" {
		return s.Indexer.IndexAll(ctx, in.Force)
	}

	summary := &engine.IndexRunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Failures:  []engine.VideoFailure{},
	}
	tally(summary, s.Indexer.IndexVideo(ctx, videoID, in.Force))
	summary.Duration = time.Since(summary.StartedAt).Round(time.Millisecond).String()
	return summary, ctx.Err()
}

// IndexedVideos lists tracked videos with the store's document stats.
func (s *Service) IndexedVideos(ctx context.Context) (engine.IndexedVideosOutput, error) {
	videos, err := s.Tracker.ListIndexed(ctx)
	if err != nil {
		return engine.IndexedVideosOutput{}, err
	}
	if videos == nil {
		videos = []engine.IndexedVideo{}
	}
	stats, err := s.Searcher.Stats(ctx)
	if err != nil {
		return engine.IndexedVideosOutput{}, err
	}
	return engine.IndexedVideosOutput{Total: len(videos), Videos: videos, Store: stats}, nil
}
