// Package transcripts turns timed transcript fragments into searchable
// chunks, tracks which videos are already indexed, and serves keyword
// search over the stored chunks.
//
// Collaborators are injected as interfaces:
//
//	Source     — transcript fragments and titles per video (YouTube in production)
//	Expander   — playlist/channel → video IDs
//	ChunkStore — full-text store for chunks (RediSearch or Postgres)
//	Tracker    — durable set of indexed video IDs
package transcripts

import (
	"context"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// Source fetches transcript data for one video. Failures are *engine.SourceError.
type Source interface {
	FetchTranscript(ctx context.Context, videoID string) ([]engine.Fragment, error)
	FetchVideoTitle(ctx context.Context, videoID string) (string, error)
}

// Expander lists the videos of a collection.
type Expander interface {
	ExpandPlaylist(ctx context.Context, playlistID string) ([]string, error)
	ExpandChannel(ctx context.Context, channelID string) ([]string, error)
}

// ChunkStore persists chunks and runs free-text queries over their snippets.
type ChunkStore interface {
	// UpsertChunks writes or overwrites each chunk keyed by ChunkID.
	UpsertChunks(ctx context.Context, chunks []engine.Chunk) error
	// PruneChunks deletes chunks of videoID with Seq >= keep.
	PruneChunks(ctx context.Context, videoID string, keep int) error
	// Search returns matches in store relevance order. Fails with
	// engine.ErrInvalidQuery or engine.ErrStoreUnavailable.
	Search(ctx context.Context, rawQuery string, limit, offset int) ([]engine.SearchResult, error)
	Stats(ctx context.Context) (engine.StoreStats, error)
}

// Tracker owns the indexed/not-indexed state of videos.
type Tracker interface {
	IsIndexed(ctx context.Context, videoID string) (bool, error)
	// MarkIndexed is an idempotent set-add; re-marking keeps the first timestamp.
	MarkIndexed(ctx context.Context, videoID string) error
	ListIndexed(ctx context.Context) ([]engine.IndexedVideo, error)
}
