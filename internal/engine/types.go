package engine

import "time"

// --- Transcript types ---

// Fragment is one timed caption line as returned by a transcript source.
type Fragment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`    // seconds from video start
	Duration float64 `json:"duration"` // seconds
}

// Chunk is a search-sized run of consecutive fragments. ChunkID is the storage key.
type Chunk struct {
	ChunkID    string  `json:"chunk_id"`
	VideoID    string  `json:"video_id"`
	VideoTitle string  `json:"video_title"`
	Seq        int     `json:"seq"`
	Snippet    string  `json:"snippet"`
	StartTime  float64 `json:"start_time"`
	Timecode   string  `json:"timecode"`
}

// SearchResult is the read-only projection of a matching chunk.
type SearchResult struct {
	VideoID    string  `json:"video_id"`
	VideoTitle string  `json:"video_title"`
	StartTime  float64 `json:"start_time"`
	Timecode   string  `json:"timecode"`
	Snippet    string  `json:"snippet"`
}

// IndexedVideo records that every chunk of a video was persisted.
type IndexedVideo struct {
	VideoID   string    `json:"video_id"`
	IndexedAt time.Time `json:"indexed_at"`
}

// VideoFailure is one per-video failure reported by an indexing run.
type VideoFailure struct {
	VideoID string `json:"video_id"`
	Reason  string `json:"reason"`
}

// IndexRunSummary is the outcome of one indexing pass.
type IndexRunSummary struct {
	RunID         string         `json:"run_id"`
	VideosIndexed int            `json:"videos_indexed"`
	VideosSkipped int            `json:"videos_skipped"`
	Failures      []VideoFailure `json:"failures"`
	StartedAt     time.Time      `json:"started_at"`
	Duration      string         `json:"duration"`
}

// StoreStats describes the backing full-text store.
type StoreStats struct {
	Backend   string `json:"backend"`
	Index     string `json:"index"`
	Documents int64  `json:"documents"`
}

// --- Tool inputs and outputs ---

type TranscriptSearchInput struct {
	Query  string `json:"query" jsonschema:"Keywords to find in spoken transcripts (min 3 characters)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results (default: 10, max: 100)"`
	Offset int    `json:"offset,omitempty" jsonschema:"Number of results to skip for pagination"`
}

type TranscriptSearchOutput struct {
	Query   string         `json:"query"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	Results []SearchResult `json:"results"`
}

type TranscriptIndexInput struct {
	VideoID string `json:"video_id,omitempty" jsonschema:"Index only this video ID (default: every configured playlist, channel and video)"`
	Force   bool   `json:"force,omitempty" jsonschema:"Reindex even if already indexed"`
}

type IndexedVideosInput struct{}

type IndexedVideosOutput struct {
	Total  int            `json:"total"`
	Videos []IndexedVideo `json:"videos"`
	Store  StoreStats     `json:"store"`
}
