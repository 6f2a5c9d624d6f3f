// Package transcriptserver exposes transcript search and indexing as MCP tools.
package transcriptserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
	"github.com/anatolykoptev/go_transcripts/internal/toolutil"
)

// RegisterTools registers transcript_search, transcript_index and
// transcript_indexed_videos on the given MCP server.
func RegisterTools(server *mcp.Server, svc *transcripts.Service) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_search",
		Description: "Full-text search over indexed YouTube video transcripts. Returns matching transcript snippets with video ID, title, start time in seconds and an MM:SS timecode. Query needs at least 3 letters or digits; use limit/offset to page.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, searchHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_index",
		Description: "Index YouTube transcripts. Without video_id, indexes every configured playlist, channel and video that is not indexed yet. With video_id (an 11-character ID or a YouTube URL), indexes only that video. force=true reindexes already indexed videos. Returns a run summary with per-video failures.",
	}, indexHandler(svc))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_indexed_videos",
		Description: "List videos whose transcripts are fully indexed, with the time each was indexed and the document count of the search index.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, indexedVideosHandler(svc))
}

type (
	searchFunc  = func(context.Context, *mcp.CallToolRequest, engine.TranscriptSearchInput) (*mcp.CallToolResult, engine.TranscriptSearchOutput, error)
	indexFunc   = func(context.Context, *mcp.CallToolRequest, engine.TranscriptIndexInput) (*mcp.CallToolResult, *engine.IndexRunSummary, error)
	indexedFunc = func(context.Context, *mcp.CallToolRequest, engine.IndexedVideosInput) (*mcp.CallToolResult, engine.IndexedVideosOutput, error)
)

func searchHandler(svc *transcripts.Service) searchFunc {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptSearchInput) (*mcp.CallToolResult, engine.TranscriptSearchOutput, error) {
		if strings.TrimSpace(input.Query) == "" {
			return nil, engine.TranscriptSearchOutput{}, errors.New("query is required")
		}
		out, err := svc.Search(ctx, input)
		if err != nil {
			return nil, engine.TranscriptSearchOutput{}, err
		}
		return nil, out, nil
	}
}

func indexHandler(svc *transcripts.Service) indexFunc {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptIndexInput) (*mcp.CallToolResult, *engine.IndexRunSummary, error) {
		id, err := toolutil.ParseVideoRef(input.VideoID)
		if err != nil {
			return nil, nil, err
		}
		input.VideoID = id
		summary, err := svc.Index(ctx, input)
		if err != nil {
			slog.Warn("transcript_index interrupted", slog.Any("error", err))
			return nil, nil, err
		}
		return nil, summary, nil
	}
}

func indexedVideosHandler(svc *transcripts.Service) indexedFunc {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ engine.IndexedVideosInput) (*mcp.CallToolResult, engine.IndexedVideosOutput, error) {
		out, err := svc.IndexedVideos(ctx)
		if err != nil {
			return nil, engine.IndexedVideosOutput{}, err
		}
		return nil, out, nil
	}
}
