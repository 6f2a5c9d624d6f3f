package transcripts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts/transcriptstest"
)

func TestSearcherLimits(t *testing.T) {
	s := transcripts.NewSearcher(&transcriptstest.Store{}, 10, 100)
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 10, 0},
		{-5, -1, 10, 0},
		{25, 5, 25, 5},
		{1000, 0, 100, 0},
	}
	for _, tt := range tests {
		l, o := s.Limits(tt.limit, tt.offset)
		if l != tt.wantLimit || o != tt.wantOffset {
			t.Errorf("Limits(%d,%d) = %d,%d want %d,%d", tt.limit, tt.offset, l, o, tt.wantLimit, tt.wantOffset)
		}
	}

	bad := transcripts.NewSearcher(&transcriptstest.Store{}, 500, 0)
	if l, _ := bad.Limits(0, 0); l != 10 {
		t.Errorf("fallback default limit = %d", l)
	}
}

func TestSearcherSearch(t *testing.T) {
	store := &transcriptstest.Store{}
	ctx := context.Background()
	chunks := transcripts.Chunk("vid", "Talk", []engine.Fragment{
		frag("gophers love channels", 0, 20),
		frag("interfaces are small", 20, 20),
		frag("channels again at the end", 90, 5),
	}, transcripts.ChunkOptions{MaxSeconds: 20})
	if err := store.UpsertChunks(ctx, chunks); err != nil {
		t.Fatal(err)
	}
	s := transcripts.NewSearcher(store, 10, 100)

	results, err := s.Search(ctx, "channels", 0, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].VideoID != "vid" || results[0].StartTime != 0 || results[0].Timecode != "00:00" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].StartTime != 90 || results[1].Timecode != "01:30" {
		t.Errorf("second result = %+v", results[1])
	}

	paged, err := s.Search(ctx, "channels", 1, 1)
	if err != nil || len(paged) != 1 || paged[0].StartTime != 90 {
		t.Errorf("paged = %+v, err = %v", paged, err)
	}

	none, err := s.Search(ctx, "kubernetes", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("no-match should be empty non-nil slice, got %#v", none)
	}
}

func TestSearcherErrors(t *testing.T) {
	store := &transcriptstest.Store{}
	s := transcripts.NewSearcher(store, 10, 100)
	ctx := context.Background()

	if _, err := s.Search(ctx, "go", 0, 0); !errors.Is(err, engine.ErrInvalidQuery) {
		t.Errorf("short query err = %v, want ErrInvalidQuery", err)
	}

	store.SearchErr = engine.StoreError("search", errBoom)
	res, err := s.Search(ctx, "anything", 0, 0)
	if !errors.Is(err, engine.ErrStoreUnavailable) {
		t.Errorf("err = %v, want ErrStoreUnavailable", err)
	}
	if res != nil {
		t.Error("failed search must not return results")
	}
}
