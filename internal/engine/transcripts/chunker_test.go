package transcripts_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
)

func frag(text string, start, dur float64) engine.Fragment {
	return engine.Fragment{Text: text, Start: start, Duration: dur}
}

func TestChunk_SingleChunkUnderBound(t *testing.T) {
	frags := []engine.Fragment{frag("hello world", 0, 2), frag("this is a test", 2, 3)}
	chunks := transcripts.Chunk("vid", "Title", frags, transcripts.ChunkOptions{MaxSeconds: 10})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Snippet != "hello world this is a test" {
		t.Errorf("Snippet = %q", c.Snippet)
	}
	if c.StartTime != 0 || c.Timecode != "00:00" {
		t.Errorf("start = %v / %q", c.StartTime, c.Timecode)
	}
	if c.ChunkID != "vid_0" || c.Seq != 0 || c.VideoTitle != "Title" || c.VideoID != "vid" {
		t.Errorf("unexpected identity fields: %+v", c)
	}
}

func TestChunk_DurationBound(t *testing.T) {
	frags := []engine.Fragment{
		frag("one", 0, 4),
		frag("two", 4, 4),
		frag("three", 8, 4), // 12s would exceed 10
		frag("four", 12, 4),
		frag("five", 16, 4), // 12s again
	}
	chunks := transcripts.Chunk("v", "", frags, transcripts.ChunkOptions{MaxSeconds: 10})
	want := []string{"one two", "three four", "five"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, c := range chunks {
		if c.Snippet != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, c.Snippet, want[i])
		}
		if c.Seq != i || c.ChunkID != fmt.Sprintf("v_%d", i) {
			t.Errorf("chunk %d identity = %d/%s", i, c.Seq, c.ChunkID)
		}
	}
	if chunks[1].StartTime != 8 || chunks[2].StartTime != 16 {
		t.Errorf("start times = %v, %v", chunks[1].StartTime, chunks[2].StartTime)
	}
}

func TestChunk_CharBound(t *testing.T) {
	frags := []engine.Fragment{frag("hello world", 0, 1), frag("foo", 1, 1), frag("bar", 2, 1)}
	chunks := transcripts.Chunk("v", "", frags, transcripts.ChunkOptions{MaxChars: 11})
	want := []string{"hello world", "foo bar"}
	if len(chunks) != 2 || chunks[0].Snippet != want[0] || chunks[1].Snippet != want[1] {
		t.Fatalf("chunks = %+v", chunks)
	}
}

func TestChunk_OversizedFragmentStandsAlone(t *testing.T) {
	frags := []engine.Fragment{frag("a", 0, 1), frag("long monologue", 1, 60), frag("c", 61, 1)}
	chunks := transcripts.Chunk("v", "", frags, transcripts.ChunkOptions{MaxSeconds: 5})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].Snippet != "long monologue" || chunks[1].Timecode != "00:01" {
		t.Errorf("oversized chunk = %+v", chunks[1])
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := transcripts.Chunk("v", "", nil, transcripts.ChunkOptions{MaxSeconds: 30}); len(got) != 0 {
		t.Errorf("expected no chunks, got %d", len(got))
	}
	blank := []engine.Fragment{frag("  ", 0, 1), frag("\n", 1, 1)}
	if got := transcripts.Chunk("v", "", blank, transcripts.ChunkOptions{MaxSeconds: 30}); len(got) != 0 {
		t.Errorf("blank fragments should yield no chunks, got %+v", got)
	}
}

func TestChunk_ExactPartition(t *testing.T) {
	var frags []engine.Fragment
	var words []string
	for i := range 57 {
		w := fmt.Sprintf("word%d", i)
		words = append(words, w)
		frags = append(frags, frag(w, float64(i)*1.5, 1.5+float64(i%4)))
	}
	for _, opts := range []transcripts.ChunkOptions{{MaxSeconds: 7}, {MaxChars: 40}, {MaxSeconds: 3, MaxChars: 25}, {}} {
		chunks := transcripts.Chunk("v", "", frags, opts)
		var got []string
		prev := -1.0
		for _, c := range chunks {
			if c.Snippet == "" {
				t.Fatalf("%+v: empty chunk", opts)
			}
			if c.StartTime < prev {
				t.Fatalf("%+v: start times not ascending", opts)
			}
			prev = c.StartTime
			got = append(got, strings.Fields(c.Snippet)...)
		}
		if !reflect.DeepEqual(got, words) {
			t.Errorf("%+v: chunks do not partition input", opts)
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	frags := []engine.Fragment{frag("a b", 0, 3), frag("c", 3, 9), frag("d e f", 12, 2), frag("g", 14, 20)}
	opts := transcripts.ChunkOptions{MaxSeconds: 10, MaxChars: 8}
	first := transcripts.Chunk("v", "t", frags, opts)
	second := transcripts.Chunk("v", "t", frags, opts)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("chunking is not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestChunk_CollapsesFragmentWhitespace(t *testing.T) {
	chunks := transcripts.Chunk("v", "", []engine.Fragment{frag(" hello\n  there ", 0, 1)}, transcripts.ChunkOptions{MaxSeconds: 30})
	if len(chunks) != 1 || chunks[0].Snippet != "hello there" {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestChunk_BlankFragmentKeepsItsTimeSpan(t *testing.T) {
	chunks := transcripts.Chunk("v", "", []engine.Fragment{frag("", 0, 4), frag("hello   world", 4, 2)}, transcripts.ChunkOptions{MaxSeconds: 30})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %+v", chunks)
	}
	if c := chunks[0]; c.StartTime != 0 || c.Timecode != "00:00" || c.Snippet != "hello world" {
		t.Errorf("leading blank chunk = %+v", c)
	}

	// The silent 4s span pushes "b" past the 10s bound.
	frags := []engine.Fragment{frag("a", 0, 4), frag(" ", 4, 4), frag("b", 8, 4)}
	chunks = transcripts.Chunk("v", "", frags, transcripts.ChunkOptions{MaxSeconds: 10})
	if len(chunks) != 2 || chunks[0].Snippet != "a" || chunks[1].Snippet != "b" || chunks[1].StartTime != 8 {
		t.Errorf("chunks = %+v", chunks)
	}

	// A blank that overflows the current chunk opens the next one.
	frags = []engine.Fragment{frag("a", 0, 8), frag("", 8, 4), frag("b", 12, 1)}
	chunks = transcripts.Chunk("v", "", frags, transcripts.ChunkOptions{MaxSeconds: 10})
	if len(chunks) != 2 || chunks[1].Snippet != "b" || chunks[1].StartTime != 8 {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestChunk_TrailingBlankEmitsNothing(t *testing.T) {
	frags := []engine.Fragment{frag("a", 0, 9), frag("", 9, 5)}
	chunks := transcripts.Chunk("v", "", frags, transcripts.ChunkOptions{MaxSeconds: 10})
	if len(chunks) != 1 || chunks[0].Snippet != "a" {
		t.Errorf("chunks = %+v", chunks)
	}
}

func TestFormatTimecode(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{90, "01:30"},
		{3661.4, "61:01"},
		{59.999, "00:59"},
		{600, "10:00"},
		{-3, "00:00"},
	}
	for _, tt := range tests {
		if got := transcripts.FormatTimecode(tt.in); got != tt.want {
			t.Errorf("FormatTimecode(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
