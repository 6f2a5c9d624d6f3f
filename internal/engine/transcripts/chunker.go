package transcripts

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// ChunkOptions bounds chunk size. A zero field disables that bound;
// with both disabled every fragment of a video lands in a single chunk.
type ChunkOptions struct {
	MaxSeconds float64 // sum of fragment durations
	MaxChars   int     // runes in the joined snippet
}

// ChunkID is the storage key of the seq-th chunk of a video.
func ChunkID(videoID string, seq int) string {
	return fmt.Sprintf("%s_%d", videoID, seq)
}

// FormatTimecode renders seconds as MM:SS. Minutes are unbounded (no hour
// rollover) and fractional seconds are floored.
func FormatTimecode(seconds float64) string {
	s := int64(math.Floor(seconds))
	if s < 0 || math.IsNaN(seconds) {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}

// Chunk greedily packs consecutive fragments into chunks, closing the
// current chunk when the next fragment would push it past a bound.
// Fragments are never split, so a single oversized fragment forms its own
// chunk. A fragment that is blank after whitespace collapsing still occupies
// its time span: it can open a chunk and its duration counts toward the
// bound, but it adds no text, and a chunk without text is never emitted.
// Output is deterministic for identical input and options.
func Chunk(videoID, videoTitle string, frags []engine.Fragment, opts ChunkOptions) []engine.Chunk {
	chunks := make([]engine.Chunk, 0, len(frags)/4+1)

	var (
		open     bool
		texts    []string
		start    float64
		duration float64
		runes    int
	)
	flush := func() {
		if len(texts) > 0 {
			seq := len(chunks)
			chunks = append(chunks, engine.Chunk{
				ChunkID:    ChunkID(videoID, seq),
				VideoID:    videoID,
				VideoTitle: videoTitle,
				Seq:        seq,
				Snippet:    strings.Join(texts, " "),
				StartTime:  start,
				Timecode:   FormatTimecode(start),
			})
		}
		open = false
		texts = texts[:0]
		duration, runes = 0, 0
	}
	// grow is the number of runes text adds to the current snippet.
	grow := func(text string) int {
		n := utf8.RuneCountInString(text)
		if n > 0 && len(texts) > 0 {
			n++
		}
		return n
	}

	for _, f := range frags {
		text := strings.Join(strings.Fields(f.Text), " ")
		if len(texts) > 0 && opts.exceeded(duration+f.Duration, runes+grow(text)) {
			flush()
		}
		if !open {
			open, start = true, f.Start
		}
		duration += f.Duration
		runes += grow(text)
		if text != "" {
			texts = append(texts, text)
		}
	}
	flush()
	return chunks
}

func (o ChunkOptions) exceeded(seconds float64, runes int) bool {
	if o.MaxSeconds > 0 && seconds > o.MaxSeconds {
		return true
	}
	return o.MaxChars > 0 && runes > o.MaxChars
}
