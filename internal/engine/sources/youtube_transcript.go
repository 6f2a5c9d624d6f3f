package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

// YouTube transcript fetching.
// Primary:  watch page ytInitialPlayerResponse → caption track → timedtext XML
// Fallback: ANDROID Innertube /player → caption track → timedtext XML

// FetchTranscript returns the timed caption lines of videoID in the
// preferred language.
func (y *YouTube) FetchTranscript(ctx context.Context, videoID string) ([]engine.Fragment, error) {
	frags, err := y.transcriptVia(ctx, videoID, y.fetchWatchPlayer)
	if err == nil {
		return frags, nil
	}
	if definitive(err) {
		return nil, err
	}
	slog.Warn("youtube: watch page failed, trying player",
		slog.String("id", videoID), slog.Any("err", err))
	return y.transcriptVia(ctx, videoID, y.fetchAndroidPlayer)
}

// definitive reports whether another endpoint cannot do better.
func definitive(err error) bool {
	var se *engine.SourceError
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == engine.KindNotFound || se.Kind == engine.KindRateLimited
}

func (y *YouTube) transcriptVia(ctx context.Context, videoID string, player func(context.Context, string) (*playerResponse, error)) ([]engine.Fragment, error) {
	p, err := player(ctx, videoID)
	if err != nil {
		return nil, err
	}
	tracks, err := p.tracks(videoID)
	if err != nil {
		return nil, err
	}
	track, ok := pickBestTrack(tracks, y.langs)
	if !ok {
		return nil, engine.NewSourceError(videoID, engine.KindUnavailable, errors.New("all caption tracks require PoToken"))
	}
	return y.fetchTimedText(ctx, videoID, track.BaseURL)
}

// fetchWatchPlayer scrapes the watch page and decodes ytInitialPlayerResponse.
func (y *YouTube) fetchWatchPlayer(ctx context.Context, videoID string) (*playerResponse, error) {
	watchURL := y.baseURL + "/watch?v=" + url.QueryEscape(videoID)
	body, err := y.get(ctx, watchURL, videoID, 6*1024*1024, map[string]string{
		"User-Agent":      engine.UserAgentChrome,
		"Accept-Language": "en-US,en;q=0.9",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		return nil, err
	}

	idx := strings.Index(string(body), ytInitialPlayerResponseMarker)
	if idx < 0 {
		return nil, engine.NewSourceError(videoID, engine.KindUnavailable, errors.New("ytInitialPlayerResponse not found in watch page"))
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, engine.NewSourceError(videoID, engine.KindUnavailable, errors.New("failed to extract ytInitialPlayerResponse JSON"))
	}
	var player playerResponse
	if err := json.Unmarshal(jsonData, &player); err != nil {
		return nil, engine.NewSourceError(videoID, engine.KindUnavailable, fmt.Errorf("decode ytInitialPlayerResponse: %w", err))
	}
	return &player, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack selects the best usable caption track for the given language preferences.
// Skips tracks that require PoToken — those only work in a browser.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	// 1. Manual track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	// 2. Auto-generated track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	// 3. Any English track
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// --- Timedtext XML ---

// ytTimedText covers both caption formats: the classic
// <transcript><text start="1.2" dur="3.4"> and srv3
// <timedtext><body><p t="1200" d="3400"> (milliseconds).
type ytTimedText struct {
	Lines []ytLine `xml:"text"`
	Body  struct {
		Paras []ytPara `xml:"p"`
	} `xml:"body"`
}

type ytLine struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Text  string  `xml:",innerxml"`
}

type ytPara struct {
	T    int64  `xml:"t,attr"`
	D    int64  `xml:"d,attr"`
	Text string `xml:",innerxml"`
}

// fetchTimedText fetches and parses a timedtext caption URL.
func (y *YouTube) fetchTimedText(ctx context.Context, videoID, baseURL string) ([]engine.Fragment, error) {
	body, err := y.get(ctx, baseURL, videoID, 2*1024*1024, map[string]string{"User-Agent": engine.UserAgentBot})
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		// Empty body means the track needs a PoToken or was withdrawn.
		return nil, engine.NewSourceError(videoID, engine.KindUnavailable, errors.New("empty timedtext response"))
	}
	frags, err := parseTimedText(body)
	if err != nil {
		return nil, engine.NewSourceError(videoID, engine.KindUnavailable, err)
	}
	return frags, nil
}

// parseTimedText converts timedtext XML to fragments in document order.
// Lines that are empty after cleanup are kept out.
func parseTimedText(body []byte) ([]engine.Fragment, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	frags := make([]engine.Fragment, 0, len(tt.Lines)+len(tt.Body.Paras))
	for _, line := range tt.Lines {
		if text := engine.CleanCaption(line.Text); text != "" {
			frags = append(frags, engine.Fragment{Text: text, Start: line.Start, Duration: line.Dur})
		}
	}
	for _, p := range tt.Body.Paras {
		if text := engine.CleanCaption(p.Text); text != "" {
			frags = append(frags, engine.Fragment{Text: text, Start: float64(p.T) / 1000, Duration: float64(p.D) / 1000})
		}
	}
	return frags, nil
}

// extractJSON extracts a complete JSON object starting at b[0] == '{' by tracking brace depth.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
