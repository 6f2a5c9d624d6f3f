package sources

// YouTube implementation is split across four files by responsibility:
//   youtube.go            — client, options, rate limiting, HTTP status classification
//   youtube_innertube.go  — Innertube/player types and the ANDROID /player call
//   youtube_transcript.go — caption track selection and timedtext parsing
//   youtube_data.go       — titles (Data API v3, oEmbed) and playlist/channel expansion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
)

const (
	ytBaseURL     = "https://www.youtube.com"
	ytDataAPIBase = "https://www.googleapis.com/youtube/v3"
)

// YouTubeOptions configures a YouTube source. Zero values take defaults.
type YouTubeOptions struct {
	HTTPClient     *http.Client
	APIKey         string
	APIKeyFallback string
	Langs          []string // caption language preference, e.g. ["en"]
	RPS            float64  // outbound request rate across all endpoints
	BaseURL        string   // www.youtube.com root (watch, player, oembed)
	DataAPIBase    string
}

// YouTube fetches transcripts and metadata from YouTube and expands
// playlists and channels via the Data API.
type YouTube struct {
	client      *http.Client
	keys        []string
	langs       []string
	limiter     *rate.Limiter
	baseURL     string
	dataAPIBase string
}

var (
	_ transcripts.Source   = (*YouTube)(nil)
	_ transcripts.Expander = (*YouTube)(nil)
)

func NewYouTube(opts YouTubeOptions) *YouTube {
	y := &YouTube{
		client:      opts.HTTPClient,
		langs:       opts.Langs,
		baseURL:     opts.BaseURL,
		dataAPIBase: opts.DataAPIBase,
	}
	if y.client == nil {
		y.client = &http.Client{Timeout: 30 * time.Second}
	}
	if len(y.langs) == 0 {
		y.langs = []string{"en"}
	}
	if y.baseURL == "" {
		y.baseURL = ytBaseURL
	}
	if y.dataAPIBase == "" {
		y.dataAPIBase = ytDataAPIBase
	}
	for _, k := range []string{opts.APIKey, opts.APIKeyFallback} {
		if k != "" {
			y.keys = append(y.keys, k)
		}
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 5
	}
	y.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	return y
}

// HasAPIKey reports whether Data API calls (expansion, titles) are available.
func (y *YouTube) HasAPIKey() bool { return len(y.keys) > 0 }

// do sends req under the rate limiter and returns the body of a 200
// response. Every other outcome is a *engine.SourceError for id.
func (y *YouTube) do(req *http.Request, id string, limit int64) ([]byte, error) {
	if err := y.limiter.Wait(req.Context()); err != nil {
		return nil, engine.NewSourceError(id, engine.KindNetwork, err)
	}
	engine.IncrYouTubeAPIRequests()

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, engine.NewSourceError(id, engine.KindNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, engine.NewSourceError(id, engine.KindNetwork, fmt.Errorf("read body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(id, resp.StatusCode, body)
	}
	return body, nil
}

func (y *YouTube) get(ctx context.Context, rawURL, id string, limit int64, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, engine.NewSourceError(id, engine.KindUnavailable, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return y.do(req, id, limit)
}

// classifyStatus maps a non-200 response to a source error kind.
func classifyStatus(id string, code int, body []byte) *engine.SourceError {
	err := fmt.Errorf("HTTP %d: %s", code, engine.TruncateRunes(string(bytes.TrimSpace(body)), 200, "…"))
	switch {
	case code == http.StatusNotFound:
		return engine.NewSourceError(id, engine.KindNotFound, err)
	case code == http.StatusTooManyRequests:
		return engine.NewSourceError(id, engine.KindRateLimited, err)
	case code == http.StatusForbidden && (bytes.Contains(body, []byte("quotaExceeded")) || bytes.Contains(body, []byte("dailyLimitExceeded"))):
		return engine.NewSourceError(id, engine.KindQuotaExceeded, err)
	case code == http.StatusForbidden && bytes.Contains(body, []byte("rateLimitExceeded")):
		return engine.NewSourceError(id, engine.KindRateLimited, err)
	case engine.IsRetryableStatus(code):
		return engine.NewSourceError(id, engine.KindNetwork, err)
	default:
		return engine.NewSourceError(id, engine.KindUnavailable, err)
	}
}
