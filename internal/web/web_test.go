package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts/transcriptstest"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func indexedService(t *testing.T, store *transcriptstest.Store) *transcripts.Service {
	t.Helper()
	src := &transcriptstest.Source{
		Titles: map[string]string{"vid00000001": "Talk"},
		Fragments: map[string][]engine.Fragment{"vid00000001": {
			{Text: "distributed systems are hard", Start: 0, Duration: 8},
			{Text: "consensus is harder", Start: 95, Duration: 5},
		}},
	}
	svc := transcriptstest.NewService(src, store, &transcriptstest.Tracker{}, "vid00000001")
	_, err := svc.Index(context.Background(), engine.TranscriptIndexInput{})
	require.NoError(t, err)
	return svc
}

func get(t *testing.T, svc *transcripts.Service, target string) (int, envelope) {
	t.Helper()
	resp, err := NewApp(svc).Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestHealth(t *testing.T) {
	code, env := get(t, indexedService(t, &transcriptstest.Store{}), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", env.Status)
}

func TestSearch(t *testing.T) {
	svc := indexedService(t, &transcriptstest.Store{})
	code, env := get(t, svc, "/api/v1/search?q=consensus&limit=5")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", env.Status)

	var data struct {
		Limit   int `json:"limit"`
		Results []struct {
			VideoID   string  `json:"video_id"`
			StartTime float64 `json:"start_time"`
			Timecode  string  `json:"timecode"`
			URL       string  `json:"url"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 5, data.Limit)
	require.Len(t, data.Results, 1)
	assert.Equal(t, "vid00000001", data.Results[0].VideoID)
	assert.Equal(t, "01:35", data.Results[0].Timecode)
	assert.Equal(t, "https://www.youtube.com/watch?v=vid00000001&t=95s", data.Results[0].URL)
}

func TestSearchNoMatches(t *testing.T) {
	code, env := get(t, indexedService(t, &transcriptstest.Store{}), "/api/v1/search?q=kubernetes")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"results":[]`)
}

func TestSearchErrors(t *testing.T) {
	svc := indexedService(t, &transcriptstest.Store{})

	code, env := get(t, svc, "/api/v1/search")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", env.Status)

	code, _ = get(t, svc, "/api/v1/search?q=ab")
	assert.Equal(t, http.StatusBadRequest, code)

	down := &transcriptstest.Store{}
	svc = indexedService(t, down)
	down.Err = engine.StoreError("search", errors.New("dial tcp: connection refused"))
	code, env = get(t, svc, "/api/v1/search?q=consensus")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, env.Message, "store unavailable")
}

func TestVideos(t *testing.T) {
	code, env := get(t, indexedService(t, &transcriptstest.Store{}), "/api/v1/videos")
	require.Equal(t, http.StatusOK, code)
	var out engine.IndexedVideosOutput
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, "vid00000001", out.Videos[0].VideoID)
	assert.Equal(t, int64(2), out.Store.Documents)
}
