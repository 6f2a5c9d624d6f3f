// Package transcriptstest provides in-memory collaborators for tests of
// transcripts and the layers above transcripts.Service.
package transcriptstest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
)

// Source serves fixed transcripts. Unknown videos are NotFound.
// Titles and Fragments may be set directly before first use; afterwards
// go through Add.
type Source struct {
	mu        sync.Mutex
	Titles    map[string]string
	Fragments map[string][]engine.Fragment

	errs    map[string][]error
	fetches map[string]int
}

// Add registers (or replaces) a video's title and transcript.
func (s *Source) Add(videoID, title string, frags ...engine.Fragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fragments == nil {
		s.Fragments = map[string][]engine.Fragment{}
	}
	if s.Titles == nil {
		s.Titles = map[string]string{}
	}
	s.Fragments[videoID] = frags
	s.Titles[videoID] = title
}

// FailWith queues errors returned by successive FetchTranscript calls for
// videoID. The last one repeats; a nil entry lets that call through.
func (s *Source) FailWith(videoID string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errs == nil {
		s.errs = map[string][]error{}
	}
	s.errs[videoID] = errs
}

func (s *Source) FetchTranscript(_ context.Context, videoID string) ([]engine.Fragment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetches == nil {
		s.fetches = map[string]int{}
	}
	s.fetches[videoID]++
	if errs := s.errs[videoID]; len(errs) > 0 {
		err := errs[0]
		if len(errs) > 1 {
			s.errs[videoID] = errs[1:]
		}
		if err != nil {
			return nil, err
		}
	}
	f, ok := s.Fragments[videoID]
	if !ok {
		return nil, engine.NewSourceError(videoID, engine.KindNotFound, nil)
	}
	return f, nil
}

func (s *Source) FetchVideoTitle(_ context.Context, videoID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Titles[videoID], nil
}

// FetchCount reports how many times videoID's transcript was requested.
func (s *Source) FetchCount(videoID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches[videoID]
}

func (s *Source) TotalFetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.fetches {
		n += c
	}
	return n
}

// Expander resolves playlists and channels from fixed maps. Unknown ids are NotFound.
type Expander struct {
	Playlists map[string][]string
	Channels  map[string][]string
}

func (e *Expander) ExpandPlaylist(_ context.Context, id string) ([]string, error) {
	v, ok := e.Playlists[id]
	if !ok {
		return nil, engine.NewSourceError(id, engine.KindNotFound, nil)
	}
	return v, nil
}

func (e *Expander) ExpandChannel(_ context.Context, id string) ([]string, error) {
	v, ok := e.Channels[id]
	if !ok {
		return nil, engine.NewSourceError(id, engine.KindNotFound, nil)
	}
	return v, nil
}

// Store is a substring-matching ChunkStore. Err, when set, fails every call;
// UpsertErr and SearchErr fail only that operation.
type Store struct {
	mu        sync.Mutex
	docs      map[string]engine.Chunk
	Err       error
	UpsertErr error
	SearchErr error
}

func (m *Store) UpsertChunks(_ context.Context, chunks []engine.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if m.docs == nil {
		m.docs = map[string]engine.Chunk{}
	}
	for _, c := range chunks {
		m.docs[c.ChunkID] = c
	}
	return nil
}

func (m *Store) PruneChunks(_ context.Context, videoID string, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.docs {
		if c.VideoID == videoID && c.Seq >= keep {
			delete(m.docs, id)
		}
	}
	return m.Err
}

func (m *Store) Search(_ context.Context, rawQuery string, limit, offset int) ([]engine.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	q := strings.ToLower(strings.TrimSpace(rawQuery))
	if len([]rune(q)) < 3 {
		return nil, engine.ErrInvalidQuery
	}
	var hits []engine.Chunk
	for _, c := range m.docs {
		if strings.Contains(strings.ToLower(c.Snippet), q) {
			hits = append(hits, c)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ChunkID < hits[j].ChunkID })
	out := []engine.SearchResult{}
	for i := offset; i < len(hits) && len(out) < limit; i++ {
		c := hits[i]
		out = append(out, engine.SearchResult{
			VideoID: c.VideoID, VideoTitle: c.VideoTitle,
			StartTime: c.StartTime, Timecode: c.Timecode, Snippet: c.Snippet,
		})
	}
	return out, nil
}

func (m *Store) Stats(context.Context) (engine.StoreStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return engine.StoreStats{}, m.Err
	}
	return engine.StoreStats{Backend: "memory", Index: "test", Documents: int64(len(m.docs))}, nil
}

// ChunksOf counts the stored chunks of videoID.
func (m *Store) ChunksOf(videoID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.docs {
		if c.VideoID == videoID {
			n++
		}
	}
	return n
}

// Tracker records indexed videos in memory. Err, when set, fails every call.
type Tracker struct {
	mu      sync.Mutex
	indexed map[string]time.Time
	Err     error
}

func (t *Tracker) IsIndexed(_ context.Context, videoID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return false, t.Err
	}
	_, ok := t.indexed[videoID]
	return ok, nil
}

func (t *Tracker) MarkIndexed(_ context.Context, videoID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return t.Err
	}
	if t.indexed == nil {
		t.indexed = map[string]time.Time{}
	}
	if _, ok := t.indexed[videoID]; !ok {
		t.indexed[videoID] = time.Now().UTC()
	}
	return nil
}

func (t *Tracker) ListIndexed(context.Context) ([]engine.IndexedVideo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return nil, t.Err
	}
	out := make([]engine.IndexedVideo, 0, len(t.indexed))
	for id, at := range t.indexed {
		out = append(out, engine.IndexedVideo{VideoID: id, IndexedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VideoID < out[j].VideoID })
	return out, nil
}

// NewService wires a Service over the given fakes with a 10s duration bound
// and no retries. videos become the configured video set.
func NewService(src *Source, store *Store, tracker *Tracker, videos ...string) *transcripts.Service {
	ix := transcripts.NewIndexer(src, nil, store, tracker, transcripts.IndexerConfig{
		Chunk:        transcripts.ChunkOptions{MaxSeconds: 10},
		Retry:        engine.RetryConfig{MaxRetries: 0, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1},
		FetchTimeout: time.Second,
		Workers:      2,
		Videos:       videos,
	})
	return &transcripts.Service{Indexer: ix, Searcher: transcripts.NewSearcher(store, 10, 100), Tracker: tracker}
}
