package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/sources"
	"github.com/anatolykoptev/go_transcripts/internal/engine/store"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
)

func initLogging() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(env.Str("LOG_LEVEL", "info"))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig builds the engine config from the environment and the optional
// INDEXING_CONFIG YAML file.
func loadConfig() (engine.Config, error) {
	d := engine.DefaultConfig()
	c := engine.Config{
		StoreBackend:          env.Str("STORE_BACKEND", d.StoreBackend),
		RedisURL:              env.Str("REDIS_URL", d.RedisURL),
		RedisIndex:            env.Str("REDIS_INDEX", d.RedisIndex),
		RedisPrefix:           env.Str("REDIS_PREFIX", d.RedisPrefix),
		RedisTrackerKey:       env.Str("REDIS_TRACKER_KEY", d.RedisTrackerKey),
		DatabaseURL:           env.Str("DATABASE_URL", ""),
		TrackerBackend:        env.Str("TRACKER_BACKEND", d.TrackerBackend),
		SQLitePath:            env.Str("SQLITE_PATH", ""),
		YouTubeAPIKey:         env.Str("YOUTUBE_API_KEY", ""),
		YouTubeAPIKeyFallback: env.Str("YOUTUBE_API_KEY_FALLBACK", ""),
		CaptionLangs:          env.List("CAPTION_LANGS", strings.Join(d.CaptionLangs, ",")),
		YouTubeRPS:            env.Float("YOUTUBE_RPS", d.YouTubeRPS),
		Playlists:             env.List("YOUTUBE_PLAYLISTS", ""),
		Channels:              env.List("YOUTUBE_CHANNELS", ""),
		Videos:                env.List("YOUTUBE_VIDEOS", ""),
		ChunkMaxSeconds:       env.Float("CHUNK_MAX_SECONDS", d.ChunkMaxSeconds),
		ChunkMaxChars:         env.Int("CHUNK_MAX_CHARS", d.ChunkMaxChars),
		ReindexInterval:       env.Duration("REINDEX_INTERVAL", d.ReindexInterval),
		IndexWorkers:          env.Int("INDEX_WORKERS", d.IndexWorkers),
		FetchTimeout:          env.Duration("FETCH_TIMEOUT", d.FetchTimeout),
		Retry: engine.RetryConfig{
			MaxRetries:  env.Int("RETRY_MAX", d.Retry.MaxRetries),
			InitialWait: env.Duration("RETRY_INITIAL_WAIT", d.Retry.InitialWait),
			MaxWait:     env.Duration("RETRY_MAX_WAIT", d.Retry.MaxWait),
			Multiplier:  env.Float("RETRY_MULTIPLIER", d.Retry.Multiplier),
		},
		SearchDefaultLimit:   env.Int("SEARCH_DEFAULT_LIMIT", d.SearchDefaultLimit),
		SearchMaxLimit:       env.Int("SEARCH_MAX_LIMIT", d.SearchMaxLimit),
		SearchCacheTTL:       env.Duration("CACHE_TTL", d.SearchCacheTTL),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", d.CacheMaxEntries),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", d.CacheCleanupInterval),
		MCPPort:              env.Str("MCP_PORT", d.MCPPort),
		WebPort:              env.Str("WEB_PORT", ""),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	if path := env.Str("INDEXING_CONFIG", ""); path != "" {
		if err := c.LoadIndexingFile(path); err != nil {
			return c, err
		}
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// app is the wired service plus what must be released on exit.
type app struct {
	cfg     engine.Config
	svc     *transcripts.Service
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp connects the configured store and tracker and wires the service.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}

	// The search cache shares Redis with the store only when Redis is the backend.
	cacheRedis := ""
	if cfg.StoreBackend == engine.BackendRedis {
		cacheRedis = cfg.RedisURL
	}
	engine.InitCache(cacheRedis, cfg.SearchCacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval)

	var (
		chunks  transcripts.ChunkStore
		tracker transcripts.Tracker
	)
	switch cfg.StoreBackend {
	case engine.BackendPostgres:
		pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		chunks, tracker = pg, pg.Tracker()
	default:
		rdb, err := store.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		rs := store.NewRedisStore(rdb, cfg.RedisIndex, cfg.RedisPrefix)
		if err := rs.EnsureIndex(ctx); err != nil {
			a.Close()
			return nil, err
		}
		chunks, tracker = rs, store.NewRedisTracker(rdb, cfg.RedisTrackerKey)
	}
	if cfg.TrackerBackend == engine.TrackerSQLite {
		st, err := store.OpenSQLiteTracker(cfg.SQLitePath)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = st.Close() })
		tracker = st
	}

	yt := sources.NewYouTube(sources.YouTubeOptions{
		HTTPClient:     cfg.HTTPClient,
		APIKey:         cfg.YouTubeAPIKey,
		APIKeyFallback: cfg.YouTubeAPIKeyFallback,
		Langs:          cfg.CaptionLangs,
		RPS:            cfg.YouTubeRPS,
	})
	if !yt.HasAPIKey() && (len(cfg.Playlists) > 0 || len(cfg.Channels) > 0) {
		slog.Warn("playlists or channels configured without YOUTUBE_API_KEY; expansion will fail")
	}

	ix := transcripts.NewIndexer(yt, yt, chunks, tracker, transcripts.IndexerConfig{
		Chunk:        transcripts.ChunkOptions{MaxSeconds: cfg.ChunkMaxSeconds, MaxChars: cfg.ChunkMaxChars},
		Retry:        cfg.Retry,
		FetchTimeout: cfg.FetchTimeout,
		Workers:      cfg.IndexWorkers,
		Playlists:    cfg.Playlists,
		Channels:     cfg.Channels,
		Videos:       cfg.Videos,
	})
	a.svc = &transcripts.Service{
		Indexer:  ix,
		Searcher: transcripts.NewSearcher(chunks, cfg.SearchDefaultLimit, cfg.SearchMaxLimit),
		Tracker:  tracker,
	}

	slog.Info("engine ready",
		slog.String("store", cfg.StoreBackend),
		slog.String("tracker", cfg.TrackerBackend),
		slog.Int("playlists", len(cfg.Playlists)),
		slog.Int("channels", len(cfg.Channels)),
		slog.Int("videos", len(cfg.Videos)),
	)
	return a, nil
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(env.Str(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}
