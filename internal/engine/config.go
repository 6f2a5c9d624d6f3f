package engine

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Store and tracker backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	TrackerStore    = "store"
	TrackerSQLite   = "sqlite"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	StoreBackend    string `validate:"oneof=redis postgres"`
	RedisURL        string `validate:"required_if=StoreBackend redis"`
	RedisIndex      string `validate:"required_if=StoreBackend redis"`
	RedisPrefix     string `validate:"required_if=StoreBackend redis"`
	RedisTrackerKey string `validate:"required_if=StoreBackend redis"`
	DatabaseURL     string `validate:"required_if=StoreBackend postgres"`
	TrackerBackend  string `validate:"oneof=store sqlite"`
	SQLitePath      string `validate:"required_if=TrackerBackend sqlite"`

	YouTubeAPIKey         string
	YouTubeAPIKeyFallback string
	CaptionLangs          []string
	YouTubeRPS            float64 `validate:"gt=0"`

	Playlists []string
	Channels  []string
	Videos    []string

	ChunkMaxSeconds float64       `validate:"gte=0"`
	ChunkMaxChars   int           `validate:"gte=0"`
	ReindexInterval time.Duration `validate:"gte=0"`
	IndexWorkers    int           `validate:"min=1,max=64"`
	FetchTimeout    time.Duration `validate:"gt=0"`
	Retry           RetryConfig

	SearchDefaultLimit int           `validate:"min=1,ltefield=SearchMaxLimit"`
	SearchMaxLimit     int           `validate:"min=1,max=1000"`
	SearchCacheTTL     time.Duration `validate:"gte=0"`

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	MCPPort string `validate:"required,numeric"`
	WebPort string `validate:"omitempty,numeric"` // empty disables the HTTP API

	HTTPClient *http.Client `validate:"-"`
}

// DefaultConfig returns the baseline configuration before env and file overrides.
func DefaultConfig() Config {
	return Config{
		StoreBackend:         BackendRedis,
		RedisURL:             "redis://localhost:6379/0",
		RedisIndex:           "video_index",
		RedisPrefix:          "doc:",
		RedisTrackerKey:      "transcripts:indexed_videos",
		TrackerBackend:       TrackerStore,
		CaptionLangs:         []string{"en"},
		YouTubeRPS:           5,
		ChunkMaxSeconds:      30,
		ReindexInterval:      time.Hour,
		IndexWorkers:         4,
		FetchTimeout:         20 * time.Second,
		Retry:                DefaultRetryConfig,
		SearchDefaultLimit:   10,
		SearchMaxLimit:       100,
		SearchCacheTTL:       time.Minute,
		CacheMaxEntries:      1000,
		CacheCleanupInterval: 5 * time.Minute,
		MCPPort:              "8891",
	}
}

var validate = validator.New()

// Validate checks field constraints and normalizes the source id sets.
func (c *Config) Validate() error {
	c.Playlists = uniqueIDs(c.Playlists)
	c.Channels = uniqueIDs(c.Channels)
	c.Videos = uniqueIDs(c.Videos)

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: %w", err)
	}
	if c.ChunkMaxSeconds == 0 && c.ChunkMaxChars == 0 {
		return errors.New("config: at least one of chunk max seconds or chunk max chars must be set")
	}
	if c.StoreBackend == BackendRedis && c.TrackerBackend == TrackerStore && strings.HasPrefix(c.RedisTrackerKey, c.RedisPrefix) {
		return fmt.Errorf("config: tracker key %q must not start with document prefix %q", c.RedisTrackerKey, c.RedisPrefix)
	}
	if c.Retry.MaxRetries < 0 || c.Retry.Multiplier < 1 {
		return fmt.Errorf("config: invalid retry policy %+v", c.Retry)
	}
	return nil
}

// indexingFile mirrors the YAML indexing config:
//
//	sources:
//	  playlists: [PL...]
//	  channels: [UC...]
//	  videos: [dQw4w9WgXcQ]
//	indexing:
//	  interval: 3600
type indexingFile struct {
	Sources struct {
		Playlists []string `yaml:"playlists"`
		Channels  []string `yaml:"channels"`
		Videos    []string `yaml:"videos"`
	} `yaml:"sources"`
	Indexing struct {
		Interval        *int     `yaml:"interval"` // seconds
		ChunkMaxSeconds *float64 `yaml:"chunk_max_seconds"`
		ChunkMaxChars   *int     `yaml:"chunk_max_chars"`
	} `yaml:"indexing"`
}

// LoadIndexingFile merges a YAML indexing file into c. Sources are appended
// to what the environment already configured; indexing values override.
func (c *Config) LoadIndexingFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("indexing config: %w", err)
	}
	var f indexingFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("indexing config %s: %w", path, err)
	}
	c.Playlists = append(c.Playlists, f.Sources.Playlists...)
	c.Channels = append(c.Channels, f.Sources.Channels...)
	c.Videos = append(c.Videos, f.Sources.Videos...)
	if f.Indexing.Interval != nil {
		c.ReindexInterval = time.Duration(*f.Indexing.Interval) * time.Second
	}
	if f.Indexing.ChunkMaxSeconds != nil {
		c.ChunkMaxSeconds = *f.Indexing.ChunkMaxSeconds
	}
	if f.Indexing.ChunkMaxChars != nil {
		c.ChunkMaxChars = *f.Indexing.ChunkMaxChars
	}
	return nil
}

// uniqueIDs trims, drops empties and dedups while keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
