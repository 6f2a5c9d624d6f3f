package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
)

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("YOUTUBE_VIDEOS", "v1,v2,v1")
	t.Setenv("CHUNK_MAX_SECONDS", "45")
	t.Setenv("REINDEX_INTERVAL", "10m")
	t.Setenv("WEB_PORT", "8080")

	c, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if len(c.Videos) != 2 || c.Videos[0] != "v1" || c.Videos[1] != "v2" {
		t.Errorf("Videos = %v", c.Videos)
	}
	if c.ChunkMaxSeconds != 45 || c.ReindexInterval != 10*time.Minute || c.WebPort != "8080" {
		t.Errorf("config = %+v", c)
	}
	if c.StoreBackend != engine.BackendRedis || c.MCPPort != "8891" {
		t.Errorf("defaults not applied: %+v", c)
	}
}

func TestLoadConfig_IndexingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexing.yaml")
	yaml := "sources:\n  playlists: [PL1]\n  videos: [v9]\nindexing:\n  interval: 60\n  chunk_max_chars: 500\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INDEXING_CONFIG", path)

	c, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if len(c.Playlists) != 1 || c.Playlists[0] != "PL1" || len(c.Videos) != 1 {
		t.Errorf("sources = %v %v", c.Playlists, c.Videos)
	}
	if c.ReindexInterval != time.Minute || c.ChunkMaxChars != 500 {
		t.Errorf("indexing = %v %d", c.ReindexInterval, c.ChunkMaxChars)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	if _, err := loadConfig(); err == nil || !strings.Contains(err.Error(), "DatabaseURL") {
		t.Fatalf("err = %v, want DatabaseURL validation error", err)
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("FLAG_A", "false")
	t.Setenv("FLAG_B", "nonsense")
	if envBool("FLAG_A", true) {
		t.Error("FLAG_A should be false")
	}
	if !envBool("FLAG_B", true) {
		t.Error("unparsable value should fall back to default")
	}
	if envBool("FLAG_UNSET", false) {
		t.Error("unset should use default")
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, engine.TranscriptSearchOutput{Query: "nothing"})
	if !strings.Contains(buf.String(), `No matches for "nothing"`) {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	printResults(&buf, engine.TranscriptSearchOutput{
		Query:  "consensus",
		Offset: 10,
		Results: []engine.SearchResult{{
			VideoID: "abc", VideoTitle: "Talk", StartTime: 75, Timecode: "01:15", Snippet: "consensus is hard",
		}},
	})
	out := buf.String()
	for _, want := range []string{"11. [01:15] Talk", "consensus is hard", "watch?v=abc&t=75s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
