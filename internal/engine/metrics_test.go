package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFormatMetrics(t *testing.T) {
	before := GetMetrics()
	IncrIndexRuns()
	IncrVideosFailed()
	AddChunksUpserted(3)
	after := GetMetrics()

	if after["index_runs"]-before["index_runs"] != 1 {
		t.Errorf("index_runs delta = %d", after["index_runs"]-before["index_runs"])
	}
	if after["chunks_upserted"]-before["chunks_upserted"] != 3 {
		t.Errorf("chunks_upserted delta = %d", after["chunks_upserted"]-before["chunks_upserted"])
	}

	lines := strings.Split(strings.TrimSpace(FormatMetrics()), "\n")
	if len(lines) != len(metricKeys) {
		t.Fatalf("got %d lines, want %d", len(lines), len(metricKeys))
	}
	for i, k := range metricKeys {
		if !strings.HasPrefix(lines[i], k+" ") {
			t.Errorf("line %d = %q, want key %s", i, lines[i], k)
		}
	}
}

func TestTrackOperation(t *testing.T) {
	want := errors.New("boom")
	err := TrackOperation(context.Background(), "op", time.Hour, func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}
