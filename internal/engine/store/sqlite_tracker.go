package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
)

// SQLiteTracker keeps the indexed set in a local SQLite file, for setups
// where the chunk store should not also hold bookkeeping.
type SQLiteTracker struct {
	db *sql.DB
}

var _ transcripts.Tracker = (*SQLiteTracker)(nil)

// OpenSQLiteTracker opens (or creates) the tracker database at path.
func OpenSQLiteTracker(path string) (*SQLiteTracker, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("tracker: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tracker: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS indexed_videos (
		video_id   TEXT PRIMARY KEY,
		indexed_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("tracker: init schema: %w", err)
	}
	return &SQLiteTracker{db: db}, nil
}

func (t *SQLiteTracker) Close() error { return t.db.Close() }

func (t *SQLiteTracker) IsIndexed(ctx context.Context, videoID string) (bool, error) {
	var n int
	err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM indexed_videos WHERE video_id = ?`, videoID).Scan(&n)
	if err != nil {
		return false, engine.StoreError("tracker lookup", err)
	}
	return n > 0, nil
}

func (t *SQLiteTracker) MarkIndexed(ctx context.Context, videoID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := t.db.ExecContext(ctx, `INSERT OR IGNORE INTO indexed_videos (video_id, indexed_at) VALUES (?, ?)`, videoID, now)
	if err != nil {
		return engine.StoreError("tracker mark", err)
	}
	return nil
}

func (t *SQLiteTracker) ListIndexed(ctx context.Context) ([]engine.IndexedVideo, error) {
	rows, err := t.db.QueryContext(ctx, `SELECT video_id, indexed_at FROM indexed_videos`)
	if err != nil {
		return nil, engine.StoreError("tracker list", err)
	}
	defer rows.Close()

	var videos []engine.IndexedVideo
	for rows.Next() {
		var id, ts string
		if err := rows.Scan(&id, &ts); err != nil {
			return nil, engine.StoreError("tracker list", err)
		}
		at, _ := time.Parse(time.RFC3339Nano, ts)
		videos = append(videos, engine.IndexedVideo{VideoID: id, IndexedAt: at})
	}
	if err := rows.Err(); err != nil {
		return nil, engine.StoreError("tracker list", err)
	}
	sortIndexed(videos)
	return videos, nil
}
