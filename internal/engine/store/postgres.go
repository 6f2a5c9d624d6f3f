package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_transcripts/internal/engine"
	"github.com/anatolykoptev/go_transcripts/internal/engine/transcripts"
)

//go:embed schema/*.sql
var schemaFS embed.FS

const chunksTable = "transcript_chunks"

// expectedColumns is the transcript_chunks layout as reported by
// information_schema.columns.data_type.
var expectedColumns = map[string]string{
	"chunk_id":    "text",
	"video_id":    "text",
	"video_title": "text",
	"seq":         "integer",
	"snippet":     "text",
	"start_time":  "double precision",
	"timecode":    "text",
	"snippet_tsv": "tsvector",
}

// PostgresStore keeps chunks in a table with a generated tsvector column
// and ranks matches with ts_rank.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ transcripts.ChunkStore = (*PostgresStore)(nil)

// ConnectPostgres creates a pgx pool, runs the embedded migrations and
// verifies the chunk table layout.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, engine.StoreError("create pgx pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, engine.StoreError("ping postgres", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := s.checkSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

// Tracker returns an indexed-video tracker sharing this pool.
func (s *PostgresStore) Tracker() *PostgresTracker { return &PostgresTracker{pool: s.pool} }

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return engine.StoreError("execute "+entry.Name(), err)
		}
		slog.Info("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

// checkSchema catches a pre-existing transcript_chunks table that
// CREATE TABLE IF NOT EXISTS silently kept.
func (s *PostgresStore) checkSchema(ctx context.Context) error {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1`, chunksTable)
	if err != nil {
		return engine.StoreError("inspect schema", err)
	}
	got := map[string]string{}
	var name, typ string
	_, err = pgx.ForEachRow(rows, []any{&name, &typ}, func() error {
		got[name] = typ
		return nil
	})
	if err != nil {
		return engine.StoreError("inspect schema", err)
	}
	return diffColumns(got)
}

func diffColumns(got map[string]string) error {
	var errs []error
	for col, want := range expectedColumns {
		if got[col] != want {
			errs = append(errs, fmt.Errorf("column %s is %q, want %q", col, got[col], want))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("table %s: %w: %w", chunksTable, engine.ErrSchemaConflict, err)
	}
	return nil
}

const upsertChunkSQL = `INSERT INTO transcript_chunks (chunk_id, video_id, video_title, seq, snippet, start_time, timecode)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (chunk_id) DO UPDATE SET
	video_id = EXCLUDED.video_id,
	video_title = EXCLUDED.video_title,
	seq = EXCLUDED.seq,
	snippet = EXCLUDED.snippet,
	start_time = EXCLUDED.start_time,
	timecode = EXCLUDED.timecode`

// UpsertChunks writes the chunks in one transaction.
func (s *PostgresStore) UpsertChunks(ctx context.Context, chunks []engine.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, c := range chunks {
			batch.Queue(upsertChunkSQL, c.ChunkID, c.VideoID, c.VideoTitle, c.Seq, c.Snippet, c.StartTime, c.Timecode)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return engine.StoreError("upsert chunks", err)
	}
	return nil
}

func (s *PostgresStore) PruneChunks(ctx context.Context, videoID string, keep int) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM transcript_chunks WHERE video_id = $1 AND seq >= $2`, videoID, keep)
	if err != nil {
		return engine.StoreError("prune chunks", err)
	}
	return nil
}

const searchSQL = `SELECT video_id, video_title, start_time, snippet
FROM transcript_chunks, plainto_tsquery('simple', $1) AS q
WHERE snippet_tsv @@ q
ORDER BY ts_rank(snippet_tsv, q) DESC, chunk_id
LIMIT $2 OFFSET $3`

func (s *PostgresStore) Search(ctx context.Context, rawQuery string, limit, offset int) ([]engine.SearchResult, error) {
	q, err := SanitizeQuery(rawQuery)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, searchSQL, q, limit, max(offset, 0))
	if err != nil {
		return nil, engine.StoreError("search", err)
	}
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (engine.SearchResult, error) {
		var r engine.SearchResult
		err := row.Scan(&r.VideoID, &r.VideoTitle, &r.StartTime, &r.Snippet)
		r.Timecode = transcripts.FormatTimecode(r.StartTime)
		return r, err
	})
	if err != nil {
		return nil, engine.StoreError("search", err)
	}
	return results, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (engine.StoreStats, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transcript_chunks`).Scan(&n); err != nil {
		return engine.StoreStats{}, engine.StoreError("stats", err)
	}
	return engine.StoreStats{Backend: engine.BackendPostgres, Index: chunksTable, Documents: n}, nil
}

// PostgresTracker stores indexed videos in the indexed_videos table.
type PostgresTracker struct {
	pool *pgxpool.Pool
}

var _ transcripts.Tracker = (*PostgresTracker)(nil)

func (t *PostgresTracker) IsIndexed(ctx context.Context, videoID string) (bool, error) {
	var ok bool
	err := t.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM indexed_videos WHERE video_id = $1)`, videoID).Scan(&ok)
	if err != nil {
		return false, engine.StoreError("tracker lookup", err)
	}
	return ok, nil
}

func (t *PostgresTracker) MarkIndexed(ctx context.Context, videoID string) error {
	_, err := t.pool.Exec(ctx, `INSERT INTO indexed_videos (video_id) VALUES ($1) ON CONFLICT (video_id) DO NOTHING`, videoID)
	if err != nil {
		return engine.StoreError("tracker mark", err)
	}
	return nil
}

func (t *PostgresTracker) ListIndexed(ctx context.Context) ([]engine.IndexedVideo, error) {
	rows, err := t.pool.Query(ctx, `SELECT video_id, indexed_at FROM indexed_videos ORDER BY indexed_at, video_id`)
	if err != nil {
		return nil, engine.StoreError("tracker list", err)
	}
	videos, err := pgx.CollectRows(rows, pgx.RowToStructByPos[engine.IndexedVideo])
	if err != nil {
		return nil, engine.StoreError("tracker list", err)
	}
	return videos, nil
}
