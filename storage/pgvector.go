package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"videorag/core"
)

// PgVectorStore persists records in Postgres with the pgvector extension,
// using cosine distance for similarity search.
type PgVectorStore struct {
	pool *pgxpool.Pool
}

// NewPgVectorStore connects to Postgres and ensures the schema. dim is the
// embedding dimensionality of the configured model.
func NewPgVectorStore(ctx context.Context, url string, dim int) (*PgVectorStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &PgVectorStore{pool: pool}
	if err := s.ensureSchema(ctx, dim); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the connection pool.
func (s *PgVectorStore) Close() { s.pool.Close() }

func (s *PgVectorStore) ensureSchema(ctx context.Context, dim int) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS video_segments (
			session_id  TEXT NOT NULL,
			segment_id  TEXT NOT NULL,
			start_sec   DOUBLE PRECISION NOT NULL,
			end_sec     DOUBLE PRECISION NOT NULL,
			summary     TEXT NOT NULL DEFAULT '',
			key_points  TEXT[] NOT NULL DEFAULT '{}',
			caption     TEXT NOT NULL DEFAULT '',
			transcript  TEXT NOT NULL DEFAULT '',
			embedding   vector(%d),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (session_id, segment_id)
		);
	`, dim)
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create video_segments table: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		"CREATE INDEX IF NOT EXISTS idx_video_segments_session ON video_segments(session_id);"); err != nil {
		return fmt.Errorf("create session index: %w", err)
	}
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, records []core.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	var failed []string
	var firstErr error
	for _, rec := range records {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO video_segments
				(session_id, segment_id, start_sec, end_sec, summary, key_points, caption, transcript, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (session_id, segment_id) DO UPDATE SET
				start_sec  = EXCLUDED.start_sec,
				end_sec    = EXCLUDED.end_sec,
				summary    = EXCLUDED.summary,
				key_points = EXCLUDED.key_points,
				caption    = EXCLUDED.caption,
				transcript = EXCLUDED.transcript,
				embedding  = EXCLUDED.embedding
		`, rec.SessionID, rec.SegmentID, rec.Start, rec.End, rec.Summary, rec.KeyPoints,
			rec.Caption, rec.Transcript, pgvector.NewVector(rec.Embedding))
		if err != nil {
			failed = append(failed, rec.SegmentID)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if len(failed) > 0 {
		return &core.PartialUpsertError{SessionID: records[0].SessionID, FailedIDs: failed, Cause: firstErr}
	}
	return nil
}

func (s *PgVectorStore) Search(ctx context.Context, sessionID string, vector []float32, topK int, threshold *float64) ([]core.EvidenceItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT segment_id, start_sec, end_sec, summary, key_points, caption, transcript,
		       1 - (embedding <=> $1) AS similarity
		FROM video_segments
		WHERE session_id = $2
		  AND ($4::float8 IS NULL OR 1 - (embedding <=> $1) >= $4)
		ORDER BY embedding <=> $1
		LIMIT $3
	`, pgvector.NewVector(vector), sessionID, topK, threshold)
	if err != nil {
		return nil, &core.StorageError{Op: "search", SessionID: sessionID, Cause: err}
	}
	defer rows.Close()

	var items []core.EvidenceItem
	for rows.Next() {
		var it core.EvidenceItem
		if err := rows.Scan(&it.SegmentID, &it.Start, &it.End, &it.Summary, &it.KeyPoints,
			&it.Caption, &it.Transcript, &it.Similarity); err != nil {
			return nil, &core.StorageError{Op: "search", SessionID: sessionID, Cause: err}
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.StorageError{Op: "search", SessionID: sessionID, Cause: err}
	}
	return items, nil
}

func (s *PgVectorStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM video_segments WHERE session_id = $1", sessionID); err != nil {
		return &core.StorageError{Op: "delete", SessionID: sessionID, Cause: err}
	}
	return nil
}
