// Package storage adapts the remote vector-capable stores behind one
// session-partitioned interface. Records are keyed by (session_id,
// segment_id); all reads and writes are scoped to a session.
package storage

import (
	"context"
	"fmt"

	"videorag/config"
	"videorag/core"
)

// VectorStore is the store adapter used by the pipeline.
//
// Upsert is idempotent by (session_id, segment_id) and a no-op on empty
// input; a batch where some records fail returns *core.PartialUpsertError
// listing the failed segment ids while the successful writes stay written.
// Search restricts results to the session, ranks by descending similarity,
// truncates to at most k items and drops items below the threshold when one
// is supplied; equal-similarity order is backend-defined. DeleteSession is
// idempotent.
type VectorStore interface {
	Upsert(ctx context.Context, records []core.IndexRecord) error
	Search(ctx context.Context, sessionID string, vector []float32, topK int, threshold *float64) ([]core.EvidenceItem, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// New builds the store backend selected by the configuration.
func New(ctx context.Context, cfg config.StoreConfig, dim int) (VectorStore, error) {
	switch cfg.Type {
	case config.StoreMemory:
		return NewMemoryStore(), nil
	case config.StorePgVector:
		return NewPgVectorStore(ctx, cfg.PostgresURL, dim)
	case config.StoreMilvus:
		return NewMilvusStore(ctx, cfg.Milvus, dim)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}
