package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"videorag/config"
	"videorag/core"
)

// MilvusStore is the Milvus-backed store adapter. The primary key is the
// caller-assigned record_id "session_id/segment_id", which makes Upsert
// idempotent per (session, segment).
type MilvusStore struct {
	mc   client.Client
	coll string
	dim  int
}

// NewMilvusStore connects to Milvus and ensures the collection and index.
func NewMilvusStore(ctx context.Context, cfg config.MilvusConfig, dim int) (*MilvusStore, error) {
	mc, err := client.NewClient(ctx, client.Config{
		Address:  cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		APIKey:   cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	s := &MilvusStore{mc: mc, coll: cfg.Collection, dim: dim}
	if err := s.ensureSchemaAndIndex(ctx); err != nil {
		_ = mc.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the Milvus connection.
func (s *MilvusStore) Close() error { return s.mc.Close() }

func (s *MilvusStore) ensureSchemaAndIndex(ctx context.Context) error {
	has, err := s.mc.HasCollection(ctx, s.coll)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if !has {
		schema := entity.NewSchema().WithName(s.coll)
		schema.WithField(entity.NewField().WithName("record_id").WithIsPrimaryKey(true).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256))
		schema.WithField(entity.NewField().WithName("session_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("segment_id").WithDataType(entity.FieldTypeVarChar).WithMaxLength(128))
		schema.WithField(entity.NewField().WithName("start").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("end").WithDataType(entity.FieldTypeDouble))
		schema.WithField(entity.NewField().WithName("summary").WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		schema.WithField(entity.NewField().WithName("key_points").WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		schema.WithField(entity.NewField().WithName("caption").WithDataType(entity.FieldTypeVarChar).WithMaxLength(8192))
		schema.WithField(entity.NewField().WithName("transcript").WithDataType(entity.FieldTypeVarChar).WithMaxLength(16384))
		schema.WithField(entity.NewField().WithName("vector").WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))
		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
	if err != nil {
		return fmt.Errorf("new hnsw index: %w", err)
	}
	if err := s.mc.CreateIndex(ctx, s.coll, "vector", idx, false, client.WithIndexName("idx_vector")); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := s.mc.LoadCollection(ctx, s.coll, false); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

func (s *MilvusStore) Upsert(ctx context.Context, records []core.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	recordIDs := make([]string, 0, len(records))
	sessionIDs := make([]string, 0, len(records))
	segmentIDs := make([]string, 0, len(records))
	starts := make([]float64, 0, len(records))
	ends := make([]float64, 0, len(records))
	summaries := make([]string, 0, len(records))
	keyPoints := make([]string, 0, len(records))
	captions := make([]string, 0, len(records))
	transcripts := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))

	allIDs := make([]string, 0, len(records))
	for _, rec := range records {
		points, err := json.Marshal(rec.KeyPoints)
		if err != nil {
			points = []byte("[]")
		}
		recordIDs = append(recordIDs, rec.SessionID+"/"+rec.SegmentID)
		sessionIDs = append(sessionIDs, rec.SessionID)
		segmentIDs = append(segmentIDs, rec.SegmentID)
		starts = append(starts, rec.Start)
		ends = append(ends, rec.End)
		summaries = append(summaries, rec.Summary)
		keyPoints = append(keyPoints, string(points))
		captions = append(captions, rec.Caption)
		transcripts = append(transcripts, rec.Transcript)
		vectors = append(vectors, rec.Embedding)
		allIDs = append(allIDs, rec.SegmentID)
	}

	_, err := s.mc.Upsert(ctx, s.coll, "",
		entity.NewColumnVarChar("record_id", recordIDs),
		entity.NewColumnVarChar("session_id", sessionIDs),
		entity.NewColumnVarChar("segment_id", segmentIDs),
		entity.NewColumnDouble("start", starts),
		entity.NewColumnDouble("end", ends),
		entity.NewColumnVarChar("summary", summaries),
		entity.NewColumnVarChar("key_points", keyPoints),
		entity.NewColumnVarChar("caption", captions),
		entity.NewColumnVarChar("transcript", transcripts),
		entity.NewColumnFloatVector("vector", s.dim, vectors),
	)
	if err != nil {
		// Milvus applies the batch atomically, so every id is unwritten.
		return &core.PartialUpsertError{SessionID: records[0].SessionID, FailedIDs: allIDs, Cause: err}
	}
	return nil
}

func (s *MilvusStore) Search(ctx context.Context, sessionID string, vector []float32, topK int, threshold *float64) ([]core.EvidenceItem, error) {
	sp, err := entity.NewIndexHNSWSearchParam(74)
	if err != nil {
		return nil, &core.StorageError{Op: "search", SessionID: sessionID, Cause: err}
	}
	results, err := s.mc.Search(ctx, s.coll, []string{}, sessionFilter(sessionID),
		[]string{"segment_id", "start", "end", "summary", "key_points", "caption", "transcript"},
		[]entity.Vector{entity.FloatVector(vector)}, "vector", entity.COSINE, topK, sp)
	if err != nil {
		return nil, &core.StorageError{Op: "search", SessionID: sessionID, Cause: err}
	}

	var items []core.EvidenceItem
	for _, r := range results {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		for i := 0; i < r.ResultCount; i++ {
			sim := float64(r.Scores[i])
			if threshold != nil && sim < *threshold {
				continue
			}
			it := core.EvidenceItem{Similarity: sim}
			it.SegmentID = varcharAt(cols, "segment_id", i)
			it.Start = doubleAt(cols, "start", i)
			it.End = doubleAt(cols, "end", i)
			it.Summary = varcharAt(cols, "summary", i)
			it.Caption = varcharAt(cols, "caption", i)
			it.Transcript = varcharAt(cols, "transcript", i)
			if raw := varcharAt(cols, "key_points", i); raw != "" {
				_ = json.Unmarshal([]byte(raw), &it.KeyPoints)
			}
			items = append(items, it)
		}
	}
	return items, nil
}

func (s *MilvusStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.mc.Delete(ctx, s.coll, "", sessionFilter(sessionID)); err != nil {
		return &core.StorageError{Op: "delete", SessionID: sessionID, Cause: err}
	}
	return nil
}

func sessionFilter(sessionID string) string {
	return fmt.Sprintf("session_id == %q", strings.ReplaceAll(sessionID, `"`, `\"`))
}

func varcharAt(cols map[string]entity.Column, name string, i int) string {
	if c, ok := cols[name].(*entity.ColumnVarChar); ok {
		data := c.Data()
		if i < len(data) {
			return data[i]
		}
	}
	return ""
}

func doubleAt(cols map[string]entity.Column, name string, i int) float64 {
	if c, ok := cols[name].(*entity.ColumnDouble); ok {
		data := c.Data()
		if i < len(data) {
			return data[i]
		}
	}
	return 0
}
