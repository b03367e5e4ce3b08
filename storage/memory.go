package storage

import (
	"context"
	"math"
	"sort"
	"sync"

	"videorag/core"
)

// MemoryStore is the in-process store backend, used for tests and for
// running without external infrastructure.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]core.IndexRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]map[string]core.IndexRecord{}}
}

func (s *MemoryStore) Upsert(ctx context.Context, records []core.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &core.StorageError{Op: "upsert", SessionID: records[0].SessionID, Cause: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		session := s.sessions[rec.SessionID]
		if session == nil {
			session = map[string]core.IndexRecord{}
			s.sessions[rec.SessionID] = session
		}
		session[rec.SegmentID] = rec
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, sessionID string, vector []float32, topK int, threshold *float64) ([]core.EvidenceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.StorageError{Op: "search", SessionID: sessionID, Cause: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]core.EvidenceItem, 0, len(s.sessions[sessionID]))
	for _, rec := range s.sessions[sessionID] {
		sim := cosineSimilarity(vector, rec.Embedding)
		if threshold != nil && sim < *threshold {
			continue
		}
		items = append(items, core.EvidenceItem{
			SegmentID:  rec.SegmentID,
			Start:      rec.Start,
			End:        rec.End,
			Summary:    rec.Summary,
			KeyPoints:  rec.KeyPoints,
			Caption:    rec.Caption,
			Transcript: rec.Transcript,
			Similarity: sim,
		})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Similarity > items[j].Similarity })
	if topK < len(items) {
		items = items[:topK]
	}
	return items, nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return &core.StorageError{Op: "delete", SessionID: sessionID, Cause: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
