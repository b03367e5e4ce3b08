// Package core holds the domain types and error taxonomy shared by the
// ingestion and query pipelines.
package core

import (
	"fmt"
	"math"
	"strings"
)

// Segment is one temporal slice of a source video. Segments are immutable
// once produced and belong to the ingestion run that created them; backing
// artifacts live in the run's workspace.
type Segment struct {
	ID    string  `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	// Keyframes are JPEG stills encoded as data URLs, in temporal order.
	Keyframes []string `json:"keyframes,omitempty"`
	// AudioPath points at the extracted per-segment audio file. Empty when
	// the source carries no audio stream.
	AudioPath string `json:"audio_path,omitempty"`
}

// SegmentSummary is the structured output of the summarization step.
type SegmentSummary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// IndexRecord is the per-segment row persisted in the vector store. One
// record exists per (SessionID, SegmentID); re-ingesting overwrites it.
type IndexRecord struct {
	SessionID  string    `json:"session_id"`
	SegmentID  string    `json:"segment_id"`
	Start      float64   `json:"start"`
	End        float64   `json:"end"`
	Summary    string    `json:"summary"`
	KeyPoints  []string  `json:"key_points"`
	Caption    string    `json:"caption"`
	Transcript string    `json:"transcript"`
	Embedding  []float32 `json:"embedding"`
}

// EvidenceItem is a read-only projection of an IndexRecord plus the
// similarity score assigned by the store. Produced at query time only, never
// persisted.
type EvidenceItem struct {
	SegmentID  string   `json:"segment_id"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"key_points,omitempty"`
	Caption    string   `json:"caption"`
	Transcript string   `json:"transcript"`
	Similarity float64  `json:"similarity"`
}

// EvidenceRef is one cited item inside an Answer.
type EvidenceRef struct {
	SegmentID  string   `json:"segment_id"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Summary    string   `json:"summary"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// Answer is the structured, evidence-grounded result of a query.
type Answer struct {
	Answer     string        `json:"answer"`
	Confidence *float64      `json:"confidence,omitempty"`
	Evidence   []EvidenceRef `json:"evidence"`
}

// Workspace owns the temporary artifacts of one ingestion run. Release must
// be called on every exit path; a workspace that outlives its run is a leak.
type Workspace interface {
	Root() string
	Release() error
}

// SegmentID derives a segment identifier from the ordinal index and the
// millisecond-rounded boundaries. Re-segmenting the same video with the same
// parameters reproduces identical ids, which is what makes re-ingestion
// overwrite instead of duplicate.
func SegmentID(index int, start, end float64) string {
	return fmt.Sprintf("seg-%04d-%d-%d", index, int64(math.Round(start*1000)), int64(math.Round(end*1000)))
}

// BuildEmbeddingInput concatenates the enrichment text of a segment under
// fixed, labeled headers. The order and labels are part of the contract: the
// same layout is fed to the embedding model at ingest time, so changing it
// would shift every stored vector.
func BuildEmbeddingInput(summary SegmentSummary, caption, transcript string) string {
	return fmt.Sprintf("Summary:\n%s\nKey Points:\n%s\nCaption:\n%s\nTranscript:\n%s",
		summary.Summary, strings.Join(summary.KeyPoints, "\n"), caption, transcript)
}

// FormatTime renders a timestamp in seconds as mm:ss for prompts and logs.
func FormatTime(sec float64) string {
	sec = math.Max(sec, 0)
	m := int(sec) / 60
	s := int(sec) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
