package core

import (
	"fmt"
	"strings"
)

// MediaReadError reports an unreadable or zero-duration source video.
// Fatal for the ingestion run; retrying without fixing the source is useless.
type MediaReadError struct {
	Path  string
	Cause error
}

func (e *MediaReadError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("media read %s: unreadable source", e.Path)
	}
	return fmt.Sprintf("media read %s: %v", e.Path, e.Cause)
}

func (e *MediaReadError) Unwrap() error { return e.Cause }

// EnrichmentError reports a failed or cancelled remote enrichment call for
// one segment. Retryable per segment.
type EnrichmentError struct {
	SegmentID string
	Stage     string // transcribe, caption, summarize, embed, query-embedding
	Cause     error
}

func (e *EnrichmentError) Error() string {
	if e.SegmentID == "" {
		return fmt.Sprintf("enrichment %s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("enrichment %s for segment %s: %v", e.Stage, e.SegmentID, e.Cause)
}

func (e *EnrichmentError) Unwrap() error { return e.Cause }

// SchemaViolationError reports a structured model response that failed shape
// validation. Fatal for that unit of work; it signals a contract break with
// the generation service and is not retried automatically.
type SchemaViolationError struct {
	SegmentID string // empty on the query path
	Detail    string
	Cause     error
}

func (e *SchemaViolationError) Error() string {
	msg := "schema violation: " + e.Detail
	if e.SegmentID != "" {
		msg = fmt.Sprintf("schema violation for segment %s: %s", e.SegmentID, e.Detail)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SchemaViolationError) Unwrap() error { return e.Cause }

// PartialUpsertError reports a bulk write where some records persisted and
// others did not. FailedIDs lists the segment ids that did not persist so the
// caller can retry selectively (or re-run the whole video; upsert is
// idempotent by id either way).
type PartialUpsertError struct {
	SessionID string
	FailedIDs []string
	Cause     error
}

func (e *PartialUpsertError) Error() string {
	msg := fmt.Sprintf("partial upsert for session %s: %d record(s) failed [%s]",
		e.SessionID, len(e.FailedIDs), strings.Join(e.FailedIDs, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PartialUpsertError) Unwrap() error { return e.Cause }

// StorageError reports a failed search or delete against the vector store.
// Retryable.
type StorageError struct {
	Op        string // search, delete
	SessionID string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s for session %s: %v", e.Op, e.SessionID, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }
