package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEnrichmentErrorCarriesSegmentAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &EnrichmentError{SegmentID: "seg-0001-30000-60000", Stage: "caption", Cause: cause}

	if !strings.Contains(err.Error(), "seg-0001-30000-60000") {
		t.Errorf("error message does not name the segment: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "caption") {
		t.Errorf("error message does not name the stage: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
}

func TestEnrichmentErrorCancelled(t *testing.T) {
	err := &EnrichmentError{SegmentID: "seg-0000-0-30000", Stage: "embed", Cause: context.Canceled}
	if !errors.Is(err, context.Canceled) {
		t.Error("cancellation cause not reachable through Unwrap")
	}
}

func TestPartialUpsertErrorListsFailedIDs(t *testing.T) {
	err := &PartialUpsertError{
		SessionID: "session-a",
		FailedIDs: []string{"seg-0001-30000-60000"},
		Cause:     errors.New("timeout"),
	}
	msg := err.Error()
	for _, want := range []string{"session-a", "seg-0001-30000-60000", "1 record(s)"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestErrorsMatchThroughWrapping(t *testing.T) {
	base := &MediaReadError{Path: "/tmp/missing.mp4", Cause: errors.New("no such file")}
	wrapped := fmt.Errorf("ingest: %w", base)

	var mediaErr *MediaReadError
	if !errors.As(wrapped, &mediaErr) {
		t.Fatal("MediaReadError not found through wrapping")
	}
	if mediaErr.Path != "/tmp/missing.mp4" {
		t.Errorf("unexpected path %q", mediaErr.Path)
	}
}

func TestSchemaViolationErrorMessage(t *testing.T) {
	withSeg := &SchemaViolationError{SegmentID: "seg-0002-60000-65000", Detail: "missing field"}
	if !strings.Contains(withSeg.Error(), "seg-0002-60000-65000") {
		t.Errorf("segment id missing from %q", withSeg.Error())
	}
	withoutSeg := &SchemaViolationError{Detail: "missing field"}
	if strings.Contains(withoutSeg.Error(), "segment") {
		t.Errorf("query-path message should not mention a segment: %q", withoutSeg.Error())
	}
}

func TestStorageErrorMessage(t *testing.T) {
	err := &StorageError{Op: "search", SessionID: "session-b", Cause: errors.New("connection refused")}
	for _, want := range []string{"search", "session-b", "connection refused"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("message %q missing %q", err.Error(), want)
		}
	}
}
