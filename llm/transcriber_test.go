package llm

import (
	"context"
	"path/filepath"
	"testing"
)

func TestTranscribeEmptyPathYieldsEmptyTranscript(t *testing.T) {
	// Segments without an audio stream carry no audio path. That is "no
	// transcript available", not an error; no remote call is attempted.
	tr := NewTranscriber(nil, "whisper-1")
	got, err := tr.Transcribe(context.Background(), "")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
}

func TestTranscribeMissingFileYieldsEmptyTranscript(t *testing.T) {
	tr := NewTranscriber(nil, "whisper-1")
	got, err := tr.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.wav"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
}
