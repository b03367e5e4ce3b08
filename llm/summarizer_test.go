package llm

import (
	"errors"
	"strings"
	"testing"

	"videorag/core"
)

func TestSummaryPromptSubstitutesMarkers(t *testing.T) {
	tests := []struct {
		name                string
		transcript, caption string
		wants               []string
	}{
		{"both present", "hello world", "a desk", []string{"Transcript:\nhello world", "Caption:\na desk"}},
		{"empty transcript", "", "a desk", []string{"Transcript:\nN/A", "Caption:\na desk"}},
		{"empty caption", "hello", "", []string{"Caption:\nN/A"}},
		{"whitespace only transcript", "   \n", "a desk", []string{"Transcript:\nN/A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summaryPrompt(tt.transcript, tt.caption)
			for _, want := range tt.wants {
				if !strings.Contains(got, want) {
					t.Errorf("prompt %q missing %q", got, want)
				}
			}
		})
	}
}

func TestDecodeSummaryValid(t *testing.T) {
	got, err := decodeSummary(`{"summary":"A short recap.","key_points":["one","two"]}`)
	if err != nil {
		t.Fatalf("decodeSummary: %v", err)
	}
	if got.Summary != "A short recap." {
		t.Errorf("summary = %q", got.Summary)
	}
	if len(got.KeyPoints) != 2 || got.KeyPoints[0] != "one" {
		t.Errorf("key points = %v", got.KeyPoints)
	}
}

func TestDecodeSummaryEmptyKeyPoints(t *testing.T) {
	got, err := decodeSummary(`{"summary":"Silent scene.","key_points":[]}`)
	if err != nil {
		t.Fatalf("decodeSummary: %v", err)
	}
	if len(got.KeyPoints) != 0 {
		t.Errorf("key points = %v, want empty", got.KeyPoints)
	}
}

func TestDecodeSummaryViolations(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "a plain sentence"},
		{"missing summary", `{"key_points":["one"]}`},
		{"missing key_points", `{"summary":"x"}`},
		{"unknown field", `{"summary":"x","key_points":[],"extra":true}`},
		{"wrong key_points type", `{"summary":"x","key_points":"one"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeSummary(tt.payload)
			var schemaErr *core.SchemaViolationError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("got %v, want SchemaViolationError", err)
			}
		})
	}
}
