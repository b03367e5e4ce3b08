package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Pipeline.SegmentDurationSec != 30 {
		t.Errorf("default segment duration = %v, want 30", cfg.Pipeline.SegmentDurationSec)
	}
	if cfg.Pipeline.OnSegmentFailure != FailureAbort {
		t.Errorf("default failure policy = %q, want %q", cfg.Pipeline.OnSegmentFailure, FailureAbort)
	}
	if cfg.Query.TopK != 5 {
		t.Errorf("default top_k = %d, want 5", cfg.Query.TopK)
	}
	if cfg.Store.Type != StoreMemory {
		t.Errorf("default store = %q, want %q", cfg.Store.Type, StoreMemory)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.FramesPerSegment == nil || *cfg.Pipeline.FramesPerSegment != 6 {
		t.Errorf("frames_per_segment = %v, want 6", cfg.Pipeline.FramesPerSegment)
	}
}

func TestLoadExplicitZeroFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
pipeline:
  frames_per_segment: 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.FramesPerSegment == nil {
		t.Fatal("frames_per_segment = nil, want explicit 0")
	}
	if *cfg.Pipeline.FramesPerSegment != 0 {
		t.Errorf("frames_per_segment = %d, want 0 to survive defaulting", *cfg.Pipeline.FramesPerSegment)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
pipeline:
  segment_duration_sec: 10
  frames_per_segment: 2
  on_segment_failure: skip
query:
  top_k: 3
  similarity_threshold: 0.4
store:
  type: pgvector
  postgres_url: postgres://localhost/videorag
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.SegmentDurationSec != 10 {
		t.Errorf("segment duration = %v, want 10", cfg.Pipeline.SegmentDurationSec)
	}
	if cfg.Pipeline.OnSegmentFailure != FailureSkip {
		t.Errorf("failure policy = %q, want skip", cfg.Pipeline.OnSegmentFailure)
	}
	if cfg.Query.SimilarityThreshold == nil || *cfg.Query.SimilarityThreshold != 0.4 {
		t.Errorf("threshold = %v, want 0.4", cfg.Query.SimilarityThreshold)
	}
	if cfg.Store.Type != StorePgVector {
		t.Errorf("store = %q, want pgvector", cfg.Store.Type)
	}
	// Unset fields still get defaults.
	if cfg.OpenAI.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("embedding model = %q, want default", cfg.OpenAI.EmbeddingModel)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STORE", "milvus")
	t.Setenv("MILVUS_ADDR", "milvus.internal:19530")
	t.Setenv("EMBEDDING_DIM", "3072")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("api key override not applied")
	}
	if cfg.Store.Type != StoreMilvus {
		t.Errorf("store override not applied: %q", cfg.Store.Type)
	}
	if cfg.Store.Milvus.Addr != "milvus.internal:19530" {
		t.Errorf("milvus addr override not applied: %q", cfg.Store.Milvus.Addr)
	}
	if cfg.OpenAI.EmbeddingDim != 3072 {
		t.Errorf("embedding dim override not applied: %d", cfg.OpenAI.EmbeddingDim)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"zero segment duration", func(c *Config) { c.Pipeline.SegmentDurationSec = 0 }, "segment_duration_sec"},
		{"negative frames", func(c *Config) { n := -1; c.Pipeline.FramesPerSegment = &n }, "frames_per_segment"},
		{"zero top_k", func(c *Config) { c.Query.TopK = 0 }, "top_k"},
		{"threshold above one", func(c *Config) { v := 1.5; c.Query.SimilarityThreshold = &v }, "similarity_threshold"},
		{"threshold below zero", func(c *Config) { v := -0.1; c.Query.SimilarityThreshold = &v }, "similarity_threshold"},
		{"unknown failure policy", func(c *Config) { c.Pipeline.OnSegmentFailure = "retry" }, "on_segment_failure"},
		{"unknown store", func(c *Config) { c.Store.Type = "sqlite" }, "store.type"},
		{"pgvector without url", func(c *Config) { c.Store.Type = StorePgVector; c.Store.PostgresURL = "" }, "postgres_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestThresholdBoundsAccepted(t *testing.T) {
	for _, v := range []float64{0, 1} {
		cfg := Default()
		cfg.Query.SimilarityThreshold = &v
		if err := cfg.Validate(); err != nil {
			t.Errorf("threshold %v rejected: %v", v, err)
		}
	}
}
