// Package config loads and validates the service configuration from a YAML
// file with environment-variable overrides for secrets and endpoints.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Segment-failure policies for ingestion. With FailureAbort the first failed
// segment fails the whole run; with FailureSkip the failed segment is dropped
// with a warning and the remaining segments are indexed.
const (
	FailureAbort = "abort"
	FailureSkip  = "skip"
)

// Store backend identifiers.
const (
	StoreMemory   = "memory"
	StorePgVector = "pgvector"
	StoreMilvus   = "milvus"
)

// OpenAIConfig configures the OpenAI-compatible model endpoint used for
// transcription, captioning, summarization, answering and embeddings.
type OpenAIConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TextModel      string `yaml:"text_model"`
	VisionModel    string `yaml:"vision_model"`
	WhisperModel   string `yaml:"whisper_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	EmbeddingDim   int    `yaml:"embedding_dim"`
}

// PipelineConfig configures segmentation and enrichment. FramesPerSegment is
// a pointer because an explicit 0 is valid (no keyframes, caption from
// transcript alone) and must not be confused with an absent key.
type PipelineConfig struct {
	SegmentDurationSec float64 `yaml:"segment_duration_sec"`
	FramesPerSegment   *int    `yaml:"frames_per_segment,omitempty"`
	EnrichConcurrency  int     `yaml:"enrich_concurrency"`
	OnSegmentFailure   string  `yaml:"on_segment_failure"`
}

// QueryConfig holds query-time defaults; per-request values override them.
type QueryConfig struct {
	TopK                int      `yaml:"top_k"`
	SimilarityThreshold *float64 `yaml:"similarity_threshold,omitempty"`
	ResponseType        string   `yaml:"response_type"`
}

// MilvusConfig contains connection details for a Milvus store backend.
type MilvusConfig struct {
	Addr       string `yaml:"addr"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	Type        string       `yaml:"type"`
	PostgresURL string       `yaml:"postgres_url"`
	Milvus      MilvusConfig `yaml:"milvus"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the root configuration. It is validated at load time and
// immutable for the lifetime of a service instance; there is no process-wide
// config singleton.
type Config struct {
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Query    QueryConfig    `yaml:"query"`
	Store    StoreConfig    `yaml:"store"`
	Server   ServerConfig   `yaml:"server"`
}

// Load reads the config from path, falling back to defaults when the file
// does not exist, then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration (memory store, no API key).
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.TextModel == "" {
		cfg.OpenAI.TextModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.VisionModel == "" {
		cfg.OpenAI.VisionModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.WhisperModel == "" {
		cfg.OpenAI.WhisperModel = "whisper-1"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.EmbeddingDim == 0 {
		cfg.OpenAI.EmbeddingDim = 1536
	}
	if cfg.Pipeline.SegmentDurationSec == 0 {
		cfg.Pipeline.SegmentDurationSec = 30
	}
	if cfg.Pipeline.FramesPerSegment == nil {
		frames := 6
		cfg.Pipeline.FramesPerSegment = &frames
	}
	if cfg.Pipeline.EnrichConcurrency == 0 {
		cfg.Pipeline.EnrichConcurrency = 4
	}
	if cfg.Pipeline.OnSegmentFailure == "" {
		cfg.Pipeline.OnSegmentFailure = FailureAbort
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 5
	}
	if cfg.Query.ResponseType == "" {
		cfg.Query.ResponseType = "detailed"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = StoreMemory
	}
	if cfg.Store.Milvus.Addr == "" {
		cfg.Store.Milvus.Addr = "localhost:19530"
	}
	if cfg.Store.Milvus.Collection == "" {
		cfg.Store.Milvus.Collection = "video_segments"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY", "API_KEY")
	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL", "BASE_URL")
	setString(&cfg.OpenAI.TextModel, "TEXT_MODEL")
	setString(&cfg.OpenAI.VisionModel, "VISION_MODEL")
	setString(&cfg.OpenAI.WhisperModel, "WHISPER_MODEL")
	setString(&cfg.OpenAI.EmbeddingModel, "EMBEDDING_MODEL")
	if v := os.Getenv("EMBEDDING_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OpenAI.EmbeddingDim = n
		}
	}
	setString(&cfg.Store.Type, "STORE")
	setString(&cfg.Store.PostgresURL, "POSTGRES_URL", "DATABASE_URL")
	setString(&cfg.Store.Milvus.Addr, "MILVUS_ADDR")
	setString(&cfg.Store.Milvus.Username, "MILVUS_USERNAME")
	setString(&cfg.Store.Milvus.Password, "MILVUS_PASSWORD")
	setString(&cfg.Store.Milvus.APIKey, "MILVUS_API_KEY")
	setString(&cfg.Store.Milvus.Collection, "MILVUS_COLLECTION")
	setString(&cfg.Server.Addr, "SERVER_ADDR")
}

func setString(dst *string, keys ...string) {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			*dst = v
			return
		}
	}
}

// Validate rejects invalid configuration at construction time.
func (c *Config) Validate() error {
	var problems []string
	if c.Pipeline.SegmentDurationSec <= 0 {
		problems = append(problems, "pipeline.segment_duration_sec must be > 0")
	}
	if f := c.Pipeline.FramesPerSegment; f != nil && *f < 0 {
		problems = append(problems, "pipeline.frames_per_segment must be >= 0")
	}
	if c.Pipeline.EnrichConcurrency < 1 {
		problems = append(problems, "pipeline.enrich_concurrency must be >= 1")
	}
	switch c.Pipeline.OnSegmentFailure {
	case FailureAbort, FailureSkip:
	default:
		problems = append(problems, fmt.Sprintf("pipeline.on_segment_failure must be %q or %q", FailureAbort, FailureSkip))
	}
	if c.Query.TopK <= 0 {
		problems = append(problems, "query.top_k must be > 0")
	}
	if t := c.Query.SimilarityThreshold; t != nil && (*t < 0 || *t > 1) {
		problems = append(problems, "query.similarity_threshold must be in [0,1]")
	}
	switch c.Store.Type {
	case StoreMemory, StorePgVector, StoreMilvus:
	default:
		problems = append(problems, fmt.Sprintf("store.type must be one of %s, %s, %s", StoreMemory, StorePgVector, StoreMilvus))
	}
	if c.Store.Type == StorePgVector && strings.TrimSpace(c.Store.PostgresURL) == "" {
		problems = append(problems, "store.postgres_url is required for the pgvector store")
	}
	if c.OpenAI.EmbeddingDim <= 0 {
		problems = append(problems, "openai.embedding_dim must be > 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
