// Package llm wraps the OpenAI-compatible collaborators of the pipeline:
// transcription, captioning, summarization, embedding and answer generation.
// Structured responses are validated at this boundary; a response that does
// not match its declared shape is a *core.SchemaViolationError.
package llm

import (
	"videorag/config"

	openai "github.com/sashabaranov/go-openai"
)

// NewClient builds the shared OpenAI-compatible client. One client instance
// serves all collaborators of a pipeline.
func NewClient(cfg config.OpenAIConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
