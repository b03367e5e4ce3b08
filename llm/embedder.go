package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder turns text into a fixed-dimension vector. The same instance is
// used for segment enrichment text at ingest time and for the raw question
// at query time, so both land in the same embedding space.
type Embedder struct {
	cli   *openai.Client
	model string
}

func NewEmbedder(cli *openai.Client, model string) *Embedder {
	return &Embedder{cli: cli, model: model}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embedding request: no embedding returned")
	}
	return resp.Data[0].Embedding, nil
}
