package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber turns a segment's extracted audio into transcript text.
type Transcriber struct {
	cli   *openai.Client
	model string
}

func NewTranscriber(cli *openai.Client, model string) *Transcriber {
	return &Transcriber{cli: cli, model: model}
}

// Transcribe returns the transcript for the audio file at audioPath. An
// empty or missing path yields an empty transcript, not an error: segments
// without audio still flow through the pipeline.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if audioPath == "" {
		return "", nil
	}
	if _, err := os.Stat(audioPath); errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	resp, err := t.cli.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
