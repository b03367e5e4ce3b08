package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"videorag/core"
)

const summarySystemPrompt = "You are a senior editor summarizing video segments. " +
	"Return structured JSON adhering to the provided schema."

var summarySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"summary": {
			"type": "string",
			"description": "One paragraph summary of the segment."
		},
		"key_points": {
			"type": "array",
			"items": {"type": "string"},
			"description": "Important bullet points extracted from the segment."
		}
	},
	"required": ["summary", "key_points"],
	"additionalProperties": false
}`)

// Summarizer turns a segment's transcript and caption into a structured
// summary with key points.
type Summarizer struct {
	cli   *openai.Client
	model string
}

func NewSummarizer(cli *openai.Client, model string) *Summarizer {
	return &Summarizer{cli: cli, model: model}
}

// summaryPrompt substitutes an explicit marker for empty inputs so the model
// always receives a well-formed prompt.
func summaryPrompt(transcript, caption string) string {
	if strings.TrimSpace(transcript) == "" {
		transcript = "N/A"
	}
	if strings.TrimSpace(caption) == "" {
		caption = "N/A"
	}
	return fmt.Sprintf("Transcript:\n%s\n\nCaption:\n%s", transcript, caption)
}

// Summarize requests a schema-constrained summary. A response that does not
// conform to the declared shape is a *core.SchemaViolationError, never
// silently coerced.
func (s *Summarizer) Summarize(ctx context.Context, transcript, caption string) (core.SegmentSummary, error) {
	resp, err := s.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: summaryPrompt(transcript, caption)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "segment_summary",
				Schema: summarySchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return core.SegmentSummary{}, fmt.Errorf("summary request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return core.SegmentSummary{}, fmt.Errorf("summary request: empty response")
	}
	return decodeSummary(resp.Choices[0].Message.Content)
}

// decodeSummary validates the model output against the summary shape.
func decodeSummary(payload string) (core.SegmentSummary, error) {
	var raw struct {
		Summary   *string   `json:"summary"`
		KeyPoints *[]string `json:"key_points"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return core.SegmentSummary{}, &core.SchemaViolationError{Detail: "summary response is not valid JSON for the declared shape", Cause: err}
	}
	if raw.Summary == nil {
		return core.SegmentSummary{}, &core.SchemaViolationError{Detail: "summary response missing required field \"summary\""}
	}
	if raw.KeyPoints == nil {
		return core.SegmentSummary{}, &core.SchemaViolationError{Detail: "summary response missing required field \"key_points\""}
	}
	return core.SegmentSummary{Summary: *raw.Summary, KeyPoints: *raw.KeyPoints}, nil
}
