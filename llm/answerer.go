package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"videorag/core"
)

const answerSystemPrompt = "You answer questions about videos using only the provided evidence. " +
	"Do not bring in outside knowledge. Respond with JSON that follows the schema."

// insufficientEvidenceAnswer is returned without a model call when the
// search produced no evidence. The answer object is still well formed.
const insufficientEvidenceAnswer = "No relevant video segments were found to answer this question."

var answerSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"answer": {"type": "string"},
		"confidence": {
			"type": "number",
			"description": "0-1 confidence estimate for the answer."
		},
		"evidence": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"segment_id": {"type": "string"},
					"start": {"type": "number"},
					"end": {"type": "number"},
					"summary": {"type": "string"},
					"similarity": {"type": "number"}
				},
				"required": ["segment_id", "start", "end", "summary"],
				"additionalProperties": false
			}
		}
	},
	"required": ["answer", "evidence"],
	"additionalProperties": false
}`)

// Answerer turns a question plus ranked evidence into a structured,
// evidence-grounded answer.
type Answerer struct {
	cli   *openai.Client
	model string
}

func NewAnswerer(cli *openai.Client, model string) *Answerer {
	return &Answerer{cli: cli, model: model}
}

// Answer generates an answer grounded in the supplied evidence. Empty
// evidence yields a deterministic insufficient-information answer. A model
// response violating the declared shape is a *core.SchemaViolationError.
func (a *Answerer) Answer(ctx context.Context, question string, evidence []core.EvidenceItem, responseType string) (core.Answer, error) {
	if len(evidence) == 0 {
		zero := 0.0
		return core.Answer{
			Answer:     insufficientEvidenceAnswer,
			Confidence: &zero,
			Evidence:   []core.EvidenceRef{},
		}, nil
	}

	payload, err := json.Marshal(map[string]any{
		"question":      question,
		"response_type": responseType,
		"evidence":      evidence,
	})
	if err != nil {
		return core.Answer{}, fmt.Errorf("encode answer context: %w", err)
	}

	resp, err := a.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: answerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "video_rag_answer",
				Schema: answerSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return core.Answer{}, fmt.Errorf("answer request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return core.Answer{}, fmt.Errorf("answer request: empty response")
	}
	return decodeAnswer(resp.Choices[0].Message.Content)
}

// decodeAnswer validates the model output against the answer shape.
func decodeAnswer(payload string) (core.Answer, error) {
	var raw struct {
		Answer     *string            `json:"answer"`
		Confidence *float64           `json:"confidence"`
		Evidence   []core.EvidenceRef `json:"evidence"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return core.Answer{}, &core.SchemaViolationError{Detail: "answer response is not valid JSON for the declared shape", Cause: err}
	}
	if raw.Answer == nil {
		return core.Answer{}, &core.SchemaViolationError{Detail: "answer response missing required field \"answer\""}
	}
	if raw.Evidence == nil {
		return core.Answer{}, &core.SchemaViolationError{Detail: "answer response missing required field \"evidence\""}
	}
	if raw.Confidence != nil && (*raw.Confidence < 0 || *raw.Confidence > 1) {
		return core.Answer{}, &core.SchemaViolationError{Detail: fmt.Sprintf("answer confidence %v outside [0,1]", *raw.Confidence)}
	}
	return core.Answer{Answer: *raw.Answer, Confidence: raw.Confidence, Evidence: raw.Evidence}, nil
}
