package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"videorag/core"
)

const captionSystemPrompt = "You are an assistant that describes short video segments. " +
	"Provide concise but information dense captions."

// Captioner produces a visual caption for one segment using a multimodal
// model. Segments without keyframes are captioned from transcript context
// alone; missing visuals are never an error.
type Captioner struct {
	cli   *openai.Client
	model string
}

func NewCaptioner(cli *openai.Client, model string) *Captioner {
	return &Captioner{cli: cli, model: model}
}

// captionPrompt composes the text part of the request. The branch for
// frame-less segments keeps the output contract identical: a caption is
// produced either way.
func captionPrompt(segment core.Segment, transcript string) string {
	lead := "Analyze the provided video frames and transcript."
	if len(segment.Keyframes) == 0 {
		lead = "No frames were extracted for this segment. Use the transcript (if any) to summarize the visuals."
	}
	if strings.TrimSpace(transcript) == "" {
		transcript = "N/A"
	}
	return fmt.Sprintf("%s\nSegment time range: %s-%s.\n\nTranscript:\n%s\nDescribe the scene, important actions and any visible text.",
		lead, core.FormatTime(segment.Start), core.FormatTime(segment.End), transcript)
}

// Describe returns a trimmed caption for the segment.
func (c *Captioner) Describe(ctx context.Context, segment core.Segment, transcript string) (string, error) {
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: captionPrompt(segment, transcript),
	}}
	for _, frame := range segment.Keyframes {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: frame, Detail: openai.ImageURLDetailAuto},
		})
	}

	resp, err := c.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: captionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		return "", fmt.Errorf("caption request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("caption request: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
