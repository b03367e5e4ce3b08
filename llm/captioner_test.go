package llm

import (
	"strings"
	"testing"

	"videorag/core"
)

func TestCaptionPromptWithFrames(t *testing.T) {
	seg := core.Segment{Start: 30, End: 60, Keyframes: []string{"a", "b", "c", "d"}}
	got := captionPrompt(seg, "someone is talking")
	if !strings.Contains(got, "Analyze the provided video frames") {
		t.Errorf("frame branch not taken: %q", got)
	}
	if !strings.Contains(got, "Transcript:\nsomeone is talking") {
		t.Errorf("transcript missing: %q", got)
	}
}

func TestCaptionPromptWithoutFrames(t *testing.T) {
	// Zero keyframes must still produce a prompt; the captioner works from
	// transcript context alone.
	got := captionPrompt(core.Segment{Start: 0, End: 30}, "someone is talking")
	if !strings.Contains(got, "No frames were extracted") {
		t.Errorf("frame-less branch not taken: %q", got)
	}
}

func TestCaptionPromptEmptyTranscript(t *testing.T) {
	got := captionPrompt(core.Segment{Start: 0, End: 30}, "")
	if !strings.Contains(got, "Transcript:\nN/A") {
		t.Errorf("empty transcript not substituted: %q", got)
	}
}

func TestCaptionPromptTimeRange(t *testing.T) {
	got := captionPrompt(core.Segment{Start: 60, End: 96}, "x")
	if !strings.Contains(got, "Segment time range: 01:00-01:36.") {
		t.Errorf("time range missing or wrong: %q", got)
	}
}
