// Package media splits source videos into fixed-duration segments and
// extracts per-segment keyframes and audio by delegating to ffmpeg/ffprobe.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"videorag/config"
	"videorag/core"
)

// Segmenter splits a video into fixed-duration segments. The final segment
// is clamped to the true media duration and may be shorter.
type Segmenter struct {
	segmentDuration  float64
	framesPerSegment int
	log              *log.Logger
}

// NewSegmenter builds a Segmenter from the validated pipeline config.
func NewSegmenter(cfg config.PipelineConfig, logger *log.Logger) *Segmenter {
	if logger == nil {
		logger = log.Default()
	}
	frames := 0
	if cfg.FramesPerSegment != nil {
		frames = *cfg.FramesPerSegment
	}
	return &Segmenter{
		segmentDuration:  cfg.SegmentDurationSec,
		framesPerSegment: frames,
		log:              logger,
	}
}

type window struct {
	Index int
	Start float64
	End   float64
}

// planSegments computes ceil(duration/segmentDuration) half-open windows.
// The last window ends exactly at duration.
func planSegments(duration, segmentDuration float64) []window {
	total := int(math.Ceil(duration / segmentDuration))
	windows := make([]window, 0, total)
	for i := 0; i < total; i++ {
		start := float64(i) * segmentDuration
		end := math.Min(start+segmentDuration, duration)
		windows = append(windows, window{Index: i, Start: start, End: end})
	}
	return windows
}

// frameOffsets returns n evenly spaced sample offsets in [0, segLen), left
// aligned so offset 0 is always included when n >= 1.
func frameOffsets(segLen float64, n int) []float64 {
	if n <= 0 || segLen <= 0 {
		return nil
	}
	step := segLen / float64(n)
	offsets := make([]float64, n)
	for i := 1; i < n; i++ {
		offsets[i] = float64(i) * step
	}
	return offsets
}

// Segment splits the video at videoPath and returns the segments together
// with the workspace owning their extracted artifacts. The caller must
// release the workspace on every exit path. Fails with *core.MediaReadError
// when the source cannot be opened or has non-positive duration.
func (s *Segmenter) Segment(ctx context.Context, videoPath string) ([]core.Segment, core.Workspace, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, nil, &core.MediaReadError{Path: videoPath, Cause: err}
	}
	duration, err := probeDuration(ctx, videoPath)
	if err != nil {
		return nil, nil, &core.MediaReadError{Path: videoPath, Cause: err}
	}
	if duration <= 0 {
		return nil, nil, &core.MediaReadError{Path: videoPath, Cause: fmt.Errorf("non-positive duration %.3fs", duration)}
	}
	withAudio, err := hasAudioStream(ctx, videoPath)
	if err != nil {
		return nil, nil, &core.MediaReadError{Path: videoPath, Cause: err}
	}

	ws, err := newWorkspace()
	if err != nil {
		return nil, nil, &core.MediaReadError{Path: videoPath, Cause: err}
	}

	windows := planSegments(duration, s.segmentDuration)
	segments := make([]core.Segment, 0, len(windows))
	for _, w := range windows {
		seg, err := s.extractSegment(ctx, videoPath, ws, w, withAudio)
		if err != nil {
			// Segmentation errors are source-level problems, not remote
			// enrichment failures; the workspace is released here because
			// no segments are handed to the caller.
			_ = ws.Release()
			return nil, nil, &core.MediaReadError{Path: videoPath, Cause: err}
		}
		segments = append(segments, seg)
	}
	s.log.Printf("segmented %s into %d segment(s) of %.0fs (audio=%v)", videoPath, len(segments), s.segmentDuration, withAudio)
	return segments, ws, nil
}

func (s *Segmenter) extractSegment(ctx context.Context, videoPath string, ws *Workspace, w window, withAudio bool) (core.Segment, error) {
	id := core.SegmentID(w.Index, w.Start, w.End)
	seg := core.Segment{ID: id, Start: w.Start, End: w.End}

	for fi, offset := range frameOffsets(w.End-w.Start, s.framesPerSegment) {
		frame, err := s.grabKeyframe(ctx, videoPath, ws, id, fi, w.Start+offset)
		if err != nil {
			return core.Segment{}, fmt.Errorf("segment %s keyframe %d: %w", id, fi, err)
		}
		seg.Keyframes = append(seg.Keyframes, frame)
	}

	if withAudio {
		audioPath := filepath.Join(ws.Root(), id+".wav")
		if err := runFFmpeg(ctx,
			"-y",
			"-ss", fmt.Sprintf("%.3f", w.Start),
			"-t", fmt.Sprintf("%.3f", w.End-w.Start),
			"-i", videoPath,
			"-vn", "-ac", "1", "-ar", "16000", "-f", "wav",
			audioPath,
		); err != nil {
			return core.Segment{}, fmt.Errorf("segment %s audio: %w", id, err)
		}
		seg.AudioPath = audioPath
	}
	return seg, nil
}

// grabKeyframe extracts one still at the absolute timestamp and returns it as
// an in-memory data URL. The intermediate file lives in the workspace and is
// removed with it.
func (s *Segmenter) grabKeyframe(ctx context.Context, videoPath string, ws *Workspace, segID string, index int, at float64) (string, error) {
	framePath := filepath.Join(ws.Root(), fmt.Sprintf("%s-frame-%02d.jpg", segID, index))
	if err := runFFmpeg(ctx,
		"-y",
		"-ss", fmt.Sprintf("%.3f", at),
		"-i", videoPath,
		"-frames:v", "1", "-q:v", "2",
		framePath,
	); err != nil {
		return "", err
	}
	data, err := os.ReadFile(framePath)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}
