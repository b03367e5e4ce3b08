// Package rag orchestrates the ingestion pipeline (segment → transcribe →
// caption → summarize → embed → upsert) and the query pipeline (embed →
// search → answer) over a session-partitioned vector store.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"videorag/config"
	"videorag/core"
	"videorag/llm"
	"videorag/media"
	"videorag/storage"
)

// Segmenter splits a source video into segments plus a workspace owning
// their temporary artifacts.
type Segmenter interface {
	Segment(ctx context.Context, videoPath string) ([]core.Segment, core.Workspace, error)
}

// Transcriber turns a segment's audio file into transcript text; an empty
// audio path yields an empty transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Captioner produces a visual caption for a segment.
type Captioner interface {
	Describe(ctx context.Context, segment core.Segment, transcript string) (string, error)
}

// Summarizer produces a structured summary from transcript and caption.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, caption string) (core.SegmentSummary, error)
}

// Embedder turns text into a fixed-dimension vector, shared between the
// ingest and query paths.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Answerer turns a question plus ranked evidence into a structured answer.
type Answerer interface {
	Answer(ctx context.Context, question string, evidence []core.EvidenceItem, responseType string) (core.Answer, error)
}

// QueryOptions are the per-request query parameters. Zero values fall back
// to the configured defaults.
type QueryOptions struct {
	TopK                int
	SimilarityThreshold *float64
	ResponseType        string
}

// Options holds the orchestrator's validated pipeline and query defaults.
type Options struct {
	EnrichConcurrency   int
	OnSegmentFailure    string
	TopK                int
	SimilarityThreshold *float64
	ResponseType        string
}

// Service is the pipeline orchestrator. One instance is safe for concurrent
// use; each ingestion run owns its segments and workspace exclusively, and
// the store is the only shared mutable resource.
type Service struct {
	segmenter   Segmenter
	transcriber Transcriber
	captioner   Captioner
	summarizer  Summarizer
	embedder    Embedder
	answerer    Answerer
	store       storage.VectorStore
	opts        Options
	log         *log.Logger
}

// New wires a Service from explicit collaborators.
func New(segmenter Segmenter, transcriber Transcriber, captioner Captioner, summarizer Summarizer,
	embedder Embedder, answerer Answerer, store storage.VectorStore, opts Options, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if opts.EnrichConcurrency < 1 {
		opts.EnrichConcurrency = 1
	}
	if opts.OnSegmentFailure == "" {
		opts.OnSegmentFailure = config.FailureAbort
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	return &Service{
		segmenter:   segmenter,
		transcriber: transcriber,
		captioner:   captioner,
		summarizer:  summarizer,
		embedder:    embedder,
		answerer:    answerer,
		store:       store,
		opts:        opts,
		log:         logger,
	}
}

// NewFromConfig wires a Service with the real collaborators described by the
// validated configuration.
func NewFromConfig(cfg *config.Config, store storage.VectorStore, logger *log.Logger) *Service {
	cli := llm.NewClient(cfg.OpenAI)
	return New(
		media.NewSegmenter(cfg.Pipeline, logger),
		llm.NewTranscriber(cli, cfg.OpenAI.WhisperModel),
		llm.NewCaptioner(cli, cfg.OpenAI.VisionModel),
		llm.NewSummarizer(cli, cfg.OpenAI.TextModel),
		llm.NewEmbedder(cli, cfg.OpenAI.EmbeddingModel),
		llm.NewAnswerer(cli, cfg.OpenAI.TextModel),
		store,
		Options{
			EnrichConcurrency:   cfg.Pipeline.EnrichConcurrency,
			OnSegmentFailure:    cfg.Pipeline.OnSegmentFailure,
			TopK:                cfg.Query.TopK,
			SimilarityThreshold: cfg.Query.SimilarityThreshold,
			ResponseType:        cfg.Query.ResponseType,
		},
		logger,
	)
}

// Ingest runs the full ingestion pipeline for one video under the given
// session. Enrichment of distinct segments runs concurrently up to the
// configured limit; the chain within one segment is sequential because each
// stage feeds the next. The run is atomic from the caller's point of view:
// either the surviving segments are upserted or an error is returned, and
// re-ingesting the same video overwrites by segment id so retries are safe.
// The temporary workspace is released on every exit path.
func (s *Service) Ingest(ctx context.Context, sessionID, videoPath string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	runID := uuid.NewString()
	s.log.Printf("run %s: ingesting %s into session %s", runID, videoPath, sessionID)

	segments, ws, err := s.segmenter.Segment(ctx, videoPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			s.log.Printf("run %s: workspace release failed: %v", runID, err)
		}
	}()

	records := make([]core.IndexRecord, len(segments))
	done := make([]bool, len(segments))
	var mu sync.Mutex
	var firstSkipErr error
	skipped := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.EnrichConcurrency)
	for i := range segments {
		i := i
		g.Go(func() error {
			rec, err := s.enrichSegment(gctx, sessionID, segments[i])
			if err != nil {
				if s.opts.OnSegmentFailure == config.FailureSkip && gctx.Err() == nil {
					s.log.Printf("run %s: skipping segment %s: %v", runID, segments[i].ID, err)
					mu.Lock()
					skipped++
					if firstSkipErr == nil {
						firstSkipErr = err
					}
					mu.Unlock()
					return nil
				}
				return err
			}
			records[i] = rec
			done[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	kept := make([]core.IndexRecord, 0, len(records))
	for i := range records {
		if done[i] {
			kept = append(kept, records[i])
		}
	}
	if len(kept) == 0 && len(segments) > 0 {
		return fmt.Errorf("run %s: all %d segment(s) failed enrichment: %w", runID, len(segments), firstSkipErr)
	}

	if err := s.store.Upsert(ctx, kept); err != nil {
		return err
	}
	s.log.Printf("run %s: indexed %d segment(s) for session %s (%d skipped)", runID, len(kept), sessionID, skipped)
	return nil
}

// enrichSegment runs the sequential per-segment chain and tags every failure
// with the segment id and stage.
func (s *Service) enrichSegment(ctx context.Context, sessionID string, seg core.Segment) (core.IndexRecord, error) {
	transcript, err := s.transcriber.Transcribe(ctx, seg.AudioPath)
	if err != nil {
		return core.IndexRecord{}, &core.EnrichmentError{SegmentID: seg.ID, Stage: "transcribe", Cause: err}
	}
	caption, err := s.captioner.Describe(ctx, seg, transcript)
	if err != nil {
		return core.IndexRecord{}, &core.EnrichmentError{SegmentID: seg.ID, Stage: "caption", Cause: err}
	}
	summary, err := s.summarizer.Summarize(ctx, transcript, caption)
	if err != nil {
		var schemaErr *core.SchemaViolationError
		if errors.As(err, &schemaErr) {
			schemaErr.SegmentID = seg.ID
			return core.IndexRecord{}, schemaErr
		}
		return core.IndexRecord{}, &core.EnrichmentError{SegmentID: seg.ID, Stage: "summarize", Cause: err}
	}
	embedding, err := s.embedder.Embed(ctx, core.BuildEmbeddingInput(summary, caption, transcript))
	if err != nil {
		return core.IndexRecord{}, &core.EnrichmentError{SegmentID: seg.ID, Stage: "embed", Cause: err}
	}
	return core.IndexRecord{
		SessionID:  sessionID,
		SegmentID:  seg.ID,
		Start:      seg.Start,
		End:        seg.End,
		Summary:    summary.Summary,
		KeyPoints:  summary.KeyPoints,
		Caption:    caption,
		Transcript: transcript,
		Embedding:  embedding,
	}, nil
}

// Query answers a question from the session's indexed segments. Each stage's
// failure aborts the query; there is no partial-answer mode.
func (s *Service) Query(ctx context.Context, sessionID, question string, opts QueryOptions) (core.Answer, error) {
	if sessionID == "" {
		return core.Answer{}, fmt.Errorf("session id is required")
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = s.opts.TopK
	}
	threshold := opts.SimilarityThreshold
	if threshold == nil {
		threshold = s.opts.SimilarityThreshold
	}
	if threshold != nil && (*threshold < 0 || *threshold > 1) {
		return core.Answer{}, fmt.Errorf("similarity threshold %v outside [0,1]", *threshold)
	}
	responseType := opts.ResponseType
	if responseType == "" {
		responseType = s.opts.ResponseType
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return core.Answer{}, &core.EnrichmentError{Stage: "query-embedding", Cause: err}
	}
	evidence, err := s.store.Search(ctx, sessionID, vector, topK, threshold)
	if err != nil {
		return core.Answer{}, err
	}
	return s.answerer.Answer(ctx, question, evidence, responseType)
}

// Cleanup removes every record stored for the session. Deleting an empty
// session succeeds.
func (s *Service) Cleanup(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	return s.store.DeleteSession(ctx, sessionID)
}
