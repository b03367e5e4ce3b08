// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"videorag/core"
	"videorag/rag"
)

// VideoRAG is the service surface the HTTP layer needs.
type VideoRAG interface {
	Ingest(ctx context.Context, sessionID, videoPath string) error
	Query(ctx context.Context, sessionID, question string, opts rag.QueryOptions) (core.Answer, error)
	Cleanup(ctx context.Context, sessionID string) error
}

// Server routes HTTP requests to the pipeline service.
type Server struct {
	svc VideoRAG
	log *log.Logger
	mux *chi.Mux
}

func New(svc VideoRAG, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{svc: svc, log: logger}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Post("/ingest", s.handleIngest)
	r.Post("/query", s.handleQuery)
	r.Delete("/sessions/{sessionID}", s.handleCleanup)
	s.mux = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type ingestRequest struct {
	SessionID string `json:"session_id"`
	VideoPath string `json:"video_path"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if req.SessionID == "" || req.VideoPath == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("session_id and video_path are required"))
		return
	}
	if err := s.svc.Ingest(r.Context(), req.SessionID, req.VideoPath); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": req.SessionID, "status": "ingested"})
}

type queryRequest struct {
	SessionID           string   `json:"session_id"`
	Question            string   `json:"question"`
	TopK                int      `json:"top_k,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
	ResponseType        string   `json:"response_type,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if req.SessionID == "" || req.Question == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("session_id and question are required"))
		return
	}
	answer, err := s.svc.Query(r.Context(), req.SessionID, req.Question, rag.QueryOptions{
		TopK:                req.TopK,
		SimilarityThreshold: req.SimilarityThreshold,
		ResponseType:        req.ResponseType,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.svc.Cleanup(r.Context(), sessionID); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": sessionID, "status": "deleted"})
}

// writeError maps the error taxonomy onto HTTP statuses. Source-side
// problems are the caller's to fix; upstream service and store failures are
// gateway errors.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Printf("request failed: %v", err)

	var mediaErr *core.MediaReadError
	if errors.As(err, &mediaErr) {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var partialErr *core.PartialUpsertError
	if errors.As(err, &partialErr) {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":      err.Error(),
			"failed_ids": partialErr.FailedIDs,
		})
		return
	}
	var enrichErr *core.EnrichmentError
	var schemaErr *core.SchemaViolationError
	var storageErr *core.StorageError
	if errors.As(err, &enrichErr) || errors.As(err, &schemaErr) || errors.As(err, &storageErr) {
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
