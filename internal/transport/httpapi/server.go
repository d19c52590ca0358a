// Package httpapi is the admin HTTP surface of the esmirror daemon:
// trigger and observe resynchronization jobs, proxy searches, soft-delete
// documents, and report health.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/esmirror/esmirror/internal/domain"
	"github.com/esmirror/esmirror/internal/gateway"
	"github.com/esmirror/esmirror/internal/indexer"
	"github.com/esmirror/esmirror/internal/logger"
	"github.com/esmirror/esmirror/internal/syncer"
)

// CursorFactory opens a fresh record stream over a collection. Each resync
// needs its own cursor since streams are single-pass.
type CursorFactory func(collection string) syncer.Cursor

// Pinger reports liveness of a collaborator.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Collection binds a registered collection to its precomputed field set
// and per-collection connection overrides.
type Collection struct {
	Fields domain.FieldSet
	Opts   domain.ConnOptions
}

// Server handles admin API requests.
type Server struct {
	engine      *syncer.Engine
	gateway     *gateway.Gateway
	indexer     *indexer.Client
	cursors     CursorFactory
	collections map[string]Collection
	jobs        *jobStore
	search      Pinger
	source      Pinger
	logger      *zap.Logger
}

// New creates the admin API server. collections maps collection name to
// its registered schema selection and overrides; resync requests for
// unknown collections are rejected.
func New(
	engine *syncer.Engine,
	gw *gateway.Gateway,
	idx *indexer.Client,
	cursors CursorFactory,
	collections map[string]Collection,
	searchPing, sourcePing Pinger,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:      engine,
		gateway:     gw,
		indexer:     idx,
		cursors:     cursors,
		collections: collections,
		jobs:        newJobStore(),
		search:      searchPing,
		source:      sourcePing,
		logger:      logger,
	}
}

// Register mounts the admin routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/collections/{collection}/resync", s.handleResync)
	r.Delete("/collections/{collection}/documents/{id}", s.handleUnindex)
	r.Get("/jobs/{jobID}", s.handleJob)
	r.Post("/jobs/{jobID}/abort", s.handleAbort)
	r.Post("/search", s.handleSearch)
	r.Get("/healthz", s.handleHealthz)
}

type jobResponse struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	State      syncer.State    `json:"state"`
	Progress   syncer.Progress `json:"progress"`
	Error      string          `json:"error,omitempty"`
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	col, ok := s.collections[collection]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}

	// The job outlives the request; it carries its own lifecycle.
	ctx := context.Background()
	job := s.engine.Resync(ctx, collection, s.cursors(collection), col.Fields, col.Opts)
	id := s.jobs.add(job)

	logger.FromContext(r.Context()).Info("resync requested",
		zap.String("collection", collection),
		zap.String("job_id", id),
	)
	writeJSON(w, http.StatusAccepted, jobResponse{
		ID:         id,
		Collection: collection,
		State:      job.State(),
		Progress:   job.Progress(),
	})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, ok := s.jobs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}

	resp := jobResponse{
		ID:         id,
		Collection: job.Collection(),
		State:      job.State(),
		Progress:   job.Progress(),
	}
	if err := job.Err(); err != nil && job.State() == syncer.StateFailed {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	job, ok := s.jobs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	job.Abort()
	s.logger.Info("abort requested",
		zap.String("collection", job.Collection()),
		zap.String("job_id", id),
	)
	writeJSON(w, http.StatusAccepted, jobResponse{
		ID:         id,
		Collection: job.Collection(),
		State:      job.State(),
		Progress:   job.Progress(),
	})
}

func (s *Server) handleUnindex(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	var opts domain.ConnOptions
	if col, ok := s.collections[collection]; ok {
		opts = col.Opts
	}

	err := s.indexer.Unindex(r.Context(), collection, &domain.Record{ID: id}, opts)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "unindexed", "id": id})
	case errors.Is(err, domain.ErrConfiguration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrClientRequest):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

type searchRequest struct {
	Collections []string        `json:"collections,omitempty"`
	Query       json.RawMessage `json:"query,omitempty"`
	Options     struct {
		Prefix string `json:"prefix,omitempty"`
		Index  string `json:"index,omitempty"`
	} `json:"options,omitempty"`
}

type searchResponse struct {
	Total int64       `json:"total"`
	Hits  []searchHit `json:"hits"`
}

type searchHit struct {
	Index  string          `json:"index"`
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Score  float64         `json:"score"`
	Source json.RawMessage `json:"source"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.gateway.Search(r.Context(), domain.SearchQuery{
		Collections: req.Collections,
		Body:        req.Query,
	}, domain.ConnOptions{Prefix: req.Options.Prefix, Index: req.Options.Index})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrConfiguration):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, domain.ErrClientRequest):
		writeError(w, http.StatusBadGateway, err.Error())
		return
	default:
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	resp := searchResponse{Total: result.Total, Hits: make([]searchHit, len(result.Hits))}
	for i, h := range result.Hits {
		resp.Hits[i] = searchHit{
			Index:  h.Index,
			Type:   h.Type,
			ID:     h.ID,
			Score:  h.Score,
			Source: h.Source,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	type componentHealth struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}
	resp := struct {
		Status       string          `json:"status"`
		SearchEngine componentHealth `json:"search_engine"`
		Source       componentHealth `json:"source"`
	}{Status: "ok"}
	resp.SearchEngine.Status = "ok"
	resp.Source.Status = "ok"

	code := http.StatusOK
	if s.search != nil {
		if err := s.search.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.SearchEngine = componentHealth{Status: "down", Error: err.Error()}
			code = http.StatusServiceUnavailable
		}
	}
	if s.source != nil {
		if err := s.source.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Source = componentHealth{Status: "down", Error: err.Error()}
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
