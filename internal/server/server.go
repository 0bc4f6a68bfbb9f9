package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/diffevo/internal/config"
	"github.com/copyleftdev/diffevo/internal/metrics"
	"github.com/copyleftdev/diffevo/internal/optimization"
)

// Server implements the HTTP and JSON-RPC server for Differential Evolution
// runs. Runs live in memory and are stepped synchronously by request.
type Server struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Collector

	runs   map[string]*Run
	runsMu sync.RWMutex // Protects the runs map
}

// NewServer creates a new server instance with the given config, logger, and
// metrics collector.
func NewServer(cfg *config.Config, logger *zap.Logger, collector *metrics.Collector) *Server {
	return &Server{
		cfg:     cfg,
		logger:  logger.Named("server"),
		metrics: collector,
		runs:    make(map[string]*Run),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1/runs", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleStatus)
		r.Post("/{id}/step", s.handleStep)
		r.Get("/{id}/population", s.handlePopulation)
		r.Get("/{id}/compare", s.handleCompare)
		r.Delete("/{id}", s.handleDelete)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Close drops every run.
func (s *Server) Close() error {
	s.runsMu.Lock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	s.runsMu.Unlock()

	for _, id := range ids {
		// A concurrent delete may already have removed it.
		_ = s.deleteRun(id)
	}
	return nil
}

// handleCreate handles POST /api/v1/runs
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	status, err := s.createRun(req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, status)
}

// handleStatus handles GET /api/v1/runs/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.runStatus(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// handleStep handles POST /api/v1/runs/{id}/step
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	status, err := s.stepRun(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// handlePopulation handles GET /api/v1/runs/{id}/population
func (s *Server) handlePopulation(w http.ResponseWriter, r *http.Request) {
	pop, err := s.runPopulation(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pop)
}

// handleCompare handles GET /api/v1/runs/{id}/compare
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	resp, err := s.compareRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleDelete handles DELETE /api/v1/runs/{id}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deleteRun(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(errInvalidRequest, err)
	}
	return nil
}

// httpStatus maps an error to the HTTP status reported for it.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, errRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, errInvalidRequest), errors.Is(err, optimization.ErrConfiguration),
		errors.Is(err, optimization.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, errTooManyRuns):
		return http.StatusTooManyRequests
	case errors.Is(err, optimization.ErrUninitialized):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", code),
			zap.Error(err),
		)
	}
	respondJSON(w, code, map[string]string{"error": err.Error()})
}

// respondJSON encodes v before writing the header, so an encoding failure is
// reported as a 500 rather than a success status with a truncated body.
func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		code = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("encoding response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}
