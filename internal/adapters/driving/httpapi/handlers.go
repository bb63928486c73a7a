package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	RunID string `json:"run_id,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	PipelineState string `json:"pipeline_state"`
	Headlines     int    `json:"headlines"`
}

// RunListResponse is the body of GET /api/v1/runs.
type RunListResponse struct {
	Runs  []domain.PipelineRun `json:"runs"`
	Count int                  `json:"count"`
}

// IngestRequest is the body of POST /api/v1/headlines.
type IngestRequest struct {
	Headlines []domain.RawHeadline `json:"headlines"`
}

// handleHealth reports liveness together with the pipeline state.
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count, err := s.ports.Headlines.Count(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "headline store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		PipelineState: s.ports.Pipeline.State().String(),
		Headlines:     count,
	})
}

// handleTriggerRun runs the pipeline synchronously and returns its digest.
// POST /api/v1/runs
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	// A dropped client connection does not cancel the run.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), runTimeout)
	defer cancel()

	run, err := s.ports.Pipeline.RunNow(ctx)
	if err != nil {
		resp := ErrorResponse{Error: err.Error()}
		if run != nil {
			resp.RunID = run.ID
		}
		writeJSON(w, statusFor(err), resp)
		return
	}

	detail, err := s.ports.Runs.Get(r.Context(), run.ID)
	if err != nil {
		s.writeError(w, fmt.Errorf("loading run %s: %w", run.ID, err))
		return
	}
	writeJSON(w, http.StatusCreated, detail.Digest())
}

// handleListRuns lists run headers, newest first.
// GET /api/v1/runs?status=&since=&limit=
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter, err := parseRunFilter(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	runs, err := s.ports.Runs.List(r.Context(), filter)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []domain.PipelineRun{}
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs, Count: len(runs)})
}

// handleLatestRun returns the digest of the most recent run.
// GET /api/v1/runs/latest
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	detail, err := s.ports.Runs.Latest(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail.Digest())
}

// handleGetRun returns the digest of one run.
// GET /api/v1/runs/{runID}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	detail, err := s.ports.Runs.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail.Digest())
}

// handleIngest stores headlines for the next run. The body is either
// {"headlines": [...]} or a bare array.
// POST /api/v1/headlines
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	raws, err := decodeHeadlines(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.ports.Headlines.Ingest(r.Context(), raws)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func decodeHeadlines(body io.Reader) ([]domain.RawHeadline, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %w", domain.ErrInvalidInput, err)
	}

	var raws []domain.RawHeadline
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &raws); err != nil {
			return nil, fmt.Errorf("%w: decoding headlines: %v", domain.ErrInvalidInput, err)
		}
	} else {
		var req IngestRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("%w: decoding headlines: %v", domain.ErrInvalidInput, err)
		}
		raws = req.Headlines
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: no headlines given", domain.ErrInvalidInput)
	}
	return raws, nil
}

func parseRunFilter(r *http.Request) (domain.RunFilter, error) {
	q := r.URL.Query()
	filter := domain.RunFilter{Limit: 20}

	if v := q.Get("status"); v != "" {
		status, err := domain.ParseRunState(v)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%w: since must be RFC 3339", domain.ErrInvalidInput)
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidInput)
		}
		filter.Limit = limit
	}
	return filter, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
