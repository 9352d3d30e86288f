// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/okian/betti/internal/adapters/codec"
	"github.com/okian/betti/internal/adapters/repository"
	service "github.com/okian/betti/internal/app"
	"github.com/okian/betti/internal/domain/grid"
	"github.com/okian/betti/internal/domain/model"
	"github.com/okian/betti/internal/domain/persistence"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit queues a curve job. duplicate reports that id belongs to an
	// earlier identical request.
	Submit(ctx context.Context, req model.Request) (id string, duplicate bool, err error)

	// Result returns a stored job result.
	Result(ctx context.Context, id string) (model.Result, error)

	// Compute discretizes a request synchronously.
	Compute(ctx context.Context, req model.Request) (model.Result, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	curvesHandler *CurvesHandler
	limiter       *rate.Limiter
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRateLimit puts a token bucket in front of the POST routes. A
// non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxBodyBytes caps request bodies on the curve routes.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.curvesHandler.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		curvesHandler: NewCurvesHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	limited := func(h http.HandlerFunc) http.HandlerFunc { return RateLimitMiddleware(s.limiter, h) }

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/curves", MetricsMiddleware(limited(s.curvesHandler.HandleSubmit), "curves"))
	mux.HandleFunc("/curves/compute", MetricsMiddleware(limited(s.curvesHandler.HandleCompute), "compute"))
	mux.HandleFunc("/curves/", MetricsMiddleware(s.curvesHandler.HandleGet, "curve"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps upstream error kinds onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case isBadRequest(err):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrBusy):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func isBadRequest(err error) bool {
	for _, kind := range []error{
		service.ErrInvalidRequest,
		codec.ErrMalformed,
		codec.ErrUnknownFormat,
		grid.ErrInvalidGrid,
		persistence.ErrInvalidInterval,
		persistence.ErrInvalidDimension,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
