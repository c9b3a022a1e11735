// Package api serves the admin HTTP API: job control, interactive calendar sync
// and conflict checks.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"coachsync/internal/config"
	"coachsync/internal/domain"
	"coachsync/internal/metrics"
	"coachsync/internal/models"
	"coachsync/internal/scheduler"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// JobController is the part of the scheduler exposed over HTTP.
type JobController interface {
	Statuses() []scheduler.JobStatus
	Lookup(name string) (scheduler.JobStatus, bool)
	Start(name string) bool
	Stop(name string) bool
}

// SessionStore loads and saves the records the sync endpoints act on.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*models.TrainingSession, error)
	SaveSyncState(ctx context.Context, sessionID, externalEventID string, lastSyncedAt *time.Time) error
	GetSyncConfig(ctx context.Context, trainerID string) (*models.CalendarSyncConfig, error)
}

// Pinger checks a backing dependency for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Jobs    JobController
	History domain.JobRunRepository // optional
	Store   SessionStore
	Syncer  domain.SessionSyncer
	Health  Pinger // optional
}

type HTTPServer struct {
	deps   Deps
	server *http.Server
	auth   *HTTPAuth
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "http").Logger()
	}
	srv := &HTTPServer{deps: deps, logger: &base}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealth)
	mux.HandleFunc("GET /api/v1/jobs", srv.handleListJobs)
	mux.HandleFunc("GET /api/v1/jobs/{name}/runs", srv.handleJobRuns)
	mux.HandleFunc("POST /api/v1/jobs/{name}/start", srv.handleStartJob)
	mux.HandleFunc("POST /api/v1/jobs/{name}/stop", srv.handleStopJob)
	mux.HandleFunc("POST /api/v1/sessions/{id}/sync", srv.handleSyncSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/unsync", srv.handleUnsyncSession)
	mux.HandleFunc("POST /api/v1/trainers/{id}/resync", srv.handleResyncTrainer)
	mux.HandleFunc("GET /api/v1/trainers/{id}/conflicts", srv.handleConflicts)

	handler := srv.requestIDMiddleware(srv.loggingMiddleware(recoverMiddleware(srv.auth.Wrap(mux))))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	return srv
}

// Handler returns the fully wrapped HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		reqLogger := s.logger.With().Str("request_id", requestID).Logger()
		next.ServeHTTP(w, r.WithContext(reqLogger.WithContext(r.Context())))
	})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		// the mux fills in the pattern on this request once it matches
		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint, recorder.status)

		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				zerolog.Ctx(r.Context()).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("http handler panicked")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
