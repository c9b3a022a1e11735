package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/models"

	"github.com/rs/zerolog"
)

const (
	healthTimeout = 2 * time.Second

	msgCalendarSyncFailed = "couldn't sync with calendar"
)

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Health.PingContext(ctx); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": s.deps.Jobs.Statuses()})
}

func (s *HTTPServer) handleJobRuns(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := s.deps.Jobs.Lookup(name); !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs := []models.JobRun{}
	if s.deps.History != nil {
		recent, err := s.deps.History.RecentRuns(r.Context(), name, limit)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Str("job", name).Msg("failed to load job history")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if recent != nil {
			runs = recent
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": name, "runs": runs})
}

func (s *HTTPServer) handleStartJob(w http.ResponseWriter, r *http.Request) {
	s.toggleJob(w, r, s.deps.Jobs.Start)
}

func (s *HTTPServer) handleStopJob(w http.ResponseWriter, r *http.Request) {
	s.toggleJob(w, r, s.deps.Jobs.Stop)
}

func (s *HTTPServer) toggleJob(w http.ResponseWriter, r *http.Request, action func(string) bool) {
	name := r.PathValue("name")
	if !action(name) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	status, _ := s.deps.Jobs.Lookup(name)
	writeJSON(w, http.StatusOK, map[string]any{"job": status})
}

func (s *HTTPServer) handleSyncSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.deps.Store.GetSession(ctx, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	cfg, err := s.deps.Store.GetSyncConfig(ctx, session.TrainerID)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusConflict, "calendar sync is not configured for this trainer")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !cfg.SyncEnabled {
		writeError(w, http.StatusConflict, "calendar sync is disabled for this trainer")
		return
	}

	eventID, err := s.deps.Syncer.SyncOne(ctx, session, cfg)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":        session.ID,
		"external_event_id": eventID,
		"last_synced_at":    session.LastSyncedAt,
	})
}

func (s *HTTPServer) handleUnsyncSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session, err := s.deps.Store.GetSession(ctx, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if session.ExternalEventID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"session_id": session.ID, "removed": false})
		return
	}

	s.deps.Syncer.RemoveOne(ctx, session)
	if session.ExternalEventID != "" {
		// removal failed and was logged; the reference stays so it can be retried
		writeError(w, http.StatusBadGateway, msgCalendarSyncFailed)
		return
	}
	session.LastSyncedAt = nil
	if err := s.deps.Store.SaveSyncState(ctx, session.ID, "", nil); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": session.ID, "removed": true})
}

func (s *HTTPServer) handleResyncTrainer(w http.ResponseWriter, r *http.Request) {
	trainerID := r.PathValue("id")
	synced, err := s.deps.Syncer.ResyncTrainer(r.Context(), trainerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trainer_id": trainerID, "synced": synced})
}

func (s *HTTPServer) handleConflicts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	start, err := time.Parse(time.RFC3339, strings.TrimSpace(q.Get("start")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected RFC3339")
		return
	}
	duration, err := strconv.Atoi(strings.TrimSpace(q.Get("duration")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid duration; expected minutes")
		return
	}

	conflict, err := s.deps.Syncer.CheckConflict(r.Context(), r.PathValue("id"), start, duration, strings.TrimSpace(q.Get("exclude")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflict": conflict})
}

// writeServiceError maps domain errors to responses. Remote details never
// reach the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidSession):
		writeError(w, http.StatusBadRequest, "invalid session")
	case domain.IsRemote(err):
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("calendar call failed")
		writeError(w, http.StatusBadGateway, msgCalendarSyncFailed)
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
