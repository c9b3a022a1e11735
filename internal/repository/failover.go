package repository

import (
	"context"
	"sync"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/models"

	"github.com/rs/zerolog"
)

// probeInterval is how long the failover stays on the fallback before trying
// the primary again.
const probeInterval = time.Minute

// FailoverJobRunRepository uses the primary until it fails, then serves from
// the fallback and probes the primary again once per probeInterval.
type FailoverJobRunRepository struct {
	primary  domain.JobRunRepository
	fallback domain.JobRunRepository
	logger   *zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	down      bool
	lastCheck time.Time
}

func NewFailoverJobRunRepository(primary, fallback domain.JobRunRepository, logger *zerolog.Logger) *FailoverJobRunRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverJobRunRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to the primary.
func (r *FailoverJobRunRepository) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.down {
		return true
	}
	if r.now().Sub(r.lastCheck) >= probeInterval {
		r.lastCheck = r.now()
		return true
	}
	return false
}

func (r *FailoverJobRunRepository) report(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		if r.down {
			r.logger.Info().Msg("Primary job history repository recovered")
		}
		r.down = false
		return
	}
	if !r.down {
		r.logger.Error().Err(err).Msg("Primary job history repository failed, falling back to memory")
	}
	r.down = true
	r.lastCheck = r.now()
}

// Down reports whether calls are currently served by the fallback.
func (r *FailoverJobRunRepository) Down() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.down
}

func (r *FailoverJobRunRepository) RecordRun(ctx context.Context, run models.JobRun) error {
	if r.usePrimary() {
		err := r.primary.RecordRun(ctx, run)
		r.report(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.RecordRun(ctx, run)
}

func (r *FailoverJobRunRepository) LastRun(ctx context.Context, job string) (*models.JobRun, error) {
	if r.usePrimary() {
		run, err := r.primary.LastRun(ctx, job)
		r.report(err)
		if err == nil {
			return run, nil
		}
	}
	return r.fallback.LastRun(ctx, job)
}

func (r *FailoverJobRunRepository) RecentRuns(ctx context.Context, job string, limit int) ([]models.JobRun, error) {
	if r.usePrimary() {
		runs, err := r.primary.RecentRuns(ctx, job, limit)
		r.report(err)
		if err == nil {
			return runs, nil
		}
	}
	return r.fallback.RecentRuns(ctx, job, limit)
}
