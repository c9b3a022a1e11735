package repository

import (
	"context"
	"sync"

	"coachsync/internal/models"
)

// MemoryJobRunRepository is the in-process job history, used when Redis is
// not configured or unreachable.
type MemoryJobRunRepository struct {
	mu   sync.RWMutex
	runs map[string][]models.JobRun // newest first
	size int
}

func NewMemoryJobRunRepository(size int) *MemoryJobRunRepository {
	if size <= 0 {
		size = models.JobHistorySize
	}
	return &MemoryJobRunRepository{
		runs: make(map[string][]models.JobRun),
		size: size,
	}
}

func (r *MemoryJobRunRepository) RecordRun(ctx context.Context, run models.JobRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := append([]models.JobRun{run}, r.runs[run.Job]...)
	if len(list) > r.size {
		list = list[:r.size]
	}
	r.runs[run.Job] = list
	return nil
}

func (r *MemoryJobRunRepository) LastRun(ctx context.Context, job string) (*models.JobRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.runs[job]
	if len(list) == 0 {
		return nil, nil
	}
	run := list[0]
	return &run, nil
}

func (r *MemoryJobRunRepository) RecentRuns(ctx context.Context, job string, limit int) ([]models.JobRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.runs[job]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]models.JobRun, limit)
	copy(out, list[:limit])
	return out, nil
}
