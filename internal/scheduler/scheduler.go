// Package scheduler runs named recurring jobs. Each running job has its own
// goroutine; the next firing is computed only after the handler returns, so
// a job never overlaps itself and a slow job never delays another one.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/metrics"
	"coachsync/internal/models"

	"github.com/rs/zerolog"
)

const historyTimeout = 5 * time.Second

// Handler is the body of a job. The context is cancelled only when shutdown
// gives up waiting; stopping a job never interrupts a running handler.
type Handler func(ctx context.Context) error

// JobStatus is a snapshot of one registered job.
type JobStatus struct {
	Name      string         `json:"name"`
	Trigger   string         `json:"trigger"`
	Running   bool           `json:"running"`
	Executing bool           `json:"executing"`
	NextRun   *time.Time     `json:"next_run,omitempty"`
	LastRun   *models.JobRun `json:"last_run,omitempty"`
	Runs      int64          `json:"runs"`
}

type job struct {
	name    string
	trigger Trigger
	handler Handler

	running   bool
	stop      chan struct{}
	executing bool
	nextRun   time.Time
	lastRun   *models.JobRun
	runs      int64

	// held for the whole handler call; a restarted loop waits on it
	execMu sync.Mutex
}

type Scheduler struct {
	mu   sync.Mutex
	jobs map[string]*job

	history domain.JobRunRepository
	logger  *zerolog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an empty scheduler. history may be nil.
func New(history domain.JobRunRepository, logger *zerolog.Logger) *Scheduler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:    make(map[string]*job),
		history: history,
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Register adds a stopped job. Registering an existing name stops the old
// entry and replaces it.
func (s *Scheduler) Register(name string, trigger Trigger, handler Handler) error {
	if name == "" {
		return errors.New("scheduler: empty job name")
	}
	if trigger == nil || handler == nil {
		return fmt.Errorf("scheduler: job %q needs a trigger and a handler", name)
	}
	if now := time.Now(); !trigger.Next(now).After(now) {
		return fmt.Errorf("scheduler: job %q: trigger %s never fires", name, trigger)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[name]; ok {
		s.stopLocked(old)
		s.logger.Warn().Str("job", name).Msg("job re-registered, previous entry replaced")
	}
	s.jobs[name] = &job{name: name, trigger: trigger, handler: handler}
	s.logger.Info().Str("job", name).Str("trigger", trigger.String()).Msg("job registered")
	return nil
}

// Start starts one job. It reports false for unknown names.
func (s *Scheduler) Start(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.lookupLocked(name, "start")
	if !ok {
		return false
	}
	s.startLocked(j)
	return true
}

// Stop stops one job. A handler already running finishes normally.
func (s *Scheduler) Stop(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.lookupLocked(name, "stop")
	if !ok {
		return false
	}
	s.stopLocked(j)
	return true
}

func (s *Scheduler) StartAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		s.startLocked(j)
	}
}

func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.jobs {
		s.stopLocked(j)
	}
}

func (s *Scheduler) IsRunning(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	return ok && j.running
}

// ListJobs returns the registered job names in lexical order.
func (s *Scheduler) ListJobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the status of a job and whether it exists.
func (s *Scheduler) Lookup(name string) (JobStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return JobStatus{}, false
	}
	return j.statusLocked(), true
}

// Statuses returns a snapshot of every job, ordered by name.
func (s *Scheduler) Statuses() []JobStatus {
	names := s.ListJobs()
	out := make([]JobStatus, 0, len(names))
	for _, name := range names {
		if st, ok := s.Lookup(name); ok {
			out = append(out, st)
		}
	}
	return out
}

// Shutdown stops every job and waits for running handlers. When ctx expires
// first, handler contexts are cancelled and ctx's error is returned.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.StopAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

func (s *Scheduler) lookupLocked(name, op string) (*job, bool) {
	j, ok := s.jobs[name]
	if !ok {
		s.logger.Error().Str("job", name).Str("op", op).Msg("unknown job")
	}
	return j, ok
}

func (s *Scheduler) startLocked(j *job) {
	if j.running {
		return
	}
	j.running = true
	j.stop = make(chan struct{})
	j.nextRun = j.trigger.Next(time.Now())
	s.wg.Add(1)
	go s.loop(j, j.stop, j.nextRun)
	s.logger.Debug().Str("job", j.name).Msg("job started")
}

func (s *Scheduler) stopLocked(j *job) {
	if !j.running {
		return
	}
	j.running = false
	close(j.stop)
	j.stop = nil
	j.nextRun = time.Time{}
	s.logger.Debug().Str("job", j.name).Msg("job stopped")
}

// loop waits for next, runs the handler and asks the trigger again.
func (s *Scheduler) loop(j *job, stop chan struct{}, next time.Time) {
	defer s.wg.Done()

	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		// a stop racing with the timer wins
		select {
		case <-stop:
			return
		default:
		}

		s.execute(j)

		next = j.trigger.Next(time.Now())
		s.mu.Lock()
		if j.stop == stop {
			j.nextRun = next
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) execute(j *job) {
	j.execMu.Lock()
	defer j.execMu.Unlock()

	s.mu.Lock()
	j.executing = true
	s.mu.Unlock()

	started := time.Now()
	err := s.invoke(j)
	elapsed := time.Since(started)

	run := models.JobRun{Job: j.name, StartedAt: started.UTC(), Duration: elapsed}
	if err != nil {
		run.Error = err.Error()
	}

	s.mu.Lock()
	j.executing = false
	j.lastRun = &run
	j.runs++
	s.mu.Unlock()

	metrics.ObserveJobRun(j.name, elapsed, err)
	if err != nil {
		s.logger.Error().Err(err).Str("job", j.name).Dur("duration", elapsed).Msg("job failed")
	} else {
		s.logger.Debug().Str("job", j.name).Dur("duration", elapsed).Msg("job finished")
	}

	if s.history != nil {
		ctx, cancel := context.WithTimeout(context.Background(), historyTimeout)
		if err := s.history.RecordRun(ctx, run); err != nil {
			s.logger.Warn().Err(err).Str("job", j.name).Msg("failed to record job run")
		}
		cancel()
	}
}

func (s *Scheduler) invoke(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
			s.logger.Error().Str("job", j.name).Str("stack", string(debug.Stack())).Msg("job panic recovered")
		}
	}()
	return j.handler(s.baseCtx)
}

func (j *job) statusLocked() JobStatus {
	st := JobStatus{
		Name:      j.name,
		Trigger:   j.trigger.String(),
		Running:   j.running,
		Executing: j.executing,
		Runs:      j.runs,
	}
	if !j.nextRun.IsZero() {
		next := j.nextRun
		st.NextRun = &next
	}
	if j.lastRun != nil {
		last := *j.lastRun
		st.LastRun = &last
	}
	return st
}
