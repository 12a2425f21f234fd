// Package jobs owns the asynchronous job lifecycle: submission, the
// background runner per job, status/result queries, and eviction of
// finished jobs after a retention window.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mo-420/Yacht-SEO/internal/domain"
	"github.com/Mo-420/Yacht-SEO/internal/infra"
)

// BatchRunner executes one batch. *batch.Runner satisfies it.
type BatchRunner interface {
	Run(ctx context.Context, records []domain.Record, cfg domain.PromptConfig) ([]domain.Outcome, error)
}

// Options configures the manager. Zero durations fall back to defaults.
type Options struct {
	Runner        BatchRunner
	Retention     time.Duration
	Timeout       time.Duration
	SweepInterval time.Duration
	Logger        infra.Logger
}

const (
	defaultRetention     = 30 * time.Minute
	defaultTimeout       = 20 * time.Minute
	defaultSweepInterval = time.Minute
)

type entry struct {
	job    *domain.Job
	cancel context.CancelFunc
}

// Manager is the in-memory job registry. Each job is mutated by exactly
// one writer (its runner goroutine, or the sweeper once it turns
// terminal); all mutation happens under mu, and queries return snapshots.
type Manager struct {
	runner        BatchRunner
	retention     time.Duration
	timeout       time.Duration
	sweepInterval time.Duration
	logger        infra.Logger

	mu     sync.RWMutex
	jobs   map[string]*entry
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager builds the registry and starts the background sweeper.
func NewManager(opts Options) *Manager {
	m := &Manager{
		runner:        opts.Runner,
		retention:     opts.Retention,
		timeout:       opts.Timeout,
		sweepInterval: opts.SweepInterval,
		logger:        opts.Logger,
		jobs:          make(map[string]*entry),
		done:          make(chan struct{}),
	}
	if m.retention <= 0 {
		m.retention = defaultRetention
	}
	if m.timeout <= 0 {
		m.timeout = defaultTimeout
	}
	if m.sweepInterval <= 0 {
		m.sweepInterval = defaultSweepInterval
	}
	m.wg.Add(1)
	go m.sweepLoop()
	return m
}

// Submit registers a batch and schedules its runner. It never blocks on
// generation; the returned id is immediately queryable.
func (m *Manager) Submit(records []domain.Record, cfg domain.PromptConfig) (string, error) {
	cloned := make([]domain.Record, len(records))
	for i, rec := range records {
		cloned[i] = rec.Clone()
	}

	job := &domain.Job{
		ID:          uuid.NewString(),
		Status:      domain.JobStatusQueued,
		SubmittedAt: time.Now(),
		Records:     cloned,
		Config:      cfg,
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return "", domain.ErrClosed
	}
	m.jobs[job.ID] = &entry{job: job, cancel: cancel}
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runJob(ctx, cancel, job.ID)

	m.logger.Info().Str("job_id", job.ID).Int("records", len(cloned)).Msg("jobs: submitted")
	return job.ID, nil
}

func (m *Manager) runJob(ctx context.Context, cancel context.CancelFunc, id string) {
	defer m.wg.Done()
	defer cancel()

	m.mu.Lock()
	e, ok := m.jobs[id]
	if !ok || e.job.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	e.job.Status = domain.JobStatusProcessing
	records := e.job.Records
	cfg := e.job.Config
	m.mu.Unlock()

	outcomes, err := m.runner.Run(ctx, records, cfg)

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok = m.jobs[id]
	if !ok || e.job.Status.Terminal() {
		// Evicted or force-failed while running; in-flight results are
		// discarded.
		return
	}
	e.job.FinishedAt = time.Now()
	switch {
	case err != nil:
		e.job.Status = domain.JobStatusFailed
		e.job.Outcomes = outcomes
		e.job.ErrorMessage = err.Error()
		m.logger.Error().Str("job_id", id).Str("error", err.Error()).Msg("jobs: failed")
	case ctx.Err() == context.DeadlineExceeded:
		e.job.Status = domain.JobStatusFailed
		e.job.ErrorMessage = fmt.Sprintf("job exceeded its %s time budget", m.timeout)
		m.logger.Error().Str("job_id", id).Msg("jobs: timed out")
	case ctx.Err() == context.Canceled:
		e.job.Status = domain.JobStatusFailed
		e.job.ErrorMessage = "job canceled during shutdown"
		m.logger.Warn().Str("job_id", id).Msg("jobs: canceled")
	default:
		e.job.Status = domain.JobStatusCompleted
		e.job.Outcomes = outcomes
		m.logger.Info().Str("job_id", id).Int("records", len(outcomes)).Msg("jobs: completed")
	}
}

// Status returns a consistent snapshot of the job, or domain.ErrNotFound
// for unknown and evicted ids alike.
func (m *Manager) Status(id string) (domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return *e.job, nil
}

// Result returns the records and outcomes of a completed job. Jobs that
// are queued, processing, or failed report domain.ErrNotReady; the
// caller inspects Status for failure detail.
func (m *Manager) Result(id string) ([]domain.Record, []domain.Outcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.jobs[id]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if e.job.Status != domain.JobStatusCompleted {
		return nil, nil, domain.ErrNotReady
	}
	return e.job.Records, e.job.Outcomes, nil
}

// Close stops the sweeper, cancels running jobs, and waits for runner
// goroutines to observe the cancellation.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for _, e := range m.jobs {
		e.cancel()
	}
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
}

func (m *Manager) sweepLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// sweep evicts terminal jobs past the retention window and force-fails
// jobs that outlived the wall-clock ceiling without reaching a terminal
// state.
func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.jobs {
		switch {
		case e.job.Status.Terminal():
			if now.Sub(e.job.FinishedAt) > m.retention {
				delete(m.jobs, id)
				m.logger.Debug().Str("job_id", id).Msg("jobs: evicted")
			}
		case now.Sub(e.job.SubmittedAt) > m.timeout:
			e.cancel()
			e.job.Status = domain.JobStatusFailed
			e.job.FinishedAt = now
			e.job.ErrorMessage = fmt.Sprintf("job exceeded its %s time budget", m.timeout)
			m.logger.Error().Str("job_id", id).Msg("jobs: force-failed by sweeper")
		}
	}
}
