// Package jobs runs long operations in the background with progress
// reporting and cancellation.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle state of a job
type State int

const (
	StateRunning State = iota
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Progress counts finished units of work
type Progress struct {
	Done  int
	Total int
}

// Fraction returns completion in [0, 1]; 0 when Total is unknown
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// Job is a handle to a background operation
type Job struct {
	ID        uuid.UUID
	Name      string
	StartedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    State
	err      error
	progress Progress
}

// Func is the body of a job. It should return promptly once ctx is done.
type Func func(ctx context.Context, job *Job) error

// Cancel requests cooperative cancellation
func (j *Job) Cancel() {
	j.cancel()
}

// Done is closed when the job has finished
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx is done and returns the job's error
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the job's terminal error, nil while running or on success
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// State returns the current lifecycle state
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Progress returns a copy of the current progress
func (j *Job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// SetTotal sets the number of units of work
func (j *Job) SetTotal(total int) {
	j.mu.Lock()
	j.progress.Total = total
	j.mu.Unlock()
}

// Step records one finished unit of work
func (j *Job) Step() {
	j.mu.Lock()
	j.progress.Done++
	j.mu.Unlock()
}

func (j *Job) finish(err error) {
	j.mu.Lock()
	switch {
	case err == nil:
		j.state = StateCompleted
	case errors.Is(err, context.Canceled):
		j.state = StateCancelled
	default:
		j.state = StateFailed
	}
	j.err = err
	j.mu.Unlock()
	close(j.done)
}

// Runner starts jobs and keeps track of them until they finish
type Runner struct {
	logger zerolog.Logger

	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
}

// Option is a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger sets the logger for the Runner.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a job runner
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		logger: zerolog.Nop(),
		jobs:   make(map[uuid.UUID]*Job),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs fn in a new goroutine and returns its handle immediately.
// The job is cancelled when ctx is done or Cancel is called.
func (r *Runner) Start(ctx context.Context, name string, fn Func) *Job {
	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:        uuid.New(),
		Name:      name,
		StartedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	log := r.logger.With().Str("job", name).Str("job_id", job.ID.String()).Logger()
	log.Debug().Msg("job started")

	go func() {
		defer cancel()
		err := fn(jobCtx, job)
		if err == nil && jobCtx.Err() != nil {
			err = jobCtx.Err()
		}
		job.finish(err)

		r.mu.Lock()
		delete(r.jobs, job.ID)
		r.mu.Unlock()

		p := job.Progress()
		event := log.Info()
		if err != nil {
			event = log.Warn().Err(err)
		}
		event.Str("state", job.State().String()).Int("done", p.Done).Int("total", p.Total).
			Dur("elapsed", time.Since(job.StartedAt)).Msg("job finished")
	}()

	return job
}

// Get returns a running job by ID
func (r *Runner) Get(id uuid.UUID) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	return job, ok
}

// Running returns the number of jobs still in flight
func (r *Runner) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// ForEach calls fn for every item with at most limit calls in flight. It stops
// starting new items once ctx is done or an fn returns an error, and returns
// the first error. Per-item failures that should not stop the batch must be
// handled inside fn.
func ForEach[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, item := range items {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, item)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
