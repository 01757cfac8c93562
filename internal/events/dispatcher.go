// Package events runs durable background jobs. Jobs are rows in the jobs
// table, so a scheduled job survives restarts and fires at its run_at time.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
)

// ErrUnknownJob is recorded on jobs whose name has no registered handler.
var ErrUnknownJob = errors.New("no handler registered for job")

// Event is a unit of work to run at RunAt (immediately when zero).
// Events sharing a DedupKey are stored once.
type Event struct {
	Name     string
	Payload  interface{}
	RunAt    time.Time
	DedupKey string
}

// Publisher queues events for background execution.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Handler processes a job payload. Returning an error schedules a retry
// unless the error is marked Permanent.
type Handler func(ctx context.Context, payload []byte) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

type Options struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

type Dispatcher struct {
	jobs     repository.JobRepository
	log      *logrus.Logger
	opts     Options
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewDispatcher(jobs repository.JobRepository, opts Options, log *logrus.Logger) *Dispatcher {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	return &Dispatcher{
		jobs:     jobs,
		log:      log,
		opts:     opts,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a job name, replacing any previous one.
func (d *Dispatcher) Register(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

func (d *Dispatcher) handler(name string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[name]
	return h, ok
}

func (d *Dispatcher) now() time.Time {
	return d.opts.Now().UTC()
}

func (d *Dispatcher) Publish(ctx context.Context, ev Event) error {
	if ev.Name == "" {
		return errors.New("event name is required")
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", ev.Name, err)
	}

	runAt := ev.RunAt
	if runAt.IsZero() {
		runAt = d.now()
	}

	job := &models.Job{
		Name:    ev.Name,
		Payload: string(payload),
		Status:  models.JobStatusPending,
		RunAt:   runAt.UTC(),
	}
	if ev.DedupKey != "" {
		key := ev.DedupKey
		job.DedupKey = &key
	}

	inserted, err := d.jobs.Insert(ctx, job)
	if err != nil {
		return fmt.Errorf("failed to queue %s: %w", ev.Name, err)
	}
	if !inserted {
		d.log.WithFields(logrus.Fields{"job": ev.Name, "dedup_key": ev.DedupKey}).Debug("duplicate event skipped")
	}
	return nil
}

// RunOnce processes the jobs that are due and returns how many it ran.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	due, err := d.jobs.ListDue(ctx, d.now(), d.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due jobs: %w", err)
	}

	ran := 0
	for i := range due {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}

		job := due[i]
		claimed, err := d.jobs.Claim(ctx, job.ID, d.now())
		if err != nil {
			return ran, fmt.Errorf("failed to claim job %s: %w", job.ID, err)
		}
		if !claimed {
			continue
		}

		if err := d.execute(ctx, job); err != nil {
			return ran, err
		}
		ran++
	}
	return ran, nil
}

func (d *Dispatcher) execute(ctx context.Context, job models.Job) error {
	attempts := job.Attempts + 1
	entry := d.log.WithFields(logrus.Fields{"job_id": job.ID, "job": job.Name, "attempt": attempts})

	runErr := d.invoke(ctx, job)
	if runErr == nil {
		if err := d.jobs.MarkDone(ctx, job.ID, attempts); err != nil {
			return fmt.Errorf("failed to complete job %s: %w", job.ID, err)
		}
		return nil
	}

	if isPermanent(runErr) || attempts >= d.opts.MaxAttempts {
		entry.WithError(runErr).Error("job failed permanently")
		if err := d.jobs.MarkFailed(ctx, job.ID, attempts, runErr.Error()); err != nil {
			return fmt.Errorf("failed to mark job %s failed: %w", job.ID, err)
		}
		return nil
	}

	next := d.now().Add(time.Duration(attempts) * d.opts.RetryBackoff)
	entry.WithError(runErr).WithField("retry_at", next).Warn("job failed, retrying")
	if err := d.jobs.Reschedule(ctx, job.ID, attempts, next, runErr.Error()); err != nil {
		return fmt.Errorf("failed to reschedule job %s: %w", job.ID, err)
	}
	return nil
}

func (d *Dispatcher) invoke(ctx context.Context, job models.Job) (err error) {
	h, ok := d.handler(job.Name)
	if !ok {
		return Permanent(fmt.Errorf("%w: %s", ErrUnknownJob, job.Name))
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()

	return h(ctx, []byte(job.Payload))
}

// Recover requeues jobs a previous process left running.
func (d *Dispatcher) Recover(ctx context.Context) error {
	n, err := d.jobs.ResetRunning(ctx)
	if err != nil {
		return fmt.Errorf("failed to recover running jobs: %w", err)
	}
	if n > 0 {
		d.log.WithField("count", n).Info("requeued interrupted jobs")
	}
	return nil
}

// Run polls for due jobs until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.WithError(err).Error("dispatcher poll failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
