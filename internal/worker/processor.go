package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"media-job-service/internal/entity"
	"media-job-service/internal/executor"
	"media-job-service/internal/service"
)

// JobStore settles leases (implementation: service.QueueStore).
type JobStore interface {
	Complete(l *service.Lease, output string) (entity.Job, error)
	Fail(l *service.Lease, reason string, attempt int) (entity.Job, error)
	Requeue(l *service.Lease, attempt int, delay time.Duration) (entity.Job, error)
	Interrupt(l *service.Lease) (entity.Job, error)
}

// Reporter is the progress port (implementation: service.ProgressReporter).
type Reporter interface {
	Begin(job entity.Job)
	Report(ctx context.Context, id uuid.UUID, percent int, note string) (bool, error)
	Reset(id uuid.UUID)
	Settle(ctx context.Context, job entity.Job)
}

// Recorder is told about every job that reached a terminal status.
type Recorder interface {
	Record(ctx context.Context, job entity.Job) error
}

type RecorderFunc func(ctx context.Context, job entity.Job) error

func (f RecorderFunc) Record(ctx context.Context, job entity.Job) error { return f(ctx, job) }

type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Backoff returns the delay before the given attempt becomes claimable:
// BaseDelay doubled per previous attempt, capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

type Processor struct {
	store     JobStore
	exec      executor.Executor
	reporter  Reporter
	retry     RetryPolicy
	recorders []Recorder
}

func NewProcessor(store JobStore, exec executor.Executor, reporter Reporter, retry RetryPolicy, recorders ...Recorder) *Processor {
	if retry.MaxRetries <= 0 {
		retry.MaxRetries = 1
	}
	return &Processor{
		store:     store,
		exec:      exec,
		reporter:  reporter,
		retry:     retry,
		recorders: recorders,
	}
}

// Process runs one claimed job to a settled state.
func (p *Processor) Process(lease *service.Lease) (err error) {
	start := time.Now()
	job := lease.Job
	ctx := lease.Context()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panic: %v", r)
			if final, ferr := p.store.Fail(lease, err.Error(), job.Attempt); ferr == nil {
				p.finish(ctx, final)
			}
		}
	}()

	log.Printf("[worker] job_id=%s kind=%s attempt=%d status=running", job.ID, job.Kind, job.Attempt)
	p.reporter.Begin(job)

	res, execErr := p.exec.Execute(ctx, job, func(ev executor.Event) {
		if ctx.Err() != nil {
			return
		}
		if _, rerr := p.reporter.Report(ctx, job.ID, ev.Percent, ev.Note); rerr != nil {
			log.Printf("[worker] job_id=%s progress error=%v", job.ID, rerr)
		}
	})

	var final entity.Job
	switch {
	case execErr == nil:
		final, err = p.store.Complete(lease, res.Output)

	case ctx.Err() != nil:
		final, err = p.store.Interrupt(lease)

	case executor.IsTransient(execErr):
		next := job.Attempt + 1
		if next >= p.retry.MaxRetries {
			final, err = p.store.Fail(lease, reason(execErr), next)
			break
		}
		delay := p.retry.Backoff(next)
		final, err = p.store.Requeue(lease, next, delay)
		// a cancel or pause that arrived meanwhile settles the job instead
		if err == nil && final.Status == entity.StatusQueued {
			p.reporter.Reset(job.ID)
			log.Printf("[worker] job_id=%s kind=%s status=retry attempt=%d delay_ms=%d error=%s",
				job.ID, job.Kind, next, delay.Milliseconds(), reason(execErr),
			)
			return nil
		}

	default:
		final, err = p.store.Fail(lease, reason(execErr), job.Attempt)
	}

	if err != nil {
		log.Printf("[worker] job_id=%s kind=%s settle error=%v", job.ID, job.Kind, err)
		return err
	}

	p.finish(ctx, final)

	log.Printf("[worker] job_id=%s kind=%s status=%s attempt=%d duration_ms=%d",
		job.ID, job.Kind, final.Status, final.Attempt, time.Since(start).Milliseconds(),
	)
	if final.Status == entity.StatusFailed {
		return execErr
	}
	return nil
}

func (p *Processor) finish(ctx context.Context, final entity.Job) {
	// the lease context is already cancelled at this point
	bg := context.WithoutCancel(ctx)

	p.reporter.Settle(bg, final)
	if !final.Status.Terminal() {
		return
	}
	for _, r := range p.recorders {
		if err := r.Record(bg, final); err != nil {
			log.Printf("[worker] job_id=%s record error=%v", final.ID, err)
		}
	}
}

// reason is the user-facing failure text, without the retry classification.
func reason(err error) string {
	var e *executor.Error
	if errors.As(err, &e) && e.Err != nil {
		return e.Err.Error()
	}
	return err.Error()
}
