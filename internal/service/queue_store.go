package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-job-service/internal/entity"
)

// Lease is a worker's exclusive claim on a running job. Its context is the
// cooperative cancellation flag: it is cancelled on cancel, pause, or when the
// lease is settled.
type Lease struct {
	Job   entity.Job
	ctx   context.Context
	token uint64
}

func (l *Lease) Context() context.Context { return l.ctx }

type entry struct {
	job       entity.Job
	readyAt   time.Time
	token     uint64
	cancel    context.CancelFunc
	interrupt entity.JobStatus
}

func (e *entry) release() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.interrupt = ""
}

// QueueStore keeps every job in memory, ordered by creation. A single mutex
// serializes all mutations; readers always get copies.
type QueueStore struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID]*entry
	order  []*entry
	seq    uint64
	tokens uint64
	wake   chan struct{}
	now    func() time.Time
}

type StoreOption func(*QueueStore)

func WithClock(now func() time.Time) StoreOption {
	return func(s *QueueStore) { s.now = now }
}

func NewQueueStore(opts ...StoreOption) *QueueStore {
	s := &QueueStore{
		jobs: make(map[uuid.UUID]*entry),
		wake: make(chan struct{}),
		now:  time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func less(a, b *entity.Job) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

// signal wakes every goroutine blocked on Wait. Caller holds mu.
func (s *QueueStore) signal() {
	close(s.wake)
	s.wake = make(chan struct{})
}

// Wait returns a channel that is closed the next time a job becomes claimable.
func (s *QueueStore) Wait() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wake
}

func (s *QueueStore) Enqueue(job entity.Job) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if _, ok := s.jobs[job.ID]; ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrDuplicateID, job.ID)
	}

	now := s.now()
	s.seq++
	job.Seq = s.seq
	job.Status = entity.StatusQueued
	job.Progress = 0
	job.Attempt = 0
	job.Error = nil
	job.Output = ""
	job.Options = job.Options.Clone()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	e := &entry{job: job, readyAt: now}
	idx, _ := slices.BinarySearchFunc(s.order, e, func(a, b *entry) int {
		if less(&a.job, &b.job) {
			return -1
		}
		return 1
	})
	s.order = slices.Insert(s.order, idx, e)
	s.jobs[job.ID] = e
	s.signal()

	return job.ID, nil
}

// ClaimNext marks the oldest eligible queued job as running and hands it out.
func (s *QueueStore) ClaimNext(ctx context.Context) (*Lease, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, e := range s.order {
		if e.job.Status != entity.StatusQueued || now.Before(e.readyAt) {
			continue
		}
		s.tokens++
		e.token = s.tokens
		e.job.Status = entity.StatusRunning
		e.job.UpdatedAt = now
		e.interrupt = ""

		leaseCtx, cancel := context.WithCancel(ctx)
		e.cancel = cancel
		return &Lease{Job: e.job.Snapshot(), ctx: leaseCtx, token: e.token}, true
	}
	return nil, false
}

// Update sets progress (and optionally status) of a job. Without a status the
// job must be running.
func (s *QueueStore) Update(id uuid.UUID, percent int, note string, status *entity.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyTerminal, id, e.job.Status)
	}

	now := s.now()
	percent = clampPercent(percent)

	if status == nil {
		if e.job.Status != entity.StatusRunning {
			return fmt.Errorf("%w: progress on %s job", ErrInvalidTransition, e.job.Status)
		}
		e.job.Progress = percent
		if note != "" {
			e.job.Note = note
		}
		e.job.UpdatedAt = now
		return nil
	}

	to := *status
	if to == entity.StatusRunning || !entity.CanTransition(e.job.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.job.Status, to)
	}
	e.job.Progress = percent
	if note != "" {
		e.job.Note = note
	}
	s.setStatus(e, to, now)
	return nil
}

// setStatus applies a transition and its side effects. Caller holds mu.
func (s *QueueStore) setStatus(e *entry, to entity.JobStatus, now time.Time) {
	from := e.job.Status
	e.job.Status = to
	e.job.UpdatedAt = now

	switch to {
	case entity.StatusCompleted:
		e.job.Progress = 100
		e.job.Error = nil
	case entity.StatusCancelled:
		e.job.Progress = 0
	case entity.StatusFailed:
		e.job.Progress = 0
	case entity.StatusQueued:
		if from == entity.StatusRunning {
			e.job.Progress = 0
		}
		if !now.Before(e.readyAt) {
			s.signal()
		}
	}

	if from == entity.StatusRunning {
		e.release()
	}
}

func (s *QueueStore) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	switch e.job.Status {
	case entity.StatusQueued:
		s.remove(func(x *entry) bool { return x == e })
	case entity.StatusPaused:
		s.setStatus(e, entity.StatusCancelled, s.now())
	case entity.StatusRunning:
		if e.interrupt != entity.StatusCancelled {
			e.interrupt = entity.StatusCancelled
			e.job.UpdatedAt = s.now()
			e.cancel()
		}
	default:
		return fmt.Errorf("%w: %s is %s", ErrAlreadyTerminal, id, e.job.Status)
	}
	return nil
}

// Pause asks the worker running the job to stop at its next checkpoint.
func (s *QueueStore) Pause(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	switch e.job.Status {
	case entity.StatusPaused:
		return nil
	case entity.StatusRunning:
		switch e.interrupt {
		case entity.StatusPaused:
			return nil
		case entity.StatusCancelled:
			return fmt.Errorf("%w: %s is being cancelled", ErrInvalidTransition, id)
		}
		e.interrupt = entity.StatusPaused
		e.job.UpdatedAt = s.now()
		e.cancel()
		return nil
	case entity.StatusQueued:
		return fmt.Errorf("%w: %s is not running", ErrInvalidTransition, id)
	default:
		return fmt.Errorf("%w: %s is %s", ErrAlreadyTerminal, id, e.job.Status)
	}
}

// Resume puts a paused job back in the queue keeping its progress and attempt.
func (s *QueueStore) Resume(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.job.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyTerminal, id, e.job.Status)
	}
	if e.job.Status != entity.StatusPaused {
		return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, e.job.Status)
	}

	now := s.now()
	e.readyAt = now
	s.setStatus(e, entity.StatusQueued, now)
	return nil
}

func (s *QueueStore) Get(id uuid.UUID) (entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return entity.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.job.Snapshot(), nil
}

// List returns matching jobs in creation order.
func (s *QueueStore) List(f entity.Filter) []entity.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.Job, 0, len(s.order))
	for _, e := range s.order {
		if f.Match(&e.job) {
			out = append(out, e.job.Snapshot())
		}
	}
	return out
}

func (s *QueueStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *QueueStore) ClearCompleted() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(func(e *entry) bool { return e.job.Status == entity.StatusCompleted })
}

// remove drops matching entries. Caller holds mu.
func (s *QueueStore) remove(match func(*entry) bool) int {
	n := 0
	s.order = slices.DeleteFunc(s.order, func(e *entry) bool {
		if !match(e) {
			return false
		}
		delete(s.jobs, e.job.ID)
		n++
		return true
	})
	return n
}

// leased returns the entry only if the lease still owns it. Caller holds mu.
func (s *QueueStore) leased(l *Lease) (*entry, error) {
	e, ok := s.jobs[l.Job.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, l.Job.ID)
	}
	if e.token != l.token || e.job.Status != entity.StatusRunning {
		return nil, fmt.Errorf("%w: %s", ErrLeaseLost, l.Job.ID)
	}
	return e, nil
}

func (s *QueueStore) Complete(l *Lease, output string) (entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.leased(l)
	if err != nil {
		return entity.Job{}, err
	}
	e.job.Output = output
	s.setStatus(e, entity.StatusCompleted, s.now())
	return e.job.Snapshot(), nil
}

func (s *QueueStore) Fail(l *Lease, reason string, attempt int) (entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.leased(l)
	if err != nil {
		return entity.Job{}, err
	}
	e.job.Attempt = attempt
	if e.interrupt == entity.StatusCancelled {
		s.setStatus(e, entity.StatusCancelled, s.now())
		return e.job.Snapshot(), nil
	}
	e.job.Error = &reason
	s.setStatus(e, entity.StatusFailed, s.now())
	return e.job.Snapshot(), nil
}

// Requeue returns a running job to the queue after a transient failure. The
// job becomes claimable once delay has elapsed. A pending cancel or pause wins
// over the retry; the returned job shows which status was applied.
func (s *QueueStore) Requeue(l *Lease, attempt int, delay time.Duration) (entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.leased(l)
	if err != nil {
		return entity.Job{}, err
	}
	now := s.now()
	e.job.Attempt = attempt
	e.job.Note = ""

	switch e.interrupt {
	case entity.StatusCancelled:
		s.setStatus(e, entity.StatusCancelled, now)
		return e.job.Snapshot(), nil
	case entity.StatusPaused:
		// the failed run restarts from zero once resumed
		e.job.Progress = 0
		s.setStatus(e, entity.StatusPaused, now)
		return e.job.Snapshot(), nil
	}

	e.readyAt = now.Add(delay)
	s.setStatus(e, entity.StatusQueued, now)

	if delay > 0 {
		time.AfterFunc(delay, func() {
			s.mu.Lock()
			s.signal()
			s.mu.Unlock()
		})
	}
	return e.job.Snapshot(), nil
}

// Interrupt acknowledges that the worker stopped before the executor finished.
// A pending cancel or pause is honoured; otherwise (shutdown) the job goes back
// to the queue with its attempt counter unchanged.
func (s *QueueStore) Interrupt(l *Lease) (entity.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.leased(l)
	if err != nil {
		return entity.Job{}, err
	}
	now := s.now()
	switch e.interrupt {
	case entity.StatusCancelled:
		s.setStatus(e, entity.StatusCancelled, now)
	case entity.StatusPaused:
		s.setStatus(e, entity.StatusPaused, now)
	default:
		e.readyAt = now
		s.setStatus(e, entity.StatusQueued, now)
	}
	return e.job.Snapshot(), nil
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
