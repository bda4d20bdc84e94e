package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"media-job-service/internal/entity"
	"media-job-service/internal/executor"
	"media-job-service/internal/service"
	"media-job-service/internal/worker"
)

type recorderStub struct {
	mu   sync.Mutex
	jobs []entity.Job
}

func (r *recorderStub) Record(ctx context.Context, job entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

func (r *recorderStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func enqueue(t *testing.T, s *service.QueueStore) uuid.UUID {
	t.Helper()
	id, err := s.Enqueue(entity.Job{
		Kind:      entity.KindDownload,
		SourceRef: "https://example.com/v",
		Options:   entity.Options{Quality: "720p", Format: "mp4"},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return id
}

// drain claims and processes until nothing is claimable.
func drain(t *testing.T, s *service.QueueStore, p *worker.Processor) int {
	t.Helper()
	n := 0
	for {
		l, ok := s.ClaimNext(context.Background())
		if !ok {
			return n
		}
		n++
		_ = p.Process(l)
		if n > 100 {
			t.Fatalf("job never settled")
		}
	}
}

func mustGet(t *testing.T, s *service.QueueStore, id uuid.UUID) entity.Job {
	t.Helper()
	j, err := s.Get(id)
	if err != nil {
		t.Fatalf("get %s: %v", id, err)
	}
	return j
}

func newProcessor(s *service.QueueStore, ex executor.Executor, maxRetries int, rec ...worker.Recorder) *worker.Processor {
	return worker.NewProcessor(s, ex, service.NewProgressReporter(s, nil), worker.RetryPolicy{MaxRetries: maxRetries}, rec...)
}

func TestProcessor_RetryExhaustion(t *testing.T) {
	s := service.NewQueueStore()
	id := enqueue(t, s)
	rec := &recorderStub{}

	calls := 0
	ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		calls++
		report(executor.Event{Percent: 40})
		return executor.Result{}, executor.Transient(errors.New("connection reset"))
	})

	drain(t, s, newProcessor(s, ex, 3, rec))

	j := mustGet(t, s, id)
	if j.Status != entity.StatusFailed {
		t.Fatalf("expected failed, got %s", j.Status)
	}
	if j.Attempt != 3 || calls != 3 {
		t.Fatalf("expected 3 attempts and 3 calls, got attempt=%d calls=%d", j.Attempt, calls)
	}
	if j.Progress != 0 {
		t.Fatalf("failed job must have progress 0, got %d", j.Progress)
	}
	if j.Error == nil || *j.Error != "connection reset" {
		t.Fatalf("unexpected error text %v", j.Error)
	}
	if rec.count() != 1 {
		t.Fatalf("expected one record for the terminal state, got %d", rec.count())
	}
}

func TestProcessor_SucceedsOnLastAttempt(t *testing.T) {
	s := service.NewQueueStore()
	id := enqueue(t, s)

	calls := 0
	ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		calls++
		if job.Attempt != calls-1 {
			t.Errorf("call %d saw attempt %d", calls, job.Attempt)
		}
		report(executor.Event{Percent: 60})
		if calls < 3 {
			return executor.Result{}, executor.Transient(errors.New("timeout"))
		}
		return executor.Result{Output: "/downloads/v.mp4"}, nil
	})

	drain(t, s, newProcessor(s, ex, 3))

	j := mustGet(t, s, id)
	if j.Status != entity.StatusCompleted || j.Progress != 100 {
		t.Fatalf("expected completed at 100, got %s %d", j.Status, j.Progress)
	}
	if j.Attempt != 2 || j.Output != "/downloads/v.mp4" {
		t.Fatalf("unexpected job %+v", j)
	}
}

func TestProcessor_PermanentFailsImmediately(t *testing.T) {
	for name, err := range map[string]error{
		"permanent":    executor.Permanent(errors.New("unsupported url")),
		"unclassified": errors.New("unsupported url"),
	} {
		t.Run(name, func(t *testing.T) {
			s := service.NewQueueStore()
			id := enqueue(t, s)

			calls := 0
			ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
				calls++
				return executor.Result{}, err
			})

			drain(t, s, newProcessor(s, ex, 3))

			j := mustGet(t, s, id)
			if j.Status != entity.StatusFailed || calls != 1 || j.Attempt != 0 {
				t.Fatalf("expected one failed attempt, got %s calls=%d attempt=%d", j.Status, calls, j.Attempt)
			}
			if j.Error == nil || *j.Error != "unsupported url" {
				t.Fatalf("unexpected error text %v", j.Error)
			}
		})
	}
}

func TestProcessor_ProgressIsMonotonic(t *testing.T) {
	s := service.NewQueueStore()
	id := enqueue(t, s)

	var seen int
	ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		report(executor.Event{Percent: 10, Note: "starting"})
		report(executor.Event{Percent: 50, Note: "downloading"})
		report(executor.Event{Percent: 20})
		j, _ := s.Get(job.ID)
		seen = j.Progress
		return executor.Result{Output: "out.mp4"}, nil
	})

	drain(t, s, newProcessor(s, ex, 3))

	if seen != 50 {
		t.Fatalf("expected late event to be discarded, saw %d", seen)
	}
	if j := mustGet(t, s, id); j.Progress != 100 {
		t.Fatalf("expected 100 after completion, got %d", j.Progress)
	}
}

func TestProcessor_CancelRunning(t *testing.T) {
	s := service.NewQueueStore()
	id := enqueue(t, s)
	rec := &recorderStub{}

	started := make(chan struct{})
	ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		report(executor.Event{Percent: 30})
		close(started)
		<-ctx.Done()
		return executor.Result{}, ctx.Err()
	})
	p := newProcessor(s, ex, 3, rec)

	l, _ := s.ClaimNext(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Process(l)
	}()

	<-started
	if err := s.Cancel(id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop after cancel")
	}

	j := mustGet(t, s, id)
	if j.Status != entity.StatusCancelled || j.Progress != 0 {
		t.Fatalf("expected cancelled at 0, got %s %d", j.Status, j.Progress)
	}
	if rec.count() != 1 {
		t.Fatalf("expected cancelled job to be recorded")
	}
}

func TestProcessor_PauseAndResume(t *testing.T) {
	s := service.NewQueueStore()
	id := enqueue(t, s)

	started := make(chan struct{}, 1)
	calls := 0
	var resumedAt []int
	ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		calls++
		if calls == 1 {
			report(executor.Event{Percent: 30})
			started <- struct{}{}
			<-ctx.Done()
			return executor.Result{}, ctx.Err()
		}
		// the second run starts over from the executor's point of view
		report(executor.Event{Percent: 0, Note: "resolving media"})
		resumedAt = append(resumedAt, mustGet(t, s, id).Progress)
		report(executor.Event{Percent: 5, Note: "downloading"})
		resumedAt = append(resumedAt, mustGet(t, s, id).Progress)
		report(executor.Event{Percent: 45, Note: "downloading"})
		resumedAt = append(resumedAt, mustGet(t, s, id).Progress)
		return executor.Result{Output: "out.mp4"}, nil
	})
	p := newProcessor(s, ex, 3)

	l, _ := s.ClaimNext(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Process(l)
	}()

	<-started
	if err := s.Pause(id); err != nil {
		t.Fatalf("pause: %v", err)
	}
	<-done

	j := mustGet(t, s, id)
	if j.Status != entity.StatusPaused || j.Progress != 30 {
		t.Fatalf("expected paused at 30, got %s %d", j.Status, j.Progress)
	}
	if _, ok := s.ClaimNext(context.Background()); ok {
		t.Fatalf("paused job must not be claimable")
	}

	if err := s.Resume(id); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if j := mustGet(t, s, id); j.Status != entity.StatusQueued || j.Progress != 30 || j.Attempt != 0 {
		t.Fatalf("resume must keep progress and attempt, got %+v", j)
	}

	drain(t, s, p)
	if j := mustGet(t, s, id); j.Status != entity.StatusCompleted {
		t.Fatalf("expected completed after resume, got %s", j.Status)
	}
	want := []int{30, 30, 45}
	if len(resumedAt) != len(want) {
		t.Fatalf("expected %d observations, got %v", len(want), resumedAt)
	}
	for i := range want {
		if resumedAt[i] != want[i] {
			t.Fatalf("progress after resume must not drop below 30, got %v", resumedAt)
		}
	}
}

// cancelOnRequeue accepts a cancel right before the retry is stored, which is
// the window after the processor checked the lease context.
type cancelOnRequeue struct {
	*service.QueueStore
}

func (c cancelOnRequeue) Requeue(l *service.Lease, attempt int, delay time.Duration) (entity.Job, error) {
	if err := c.QueueStore.Cancel(l.Job.ID); err != nil {
		return entity.Job{}, err
	}
	return c.QueueStore.Requeue(l, attempt, delay)
}

func TestProcessor_CancelDuringRetryIsNotLost(t *testing.T) {
	s := service.NewQueueStore()
	id := enqueue(t, s)

	calls := 0
	ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		calls++
		return executor.Result{}, executor.Transient(errors.New("connection reset"))
	})
	rec := &recorderStub{}
	p := worker.NewProcessor(cancelOnRequeue{s}, ex, service.NewProgressReporter(s, nil), worker.RetryPolicy{MaxRetries: 3}, rec)

	drain(t, s, p)

	j := mustGet(t, s, id)
	if j.Status != entity.StatusCancelled || calls != 1 {
		t.Fatalf("expected cancelled after one run, got %s after %d runs", j.Status, calls)
	}
	if rec.count() != 1 {
		t.Fatalf("expected cancelled job to be recorded, got %d", rec.count())
	}
}

func TestProcessor_RecoversExecutorPanic(t *testing.T) {
	s := service.NewQueueStore()
	id := enqueue(t, s)

	ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		panic("boom")
	})

	l, _ := s.ClaimNext(context.Background())
	if err := newProcessor(s, ex, 3).Process(l); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if j := mustGet(t, s, id); j.Status != entity.StatusFailed {
		t.Fatalf("expected failed after panic, got %s", j.Status)
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := worker.RetryPolicy{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: 5 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Backoff(tt.attempt); got != tt.want {
			t.Fatalf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
