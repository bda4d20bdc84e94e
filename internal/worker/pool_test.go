package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"media-job-service/internal/entity"
	"media-job-service/internal/executor"
	"media-job-service/internal/service"
	"media-job-service/internal/worker"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestPool_EachJobRunsOnce(t *testing.T) {
	s := service.NewQueueStore()

	var mu sync.Mutex
	runs := make(map[uuid.UUID]int)
	ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		mu.Lock()
		runs[job.ID]++
		mu.Unlock()
		report(executor.Event{Percent: 50})
		return executor.Result{Output: job.ID.String()}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool := worker.NewPool(s, newProcessor(s, ex, 3), 4, time.Hour)
	stopped := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(stopped)
	}()

	// enqueue after start: workers must be woken without waiting for the poll interval
	const n = 50
	for i := 0; i < n; i++ {
		enqueue(t, s)
	}

	waitFor(t, "all jobs completed", func() bool {
		return len(s.List(entity.Filter{Statuses: []entity.JobStatus{entity.StatusCompleted}})) == n
	})
	cancel()
	<-stopped

	mu.Lock()
	defer mu.Unlock()
	if len(runs) != n {
		t.Fatalf("expected %d distinct jobs, got %d", n, len(runs))
	}
	for id, c := range runs {
		if c != 1 {
			t.Fatalf("job %s ran %d times", id, c)
		}
	}
}

func TestPool_ShutdownRequeuesRunningJob(t *testing.T) {
	s := service.NewQueueStore()
	id := enqueue(t, s)

	started := make(chan struct{})
	ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		report(executor.Event{Percent: 70})
		close(started)
		<-ctx.Done()
		return executor.Result{}, executor.Transient(ctx.Err())
	})

	ctx, cancel := context.WithCancel(context.Background())
	pool := worker.NewPool(s, newProcessor(s, ex, 3), 2, 10*time.Millisecond)
	stopped := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(stopped)
	}()

	<-started
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("pool did not stop")
	}

	j := mustGet(t, s, id)
	if j.Status != entity.StatusQueued {
		t.Fatalf("expected job back in queue, got %s", j.Status)
	}
	if j.Attempt != 0 || j.Progress != 0 {
		t.Fatalf("shutdown must not count as an attempt, got attempt=%d progress=%d", j.Attempt, j.Progress)
	}
}

func TestPool_PicksUpDelayedRetry(t *testing.T) {
	s := service.NewQueueStore()
	id := enqueue(t, s)

	var mu sync.Mutex
	calls := 0
	ex := executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		mu.Lock()
		calls++
		c := calls
		mu.Unlock()
		if c == 1 {
			return executor.Result{}, executor.Transient(context.DeadlineExceeded)
		}
		return executor.Result{Output: "ok"}, nil
	})

	retry := worker.RetryPolicy{MaxRetries: 3, BaseDelay: 20 * time.Millisecond, MaxDelay: time.Second}
	p := worker.NewProcessor(s, ex, service.NewProgressReporter(s, nil), retry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.NewPool(s, p, 1, time.Hour).Run(ctx)

	waitFor(t, "retried job completed", func() bool {
		j, err := s.Get(id)
		return err == nil && j.Status == entity.StatusCompleted
	})
	if j := mustGet(t, s, id); j.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", j.Attempt)
	}
}
