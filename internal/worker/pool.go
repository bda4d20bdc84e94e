package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"media-job-service/internal/service"
)

// Queue hands out claims (implementation: service.QueueStore).
type Queue interface {
	ClaimNext(ctx context.Context) (*service.Lease, bool)
	Wait() <-chan struct{}
}

type Pool struct {
	queue        Queue
	processor    *Processor
	workers      int
	pollInterval time.Duration
}

func NewPool(queue Queue, processor *Processor, workers int, pollInterval time.Duration) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Pool{
		queue:        queue,
		processor:    processor,
		workers:      workers,
		pollInterval: pollInterval,
	}
}

// Run blocks until ctx is cancelled and every worker has settled its job.
func (p *Pool) Run(ctx context.Context) {
	log.Printf("worker pool started: workers=%d", p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p.loop(ctx, n)
		}(i + 1)
	}
	wg.Wait()

	log.Println("worker pool stopped")
}

func (p *Pool) loop(ctx context.Context, n int) {
	for {
		if ctx.Err() != nil {
			return
		}

		// take the wake channel before claiming so an enqueue in between is not missed
		wake := p.queue.Wait()

		lease, ok := p.queue.ClaimNext(ctx)
		if !ok {
			timer := time.NewTimer(p.pollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-wake:
			case <-timer.C:
			}
			timer.Stop()
			continue
		}

		if err := p.processor.Process(lease); err != nil {
			log.Printf("[worker-%d] process job %s error: %v", n, lease.Job.ID, err)
		}
	}
}
