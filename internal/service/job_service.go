package service

import (
	"context"
	"log"

	"github.com/google/uuid"

	"media-job-service/internal/entity"
)

// JobStore is the queue port used by the facade (implementation: QueueStore).
type JobStore interface {
	Enqueue(job entity.Job) (uuid.UUID, error)
	Get(id uuid.UUID) (entity.Job, error)
	List(f entity.Filter) []entity.Job
	Cancel(id uuid.UUID) error
	Pause(id uuid.UUID) error
	Resume(id uuid.UUID) error
	ClearCompleted() int
}

// JobService is the only entry point external collaborators use.
type JobService struct {
	store JobStore
}

func NewJobService(store JobStore) *JobService {
	return &JobService{store: store}
}

type SubmitRequest struct {
	Kind      entity.JobKind
	SourceRef string
	Options   entity.Options
}

// Submit validates the request and queues a new job. Invalid input never
// reaches the store. The returned job carries the normalized options.
func (s *JobService) Submit(ctx context.Context, req SubmitRequest) (entity.Job, error) {
	req, err := normalize(req)
	if err != nil {
		return entity.Job{}, err
	}

	job := entity.Job{
		ID:        uuid.New(),
		Kind:      req.Kind,
		SourceRef: req.SourceRef,
		Source:    DetectSource(req.SourceRef),
		Title:     TitleFromSource(req.Kind, req.SourceRef),
		Options:   req.Options,
	}

	id, err := s.store.Enqueue(job)
	if err != nil {
		return entity.Job{}, err
	}
	job.ID = id
	job.Status = entity.StatusQueued

	log.Printf("[api] job_id=%s kind=%s source=%s status=queued", id, job.Kind, job.Source)
	return job, nil
}

func (s *JobService) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Cancel(id); err != nil {
		return err
	}
	log.Printf("[api] job_id=%s cancel requested", id)
	return nil
}

func (s *JobService) Pause(ctx context.Context, id uuid.UUID) error {
	return s.store.Pause(id)
}

func (s *JobService) Resume(ctx context.Context, id uuid.UUID) error {
	return s.store.Resume(id)
}

func (s *JobService) Status(ctx context.Context, id uuid.UUID) (entity.Job, error) {
	return s.store.Get(id)
}

func (s *JobService) List(ctx context.Context, f entity.Filter) []entity.Job {
	return s.store.List(f)
}

func (s *JobService) ClearCompleted(ctx context.Context) int {
	n := s.store.ClearCompleted()
	if n > 0 {
		log.Printf("[api] cleared completed jobs=%d", n)
	}
	return n
}

// Tab names used by the queue view.
const (
	TabAll       = "all"
	TabActive    = "active"
	TabPending   = "pending"
	TabCompleted = "completed"
	TabFailed    = "failed"
)

var Tabs = []string{TabActive, TabPending, TabCompleted, TabFailed}

// TabFilter maps a queue tab to the statuses it shows.
func TabFilter(tab string) (entity.Filter, error) {
	switch tab {
	case "", TabAll:
		return entity.Filter{}, nil
	case TabActive:
		return entity.Filter{Statuses: []entity.JobStatus{entity.StatusRunning, entity.StatusPaused}}, nil
	case TabPending:
		return entity.Filter{Statuses: []entity.JobStatus{entity.StatusQueued}}, nil
	case TabCompleted:
		return entity.Filter{Statuses: []entity.JobStatus{entity.StatusCompleted}}, nil
	case TabFailed:
		return entity.Filter{Statuses: []entity.JobStatus{entity.StatusFailed, entity.StatusCancelled}}, nil
	}
	return entity.Filter{}, invalid("tab", "unknown tab %q", tab)
}

// ListTab returns the jobs of one tab together with the size of every tab.
func (s *JobService) ListTab(ctx context.Context, tab string, kind entity.JobKind) ([]entity.Job, map[string]int, error) {
	f, err := TabFilter(tab)
	if err != nil {
		return nil, nil, err
	}
	if kind != "" && !kind.Valid() {
		return nil, nil, invalid("kind", "unknown job kind %q", kind)
	}
	f.Kind = kind

	all := s.store.List(entity.Filter{Kind: kind})
	counts := make(map[string]int, len(Tabs))
	for _, t := range Tabs {
		tf, _ := TabFilter(t)
		for i := range all {
			if tf.Match(&all[i]) {
				counts[t]++
			}
		}
	}

	jobs := make([]entity.Job, 0, len(all))
	for i := range all {
		if f.Match(&all[i]) {
			jobs = append(jobs, all[i])
		}
	}
	return jobs, counts, nil
}
