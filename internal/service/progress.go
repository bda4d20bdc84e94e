package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"media-job-service/internal/entity"
)

// Progress is the latest known state of one job as seen by the reporter.
type Progress struct {
	JobID   uuid.UUID        `json:"job_id"`
	Status  entity.JobStatus `json:"status"`
	Percent int              `json:"percent"`
	Note    string           `json:"note,omitempty"`
	At      time.Time        `json:"at"`
}

// ProgressSink receives accepted progress values (implementation: QueueStore).
type ProgressSink interface {
	Update(id uuid.UUID, percent int, note string, status *entity.JobStatus) error
}

// ProgressMirror publishes progress outside the process (implementation: redis.ProgressRepo).
type ProgressMirror interface {
	MirrorProgress(ctx context.Context, p Progress) error
}

// ProgressReporter keeps the latest progress per running job and drops values
// lower than what was already accepted.
type ProgressReporter struct {
	mu     sync.Mutex
	latest map[uuid.UUID]Progress
	sink   ProgressSink
	mirror ProgressMirror
	now    func() time.Time
}

func NewProgressReporter(sink ProgressSink, mirror ProgressMirror) *ProgressReporter {
	return &ProgressReporter{
		latest: make(map[uuid.UUID]Progress),
		sink:   sink,
		mirror: mirror,
		now:    time.Now,
	}
}

// Report returns accepted=false when the event was discarded by the clamp.
func (r *ProgressReporter) Report(ctx context.Context, id uuid.UUID, percent int, note string) (bool, error) {
	percent = clampPercent(percent)

	r.mu.Lock()
	prev, ok := r.latest[id]
	if ok && (percent < prev.Percent || (percent == prev.Percent && note == prev.Note)) {
		r.mu.Unlock()
		return false, nil
	}
	if note == "" && ok {
		note = prev.Note
	}
	p := Progress{JobID: id, Status: entity.StatusRunning, Percent: percent, Note: note, At: r.now()}

	// forwarding under the lock keeps per-job order intact
	if err := r.sink.Update(id, percent, note, nil); err != nil {
		r.mu.Unlock()
		return false, err
	}
	r.latest[id] = p
	r.mu.Unlock()

	r.publish(ctx, p)
	return true, nil
}

// Begin seeds the clamp with the progress a claimed job already carries, so a
// resumed run never reports below what the job showed when it was paused.
func (r *ProgressReporter) Begin(job entity.Job) {
	r.mu.Lock()
	r.latest[job.ID] = Progress{
		JobID:   job.ID,
		Status:  entity.StatusRunning,
		Percent: clampPercent(job.Progress),
		Note:    job.Note,
		At:      r.now(),
	}
	r.mu.Unlock()
}

// Latest returns the last accepted progress for a running job.
func (r *ProgressReporter) Latest(id uuid.UUID) (Progress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.latest[id]
	return p, ok
}

// Reset lets progress restart from zero, used when a job is retried.
func (r *ProgressReporter) Reset(id uuid.UUID) {
	r.mu.Lock()
	delete(r.latest, id)
	r.mu.Unlock()
}

// Settle forgets a job that left the running state and mirrors its final view.
func (r *ProgressReporter) Settle(ctx context.Context, job entity.Job) {
	r.Reset(job.ID)

	p := Progress{JobID: job.ID, Status: job.Status, Percent: job.Progress, Note: job.Note, At: r.now()}
	if job.Error != nil {
		p.Note = *job.Error
	}
	r.publish(ctx, p)
}

func (r *ProgressReporter) publish(ctx context.Context, p Progress) {
	if r.mirror == nil {
		return
	}
	if err := r.mirror.MirrorProgress(ctx, p); err != nil {
		log.Printf("[progress] job_id=%s mirror error=%v", p.JobID, err)
	}
}
