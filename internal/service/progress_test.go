package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"media-job-service/internal/entity"
	"media-job-service/internal/service"
)

type mirrorStub struct {
	mu   sync.Mutex
	got  []service.Progress
	fail error
}

func (m *mirrorStub) MirrorProgress(ctx context.Context, p service.Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, p)
	return m.fail
}

func TestProgressReporter_MonotonicClamp(t *testing.T) {
	ctx := context.Background()
	s := service.NewQueueStore()
	id := mustEnqueue(t, s, "https://example.com/v")
	mustClaim(t, s)

	mirror := &mirrorStub{}
	r := service.NewProgressReporter(s, mirror)

	steps := []struct {
		percent  int
		accepted bool
		want     int
	}{
		{10, true, 10},
		{40, true, 40},
		{25, false, 40}, // late event
		{40, false, 40}, // duplicate
		{90, true, 90},
	}
	for i, st := range steps {
		ok, err := r.Report(ctx, id, st.percent, "")
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if ok != st.accepted {
			t.Fatalf("step %d: accepted=%v, want %v", i, ok, st.accepted)
		}
		j, _ := s.Get(id)
		if j.Progress != st.want {
			t.Fatalf("step %d: progress=%d, want %d", i, j.Progress, st.want)
		}
	}

	if len(mirror.got) != 3 {
		t.Fatalf("expected 3 mirrored updates, got %d", len(mirror.got))
	}
	if p, ok := r.Latest(id); !ok || p.Percent != 90 {
		t.Fatalf("expected latest 90, got %+v", p)
	}
}

func TestProgressReporter_NoteOnlyChangeIsAccepted(t *testing.T) {
	ctx := context.Background()
	s := service.NewQueueStore()
	id := mustEnqueue(t, s, "https://example.com/v")
	mustClaim(t, s)
	r := service.NewProgressReporter(s, nil)

	_, _ = r.Report(ctx, id, 50, "downloading video")
	ok, _ := r.Report(ctx, id, 50, "downloading audio")
	if !ok {
		t.Fatalf("expected note change to be accepted")
	}
	// an empty note keeps the previous one
	_, _ = r.Report(ctx, id, 60, "")

	j, _ := s.Get(id)
	if j.Note != "downloading audio" || j.Progress != 60 {
		t.Fatalf("unexpected job state %d %q", j.Progress, j.Note)
	}
}

func TestProgressReporter_ResetAllowsRestart(t *testing.T) {
	ctx := context.Background()
	s := service.NewQueueStore()
	id := mustEnqueue(t, s, "https://example.com/v")
	l := mustClaim(t, s)
	r := service.NewProgressReporter(s, nil)

	_, _ = r.Report(ctx, id, 80, "")
	if _, err := s.Requeue(l, 1, 0); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	r.Reset(id)
	mustClaim(t, s)

	ok, err := r.Report(ctx, id, 5, "")
	if err != nil || !ok {
		t.Fatalf("expected restart at 5 to be accepted, ok=%v err=%v", ok, err)
	}
	j, _ := s.Get(id)
	if j.Progress != 5 {
		t.Fatalf("expected 5, got %d", j.Progress)
	}
}

func TestProgressReporter_BeginKeepsResumedProgress(t *testing.T) {
	ctx := context.Background()
	s := service.NewQueueStore()
	id := mustEnqueue(t, s, "https://example.com/v")
	l := mustClaim(t, s)
	r := service.NewProgressReporter(s, nil)

	_, _ = r.Report(ctx, id, 60, "downloading")
	if err := s.Pause(id); err != nil {
		t.Fatalf("pause: %v", err)
	}
	paused, err := s.Interrupt(l)
	if err != nil {
		t.Fatalf("interrupt: %v", err)
	}
	r.Settle(ctx, paused)
	if err := s.Resume(id); err != nil {
		t.Fatalf("resume: %v", err)
	}

	l = mustClaim(t, s)
	r.Begin(l.Job)

	if ok, _ := r.Report(ctx, id, 5, "resolving media"); ok {
		t.Fatalf("a report below the resumed progress must be dropped")
	}
	if j, _ := s.Get(id); j.Progress != 60 {
		t.Fatalf("expected progress to stay at 60, got %d", j.Progress)
	}
	if ok, _ := r.Report(ctx, id, 61, ""); !ok {
		t.Fatalf("expected 61 to be accepted")
	}
}

func TestProgressReporter_SinkErrorIsReturned(t *testing.T) {
	s := service.NewQueueStore()
	id := mustEnqueue(t, s, "https://example.com/v")
	r := service.NewProgressReporter(s, nil)

	ok, err := r.Report(context.Background(), id, 10, "")
	if ok || !errors.Is(err, service.ErrInvalidTransition) {
		t.Fatalf("expected rejected update for a queued job, ok=%v err=%v", ok, err)
	}
	if _, found := r.Latest(id); found {
		t.Fatalf("rejected update must not be remembered")
	}
}

func TestProgressReporter_SettleMirrorsFinalState(t *testing.T) {
	mirror := &mirrorStub{fail: errors.New("redis down")}
	r := service.NewProgressReporter(service.NewQueueStore(), mirror)

	msg := "unsupported url"
	job := entity.Job{Status: entity.StatusFailed, Error: &msg}
	r.Settle(context.Background(), job)

	if len(mirror.got) != 1 {
		t.Fatalf("expected 1 mirrored update, got %d", len(mirror.got))
	}
	if mirror.got[0].Status != entity.StatusFailed || mirror.got[0].Note != msg {
		t.Fatalf("unexpected final progress %+v", mirror.got[0])
	}
}
