package entity_test

import (
	"testing"
	"time"

	"media-job-service/internal/entity"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to entity.JobStatus
		want     bool
	}{
		{entity.StatusQueued, entity.StatusRunning, true},
		{entity.StatusQueued, entity.StatusCancelled, true},
		{entity.StatusQueued, entity.StatusCompleted, false},
		{entity.StatusQueued, entity.StatusPaused, false},
		{entity.StatusRunning, entity.StatusCompleted, true},
		{entity.StatusRunning, entity.StatusPaused, true},
		{entity.StatusPaused, entity.StatusQueued, true},
		{entity.StatusPaused, entity.StatusRunning, false},
		{entity.StatusCompleted, entity.StatusQueued, false},
		{entity.StatusFailed, entity.StatusRunning, false},
		{entity.StatusCancelled, entity.StatusQueued, false},
	}

	for _, tt := range tests {
		if got := entity.CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []entity.JobStatus{entity.StatusCompleted, entity.StatusFailed, entity.StatusCancelled} {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	for _, s := range []entity.JobStatus{entity.StatusQueued, entity.StatusRunning, entity.StatusPaused} {
		if s.Terminal() {
			t.Fatalf("expected %s to be non-terminal", s)
		}
	}
}

func TestSnapshot_DoesNotShareTrim(t *testing.T) {
	msg := "boom"
	j := entity.Job{
		Options: entity.Options{Trim: &entity.TrimRange{Start: time.Second}},
		Error:   &msg,
	}

	cp := j.Snapshot()
	cp.Options.Trim.Start = time.Minute
	*cp.Error = "changed"

	if j.Options.Trim.Start != time.Second {
		t.Fatalf("original trim mutated: %v", j.Options.Trim.Start)
	}
	if *j.Error != "boom" {
		t.Fatalf("original error mutated: %s", *j.Error)
	}
}

func TestFilter_Match(t *testing.T) {
	j := &entity.Job{Kind: entity.KindConvert, Status: entity.StatusFailed}

	if !(entity.Filter{}).Match(j) {
		t.Fatalf("empty filter should match")
	}
	if (entity.Filter{Kind: entity.KindDownload}).Match(j) {
		t.Fatalf("kind filter should not match")
	}
	f := entity.Filter{Statuses: []entity.JobStatus{entity.StatusFailed, entity.StatusCancelled}}
	if !f.Match(j) {
		t.Fatalf("status filter should match")
	}
}
