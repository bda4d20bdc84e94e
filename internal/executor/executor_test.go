package executor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"media-job-service/internal/entity"
	"media-job-service/internal/executor"
)

func TestIsTransient(t *testing.T) {
	base := errors.New("connection reset")

	if !executor.IsTransient(executor.Transient(base)) {
		t.Fatalf("expected transient")
	}
	if executor.IsTransient(executor.Permanent(base)) {
		t.Fatalf("permanent must not be transient")
	}
	if executor.IsTransient(base) {
		t.Fatalf("unclassified errors are permanent")
	}
	wrapped := fmt.Errorf("download: %w", executor.Transient(base))
	if !executor.IsTransient(wrapped) {
		t.Fatalf("expected wrapped transient to be detected")
	}
	if !errors.Is(wrapped, base) {
		t.Fatalf("expected cause to be reachable")
	}
	if executor.Transient(nil) != nil || executor.Permanent(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
}

func TestRegistry_UnknownKindIsPermanent(t *testing.T) {
	reg := executor.Registry{}

	_, err := reg.Execute(context.Background(), entity.Job{Kind: entity.KindConvert}, func(executor.Event) {})
	if err == nil {
		t.Fatalf("expected error")
	}
	if executor.IsTransient(err) {
		t.Fatalf("unknown kind must not be retried")
	}
	if !errors.Is(err, executor.ErrUnsupportedKind) {
		t.Fatalf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestRegistry_DispatchesByKind(t *testing.T) {
	var got entity.JobKind
	reg := executor.Registry{
		entity.KindDownload: executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
			got = job.Kind
			report(executor.Event{Percent: 100})
			return executor.Result{Output: "/tmp/out.mp4"}, nil
		}),
	}

	var events int
	res, err := reg.Execute(context.Background(), entity.Job{Kind: entity.KindDownload}, func(executor.Event) { events++ })
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got != entity.KindDownload || res.Output != "/tmp/out.mp4" || events != 1 {
		t.Fatalf("unexpected dispatch: kind=%s output=%s events=%d", got, res.Output, events)
	}
}
