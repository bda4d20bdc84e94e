package postgresql

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"media-job-service/internal/entity"
	"media-job-service/internal/service"
)

// rowStub scans vals positionally into the destinations.
type rowStub struct {
	vals []any
	err  error
}

func (r rowStub) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.vals) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.vals[i]))
	}
	return nil
}

type querierStub struct {
	row rowStub
}

func (q querierStub) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not used")
}

func (q querierStub) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (q querierStub) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return q.row
}

func strPtr(s string) *string { return &s }

func jobRow(id uuid.UUID, status string, opts string, output, errText *string) rowStub {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return rowStub{vals: []any{
		id,
		"download",
		"https://www.youtube.com/watch?v=abc",
		"youtube",
		"youtube.com video",
		[]byte(opts),
		status,
		2,
		output,
		errText,
		at,
		at,
	}}
}

func TestScanJob_CompletedWithoutOutput(t *testing.T) {
	id := uuid.New()
	job, err := scanJob(jobRow(id, "completed", `{"quality":"720p","format":"mp4","trim":{"start":90000000000}}`, nil, nil))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if job.ID != id || job.Kind != entity.KindDownload || job.Status != entity.StatusCompleted {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.Progress != 100 || job.Output != "" || job.Error != nil || job.Attempt != 2 {
		t.Fatalf("unexpected settled fields %+v", job)
	}
	if job.Options.Quality != "720p" || job.Options.Trim == nil || job.Options.Trim.Start != 90*time.Second {
		t.Fatalf("unexpected options %+v", job.Options)
	}
}

func TestScanJob_FailedKeepsErrorAndZeroProgress(t *testing.T) {
	job, err := scanJob(jobRow(uuid.New(), "failed", `{}`, strPtr("/downloads/x.part"), strPtr("connection reset")))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if job.Progress != 0 || job.Output != "/downloads/x.part" || job.Error == nil || *job.Error != "connection reset" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestScanJob_BadOptions(t *testing.T) {
	if _, err := scanJob(jobRow(uuid.New(), "completed", `{"quality":`, nil, nil)); err == nil {
		t.Fatalf("expected options decode error")
	}
}

func TestJobRepository_GetByID_NotFound(t *testing.T) {
	repo := &JobRepository{db: querierStub{row: rowStub{err: pgx.ErrNoRows}}}

	_, err := repo.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected service.ErrNotFound, got %v", err)
	}
}
