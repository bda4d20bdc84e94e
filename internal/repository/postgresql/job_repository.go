package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"media-job-service/internal/entity"
	"media-job-service/internal/service"
)

// JobRepository archives jobs that reached a terminal status. The live queue
// stays in memory; this table only backs the history endpoints.
type JobRepository struct {
	db querier
}

// querier is the subset of *pgxpool.Pool the repository uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: pool}
}

// Save upserts the final view of a job.
func (r *JobRepository) Save(ctx context.Context, job entity.Job) error {
	opts, err := json.Marshal(job.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	var output *string
	if job.Output != "" {
		output = &job.Output
	}

	const q = `
INSERT INTO media_jobs (id, kind, source_ref, source, title, options, status, attempt, output, error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    title = EXCLUDED.title,
    attempt = EXCLUDED.attempt,
    output = EXCLUDED.output,
    error = EXCLUDED.error,
    updated_at = EXCLUDED.updated_at;
`
	_, err = r.db.Exec(ctx, q,
		job.ID,
		string(job.Kind),
		job.SourceRef,
		job.Source,
		job.Title,
		opts,
		string(job.Status),
		job.Attempt,
		output,
		job.Error,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

const selectColumns = `id, kind, source_ref, source, title, options, status, attempt, output, error, created_at, updated_at`

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	q := `SELECT ` + selectColumns + ` FROM media_jobs WHERE id = $1;`

	job, err := scanJob(r.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", service.ErrNotFound, id)
		}
		return nil, err
	}
	return job, nil
}

// ListRecent returns archived jobs, newest first. An empty kind matches all.
func (r *JobRepository) ListRecent(ctx context.Context, limit int, kind entity.JobKind) ([]entity.Job, error) {
	q := `SELECT ` + selectColumns + ` FROM media_jobs
WHERE ($2 = '' OR kind = $2)
ORDER BY updated_at DESC
LIMIT $1;`

	rows, err := r.db.Query(ctx, q, limit, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Job, 0, limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func scanJob(row pgx.Row) (*entity.Job, error) {
	var (
		job        entity.Job
		kindText   string
		statusText string
		optsBytes  []byte
		output     *string
	)
	if err := row.Scan(
		&job.ID,
		&kindText,
		&job.SourceRef,
		&job.Source,
		&job.Title,
		&optsBytes,
		&statusText,
		&job.Attempt,
		&output, // NULL => nil
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	job.Kind = entity.JobKind(kindText)
	job.Status = entity.JobStatus(statusText)
	if len(optsBytes) > 0 {
		if err := json.Unmarshal(optsBytes, &job.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}
	if output != nil {
		job.Output = *output
	}
	if job.Status == entity.StatusCompleted {
		job.Progress = 100
	}
	return &job, nil
}
