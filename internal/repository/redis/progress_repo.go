package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"media-job-service/internal/service"
)

const (
	progressKeyPrefix = "job_progress:"
	ProgressChannel   = "jobs:progress"
	progressTTL       = time.Hour
)

// ProgressRepo mirrors job progress into Redis so other processes can read or
// subscribe to it.
type ProgressRepo struct {
	client *redis.Client
}

func NewProgressRepo(client *redis.Client) *ProgressRepo {
	return &ProgressRepo{client: client}
}

func ProgressKey(jobID string) string {
	return progressKeyPrefix + jobID
}

func (r *ProgressRepo) MirrorProgress(ctx context.Context, p service.Progress) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	key := ProgressKey(p.JobID.String())

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"status":  string(p.Status),
		"percent": p.Percent,
		"note":    p.Note,
		"at":      p.At.UTC().Format(time.RFC3339Nano),
	})
	pipe.Expire(ctx, key, progressTTL)
	pipe.Publish(ctx, ProgressChannel, body)
	_, err = pipe.Exec(ctx)
	return err
}
