// Package artifact uploads finished job outputs to S3-compatible storage and
// hands back a presigned link instead of a local path.
package artifact

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"media-job-service/internal/entity"
	"media-job-service/internal/executor"
)

type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	URLTTL    time.Duration
}

type Store struct {
	client *minio.Client
	bucket string
	ttl    time.Duration
}

func NewStore(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, bucket: cfg.Bucket, ttl: ttl}, nil
}

// EnsureBucket creates the bucket on first start.
func (s *Store) EnsureBucket(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if ok {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

// Upload stores a local file and returns a presigned download URL.
func (s *Store) Upload(ctx context.Context, key, path string) (string, error) {
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.FPutObject(ctx, s.bucket, key, path, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}

	reqParams := url.Values{}
	reqParams.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.ttl, reqParams)
	if err != nil {
		return "", fmt.Errorf("presigned get object: %w", err)
	}
	return u.String(), nil
}

// Uploader is the storage port used by Wrap.
type Uploader interface {
	Upload(ctx context.Context, key, path string) (string, error)
}

// ObjectKey places each output under <kind>/<job id>/.
func ObjectKey(job entity.Job, path string) string {
	return string(job.Kind) + "/" + job.ID.String() + "/" + filepath.Base(path)
}

// Wrap uploads the local output of next and replaces it with the object URL.
// The local copy is removed whatever the upload outcome; a retry runs next again.
func Wrap(next executor.Executor, up Uploader) executor.Executor {
	return executor.Func(func(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
		res, err := next.Execute(ctx, job, report)
		if err != nil || res.Output == "" || strings.Contains(res.Output, "://") {
			return res, err
		}

		info, err := os.Stat(res.Output)
		if err != nil {
			return executor.Result{}, executor.Permanent(fmt.Errorf("output %s: %w", res.Output, err))
		}
		if info.IsDir() {
			return res, nil
		}

		report(executor.Event{Percent: 99, Note: "uploading"})

		link, err := up.Upload(ctx, ObjectKey(job, res.Output), res.Output)
		discard(res.Output)
		if err != nil {
			if ctx.Err() != nil {
				return executor.Result{}, ctx.Err()
			}
			return executor.Result{}, executor.Transient(err)
		}
		return executor.Result{Output: link}, nil
	})
}

// discard removes a local output and its directory once that is empty, which
// is only the case for the per-job download dir.
func discard(path string) {
	_ = os.Remove(path)
	_ = os.Remove(filepath.Dir(path))
}
