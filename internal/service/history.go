package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"media-job-service/internal/entity"
)

// JobArchive is the history port (implementation: postgresql.JobRepository).
type JobArchive interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	ListRecent(ctx context.Context, limit int, kind entity.JobKind) ([]entity.Job, error)
}

var ErrHistoryDisabled = errors.New("job history is not configured")

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

type HistoryService struct {
	archive JobArchive
}

// NewHistoryService accepts a nil archive; every call then returns ErrHistoryDisabled.
func NewHistoryService(archive JobArchive) *HistoryService {
	return &HistoryService{archive: archive}
}

func (s *HistoryService) Enabled() bool { return s.archive != nil }

func (s *HistoryService) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	if s.archive == nil {
		return nil, ErrHistoryDisabled
	}
	return s.archive.GetByID(ctx, id)
}

func (s *HistoryService) Recent(ctx context.Context, limit int, kind entity.JobKind) ([]entity.Job, error) {
	if s.archive == nil {
		return nil, ErrHistoryDisabled
	}
	if kind != "" && !kind.Valid() {
		return nil, invalid("kind", "unknown kind %q", kind)
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	return s.archive.ListRecent(ctx, limit, kind)
}
