// Package executor defines the contract between the scheduler and the code
// that actually fetches or transcodes media.
package executor

import (
	"context"
	"errors"
	"fmt"

	"media-job-service/internal/entity"
)

// Event is one progress step reported while a job runs.
type Event struct {
	Percent int
	Note    string
}

// Result is returned on success. Output is a file path or URL.
type Result struct {
	Output string
}

// Executor runs one job. Implementations call report zero or more times, in
// order, and then return. They must stop promptly once ctx is cancelled,
// release any process or connection they hold and discard partial output.
type Executor interface {
	Execute(ctx context.Context, job entity.Job, report func(Event)) (Result, error)
}

type Func func(ctx context.Context, job entity.Job, report func(Event)) (Result, error)

func (f Func) Execute(ctx context.Context, job entity.Job, report func(Event)) (Result, error) {
	return f(ctx, job, report)
}

type ErrorKind int

const (
	KindTransient ErrorKind = iota + 1
	KindPermanent
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	}
	return "unknown"
}

// Error classifies an executor failure for the retry policy.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindTransient, Err: err}
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindPermanent, Err: err}
}

// IsTransient reports whether err is worth retrying. Unclassified errors are
// treated as permanent.
func IsTransient(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindTransient
	}
	return false
}

// Registry picks the executor for a job kind.
type Registry map[entity.JobKind]Executor

var ErrUnsupportedKind = errors.New("unsupported job kind")

func (r Registry) Execute(ctx context.Context, job entity.Job, report func(Event)) (Result, error) {
	ex, ok := r[job.Kind]
	if !ok || ex == nil {
		return Result{}, Permanent(fmt.Errorf("%w: %s", ErrUnsupportedKind, job.Kind))
	}
	return ex.Execute(ctx, job, report)
}
