package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	KindDownload JobKind = "download"
	KindConvert  JobKind = "convert"
)

func (k JobKind) Valid() bool {
	return k == KindDownload || k == KindConvert
}

type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusPaused    JobStatus = "paused"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// TrimRange cuts the media to [Start, End). End == 0 means "until the end".
type TrimRange struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end,omitempty"`
}

type Options struct {
	Quality      string     `json:"quality,omitempty"`
	Format       string     `json:"format,omitempty"`
	AudioQuality string     `json:"audio_quality,omitempty"`
	Subtitles    bool       `json:"subtitles,omitempty"`
	Thumbnail    bool       `json:"thumbnail,omitempty"`
	Metadata     bool       `json:"metadata,omitempty"`
	RemoveAds    bool       `json:"remove_ads,omitempty"`
	Trim         *TrimRange `json:"trim,omitempty"`
}

// Clone returns a deep copy so snapshots never share the trim pointer.
func (o Options) Clone() Options {
	if o.Trim != nil {
		t := *o.Trim
		o.Trim = &t
	}
	return o
}

type Job struct {
	ID        uuid.UUID `json:"id"`
	Kind      JobKind   `json:"kind"`
	SourceRef string    `json:"source_ref"`
	Source    string    `json:"source,omitempty"`
	Title     string    `json:"title,omitempty"`
	Options   Options   `json:"options"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Attempt   int       `json:"attempt"`
	Note      string    `json:"note,omitempty"`
	Output    string    `json:"output,omitempty"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Seq is the insertion order inside the queue store, used to break createdAt ties.
	Seq uint64 `json:"-"`
}

// Snapshot copies the job including pointer fields.
func (j Job) Snapshot() Job {
	j.Options = j.Options.Clone()
	if j.Error != nil {
		e := *j.Error
		j.Error = &e
	}
	return j
}
