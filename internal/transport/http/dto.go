package httptransport

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"media-job-service/internal/entity"
	"media-job-service/internal/service"
)

// offset accepts either a JSON number of seconds or a "hh:mm:ss" string.
type offset string

func (o *offset) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*o = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*o = offset(s)
	default:
		*o = offset(b)
	}
	return nil
}

type trimDTO struct {
	Start offset `json:"start"`
	End   offset `json:"end"`
}

func (t *trimDTO) toEntity() (*entity.TrimRange, error) {
	if t == nil {
		return nil, nil
	}
	start, err := service.ParseOffset(string(t.Start))
	if err != nil {
		return nil, err
	}
	end, err := service.ParseOffset(string(t.End))
	if err != nil {
		return nil, err
	}
	return &entity.TrimRange{Start: start, End: end}, nil
}

type downloadRequest struct {
	URL          string   `json:"url"`
	Quality      string   `json:"quality"`
	Format       string   `json:"format"`
	AudioQuality string   `json:"audioQuality"`
	Subtitles    bool     `json:"subtitles"`
	Thumbnail    bool     `json:"thumbnail"`
	Metadata     bool     `json:"metadata"`
	RemoveAds    bool     `json:"removeAds"`
	Trim         *trimDTO `json:"trim,omitempty"`
}

type downloadResp struct {
	ID      string           `json:"id"`
	URL     string           `json:"url"`
	Status  entity.JobStatus `json:"status"`
	Quality string           `json:"quality"`
	Format  string           `json:"format"`
	Message string           `json:"message"`
}

type convertRequest struct {
	FileID       string   `json:"fileId"`
	TargetFormat string   `json:"targetFormat"`
	AudioQuality string   `json:"audioQuality"`
	Trim         *trimDTO `json:"trim,omitempty"`
}

type convertResp struct {
	ID           string           `json:"id"`
	FileID       string           `json:"fileId"`
	TargetFormat string           `json:"targetFormat"`
	Status       entity.JobStatus `json:"status"`
	Message      string           `json:"message"`
}

type trimResp struct {
	Start float64 `json:"start"`
	End   float64 `json:"end,omitempty"`
}

type optionsResp struct {
	Quality      string    `json:"quality,omitempty"`
	Format       string    `json:"format,omitempty"`
	AudioQuality string    `json:"audioQuality,omitempty"`
	Subtitles    bool      `json:"subtitles,omitempty"`
	Thumbnail    bool      `json:"thumbnail,omitempty"`
	Metadata     bool      `json:"metadata,omitempty"`
	RemoveAds    bool      `json:"removeAds,omitempty"`
	Trim         *trimResp `json:"trim,omitempty"`
}

type jobResp struct {
	ID          string           `json:"id"`
	Kind        entity.JobKind   `json:"kind"`
	SourceRef   string           `json:"sourceRef"`
	Source      string           `json:"source,omitempty"`
	Title       string           `json:"title,omitempty"`
	Status      entity.JobStatus `json:"status"`
	Progress    int              `json:"progress"`
	CurrentStep string           `json:"currentStep,omitempty"`
	Attempt     int              `json:"attempt"`
	Options     optionsResp      `json:"options"`
	Output      string           `json:"output,omitempty"`
	Error       *string          `json:"error,omitempty"`
	CreatedAt   string           `json:"createdAt"`
	UpdatedAt   string           `json:"updatedAt"`
}

func toJobResp(j entity.Job) jobResp {
	o := j.Options
	resp := jobResp{
		ID:          j.ID.String(),
		Kind:        j.Kind,
		SourceRef:   j.SourceRef,
		Source:      j.Source,
		Title:       j.Title,
		Status:      j.Status,
		Progress:    j.Progress,
		CurrentStep: j.Note,
		Attempt:     j.Attempt,
		Options: optionsResp{
			Quality:      o.Quality,
			Format:       o.Format,
			AudioQuality: o.AudioQuality,
			Subtitles:    o.Subtitles,
			Thumbnail:    o.Thumbnail,
			Metadata:     o.Metadata,
			RemoveAds:    o.RemoveAds,
		},
		Output:    j.Output,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
	if o.Trim != nil {
		resp.Options.Trim = &trimResp{Start: o.Trim.Start.Seconds(), End: o.Trim.End.Seconds()}
	}
	return resp
}

func toJobResps(jobs []entity.Job) []jobResp {
	out := make([]jobResp, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResp(j))
	}
	return out
}

type listResp struct {
	Tab    string         `json:"tab"`
	Jobs   []jobResp      `json:"jobs"`
	Counts map[string]int `json:"counts"`
}

type historyResp struct {
	Jobs []jobResp `json:"jobs"`
}

type clearResp struct {
	Removed int `json:"removed"`
}

type healthResp struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
