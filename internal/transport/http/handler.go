package httptransport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"media-job-service/internal/entity"
	"media-job-service/internal/service"
)

const (
	msgDownloadQueued   = "Download queued successfully"
	msgConversionQueued = "Conversion queued successfully"
)

type Handler struct {
	jobSvc     *service.JobService
	historySvc *service.HistoryService
	started    time.Time
}

func NewHandler(jobSvc *service.JobService, historySvc *service.HistoryService) *Handler {
	if historySvc == nil {
		historySvc = service.NewHistoryService(nil)
	}
	return &Handler{jobSvc: jobSvc, historySvc: historySvc, started: time.Now()}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// CreateDownload godoc
// @Summary Queue a media download
// @Description Validates the request and queues a download job. Quality and format default to 1080p/mp4.
// @Tags download
// @Accept json
// @Produce json
// @Param request body downloadRequest true "download request"
// @Success 201 {object} downloadResp
// @Failure 400 {object} apiError
// @Router /api/download [post]
func (h *Handler) CreateDownload(w http.ResponseWriter, r *http.Request) {
	var dto downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if dto.URL == "" {
		writeErr(w, http.StatusBadRequest, "URL is required")
		return
	}

	trim, err := dto.Trim.toEntity()
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}

	j, err := h.jobSvc.Submit(r.Context(), service.SubmitRequest{
		Kind:      entity.KindDownload,
		SourceRef: dto.URL,
		Options: entity.Options{
			Quality:      dto.Quality,
			Format:       dto.Format,
			AudioQuality: dto.AudioQuality,
			Subtitles:    dto.Subtitles,
			Thumbnail:    dto.Thumbnail,
			Metadata:     dto.Metadata,
			RemoveAds:    dto.RemoveAds,
			Trim:         trim,
		},
	})
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, downloadResp{
		ID:      j.ID.String(),
		URL:     j.SourceRef,
		Status:  j.Status,
		Quality: j.Options.Quality,
		Format:  j.Options.Format,
		Message: msgDownloadQueued,
	})
}

// CreateConvert godoc
// @Summary Queue a media conversion
// @Tags convert
// @Accept json
// @Produce json
// @Param request body convertRequest true "conversion request"
// @Success 201 {object} convertResp
// @Failure 400 {object} apiError
// @Router /api/convert [post]
func (h *Handler) CreateConvert(w http.ResponseWriter, r *http.Request) {
	var dto convertRequest
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if dto.FileID == "" || dto.TargetFormat == "" {
		writeErr(w, http.StatusBadRequest, "Required parameters missing")
		return
	}

	trim, err := dto.Trim.toEntity()
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}

	j, err := h.jobSvc.Submit(r.Context(), service.SubmitRequest{
		Kind:      entity.KindConvert,
		SourceRef: dto.FileID,
		Options: entity.Options{
			Format:       dto.TargetFormat,
			AudioQuality: dto.AudioQuality,
			Trim:         trim,
		},
	})
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, convertResp{
		ID:           j.ID.String(),
		FileID:       j.SourceRef,
		TargetFormat: j.Options.Format,
		Status:       j.Status,
		Message:      msgConversionQueued,
	})
}

// GetDownload godoc
// @Summary Get download job status
// @Tags download
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/download/{id} [get]
func (h *Handler) GetDownload(w http.ResponseWriter, r *http.Request) {
	h.getJob(w, r, entity.KindDownload)
}

// GetConvert godoc
// @Summary Get conversion job status
// @Tags convert
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/convert/{id} [get]
func (h *Handler) GetConvert(w http.ResponseWriter, r *http.Request) {
	h.getJob(w, r, entity.KindConvert)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request, kind entity.JobKind) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	j, err := h.jobSvc.Status(r.Context(), id)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	if j.Kind != kind {
		writeErr(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, toJobResp(j))
}

// ListJobs godoc
// @Summary List queued and finished jobs
// @Description Jobs of one tab in creation order, plus the size of every tab.
// @Tags jobs
// @Produce json
// @Param tab query string false "all|active|pending|completed|failed"
// @Param kind query string false "download|convert"
// @Success 200 {object} listResp
// @Failure 400 {object} apiError
// @Router /api/jobs [get]
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	kind := entity.JobKind(r.URL.Query().Get("kind"))

	jobs, counts, err := h.jobSvc.ListTab(r.Context(), tab, kind)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	if tab == "" {
		tab = service.TabAll
	}
	writeJSON(w, http.StatusOK, listResp{Tab: tab, Jobs: toJobResps(jobs), Counts: counts})
}

// CancelJob godoc
// @Summary Cancel a job
// @Description Queued jobs are removed, paused jobs are cancelled at once, running jobs stop at their next checkpoint.
// @Tags jobs
// @Param id path string true "job id (uuid)"
// @Success 204
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /api/jobs/{id}/cancel [post]
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.jobSvc.Cancel)
}

// PauseJob godoc
// @Summary Pause a running job
// @Tags jobs
// @Param id path string true "job id (uuid)"
// @Success 204
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /api/jobs/{id}/pause [post]
func (h *Handler) PauseJob(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.jobSvc.Pause)
}

// ResumeJob godoc
// @Summary Resume a paused job
// @Tags jobs
// @Param id path string true "job id (uuid)"
// @Success 204
// @Failure 404 {object} apiError
// @Failure 409 {object} apiError
// @Router /api/jobs/{id}/resume [post]
func (h *Handler) ResumeJob(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.jobSvc.Resume)
}

func (h *Handler) control(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) error) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), id); err != nil {
		writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCompleted godoc
// @Summary Remove completed jobs from the queue view
// @Tags jobs
// @Produce json
// @Success 200 {object} clearResp
// @Router /api/jobs/clear-completed [post]
func (h *Handler) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, clearResp{Removed: h.jobSvc.ClearCompleted(r.Context())})
}

// ListHistory godoc
// @Summary List archived jobs
// @Tags history
// @Produce json
// @Param limit query int false "max jobs (default 50, max 200)"
// @Param kind query string false "download|convert"
// @Success 200 {object} historyResp
// @Failure 404 {object} apiError
// @Router /api/history [get]
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	jobs, err := h.historySvc.Recent(r.Context(), parseLimit(q.Get("limit")), entity.JobKind(q.Get("kind")))
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResp{Jobs: toJobResps(jobs)})
}

// GetHistory godoc
// @Summary Get an archived job
// @Tags history
// @Produce json
// @Param id path string true "job id (uuid)"
// @Success 200 {object} jobResp
// @Failure 400 {object} apiError
// @Failure 404 {object} apiError
// @Router /api/history/{id} [get]
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	j, err := h.historySvc.Get(r.Context(), id)
	if err != nil {
		writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResp(*j))
}

// Sites godoc
// @Summary Supported site catalogue
// @Tags system
// @Produce json
// @Success 200 {object} service.SiteCatalogue
// @Router /api/sites [get]
func (h *Handler) Sites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, service.Sites)
}

// Health godoc
// @Summary Liveness check
// @Tags system
// @Produce json
// @Success 200 {object} healthResp
// @Router /api/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResp{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Seconds(),
	})
}
