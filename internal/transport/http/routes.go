package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Routes builds the router. apiMiddleware (e.g. RateLimit) applies to /api only.
func Routes(h *Handler, apiMiddleware ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)

	r.NotFound(notFound)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware...)

			r.Get("/sites", h.Sites)

			r.Post("/download", h.CreateDownload)
			r.Get("/download/{id}", h.GetDownload)

			r.Post("/convert", h.CreateConvert)
			r.Get("/convert/{id}", h.GetConvert)

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", h.ListJobs)
				r.Post("/clear-completed", h.ClearCompleted)
				r.Post("/{id}/cancel", h.CancelJob)
				r.Post("/{id}/pause", h.PauseJob)
				r.Post("/{id}/resume", h.ResumeJob)
			})

			r.Get("/history", h.ListHistory)
			r.Get("/history/{id}", h.GetHistory)
		})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return r
}
