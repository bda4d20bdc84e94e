package httptransport

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"media-job-service/internal/service"
)

type apiError struct {
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Method  string `json:"method,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, apiError{Message: msg})
}

// writeServiceErr maps facade errors to status codes.
func writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeErr(w, http.StatusNotFound, "job not found")
	case errors.Is(err, service.ErrHistoryDisabled):
		writeErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyTerminal),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDuplicateID):
		writeErr(w, http.StatusConflict, err.Error())
	default:
		log.Printf("[http] method=%s path=%s error=%v", r.Method, r.URL.Path, err)
		writeErr(w, http.StatusInternalServerError, "internal server error")
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, apiError{
		Message: "endpoint not found",
		Path:    r.URL.Path,
		Method:  r.Method,
	})
}
