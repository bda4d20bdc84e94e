package httptransport

import (
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// RequestLogger must run after middleware.RequestID.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())

		next.ServeHTTP(sw, r)

		log.Printf("[http] req_id=%s method=%s path=%s status=%d bytes=%d duration_ms=%d",
			reqID,
			r.Method,
			r.URL.Path,
			sw.status,
			sw.bytes,
			time.Since(start).Milliseconds(),
		)
	})
}

// RateCounter counts requests per client in fixed windows (implementation: redis.RateCounter).
type RateCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, reset time.Duration, err error)
}

type rateLimitResp struct {
	Message       string `json:"message"`
	RateLimit     int    `json:"rate_limit"`
	Window        string `json:"rate_limit_window"`
	RetryAfterSec int    `json:"retry_after_sec"`
}

// RateLimit rejects clients that exceed limit requests per window. Counter
// failures let the request through.
func RateLimit(counter RateCounter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, reset, err := counter.Hit(r.Context(), clientKey(r), window)
			if err != nil {
				log.Printf("[http] rate limiter error=%v", err)
				next.ServeHTTP(w, r)
				return
			}

			resetSec := int(reset.Seconds())
			if resetSec < 0 {
				resetSec = 0
			}
			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))

			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(resetSec))
				writeJSON(w, http.StatusTooManyRequests, rateLimitResp{
					Message:       "rate limit exceeded",
					RateLimit:     limit,
					Window:        window.String(),
					RetryAfterSec: resetSec,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey relies on middleware.RealIP having rewritten RemoteAddr.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "" {
		return "anonymous"
	}
	return host
}
