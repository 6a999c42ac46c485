package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MrJamesThe3rd/dinherin/internal/http/response"
	"github.com/MrJamesThe3rd/dinherin/internal/metrics"
)

// KeyFunc names the bucket a request counts against.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the limit with 429. Limiter failures let
// the request through.
func Middleware(l Limiter, key KeyFunc, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := l.Allow(r.Context(), key(r))
			if err != nil {
				slog.Error("rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)

				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				m.RateLimited()
				response.Error(w, http.StatusTooManyRequests, "too many requests")

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
