// Package ratelimit applies a per-client request budget in front of the
// calculation endpoints. The store is in-memory: the service is stateless and
// horizontally scaled instances each enforce their own budget.
package ratelimit

import (
	"net/http"
	"strconv"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/invoice-api/internal/common"
)

// Config controls limiter construction.
type Config struct {
	// Rate is the allowed request budget, e.g. 60 per minute.
	Rate limiter.Rate
	// Key extracts the bucket key from the request; defaults to client IP.
	Key func(*http.Request) string
}

// Handler enforces the configured rate limit.
type Handler struct {
	limiter *limiter.Limiter
	key     func(*http.Request) string
}

// New constructs a rate limit handler backed by the in-memory store.
func New(cfg Config) *Handler {
	key := cfg.Key
	if key == nil {
		key = common.ClientIP
	}
	return &Handler{
		limiter: limiter.New(memory.NewStore(), cfg.Rate),
		key:     key,
	}
}

// Middleware rejects requests over budget with HTTP 429. Limiter headers are
// attached to every response so clients can pace themselves.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lctx, err := h.limiter.Get(r.Context(), h.key(r))
		if err != nil {
			// fail open on limiter errors
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))
		if lctx.Reached {
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
