package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// ActorHeader identifies the caller. Every state change is attributed to it.
const ActorHeader = "X-Actor-ID"

func ActorIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(ActorHeader) == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: ActorHeader + " header required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func AdminAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get("Authorization") != "Bearer "+token {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"actor", r.Header.Get(ActorHeader),
				"request_id", chiMiddleware.GetReqID(r.Context()),
			)
		})
	}
}

// limiterIdleTTL is how long a caller's bucket is kept after its last request.
// It must exceed the one minute a bucket takes to refill.
const limiterIdleTTL = 10 * time.Minute

type actorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// actorLimiters keeps one token bucket per caller and forgets idle callers.
type actorLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*actorLimiter
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newActorLimiters(requestsPerMinute int, idle time.Duration, now func() time.Time) *actorLimiters {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &actorLimiters{
		limiters:  make(map[string]*actorLimiter),
		limit:     limit,
		burst:     requestsPerMinute,
		idle:      idle,
		lastSweep: now(),
		now:       now,
	}
}

func (a *actorLimiters) allow(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if now.Sub(a.lastSweep) >= a.idle {
		for k, l := range a.limiters {
			if now.Sub(l.lastSeen) >= a.idle {
				delete(a.limiters, k)
			}
		}
		a.lastSweep = now
	}

	l, ok := a.limiters[key]
	if !ok {
		l = &actorLimiter{limiter: rate.NewLimiter(a.limit, a.burst)}
		a.limiters[key] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

func (a *actorLimiters) tracked() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.limiters)
}

// RateLimitMiddleware allows each caller requestsPerMinute requests per
// minute, keyed by actor or remote address.
func RateLimitMiddleware(requestsPerMinute int) func(http.Handler) http.Handler {
	return rateLimit(newActorLimiters(requestsPerMinute, limiterIdleTTL, time.Now))
}

func rateLimit(limiters *actorLimiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(ActorHeader)
			if key == "" {
				key = r.RemoteAddr
			}
			if !limiters.allow(key) {
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
