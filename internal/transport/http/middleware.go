package http

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/snehjoshi/smq/internal/metrics"
	"github.com/snehjoshi/smq/internal/node"
)

// Header names used by the smq wire protocol.
const (
	HeaderChannel   = "x-channel"
	HeaderAuth      = "x-auth"
	HeaderRequestID = "X-Request-Id"
)

// ─── Request ID ──────────────────────────────────────────────────────────────

type ctxKey int

const requestIDKey ctxKey = iota

// RequestIDFrom returns the request id stored by RequestIDMiddleware, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestIDMiddleware tags every request with a ULID (or the caller's own
// X-Request-Id) and echoes it back in the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			var err error
			if id, err = node.NewID(); err != nil {
				slog.Warn("request id generation failed", "err", err)
			}
		}
		if id != "" {
			w.Header().Set(HeaderRequestID, id)
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// ─── Logging ──────────────────────────────────────────────────────────────────

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status, and duration for every request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		slog.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"channel", r.Header.Get(HeaderChannel),
			"status", wrapped.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", RequestIDFrom(r.Context()),
		)
	})
}

// ─── Metrics ──────────────────────────────────────────────────────────────────

// MetricsMiddleware counts requests and their latency in reg. Paths are
// labelled by the matched route pattern so unknown URLs cannot inflate label
// cardinality.
func MetricsMiddleware(reg *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if reg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			reg.ObserveHTTP(r.Method, routeLabel(r), wrapped.status, time.Since(start).Milliseconds())
		})
	}
}

// routeLabel returns the path part of the pattern the mux matched, or
// "other" when the request never reached a route (rejected or unknown).
func routeLabel(r *http.Request) string {
	p := r.Pattern
	if p == "" {
		return "other"
	}
	if _, path, ok := strings.Cut(p, " "); ok {
		return path
	}
	return p
}

// ─── Auth ─────────────────────────────────────────────────────────────────────

// AuthMiddleware enforces the shared secret in the x-auth header. An empty
// secret disables the check entirely.
//
//   - header absent   → 400 "auth header required"
//   - header mismatch → 403 "invalid auth"
//
// Comparison is constant-time.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		keyBytes := []byte(secret)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			vals := r.Header.Values(HeaderAuth)
			if len(vals) == 0 {
				writeText(w, http.StatusBadRequest, "auth header required")
				return
			}
			if subtle.ConstantTimeCompare([]byte(vals[0]), keyBytes) != 1 {
				writeText(w, http.StatusForbidden, "invalid auth")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ─── Channel header ──────────────────────────────────────────────────────────

// ChannelHeaderMiddleware rejects /msg requests that do not name a channel,
// so the push/pop handlers can rely on x-channel being present.
func ChannelHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == msgPath && r.Header.Get(HeaderChannel) == "" {
			writeText(w, http.StatusBadRequest, "channel name required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ─── Rate limiting ────────────────────────────────────────────────────────────

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies per-IP token-bucket rate limiting.
// rps <= 0 disables it.
//
// The limiter table is swept of entries idle for 10 minutes whenever it grows
// past 5,000 clients.
func RateLimitMiddleware(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	var (
		mu       sync.Mutex
		limiters = make(map[string]*ipEntry)
	)

	getLimiter := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		if e, ok := limiters[ip]; ok {
			e.lastSeen = time.Now()
			return e.limiter
		}

		if len(limiters) >= 5000 {
			cutoff := time.Now().Add(-10 * time.Minute)
			for k, v := range limiters {
				if v.lastSeen.Before(cutoff) {
					delete(limiters, k)
				}
			}
		}

		l := rate.NewLimiter(rate.Limit(rps), burst)
		limiters[ip] = &ipEntry{limiter: l, lastSeen: time.Now()}
		return l
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !getLimiter(clientIP(r)).Allow() {
				writeText(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop and falls back to
// RemoteAddr. X-Forwarded-For is only trustworthy behind a reverse proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ─── Chain ────────────────────────────────────────────────────────────────────

// chain composes middleware around h (first = outermost).
func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
