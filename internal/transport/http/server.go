// Package http provides the HTTP transport layer for smq.
//
// Routes (Go 1.22+ method-qualified patterns):
//
//	POST /msg          push the raw body onto the x-channel channel
//	GET  /msg          pop the oldest message of the x-channel channel
//	GET  /             capacity info (plain text)
//	GET  /health
//	GET  /api/stats
//	GET  /metrics
//
// Middleware order (outermost first): request id → logging → metrics →
// rate limit → auth → channel header check → routes.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/snehjoshi/smq/internal/config"
	"github.com/snehjoshi/smq/internal/metrics"
	"github.com/snehjoshi/smq/internal/node"
	"github.com/snehjoshi/smq/internal/queue"
)

const msgPath = "/msg"

// Server wraps the stdlib HTTP server with smq route wiring.
type Server struct {
	inner *http.Server
	tls   config.TLSConfig
}

// New builds a Server around store. reg may be nil to disable metrics; when
// set and reg.Depths is nil, New points it at store.
// The caller is responsible for calling ListenAndServe / Shutdown.
func New(store *queue.Store, n *node.Node, cfg *config.Config, reg *metrics.Registry) *Server {
	h := &Handler{
		store:              store,
		node:               n,
		reg:                reg,
		configuredCapacity: cfg.Queue.InitialCapacity,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST "+msgPath, h.pushMessage)
	mux.HandleFunc("GET "+msgPath, h.popMessage)

	mux.HandleFunc("GET /{$}", h.info)
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/stats", h.stats)

	if reg != nil {
		if reg.Depths == nil {
			reg.Depths = func(fn func(channel string, depth int)) {
				for _, c := range store.Stats() {
					fn(c.Name, c.Depth)
				}
			}
		}
		mux.Handle("GET /metrics", reg.Handler())
	}

	handler := chain(mux,
		RequestIDMiddleware,
		LoggingMiddleware,
		MetricsMiddleware(reg),
		RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		AuthMiddleware(cfg.Auth.Key),
		ChannelHeaderMiddleware,
	)

	return &Server{
		inner: &http.Server{
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		tls: cfg.TLS,
	}
}

// Handler returns the composed http.Handler (useful for testing).
func (s *Server) Handler() http.Handler { return s.inner.Handler }

// TLSEnabled reports whether ListenAndServe serves HTTPS.
func (s *Server) TLSEnabled() bool { return s.tls.Enabled() }

// ListenAndServe starts the server on addr (e.g. ":8080"), over TLS when a
// certificate and key are configured. It returns when the server stops.
func (s *Server) ListenAndServe(addr string) error {
	s.inner.Addr = addr
	if s.tls.Enabled() {
		return s.inner.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
	}
	return s.inner.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting up to ctx's deadline for
// in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
