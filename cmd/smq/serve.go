package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/snehjoshi/smq/internal/config"
	"github.com/snehjoshi/smq/internal/metrics"
	"github.com/snehjoshi/smq/internal/node"
	"github.com/snehjoshi/smq/internal/queue"
	transphttp "github.com/snehjoshi/smq/internal/transport/http"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the smq server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	// ── 1. Load configuration ────────────────────────────────────────────────
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ── 2. Set up structured logger ──────────────────────────────────────────
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// ── 3. Identity, store, metrics ──────────────────────────────────────────
	n, err := node.New(cfg.Server.ID)
	if err != nil {
		return fmt.Errorf("init node: %w", err)
	}
	store := queue.NewStore(cfg.Queue.InitialCapacity)
	reg := &metrics.Registry{}

	srv := transphttp.New(store, n, cfg, reg)
	addr := cfg.Addr()

	slog.Info("smq starting",
		"node_id", n.ID(),
		"addr", addr,
		"initial_capacity", store.InitialCapacity(),
		"auth_enabled", cfg.Auth.Enabled(),
		"tls_enabled", srv.TLSEnabled(),
		"rate_limit_rps", cfg.RateLimit.RPS,
	)

	// ── 4. Serve until a signal or a listener failure ────────────────────────
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("smq ready", "addr", addr)
		if err := srv.ListenAndServe(addr); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           reg.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("metrics server listening", "addr", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	// ── 5. Graceful shutdown ──────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		// Give in-flight requests 5 seconds to complete.
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutCtx); err != nil {
			slog.Warn("server shutdown error", "err", err)
		}
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(shutCtx); err != nil {
				slog.Warn("metrics server shutdown error", "err", err)
			}
		}
		return nil
	})

	err = g.Wait()

	unread := 0
	for _, c := range store.Stats() {
		unread += c.Depth
	}
	slog.Info("smq stopped", "channels", store.ChannelCount(), "unread_messages_dropped", unread)
	return err
}
