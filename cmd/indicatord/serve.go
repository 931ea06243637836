package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"indicator-overlay/config"
	"indicator-overlay/internal/cache"
	"indicator-overlay/internal/gateway"
	"indicator-overlay/internal/logger"
	"indicator-overlay/internal/metrics"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the REST/WebSocket overlay API and the metrics listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	_, logCloser := logger.New("indicatord", logger.Options{Level: level, File: cfg.LogFile})
	defer logCloser.Close()

	params, err := cfg.Params()
	if err != nil {
		return err
	}
	slog.Info("starting", "http_addr", cfg.HTTPAddr, "metrics_addr", cfg.MetricsAddr,
		"indicators", params.String(), "display_window", cfg.DisplayWindow)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus(cfg.CacheEnabled)

	overlays := openCache(ctx, cfg, m, health)
	defer overlays.Close()

	svc := gateway.NewService(overlays, m, params, cfg.DisplayWindow)
	hub := gateway.NewHub(svc, m)
	api := gateway.NewServer(cfg.HTTPAddr, svc, hub, health)

	var metricsSrv *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = metrics.NewServer(cfg.MetricsAddr, m, health)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(api.ListenAndServe)
	if metricsSrv != nil {
		g.Go(metricsSrv.ListenAndServe)
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		errs := []error{api.Shutdown(shutdownCtx)}
		if metricsSrv != nil {
			errs = append(errs, metricsSrv.Stop(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	slog.Info("stopped")
	return nil
}

// openCache connects the overlay cache. A Redis outage at start-up is not
// fatal: the service runs uncached and reports itself degraded.
func openCache(ctx context.Context, cfg *config.Config, m *metrics.Metrics, health *metrics.HealthStatus) cache.Cache {
	if !cfg.CacheEnabled {
		slog.Info("overlay cache disabled")
		return cache.Noop{}
	}

	rc, err := cache.NewRedisCache(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.CacheTTL,
		OnStateChange: func(_, to cache.State) {
			m.CircuitBreakerState.Set(float64(to))
			if to == cache.StateOpen {
				m.CircuitBreakerTrips.Inc()
			}
		},
	})
	if err != nil {
		slog.Warn("overlay cache unavailable, serving uncached", "error", err)
		return cache.Noop{}
	}

	health.SetRedisConnected(true)
	health.StartLivenessChecker(ctx, rc.Client(), 15*time.Second)
	return rc
}
