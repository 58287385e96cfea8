// Package app assembles a running gateway from configuration: tiers,
// coordinator, metrics, middleware, listeners and shutdown order.
package app

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/searchktools/fast-gateway/config"
	"github.com/searchktools/fast-gateway/core"
	"github.com/searchktools/fast-gateway/core/cache"
	"github.com/searchktools/fast-gateway/core/http2"
	"github.com/searchktools/fast-gateway/core/metrics"
	"github.com/searchktools/fast-gateway/core/pipeline"
)

// App is the application instance: one gateway, its listeners and the
// shared state they close over.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	gateway *core.Gateway
	coord   *cache.Coordinator

	public  *http2.Server
	ops     *http2.Server
	tierSrv *http2.Server
}

// New builds the full object graph from cfg. Routes are registered on
// Gateway() before Run.
func New(cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(metrics.Config{
		Namespace: "gateway",
		Registry:  registry,
	})

	tiers, err := buildTiers(cfg, collector, logger)
	if err != nil {
		return nil, err
	}
	coord, err := cache.NewCoordinator(cache.CoordinatorConfig{
		Tiers:         tiers,
		DefaultTTL:    cfg.Cache.DefaultTTL.Std(),
		SweepInterval: cfg.Cache.SweepInterval.Std(),
		AsyncWriters:  cfg.Cache.AsyncWriters,
		Metrics:       collector,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	var pipelineOpts []pipeline.Option
	if cfg.TracingEnabled {
		pipelineOpts = append(pipelineOpts, pipeline.WithTracing(otel.GetTracerProvider()))
	}

	gw := core.NewGateway(core.GatewayConfig{
		Cache:           coord,
		Metrics:         collector,
		Logger:          logger,
		PipelineOptions: pipelineOpts,
	})
	gw.Use(pipeline.RequestID())
	if cfg.RateLimitRPS > 0 {
		gw.Use(pipeline.RateLimit(cfg.RateLimitRPS))
	}
	gw.Use(pipeline.AccessLog(logger))

	a := &App{
		cfg:     cfg,
		logger:  logger,
		gateway: gw,
		coord:   coord,
	}

	a.public = http2.NewServer(http2.Config{
		Addr:         cfg.Server.Addr,
		Handler:      gw,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
		Logger:       logger,
	})

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, gw.GetStatsJSON())
		})
		a.ops = http2.NewServer(http2.Config{
			Addr:    cfg.MetricsAddr,
			Handler: mux,
			Logger:  logger,
		})
	}

	// Expose this instance's fastest tier to peer gateways.
	if cfg.TierServerAddr != "" {
		a.tierSrv = http2.NewServer(http2.Config{
			Addr:    cfg.TierServerAddr,
			Handler: cache.NewTierServer(tiers[0].Tier, logger),
			Logger:  logger,
		})
	}

	return a, nil
}

// Gateway returns the gateway for route registration.
func (a *App) Gateway() *core.Gateway { return a.gateway }

// Run freezes the route table, starts every listener and blocks until
// a termination signal, then shuts down in reverse dependency order.
func (a *App) Run() error {
	a.gateway.Freeze()

	errCh := make(chan error, 3)
	for _, srv := range []*http2.Server{a.public, a.ops, a.tierSrv} {
		if srv == nil {
			continue
		}
		srv := srv
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				errCh <- err
			}
		}()
	}

	a.logger.Info("gateway running",
		"addr", a.cfg.Server.Addr,
		"env", a.cfg.Env,
		"routes", a.gateway.Table().Len())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		a.logger.Info("signal received, shutting down", "signal", sig.String())
	case err := <-errCh:
		a.logger.Error("listener failed", "err", err)
		a.shutdown()
		return err
	}

	return a.shutdown()
}

// shutdown drains listeners first so no request arrives at a closed
// coordinator, then closes the coordinator (flushing async writes).
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var errs []error
	for _, srv := range []*http2.Server{a.public, a.ops, a.tierSrv} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.coord.Close()
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func buildTiers(cfg *config.Config, collector *metrics.Collector, logger *slog.Logger) ([]cache.TierConfig, error) {
	tiers := make([]cache.TierConfig, 0, len(cfg.Cache.Tiers))
	for _, spec := range cfg.Cache.Tiers {
		var tier cache.Tier
		switch spec.Kind {
		case config.TierKindMemory:
			tier = cache.NewMemoryTier(spec.Name, spec.Shards, spec.Capacity,
				cache.WithEvictionHook(func(string) { collector.CacheEviction() }))
		case config.TierKindRemote:
			tier = cache.NewRemoteTier(spec.Name, spec.BaseURL)
		default:
			return nil, fmt.Errorf("app: unknown tier kind %q", spec.Kind)
		}
		logger.Debug("tier configured", "name", spec.Name, "kind", spec.Kind)
		tiers = append(tiers, cache.TierConfig{Tier: tier, MaxTTL: spec.MaxTTL.Std()})
	}
	return tiers, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Env == "development" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
