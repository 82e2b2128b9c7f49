// Command analytics consumes the query events published by the querier and
// the search service, aggregates them in memory and serves the totals at
// GET /api/v1/analytics. With Postgres enabled the totals are snapshotted
// periodically.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	if !cfg.Kafka.Enabled {
		return errors.New("the analytics service needs kafka.enabled")
	}
	slog.Info("starting analytics service", "port", cfg.Analytics.Port, "topic", cfg.Kafka.Topics.AnalyticsEvents)

	agg := analytics.NewAggregator(cfg.Analytics.TopN, cfg.Analytics.LatencyWindow)
	checker := health.NewChecker(5 * time.Second)
	g, gctx := errgroup.WithContext(ctx)

	consumer := kafka.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.Topics.AnalyticsEvents,
		cfg.Analytics.ConsumerGroup,
		agg.HandleMessage,
	)
	g.Go(func() error { return consumer.Start(gctx) })

	if cfg.Postgres.Enabled {
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer client.Close()
		store := analytics.NewSnapshotStore(client)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		if last, err := store.Latest(ctx); err != nil {
			slog.Warn("could not read last snapshot", "error", err)
		} else if last != nil {
			agg.Restore(*last)
			slog.Info("restored analytics snapshot", "total_queries", last.TotalQueries)
		}
		checker.Register("postgres", health.Ping(client.Ping, false))
		g.Go(func() error {
			store.Run(gctx, agg, cfg.Analytics.SnapshotInterval)
			return nil
		})
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler(reg))

	var chain http.Handler = mux
	chain = middleware.Metrics(m, "/api/v1/analytics", "/health/live", "/health/ready")(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Analytics.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("analytics service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
