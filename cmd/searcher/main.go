// Command searcher serves the search API over HTTP. It keeps the index in
// memory and swaps in a new one when the indexer announces it on Kafka or
// when the process receives SIGHUP.
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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/pagedir"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/redis"
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
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting search service", "port", cfg.Server.Port, "index_file", cfg.Search.IndexFile)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	resolver, closeResolver, err := pagedir.OpenResolver(ctx, cfg, cfg.Search.PageDirectory)
	if err != nil {
		return fmt.Errorf("opening page source: %w", err)
	}
	defer closeResolver()

	idx, err := index.Load(cfg.Search.IndexFile, cfg.Search.CapacityHint)
	if err != nil {
		return err
	}
	m.IndexLoadsTotal.WithLabelValues("ok").Inc()
	m.IndexWords.Set(float64(idx.Len()))
	m.IndexDocuments.Set(float64(idx.Documents()))
	exec := executor.New(idx, resolver)
	slog.Info("index loaded", "words", idx.Len(), "documents", idx.Documents())

	checker := health.NewChecker(5 * time.Second)
	checker.Register("index", func(context.Context) health.ComponentHealth {
		current := exec.Index()
		if current == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no index loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d words", current.Len())}
	})
	if p, ok := resolver.(interface{ Ping(context.Context) error }); ok {
		checker.Register("postgres", health.Ping(p.Ping, true))
	}

	opts := handler.Options{
		Metrics:      m,
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
		Trace:        cfg.Tracing.Enabled,
	}
	var invalidator reload.Invalidator
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache := cache.New(redisClient, cfg.Redis.CacheTTL, m)
			opts.Cache = queryCache
			invalidator = queryCache
			checker.Register("redis", health.Ping(redisClient.Ping, false))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	reloader := reload.New(cfg.Search.IndexFile, cfg.Search.CapacityHint, exec, invalidator, m)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, 100, 5*time.Second)
		collector.Start(gctx)
		defer collector.Wait()
		opts.Tracker = collector

		// Every instance must see every announcement, so each joins its own group.
		host, _ := os.Hostname()
		consumer := kafka.NewConsumer(
			cfg.Kafka.Brokers,
			cfg.Kafka.Topics.IndexComplete,
			cfg.Kafka.ConsumerGroup+"-"+host,
			reloader.HandleMessage,
		)
		g.Go(func() error { return consumer.Start(gctx) })
	}

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				if err := reloader.Reload(gctx); err != nil {
					slog.Error("reload on SIGHUP failed", "error", err)
				}
			}
		}
	})

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	h := handler.New(exec, opts)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      routes(gctx, cfg.Server, h, checker, m),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("search service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func routes(ctx context.Context, cfg config.ServerConfig, h *handler.Handler, checker *health.Checker, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	// request -> RequestID -> CORS -> RateLimit -> Metrics -> Timeout -> mux
	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.RequestTimeout)(chain)
	chain = middleware.Metrics(m,
		"/api/v1/search", "/api/v1/cache/stats", "/api/v1/cache/invalidate",
		"/health/live", "/health/ready",
	)(chain)
	if cfg.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.RateLimit, cfg.RateWindow)
		go limiter.Run(ctx)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins))(chain)
	chain = middleware.RequestID(chain)
	return chain
}
