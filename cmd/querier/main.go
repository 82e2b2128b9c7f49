// Command querier answers queries typed on standard input against an index
// built by the indexer, printing ranked documents from the page directory.
//
//	querier [-config file] <pageDirectory> <indexFilename>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/pagedir"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/session"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/metrics"
)

const usage = "Usage: querier [-config file] <pageDirectory> <indexFilename>"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath, flag.Args())
	stop()
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case apperrors.Is(err, apperrors.ErrUsage):
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(apperrors.ExitUsage)
	default:
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", apperrors.Reason(err))
		os.Exit(apperrors.ExitCode(err))
	}
}

func run(ctx context.Context, configPath string, args []string) error {
	if len(args) != 2 {
		return apperrors.Newf(apperrors.ErrUsage, "expected 2 arguments but received %d", len(args))
	}
	pageDirectory, indexFile := args[0], args[1]
	if pageDirectory == "" || indexFile == "" {
		return apperrors.New(apperrors.ErrInvalidArgument, "empty argument passed")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return apperrors.Newf(apperrors.ErrInvalidArgument, "loading config: %v", err)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	// The directory must be a crawl even when URLs come from the registry.
	if !pagedir.Validate(pageDirectory) {
		return apperrors.Newf(apperrors.ErrNotCrawlerDir, "%s is not a crawler directory", pageDirectory)
	}
	resolver, closeResolver, err := pagedir.OpenResolver(ctx, cfg, pageDirectory)
	if err != nil {
		return err
	}
	defer closeResolver()

	idx, err := index.Load(indexFile, cfg.Search.CapacityHint)
	if err != nil {
		return err
	}
	slog.Debug("index loaded", "index_file", indexFile, "words", idx.Len())

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.IndexWords.Set(float64(idx.Len()))
	m.IndexDocuments.Set(float64(idx.Documents()))
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer shutdown(context.Background())
	}

	opts := session.Options{
		Prompt:      cfg.Search.Prompt,
		Interactive: session.IsTerminal(os.Stdin),
		Trace:       cfg.Tracing.Enabled,
		Metrics:     m,
	}
	if cfg.Kafka.Enabled {
		collector, stopCollector := startCollector(ctx, cfg.Kafka)
		defer stopCollector()
		opts.Tracker = collector
	}

	s := session.New(executor.New(idx, resolver), os.Stdout, opts)
	return s.Run(ctx, os.Stdin)
}

// startCollector publishes query events for the life of the session. The
// returned stop flushes whatever is still buffered.
func startCollector(ctx context.Context, cfg config.KafkaConfig) (*analytics.Collector, func()) {
	producer := kafka.NewProducer(cfg.Brokers, cfg.Topics.AnalyticsEvents)
	collectorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	collector := analytics.NewCollector(producer, 100, 5*time.Second)
	collector.Start(collectorCtx)
	return collector, func() {
		cancel()
		collector.Wait()
		producer.Close()
	}
}
