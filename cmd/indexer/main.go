// Command indexer builds an index file from a crawler's page directory.
//
//	indexer [-config file] <pageDirectory> <indexFilename>
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/pagedir"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: indexer [-config file] <pageDirectory> <indexFilename>")
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, *configPath, flag.Args())
	stop()
	if err != nil {
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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	dir, err := pagedir.Open(pageDirectory)
	if err != nil {
		return err
	}
	slog.Info("building index", "page_directory", dir.Path(), "workers", cfg.Indexer.Workers)

	result, err := indexer.NewBuilder(dir, cfg.Indexer, m).Build(ctx)
	if err != nil {
		return err
	}
	if err := result.Index.Save(indexFile); err != nil {
		return err
	}
	slog.Info("index written",
		"index_file", indexFile,
		"words", result.Index.Len(),
		"documents", len(result.Pages),
		"duration", result.Duration,
	)

	if cfg.Postgres.Enabled {
		if err := registerPages(ctx, cfg.Postgres, result.Pages); err != nil {
			return err
		}
	}
	if cfg.Kafka.Enabled {
		announce(ctx, cfg.Kafka, indexFile, dir.Path(), result)
	}
	return nil
}

func registerPages(ctx context.Context, cfg config.PostgresConfig, pages []pagedir.Page) error {
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connecting to document registry: %w", err)
	}
	defer client.Close()

	registry := pagedir.NewRegistry(client)
	if err := registry.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := registry.Register(ctx, pages); err != nil {
		return err
	}
	slog.Info("document urls registered", "documents", len(pages))
	return nil
}

// announce tells running search services that a new index exists. A failed
// announcement leaves the index file valid, so it is only logged.
func announce(ctx context.Context, cfg config.KafkaConfig, indexFile, pageDirectory string, result *indexer.Result) {
	producer := kafka.NewProducer(cfg.Brokers, cfg.Topics.IndexComplete)
	defer producer.Close()

	if abs, err := filepath.Abs(indexFile); err == nil {
		indexFile = abs
	}
	err := analytics.AnnounceIndex(ctx, producer, analytics.IndexBuiltEvent{
		IndexFile:     indexFile,
		PageDirectory: pageDirectory,
		Words:         result.Index.Len(),
		Documents:     len(result.Pages),
		DurationMs:    result.Duration.Milliseconds(),
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("index announcement failed", "topic", cfg.Topics.IndexComplete, "error", err)
		return
	}
	slog.Info("index announced", "topic", cfg.Topics.IndexComplete)
}
