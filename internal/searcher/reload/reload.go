// Package reload swaps a freshly built index into a running search service.
// A reload is triggered by an index_built event from Kafka or by SIGHUP.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/metrics"
)

// Swapper installs a new index; *executor.Executor implements it.
type Swapper interface {
	Swap(idx *index.Index) *index.Index
}

// Invalidator drops cached results; *cache.QueryCache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

type Reloader struct {
	path         string
	capacityHint int
	swapper      Swapper
	cache        Invalidator
	metrics      *metrics.Metrics
	mu           sync.Mutex
	logger       *slog.Logger
}

// New returns a Reloader for the index file at path. cache and m may be nil.
func New(path string, capacityHint int, swapper Swapper, cache Invalidator, m *metrics.Metrics) *Reloader {
	return &Reloader{
		path:         path,
		capacityHint: capacityHint,
		swapper:      swapper,
		cache:        cache,
		metrics:      m,
		logger:       slog.Default().With("component", "index-reloader"),
	}
}

// Reload loads the index file and installs it. On failure the index being
// served is left in place.
func (r *Reloader) Reload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := index.Load(r.path, r.capacityHint)
	if err != nil {
		r.recordLoad("error")
		return fmt.Errorf("reloading %s: %w", r.path, err)
	}
	r.swapper.Swap(idx)
	r.recordLoad("ok")
	if r.metrics != nil {
		r.metrics.IndexWords.Set(float64(idx.Len()))
		r.metrics.IndexDocuments.Set(float64(idx.Documents()))
	}
	if r.cache != nil {
		if _, err := r.cache.Invalidate(ctx); err != nil {
			r.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	r.logger.Info("index reloaded", "path", r.path, "words", idx.Len())
	return nil
}

// HandleMessage is the Kafka handler for the index-built topic. Events of
// other types are acknowledged and ignored.
func (r *Reloader) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[analytics.IndexBuiltEvent](value)
	if err != nil {
		r.logger.Error("dropping undecodable index event", "key", string(key), "error", err)
		return nil
	}
	if event.Type != analytics.EventIndexBuilt {
		return nil
	}
	r.logger.Info("index built elsewhere",
		"index_file", event.IndexFile,
		"words", event.Words,
		"documents", event.Documents,
	)
	return r.Reload(ctx)
}

func (r *Reloader) recordLoad(status string) {
	if r.metrics != nil {
		r.metrics.IndexLoadsTotal.WithLabelValues(status).Inc()
	}
}
