// Package indexer builds an inverted index from a crawler's page directory.
// Pages are loaded and tokenized by a pool of workers while a single
// goroutine owns the index and applies every word to it.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/pagedir"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/metrics"
)

// PageSource is where the builder reads documents from. *pagedir.Dir is the
// usual implementation.
type PageSource interface {
	CountDocuments() (int, error)
	Load(docID int) (*pagedir.Page, error)
}

type Builder struct {
	source  PageSource
	cfg     config.IndexerConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Result is a finished build. Pages lists every document indexed, in ID
// order, without its HTML.
type Result struct {
	Index    *index.Index
	Pages    []pagedir.Page
	Duration time.Duration
}

// NewBuilder returns a Builder reading from source. m may be nil.
func NewBuilder(source PageSource, cfg config.IndexerConfig, m *metrics.Metrics) *Builder {
	return &Builder{
		source:  source,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "index-builder"),
	}
}

type docWords struct {
	page  pagedir.Page
	words []string
}

// Build indexes documents 1..N, where N is the number of consecutive
// documents the source holds.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	count, err := b.source.CountDocuments()
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	ix, err := index.New(b.cfg.CapacityHint)
	if err != nil {
		return nil, err
	}
	workers := max(b.cfg.Workers, 1)
	minLen := max(b.cfg.MinWordLength, 1)
	b.logger.Info("building index", "documents", count, "workers", workers)

	docs := make(chan docWords, workers)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(docs)
		pool, pctx := errgroup.WithContext(gctx)
		pool.SetLimit(workers)
		for docID := 1; docID <= count; docID++ {
			if pctx.Err() != nil {
				break
			}
			pool.Go(func() error {
				return b.tokenize(pctx, docID, minLen, docs)
			})
		}
		if err := pool.Wait(); err != nil {
			return err
		}
		return gctx.Err()
	})

	// Single writer: only this goroutine touches ix.
	pages := make([]pagedir.Page, 0, count)
	var addErr error
	for dw := range docs {
		for _, word := range dw.words {
			if err := ix.Add(word, dw.page.DocID); err != nil && addErr == nil {
				addErr = fmt.Errorf("adding %q from document %d: %w", word, dw.page.DocID, err)
			}
		}
		pages = append(pages, dw.page)
		if b.metrics != nil {
			b.metrics.DocsIndexedTotal.Inc()
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if addErr != nil {
		return nil, addErr
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].DocID < pages[j].DocID })
	elapsed := time.Since(start)
	if b.metrics != nil {
		b.metrics.IndexBuildDuration.Observe(elapsed.Seconds())
		b.metrics.IndexWords.Set(float64(ix.Len()))
		b.metrics.IndexDocuments.Set(float64(len(pages)))
	}
	b.logger.Info("index built",
		"documents", len(pages),
		"words", ix.Len(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return &Result{Index: ix, Pages: pages, Duration: elapsed}, nil
}

func (b *Builder) tokenize(ctx context.Context, docID, minLen int, out chan<- docWords) error {
	page, err := b.source.Load(docID)
	if err != nil {
		return fmt.Errorf("loading document %d: %w", docID, err)
	}
	words := slices.Collect(tokenizer.Filter(tokenizer.Words(page.HTML), minLen))
	b.logger.Debug("document tokenized", "doc_id", docID, "url", page.URL, "words", len(words))
	page.HTML = ""
	select {
	case out <- docWords{page: *page, words: words}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
