package executor

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/tracing"
)

type SearchResult struct {
	Query      string             `json:"query"`
	Normalized string             `json:"normalized"`
	TotalHits  int                `json:"total_hits"`
	Results    []ranker.ScoredDoc `json:"results"`
	TermStats  map[string]int     `json:"term_stats"`
}

// Executor answers query plans against the current index. The index can be
// replaced with Swap while queries run; each query sees one index throughout.
type Executor struct {
	current  atomic.Pointer[index.Index]
	resolver ranker.Resolver
	logger   *slog.Logger
}

// New returns an executor over idx. resolver may be nil, in which case
// results carry no URLs and none are dropped.
func New(idx *index.Index, resolver ranker.Resolver) *Executor {
	e := &Executor{
		resolver: resolver,
		logger:   slog.Default().With("component", "query-executor"),
	}
	e.current.Store(idx)
	return e
}

// Index returns the index queries currently run against.
func (e *Executor) Index() *index.Index {
	return e.current.Load()
}

// Swap installs idx for subsequent queries and returns the previous index.
func (e *Executor) Swap(idx *index.Index) *index.Index {
	return e.current.Swap(idx)
}

// Execute evaluates plan, ranks the scores and resolves URLs for the first
// limit documents (all of them when limit <= 0). TotalHits counts every
// document with a positive score.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	idx := e.current.Load()
	if idx == nil {
		return nil, apperrors.New(apperrors.ErrInternal, "no index loaded")
	}
	result := &SearchResult{
		Query:      plan.RawQuery,
		Normalized: plan.Query.String(),
		Results:    []ranker.ScoredDoc{},
		TermStats:  make(map[string]int),
	}
	if plan.Empty() {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, term := range plan.Terms() {
		postings, _ := idx.Find(term)
		result.TermStats[term] = postings.Len()
	}

	_, evalSpan := tracing.StartChildSpan(ctx, "evaluate")
	scores := Evaluate(idx, plan.Groups)
	evalSpan.SetAttr("groups", len(plan.Groups))
	evalSpan.SetAttr("candidates", len(scores))
	evalSpan.End()

	_, rankSpan := tracing.StartChildSpan(ctx, "rank")
	ranked, matches := ranker.TopK(scores, limit)
	rankSpan.SetAttr("ranked", matches)
	rankSpan.End()
	result.TotalHits = matches

	if e.resolver == nil {
		result.Results = ranked
	} else {
		resolveCtx, resolveSpan := tracing.StartChildSpan(ctx, "resolve")
		report := ranker.Resolve(resolveCtx, ranked, e.resolver)
		resolveSpan.SetAttr("resolved", len(report.Results))
		resolveSpan.End()
		result.Results = report.Results
	}

	e.logger.Debug("query executed",
		"query", result.Normalized,
		"groups", len(plan.Groups),
		"candidates", len(scores),
		"total_hits", result.TotalHits,
		"results", len(result.Results),
	)
	return result, nil
}
