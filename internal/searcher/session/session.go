// Package session runs the interactive query loop: read a line, tokenize and
// validate it, evaluate it against the index, then print the ranked
// documents. A bad query is reported and the loop moves on to the next line.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/term"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/tracing"
)

const separator = "-----------------------------------------------"

// Searcher evaluates a validated plan; *executor.Executor implements it.
type Searcher interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
}

// Tracker receives one event per query; *analytics.Collector implements it.
type Tracker interface {
	Track(event analytics.QueryEvent)
}

type Options struct {
	// Prompt is printed before each line when Interactive is set.
	Prompt      string
	Interactive bool
	Trace       bool
	Metrics     *metrics.Metrics
	Tracker     Tracker
}

type Session struct {
	searcher Searcher
	out      io.Writer
	opts     Options
	logger   *slog.Logger
}

func New(searcher Searcher, out io.Writer, opts Options) *Session {
	return &Session{
		searcher: searcher,
		out:      out,
		opts:     opts,
		logger:   slog.Default().With("component", "query-session"),
	}
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run handles lines from in until end of input or until ctx is cancelled.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), index.MaxLineSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.opts.Interactive {
			fmt.Fprint(s.out, s.opts.Prompt)
		}
		if !scanner.Scan() {
			break
		}
		if err := s.Handle(ctx, scanner.Text()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return apperrors.Newf(apperrors.ErrIO, "reading queries: %v", err)
	}
	fmt.Fprintln(s.out)
	return nil
}

// Handle answers one query line. Invalid queries are reported on the output
// and yield a nil error; only a failure to evaluate or print is returned.
func (s *Session) Handle(ctx context.Context, line string) error {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "query", "")
	defer func() {
		span.End()
		if s.opts.Trace {
			span.Log(s.logger)
		}
	}()

	_, tokSpan := tracing.StartChildSpan(ctx, "tokenize")
	q, err := parser.Tokenize(line)
	tokSpan.End()
	if err != nil {
		fmt.Fprintf(s.out, "Invalid query: %s\n", apperrors.Reason(err))
		s.reject(line, "", err)
		return nil
	}
	if len(q) == 0 {
		return nil
	}
	fmt.Fprintf(s.out, "Normalized Query: %s\n", q)

	_, valSpan := tracing.StartChildSpan(ctx, "validate")
	err = parser.Validate(q)
	valSpan.End()
	if err != nil {
		fmt.Fprintln(s.out, apperrors.Reason(err))
		s.reject(line, q.String(), err)
		return nil
	}

	plan := &parser.QueryPlan{RawQuery: line, Query: q, Groups: q.Groups()}
	span.SetAttr("query", plan.Query.String())
	result, err := s.searcher.Execute(ctx, plan, 0)
	if err != nil {
		if s.opts.Metrics != nil {
			s.opts.Metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("evaluating %q: %w", plan.Query.String(), err)
	}

	_, printSpan := tracing.StartChildSpan(ctx, "report")
	err = ranker.Print(s.out, ranker.Report{Matches: result.TotalHits, Results: result.Results})
	printSpan.End()
	if err != nil {
		return apperrors.Newf(apperrors.ErrIO, "writing results: %v", err)
	}
	fmt.Fprintln(s.out, separator)

	s.record(plan, result, time.Since(start))
	return nil
}

func (s *Session) reject(line, normalized string, err error) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.SearchQueriesTotal.WithLabelValues("invalid").Inc()
	}
	if s.opts.Tracker != nil {
		s.opts.Tracker.Track(analytics.QueryEvent{
			Type:       analytics.EventInvalidQuery,
			Source:     "querier",
			Query:      line,
			Normalized: normalized,
			Reason:     apperrors.Reason(err),
			Timestamp:  time.Now().UTC(),
		})
	}
}

func (s *Session) record(plan *parser.QueryPlan, result *executor.SearchResult, elapsed time.Duration) {
	outcome := "match"
	eventType := analytics.EventQuery
	if result.TotalHits == 0 {
		outcome = "zero_result"
		eventType = analytics.EventZeroResult
	}
	if m := s.opts.Metrics; m != nil {
		m.SearchQueriesTotal.WithLabelValues(outcome).Inc()
		m.SearchLatency.WithLabelValues("none").Observe(elapsed.Seconds())
		m.SearchResultsCount.Observe(float64(result.TotalHits))
	}
	if s.opts.Tracker != nil {
		s.opts.Tracker.Track(analytics.QueryEvent{
			Type:       eventType,
			Source:     "querier",
			Query:      plan.RawQuery,
			Normalized: result.Normalized,
			Terms:      plan.Terms(),
			TotalHits:  result.TotalHits,
			Returned:   len(result.Results),
			LatencyMs:  elapsed.Milliseconds(),
			Timestamp:  time.Now().UTC(),
		})
	}
}
