// Package handler serves the search API over HTTP: query evaluation with
// result caching, cache statistics and cache invalidation.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/tracing"
)

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
}

// Cache is the result cache; *cache.QueryCache implements it.
type Cache interface {
	GetOrCompute(ctx context.Context, plan *parser.QueryPlan, limit int, compute func() (*executor.SearchResult, error)) (*executor.SearchResult, bool, error)
	Invalidate(ctx context.Context) (int64, error)
	Stats() (hits, misses int64)
}

// Tracker receives one event per request; *analytics.Collector implements it.
type Tracker interface {
	Track(event analytics.QueryEvent)
}

// Options carries the optional collaborators. Leave a field nil to disable
// that feature.
type Options struct {
	Cache        Cache
	Tracker      Tracker
	Metrics      *metrics.Metrics
	DefaultLimit int
	MaxResults   int
	Trace        bool
}

type Handler struct {
	executor SearchExecutor
	opts     Options
	logger   *slog.Logger
}

type searchResponse struct {
	*executor.SearchResult
	CacheHit  bool  `json:"cache_hit"`
	LatencyMs int64 `json:"latency_ms"`
}

func New(exec SearchExecutor, opts Options) *Handler {
	return &Handler{
		executor: exec,
		opts:     opts,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Search answers GET /api/v1/search?q=...&limit=N.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "search", middleware.GetRequestID(r.Context()))
	defer func() {
		span.End()
		if h.opts.Trace {
			span.Log(logger.FromContext(ctx))
		}
	}()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, err := h.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, apperrors.Reason(err))
		return
	}

	plan, err := parser.Parse(query)
	if err != nil {
		h.countQuery("invalid")
		h.track(ctx, analytics.QueryEvent{
			Type:   analytics.EventInvalidQuery,
			Query:  query,
			Reason: apperrors.Reason(err),
		})
		h.writeError(w, apperrors.HTTPStatusCode(err), apperrors.Reason(err))
		return
	}
	span.SetAttr("query", plan.Query.String())

	var (
		result   *executor.SearchResult
		cacheHit bool
	)
	if h.opts.Cache != nil && !plan.Empty() {
		result, cacheHit, err = h.opts.Cache.GetOrCompute(ctx, plan, limit, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, limit)
	}
	if err != nil {
		h.countQuery("error")
		log.Error("search execution failed", "query", plan.Query.String(), "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "search failed")
		return
	}

	elapsed := time.Since(start)
	log.Info("search completed",
		"query", result.Normalized,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", elapsed.Milliseconds(),
	)
	h.record(ctx, plan, result, cacheHit, elapsed)
	h.writeJSON(w, http.StatusOK, searchResponse{
		SearchResult: result,
		CacheHit:     cacheHit,
		LatencyMs:    elapsed.Milliseconds(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.opts.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.opts.Cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.opts.Cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.opts.Cache.Invalidate(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return h.opts.DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, apperrors.New(apperrors.ErrInvalidArgument, "limit must be a positive integer")
	}
	if h.opts.MaxResults > 0 {
		limit = min(limit, h.opts.MaxResults)
	}
	return limit, nil
}

func (h *Handler) record(ctx context.Context, plan *parser.QueryPlan, result *executor.SearchResult, cacheHit bool, elapsed time.Duration) {
	outcome := "match"
	eventType := analytics.EventQuery
	if result.TotalHits == 0 {
		outcome = "zero_result"
		eventType = analytics.EventZeroResult
	}
	h.countQuery(outcome)
	if m := h.opts.Metrics; m != nil {
		status := "miss"
		switch {
		case h.opts.Cache == nil:
			status = "none"
		case cacheHit:
			status = "hit"
		}
		m.SearchLatency.WithLabelValues(status).Observe(elapsed.Seconds())
		m.SearchResultsCount.Observe(float64(result.TotalHits))
	}
	h.track(ctx, analytics.QueryEvent{
		Type:       eventType,
		Query:      plan.RawQuery,
		Normalized: result.Normalized,
		Terms:      plan.Terms(),
		TotalHits:  result.TotalHits,
		Returned:   len(result.Results),
		LatencyMs:  elapsed.Milliseconds(),
		CacheHit:   cacheHit,
	})
}

func (h *Handler) countQuery(outcome string) {
	if h.opts.Metrics != nil {
		h.opts.Metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) track(ctx context.Context, event analytics.QueryEvent) {
	if h.opts.Tracker == nil {
		return
	}
	event.Source = "searcher"
	event.Timestamp = time.Now().UTC()
	event.RequestID = middleware.GetRequestID(ctx)
	h.opts.Tracker.Track(event)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
