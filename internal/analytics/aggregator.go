package analytics

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/kafka"
)

// Stats summarizes the query events seen since the aggregator started.
type Stats struct {
	TotalQueries      int64            `json:"total_queries"`
	ByType            map[string]int64 `json:"by_type"`
	BySource          map[string]int64 `json:"by_source"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      int64            `json:"p50_latency_ms"`
	P95LatencyMs      int64            `json:"p95_latency_ms"`
	P99LatencyMs      int64            `json:"p99_latency_ms"`
	TopQueries        []QueryCount     `json:"top_queries"`
	ZeroResultQueries []QueryCount     `json:"zero_result_queries"`
	InvalidReasons    []QueryCount     `json:"invalid_reasons"`
	QueriesPerMinute  float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds query events into running totals. Latency percentiles
// cover the most recent latencyWindow answered queries.
type Aggregator struct {
	mu          sync.RWMutex
	total       int64
	byType      map[string]int64
	bySource    map[string]int64
	cacheHits   int64
	cacheMisses int64
	latencies   []int64
	next        int
	queries     map[string]int64
	zeroResults map[string]int64
	invalid     map[string]int64
	topN        int
	startTime   time.Time
	logger      *slog.Logger
}

func NewAggregator(topN, latencyWindow int) *Aggregator {
	if topN <= 0 {
		topN = 10
	}
	if latencyWindow <= 0 {
		latencyWindow = 10000
	}
	return &Aggregator{
		byType:      make(map[string]int64),
		bySource:    make(map[string]int64),
		latencies:   make([]int64, 0, latencyWindow),
		queries:     make(map[string]int64),
		zeroResults: make(map[string]int64),
		invalid:     make(map[string]int64),
		topN:        topN,
		startTime:   time.Now(),
		logger:      slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleMessage is the Kafka handler for the analytics topic. Undecodable
// messages are logged and skipped so one bad producer cannot stall the group.
func (a *Aggregator) HandleMessage(_ context.Context, key []byte, value []byte) error {
	event, err := kafka.DecodeJSON[QueryEvent](value)
	if err != nil {
		a.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
		return nil
	}
	a.Record(event)
	return nil
}

func (a *Aggregator) Record(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	a.byType[string(event.Type)]++
	if event.Source != "" {
		a.bySource[event.Source]++
	}
	if event.Type == EventInvalidQuery {
		a.invalid[event.Reason]++
		return
	}

	key := event.Normalized
	if key == "" {
		key = event.Query
	}
	a.queries[key]++
	if event.TotalHits == 0 {
		a.zeroResults[key]++
	}
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < cap(a.latencies) {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % len(a.latencies)
	}
}

// Restore seeds the counters from a saved snapshot. Only the queries listed
// in the snapshot's top lists come back; latency samples do not.
func (a *Aggregator) Restore(s Stats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total += s.TotalQueries
	a.cacheHits += s.CacheHits
	a.cacheMisses += s.CacheMisses
	for k, v := range s.ByType {
		a.byType[k] += v
	}
	for k, v := range s.BySource {
		a.bySource[k] += v
	}
	for _, qc := range s.TopQueries {
		a.queries[qc.Query] += qc.Count
	}
	for _, qc := range s.ZeroResultQueries {
		a.zeroResults[qc.Query] += qc.Count
	}
	for _, qc := range s.InvalidReasons {
		a.invalid[qc.Query] += qc.Count
	}
}

func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := Stats{
		TotalQueries:      a.total,
		ByType:            maps.Clone(a.byType),
		BySource:          maps.Clone(a.bySource),
		CacheHits:         a.cacheHits,
		CacheMisses:       a.cacheMisses,
		TopQueries:        topN(a.queries, a.topN),
		ZeroResultQueries: topN(a.zeroResults, a.topN),
		InvalidReasons:    topN(a.invalid, a.topN),
	}
	if len(a.latencies) > 0 {
		sorted := slices.Clone(a.latencies)
		slices.Sort(sorted)
		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := min(pct*len(sorted)/100, len(sorted)-1)
	return sorted[idx]
}

// topN returns the n largest counts, ties broken alphabetically.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
