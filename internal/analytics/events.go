// Package analytics publishes query and index events to Kafka for offline
// analysis of what users search for.
package analytics

import "time"

type EventType string

const (
	EventQuery        EventType = "query"
	EventZeroResult   EventType = "zero_result"
	EventInvalidQuery EventType = "invalid_query"
	EventIndexBuilt   EventType = "index_built"
)

// QueryEvent describes one query answered by the querier or the search
// service.
type QueryEvent struct {
	Type       EventType `json:"type"`
	Source     string    `json:"source"`
	Query      string    `json:"query"`
	Normalized string    `json:"normalized,omitempty"`
	Terms      []string  `json:"terms,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	TotalHits  int       `json:"total_hits"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

// IndexBuiltEvent announces a freshly written index file. Search services
// consume it to reload.
type IndexBuiltEvent struct {
	Type          EventType `json:"type"`
	IndexFile     string    `json:"index_file"`
	PageDirectory string    `json:"page_directory"`
	Words         int       `json:"words"`
	Documents     int       `json:"documents"`
	DurationMs    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
}
