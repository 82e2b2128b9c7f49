package analytics

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/resilience"
)

// AnnounceIndex publishes event, retrying with backoff while the broker is
// unreachable.
func AnnounceIndex(ctx context.Context, pub Publisher, event IndexBuiltEvent) error {
	event.Type = EventIndexBuilt
	return resilience.Retry(ctx, "announce-index", resilience.RetryConfig{}, func() error {
		return pub.PublishBatch(ctx, []kafka.Event{{Key: event.IndexFile, Value: event}})
	})
}
