package reload

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/metrics"
)

type holder struct {
	current *index.Index
	swaps   int
}

func (h *holder) Swap(idx *index.Index) *index.Index {
	old := h.current
	h.current = idx
	h.swaps++
	return old
}

type countingCache struct{ calls int }

func (c *countingCache) Invalidate(context.Context) (int64, error) {
	c.calls++
	return 0, nil
}

func writeIndex(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReload(t *testing.T) {
	path := writeIndex(t, "search 1 2 3 1\nengine 2 1\n")
	h := &holder{}
	c := &countingCache{}
	r := New(path, 8, h, c, metrics.New(prometheus.NewRegistry()))

	if err := r.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.swaps != 1 || h.current.Len() != 2 {
		t.Fatalf("swaps=%d current=%v", h.swaps, h.current)
	}
	if c.calls != 1 {
		t.Errorf("cache invalidated %d times", c.calls)
	}
}

func TestReloadKeepsIndexOnFailure(t *testing.T) {
	h := &holder{}
	r := New(filepath.Join(t.TempDir(), "missing"), 8, h, nil, nil)
	if err := r.Reload(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if h.swaps != 0 {
		t.Error("index swapped despite load failure")
	}
}

func TestHandleMessage(t *testing.T) {
	path := writeIndex(t, "wiki 3 3\n")
	h := &holder{}
	r := New(path, 8, h, nil, nil)

	event, _ := json.Marshal(analytics.IndexBuiltEvent{Type: analytics.EventIndexBuilt, IndexFile: path, Words: 1})
	if err := r.HandleMessage(context.Background(), []byte(path), event); err != nil {
		t.Fatal(err)
	}
	if h.swaps != 1 {
		t.Errorf("swaps = %d", h.swaps)
	}

	other, _ := json.Marshal(analytics.QueryEvent{Type: analytics.EventQuery})
	if err := r.HandleMessage(context.Background(), nil, other); err != nil {
		t.Fatal(err)
	}
	if err := r.HandleMessage(context.Background(), nil, []byte("not json")); err != nil {
		t.Fatalf("undecodable message should be dropped, got %v", err)
	}
	if h.swaps != 1 {
		t.Errorf("unrelated messages triggered reloads: swaps = %d", h.swaps)
	}
}
