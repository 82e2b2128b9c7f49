package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/redis"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, redis.ErrMiss
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *memStore) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
			n++
		}
	}
	return n, nil
}

func mustParse(t *testing.T, q string) *parser.QueryPlan {
	t.Helper()
	plan, err := parser.Parse(q)
	if err != nil {
		t.Fatal(err)
	}
	return plan
}

func sampleResult() *executor.SearchResult {
	return &executor.SearchResult{
		Query:      "Search",
		Normalized: "search",
		TotalHits:  1,
		Results:    []ranker.ScoredDoc{{DocID: 4, Score: 2, URL: "http://x/4"}},
	}
}

func TestBuildKeyUsesNormalizedQuery(t *testing.T) {
	a := BuildKey(0, mustParse(t, "Search  AND engine"), 10)
	b := BuildKey(0, mustParse(t, "search and ENGINE"), 10)
	if a != b {
		t.Error("equivalent queries got different keys")
	}
	if a == BuildKey(0, mustParse(t, "search and engine"), 5) {
		t.Error("limit not part of key")
	}
	if a == BuildKey(1, mustParse(t, "search and engine"), 10) {
		t.Error("generation not part of key")
	}
	if !strings.HasPrefix(a, keyPrefix) {
		t.Errorf("key %q lacks prefix", a)
	}
}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	plan := mustParse(t, "search")
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return sampleResult(), nil
	}

	first, hit, err := c.GetOrCompute(context.Background(), plan, 10, compute)
	if err != nil || hit {
		t.Fatalf("first call: hit=%v err=%v", hit, err)
	}
	second, hit, err := c.GetOrCompute(context.Background(), mustParse(t, "SEARCH"), 10, compute)
	if err != nil || !hit {
		t.Fatalf("second call: hit=%v err=%v", hit, err)
	}
	if calls != 1 {
		t.Errorf("compute called %d times", calls)
	}
	if second.Results[0].URL != first.Results[0].URL {
		t.Errorf("cached result differs: %+v", second)
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d", hits, misses)
	}
}

func TestGetOrComputeCollapsesConcurrentMisses(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	plan := mustParse(t, "search")
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return sampleResult(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.GetOrCompute(context.Background(), plan, 10, compute); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if n := calls.Load(); n < 1 || n > 8 {
		t.Errorf("compute called %d times", n)
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), mustParse(t, "x"), 1, func() (*executor.SearchResult, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v", err)
	}
	if len(store.data) != 0 {
		t.Error("failed result was cached")
	}
}

func TestStoreFailureFallsThrough(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	c := New(store, time.Minute, nil)
	res, hit, err := c.GetOrCompute(context.Background(), mustParse(t, "x"), 1, func() (*executor.SearchResult, error) {
		return sampleResult(), nil
	})
	if err != nil || hit || res == nil {
		t.Fatalf("res=%v hit=%v err=%v", res, hit, err)
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, time.Minute, nil)
	c.Set(context.Background(), mustParse(t, "a"), 1, sampleResult())
	c.Set(context.Background(), mustParse(t, "b"), 1, sampleResult())
	store.data["unrelated"] = []byte("keep")

	n, err := c.Invalidate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("deleted %d keys, want 2", n)
	}
	if _, ok := store.data["unrelated"]; !ok {
		t.Error("unrelated key removed")
	}
}

func TestResultComputedAcrossInvalidateIsNotServed(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	plan := mustParse(t, "cat")
	stale := &executor.SearchResult{Normalized: "cat", TotalHits: 1}

	_, _, err := c.GetOrCompute(context.Background(), plan, 10, func() (*executor.SearchResult, error) {
		// A reload lands while the old index is still being searched.
		if _, err := c.Invalidate(context.Background()); err != nil {
			t.Fatal(err)
		}
		return stale, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, hit := c.Get(context.Background(), plan, 10); hit {
		t.Fatalf("result from the retired index served after invalidation: %+v", got)
	}

	fresh := &executor.SearchResult{Normalized: "cat", TotalHits: 2}
	got, hit, err := c.GetOrCompute(context.Background(), plan, 10, func() (*executor.SearchResult, error) {
		return fresh, nil
	})
	if err != nil || hit || got.TotalHits != 2 {
		t.Fatalf("got=%+v hit=%v err=%v, want a fresh evaluation", got, hit, err)
	}
}

func TestSearchAfterInvalidateDoesNotJoinRetiredEvaluation(t *testing.T) {
	c := New(newMemStore(), time.Minute, nil)
	plan := mustParse(t, "cat")
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.GetOrCompute(context.Background(), plan, 10, func() (*executor.SearchResult, error) {
			close(started)
			<-release
			return &executor.SearchResult{Normalized: "cat", TotalHits: 1}, nil
		})
	}()
	<-started
	if _, err := c.Invalidate(context.Background()); err != nil {
		t.Fatal(err)
	}

	var computed bool
	got, _, err := c.GetOrCompute(context.Background(), plan, 10, func() (*executor.SearchResult, error) {
		computed = true
		return &executor.SearchResult{Normalized: "cat", TotalHits: 2}, nil
	})
	close(release)
	<-done
	if err != nil {
		t.Fatal(err)
	}
	if !computed || got.TotalHits != 2 {
		t.Errorf("search after invalidation shared the retired evaluation: %+v", got)
	}
}
