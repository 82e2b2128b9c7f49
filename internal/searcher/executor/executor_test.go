package executor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
)

// sampleIndex holds count(a,1)=2 count(b,1)=1 count(a,2)=1 count(b,2)=3
// count(c,1)=5.
func sampleIndex(t testing.TB) *index.Index {
	t.Helper()
	ix, err := index.New(8)
	if err != nil {
		t.Fatal(err)
	}
	for _, u := range []struct {
		word      string
		doc, freq int
	}{
		{"a", 1, 2}, {"b", 1, 1},
		{"a", 2, 1}, {"b", 2, 3},
		{"c", 1, 5},
	} {
		if err := ix.Update(u.word, u.doc, u.freq); err != nil {
			t.Fatal(err)
		}
	}
	return ix
}

func evaluate(t *testing.T, ix *index.Index, query string) ScoreTable {
	t.Helper()
	plan, err := parser.Parse(query)
	if err != nil {
		t.Fatalf("Parse(%q): %v", query, err)
	}
	return Evaluate(ix, plan.Groups)
}

func TestEvaluate(t *testing.T) {
	ix := sampleIndex(t)
	tests := []struct {
		query string
		want  ScoreTable
	}{
		{"a and b", ScoreTable{1: 1, 2: 1}},
		{"a b", ScoreTable{1: 1, 2: 1}},
		{"a or b", ScoreTable{1: 3, 2: 4}},
		{"a and b or c", ScoreTable{1: 6, 2: 1}},
		{"c or a and b", ScoreTable{1: 6, 2: 1}},
		{"a", ScoreTable{1: 2, 2: 1}},
		{"a and c", ScoreTable{1: 2}},
		{"missing", ScoreTable{}},
		{"a and missing", ScoreTable{}},
		{"missing or b", ScoreTable{1: 1, 2: 3}},
		{"a or a", ScoreTable{1: 4, 2: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := evaluate(t, ix, tt.query)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("scores mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateOrderIndependent(t *testing.T) {
	ix := sampleIndex(t)
	pairs := [][2]string{
		{"a and b and c", "c b a"},
		{"a or b or c", "c or a or b"},
		{"a b or b c or c", "c or c b or b a"},
	}
	for _, p := range pairs {
		if diff := cmp.Diff(evaluate(t, ix, p[0]), evaluate(t, ix, p[1])); diff != "" {
			t.Errorf("%q vs %q (-first +second):\n%s", p[0], p[1], diff)
		}
	}
}

func TestEvaluateDoesNotMutateIndex(t *testing.T) {
	ix := sampleIndex(t)
	before := sampleIndex(t)
	evaluate(t, ix, "a and b or c and missing")
	if !ix.Equal(before) {
		t.Fatal("evaluation modified the index")
	}
}

func TestEvaluateLargeFrequencies(t *testing.T) {
	ix, err := index.New(4)
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Update("big", 1, index.MaxFrequency); err != nil {
		t.Fatal(err)
	}
	got := evaluate(t, ix, "big or big or big")
	if want := 3 * index.MaxFrequency; got[1] != want {
		t.Errorf("score = %d, want %d", got[1], want)
	}

	if got := addSaturating(math.MaxInt-1, 5); got != math.MaxInt {
		t.Errorf("addSaturating overflowed to %d", got)
	}
	if got := addSaturating(2, 3); got != 5 {
		t.Errorf("addSaturating(2, 3) = %d", got)
	}
}

type stubResolver map[int]string

func (s stubResolver) URLOf(_ context.Context, docID int) (string, error) {
	if url, ok := s[docID]; ok {
		return url, nil
	}
	return "", apperrors.Newf(apperrors.ErrDocumentNotFound, "document %d", docID)
}

func TestExecute(t *testing.T) {
	ex := New(sampleIndex(t), stubResolver{1: "http://x/1"})
	plan, err := parser.Parse("A or B")
	if err != nil {
		t.Fatal(err)
	}
	res, err := ex.Execute(context.Background(), plan, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Normalized != "a or b" {
		t.Errorf("Normalized = %q", res.Normalized)
	}
	if res.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2", res.TotalHits)
	}
	want := []ranker.ScoredDoc{{DocID: 1, Score: 3, URL: "http://x/1"}}
	if diff := cmp.Diff(want, res.Results); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]int{"a": 2, "b": 2}, res.TermStats); diff != "" {
		t.Errorf("term stats mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteLimit(t *testing.T) {
	ex := New(sampleIndex(t), nil)
	plan, _ := parser.Parse("a or b or c")
	res, err := ex.Execute(context.Background(), plan, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalHits != 2 || len(res.Results) != 1 {
		t.Fatalf("TotalHits=%d results=%d", res.TotalHits, len(res.Results))
	}
	if res.Results[0].DocID != 1 || res.Results[0].Score != 8 {
		t.Errorf("top result = %+v", res.Results[0])
	}
}

func TestExecuteCancelled(t *testing.T) {
	ex := New(sampleIndex(t), nil)
	plan, _ := parser.Parse("a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ex.Execute(ctx, plan, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestSwap(t *testing.T) {
	ex := New(nil, nil)
	plan, _ := parser.Parse("a")
	if _, err := ex.Execute(context.Background(), plan, 0); !errors.Is(err, apperrors.ErrInternal) {
		t.Fatalf("error without index = %v", err)
	}
	first := sampleIndex(t)
	if old := ex.Swap(first); old != nil {
		t.Fatalf("Swap returned %v", old)
	}
	if ex.Index() != first {
		t.Fatal("Index did not return the swapped index")
	}
	res, err := ex.Execute(context.Background(), plan, 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalHits != 2 {
		t.Errorf("TotalHits = %d", res.TotalHits)
	}
}

func BenchmarkEvaluate(b *testing.B) {
	ix, _ := index.New(1024)
	for doc := 1; doc <= 5000; doc++ {
		ix.Update("search", doc, doc%7+1)
		ix.Update("engine", doc, doc%5+1)
		ix.Update(fmt.Sprintf("term%d", doc%50), doc, 1)
	}
	groups := [][]string{{"search", "engine"}, {"term7"}, {"missing"}}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Evaluate(ix, groups)
	}
}
