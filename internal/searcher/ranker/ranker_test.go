package ranker

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mapResolver map[int]string

func (m mapResolver) URLOf(_ context.Context, docID int) (string, error) {
	url, ok := m[docID]
	if !ok {
		return "", fmt.Errorf("document %d: not found", docID)
	}
	return url, nil
}

func TestRankOrdersByScore(t *testing.T) {
	got := Rank(map[int]int{1: 5, 2: 9, 3: 1})
	want := []ScoredDoc{
		{DocID: 2, Score: 9},
		{DocID: 1, Score: 5},
		{DocID: 3, Score: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rank mismatch (-want +got):\n%s", diff)
	}
}

func TestRankTieBreakAndZeros(t *testing.T) {
	got := Rank(map[int]int{7: 2, 3: 2, 5: 0, 4: 2, 9: 3})
	want := []ScoredDoc{
		{DocID: 9, Score: 3},
		{DocID: 3, Score: 2},
		{DocID: 4, Score: 2},
		{DocID: 7, Score: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rank mismatch (-want +got):\n%s", diff)
	}
}

func TestRankEmpty(t *testing.T) {
	if got := Rank(nil); len(got) != 0 {
		t.Errorf("Rank(nil) = %v", got)
	}
}

// A document whose URL cannot be resolved is not printed, yet the match
// count still includes it.
func TestResolveCountsUnresolvedDocuments(t *testing.T) {
	ranked := Rank(map[int]int{1: 5, 2: 9, 3: 1})
	resolver := mapResolver{1: "http://a/1", 3: "http://a/3"}

	report := Resolve(context.Background(), ranked, resolver)
	if report.Matches != 3 {
		t.Errorf("Matches = %d, want 3", report.Matches)
	}

	var buf bytes.Buffer
	if err := Print(&buf, report); err != nil {
		t.Fatal(err)
	}
	want := "Matches 3 documents (ranked):\n" +
		"score\t5 doc 1: http://a/1\n" +
		"score\t1 doc 3: http://a/3\n"
	if buf.String() != want {
		t.Errorf("output mismatch (-want +got):\n%s", cmp.Diff(want, buf.String()))
	}
}

func TestPrintNoMatches(t *testing.T) {
	var buf bytes.Buffer
	if err := Print(&buf, Resolve(context.Background(), nil, mapResolver{})); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Matches 0 documents (ranked):\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func BenchmarkRank(b *testing.B) {
	scores := make(map[int]int, 5000)
	for i := 1; i <= 5000; i++ {
		scores[i] = i % 37
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Rank(scores)
	}
}
