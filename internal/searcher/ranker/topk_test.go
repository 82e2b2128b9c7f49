package ranker

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTopKMatchesRankPrefix(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for trial := range 50 {
		scores := make(map[int]int)
		for i := range r.IntN(200) {
			scores[i+1] = r.IntN(6)
		}
		ranked := Rank(scores)
		for _, k := range []int{0, 1, 5, 50, 500} {
			top, matches := TopK(scores, k)
			want := ranked
			if k > 0 && len(want) > k {
				want = want[:k]
			}
			if matches != len(ranked) {
				t.Fatalf("trial %d k=%d: matches = %d, want %d", trial, k, matches, len(ranked))
			}
			if diff := cmp.Diff(want, top); diff != "" {
				t.Fatalf("trial %d k=%d (-want +got):\n%s", trial, k, diff)
			}
		}
	}
}

func TestTopKEmpty(t *testing.T) {
	top, matches := TopK(map[int]int{1: 0}, 3)
	if len(top) != 0 || matches != 0 {
		t.Errorf("top=%v matches=%d", top, matches)
	}
}

func BenchmarkTopK(b *testing.B) {
	scores := make(map[int]int, 5000)
	for i := 1; i <= 5000; i++ {
		scores[i] = i % 37
	}
	b.ReportAllocs()
	for b.Loop() {
		TopK(scores, 10)
	}
}
