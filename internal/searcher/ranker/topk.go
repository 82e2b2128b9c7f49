package ranker

import "container/heap"

// TopK returns the k best entries of scores in Rank order, along with the
// number of positive entries. It keeps a k-sized heap instead of sorting the
// whole table. k <= 0 ranks everything.
func TopK(scores map[int]int, k int) (top []ScoredDoc, matches int) {
	if k <= 0 {
		ranked := Rank(scores)
		return ranked, len(ranked)
	}
	h := make(worstFirst, 0, k+1)
	for docID, score := range scores {
		if score <= 0 {
			continue
		}
		matches++
		heap.Push(&h, ScoredDoc{DocID: docID, Score: score})
		if h.Len() > k {
			heap.Pop(&h)
		}
	}
	top = make([]ScoredDoc, h.Len())
	for i := len(top) - 1; i >= 0; i-- {
		top[i] = heap.Pop(&h).(ScoredDoc)
	}
	return top, matches
}

// worstFirst is a min-heap whose root is the entry Rank would place last.
type worstFirst []ScoredDoc

func (h worstFirst) Len() int { return len(h) }

func (h worstFirst) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].DocID > h[j].DocID
}

func (h worstFirst) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(ScoredDoc)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
