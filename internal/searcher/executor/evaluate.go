package executor

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/index"
)

// ScoreTable maps a document ID to its accumulated score for one query. It is
// created per evaluation and owned by the caller.
type ScoreTable map[int]int

// Evaluate scores every document against groups, a list of AND-groups joined
// by OR. Within a group a document scores the minimum of its word counts;
// the final score is the sum over groups. A word missing from the index
// counts as 0 everywhere. Sums saturate at math.MaxInt.
func Evaluate(idx *index.Index, groups [][]string) ScoreTable {
	scores := make(ScoreTable)
	for _, group := range groups {
		for docID, score := range intersect(idx, group) {
			if score == 0 {
				continue
			}
			scores[docID] = addSaturating(scores[docID], score)
		}
	}
	return scores
}

func addSaturating(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

// intersect returns the AND score of group. The running table starts as a
// copy of the first word's postings; later words lower each entry to
// min(current, count). Entries reaching zero stay in the table.
func intersect(idx *index.Index, group []string) ScoreTable {
	if len(group) == 0 {
		return nil
	}
	first, _ := idx.Find(group[0])
	running := ScoreTable(first.Clone())
	for _, word := range group[1:] {
		postings, _ := idx.Find(word)
		for docID, score := range running {
			running[docID] = min(score, postings.Count(docID))
		}
	}
	return running
}
