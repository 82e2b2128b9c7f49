package ranker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

type ScoredDoc struct {
	DocID int    `json:"doc_id"`
	Score int    `json:"score"`
	URL   string `json:"url,omitempty"`
}

// Resolver maps a document ID to the URL it was crawled from.
type Resolver interface {
	URLOf(ctx context.Context, docID int) (string, error)
}

// Report is what gets shown for one query. Matches counts every ranked
// document, including those whose URL could not be resolved and which are
// therefore missing from Results.
type Report struct {
	Matches int         `json:"matches"`
	Results []ScoredDoc `json:"results"`
}

// Rank orders the positive entries of a score table by descending score,
// breaking ties by ascending document ID. Zero scores are dropped.
func Rank(scores map[int]int) []ScoredDoc {
	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		if score <= 0 {
			continue
		}
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Resolve looks up the URL of each ranked document. A document whose lookup
// fails is logged and left out of Results but still counted in Matches.
func Resolve(ctx context.Context, ranked []ScoredDoc, resolver Resolver) Report {
	report := Report{
		Matches: len(ranked),
		Results: make([]ScoredDoc, 0, len(ranked)),
	}
	for _, doc := range ranked {
		url, err := resolver.URLOf(ctx, doc.DocID)
		if err != nil {
			slog.Warn("failed to resolve document url", "doc_id", doc.DocID, "error", err)
			continue
		}
		doc.URL = url
		report.Results = append(report.Results, doc)
	}
	return report
}

func Print(w io.Writer, report Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Matches %d documents (ranked):\n", report.Matches)
	for _, doc := range report.Results {
		fmt.Fprintf(bw, "score\t%d doc %d: %s\n", doc.Score, doc.DocID, doc.URL)
	}
	return bw.Flush()
}
