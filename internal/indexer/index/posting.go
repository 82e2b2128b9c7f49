package index

import "sort"

// Posting is one (document, frequency) pair of a word.
type Posting struct {
	DocID     int `json:"doc_id"`
	Frequency int `json:"frequency"`
}

// PostingList maps a document ID to the number of times a word occurs in it.
// Every stored frequency is at least 1; an absent document counts as 0.
type PostingList map[int]int

// Count returns the frequency recorded for docID, or 0.
func (p PostingList) Count(docID int) int {
	return p[docID]
}

func (p PostingList) Len() int {
	return len(p)
}

// Clone returns an independent copy. Query evaluation works on clones so the
// index itself is never written during a search.
func (p PostingList) Clone() PostingList {
	c := make(PostingList, len(p))
	for docID, freq := range p {
		c[docID] = freq
	}
	return c
}

// Postings returns the pairs sorted by ascending document ID.
func (p PostingList) Postings() []Posting {
	result := make([]Posting, 0, len(p))
	for docID, freq := range p {
		result = append(result, Posting{DocID: docID, Frequency: freq})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// TermEntry is one word with its postings, the unit written to an index file.
type TermEntry struct {
	Term     string
	Postings []Posting
}
