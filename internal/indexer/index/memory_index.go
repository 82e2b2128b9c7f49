// Package index is the inverted index: a mapping from normalized word to the
// documents containing it and how often. It is built once, by the indexer or
// by loading an index file, and is read-only while queries are served.
package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
)

// MaxFrequency bounds a single stored count.
const MaxFrequency = 1<<31 - 1

// Index owns every PostingList it holds. Concurrent readers are safe once
// construction is finished; writes are not synchronised.
type Index struct {
	words map[string]PostingList
}

// New creates an empty index sized for about capacityHint words.
func New(capacityHint int) (*Index, error) {
	if capacityHint <= 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "capacity hint must be positive, got %d", capacityHint)
	}
	return &Index{
		words: make(map[string]PostingList, capacityHint),
	}, nil
}

// Add records one more occurrence of word in docID.
func (ix *Index) Add(word string, docID int) error {
	postings, err := ix.postingsFor(word, docID)
	if err != nil {
		return err
	}
	if postings[docID] == MaxFrequency {
		return apperrors.Newf(apperrors.ErrInvalidArgument, "frequency of %q in document %d would exceed %d", word, docID, MaxFrequency)
	}
	postings[docID]++
	return nil
}

// Update sets the frequency of word in docID to exactly freq. It is used when
// reconstructing an index whose counts are already final.
func (ix *Index) Update(word string, docID int, freq int) error {
	if freq < 1 || freq > MaxFrequency {
		return apperrors.Newf(apperrors.ErrInvalidArgument, "frequency must be in [1, %d], got %d", MaxFrequency, freq)
	}
	postings, err := ix.postingsFor(word, docID)
	if err != nil {
		return err
	}
	postings[docID] = freq
	return nil
}

// Find returns the postings of word. The list belongs to the index and must
// not be modified; use Clone for a private copy.
func (ix *Index) Find(word string) (PostingList, bool) {
	postings, ok := ix.words[tokenizer.Normalize(word)]
	return postings, ok
}

// Len returns the number of distinct words.
func (ix *Index) Len() int {
	return len(ix.words)
}

// Documents returns the number of distinct document IDs across all words.
func (ix *Index) Documents() int {
	seen := make(map[int]struct{})
	for _, postings := range ix.words {
		for docID := range postings {
			seen[docID] = struct{}{}
		}
	}
	return len(seen)
}

// Words returns every indexed word in ascending order.
func (ix *Index) Words() []string {
	words := make([]string, 0, len(ix.words))
	for word := range ix.words {
		words = append(words, word)
	}
	sort.Strings(words)
	return words
}

// Snapshot returns the whole index as term entries, sorted by term with
// postings sorted by document ID.
func (ix *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(ix.words))
	for _, word := range ix.Words() {
		entries = append(entries, TermEntry{
			Term:     word,
			Postings: ix.words[word].Postings(),
		})
	}
	return entries
}

// Equal reports whether both indexes hold the same words with the same
// (document, frequency) pairs. Iteration order plays no part.
func (ix *Index) Equal(other *Index) bool {
	if ix == nil || other == nil {
		return ix == other
	}
	if ix.Len() != other.Len() {
		return false
	}
	for word, postings := range ix.words {
		theirs, ok := other.words[word]
		if !ok || len(theirs) != len(postings) {
			return false
		}
		for docID, freq := range postings {
			if theirs[docID] != freq {
				return false
			}
		}
	}
	return true
}

func (ix *Index) postingsFor(word string, docID int) (PostingList, error) {
	if word == "" {
		return nil, apperrors.New(apperrors.ErrInvalidArgument, "word must not be empty")
	}
	if docID < 1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidArgument, "document ID must be positive, got %d", docID)
	}
	word = tokenizer.Normalize(word)
	postings, ok := ix.words[word]
	if !ok {
		postings = make(PostingList)
		ix.words[word] = postings
	}
	return postings, nil
}
