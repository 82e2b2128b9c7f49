// Package tokenizer turns crawled HTML into index words. It extracts runs of
// letters from the page text, folds their case, and drops words too short to
// be worth indexing.
package tokenizer

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultMinLength is the shortest word the indexer keeps.
const DefaultMinLength = 3

// Normalize folds the case of word. Characters that are not letters are left
// as they are. Normalize is idempotent.
func Normalize(word string) string {
	return strings.ToLower(word)
}

// Words returns the raw words of an HTML document in order of appearance.
// Markup is skipped and a word is a maximal run of letters in the text
// between tags. The sequence is lazy: the page is tokenized as it is ranged.
func Words(doc string) iter.Seq[string] {
	return func(yield func(string) bool) {
		z := html.NewTokenizer(strings.NewReader(doc))
		for {
			switch z.Next() {
			case html.ErrorToken:
				// io.EOF or a malformed tail; either way no more text.
				return
			case html.TextToken:
				for _, word := range strings.FieldsFunc(string(z.Text()), notLetter) {
					if !yield(word) {
						return
					}
				}
			}
		}
	}
}

// Filter normalizes the words of seq and keeps those at least minLen
// characters long.
func Filter(seq iter.Seq[string], minLen int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for word := range seq {
			if utf8.RuneCountInString(word) < minLen {
				continue
			}
			if !yield(Normalize(word)) {
				return
			}
		}
	}
}

func notLetter(r rune) bool {
	return !unicode.IsLetter(r)
}
