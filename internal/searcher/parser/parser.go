// Package parser turns a raw query line into a validated sequence of tagged
// tokens and splits it into AND-groups joined by OR.
package parser

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/tiny-search-engine/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/tiny-search-engine/pkg/errors"
)

type Kind int

const (
	KindWord Kind = iota
	KindAnd
	KindOr
)

func (k Kind) String() string {
	switch k {
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	default:
		return "word"
	}
}

// Token is one normalized query term. Text holds the normalized form for
// operators too, so the echo of a query is just its tokens joined.
type Token struct {
	Kind Kind
	Text string
}

func (t Token) IsOperator() bool {
	return t.Kind != KindWord
}

// Query is an ordered, immutable token sequence.
type Query []Token

// QueryPlan is a validated query ready for evaluation.
type QueryPlan struct {
	RawQuery string
	Query    Query
	Groups   [][]string
}

// Empty reports whether the plan has nothing to evaluate.
func (p *QueryPlan) Empty() bool {
	return len(p.Groups) == 0
}

// Terms returns every distinct word of the plan in first-seen order.
func (p *QueryPlan) Terms() []string {
	seen := make(map[string]struct{})
	terms := make([]string, 0, len(p.Query))
	for _, tok := range p.Query {
		if tok.IsOperator() {
			continue
		}
		if _, ok := seen[tok.Text]; ok {
			continue
		}
		seen[tok.Text] = struct{}{}
		terms = append(terms, tok.Text)
	}
	return terms
}

// Tokenize splits line on whitespace runs and classifies each normalized
// token. A line holding anything other than letters and whitespace is
// rejected as a whole.
func Tokenize(line string) (Query, error) {
	for _, r := range line {
		if !unicode.IsSpace(r) && !unicode.IsLetter(r) {
			return nil, apperrors.Newf(apperrors.ErrValidation, "bad character %q in query", r)
		}
	}
	fields := strings.Fields(line)
	q := make(Query, 0, len(fields))
	for _, field := range fields {
		text := tokenizer.Normalize(field)
		kind := KindWord
		switch text {
		case "and":
			kind = KindAnd
		case "or":
			kind = KindOr
		}
		q = append(q, Token{Kind: kind, Text: text})
	}
	return q, nil
}

// Validate enforces the query grammar: no operator first, no operator last,
// and no two operators side by side. An empty query is valid.
func Validate(q Query) error {
	if len(q) == 0 {
		return nil
	}
	if q[0].IsOperator() {
		return apperrors.Newf(apperrors.ErrValidation, "'%s' cannot be first", q[0].Text)
	}
	if last := q[len(q)-1]; last.IsOperator() {
		return apperrors.Newf(apperrors.ErrValidation, "'%s' cannot be last", last.Text)
	}
	for i := 1; i < len(q); i++ {
		if q[i-1].IsOperator() && q[i].IsOperator() {
			return apperrors.Newf(apperrors.ErrValidation, "'%s' and '%s' cannot be adjacent", q[i-1].Text, q[i].Text)
		}
	}
	return nil
}

func (q Query) String() string {
	parts := make([]string, len(q))
	for i, tok := range q {
		parts[i] = tok.Text
	}
	return strings.Join(parts, " ")
}

// Groups splits a validated query into AND-groups. Adjacent words without an
// operator between them are AND-joined.
func (q Query) Groups() [][]string {
	var groups [][]string
	var current []string
	for _, tok := range q {
		switch tok.Kind {
		case KindOr:
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = nil
		case KindAnd:
		default:
			current = append(current, tok.Text)
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// Parse tokenizes and validates line. The returned error is an ErrValidation
// AppError whose message is suitable for showing to the user.
func Parse(line string) (*QueryPlan, error) {
	q, err := Tokenize(line)
	if err != nil {
		return nil, err
	}
	if err := Validate(q); err != nil {
		return nil, err
	}
	return &QueryPlan{
		RawQuery: line,
		Query:    q,
		Groups:   q.Groups(),
	}, nil
}
