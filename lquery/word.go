package lquery

import (
	"strings"
)

// WordOp is how the terms of a word query combine.
type WordOp int

const (
	// WordSingle tests membership of one word.
	WordSingle WordOp = iota
	// WordAll requires every term.
	WordAll
	// WordAny requires at least one term.
	WordAny
	// WordUnsupported matches nothing.
	WordUnsupported
)

// WordQuery is a parsed boolean word predicate.
//
// A predicate containing "&" is a pure conjunction even when it also
// contains "|". Mixed operators and negation are not supported.
type WordQuery struct {
	Op    WordOp
	Terms []string
}

// ParseWordQuery classifies predicate into a WordQuery.
func ParseWordQuery(predicate string) WordQuery {
	q := strings.TrimSpace(predicate)
	switch {
	case !strings.ContainsAny(q, "&|!"):
		return WordQuery{Op: WordSingle, Terms: []string{q}}
	case strings.Contains(q, "&"):
		return WordQuery{Op: WordAll, Terms: splitTerms(q, "&")}
	case strings.Contains(q, "|"):
		return WordQuery{Op: WordAny, Terms: splitTerms(q, "|")}
	default:
		return WordQuery{Op: WordUnsupported}
	}
}

func splitTerms(q, sep string) []string {
	terms := strings.Split(q, sep)
	for i, term := range terms {
		terms[i] = strings.TrimSpace(term)
	}
	return terms
}

// Match reports whether the labels of path satisfy the query.
func (q WordQuery) Match(path string) bool {
	words := make(map[string]struct{})
	for _, label := range strings.Split(path, ".") {
		words[label] = struct{}{}
	}
	has := func(term string) bool {
		_, ok := words[term]
		return ok
	}

	switch q.Op {
	case WordSingle:
		return len(q.Terms) == 1 && has(q.Terms[0])
	case WordAll:
		for _, term := range q.Terms {
			if !has(term) {
				return false
			}
		}
		return true
	case WordAny:
		for _, term := range q.Terms {
			if has(term) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// MatchWord evaluates a boolean word predicate against path.
func MatchWord(path, predicate string) bool {
	return ParseWordQuery(predicate).Match(path)
}
