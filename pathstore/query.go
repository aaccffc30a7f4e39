package pathstore

import (
	"sort"
	"strings"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
	"github.com/teranos/kbmem/lquery"
	"github.com/teranos/kbmem/ltree"
)

// Operator selects a query in QueryByOperator.
type Operator string

const (
	// OpAncestorOf selects stored paths that are ancestors of the operand.
	OpAncestorOf Operator = "@>"
	// OpDescendantOf selects stored paths that are descendants of the operand.
	OpDescendantOf Operator = "<@"
	// OpMatch selects paths matching a wildcard pattern.
	OpMatch Operator = "~"
	// OpWord selects paths satisfying a boolean word predicate.
	OpWord Operator = "@@"
	// OpMatchAny selects paths matching any of several "|"-separated patterns.
	OpMatchAny Operator = "?"
)

// Query returns the entries matching a wildcard pattern, sorted by path.
func (s *Store) Query(pattern string) ([]Entry, error) {
	p, err := lquery.Compile(pattern)
	if err != nil {
		return nil, err
	}
	results := s.collect(p.Match)
	s.logger.Debugw("Pattern query", logger.FieldPattern, pattern, logger.FieldCount, len(results))
	return results, nil
}

// QueryWord returns the entries whose labels satisfy predicate, sorted by path.
func (s *Store) QueryWord(predicate string) []Entry {
	q := lquery.ParseWordQuery(predicate)
	return s.collect(q.Match)
}

// QueryByOperator dispatches on op. Unknown operators return no entries.
func (s *Store) QueryByOperator(op Operator, operand string) ([]Entry, error) {
	switch op {
	case OpAncestorOf:
		return s.collect(func(p string) bool { return ltree.Ancestor(p, operand) }), nil
	case OpDescendantOf:
		return s.collect(func(p string) bool { return ltree.Descendant(p, operand) }), nil
	case OpMatch:
		return s.Query(operand)
	case OpWord:
		return s.QueryWord(operand), nil
	case OpMatchAny:
		var patterns []*lquery.Pattern
		for _, src := range strings.Split(operand, "|") {
			p, err := lquery.Compile(strings.TrimSpace(src))
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, p)
		}
		return s.collect(func(path string) bool {
			for _, p := range patterns {
				if p.Match(path) {
					return true
				}
			}
			return false
		}), nil
	default:
		s.logger.Debugw("Unknown query operator", logger.FieldOperator, string(op))
		return nil, nil
	}
}

// QueryAncestors returns the stored strict ancestors of path, shallowest first.
func (s *Store) QueryAncestors(path string) ([]Entry, error) {
	if !ltree.Validate(path) {
		return nil, errors.Wrapf(errors.ErrInvalidPath, "ancestors of %q", path)
	}
	results := s.collect(func(p string) bool { return ltree.Ancestor(p, path) })
	sort.SliceStable(results, func(i, j int) bool {
		return ltree.Depth(results[i].Path) < ltree.Depth(results[j].Path)
	})
	return results, nil
}

// QueryDescendants returns the stored strict descendants of path, sorted by path.
func (s *Store) QueryDescendants(path string) ([]Entry, error) {
	if !ltree.Validate(path) {
		return nil, errors.Wrapf(errors.ErrInvalidPath, "descendants of %q", path)
	}
	return s.collect(func(p string) bool { return ltree.Descendant(p, path) }), nil
}

// QuerySubtree is QueryDescendants plus path itself when present.
func (s *Store) QuerySubtree(path string) ([]Entry, error) {
	if !ltree.Validate(path) {
		return nil, errors.Wrapf(errors.ErrInvalidPath, "subtree of %q", path)
	}
	return s.collect(func(p string) bool { return ltree.DescendantOrEqual(p, path) }), nil
}
