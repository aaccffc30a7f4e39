package search

import (
	"reflect"
	"sort"

	"github.com/teranos/kbmem/ltree"
	"github.com/teranos/kbmem/pathstore"
)

// entrySet is a filter session keyed by path. Every narrowing method returns
// a new set and leaves the receiver untouched.
type entrySet map[string]pathstore.Entry

func allEntries(store *pathstore.Store) entrySet {
	entries := store.Entries()
	s := make(entrySet, len(entries))
	for _, e := range entries {
		s[e.Path] = e
	}
	return s
}

func (s entrySet) filter(keep func(pathstore.Entry) bool) entrySet {
	out := make(entrySet)
	for p, e := range s {
		if keep(e) {
			out[p] = e
		}
	}
	return out
}

func (s entrySet) withinBucket(paths []string) entrySet {
	out := make(entrySet)
	for _, p := range paths {
		if e, ok := s[p]; ok {
			out[p] = e
		}
	}
	return out
}

func (s entrySet) fromPath(path string) entrySet {
	root, ok := s[path]
	if !ok {
		return entrySet{}
	}
	out := s.filter(func(e pathstore.Entry) bool { return ltree.Descendant(e.Path, path) })
	out[path] = root
	return out
}

func (s entrySet) byOperator(store *pathstore.Store, op pathstore.Operator, operand string) (entrySet, error) {
	matched, err := store.QueryByOperator(op, operand)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(matched))
	for i, e := range matched {
		paths[i] = e.Path
	}
	return s.withinBucket(paths), nil
}

func (s entrySet) keys() []string {
	keys := make([]string, 0, len(s))
	for p := range s {
		keys = append(keys, p)
	}
	sort.Strings(keys)
	return keys
}

func (s entrySet) sorted() []pathstore.Entry {
	out := make([]pathstore.Entry, 0, len(s))
	for _, p := range s.keys() {
		out = append(out, s[p])
	}
	return out
}

func hasProperty(key string) func(pathstore.Entry) bool {
	return func(e pathstore.Entry) bool {
		m, ok := e.Value.(map[string]any)
		if !ok {
			return false
		}
		_, ok = m[key]
		return ok
	}
}

func propertyEquals(key string, want any) func(pathstore.Entry) bool {
	return func(e pathstore.Entry) bool {
		m, ok := e.Value.(map[string]any)
		if !ok {
			return false
		}
		got, ok := m[key]
		return ok && valuesEqual(got, want)
	}
}

// valuesEqual compares property values, treating numbers of any Go numeric
// type as equal when they hold the same value. Values decoded from JSON
// carry float64 numbers while callers usually pass ints.
func valuesEqual(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
