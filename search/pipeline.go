package search

import (
	"github.com/teranos/kbmem/pathstore"
)

// Pipeline is an immutable chain of predicates over an Index. Each step
// returns a new Pipeline narrowed from the previous one; neither the index
// session nor earlier pipelines are touched.
//
//	entries, err := search.NewPipeline(idx).
//		KB("animals").
//		Label("species").
//		PropertyValue("legs", 4).
//		Results()
//
// The first failing step is remembered and returned by Results and Keys.
type Pipeline struct {
	idx *Index
	set entrySet
	err error
}

// NewPipeline starts a pipeline holding every entry seen by idx's last
// Refresh. Writes made to the store since then are not visible.
func NewPipeline(idx *Index) Pipeline {
	return Pipeline{idx: idx, set: idx.snapshot}
}

func (p Pipeline) then(next func(entrySet) (entrySet, error)) Pipeline {
	if p.err != nil {
		return p
	}
	set, err := next(p.set)
	if err != nil {
		return Pipeline{idx: p.idx, set: p.set, err: err}
	}
	return Pipeline{idx: p.idx, set: set}
}

// KB keeps entries under knowledge base kb.
func (p Pipeline) KB(kb string) Pipeline {
	return p.then(func(s entrySet) (entrySet, error) { return s.withinBucket(p.idx.kbs[kb]), nil })
}

// Label keeps entries whose second to last label is label.
func (p Pipeline) Label(label string) Pipeline {
	return p.then(func(s entrySet) (entrySet, error) { return s.withinBucket(p.idx.labels[label]), nil })
}

// Name keeps entries whose last label is name.
func (p Pipeline) Name(name string) Pipeline {
	return p.then(func(s entrySet) (entrySet, error) { return s.withinBucket(p.idx.names[name]), nil })
}

// PropertyKey keeps entries whose map value holds key.
func (p Pipeline) PropertyKey(key string) Pipeline {
	return p.then(func(s entrySet) (entrySet, error) { return s.filter(hasProperty(key)), nil })
}

// PropertyValue keeps entries whose map value holds key equal to want.
func (p Pipeline) PropertyValue(key string, want any) Pipeline {
	return p.then(func(s entrySet) (entrySet, error) { return s.filter(propertyEquals(key, want)), nil })
}

// StartingPath keeps path and its descendants, or nothing when path has
// already been filtered out.
func (p Pipeline) StartingPath(path string) Pipeline {
	return p.then(func(s entrySet) (entrySet, error) { return s.fromPath(path), nil })
}

// Path keeps entries returned by the store's operator query.
func (p Pipeline) Path(op pathstore.Operator, operand string) Pipeline {
	return p.then(func(s entrySet) (entrySet, error) { return s.byOperator(p.idx.store, op, operand) })
}

// Len returns the number of entries left.
func (p Pipeline) Len() int { return len(p.set) }

// Err returns the first error raised by a step.
func (p Pipeline) Err() error { return p.err }

// Results returns the remaining entries sorted by path.
func (p Pipeline) Results() ([]pathstore.Entry, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.set.sorted(), nil
}

// Keys returns the remaining paths in ascending order.
func (p Pipeline) Keys() ([]string, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.set.keys(), nil
}
