// Package search keeps secondary indices over a path store and narrows a
// filter session with chained predicates.
//
// Paths with at least three labels are indexed by knowledge base (first
// label), label (second to last) and name (last). Every predicate intersects
// with the current session, so a chain of predicates can only shrink it.
package search

import (
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/kbmem/logger"
	"github.com/teranos/kbmem/ltree"
	"github.com/teranos/kbmem/pathstore"
)

const minIndexedLabels = 3

// Index is a search index over a borrowed path store. It is not safe for
// concurrent use, and it does not observe writes made to the store behind
// its back until Refresh is called.
type Index struct {
	store  *pathstore.Store
	logger *zap.SugaredLogger

	kbs         map[string][]string
	labels      map[string][]string
	names       map[string][]string
	decodedKeys map[string][]string

	// snapshot is the entry set read by the last Refresh.
	snapshot entrySet
	session  entrySet
}

// Stats summarizes the index and the current session.
type Stats struct {
	Entries  int `json:"entries" yaml:"entries"`
	KBs      int `json:"kbs" yaml:"kbs"`
	Labels   int `json:"labels" yaml:"labels"`
	Names    int `json:"names" yaml:"names"`
	Filtered int `json:"filtered" yaml:"filtered"`
}

// New builds an index over store and opens a session holding every entry.
func New(store *pathstore.Store, log *zap.SugaredLogger) *Index {
	idx := &Index{store: store, logger: logger.OrNop(log)}
	idx.Refresh()
	return idx
}

// Store returns the indexed path store.
func (idx *Index) Store() *pathstore.Store { return idx.store }

// Refresh rebuilds every index from the store and resets the session.
func (idx *Index) Refresh() {
	idx.kbs = make(map[string][]string)
	idx.labels = make(map[string][]string)
	idx.names = make(map[string][]string)
	idx.decodedKeys = make(map[string][]string)
	idx.snapshot = allEntries(idx.store)

	for _, path := range idx.snapshot.keys() {
		labels := strings.Split(path, ltree.Separator)
		idx.decodedKeys[path] = labels
		if len(labels) < minIndexedLabels {
			continue
		}
		kb := labels[0]
		label := labels[len(labels)-2]
		name := labels[len(labels)-1]
		idx.kbs[kb] = append(idx.kbs[kb], path)
		idx.labels[label] = append(idx.labels[label], path)
		idx.names[name] = append(idx.names[name], path)
	}

	idx.ClearFilters()
	idx.logger.Debugw("Rebuilt search index",
		logger.FieldCount, len(idx.decodedKeys),
		"kbs", len(idx.kbs),
		"labels", len(idx.labels),
		"names", len(idx.names))
}

// ClearFilters resets the session to every entry seen by the last Refresh.
func (idx *Index) ClearFilters() {
	idx.session = idx.snapshot
}

// SearchKB keeps session entries under knowledge base kb.
func (idx *Index) SearchKB(kb string) []pathstore.Entry {
	idx.session = idx.session.withinBucket(idx.kbs[kb])
	return idx.session.sorted()
}

// SearchLabel keeps session entries whose second to last label is label.
func (idx *Index) SearchLabel(label string) []pathstore.Entry {
	idx.session = idx.session.withinBucket(idx.labels[label])
	return idx.session.sorted()
}

// SearchName keeps session entries whose last label is name.
func (idx *Index) SearchName(name string) []pathstore.Entry {
	idx.session = idx.session.withinBucket(idx.names[name])
	return idx.session.sorted()
}

// SearchPropertyKey keeps session entries whose value is a map holding key.
func (idx *Index) SearchPropertyKey(key string) []pathstore.Entry {
	idx.session = idx.session.filter(hasProperty(key))
	return idx.session.sorted()
}

// SearchPropertyValue keeps session entries whose value is a map holding key
// with a value equal to want.
func (idx *Index) SearchPropertyValue(key string, want any) []pathstore.Entry {
	idx.session = idx.session.filter(propertyEquals(key, want))
	return idx.session.sorted()
}

// SearchStartingPath narrows the session to path and its descendants. The
// session becomes empty when path is not in it.
func (idx *Index) SearchStartingPath(path string) []pathstore.Entry {
	idx.session = idx.session.fromPath(path)
	return idx.session.sorted()
}

// SearchPath keeps session entries returned by the store's operator query.
// On error the session is unchanged.
func (idx *Index) SearchPath(op pathstore.Operator, path string) ([]pathstore.Entry, error) {
	next, err := idx.session.byOperator(idx.store, op, path)
	if err != nil {
		return nil, err
	}
	idx.session = next
	return idx.session.sorted(), nil
}

// FilterResults returns the session entries sorted by path.
func (idx *Index) FilterResults() []pathstore.Entry {
	return idx.session.sorted()
}

// FilterKeys returns the session paths in ascending order.
func (idx *Index) FilterKeys() []string {
	return idx.session.keys()
}

// KBs returns the knowledge base index.
func (idx *Index) KBs() map[string][]string { return copyIndex(idx.kbs) }

// Labels returns the label index.
func (idx *Index) Labels() map[string][]string { return copyIndex(idx.labels) }

// Names returns the name index.
func (idx *Index) Names() map[string][]string { return copyIndex(idx.names) }

// DecodedKeys maps every stored path to its labels, including paths too
// short to be indexed.
func (idx *Index) DecodedKeys() map[string][]string { return copyIndex(idx.decodedKeys) }

// FindDescriptions maps paths to the "description" string of their value,
// or "" when there is none. With no paths every stored entry is reported;
// otherwise paths without an entry are skipped.
func (idx *Index) FindDescriptions(paths ...string) map[string]string {
	out := make(map[string]string)
	if len(paths) == 0 {
		for _, e := range idx.store.Entries() {
			out[e.Path] = description(e.Value)
		}
		return out
	}
	for _, p := range paths {
		v, ok, err := idx.store.Get(p)
		if err != nil || !ok {
			continue
		}
		out[p] = description(v)
	}
	return out
}

// AddData stores value at path and refreshes the index.
func (idx *Index) AddData(path string, value any) error {
	if err := idx.store.Put(path, value); err != nil {
		return err
	}
	idx.Refresh()
	return nil
}

// RemoveData deletes the entry at path and refreshes the index. It reports
// whether an entry was removed.
func (idx *Index) RemoveData(path string) bool {
	removed := idx.store.Delete(path)
	idx.Refresh()
	return removed
}

// Stats returns index and session sizes.
func (idx *Index) Stats() Stats {
	return Stats{
		Entries:  idx.store.Size(),
		KBs:      len(idx.kbs),
		Labels:   len(idx.labels),
		Names:    len(idx.names),
		Filtered: len(idx.session),
	}
}

func copyIndex(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func description(value any) string {
	m, ok := value.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m["description"].(string)
	return s
}
