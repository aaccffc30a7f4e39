// Package pathstore holds the authoritative path → entry map.
//
// A Store is not safe for concurrent mutation. Wrappers that share one
// Store agree by convention on a single writer.
package pathstore

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
	"github.com/teranos/kbmem/ltree"
)

// Entry is a stored value and its timestamps. Values are held by reference;
// callers must not mutate a value after storing it.
type Entry struct {
	Path      string     `json:"path" yaml:"path"`
	Value     any        `json:"value" yaml:"value"`
	CreatedAt *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// Store maps paths to entries. There are no implicit intermediate nodes.
type Store struct {
	entries map[string]Entry
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// New creates an empty Store. A nil logger disables logging.
func New(log *zap.SugaredLogger) *Store {
	return &Store{
		entries: make(map[string]Entry),
		logger:  logger.OrNop(log),
		now:     time.Now,
	}
}

// Put stores value at path, replacing any previous entry. updated_at is set
// to now; created_at is carried over from the replaced entry.
func (s *Store) Put(path string, value any) error {
	if !ltree.Validate(path) {
		return errors.Wrapf(errors.ErrInvalidPath, "store %q", path)
	}
	now := s.now().UTC()
	created := now
	if prev, ok := s.entries[path]; ok && prev.CreatedAt != nil {
		created = *prev.CreatedAt
	}
	s.entries[path] = Entry{Path: path, Value: value, CreatedAt: &created, UpdatedAt: &now}
	return nil
}

// PutEntry stores e as given, including its (possibly absent) timestamps.
func (s *Store) PutEntry(e Entry) error {
	if !ltree.Validate(e.Path) {
		return errors.Wrapf(errors.ErrInvalidPath, "store %q", e.Path)
	}
	s.entries[e.Path] = e
	return nil
}

// Get returns the value at path. ok is false when nothing is stored there.
func (s *Store) Get(path string) (value any, ok bool, err error) {
	e, err := s.GetNode(path)
	if err != nil || e == nil {
		return nil, false, err
	}
	return e.Value, true, nil
}

// GetNode returns a copy of the entry at path, or nil.
func (s *Store) GetNode(path string) (*Entry, error) {
	if !ltree.Validate(path) {
		return nil, errors.Wrapf(errors.ErrInvalidPath, "get %q", path)
	}
	e, ok := s.entries[path]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// Exists reports whether a well-formed path has an entry.
func (s *Store) Exists(path string) bool {
	_, ok := s.entries[path]
	return ok && ltree.Validate(path)
}

// Delete removes the entry at path and reports whether one was removed.
func (s *Store) Delete(path string) bool {
	if _, ok := s.entries[path]; !ok {
		return false
	}
	delete(s.entries, path)
	return true
}

// DeleteSubtree removes path and every strict descendant, returning the
// number of entries removed.
func (s *Store) DeleteSubtree(path string) int {
	prefix := path + ltree.Separator
	removed := 0
	for p := range s.entries {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(s.entries, p)
			removed++
		}
	}
	s.logger.Debugw("Deleted subtree", logger.FieldPath, path, logger.FieldCount, removed)
	return removed
}

// AddSubtree grafts entries under path. Each entry's path is taken relative
// to path; value and timestamps are kept. Existing entries at the grafted
// paths are overwritten. Every grafted path is validated before any entry
// is written.
func (s *Store) AddSubtree(path string, entries []Entry) error {
	if !ltree.Validate(path) {
		return errors.Wrapf(errors.ErrInvalidPath, "graft under %q", path)
	}
	if !s.Exists(path) {
		return errors.Wrapf(errors.ErrPathNotFound, "graft under %q", path)
	}
	grafted := make([]Entry, len(entries))
	for i, e := range entries {
		e.Path = path + ltree.Separator + e.Path
		if !ltree.Validate(e.Path) {
			return errors.Wrapf(errors.ErrInvalidPath, "graft %q under %q", entries[i].Path, path)
		}
		grafted[i] = e
	}
	for _, e := range grafted {
		if err := s.PutEntry(e); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.entries = make(map[string]Entry)
}

// Size returns the number of entries.
func (s *Store) Size() int {
	return len(s.entries)
}

// AllPaths returns every stored path in ascending order.
func (s *Store) AllPaths() []string {
	paths := make([]string, 0, len(s.entries))
	for p := range s.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Entries returns every entry sorted by path.
func (s *Store) Entries() []Entry {
	return s.collect(func(string) bool { return true })
}

// collect returns the entries whose path satisfies keep, sorted by path.
func (s *Store) collect(keep func(path string) bool) []Entry {
	var out []Entry
	for p, e := range s.entries {
		if keep(p) {
			out = append(out, e)
		}
	}
	sortByPath(out)
	return out
}

func sortByPath(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
}
