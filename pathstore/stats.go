package pathstore

import (
	"strings"

	"github.com/teranos/kbmem/ltree"
)

// Stats summarises the shape of a Store.
type Stats struct {
	Total     int     `json:"total_nodes" yaml:"total_nodes"`
	MaxDepth  int     `json:"max_depth" yaml:"max_depth"`
	AvgDepth  float64 `json:"avg_depth" yaml:"avg_depth"`
	RootCount int     `json:"root_nodes" yaml:"root_nodes"`
	LeafCount int     `json:"leaf_nodes" yaml:"leaf_nodes"`
}

// Stats computes aggregate statistics. A leaf is an entry with no stored
// strict descendant; the scan is quadratic in the number of entries.
func (s *Store) Stats() Stats {
	var st Stats
	st.Total = len(s.entries)
	if st.Total == 0 {
		return st
	}

	depthSum := 0
	for p := range s.entries {
		d := ltree.Depth(p)
		depthSum += d
		if d > st.MaxDepth {
			st.MaxDepth = d
		}
		if d == 1 {
			st.RootCount++
		}
		if s.isLeaf(p) {
			st.LeafCount++
		}
	}
	st.AvgDepth = float64(depthSum) / float64(st.Total)
	return st
}

func (s *Store) isLeaf(path string) bool {
	prefix := path + ltree.Separator
	for other := range s.entries {
		if strings.HasPrefix(other, prefix) {
			return false
		}
	}
	return true
}
