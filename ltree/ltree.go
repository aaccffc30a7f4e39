// Package ltree implements the path algebra for dotted label paths.
//
// A path is a non-empty sequence of labels joined by ".". Each label starts
// with a letter or underscore, continues with letters, digits or underscores,
// and is at most MaxLabelLength bytes long. All functions are pure; functions
// that take a path do not validate it unless their name says so.
package ltree

import (
	"regexp"
	"strings"

	"github.com/teranos/kbmem/errors"
)

const (
	// Separator joins labels into a path.
	Separator = "."
	// MaxLabelLength is the longest label a path may contain.
	MaxLabelLength = 256
)

var pathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Validate reports whether path is a well-formed path.
func Validate(path string) bool {
	if path == "" || !pathPattern.MatchString(path) {
		return false
	}
	for _, label := range strings.Split(path, Separator) {
		if len(label) > MaxLabelLength {
			return false
		}
	}
	return true
}

// ValidLabel reports whether label can appear as a single path component.
func ValidLabel(label string) bool {
	return !strings.Contains(label, Separator) && Validate(label)
}

// Text2Ltree returns text unchanged when it is a valid path.
func Text2Ltree(text string) (string, error) {
	if !Validate(text) {
		return "", errors.Wrapf(errors.ErrValidation, "cannot convert %q to a path", text)
	}
	return text, nil
}

// Labels splits path into its labels. The empty path has no labels.
func Labels(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Depth returns the number of labels in path.
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, Separator) + 1
}

// Join builds a path from labels.
func Join(labels ...string) string {
	return strings.Join(labels, Separator)
}

// Subpath returns the labels of path from start to the end. A negative start
// counts from the end of the path. Out-of-range starts yield "".
func Subpath(path string, start int) string {
	return SubpathN(path, start, -1)
}

// SubpathN returns at most length labels of path beginning at start. A
// negative start counts from the end; a negative length means "to the end".
func SubpathN(path string, start, length int) string {
	labels := Labels(path)
	if start < 0 {
		start += len(labels)
	}
	if start < 0 || start >= len(labels) {
		return ""
	}
	end := len(labels)
	if length >= 0 && start+length < end {
		end = start + length
	}
	return Join(labels[start:end]...)
}

// Subltree returns the labels in [start, end), clamped to the path's depth.
func Subltree(path string, start, end int) string {
	labels := Labels(path)
	if start < 0 {
		start = 0
	}
	if start >= len(labels) {
		return ""
	}
	if end > len(labels) {
		end = len(labels)
	}
	if end <= start {
		return ""
	}
	return Join(labels[start:end]...)
}

// Concatenate joins two paths. An empty operand leaves the other unchanged.
func Concatenate(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + Separator + b
}

// Ancestor reports whether a is a strict ancestor of b.
func Ancestor(a, b string) bool {
	return a != b && strings.HasPrefix(b, a+Separator)
}

// Descendant reports whether a is a strict descendant of b.
func Descendant(a, b string) bool {
	return Ancestor(b, a)
}

// AncestorOrEqual reports whether a equals b or is an ancestor of it.
func AncestorOrEqual(a, b string) bool {
	return a == b || Ancestor(a, b)
}

// DescendantOrEqual reports whether a equals b or is a descendant of it.
func DescendantOrEqual(a, b string) bool {
	return a == b || Descendant(a, b)
}

// LCA returns the longest run of leading labels shared by every path.
// ok is false for no input or when the paths share no leading label.
func LCA(paths []string) (lca string, ok bool) {
	switch len(paths) {
	case 0:
		return "", false
	case 1:
		return paths[0], true
	}

	common := Labels(paths[0])
	for _, p := range paths[1:] {
		labels := Labels(p)
		n := 0
		for n < len(common) && n < len(labels) && common[n] == labels[n] {
			n++
		}
		common = common[:n]
		if n == 0 {
			return "", false
		}
	}
	return Join(common...), true
}

// IndexOf returns the first label position at or after offset where sub's
// labels appear contiguously in path, or -1.
func IndexOf(path, sub string, offset int) int {
	labels := Labels(path)
	subLabels := Labels(sub)
	if len(subLabels) == 0 {
		return -1
	}
	if offset < 0 {
		offset = 0
	}
	for i := offset; i+len(subLabels) <= len(labels); i++ {
		match := true
		for j, l := range subLabels {
			if labels[i+j] != l {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

// Parent returns path without its last label, or "" for a single-label path.
func Parent(path string) string {
	if i := strings.LastIndex(path, Separator); i >= 0 {
		return path[:i]
	}
	return ""
}

// Last returns the final label of path.
func Last(path string) string {
	if i := strings.LastIndex(path, Separator); i >= 0 {
		return path[i+1:]
	}
	return path
}
