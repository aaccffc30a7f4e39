package lquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kbmem/errors"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		match   []string
		noMatch []string
	}{
		{
			name:    "literal",
			pattern: "root.child1",
			match:   []string{"root.child1"},
			noMatch: []string{"root", "root.child1.grandchild", "rootXchild1"},
		},
		{
			name:    "single level",
			pattern: "root.*",
			match:   []string{"root.child1", "root.child2"},
			noMatch: []string{"root", "root.child1.grandchild"},
		},
		{
			name:    "any levels",
			pattern: "root.**",
			match:   []string{"root.child1", "root.child1.grandchild"},
			noMatch: []string{"root", "other.child1"},
		},
		{
			name:    "leading wildcard",
			pattern: "*.child1",
			match:   []string{"root.child1", "other.child1"},
			noMatch: []string{"root.x.child1"},
		},
		{
			name:    "exact levels",
			pattern: "root.*{2}",
			match:   []string{"root.a.b"},
			noMatch: []string{"root.a", "root.a.b.c"},
		},
		{
			name:    "level range",
			pattern: "root.*{1,2}",
			match:   []string{"root.a", "root.a.b"},
			noMatch: []string{"root", "root.a.b.c"},
		},
		{
			name:    "minimum levels",
			pattern: "root.*{2,}",
			match:   []string{"root.a.b", "root.a.b.c.d"},
			noMatch: []string{"root.a"},
		},
		{
			name:    "maximum levels",
			pattern: "root.*{,1}.leaf",
			match:   []string{"root.leaf", "root.a.leaf"},
			noMatch: []string{"root.a.b.leaf"},
		},
		{
			name:    "alternation",
			pattern: "root.{child1,child2}",
			match:   []string{"root.child1", "root.child2"},
			noMatch: []string{"root.child3", "root.child1.grandchild"},
		},
		{
			name:    "alternation with wildcard",
			pattern: "{kb1,kb2}.*.name",
			match:   []string{"kb1.header.name", "kb2.info.name"},
			noMatch: []string{"kb3.header.name"},
		},
		{
			name:    "flattened syntax",
			pattern: "root@child1@grandchild",
			match:   []string{"root.child1.grandchild"},
			noMatch: []string{"root.child1", "rootXchild1Xgrandchild"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.pattern)
			require.NoError(t, err)
			for _, path := range tt.match {
				assert.True(t, p.Match(path), "%q should match %q (regex %s)", tt.pattern, path, p.Regex())
			}
			for _, path := range tt.noMatch {
				assert.False(t, p.Match(path), "%q should not match %q (regex %s)", tt.pattern, path, p.Regex())
			}
		})
	}
}

func TestToRegex(t *testing.T) {
	expr, terminated := ToRegex("root.*")
	assert.True(t, terminated)
	assert.Equal(t, `^root\.[^.]+\.$`, expr)

	expr, terminated = ToRegex("root.**")
	assert.True(t, terminated)
	assert.Equal(t, `^root\..*\.$`, expr)

	expr, terminated = ToRegex("a@b")
	assert.False(t, terminated)
	assert.Equal(t, `^a\.b$`, expr)
}

func TestIsFlattened(t *testing.T) {
	assert.True(t, IsFlattened("a@b"))
	assert.False(t, IsFlattened("@a"))
	assert.False(t, IsFlattened("a@"))
	assert.False(t, IsFlattened("a.b"))
}

func TestCompileRejectsOversizedRepeat(t *testing.T) {
	_, err := Compile("root.*{5000}")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.False(t, Match("root.a", "root.*{5000}"))
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("root.*{5000}") })
	assert.NotPanics(t, func() { MustCompile("root.*") })
}

func TestSource(t *testing.T) {
	p := MustCompile("a.*")
	assert.Equal(t, "a.*", p.Source())
}
