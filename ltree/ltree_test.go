package ltree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kbmem/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"root", true},
		{"root.child", true},
		{"_private.a1.B_2", true},
		{"", false},
		{"root.", false},
		{".root", false},
		{"root..child", false},
		{"1root", false},
		{"root.1child", false},
		{"root-child", false},
		{"root child", false},
		{strings.Repeat("a", MaxLabelLength), true},
		{strings.Repeat("a", MaxLabelLength+1), false},
		{"ok." + strings.Repeat("b", MaxLabelLength+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(tt.path))
		})
	}
}

func TestValidLabel(t *testing.T) {
	assert.True(t, ValidLabel("header"))
	assert.False(t, ValidLabel("a.b"))
	assert.False(t, ValidLabel(""))
}

func TestText2Ltree(t *testing.T) {
	got, err := Text2Ltree("a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", got)

	_, err = Text2Ltree("a b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestDepthAndLabels(t *testing.T) {
	assert.Equal(t, 0, Depth(""))
	assert.Equal(t, 1, Depth("root"))
	assert.Equal(t, 3, Depth("a.b.c"))
	assert.Nil(t, Labels(""))
	assert.Equal(t, []string{"a", "b", "c"}, Labels("a.b.c"))
}

func TestSubpath(t *testing.T) {
	tests := []struct {
		name   string
		start  int
		length int
		want   string
	}{
		{"from start to end", 0, -1, "a.b.c.d"},
		{"middle slice", 1, 2, "b.c"},
		{"negative start", -2, -1, "c.d"},
		{"negative start with length", -3, 1, "b"},
		{"length past end", 2, 10, "c.d"},
		{"start past end", 4, -1, ""},
		{"negative start before beginning", -5, -1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubpathN("a.b.c.d", tt.start, tt.length))
		})
	}
	assert.Equal(t, "c.d", Subpath("a.b.c.d", 2))
}

func TestSubltree(t *testing.T) {
	assert.Equal(t, "b.c", Subltree("a.b.c.d", 1, 3))
	assert.Equal(t, "c.d", Subltree("a.b.c.d", 2, 99))
	assert.Equal(t, "", Subltree("a.b.c.d", 4, 5))
	assert.Equal(t, "", Subltree("a.b.c.d", 2, 2))
}

func TestConcatenate(t *testing.T) {
	assert.Equal(t, "a.b", Concatenate("a.b", ""))
	assert.Equal(t, "c", Concatenate("", "c"))
	assert.Equal(t, "a.b.c", Concatenate("a.b", "c"))

	for _, pair := range [][2]string{{"a", "b"}, {"a.b", "c.d.e"}, {"x", "y.z"}} {
		joined := Concatenate(pair[0], pair[1])
		assert.Equal(t, Depth(pair[0])+Depth(pair[1]), Depth(joined))
	}
}

func TestAncestry(t *testing.T) {
	paths := []string{"root", "root.a", "root.a.b", "root.ab", "other", ""}

	assert.True(t, Ancestor("root", "root.a.b"))
	assert.False(t, Ancestor("root", "root"))
	assert.False(t, Ancestor("root.a", "root.ab"))
	assert.True(t, AncestorOrEqual("root", "root"))
	assert.True(t, DescendantOrEqual("root.a", "root.a"))
	assert.True(t, Descendant("root.a.b", "root"))

	for _, a := range paths {
		for _, b := range paths {
			assert.Equal(t, Ancestor(a, b), Descendant(b, a), "a=%q b=%q", a, b)
		}
	}
}

func TestLCA(t *testing.T) {
	_, ok := LCA(nil)
	assert.False(t, ok)

	got, ok := LCA([]string{"root.a.b"})
	assert.True(t, ok)
	assert.Equal(t, "root.a.b", got)

	got, ok = LCA([]string{"root.a.b.c", "root.a.b.d", "root.a.e"})
	assert.True(t, ok)
	assert.Equal(t, "root.a", got)

	_, ok = LCA([]string{"root.a.b", "other.x.y"})
	assert.False(t, ok)
}

func TestIndexOf(t *testing.T) {
	assert.Equal(t, 1, IndexOf("a.b.c.b.c", "b.c", 0))
	assert.Equal(t, 3, IndexOf("a.b.c.b.c", "b.c", 2))
	assert.Equal(t, -1, IndexOf("a.b.c", "c.d", 0))
	assert.Equal(t, -1, IndexOf("a.b.c", "", 0))
	assert.Equal(t, 0, IndexOf("a.b.c", "a.b.c", 0))
}

func TestParentAndLast(t *testing.T) {
	assert.Equal(t, "a.b", Parent("a.b.c"))
	assert.Equal(t, "", Parent("a"))
	assert.Equal(t, "c", Last("a.b.c"))
	assert.Equal(t, "a", Last("a"))
}
