package construct

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kbmem/errors"
)

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	require.NoError(t, r.AddKB(ctx, "a", "alpha"))
	assert.True(t, errors.Is(r.AddKB(ctx, "a", ""), errors.ErrKBAlreadyExists))

	assert.True(t, errors.IsKBNotFound(r.AddLinkMount(ctx, "b", "b.x.y", "m", "")))
	assert.True(t, errors.IsKBNotFound(r.AddLink(ctx, "b", "b.x.y", "m")))

	require.NoError(t, r.AddLinkMount(ctx, "a", "a.x.y", "m2", "second"))
	require.NoError(t, r.AddLinkMount(ctx, "a", "a.x.z", "m1", "first"))
	assert.True(t, errors.IsPathAlreadyExists(r.AddLinkMount(ctx, "a", "a.q.r", "m1", "")))

	assert.True(t, errors.IsPathNotFound(r.AddLink(ctx, "a", "a.p.q", "m3")))
	require.NoError(t, r.AddLink(ctx, "a", "a.p.q", "m2"))
	require.NoError(t, r.AddLink(ctx, "a", "a.p.q", "m1"))

	mounts := r.Mounts()
	require.Len(t, mounts, 2)
	assert.Equal(t, "m1", mounts[0].Name)
	assert.Equal(t, "a.x.z", mounts[0].Path)
	assert.Equal(t, "m2", mounts[1].Name)

	assert.Equal(t, []Link{
		{KB: "a", ParentPath: "a.p.q", Name: "m2"},
		{KB: "a", ParentPath: "a.p.q", Name: "m1"},
	}, r.Links())
}

func TestMemoryRegistryRemoveKB(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	require.NoError(t, r.AddKB(ctx, "a", ""))
	require.NoError(t, r.AddKB(ctx, "b", "bee"))
	require.NoError(t, r.AddLinkMount(ctx, "a", "a.x.y", "ma", ""))
	require.NoError(t, r.AddLinkMount(ctx, "b", "b.x.y", "mb", ""))
	require.NoError(t, r.AddLink(ctx, "a", "a.l.l", "mb"))
	require.NoError(t, r.AddLink(ctx, "b", "b.l.l", "ma"))

	require.NoError(t, r.RemoveKB(ctx, "a"))

	_, ok := r.Description("a")
	assert.False(t, ok)
	desc, ok := r.Description("b")
	assert.True(t, ok)
	assert.Equal(t, "bee", desc)

	assert.Equal(t, []Mount{{Name: "mb", KB: "b", Path: "b.x.y"}}, r.Mounts())
	assert.Equal(t, []Link{{KB: "b", ParentPath: "b.l.l", Name: "ma"}}, r.Links())
}
