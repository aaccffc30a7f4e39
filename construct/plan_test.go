package construct

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/pathstore"
)

const animalsPlan = `
knowledge_bases:
  - name: animals
    description: Animal taxonomy
    nodes:
      - link: class
        name: mammals
        description: Warm blooded
        links: [bird_mount]
        children:
          - link: species
            name: dog
            value: {legs: 4}
          - link: species
            name: cat
  - name: zoo
    nodes:
      - link: class
        name: birds
        mount: bird_mount
`

func TestLoadPlan(t *testing.T) {
	p, err := LoadPlan(strings.NewReader(animalsPlan))
	require.NoError(t, err)
	require.Len(t, p.KnowledgeBases, 2)

	animals := p.KnowledgeBases[0]
	assert.Equal(t, "animals", animals.Name)
	assert.Equal(t, "Animal taxonomy", animals.Description)
	require.Len(t, animals.Nodes, 1)

	mammals := animals.Nodes[0]
	assert.True(t, mammals.isHeader())
	assert.Equal(t, []string{"bird_mount"}, mammals.Links)
	require.Len(t, mammals.Children, 2)
	assert.Equal(t, map[string]any{"legs": 4}, mammals.Children[0].Value)
	assert.False(t, mammals.Children[0].isHeader())

	assert.Equal(t, "bird_mount", p.KnowledgeBases[1].Nodes[0].Mount)
}

func TestLoadPlanEmpty(t *testing.T) {
	p, err := LoadPlan(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, p.KnowledgeBases)
}

func TestLoadPlanUnknownField(t *testing.T) {
	_, err := LoadPlan(strings.NewReader("knowledge_bases:\n  - name: a\n    colour: red\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestPlanApply(t *testing.T) {
	p, err := LoadPlan(strings.NewReader(animalsPlan))
	require.NoError(t, err)

	b := newBuilder(t)
	require.NoError(t, p.Apply(context.Background(), b))

	assert.Equal(t, []string{
		"animals.class.mammals",
		"animals.class.mammals.species.cat",
		"animals.class.mammals.species.dog",
		"zoo.class.birds",
	}, b.Store().AllPaths())

	dog, _, err := b.Store().Get("animals.class.mammals.species.dog")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"legs": 4}, dog)

	mammals, _, _ := b.Store().Get("animals.class.mammals")
	assert.Equal(t, map[string]any{KeyDescription: "Warm blooded", KeyHasLink: true}, mammals)

	birds, _, _ := b.Store().Get("zoo.class.birds")
	assert.Equal(t, map[string]any{KeyHasLinkMount: true}, birds)

	reg := b.registry.(*MemoryRegistry)
	assert.Equal(t, []Link{{KB: "animals", ParentPath: "animals.class.mammals", Name: "bird_mount"}}, reg.Links())
	assert.NoError(t, b.CheckInstallation())
}

func TestPlanApplyDuplicateNode(t *testing.T) {
	p := &Plan{KnowledgeBases: []PlanKB{{
		Name: "k",
		Nodes: []PlanNode{
			{Link: "L", Name: "N"},
			{Link: "L", Name: "N"},
		},
	}}}

	err := p.Apply(context.Background(), newBuilder(t))
	require.Error(t, err)
	assert.True(t, errors.IsPathAlreadyExists(err))
	assert.Contains(t, err.Error(), `knowledge base "k"`)
}

func TestPlanApplyMissingMount(t *testing.T) {
	p := &Plan{KnowledgeBases: []PlanKB{{
		Name:  "k",
		Nodes: []PlanNode{{Link: "L", Name: "N", Links: []string{"nowhere"}}},
	}}}

	err := p.Apply(context.Background(), newBuilder(t))
	assert.True(t, errors.IsPathNotFound(err))
}

func TestPlanReapplyAfterReset(t *testing.T) {
	ctx := context.Background()
	p, err := LoadPlan(strings.NewReader(animalsPlan))
	require.NoError(t, err)

	reg := NewMemoryRegistry()
	require.NoError(t, reg.AddKB(ctx, "other", "not in the plan"))
	build := func() error {
		b := NewBuilder(pathstore.New(nil), reg, nil)
		return p.Apply(ctx, b)
	}
	require.NoError(t, build())

	err = build()
	assert.True(t, errors.Is(err, errors.ErrKBAlreadyExists), "registry rows survive a fresh builder")

	require.NoError(t, p.Reset(ctx, reg))
	require.NoError(t, build())

	assert.Len(t, reg.Mounts(), 1)
	assert.Len(t, reg.Links(), 1)
	desc, ok := reg.Description("other")
	assert.True(t, ok)
	assert.Equal(t, "not in the plan", desc)
}
