package construct

import (
	"context"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/teranos/kbmem/errors"
)

// Plan is a declarative description of one or more knowledge bases.
//
//	knowledge_bases:
//	  - name: animals
//	    description: Animal taxonomy
//	    nodes:
//	      - link: class
//	        name: mammals
//	        mount: mammal_mount
//	        children:
//	          - link: species
//	            name: dog
//	            value: {legs: 4}
type Plan struct {
	KnowledgeBases []PlanKB `yaml:"knowledge_bases"`
}

// PlanKB is one knowledge base of a Plan.
type PlanKB struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Nodes       []PlanNode `yaml:"nodes"`
}

// PlanNode is a header or info node. A node with children, a mount or links
// is opened as a header; any other node is an info node.
type PlanNode struct {
	Link        string         `yaml:"link"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Value       map[string]any `yaml:"value"`
	Mount       string         `yaml:"mount"`
	Links       []string       `yaml:"links"`
	Children    []PlanNode     `yaml:"children"`
}

func (n PlanNode) isHeader() bool {
	return len(n.Children) > 0 || n.Mount != "" || len(n.Links) > 0
}

// LoadPlan decodes a YAML plan. Unknown fields are rejected.
func LoadPlan(r io.Reader) (*Plan, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return &p, nil
		}
		return nil, errors.Wrapf(errors.ErrValidation, "decode plan: %v", err)
	}
	return &p, nil
}

// Reset removes every knowledge base named by the plan from r, with its
// mounts and links, so the plan can be applied again through a fresh
// Builder. Knowledge bases the plan does not name are left alone.
func (p *Plan) Reset(ctx context.Context, r Registry) error {
	for _, kb := range p.KnowledgeBases {
		if err := r.RemoveKB(ctx, kb.Name); err != nil {
			return errors.Wrapf(err, "reset knowledge base %q", kb.Name)
		}
	}
	return nil
}

// Apply builds every knowledge base of the plan with b and finishes with an
// installation check. Mounts are declared across all knowledge bases before
// any link is recorded, so links may refer to mounts declared later in the
// document.
func (p *Plan) Apply(ctx context.Context, b *Builder) error {
	for _, kb := range p.KnowledgeBases {
		if err := b.AddKB(ctx, kb.Name, kb.Description); err != nil {
			return err
		}
	}

	var pending []pendingLink
	for _, kb := range p.KnowledgeBases {
		if err := b.SelectKB(kb.Name); err != nil {
			return err
		}
		for _, n := range kb.Nodes {
			if err := applyNode(ctx, b, n, &pending); err != nil {
				return errors.Wrapf(err, "knowledge base %q", kb.Name)
			}
		}
	}

	for _, l := range pending {
		if err := b.linkAt(ctx, l.kb, l.path, l.name); err != nil {
			return err
		}
	}
	return b.CheckInstallation()
}

type pendingLink struct {
	kb, path, name string
}

func applyNode(ctx context.Context, b *Builder, n PlanNode, pending *[]pendingLink) error {
	if !n.isHeader() {
		return b.AddInfoNode(n.Link, n.Name, n.Value, n.Description)
	}

	if err := b.AddHeaderNode(n.Link, n.Name, n.Value, n.Description); err != nil {
		return err
	}
	if n.Mount != "" {
		if err := b.AddLinkMount(ctx, n.Mount, n.Description); err != nil {
			return err
		}
	}
	kb, _ := b.WorkingKB()
	for _, name := range n.Links {
		*pending = append(*pending, pendingLink{kb: kb, path: b.CurrentPathString(), name: name})
	}
	for _, child := range n.Children {
		if err := applyNode(ctx, b, child, pending); err != nil {
			return err
		}
	}
	return b.LeaveHeaderNode(n.Link, n.Name)
}
