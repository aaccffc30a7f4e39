// Package construct builds knowledge bases as balanced, uniquely named
// nested paths.
//
// Each knowledge base has a stack of open scopes starting at [kb]. Opening a
// header pushes a link label and a node name and stores the node at the
// joined path; leaving pops both after checking they match. A knowledge base
// is installation-valid when its stack is back to [kb]. Every path opened in
// a knowledge base stays reserved for the builder's lifetime.
package construct

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/kbmem/errors"
	"github.com/teranos/kbmem/logger"
	"github.com/teranos/kbmem/ltree"
	"github.com/teranos/kbmem/pathstore"
)

// Value keys the builder writes into node values.
const (
	KeyDescription  = "description"
	KeyHasLink      = "has_link"
	KeyHasLinkMount = "has_link_mount"
)

// Builder drives construction for any number of knowledge bases over one
// path store. It is not safe for concurrent use.
type Builder struct {
	store    *pathstore.Store
	registry Registry
	logger   *zap.SugaredLogger

	stacks  map[string][]string
	used    map[string]map[string]struct{}
	working string
}

// KBStats describes one knowledge base under construction.
type KBStats struct {
	KB         string `json:"kb" yaml:"kb"`
	Entries    int    `json:"entries" yaml:"entries"`
	StackDepth int    `json:"stack_depth" yaml:"stack_depth"`
	UsedPaths  int    `json:"used_paths" yaml:"used_paths"`
}

// NewBuilder creates a Builder writing into store. A nil registry uses a
// MemoryRegistry; a nil logger disables logging.
func NewBuilder(store *pathstore.Store, registry Registry, log *zap.SugaredLogger) *Builder {
	if registry == nil {
		registry = NewMemoryRegistry()
	}
	return &Builder{
		store:    store,
		registry: registry,
		logger:   logger.OrNop(log),
		stacks:   make(map[string][]string),
		used:     make(map[string]map[string]struct{}),
	}
}

// Store returns the path store the builder writes into.
func (b *Builder) Store() *pathstore.Store { return b.store }

// AddKB starts tracking a knowledge base and registers it.
func (b *Builder) AddKB(ctx context.Context, name, description string) error {
	if _, ok := b.stacks[name]; ok {
		return errors.Wrapf(errors.ErrKBAlreadyExists, "add %q", name)
	}
	if !ltree.ValidLabel(name) {
		return errors.Wrapf(errors.ErrInvalidPath, "knowledge base name %q", name)
	}
	if err := b.registry.AddKB(ctx, name, description); err != nil {
		return err
	}
	b.stacks[name] = []string{name}
	b.used[name] = make(map[string]struct{})
	b.logger.Infow("Added knowledge base", logger.FieldKB, name)
	return nil
}

// SelectKB makes name the working knowledge base.
func (b *Builder) SelectKB(name string) error {
	if _, ok := b.stacks[name]; !ok {
		return errors.Wrapf(errors.ErrKBNotFound, "select %q", name)
	}
	b.working = name
	return nil
}

func (b *Builder) requireWorking(op string) (string, error) {
	if b.working == "" {
		return "", errors.WithHint(errors.Wrap(errors.ErrNoWorkingKB, op), "call SelectKB first")
	}
	return b.working, nil
}

// AddHeaderNode opens a scope link.name under the current path and stores
// value there, with description merged in when non-empty. value is copied.
// On failure the stack is unchanged.
func (b *Builder) AddHeaderNode(link, name string, value map[string]any, description string) error {
	kb, err := b.requireWorking("add header node")
	if err != nil {
		return err
	}

	stack := b.stacks[kb]
	fullPath := ltree.Join(append(append([]string(nil), stack...), link, name)...)
	if !ltree.Validate(fullPath) || !ltree.ValidLabel(link) || !ltree.ValidLabel(name) {
		return errors.Wrapf(errors.ErrInvalidPath, "header %q", fullPath)
	}
	if _, taken := b.used[kb][fullPath]; taken {
		return errors.Wrapf(errors.ErrPathAlreadyExists, "header %q", fullPath)
	}

	node := make(map[string]any, len(value)+1)
	for k, v := range value {
		node[k] = v
	}
	if description != "" {
		node[KeyDescription] = description
	}
	if err := b.store.Put(fullPath, node); err != nil {
		return err
	}

	b.stacks[kb] = append(stack, link, name)
	b.used[kb][fullPath] = struct{}{}
	b.logger.Debugw("Opened header", logger.FieldKB, kb, logger.FieldPath, fullPath, logger.FieldDepth, len(b.stacks[kb]))
	return nil
}

// AddInfoNode stores a leaf at link.name under the current path. The stack
// is left as it was.
func (b *Builder) AddInfoNode(link, name string, value map[string]any, description string) error {
	if err := b.AddHeaderNode(link, name, value, description); err != nil {
		return err
	}
	stack := b.stacks[b.working]
	b.stacks[b.working] = stack[:len(stack)-2]
	return nil
}

// LeaveHeaderNode closes the innermost scope, which must be label.name. On
// failure the stack is unchanged.
func (b *Builder) LeaveHeaderNode(label, name string) error {
	kb, err := b.requireWorking("leave header node")
	if err != nil {
		return err
	}

	stack := b.stacks[kb]
	switch len(stack) {
	case 0:
		return errors.Wrapf(errors.ErrPathEmpty, "leave %s.%s in %q", label, name, kb)
	case 1:
		// Only a name is poppable, with no label beneath it
		return errors.Wrapf(errors.ErrNotEnoughElements, "leave %s.%s in %q", label, name, kb)
	}

	gotName := stack[len(stack)-1]
	gotLabel := stack[len(stack)-2]
	var mismatches []string
	if gotName != name {
		mismatches = append(mismatches, fmt.Sprintf("expected name '%s', but got '%s'", name, gotName))
	}
	if gotLabel != label {
		mismatches = append(mismatches, fmt.Sprintf("expected label '%s', but got '%s'", label, gotLabel))
	}
	if len(mismatches) > 0 {
		return errors.Wrapf(errors.ErrAssertion, "%s", strings.Join(mismatches, "; "))
	}

	b.stacks[kb] = stack[:len(stack)-2]
	b.logger.Debugw("Left header", logger.FieldKB, kb, logger.FieldLabel, label, logger.FieldName, name,
		logger.FieldDepth, len(b.stacks[kb]))
	return nil
}

// AddLinkNode links the current path to the mount named linkName and marks
// the entry at the current path with has_link.
func (b *Builder) AddLinkNode(ctx context.Context, linkName string) error {
	kb, err := b.requireWorking("add link node")
	if err != nil {
		return err
	}
	return b.linkAt(ctx, kb, b.CurrentPathString(), linkName)
}

func (b *Builder) linkAt(ctx context.Context, kb, path, linkName string) error {
	if err := b.registry.AddLink(ctx, kb, path, linkName); err != nil {
		return err
	}
	return b.mark(path, KeyHasLink)
}

// AddLinkMount declares a mount named mountName at the current path and marks
// the entry there with has_link_mount.
func (b *Builder) AddLinkMount(ctx context.Context, mountName, description string) error {
	kb, err := b.requireWorking("add link mount")
	if err != nil {
		return err
	}
	path := b.CurrentPathString()
	if err := b.registry.AddLinkMount(ctx, kb, path, mountName, description); err != nil {
		return err
	}
	return b.mark(path, KeyHasLinkMount)
}

// mark sets key to true in the map value stored at path. Paths without an
// entry, such as a bare knowledge base root, are left alone.
func (b *Builder) mark(path, key string) error {
	e, err := b.store.GetNode(path)
	if err != nil || e == nil {
		return err
	}
	old, ok := e.Value.(map[string]any)
	if !ok {
		return nil
	}
	node := make(map[string]any, len(old)+1)
	for k, v := range old {
		node[k] = v
	}
	node[key] = true
	return b.store.Put(path, node)
}

// CheckInstallation fails when any knowledge base has an open scope.
func (b *Builder) CheckInstallation() error {
	var open []string
	for _, kb := range b.KBNames() {
		stack := b.stacks[kb]
		if len(stack) != 1 || stack[0] != kb {
			open = append(open, fmt.Sprintf("%s: [%s]", kb, strings.Join(stack, ", ")))
		}
	}
	if len(open) > 0 {
		return errors.Wrapf(errors.ErrInstallationCheckFailed, "%s", strings.Join(open, "; "))
	}
	return nil
}

// CurrentPath returns a copy of the working knowledge base's stack, or nil.
func (b *Builder) CurrentPath() []string {
	if b.working == "" {
		return nil
	}
	return append([]string(nil), b.stacks[b.working]...)
}

// CurrentPathString returns the working stack joined into a path.
func (b *Builder) CurrentPathString() string {
	return ltree.Join(b.CurrentPath()...)
}

// WorkingKB returns the selected knowledge base.
func (b *Builder) WorkingKB() (string, bool) {
	return b.working, b.working != ""
}

// KBNames returns the tracked knowledge bases in ascending order.
func (b *Builder) KBNames() []string {
	names := make([]string, 0, len(b.stacks))
	for name := range b.stacks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListKBPaths returns the stored paths under name, sorted.
func (b *Builder) ListKBPaths(name string) ([]string, error) {
	if _, ok := b.stacks[name]; !ok {
		return nil, errors.Wrapf(errors.ErrKBNotFound, "list %q", name)
	}
	entries, err := b.store.QuerySubtree(name)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths, nil
}

// KBStats reports entry and stack counts for name.
func (b *Builder) KBStats(name string) (KBStats, error) {
	paths, err := b.ListKBPaths(name)
	if err != nil {
		return KBStats{}, err
	}
	return KBStats{
		KB:         name,
		Entries:    len(paths),
		StackDepth: len(b.stacks[name]),
		UsedPaths:  len(b.used[name]),
	}, nil
}

// PathExistsInWorkingKB reports whether relative, taken under the working
// knowledge base root, has a stored entry.
func (b *Builder) PathExistsInWorkingKB(relative string) bool {
	if b.working == "" {
		return false
	}
	return b.store.Exists(ltree.Concatenate(b.working, relative))
}

// RemoveKB forgets name, deletes every entry at or under it and unregisters it.
func (b *Builder) RemoveKB(ctx context.Context, name string) error {
	if _, ok := b.stacks[name]; !ok {
		return errors.Wrapf(errors.ErrKBNotFound, "remove %q", name)
	}
	if err := b.registry.RemoveKB(ctx, name); err != nil {
		return err
	}
	removed := b.store.DeleteSubtree(name)
	delete(b.stacks, name)
	delete(b.used, name)
	if b.working == name {
		b.working = ""
	}
	b.logger.Infow("Removed knowledge base", logger.FieldKB, name, logger.FieldCount, removed)
	return nil
}

// ClearAll removes every tracked knowledge base.
func (b *Builder) ClearAll(ctx context.Context) error {
	for _, name := range b.KBNames() {
		if err := b.RemoveKB(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
