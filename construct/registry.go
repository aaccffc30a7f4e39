package construct

import (
	"context"
	"sort"

	"github.com/teranos/kbmem/errors"
)

// Registry records knowledge base metadata, link mounts and links outside
// the path store.
type Registry interface {
	AddKB(ctx context.Context, name, description string) error
	RemoveKB(ctx context.Context, name string) error
	// AddLinkMount fails with ErrPathAlreadyExists when mount is taken.
	AddLinkMount(ctx context.Context, kb, path, mount, description string) error
	// AddLink fails with ErrPathNotFound when no mount is named linkName.
	AddLink(ctx context.Context, kb, parentPath, linkName string) error
}

// Mount is a named attachment point inside a knowledge base.
type Mount struct {
	Name        string
	KB          string
	Path        string
	Description string
}

// Link connects a path to a Mount by name.
type Link struct {
	KB         string
	ParentPath string
	Name       string
}

// MemoryRegistry is a Registry held in maps.
type MemoryRegistry struct {
	kbs    map[string]string
	mounts map[string]Mount
	links  []Link
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		kbs:    make(map[string]string),
		mounts: make(map[string]Mount),
	}
}

func (r *MemoryRegistry) AddKB(_ context.Context, name, description string) error {
	if _, ok := r.kbs[name]; ok {
		return errors.Wrapf(errors.ErrKBAlreadyExists, "register %q", name)
	}
	r.kbs[name] = description
	return nil
}

func (r *MemoryRegistry) RemoveKB(_ context.Context, name string) error {
	delete(r.kbs, name)
	for n, m := range r.mounts {
		if m.KB == name {
			delete(r.mounts, n)
		}
	}
	kept := r.links[:0]
	for _, l := range r.links {
		if l.KB != name {
			kept = append(kept, l)
		}
	}
	r.links = kept
	return nil
}

func (r *MemoryRegistry) AddLinkMount(_ context.Context, kb, path, mount, description string) error {
	if _, ok := r.kbs[kb]; !ok {
		return errors.Wrapf(errors.ErrKBNotFound, "mount %q", mount)
	}
	if _, ok := r.mounts[mount]; ok {
		return errors.Wrapf(errors.ErrPathAlreadyExists, "link mount %q", mount)
	}
	r.mounts[mount] = Mount{Name: mount, KB: kb, Path: path, Description: description}
	return nil
}

func (r *MemoryRegistry) AddLink(_ context.Context, kb, parentPath, linkName string) error {
	if _, ok := r.kbs[kb]; !ok {
		return errors.Wrapf(errors.ErrKBNotFound, "link %q", linkName)
	}
	if _, ok := r.mounts[linkName]; !ok {
		return errors.Wrapf(errors.ErrPathNotFound, "link mount %q", linkName)
	}
	r.links = append(r.links, Link{KB: kb, ParentPath: parentPath, Name: linkName})
	return nil
}

// Description returns the description kb was registered with.
func (r *MemoryRegistry) Description(kb string) (string, bool) {
	d, ok := r.kbs[kb]
	return d, ok
}

// Mounts returns every mount sorted by name.
func (r *MemoryRegistry) Mounts() []Mount {
	out := make([]Mount, 0, len(r.mounts))
	for _, m := range r.mounts {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Links returns every link in insertion order.
func (r *MemoryRegistry) Links() []Link {
	return append([]Link(nil), r.links...)
}
