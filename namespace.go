package beet

import (
	"iter"
	"slices"
	"strings"
)

// Namespace is a named group of assets inside a pack: one container per
// asset kind, plus namespace-level extra files such as "sounds.json".
//
// Namespaces hold a non-owning pointer back to their pack; it is valid
// while the namespace is attached and goes stale, harmlessly, on removal.
type Namespace struct {
	pack       *Pack
	name       string
	order      []*Kind
	containers map[*Kind]*FileContainer
	extra      *ExtraContainer
}

// NewNamespace returns an empty, unbound namespace.
func NewNamespace() *Namespace {
	ns := &Namespace{containers: make(map[*Kind]*FileContainer)}
	ns.extra = newExtraContainer()
	ns.extra.ns = ns
	return ns
}

// Pack returns the owning pack, nil while unbound.
func (ns *Namespace) Pack() *Pack { return ns.pack }

// Name returns the namespace's bound name, empty while unbound.
func (ns *Namespace) Name() string { return ns.name }

// Extra returns the namespace-level extra files.
func (ns *Namespace) Extra() *ExtraContainer { return ns.extra }

// Container returns the container for the given kind, creating an empty one
// as needed.
func (ns *Namespace) Container(k *Kind) *FileContainer {
	if c, ok := ns.containers[k]; ok {
		return c
	}
	c := newFileContainer(k)
	c.ns = ns
	ns.containers[k] = c
	ns.order = append(ns.order, k)
	return c
}

// Lookup returns the container for the given kind without creating one.
func (ns *Namespace) Lookup(k *Kind) (*FileContainer, bool) {
	c, ok := ns.containers[k]
	return c, ok
}

// SetContainer installs a container under the given kind, rebinding its
// children.
func (ns *Namespace) SetContainer(k *Kind, c *FileContainer) error {
	if _, ok := ns.containers[k]; !ok {
		ns.order = append(ns.order, k)
	}
	ns.containers[k] = c
	return c.bind(ns, k)
}

// Put routes the file to the container of its kind under the relative path.
func (ns *Namespace) Put(relpath string, f *File) error {
	return ns.Container(f.Kind()).Put(relpath, f)
}

// Kinds returns the kinds with a container, in insertion order.
func (ns *Namespace) Kinds() []*Kind {
	return slices.Clone(ns.order)
}

// Content iterates over every typed file in the namespace as
// (relative path, file) pairs.
func (ns *Namespace) Content() iter.Seq2[string, *File] {
	return func(yield func(string, *File) bool) {
		for _, k := range slices.Clone(ns.order) {
			c, ok := ns.containers[k]
			if !ok {
				continue
			}
			for key, f := range c.All() {
				if !yield(key, f) {
					return
				}
			}
		}
	}
}

// IsEmpty reports whether the namespace holds no typed files and no extras.
func (ns *Namespace) IsEmpty() bool {
	if ns.extra.Len() > 0 {
		return false
	}
	for _, c := range ns.containers {
		if c.Len() > 0 {
			return false
		}
	}
	return true
}

// Clear removes every file and extra.
func (ns *Namespace) Clear() {
	ns.order = nil
	ns.containers = make(map[*Kind]*FileContainer)
	ns.extra = newExtraContainer()
	ns.extra.ns = ns
}

// bind attaches the namespace to a pack and rebinds all children.
func (ns *Namespace) bind(p *Pack, name string) error {
	ns.pack, ns.name = p, name
	for _, k := range slices.Clone(ns.order) {
		c, ok := ns.containers[k]
		if !ok {
			continue
		}
		if err := c.bind(ns, k); err != nil {
			return err
		}
	}
	return ns.extra.bindNamespace(ns)
}

// Merge folds other's containers and extras into the namespace, then prunes
// any containers left empty.
func (ns *Namespace) Merge(other *Namespace) error {
	for _, k := range other.Kinds() {
		oc, ok := other.containers[k]
		if !ok {
			continue
		}
		if cur, ok := ns.containers[k]; ok {
			if err := cur.Merge(oc); err != nil {
				return err
			}
		} else if err := ns.SetContainer(k, oc); err != nil {
			return err
		}
	}
	if err := ns.extra.Merge(other.extra); err != nil {
		return err
	}
	ns.prune()
	return nil
}

func (ns *Namespace) prune() {
	for _, k := range slices.Clone(ns.order) {
		if c, ok := ns.containers[k]; ok && c.Len() == 0 {
			delete(ns.containers, k)
			ns.order = slices.DeleteFunc(ns.order, func(e *Kind) bool { return e == k })
		}
	}
}

// Equal reports structural equality with another namespace: same extras and
// the same files kind by kind, empty containers ignored.
func (ns *Namespace) Equal(other *Namespace) bool {
	if ns == other {
		return true
	}
	if other == nil || !ns.extra.Equal(other.extra) {
		return false
	}
	seen := make(map[*Kind]bool)
	for k, c := range ns.containers {
		seen[k] = true
		oc, ok := other.containers[k]
		if !ok {
			if c.Len() != 0 {
				return false
			}
			continue
		}
		if !c.Equal(oc) {
			return false
		}
	}
	for k, oc := range other.containers {
		if !seen[k] && oc.Len() != 0 {
			return false
		}
	}
	return true
}

// listFiles iterates the namespace as (flat path, file) pairs beneath
// directory/name, extras first, optionally filtered by extension: a suffix
// match for extras, an exact extension for typed files.
func (ns *Namespace) listFiles(directory, name string, extensions []string) iter.Seq2[string, *File] {
	match := func(path string) bool {
		if len(extensions) == 0 {
			return true
		}
		for _, ext := range extensions {
			if strings.HasSuffix(path, ext) {
				return true
			}
		}
		return false
	}
	return func(yield func(string, *File) bool) {
		for key, f := range ns.extra.All() {
			if !match(key) {
				continue
			}
			if !yield(directory+"/"+name+"/"+key, f) {
				return
			}
		}
		for _, k := range slices.Clone(ns.order) {
			c, ok := ns.containers[k]
			if !ok || c.Len() == 0 {
				continue
			}
			if len(extensions) > 0 && !slices.Contains(extensions, k.Extension) {
				continue
			}
			prefix := strings.Join(append([]string{directory, name}, k.Scope...), "/")
			for key, f := range c.All() {
				if !yield(prefix+"/"+key+k.Extension, f) {
					return
				}
			}
		}
	}
}
