package beet

import (
	"errors"
	"iter"
	"slices"
	"strings"
)

// FileContainer stores files of a single kind beneath a namespace, keyed by
// extension-less relative path ("block/stone"). Iteration follows insertion
// order.
type FileContainer struct {
	order []string
	files map[string]*File
	ns    *Namespace
	kind  *Kind
}

func newFileContainer(kind *Kind) *FileContainer {
	return &FileContainer{files: make(map[string]*File), kind: kind}
}

// Kind returns the kind of file the container holds.
func (c *FileContainer) Kind() *Kind { return c.kind }

// Len returns the number of files.
func (c *FileContainer) Len() int { return len(c.files) }

// Get returns the file stored under the relative path.
func (c *FileContainer) Get(path string) (*File, bool) {
	f, ok := c.files[path]
	return f, ok
}

// Keys returns the relative paths in insertion order.
func (c *FileContainer) Keys() []string {
	return slices.Clone(c.order)
}

// All iterates over (path, file) pairs in insertion order.
func (c *FileContainer) All() iter.Seq2[string, *File] {
	return func(yield func(string, *File) bool) {
		for _, key := range slices.Clone(c.order) {
			f, ok := c.files[key]
			if !ok {
				continue
			}
			if !yield(key, f) {
				return
			}
		}
	}
}

// Put installs the file under the relative path, rebinding it when the
// container is attached to a bound namespace. Bind side effects may veto
// the entry; that is not an error.
func (c *FileContainer) Put(path string, f *File) error {
	if _, ok := c.files[path]; !ok {
		c.order = append(c.order, path)
	}
	c.files[path] = f
	return c.process(path, f)
}

// Delete removes the entry, reporting whether it was present. The removed
// file keeps its stale bind state.
func (c *FileContainer) Delete(path string) bool {
	if _, ok := c.files[path]; !ok {
		return false
	}
	delete(c.files, path)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == path })
	return true
}

// GetOrCreate returns the file under path, installing a fresh default-valued
// file of the container's kind when absent.
func (c *FileContainer) GetOrCreate(path string) (*File, error) {
	if f, ok := c.files[path]; ok {
		return f, nil
	}
	f := c.kind.NewFile(nil)
	if err := c.Put(path, f); err != nil {
		return nil, err
	}
	return f, nil
}

// process rebinds the file when the container hangs off a bound namespace.
func (c *FileContainer) process(path string, f *File) error {
	if c.ns == nil || c.ns.pack == nil || c.ns.name == "" {
		return nil
	}
	err := f.bind(c.ns.pack, c.ns.name+":"+path)
	if errors.Is(err, ErrDrop) {
		c.Delete(path)
		return nil
	}
	return err
}

// bind attaches the container to a namespace and rebinds every child.
func (c *FileContainer) bind(ns *Namespace, kind *Kind) error {
	c.ns, c.kind = ns, kind
	for _, key := range slices.Clone(c.order) {
		f, ok := c.files[key]
		if !ok {
			continue
		}
		if err := c.process(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Merge folds other's entries into the container. When the container lives
// inside a bound pack the pack's merge policy applies; otherwise the kind
// merge contract runs directly.
func (c *FileContainer) Merge(other *FileContainer) error {
	entries := make([]mergeEntry, 0, other.Len())
	for key, f := range other.All() {
		entries = append(entries, mergeEntry{key: key, file: f})
	}
	if c.ns != nil && c.ns.pack != nil && c.ns.name != "" {
		pack, name, kind := c.ns.pack, c.ns.name, c.kind
		return mergeWithRules(pack, c, entries, func(key string) (string, []MergeCallback) {
			return name + ":" + key, pack.MergePolicy.Namespace[kind]
		})
	}
	return mergeWithRules(packOf(c.ns), c, entries, nil)
}

// Equal reports structural equality of the stored files, ignoring order.
func (c *FileContainer) Equal(other *FileContainer) bool {
	if c.Len() != other.Len() {
		return false
	}
	for key, f := range c.files {
		g, ok := other.files[key]
		if !ok || !f.Equal(g) {
			return false
		}
	}
	return true
}

// TreeNode is one directory level of a container hierarchy.
type TreeNode struct {
	Dirs  map[string]*TreeNode
	Files map[string]*File
}

func newTreeNode() *TreeNode {
	return &TreeNode{Dirs: make(map[string]*TreeNode), Files: make(map[string]*File)}
}

func (n *TreeNode) dir(name string) *TreeNode {
	d, ok := n.Dirs[name]
	if !ok {
		d = newTreeNode()
		n.Dirs[name] = d
	}
	return d
}

// GenerateTree builds the directory hierarchy of the container's files
// rooted at the given path ("" for the whole container).
func (c *FileContainer) GenerateTree(root string) *TreeNode {
	var prefix []string
	if root != "" {
		prefix = strings.Split(root, "/")
	}
	tree := newTreeNode()
	for key, f := range c.All() {
		parts := strings.Split(key, "/")
		if len(parts) <= len(prefix) || !slices.Equal(parts[:len(prefix)], prefix) {
			continue
		}
		rel := parts[len(prefix):]
		node := tree
		for _, part := range rel[:len(rel)-1] {
			node = node.dir(part)
		}
		node.Files[rel[len(rel)-1]] = f
	}
	return tree
}

// mergeTarget implementation.
func (c *FileContainer) lookup(key string) (*File, bool) { return c.Get(key) }
func (c *FileContainer) install(key string, f *File) error {
	return c.Put(key, f)
}
func (c *FileContainer) remove(key string) { c.Delete(key) }

func packOf(ns *Namespace) *Pack {
	if ns == nil {
		return nil
	}
	return ns.pack
}

// ExtraContainer stores auxiliary files keyed by exact filename: pack-level
// extras like "pack.mcmeta", or namespace-level extras like "sounds.json".
type ExtraContainer struct {
	order []string
	files map[string]*File
	pack  *Pack      // set when holding pack-level extras
	ns    *Namespace // set when holding namespace-level extras
}

func newExtraContainer() *ExtraContainer {
	return &ExtraContainer{files: make(map[string]*File)}
}

// Len returns the number of files.
func (c *ExtraContainer) Len() int { return len(c.files) }

// Get returns the file stored under the filename.
func (c *ExtraContainer) Get(name string) (*File, bool) {
	f, ok := c.files[name]
	return f, ok
}

// Keys returns the filenames in insertion order.
func (c *ExtraContainer) Keys() []string {
	return slices.Clone(c.order)
}

// All iterates over (filename, file) pairs in insertion order.
func (c *ExtraContainer) All() iter.Seq2[string, *File] {
	return func(yield func(string, *File) bool) {
		for _, key := range slices.Clone(c.order) {
			f, ok := c.files[key]
			if !ok {
				continue
			}
			if !yield(key, f) {
				return
			}
		}
	}
}

// Put installs the file under the filename, rebinding it when the container
// is attached.
func (c *ExtraContainer) Put(name string, f *File) error {
	if _, ok := c.files[name]; !ok {
		c.order = append(c.order, name)
	}
	c.files[name] = f
	return c.process(name, f)
}

// Delete removes the entry, reporting whether it was present.
func (c *ExtraContainer) Delete(name string) bool {
	if _, ok := c.files[name]; !ok {
		return false
	}
	delete(c.files, name)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == name })
	return true
}

func (c *ExtraContainer) process(name string, f *File) error {
	var err error
	switch {
	case c.pack != nil:
		err = f.bind(c.pack, name)
	case c.ns != nil && c.ns.pack != nil && c.ns.name != "":
		err = f.bind(c.ns.pack, c.ns.name+":"+name)
	default:
		return nil
	}
	if errors.Is(err, ErrDrop) {
		c.Delete(name)
		return nil
	}
	return err
}

func (c *ExtraContainer) bindPack(p *Pack) error {
	c.pack = p
	return c.rebind()
}

func (c *ExtraContainer) bindNamespace(ns *Namespace) error {
	c.ns = ns
	return c.rebind()
}

func (c *ExtraContainer) rebind() error {
	for _, key := range slices.Clone(c.order) {
		f, ok := c.files[key]
		if !ok {
			continue
		}
		if err := c.process(key, f); err != nil {
			return err
		}
	}
	return nil
}

// MergeFiles folds a loose set of entries into the container, applying the
// owning pack's merge policy when bound.
func (c *ExtraContainer) MergeFiles(entries []mergeEntry) error {
	switch {
	case c.pack != nil:
		pack := c.pack
		return mergeWithRules(pack, c, entries, func(key string) (string, []MergeCallback) {
			return key, pack.MergePolicy.Extra[key]
		})
	case c.ns != nil && c.ns.pack != nil && c.ns.name != "":
		pack, name := c.ns.pack, c.ns.name
		return mergeWithRules(pack, c, entries, func(key string) (string, []MergeCallback) {
			return name + ":" + key, pack.MergePolicy.NamespaceExtra[key]
		})
	}
	return mergeWithRules(nil, c, entries, nil)
}

// Merge folds other's entries into the container.
func (c *ExtraContainer) Merge(other *ExtraContainer) error {
	entries := make([]mergeEntry, 0, other.Len())
	for key, f := range other.All() {
		entries = append(entries, mergeEntry{key: key, file: f})
	}
	return c.MergeFiles(entries)
}

// MergeFile folds a single file into the container.
func (c *ExtraContainer) MergeFile(name string, f *File) error {
	return c.MergeFiles([]mergeEntry{{key: name, file: f}})
}

// Equal reports structural equality of the stored files, ignoring order.
func (c *ExtraContainer) Equal(other *ExtraContainer) bool {
	if c.Len() != other.Len() {
		return false
	}
	for key, f := range c.files {
		g, ok := other.files[key]
		if !ok || !f.Equal(g) {
			return false
		}
	}
	return true
}

// mergeTarget implementation.
func (c *ExtraContainer) lookup(key string) (*File, bool) { return c.Get(key) }
func (c *ExtraContainer) install(key string, f *File) error {
	return c.Put(key, f)
}
func (c *ExtraContainer) remove(key string) { c.Delete(key) }
