package beet

import (
	"iter"
	"slices"
	"strings"
)

// NamespaceProxy is a flattened view over every namespace of a pack for a
// single kind, keyed by the namespaced form "namespace:relative/path".
//
// Proxies are cheap view values; mutations go straight to the underlying
// containers.
type NamespaceProxy struct {
	pack *Pack
	kind *Kind
}

// Kind returns the kind the proxy exposes.
func (np *NamespaceProxy) Kind() *Kind { return np.kind }

func (np *NamespaceProxy) splitKey(key string) (string, string, error) {
	name, rel, ok := strings.Cut(key, ":")
	if !ok || rel == "" || !validNamespaceName(name) {
		return "", "", &Error{Kind: ErrInvalid, Op: "proxy: key", Message: `expected "namespace:path", got ` + key}
	}
	return name, rel, nil
}

// Get returns the file stored under the namespaced key.
func (np *NamespaceProxy) Get(key string) (*File, bool) {
	name, rel, err := np.splitKey(key)
	if err != nil {
		return nil, false
	}
	ns, ok := np.pack.LookupNamespace(name)
	if !ok {
		return nil, false
	}
	c, ok := ns.Lookup(np.kind)
	if !ok {
		return nil, false
	}
	return c.Get(rel)
}

// Put installs the file under the namespaced key, creating the namespace as
// needed.
func (np *NamespaceProxy) Put(key string, f *File) error {
	name, rel, err := np.splitKey(key)
	if err != nil {
		return err
	}
	return np.pack.Namespace(name).Container(np.kind).Put(rel, f)
}

// Delete removes the entry, reporting whether it was present.
func (np *NamespaceProxy) Delete(key string) bool {
	name, rel, err := np.splitKey(key)
	if err != nil {
		return false
	}
	ns, ok := np.pack.LookupNamespace(name)
	if !ok {
		return false
	}
	c, ok := ns.Lookup(np.kind)
	if !ok {
		return false
	}
	return c.Delete(rel)
}

// GetOrCreate returns the file under the namespaced key, installing a fresh
// default-valued file when absent.
func (np *NamespaceProxy) GetOrCreate(key string) (*File, error) {
	name, rel, err := np.splitKey(key)
	if err != nil {
		return nil, err
	}
	return np.pack.Namespace(name).Container(np.kind).GetOrCreate(rel)
}

// Len returns the number of files of the kind across all namespaces.
func (np *NamespaceProxy) Len() int {
	n := 0
	for _, ns := range np.pack.namespaceList() {
		if c, ok := ns.Lookup(np.kind); ok {
			n += c.Len()
		}
	}
	return n
}

// Keys returns all namespaced keys, namespaces in insertion order.
func (np *NamespaceProxy) Keys() []string {
	var keys []string
	for key := range np.All() {
		keys = append(keys, key)
	}
	return keys
}

// All iterates over (namespaced key, file) pairs.
func (np *NamespaceProxy) All() iter.Seq2[string, *File] {
	return func(yield func(string, *File) bool) {
		for _, ns := range np.pack.namespaceList() {
			c, ok := ns.Lookup(np.kind)
			if !ok {
				continue
			}
			name := ns.Name()
			for key, f := range c.All() {
				if !yield(name+":"+key, f) {
					return
				}
			}
		}
	}
}

// MergeFiles folds files keyed by namespaced path into the pack through the
// pack's merge policy.
func (np *NamespaceProxy) MergeFiles(files []ProxyEntry) error {
	entries := make([]mergeEntry, len(files))
	for i, e := range files {
		entries[i] = mergeEntry{key: e.Key, file: e.File}
	}
	pack := np.pack
	return mergeWithRules(pack, np, entries, func(key string) (string, []MergeCallback) {
		return key, pack.MergePolicy.Namespace[np.kind]
	})
}

// ProxyEntry pairs a namespaced key with a file for [NamespaceProxy.MergeFiles].
type ProxyEntry struct {
	Key  string
	File *File
}

// mergeTarget implementation.
func (np *NamespaceProxy) lookup(key string) (*File, bool) { return np.Get(key) }
func (np *NamespaceProxy) install(key string, f *File) error {
	return np.Put(key, f)
}
func (np *NamespaceProxy) remove(key string) { np.Delete(key) }

// WalkEntry is one directory level yielded by [NamespaceProxy.Walk].
//
// Prefix ends with ":" at a namespace root and "/" below it, so
// Prefix+name is always a valid namespaced key.
type WalkEntry struct {
	Prefix string
	Dirs   []string
	Files  map[string]*File
}

// Walk iterates over the file hierarchy of the kind, one directory level at
// a time, depth-first with directories in sorted order.
func (np *NamespaceProxy) Walk() iter.Seq[WalkEntry] {
	return func(yield func(WalkEntry) bool) {
		for _, ns := range np.pack.namespaceList() {
			c, ok := ns.Lookup(np.kind)
			if !ok {
				continue
			}
			type frame struct {
				prefix string
				sep    string
				node   *TreeNode
			}
			stack := []frame{{prefix: ns.Name(), sep: ":", node: c.GenerateTree("")}}
			for len(stack) > 0 {
				fr := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				dirs := make([]string, 0, len(fr.node.Dirs))
				for name := range fr.node.Dirs {
					dirs = append(dirs, name)
				}
				slices.Sort(dirs)

				if !yield(WalkEntry{Prefix: fr.prefix + fr.sep, Dirs: dirs, Files: fr.node.Files}) {
					return
				}
				for i := len(dirs) - 1; i >= 0; i-- {
					name := dirs[i]
					stack = append(stack, frame{
						prefix: fr.prefix + fr.sep + name,
						sep:    "/",
						node:   fr.node.Dirs[name],
					})
				}
			}
		}
	}
}
