package beet

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/quay/zlog"
)

// Version is a game version a pack format is keyed by.
type Version struct {
	Major int
	Minor int
}

// String implements fmt.Stringer.
func (v Version) String() string { return fmt.Sprintf("%d.%d", v.Major, v.Minor) }

// PackType describes a family of packs: the directory convention beneath
// the pack root, the known asset kinds, the extra-file tables and the
// pack-format registry.
//
// PackType values are static configuration; packs only read them.
type PackType struct {
	// Directory is the single directory namespaces live under, e.g.
	// "assets".
	Directory string
	// DefaultName names saved packs that never got one; a counter is
	// appended on collision.
	DefaultName string
	// Extra maps pack-level extra filenames to their kinds; it includes
	// at least "pack.mcmeta".
	Extra map[string]*Kind
	// NamespaceExtra maps namespace-level extra filenames to their
	// kinds, e.g. "sounds.json".
	NamespaceExtra map[string]*Kind
	// Kinds is the built-in asset kind set.
	Kinds []*Kind
	// FormatRegistry maps game versions to pack formats.
	FormatRegistry map[Version]int
	// LatestVersion selects the entry of FormatRegistry that defines the
	// latest pack format.
	LatestVersion Version
}

// LatestFormat returns the pack format of the latest registered version.
func (t *PackType) LatestFormat() int {
	return t.FormatRegistry[t.LatestVersion]
}

// PackFormat returns the pack format for a game version.
func (t *PackType) PackFormat(v Version) (int, bool) {
	f, ok := t.FormatRegistry[v]
	return f, ok
}

// registry builds the scope/extension registry for the built-in kinds. A
// conflicting built-in table is a programmer error.
func (t *PackType) registry() *Registry {
	r, err := NewRegistry(t.Kinds...)
	if err != nil {
		panic(err)
	}
	return r
}

// Pack is the root container: namespaces keyed by name, pack-level extra
// files, and the settings a save falls back to.
type Pack struct {
	// Type declares the pack family. Required.
	Type *PackType
	// Name and Path are the destination the pack was loaded from or last
	// saved to: Path is the parent directory, Name the bare pack name
	// without a ".zip" suffix.
	Name string
	Path string
	// Zipped selects archive output; Compression and CompressionLevel
	// configure it. A negative level means the codec default.
	Zipped           bool
	Compression      string
	CompressionLevel int

	// MergePolicy holds the user-installed merge rules.
	MergePolicy *MergePolicy

	order      []string
	namespaces map[string]*Namespace
	extra      *ExtraContainer

	extendExtra          map[string]*Kind
	extendKinds          []*Kind
	extendNamespaceExtra map[string]*Kind

	// unveiled tracks mounted prefixes per origin, keyed by resolved
	// directory path or mapping identity.
	unveiled map[any]map[string]bool
}

// NewPack returns an empty pack of the given type.
//
// A nil type is a programmer error and panics.
func NewPack(t *PackType) *Pack {
	if t == nil {
		panic("beet: NewPack called without a pack type")
	}
	p := &Pack{
		Type:                 t,
		CompressionLevel:     -1,
		MergePolicy:          NewMergePolicy(),
		namespaces:           make(map[string]*Namespace),
		extendExtra:          make(map[string]*Kind),
		extendNamespaceExtra: make(map[string]*Kind),
		unveiled:             make(map[any]map[string]bool),
	}
	p.extra = newExtraContainer()
	p.extra.pack = p
	p.finalize()
	return p
}

// Extra returns the pack-level extra files.
func (p *Pack) Extra() *ExtraContainer { return p.extra }

func validNamespaceName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ":/")
}

// Namespace returns the named namespace, creating and binding an empty one
// as needed. Names must be non-empty and free of ":" and "/"; violations
// are programmer errors and panic.
func (p *Pack) Namespace(name string) *Namespace {
	if ns, ok := p.namespaces[name]; ok {
		return ns
	}
	if !validNamespaceName(name) {
		panic(fmt.Sprintf("beet: invalid namespace name %q", name))
	}
	ns := NewNamespace()
	p.namespaces[name] = ns
	p.order = append(p.order, name)
	// Binding an empty namespace cannot fail.
	ns.bind(p, name)
	return ns
}

// LookupNamespace returns the named namespace without creating one.
func (p *Pack) LookupNamespace(name string) (*Namespace, bool) {
	ns, ok := p.namespaces[name]
	return ns, ok
}

// SetNamespace installs a namespace under the given name, rebinding its
// contents.
func (p *Pack) SetNamespace(name string, ns *Namespace) error {
	if !validNamespaceName(name) {
		return &Error{Kind: ErrInvalid, Op: "pack: namespace", Message: fmt.Sprintf("invalid namespace name %q", name)}
	}
	if _, ok := p.namespaces[name]; !ok {
		p.order = append(p.order, name)
	}
	p.namespaces[name] = ns
	return ns.bind(p, name)
}

// DeleteNamespace removes the named namespace, reporting whether it was
// present.
func (p *Pack) DeleteNamespace(name string) bool {
	if _, ok := p.namespaces[name]; !ok {
		return false
	}
	delete(p.namespaces, name)
	p.order = slices.DeleteFunc(p.order, func(s string) bool { return s == name })
	return true
}

// NamespaceNames returns the namespace names in insertion order.
func (p *Pack) NamespaceNames() []string {
	return slices.Clone(p.order)
}

func (p *Pack) namespaceList() []*Namespace {
	out := make([]*Namespace, 0, len(p.order))
	for _, name := range p.order {
		if ns, ok := p.namespaces[name]; ok {
			out = append(out, ns)
		}
	}
	return out
}

// Namespaces iterates over (name, namespace) pairs in insertion order.
func (p *Pack) Namespaces() iter.Seq2[string, *Namespace] {
	return func(yield func(string, *Namespace) bool) {
		for _, name := range p.NamespaceNames() {
			ns, ok := p.namespaces[name]
			if !ok {
				continue
			}
			if !yield(name, ns) {
				return
			}
		}
	}
}

// Files returns the flattened view of the given kind across all namespaces.
func (p *Pack) Files(k *Kind) *NamespaceProxy {
	return &NamespaceProxy{pack: p, kind: k}
}

// Put installs a file under a namespaced key such as
// "minecraft:block/stone", routed by the file's kind.
func (p *Pack) Put(key string, f *File) error {
	return p.Files(f.Kind()).Put(key, f)
}

// Content iterates over every typed file in the pack under namespaced keys,
// kind by kind.
func (p *Pack) Content() iter.Seq2[string, *File] {
	return func(yield func(string, *File) bool) {
		for _, k := range p.resolveRegistry().Kinds() {
			for key, f := range p.Files(k).All() {
				if !yield(key, f) {
					return
				}
			}
		}
	}
}

// IsEmpty reports whether the pack holds no files beyond a bare
// pack.mcmeta.
func (p *Pack) IsEmpty() bool {
	for _, ns := range p.namespaces {
		if !ns.IsEmpty() {
			return false
		}
	}
	switch p.extra.Len() {
	case 0:
		return true
	case 1:
		_, ok := p.extra.Get("pack.mcmeta")
		return ok
	}
	return false
}

// Clear removes every namespace and extra file, then restores the metadata
// defaults.
func (p *Pack) Clear() {
	p.order = nil
	p.namespaces = make(map[string]*Namespace)
	p.extra = newExtraContainer()
	p.extra.pack = p
	p.finalize()
}

// Merge folds other's namespaces and extras into the pack, pruning
// namespaces left empty.
func (p *Pack) Merge(other *Pack) error {
	if err := p.mergeNamespaces(other.Namespaces()); err != nil {
		return err
	}
	if err := p.extra.Merge(other.extra); err != nil {
		return err
	}
	p.pruneNamespaces()
	return nil
}

func (p *Pack) mergeNamespaces(seq iter.Seq2[string, *Namespace]) error {
	for name, ns := range seq {
		if cur, ok := p.namespaces[name]; ok {
			if err := cur.Merge(ns); err != nil {
				return err
			}
		} else if err := p.SetNamespace(name, ns); err != nil {
			return err
		}
	}
	p.pruneNamespaces()
	return nil
}

func (p *Pack) pruneNamespaces() {
	for _, name := range p.NamespaceNames() {
		if ns, ok := p.namespaces[name]; ok && ns.IsEmpty() {
			p.DeleteNamespace(name)
		}
	}
}

// Equal reports structural equality with another pack: same name, extras
// and namespaces, ignoring source references and empty namespaces.
func (p *Pack) Equal(other *Pack) bool {
	if p == other {
		return true
	}
	if other == nil || p.Name != other.Name || !p.extra.Equal(other.extra) {
		return false
	}
	seen := make(map[string]bool)
	for name, ns := range p.namespaces {
		seen[name] = true
		ons, ok := other.namespaces[name]
		if !ok {
			if !ns.IsEmpty() {
				return false
			}
			continue
		}
		if !ns.Equal(ons) {
			return false
		}
	}
	for name, ons := range other.namespaces {
		if !seen[name] && !ons.IsEmpty() {
			return false
		}
	}
	return true
}

// ListFiles iterates over every file in the pack as (flat path, file)
// pairs: pack extras first, then each namespace. Extensions filter by
// suffix for extras and by exact extension for typed files.
func (p *Pack) ListFiles(extensions ...string) iter.Seq2[string, *File] {
	return func(yield func(string, *File) bool) {
		for key, f := range p.extra.All() {
			if len(extensions) > 0 {
				match := false
				for _, ext := range extensions {
					if strings.HasSuffix(key, ext) {
						match = true
						break
					}
				}
				if !match {
					continue
				}
			}
			if !yield(key, f) {
				return
			}
		}
		for name, ns := range p.Namespaces() {
			for path, f := range ns.listFiles(p.Type.Directory, name, extensions) {
				if !yield(path, f) {
					return
				}
			}
		}
	}
}

// ExtendExtra registers an additional pack-level extra file kind.
func (p *Pack) ExtendExtra(filename string, k *Kind) {
	p.extendExtra[filename] = k
}

// ExtendKinds registers additional namespaced asset kinds.
func (p *Pack) ExtendKinds(kinds ...*Kind) {
	p.extendKinds = append(p.extendKinds, kinds...)
}

// ExtendNamespaceExtra registers an additional namespace-level extra file
// kind.
func (p *Pack) ExtendNamespaceExtra(filename string, k *Kind) {
	p.extendNamespaceExtra[filename] = k
}

// Configure copies another pack's extension registries and merge policy
// into this one.
func (p *Pack) Configure(other *Pack) *Pack {
	if other == nil {
		return p
	}
	for name, k := range other.extendExtra {
		p.extendExtra[name] = k
	}
	p.extendKinds = append(p.extendKinds, other.extendKinds...)
	for name, k := range other.extendNamespaceExtra {
		p.extendNamespaceExtra[name] = k
	}
	p.MergePolicy.Extend(other.MergePolicy)
	return p
}

// resolveExtraInfo returns the pack-level extra table with runtime
// extensions applied, filenames sorted for deterministic loads.
func (p *Pack) resolveExtraInfo() []extraKind {
	return mergeExtraInfo(p.Type.Extra, p.extendExtra)
}

// resolveNamespaceExtraInfo returns the namespace-level extra table with
// runtime extensions applied.
func (p *Pack) resolveNamespaceExtraInfo() map[string]*Kind {
	out := make(map[string]*Kind, len(p.Type.NamespaceExtra)+len(p.extendNamespaceExtra))
	for name, k := range p.Type.NamespaceExtra {
		out[name] = k
	}
	for name, k := range p.extendNamespaceExtra {
		out[name] = k
	}
	return out
}

// resolveRegistry returns the scope/extension registry with runtime kind
// extensions applied.
func (p *Pack) resolveRegistry() *Registry {
	r := p.Type.registry()
	for _, k := range p.extendKinds {
		// Later registrations silently lose to built-ins: a kind
		// claiming a taken scope and extension is not registered, and
		// the conflict is not reported.
		r.Add(k)
	}
	return r
}

type extraKind struct {
	name string
	kind *Kind
}

func mergeExtraInfo(base, ext map[string]*Kind) []extraKind {
	merged := make(map[string]*Kind, len(base)+len(ext))
	for name, k := range base {
		merged[name] = k
	}
	for name, k := range ext {
		merged[name] = k
	}
	out := make([]extraKind, 0, len(merged))
	for name, k := range merged {
		out = append(out, extraKind{name: name, kind: k})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Load mounts the whole origin at the pack root, inferring name and
// zipped-ness from archive origins, then restores the metadata defaults.
func (p *Pack) Load(ctx context.Context, origin Origin) error {
	if zo, ok := origin.(*ZipOrigin); ok {
		p.Zipped = true
		if zo.Name() != "" {
			p.Name = strings.TrimSuffix(zo.Name(), ".zip")
		}
	}
	if err := p.Mount(ctx, "", origin); err != nil {
		return err
	}
	p.finalize()
	return nil
}

// LoadPath loads the pack rooted at a directory or zip archive on the
// filesystem. A path that does not exist only primes the pack's name and
// zipped flag for a later save.
func (p *Pack) LoadPath(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &Error{Kind: ErrIO, Op: "pack: load", Message: path, Inner: err}
	}
	p.Path = filepath.Dir(abs)
	base := filepath.Base(abs)

	fi, err := os.Stat(abs)
	switch {
	case err == nil && fi.IsDir():
		p.Zipped = false
		p.Name = base
		if err := p.Mount(ctx, "", DirOrigin(abs)); err != nil {
			return err
		}
	case err == nil:
		zo, err := OpenZip(abs)
		if err != nil {
			return err
		}
		defer zo.Close()
		p.Zipped = true
		p.Name = strings.TrimSuffix(base, ".zip")
		if err := p.Mount(ctx, "", zo); err != nil {
			return err
		}
	default:
		p.Zipped = strings.HasSuffix(base, ".zip")
		p.Name = strings.TrimSuffix(base, ".zip")
	}

	p.finalize()
	return nil
}

// Mount grafts the files reachable under prefix inside the origin onto the
// in-memory model.
func (p *Pack) Mount(ctx context.Context, prefix string, origin Origin) error {
	ctx = zlog.ContextWithValues(ctx, "component", "beet/Pack.Mount", "prefix", prefix)
	zlog.Debug(ctx).Msg("start")
	defer zlog.Debug(ctx).Msg("done")

	var files []mergeEntry
	for _, e := range p.resolveExtraInfo() {
		var sub string
		switch {
		case prefix == "":
			sub = e.name
		case prefix == e.name:
			sub = ""
		case strings.HasPrefix(e.name, prefix+"/"):
			sub = e.name[len(prefix)+1:]
		default:
			continue
		}
		f, err := tryLoadFile(e.kind, origin, sub)
		if err != nil {
			return err
		}
		if f != nil {
			files = append(files, mergeEntry{key: e.name, file: f})
		}
	}
	if err := p.extra.MergeFiles(files); err != nil {
		return err
	}

	scanned, err := scanNamespaces(ctx, p.Type.Directory, p.resolveRegistry(), p.resolveNamespaceExtraInfo(), prefix, origin)
	if err != nil {
		return err
	}
	return p.mergeNamespaces(func(yield func(string, *Namespace) bool) {
		for _, s := range scanned {
			if !yield(s.name, s.ns) {
				return
			}
		}
	})
}

// Unveil lazily mounts the sub-tree at prefix of a pack rooted at a
// filesystem directory. Prefixes already covered by an earlier unveil of
// the same root are not mounted again.
func (p *Pack) Unveil(ctx context.Context, prefix, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return &Error{Kind: ErrIO, Op: "pack: unveil", Message: root, Inner: err}
	}
	if !p.unveil(abs, prefix) {
		return nil
	}
	return p.Mount(ctx, prefix, DirOrigin(filepath.Join(abs, filepath.FromSlash(prefix))))
}

// UnveilMapping is [Pack.Unveil] over an abstract path mapping. Mount
// tracking is keyed by the mapping's identity.
func (p *Pack) UnveilMapping(ctx context.Context, prefix string, m *UnveilMapping) error {
	if !p.unveil(m, prefix) {
		return nil
	}
	return p.Mount(ctx, prefix, m.WithPrefix(prefix))
}

// unveil updates the mounted-prefix tracker, reporting whether the prefix
// still needs mounting.
func (p *Pack) unveil(key any, prefix string) bool {
	mounted, ok := p.unveiled[key]
	if !ok {
		mounted = make(map[string]bool)
		p.unveiled[key] = mounted
	}
	if mounted[prefix] {
		return false
	}
	// within reports whether path is root or lies beneath it.
	within := func(path, root string) bool {
		return root == "" || path == root || strings.HasPrefix(path, root+"/")
	}
	for mnt := range mounted {
		if within(prefix, mnt) {
			return false
		}
	}
	// Descendants are subsumed: forgetting them only avoids redundant
	// future mounts, the files they brought in stay.
	for mnt := range mounted {
		if within(mnt, prefix) {
			delete(mounted, mnt)
		}
	}
	mounted[prefix] = true
	return true
}

// unveiledPrefixes reports the tracked prefixes for an unveil origin key.
func (p *Pack) unveiledPrefixes(key any) []string {
	var out []string
	for prefix := range p.unveiled[key] {
		out = append(out, prefix)
	}
	slices.Sort(out)
	return out
}

// finalize restores the metadata defaults after a load or clear.
func (p *Pack) finalize() {
	if p.PackFormat() == 0 {
		p.SetPackFormat(p.Type.LatestFormat())
	}
	if d := p.Description(); d == nil || d == "" {
		p.SetDescription("")
	}
}
