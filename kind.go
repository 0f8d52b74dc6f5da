package beet

import (
	"fmt"
	"strings"
)

// MergeResult is the outcome of a merge step for a single entry.
type MergeResult int

const (
	// MergeSkip means the callback did not handle the conflict; the next
	// rule (or the kind's own merge) runs. A [MergeFunc] attached to a
	// [Kind] must not return MergeSkip; it is treated as MergeReplace.
	MergeSkip MergeResult = iota
	// MergeKeep means the incoming value was folded into the current one
	// (or deliberately ignored); the current entry stays.
	MergeKeep
	// MergeReplace means the incoming value takes the place of the
	// current one.
	MergeReplace
	// MergeRemove means the entry is deleted from the container.
	MergeRemove
)

// String implements fmt.Stringer.
func (r MergeResult) String() string {
	switch r {
	case MergeSkip:
		return "skip"
	case MergeKeep:
		return "keep"
	case MergeReplace:
		return "replace"
	case MergeRemove:
		return "remove"
	}
	return fmt.Sprintf("MergeResult(%d)", int(r))
}

// MergeFunc resolves a conflict between two files stored under the same path.
// The path is the display form of the key, e.g. "minecraft:block/stone".
type MergeFunc func(p *Pack, path string, current, incoming *File) (MergeResult, error)

// BindFunc runs when a file is installed under a pack. Returning [ErrDrop]
// removes the entry; any other error aborts the installation.
type BindFunc func(p *Pack, f *File, path string) error

// Kind is the type tag for pack files. A Kind declares where files of the
// type live beneath a namespace (scope and extension), how their bytes are
// coded, and optional merge and bind behavior.
//
// Kind values are compared by identity: containers, registries and merge
// policies all key on the *Kind pointer.
type Kind struct {
	// Name identifies the kind in logs and error messages, e.g. "model".
	Name string
	// Scope is the directory path beneath the namespace, e.g.
	// {"shaders", "post"}. Extra kinds (keyed by exact filename rather
	// than placement) leave it nil.
	Scope []string
	// Extension is the filename suffix including the leading dot. It may
	// contain several dots, e.g. ".png.mcmeta".
	Extension string
	// Codec translates between bytes and content.
	Codec Codec
	// Default, if set, produces a fresh content value for files read
	// before any content or source was attached.
	Default func() any
	// Merge, if set, overrides the default overwrite behavior when two
	// files of this kind collide during a merge.
	Merge MergeFunc
	// OnBind, if set, runs after a file of this kind is installed under a
	// pack.
	OnBind BindFunc
}

// String implements fmt.Stringer.
func (k *Kind) String() string { return k.Name }

// NewFile returns an unbound file of this kind holding the given content.
func (k *Kind) NewFile(content any) *File {
	return &File{kind: k, content: content}
}

type scopeExt struct {
	scope string // scope segments joined with "/"
	ext   string
}

// Registry resolves (scope, extension) pairs to kinds during scanning.
type Registry struct {
	kinds []*Kind
	byKey map[scopeExt]*Kind
}

// NewRegistry builds a registry from the given kinds.
//
// Two kinds sharing both scope and extension is a configuration error,
// reported as [ErrInvalid].
func NewRegistry(kinds ...*Kind) (*Registry, error) {
	r := &Registry{byKey: make(map[scopeExt]*Kind, len(kinds))}
	for _, k := range kinds {
		if err := r.Add(k); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add registers a kind. Reports [ErrInvalid] when another kind already
// claims the same scope and extension.
func (r *Registry) Add(k *Kind) error {
	key := scopeExt{scope: strings.Join(k.Scope, "/"), ext: k.Extension}
	if prev, ok := r.byKey[key]; ok {
		if prev == k {
			return nil
		}
		return &Error{
			Kind:    ErrInvalid,
			Op:      "registry: add",
			Message: fmt.Sprintf("%q and %q both claim scope %q extension %q", prev.Name, k.Name, key.scope, key.ext),
		}
	}
	r.byKey[key] = k
	r.kinds = append(r.kinds, k)
	return nil
}

// Lookup returns the kind registered under the exact scope and extension, or
// nil.
func (r *Registry) Lookup(scope []string, ext string) *Kind {
	return r.byKey[scopeExt{scope: strings.Join(scope, "/"), ext: ext}]
}

// Kinds returns the registered kinds in registration order.
func (r *Registry) Kinds() []*Kind {
	return r.kinds
}

// extensionCandidates returns every suffix of the basename starting at a
// dot, longest first. "stone.png.mcmeta" yields ".png.mcmeta" then ".mcmeta".
func extensionCandidates(basename string) []string {
	var exts []string
	for i, c := range basename {
		if c == '.' && i > 0 {
			exts = append(exts, basename[i:])
		}
	}
	return exts
}
