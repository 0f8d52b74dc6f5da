package beet

// MergeCallback is a user-installed rule consulted when two files collide
// during a merge. Returning [MergeSkip] passes the conflict to the next rule;
// any other result resolves it. The pack is the one being merged into and
// path is the display form of the colliding key.
type MergeCallback func(p *Pack, path string, current, incoming *File) (MergeResult, error)

// MergePolicy holds layered merge rules for pack extras, namespaced files
// and namespace extras.
//
// Rules run in registration order; the first rule not returning [MergeSkip]
// wins. When every rule skips, the file kind's own merge applies, and
// failing that the incoming file overwrites the current one.
type MergePolicy struct {
	Extra          map[string][]MergeCallback
	Namespace      map[*Kind][]MergeCallback
	NamespaceExtra map[string][]MergeCallback
}

// NewMergePolicy returns an empty policy.
func NewMergePolicy() *MergePolicy {
	return &MergePolicy{
		Extra:          make(map[string][]MergeCallback),
		Namespace:      make(map[*Kind][]MergeCallback),
		NamespaceExtra: make(map[string][]MergeCallback),
	}
}

// ExtendExtra adds a rule for merging pack extra files with the given
// filename.
func (mp *MergePolicy) ExtendExtra(filename string, rule MergeCallback) {
	mp.Extra[filename] = append(mp.Extra[filename], rule)
}

// ExtendNamespace adds a rule for merging namespaced files of the given
// kind.
func (mp *MergePolicy) ExtendNamespace(kind *Kind, rule MergeCallback) {
	mp.Namespace[kind] = append(mp.Namespace[kind], rule)
}

// ExtendNamespaceExtra adds a rule for merging namespace extra files with
// the given filename.
func (mp *MergePolicy) ExtendNamespaceExtra(filename string, rule MergeCallback) {
	mp.NamespaceExtra[filename] = append(mp.NamespaceExtra[filename], rule)
}

// Extend appends all of other's rules to the policy, preserving per-key
// registration order.
func (mp *MergePolicy) Extend(other *MergePolicy) {
	if other == nil {
		return
	}
	for key, rules := range other.Extra {
		mp.Extra[key] = append(mp.Extra[key], rules...)
	}
	for key, rules := range other.Namespace {
		mp.Namespace[key] = append(mp.Namespace[key], rules...)
	}
	for key, rules := range other.NamespaceExtra {
		mp.NamespaceExtra[key] = append(mp.NamespaceExtra[key], rules...)
	}
}

// mergeTarget is the container surface the merge loop drives.
type mergeTarget interface {
	lookup(key string) (*File, bool)
	install(key string, f *File) error
	remove(key string)
}

type mergeEntry struct {
	key  string
	file *File
}

// mergeWithRules folds the entries into the target. Rules are resolved per
// key through mapRules, which returns the display path and the callback
// list. A removal on one key does not abort the rest of the merge.
func mergeWithRules(p *Pack, target mergeTarget, entries []mergeEntry, mapRules func(key string) (string, []MergeCallback)) error {
	for _, e := range entries {
		current, ok := target.lookup(e.key)
		if !ok {
			if err := target.install(e.key, e.file); err != nil {
				return err
			}
			continue
		}

		path, rules := e.key, []MergeCallback(nil)
		if mapRules != nil {
			path, rules = mapRules(e.key)
		}

		res := MergeSkip
		for _, rule := range rules {
			r, err := rule(p, path, current, e.file)
			if err != nil {
				return err
			}
			if r != MergeSkip {
				res = r
				break
			}
		}
		if res == MergeSkip {
			r, err := mergeFiles(p, path, current, e.file)
			if err != nil {
				return err
			}
			res = r
		}

		switch res {
		case MergeKeep:
		case MergeReplace:
			if err := target.install(e.key, e.file); err != nil {
				return err
			}
		case MergeRemove:
			target.remove(e.key)
		}
	}
	return nil
}

// mergeFiles applies the kind-level merge contract: the kind's merge when it
// has one, otherwise the incoming file overwrites.
func mergeFiles(p *Pack, path string, current, incoming *File) (MergeResult, error) {
	if current.kind.Merge != nil {
		res, err := current.kind.Merge(p, path, current, incoming)
		if err != nil {
			return MergeSkip, err
		}
		if res == MergeSkip {
			res = MergeReplace
		}
		return res, nil
	}
	return MergeReplace, nil
}
