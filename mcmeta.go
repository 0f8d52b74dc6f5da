package beet

// McmetaKind is the kind of the "pack.mcmeta" metadata file.
//
// Merging folds the incoming object key by key: "filter" contributes its
// block entries, skipping structural duplicates; every other key
// overwrites.
var McmetaKind = &Kind{
	Name:    "mcmeta",
	Codec:   JSON,
	Default: func() any { return map[string]any{} },
	Merge:   mergeMcmeta,
}

// IconKind is the kind of the optional "pack.png" icon.
var IconKind = &Kind{
	Name:  "pack icon",
	Codec: PNG,
}

func mergeMcmeta(_ *Pack, _ string, current, incoming *File) (MergeResult, error) {
	cur, err := current.JSON()
	if err != nil {
		return MergeSkip, err
	}
	inc, err := incoming.JSON()
	if err != nil {
		return MergeSkip, err
	}
	for key, value := range inc {
		if key == "filter" {
			block := getSlice(getMap(cur, "filter"), "block")
			if vm, ok := value.(map[string]any); ok {
				for _, item := range getSlice(vm, "block") {
					if !containsEqual(block, item) {
						block = append(block, item)
					}
				}
			}
			getMap(cur, "filter")["block"] = block
			continue
		}
		cur[key] = DeepCopy(value)
	}
	return MergeKeep, nil
}

func containsEqual(list []any, item any) bool {
	for _, e := range list {
		if JSONEqual(e, item) {
			return true
		}
	}
	return false
}

// Mcmeta returns the pack.mcmeta file, installing an empty one as needed.
func (p *Pack) Mcmeta() *File {
	if f, ok := p.extra.Get("pack.mcmeta"); ok {
		return f
	}
	kind := McmetaKind
	if k, ok := p.Type.Extra["pack.mcmeta"]; ok {
		kind = k
	}
	f := kind.NewFile(nil)
	// Binding metadata has no side effects.
	p.extra.Put("pack.mcmeta", f)
	return f
}

// mcmetaJSON returns the decoded pack.mcmeta object, or an empty map when
// the content is unreadable.
func (p *Pack) mcmetaJSON() map[string]any {
	m, err := p.Mcmeta().JSON()
	if err != nil {
		return map[string]any{}
	}
	return m
}

// Icon returns the pack.png file, if present.
func (p *Pack) Icon() (*File, bool) {
	return p.extra.Get("pack.png")
}

// SetIcon installs the pack.png file.
func (p *Pack) SetIcon(f *File) error {
	return p.extra.Put("pack.png", f)
}

// PackFormat returns the "pack.pack_format" value, zero when unset.
func (p *Pack) PackFormat() int {
	pack, ok := p.mcmetaJSON()["pack"].(map[string]any)
	if !ok {
		return 0
	}
	n, _ := asInt(pack["pack_format"])
	return n
}

// SetPackFormat sets "pack.pack_format".
func (p *Pack) SetPackFormat(format int) {
	getMap(p.mcmetaJSON(), "pack")["pack_format"] = format
}

// Description returns the "pack.description" text component, nil when
// unset.
func (p *Pack) Description() any {
	pack, ok := p.mcmetaJSON()["pack"].(map[string]any)
	if !ok {
		return nil
	}
	return pack["description"]
}

// SetDescription sets "pack.description". Text components may be plain
// strings or structured JSON.
func (p *Pack) SetDescription(description any) {
	getMap(p.mcmetaJSON(), "pack")["description"] = description
}

// Filter returns the "filter" object, materializing an empty block list as
// needed.
func (p *Pack) Filter() map[string]any {
	filter := getMap(p.mcmetaJSON(), "filter")
	getSlice(filter, "block")
	return filter
}

// LanguageConfig returns the "language" object of pack.mcmeta,
// materializing it as needed.
func (p *Pack) LanguageConfig() map[string]any {
	return getMap(p.mcmetaJSON(), "language")
}
