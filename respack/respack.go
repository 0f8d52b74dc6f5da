// Package respack instantiates the pack model for Minecraft resource
// packs: the "assets" directory convention, the built-in asset kinds and
// their merge behavior, and the pack-format registry.
package respack

import (
	"context"

	"github.com/vdvman1/beet"
)

// Built-in asset kinds.
var (
	Blockstate = &beet.Kind{
		Name:      "blockstate",
		Scope:     []string{"blockstates"},
		Extension: ".json",
		Codec:     beet.JSON,
	}
	Model = &beet.Kind{
		Name:      "model",
		Scope:     []string{"models"},
		Extension: ".json",
		Codec:     beet.JSON,
		Merge:     mergeModel,
	}
	Language = &beet.Kind{
		Name:      "language",
		Scope:     []string{"lang"},
		Extension: ".json",
		Codec:     beet.JSON,
		Default:   func() any { return map[string]any{} },
		Merge:     mergeLanguage,
	}
	Font = &beet.Kind{
		Name:      "font",
		Scope:     []string{"font"},
		Extension: ".json",
		Codec:     beet.JSON,
		Merge:     mergeFont,
	}
	GlyphSizes = &beet.Kind{
		Name:      "glyph sizes",
		Scope:     []string{"font"},
		Extension: ".bin",
		Codec:     beet.Binary,
	}
	TrueTypeFont = &beet.Kind{
		Name:      "true type font",
		Scope:     []string{"font"},
		Extension: ".ttf",
		Codec:     beet.Binary,
	}
	ShaderPost = &beet.Kind{
		Name:      "shader post",
		Scope:     []string{"shaders", "post"},
		Extension: ".json",
		Codec:     beet.JSON,
	}
	Shader = &beet.Kind{
		Name:      "shader",
		Scope:     []string{"shaders"},
		Extension: ".json",
		Codec:     beet.JSON,
	}
	FragmentShader = &beet.Kind{
		Name:      "fragment shader",
		Scope:     []string{"shaders"},
		Extension: ".fsh",
		Codec:     beet.Text,
	}
	VertexShader = &beet.Kind{
		Name:      "vertex shader",
		Scope:     []string{"shaders"},
		Extension: ".vsh",
		Codec:     beet.Text,
	}
	GlslShader = &beet.Kind{
		Name:      "glsl shader",
		Scope:     []string{"shaders"},
		Extension: ".glsl",
		Codec:     beet.Text,
	}
	Text = &beet.Kind{
		Name:      "text",
		Scope:     []string{"texts"},
		Extension: ".txt",
		Codec:     beet.Text,
	}
	TextureMcmeta = &beet.Kind{
		Name:      "texture mcmeta",
		Scope:     []string{"textures"},
		Extension: ".png.mcmeta",
		Codec:     beet.JSON,
	}
	Texture = &beet.Kind{
		Name:      "texture",
		Scope:     []string{"textures"},
		Extension: ".png",
		Codec:     beet.PNG,
		OnBind:    bindTexture,
	}
	Sound = &beet.Kind{
		Name:      "sound",
		Scope:     []string{"sounds"},
		Extension: ".ogg",
		Codec:     beet.Binary,
		OnBind:    bindSound,
	}
	Particle = &beet.Kind{
		Name:      "particle",
		Scope:     []string{"particles"},
		Extension: ".json",
		Codec:     beet.JSON,
	}
	Atlas = &beet.Kind{
		Name:      "atlas",
		Scope:     []string{"atlases"},
		Extension: ".json",
		Codec:     beet.JSON,
		Default:   func() any { return map[string]any{"sources": []any{}} },
		Merge:     mergeAtlas,
	}

	// SoundConfig is the namespace-level "sounds.json" registry.
	SoundConfig = &beet.Kind{
		Name:  "sound config",
		Codec: beet.JSON,
		Merge: mergeSoundConfig,
	}
)

// Type describes resource packs.
var Type = &beet.PackType{
	Directory:   "assets",
	DefaultName: "untitled_resource_pack",
	Extra: map[string]*beet.Kind{
		"pack.mcmeta": beet.McmetaKind,
		"pack.png":    beet.IconKind,
	},
	NamespaceExtra: map[string]*beet.Kind{
		"sounds.json": SoundConfig,
	},
	Kinds: []*beet.Kind{
		Blockstate,
		Model,
		Language,
		Font,
		GlyphSizes,
		TrueTypeFont,
		ShaderPost,
		Shader,
		FragmentShader,
		VertexShader,
		GlslShader,
		Text,
		TextureMcmeta,
		Texture,
		Sound,
		Particle,
		Atlas,
	},
	FormatRegistry: map[beet.Version]int{
		{Major: 1, Minor: 6}:  1,
		{Major: 1, Minor: 7}:  1,
		{Major: 1, Minor: 8}:  1,
		{Major: 1, Minor: 9}:  2,
		{Major: 1, Minor: 10}: 2,
		{Major: 1, Minor: 11}: 3,
		{Major: 1, Minor: 12}: 3,
		{Major: 1, Minor: 13}: 4,
		{Major: 1, Minor: 14}: 4,
		{Major: 1, Minor: 15}: 5,
		{Major: 1, Minor: 16}: 6,
		{Major: 1, Minor: 17}: 7,
		{Major: 1, Minor: 18}: 8,
		{Major: 1, Minor: 19}: 9,
	},
	LatestVersion: beet.Version{Major: 1, Minor: 19},
}

// New returns an empty resource pack.
func New() *beet.Pack {
	return beet.NewPack(Type)
}

// Load reads the resource pack rooted at a directory or zip archive.
func Load(ctx context.Context, path string) (*beet.Pack, error) {
	p := New()
	if err := p.LoadPath(ctx, path); err != nil {
		return nil, err
	}
	return p, nil
}

func ensureMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	v := make(map[string]any)
	m[key] = v
	return v
}

func ensureList(m map[string]any, key string) []any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	v := []any{}
	m[key] = v
	return v
}

func listContains(list []any, item any) bool {
	for _, e := range list {
		if beet.JSONEqual(e, item) {
			return true
		}
	}
	return false
}

// mergeModel replaces the model with the incoming one but unions the
// "overrides" list: entries whose predicate matches an existing one take
// the incoming model reference, the rest append.
func mergeModel(_ *beet.Pack, _ string, current, incoming *beet.File) (beet.MergeResult, error) {
	cur, err := current.JSON()
	if err != nil {
		return beet.MergeSkip, err
	}
	inc, err := incoming.JSON()
	if err != nil {
		return beet.MergeSkip, err
	}

	overrides, _ := cur["overrides"].([]any)
	merged, _ := beet.DeepCopy(overrides).([]any)

	incOverrides, _ := inc["overrides"].([]any)
	for _, o := range incOverrides {
		oo, _ := o.(map[string]any)
		matched := false
		for i, existing := range overrides {
			em, _ := existing.(map[string]any)
			if em != nil && oo != nil && beet.JSONEqual(em["predicate"], oo["predicate"]) {
				if mm, ok := merged[i].(map[string]any); ok {
					mm["model"] = oo["model"]
				}
				matched = true
				break
			}
		}
		if !matched {
			merged = append(merged, beet.DeepCopy(o))
		}
	}

	next, _ := beet.DeepCopy(inc).(map[string]any)
	if len(merged) > 0 {
		next["overrides"] = merged
	}
	current.SetContent(next)
	return beet.MergeKeep, nil
}

// mergeLanguage folds translations key by key, the incoming side winning.
func mergeLanguage(_ *beet.Pack, _ string, current, incoming *beet.File) (beet.MergeResult, error) {
	cur, err := current.JSON()
	if err != nil {
		return beet.MergeSkip, err
	}
	inc, err := incoming.JSON()
	if err != nil {
		return beet.MergeSkip, err
	}
	for key, value := range inc {
		cur[key] = beet.DeepCopy(value)
	}
	return beet.MergeKeep, nil
}

// mergeFont appends all incoming providers; duplicates are allowed.
func mergeFont(_ *beet.Pack, _ string, current, incoming *beet.File) (beet.MergeResult, error) {
	cur, err := current.JSON()
	if err != nil {
		return beet.MergeSkip, err
	}
	inc, err := incoming.JSON()
	if err != nil {
		return beet.MergeSkip, err
	}
	providers := ensureList(cur, "providers")
	incProviders, _ := inc["providers"].([]any)
	for _, p := range incProviders {
		providers = append(providers, beet.DeepCopy(p))
	}
	cur["providers"] = providers
	return beet.MergeKeep, nil
}

// mergeAtlas appends incoming sources, skipping structural duplicates.
func mergeAtlas(_ *beet.Pack, _ string, current, incoming *beet.File) (beet.MergeResult, error) {
	cur, err := current.JSON()
	if err != nil {
		return beet.MergeSkip, err
	}
	inc, err := incoming.JSON()
	if err != nil {
		return beet.MergeSkip, err
	}
	sources := ensureList(cur, "sources")
	incSources, _ := inc["sources"].([]any)
	for _, s := range incSources {
		if !listContains(sources, s) {
			sources = append(sources, beet.DeepCopy(s))
		}
	}
	cur["sources"] = sources
	return beet.MergeKeep, nil
}

// AtlasAppend appends the sources of other to the atlas file, skipping
// structural duplicates.
func AtlasAppend(atlas, other *beet.File) error {
	_, err := mergeAtlas(nil, "", atlas, other)
	return err
}

// AtlasPrepend prepends the sources of other to the atlas file, skipping
// structural duplicates.
func AtlasPrepend(atlas, other *beet.File) error {
	cur, err := atlas.JSON()
	if err != nil {
		return err
	}
	inc, err := other.JSON()
	if err != nil {
		return err
	}
	sources := ensureList(cur, "sources")
	incSources, _ := inc["sources"].([]any)
	for i := len(incSources) - 1; i >= 0; i-- {
		s := incSources[i]
		if !listContains(sources, s) {
			sources = append([]any{beet.DeepCopy(s)}, sources...)
		}
	}
	cur["sources"] = sources
	return nil
}

// AtlasAdd adds a single source entry unless an equal one is present.
func AtlasAdd(atlas *beet.File, value map[string]any) error {
	cur, err := atlas.JSON()
	if err != nil {
		return err
	}
	sources := ensureList(cur, "sources")
	if !listContains(sources, value) {
		cur["sources"] = append(sources, value)
	}
	return nil
}

// AtlasRemove removes the first source entry structurally equal to value.
func AtlasRemove(atlas *beet.File, value map[string]any) error {
	cur, err := atlas.JSON()
	if err != nil {
		return err
	}
	sources := ensureList(cur, "sources")
	for i, e := range sources {
		if beet.JSONEqual(e, value) {
			cur["sources"] = append(sources[:i], sources[i+1:]...)
			return nil
		}
	}
	return nil
}

// mergeSoundConfig folds sound events: an incoming event with
// "replace" overwrites wholesale, otherwise sounds union by structural
// equality and a non-empty subtitle wins.
func mergeSoundConfig(_ *beet.Pack, _ string, current, incoming *beet.File) (beet.MergeResult, error) {
	cur, err := current.JSON()
	if err != nil {
		return beet.MergeSkip, err
	}
	inc, err := incoming.JSON()
	if err != nil {
		return beet.MergeSkip, err
	}
	for key, value := range inc {
		otherEvent, _ := value.(map[string]any)
		if otherEvent == nil {
			continue
		}
		if replace, _ := otherEvent["replace"].(bool); replace {
			cur[key] = beet.DeepCopy(otherEvent)
			continue
		}
		event := ensureMap(cur, key)
		if subtitle, _ := otherEvent["subtitle"].(string); subtitle != "" {
			event["subtitle"] = subtitle
		}
		sounds := ensureList(event, "sounds")
		incSounds, _ := otherEvent["sounds"].([]any)
		for _, s := range incSounds {
			if !listContains(sounds, s) {
				sounds = append(sounds, beet.DeepCopy(s))
			}
		}
		event["sounds"] = sounds
	}
	return beet.MergeKeep, nil
}

// bindTexture installs the sibling mcmeta file for textures carrying an
// attached mcmeta object.
func bindTexture(p *beet.Pack, f *beet.File, path string) error {
	mcmeta, _ := f.Aux().(map[string]any)
	if mcmeta == nil {
		return nil
	}
	m, _ := beet.DeepCopy(mcmeta).(map[string]any)
	return p.Files(TextureMcmeta).Put(path, TextureMcmeta.NewFile(m))
}
