package beet

// Fixture kinds for a minimal pack family rooted at "data".
var (
	testThing = &Kind{
		Name:      "thing",
		Scope:     []string{"things"},
		Extension: ".json",
		Codec:     JSON,
	}
	testThingMeta = &Kind{
		Name:      "thing meta",
		Scope:     []string{"things"},
		Extension: ".json.meta",
		Codec:     JSON,
	}
	testNote = &Kind{
		Name:      "note",
		Scope:     []string{"notes"},
		Extension: ".txt",
		Codec:     Text,
	}
	testDeepThing = &Kind{
		Name:      "deep thing",
		Scope:     []string{"things", "deep"},
		Extension: ".json",
		Codec:     JSON,
	}
	testRegistry = &Kind{
		Name:  "registry",
		Codec: JSON,
	}
)

func testPackType() *PackType {
	return &PackType{
		Directory:   "data",
		DefaultName: "untitled_pack",
		Extra: map[string]*Kind{
			"pack.mcmeta": McmetaKind,
			"pack.png":    IconKind,
		},
		NamespaceExtra: map[string]*Kind{
			"things/registry.json": testRegistry,
		},
		Kinds: []*Kind{testThing, testThingMeta, testNote, testDeepThing},
		FormatRegistry: map[Version]int{
			{Major: 1, Minor: 19}: 9,
		},
		LatestVersion: Version{Major: 1, Minor: 19},
	}
}
