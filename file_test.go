package beet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFileDefault(t *testing.T) {
	counted := 0
	kind := &Kind{
		Name:  "counted",
		Codec: JSON,
		Default: func() any {
			counted++
			return map[string]any{}
		},
	}

	f := kind.NewFile(nil)
	a, err := f.Content()
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Content()
	if err != nil {
		t.Fatal(err)
	}
	if counted != 1 {
		t.Errorf("default constructed %d times, want 1", counted)
	}
	a.(map[string]any)["x"] = 1
	if got := b.(map[string]any)["x"]; got != 1 {
		t.Error("repeated reads did not observe the materialized default")
	}

	g := kind.NewFile(nil)
	if _, err := g.Content(); err != nil {
		t.Fatal(err)
	}
	if v, _ := g.Content(); v.(map[string]any)["x"] == 1 {
		t.Error("default shared between files")
	}
}

func TestFileNoContent(t *testing.T) {
	f := testThing.NewFile(nil)
	_, err := f.Content()
	t.Logf("error: %v", err)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("got %v, want invalid", err)
	}
}

func TestFileSerializedStable(t *testing.T) {
	f := testThing.NewFile(map[string]any{"b": 2, "a": 1})
	first, err := f.Serialized()
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.Serialized()
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(first, second) {
		t.Error("serialization not stable for equal content")
	}
}

func TestLoadFileLazySource(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.json"), []byte(`{"v":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := loadFile(testThing, DirOrigin(root), "a.json")
	if err != nil {
		t.Fatal(err)
	}
	src := f.Source()
	if src == nil || src.Path != "a.json" {
		t.Fatalf("source ref: %+v", src)
	}
	p, err := f.EnsureSourcePath()
	if err != nil {
		t.Fatal(err)
	}
	if _, serr := os.Stat(p); serr != nil {
		t.Errorf("source path unusable: %v", serr)
	}
}

func TestEnsureSourcePathSpools(t *testing.T) {
	f := testNote.NewFile("spool me")
	p, err := f.EnsureSourcePath()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(p) })
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "spool me" {
		t.Errorf("spooled %q", b)
	}

	again, err := f.EnsureSourcePath()
	if err != nil {
		t.Fatal(err)
	}
	if again != p {
		t.Error("spooled twice for the same file")
	}
}

func TestTryLoadFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "bad.json"), []byte(`nope`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("Missing", func(t *testing.T) {
		f, err := tryLoadFile(testThing, DirOrigin(root), "absent.json")
		if err != nil || f != nil {
			t.Errorf("got (%v, %v), want (nil, nil)", f, err)
		}
	})
	t.Run("Malformed", func(t *testing.T) {
		_, err := tryLoadFile(testThing, DirOrigin(root), "bad.json")
		t.Logf("error: %v", err)
		if !errors.Is(err, ErrFormat) {
			t.Errorf("got %v, want format error", err)
		}
	})
}

func TestFileEqualIgnoresSource(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.json"), []byte(`{"v":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	loaded, err := loadFile(testThing, DirOrigin(root), "a.json")
	if err != nil {
		t.Fatal(err)
	}
	built := testThing.NewFile(map[string]any{"v": 1})
	if !loaded.Equal(built) || !built.Equal(loaded) {
		t.Error("equal content with different provenance compared unequal")
	}
}
