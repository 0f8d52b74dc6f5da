package beet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/quay/zlog"
)

func TestUnveilDedup(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	p := NewPack(testPackType())
	root := t.TempDir()
	abs, err := filepath.Abs(root)
	if err != nil {
		t.Fatal(err)
	}

	for _, prefix := range []string{"a/b", "a", "a/b/c"} {
		if err := p.Unveil(ctx, prefix, root); err != nil {
			t.Fatal(err)
		}
	}
	got := p.unveiledPrefixes(abs)
	want := []string{"a"}
	if !cmp.Equal(want, got) {
		t.Error(cmp.Diff(want, got))
	}

	// Equal prefixes are a no-op too.
	if err := p.Unveil(ctx, "a", root); err != nil {
		t.Fatal(err)
	}
	if got := p.unveiledPrefixes(abs); !cmp.Equal(want, got) {
		t.Error(cmp.Diff(want, got))
	}
}

func TestUnveilMounts(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	root := t.TempDir()
	write := func(name, content string) {
		t.Helper()
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("data/ns/things/a.json", `{"v":1}`)
	write("data/ns/notes/hello.txt", "hi")

	p := NewPack(testPackType())
	if err := p.Unveil(ctx, "data/ns/things", root); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Files(testThing).Get("ns:a"); !ok {
		t.Error("unveiled sub-tree not mounted")
	}
	if _, ok := p.Files(testNote).Get("ns:hello"); ok {
		t.Error("file outside the unveiled prefix mounted")
	}

	// Widening to an ancestor mounts the rest.
	if err := p.Unveil(ctx, "data", root); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Files(testNote).Get("ns:hello"); !ok {
		t.Error("ancestor unveil did not mount remaining files")
	}
}

func TestUnveilMappingIdentity(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	dir := t.TempDir()
	backing := filepath.Join(dir, "thing.json")
	if err := os.WriteFile(backing, []byte(`{"v":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{"data/ns/things/a.json": backing}

	p := NewPack(testPackType())
	m1 := NewUnveilMapping(files)
	m2 := NewUnveilMapping(files)

	if err := p.UnveilMapping(ctx, "data", m1); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Files(testThing).Get("ns:a"); !ok {
		t.Fatal("mapping not mounted")
	}

	// A distinct mapping over the same table is tracked separately.
	if err := p.UnveilMapping(ctx, "data", m2); err != nil {
		t.Fatal(err)
	}
	if got := p.unveiledPrefixes(m1); !cmp.Equal([]string{"data"}, got) {
		t.Error(cmp.Diff([]string{"data"}, got))
	}
	if got := p.unveiledPrefixes(m2); !cmp.Equal([]string{"data"}, got) {
		t.Error(cmp.Diff([]string{"data"}, got))
	}
}

func TestUnveilMappingView(t *testing.T) {
	dir := t.TempDir()
	backing := filepath.Join(dir, "f")
	if err := os.WriteFile(backing, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewUnveilMapping(map[string]string{
		"data/ns/things/a.json": backing,
		"data/other":            backing,
		"elsewhere":             backing,
	})

	view := m.WithPrefix("data")
	names, err := view.List()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"ns/things/a.json": true, "other": true}
	if len(names) != len(want) {
		t.Fatalf("listed %v", names)
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected name %q", n)
		}
	}

	exact := m.WithPrefix("data/other")
	names, err = exact.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "" {
		t.Errorf("exact-prefix view listed %v, want one empty name", names)
	}
	if _, ok := exact.Pathname(""); !ok {
		t.Error("exact-prefix view cannot resolve the empty name")
	}
}
