package beet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/quay/zlog"
)

func TestContainerOrder(t *testing.T) {
	c := newFileContainer(testThing)
	for _, key := range []string{"b", "a", "c"} {
		if err := c.Put(key, testThing.NewFile(map[string]any{})); err != nil {
			t.Fatal(err)
		}
	}
	if got := c.Keys(); !cmp.Equal([]string{"b", "a", "c"}, got) {
		t.Error(cmp.Diff([]string{"b", "a", "c"}, got))
	}

	c.Delete("a")
	if err := c.Put("a", testThing.NewFile(map[string]any{})); err != nil {
		t.Fatal(err)
	}
	if got := c.Keys(); !cmp.Equal([]string{"b", "c", "a"}, got) {
		t.Error(cmp.Diff([]string{"b", "c", "a"}, got))
	}
}

func TestContainerRebind(t *testing.T) {
	ns := NewNamespace()
	f := testThing.NewFile(map[string]any{})
	if err := ns.Put("a", f); err != nil {
		t.Fatal(err)
	}
	if pack, _ := f.BoundTo(); pack != nil {
		t.Error("file bound before the namespace was attached")
	}

	p := NewPack(testPackType())
	if err := p.SetNamespace("ns", ns); err != nil {
		t.Fatal(err)
	}
	pack, path := f.BoundTo()
	if pack != p || path != "ns:a" {
		t.Errorf("bound to (%p, %q), want (%p, %q)", pack, path, p, "ns:a")
	}

	// Inserting into an attached container binds immediately.
	g := testThing.NewFile(map[string]any{})
	if err := ns.Put("b", g); err != nil {
		t.Fatal(err)
	}
	if _, path := g.BoundTo(); path != "ns:b" {
		t.Errorf("late insert bound to %q", path)
	}
}

func TestBindDrop(t *testing.T) {
	vetoed := &Kind{
		Name:      "vetoed",
		Scope:     []string{"things"},
		Extension: ".veto",
		Codec:     Text,
		OnBind: func(_ *Pack, f *File, _ string) error {
			if f.Aux() == true {
				return ErrDrop
			}
			return nil
		},
	}

	p := NewPack(testPackType())
	keep := vetoed.NewFile("keep")
	if err := p.Put("ns:keep", keep); err != nil {
		t.Fatal(err)
	}
	drop := vetoed.NewFile("drop")
	drop.SetAux(true)
	if err := p.Put("ns:drop", drop); err != nil {
		t.Fatal(err)
	}

	c, _ := p.Namespace("ns").Lookup(vetoed)
	if got := c.Keys(); !cmp.Equal([]string{"keep"}, got) {
		t.Error(cmp.Diff([]string{"keep"}, got))
	}
}

func TestGenerateTree(t *testing.T) {
	c := newFileContainer(testThing)
	for _, key := range []string{"block/stone", "block/slab/top", "item"} {
		if err := c.Put(key, testThing.NewFile(map[string]any{})); err != nil {
			t.Fatal(err)
		}
	}

	tree := c.GenerateTree("")
	if _, ok := tree.Files["item"]; !ok {
		t.Error("missing root file item")
	}
	block, ok := tree.Dirs["block"]
	if !ok {
		t.Fatal("missing dir block")
	}
	if _, ok := block.Files["stone"]; !ok {
		t.Error("missing block/stone")
	}
	if _, ok := block.Dirs["slab"].Files["top"]; !ok {
		t.Error("missing block/slab/top")
	}

	sub := c.GenerateTree("block")
	if _, ok := sub.Files["stone"]; !ok {
		t.Error("rooted tree missing stone")
	}
	if _, ok := sub.Files["item"]; ok {
		t.Error("rooted tree leaked files outside the root")
	}
}

func TestScanExtraPrecedence(t *testing.T) {
	// "things/registry.json" is both a registered namespace extra and a
	// valid (scope, extension) classification; the extra wins.
	ctx := zlog.Test(context.Background(), t)
	root := t.TempDir()
	p := filepath.Join(root, "data", "ns", "things")
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(p, "registry.json"), []byte(`{"entries":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	pk := NewPack(testPackType())
	if err := pk.Mount(ctx, "", DirOrigin(root)); err != nil {
		t.Fatal(err)
	}
	ns, ok := pk.LookupNamespace("ns")
	if !ok {
		t.Fatal("missing namespace")
	}
	if _, ok := ns.Extra().Get("things/registry.json"); !ok {
		t.Error("extra filename not routed to the extra container")
	}
	if _, ok := pk.Files(testThing).Get("ns:registry"); ok {
		t.Error("extra filename classified as a typed file")
	}
}

func TestScanDeepestScope(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	root := t.TempDir()
	dir := filepath.Join(root, "data", "ns", "things", "deep")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	pk := NewPack(testPackType())
	if err := pk.Mount(ctx, "", DirOrigin(root)); err != nil {
		t.Fatal(err)
	}
	// Both ("things","deep")/.json and ("things")/.json could classify
	// the path; stripping starts at the deepest scope.
	if _, ok := pk.Files(testDeepThing).Get("ns:a"); !ok {
		t.Error("deepest scope did not win")
	}
	if _, ok := pk.Files(testThing).Get("ns:deep/a"); ok {
		t.Error("file also classified under the shallower scope")
	}
}

func TestScanPrefixOutsideDirectory(t *testing.T) {
	ctx := zlog.Test(context.Background(), t)
	root := t.TempDir()
	pk := NewPack(testPackType())
	if err := pk.Mount(ctx, "elsewhere", DirOrigin(root)); err != nil {
		t.Fatal(err)
	}
	if got := len(pk.NamespaceNames()); got != 0 {
		t.Errorf("mount outside the pack directory produced %d namespaces", got)
	}
}
