package beet_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vdvman1/beet"
	"github.com/vdvman1/beet/respack"
)

func mustPut(t *testing.T, p *beet.Pack, key string, f *beet.File) {
	t.Helper()
	if err := p.Put(key, f); err != nil {
		t.Fatal(err)
	}
}

func TestMergeMcmetaFilter(t *testing.T) {
	a := respack.New()
	a.Mcmeta().SetContent(map[string]any{
		"pack":   map[string]any{"pack_format": 9, "description": ""},
		"filter": map[string]any{"block": []any{map[string]any{"namespace": "mc"}}},
	})
	b := respack.New()
	b.Mcmeta().SetContent(map[string]any{
		"pack": map[string]any{"pack_format": 9, "description": ""},
		"filter": map[string]any{"block": []any{
			map[string]any{"namespace": "mc"},
			map[string]any{"path": "models"},
		}},
	})
	// b also carries a namespaced file, merged alongside the metadata.
	mustPut(t, b, "mc:thing", respack.Text.NewFile("x"))

	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	block := a.Filter()["block"]
	want := []any{
		map[string]any{"namespace": "mc"},
		map[string]any{"path": "models"},
	}
	if !cmp.Equal(want, block) {
		t.Error(cmp.Diff(want, block))
	}
}

func TestMergeOverwrite(t *testing.T) {
	// Kinds without their own merge behavior resolve conflicts by
	// overwriting with the incoming file.
	a := respack.New()
	mustPut(t, a, "mc:notes", respack.Text.NewFile("old"))
	b := respack.New()
	mustPut(t, b, "mc:notes", respack.Text.NewFile("new"))

	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	f, ok := a.Files(respack.Text).Get("mc:notes")
	if !ok {
		t.Fatal("missing mc:notes")
	}
	got, err := f.Content()
	if err != nil {
		t.Fatal(err)
	}
	if got != "new" {
		t.Errorf("got %q, want %q", got, "new")
	}
}

func TestMergeIdempotent(t *testing.T) {
	build := func() *beet.Pack {
		p := respack.New()
		p.Name = "p"
		mustPut(t, p, "mc:item/stick", respack.Model.NewFile(map[string]any{"parent": "item/generated"}))
		mustPut(t, p, "mc:en_us", respack.Language.NewFile(map[string]any{"stone": "Stone"}))
		return p
	}
	a, b := build(), build()
	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if want := build(); !a.Equal(want) {
		t.Error("merging an equal pack changed the result")
	}
}

func TestMergePolicyCallback(t *testing.T) {
	t.Run("Remove", func(t *testing.T) {
		a := respack.New()
		mustPut(t, a, "mc:item/stick", respack.Model.NewFile(map[string]any{}))
		a.MergePolicy.ExtendNamespace(respack.Model, func(_ *beet.Pack, _ string, _, _ *beet.File) (beet.MergeResult, error) {
			return beet.MergeRemove, nil
		})

		b := respack.New()
		mustPut(t, b, "mc:item/stick", respack.Model.NewFile(map[string]any{}))

		if err := a.Merge(b); err != nil {
			t.Fatal(err)
		}
		if _, ok := a.Files(respack.Model).Get("mc:item/stick"); ok {
			t.Error("entry not removed")
		}
		// Removing the only file leaves nothing; the namespace is
		// pruned along with its empty container.
		if _, ok := a.LookupNamespace("mc"); ok {
			t.Error("empty namespace not pruned")
		}
	})

	t.Run("Order", func(t *testing.T) {
		var calls []string
		rule := func(name string, res beet.MergeResult) beet.MergeCallback {
			return func(_ *beet.Pack, _ string, _, _ *beet.File) (beet.MergeResult, error) {
				calls = append(calls, name)
				return res, nil
			}
		}
		a := respack.New()
		mustPut(t, a, "mc:notes", respack.Text.NewFile("old"))
		a.MergePolicy.ExtendNamespace(respack.Text, rule("first", beet.MergeSkip))
		a.MergePolicy.ExtendNamespace(respack.Text, rule("second", beet.MergeKeep))
		a.MergePolicy.ExtendNamespace(respack.Text, rule("third", beet.MergeKeep))

		b := respack.New()
		mustPut(t, b, "mc:notes", respack.Text.NewFile("new"))

		if err := a.Merge(b); err != nil {
			t.Fatal(err)
		}
		want := []string{"first", "second"}
		if !cmp.Equal(want, calls) {
			t.Error(cmp.Diff(want, calls))
		}
		f, _ := a.Files(respack.Text).Get("mc:notes")
		if got, _ := f.Content(); got != "old" {
			t.Errorf("handled conflict still overwrote: got %q", got)
		}
	})

	t.Run("SkipFallsThrough", func(t *testing.T) {
		a := respack.New()
		mustPut(t, a, "mc:notes", respack.Text.NewFile("old"))
		a.MergePolicy.ExtendNamespace(respack.Text, func(_ *beet.Pack, _ string, _, _ *beet.File) (beet.MergeResult, error) {
			return beet.MergeSkip, nil
		})

		b := respack.New()
		mustPut(t, b, "mc:notes", respack.Text.NewFile("new"))

		if err := a.Merge(b); err != nil {
			t.Fatal(err)
		}
		f, _ := a.Files(respack.Text).Get("mc:notes")
		if got, _ := f.Content(); got != "new" {
			t.Errorf("skipped conflict should fall back to overwrite: got %q", got)
		}
	})

	t.Run("PathForm", func(t *testing.T) {
		var got string
		a := respack.New()
		mustPut(t, a, "mc:item/stick", respack.Model.NewFile(map[string]any{}))
		a.MergePolicy.ExtendNamespace(respack.Model, func(_ *beet.Pack, path string, _, _ *beet.File) (beet.MergeResult, error) {
			got = path
			return beet.MergeKeep, nil
		})

		b := respack.New()
		mustPut(t, b, "mc:item/stick", respack.Model.NewFile(map[string]any{}))

		if err := a.Merge(b); err != nil {
			t.Fatal(err)
		}
		if got != "mc:item/stick" {
			t.Errorf("callback path: got %q", got)
		}
	})
}

func TestMergeNewNamespaceMoves(t *testing.T) {
	a := respack.New()
	b := respack.New()
	mustPut(t, b, "other:block/dirt", respack.Blockstate.NewFile(map[string]any{}))

	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	f, ok := a.Files(respack.Blockstate).Get("other:block/dirt")
	if !ok {
		t.Fatal("namespace not merged")
	}
	pack, path := f.BoundTo()
	if pack != a || path != "other:block/dirt" {
		t.Errorf("file not rebound: (%p, %q)", pack, path)
	}
}
