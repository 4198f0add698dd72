package datasource

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/testutil"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

func ids(entries []model.Entry) []string {
	var out []string
	walk(entries, func(e *model.Entry) { out = append(out, e.ID) })
	slices.Sort(out)
	return out
}

func names(entries []model.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	yamlPath := testutil.WriteFile(t, dir, "t.yaml", "- name: a\n")
	jsonPath := testutil.WriteFile(t, dir, "t.json", `[{"name":"a"}]`)
	dbPath := testutil.WriteFile(t, dir, "t.db", "")
	headerPath := testutil.WriteFile(t, dir, "nodes.bin", "SQLite format 3\x00rest")
	otherPath := testutil.WriteFile(t, dir, "notes.txt", "hello")

	tests := []struct {
		path string
		want SourceType
	}{
		{dir, SourceTypeDir},
		{yamlPath, SourceTypeYAML},
		{jsonPath, SourceTypeJSON},
		{dbPath, SourceTypeSQLite},
		{headerPath, SourceTypeSQLite},
	}
	for _, tt := range tests {
		src, err := Detect(tt.path)
		if err != nil {
			t.Errorf("Detect(%s) error: %v", tt.path, err)
			continue
		}
		if src.Type != tt.want {
			t.Errorf("Detect(%s) = %s, want %s", tt.path, src.Type, tt.want)
		}
	}

	if _, err := Detect(otherPath); err == nil {
		t.Error("expected error for unsupported file")
	}
	if _, err := Detect(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestSourceEditable(t *testing.T) {
	if (Source{Type: SourceTypeDir}).Editable() {
		t.Error("directory sources are not editable")
	}
	if !(Source{Type: SourceTypeSQLite}).Editable() {
		t.Error("SQLite sources are editable")
	}
}

func TestLoadDocuments(t *testing.T) {
	dir := t.TempDir()
	jsonPath := testutil.WriteJSONFile(t, dir, "tree.json", testutil.Sample())
	src, err := Detect(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := Load(context.Background(), src, LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	testutil.AssertJSONEqual(t, testutil.Sample(), entries)

	testutil.WriteFile(t, dir, "sub/x.txt", "x")
	src, err = Detect(dir)
	if err != nil {
		t.Fatal(err)
	}
	entries, err = Load(context.Background(), src, LoadOptions{})
	if err != nil {
		t.Fatalf("Load dir failed: %v", err)
	}
	if got := names(entries); !slices.Equal(got, []string{"sub", "tree.json"}) {
		t.Errorf("dir entries = %v", got)
	}
}

func TestLoadUnknownType(t *testing.T) {
	if _, err := Load(context.Background(), Source{Type: "toml"}, LoadOptions{}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func newDB(t *testing.T, entries []model.Entry) Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.db")
	if err := CreateSQLite(context.Background(), path, entries); err != nil {
		t.Fatalf("CreateSQLite failed: %v", err)
	}
	src, err := Detect(path)
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func TestSQLiteRoundTrip(t *testing.T) {
	src := newDB(t, testutil.Sample())
	entries, err := Load(context.Background(), src, LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	testutil.AssertJSONEqual(t, testutil.Sample(), entries)
}

func TestSQLiteEmpty(t *testing.T) {
	src := newDB(t, nil)
	if _, err := Load(context.Background(), src, LoadOptions{}); !errors.Is(err, loader.ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestSQLiteOrphansAndCycles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	db, err := sql.Open("sqlite", "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(Schema); err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`INSERT INTO nodes VALUES ('top', NULL, 'top', 1, 0)`,
		`INSERT INTO nodes VALUES ('kid', 'top', 'kid', 0, 0)`,
		`INSERT INTO nodes VALUES ('orphan', 'gone', 'orphan', 0, 1)`,
		`INSERT INTO nodes VALUES ('x', 'y', 'x', 1, 0)`,
		`INSERT INTO nodes VALUES ('y', 'x', 'y', 1, 0)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}

	r, err := NewSQLiteReader(Source{Type: SourceTypeSQLite, Path: path}, true)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	entries, err := r.LoadEntries(context.Background())
	if err != nil {
		t.Fatalf("LoadEntries failed: %v", err)
	}
	if got, want := ids(entries), []string{"kid", "orphan", "top"}; !slices.Equal(got, want) {
		t.Errorf("ids = %v, want %v", got, want)
	}
	if got := names(entries); !slices.Equal(got, []string{"top", "orphan"}) {
		t.Errorf("top level = %v", got)
	}
}

func TestSQLiteEdits(t *testing.T) {
	ctx := context.Background()
	src := newDB(t, testutil.Sample())
	r, err := NewSQLiteReader(src, false)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if err := r.Rename(ctx, "a2", "renamed"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if err := r.Rename(ctx, "nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := r.Rename(ctx, "a2", "  "); err == nil {
		t.Error("expected error for blank name")
	}
	if err := r.Delete(ctx, []string{"a1"}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	created, err := r.Create(ctx, tree.CreateRequest{ParentKey: "b", Index: 1})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	entries, err := r.LoadEntries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids(entries), []string{"a", "a2", "b", "b1", "b2", "c", created.ID}; !slices.Equal(got, sorted(want)) {
		t.Errorf("ids = %v, want %v", got, sorted(want))
	}
	a := entries[0]
	if got := names(a.Children); !slices.Equal(got, []string{"renamed"}) {
		t.Errorf("a children = %v", got)
	}
	b := entries[1]
	if got := names(b.Children); !slices.Equal(got, []string{"b1", "untitled", "b2"}) {
		t.Errorf("b children = %v", got)
	}
}

func TestSQLiteReadOnlyRejectsEdits(t *testing.T) {
	src := newDB(t, testutil.Sample())
	r, err := NewSQLiteReader(src, true)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if err := r.Rename(context.Background(), "a", "z"); err == nil {
		t.Error("read-only reader should reject edits")
	}
	if _, err := NewSQLiteReader(Source{Type: SourceTypeDir}, true); err == nil {
		t.Error("expected error for non-SQLite source")
	}
}

func sorted(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

func TestDocEditorEdits(t *testing.T) {
	ctx := context.Background()
	entries := testutil.Sample()
	entries[2].ReadOnly = true
	d := NewDocEditor(entries, "", loader.FormatJSON)

	if err := d.Rename(ctx, "a1x", "first"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if err := d.Rename(ctx, "c", "z"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}
	if err := d.Rename(ctx, "zz", "z"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if entries[0].Children[0].Children[0].Name != "a1x" {
		t.Error("editor must not mutate the caller's entries")
	}

	if err := d.Delete(ctx, []string{"a1y", "b"}); err != nil {
		t.Fatal(err)
	}
	e, err := d.Create(ctx, tree.CreateRequest{Index: 0, Internal: true})
	if err != nil {
		t.Fatal(err)
	}
	if e.ID != "new-1" || e.Name != "new folder" || !e.Folder {
		t.Errorf("created = %+v", e)
	}
	if _, err := d.Create(ctx, tree.CreateRequest{ParentKey: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	leaf, err := d.Create(ctx, tree.CreateRequest{ParentKey: "a2", Index: 5})
	if err != nil {
		t.Fatal(err)
	}

	got := d.Entries()
	if n := names(got); !slices.Equal(n, []string{"new folder", "a", "c"}) {
		t.Errorf("top level = %v", n)
	}
	if want := []string{"a", "a1", "a1x", "a2", "c", "new-1", leaf.ID}; !slices.Equal(ids(got), sorted(want)) {
		t.Errorf("ids = %v, want %v", ids(got), sorted(want))
	}
	if got[1].Children[0].Children[0].Name != "first" {
		t.Error("rename lost")
	}
	if !got[1].Children[1].Folder {
		t.Error("creating under a leaf should make it a folder")
	}
}

func TestDocEditorWritesBack(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "tree.yaml", "- name: a\n- name: b\n")
	src, err := Detect(path)
	if err != nil {
		t.Fatal(err)
	}
	entries, err := Load(context.Background(), src, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	ed, closer, err := OpenEditor(src, entries)
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()

	h := HandlersFor(context.Background(), ed)
	if err := h.OnRename("b", "bee"); err != nil {
		t.Fatal(err)
	}
	reloaded, err := loader.FromYAML(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := names(reloaded); !slices.Equal(got, []string{"a", "bee"}) {
		t.Errorf("reloaded = %v", got)
	}
	if reloaded[1].ID != "b" {
		t.Errorf("id should survive the rename, got %q", reloaded[1].ID)
	}
}

func TestOpenEditorDirIsReadOnly(t *testing.T) {
	ed, closer, err := OpenEditor(Source{Type: SourceTypeDir}, nil)
	if err != nil || ed != nil {
		t.Fatalf("dir editor = %v, %v", ed, err)
	}
	defer closer.Close()
	h := HandlersFor(context.Background(), ed)
	if h.OnRename != nil || h.OnDelete != nil || h.OnCreate != nil {
		t.Error("nil editor should leave handlers unset")
	}
}

func TestCompare(t *testing.T) {
	before := testutil.Sample()
	after := testutil.Sample()
	after[0].Children[1].Name = "a2-renamed"
	// drop b2, add d under c, move a1y to the top level
	after[1].Children = after[1].Children[:1]
	after[2].Children = []model.Entry{model.File("d", "d")}
	after[0].Children[0].Children = after[0].Children[0].Children[:1]
	after = append(after, model.File("a1y", "a1y"))

	d := Compare(before, after)
	if !slices.Equal(d.Added, []string{"d"}) {
		t.Errorf("Added = %v", d.Added)
	}
	if !slices.Equal(d.Removed, []string{"b2"}) {
		t.Errorf("Removed = %v", d.Removed)
	}
	if !slices.Equal(d.Moved, []string{"a1y"}) {
		t.Errorf("Moved = %v", d.Moved)
	}
	if len(d.Renamed) != 1 || d.Renamed[0] != (Rename{ID: "a2", From: "a2", To: "a2-renamed"}) {
		t.Errorf("Renamed = %v", d.Renamed)
	}
	if got, want := d.Summary(), "+1 -1 ~1 renamed 1 moved"; got != want {
		t.Errorf("Summary = %q, want %q", got, want)
	}

	same := Compare(testutil.Sample(), testutil.Sample())
	if !same.Empty() || same.Summary() != "no changes" {
		t.Errorf("identical trees diff = %+v", same)
	}
}
