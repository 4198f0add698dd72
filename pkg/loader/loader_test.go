package loader_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/testutil"
)

// makeTree lays out:
//
//	root/
//	├── src/
//	│   ├── lib/
//	│   │   └── util.go
//	│   ├── Main.go
//	│   └── app.go
//	├── docs/
//	│   └── guide.md
//	├── .hidden
//	├── build.log
//	└── README.md
func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range []string{
		"src/lib/util.go",
		"src/Main.go",
		"src/app.go",
		"docs/guide.md",
		".hidden",
		"build.log",
		"README.md",
	} {
		testutil.WriteFile(t, root, f, "x")
	}
	return root
}

func names(entries []model.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func find(entries []model.Entry, id string) *model.Entry {
	stack := make([]*model.Entry, 0, len(entries))
	for i := range entries {
		stack = append(stack, &entries[i])
	}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e.ID == id {
			return e
		}
		for i := range e.Children {
			stack = append(stack, &e.Children[i])
		}
	}
	return nil
}

func TestFromDirOrderingAndIDs(t *testing.T) {
	root := makeTree(t)
	entries, err := loader.FromDir(context.Background(), root, loader.DirOptions{})
	if err != nil {
		t.Fatalf("FromDir failed: %v", err)
	}

	if got, want := names(entries), []string{"docs", "src", "build.log", "README.md"}; !slices.Equal(got, want) {
		t.Errorf("top level = %v, want %v", got, want)
	}
	src := find(entries, "src")
	if src == nil || !src.Folder {
		t.Fatal("src should be a folder")
	}
	if got, want := names(src.Children), []string{"lib", "app.go", "Main.go"}; !slices.Equal(got, want) {
		t.Errorf("src children = %v, want %v", got, want)
	}
	if find(entries, "src/lib/util.go") == nil {
		t.Error("expected nested id src/lib/util.go")
	}
	if err := model.Validate(entries); err != nil {
		t.Errorf("loaded entries invalid: %v", err)
	}
}

func TestFromDirHiddenAndIgnore(t *testing.T) {
	root := makeTree(t)

	entries, err := loader.FromDir(context.Background(), root, loader.DirOptions{
		Ignore:     []string{"*.log", "src/lib"},
		ShowHidden: true,
	})
	if err != nil {
		t.Fatalf("FromDir failed: %v", err)
	}
	if find(entries, ".hidden") == nil {
		t.Error("ShowHidden should include dot files")
	}
	if find(entries, "build.log") != nil {
		t.Error("*.log should be ignored")
	}
	if find(entries, "src/lib") != nil {
		t.Error("src/lib should be ignored by relative path")
	}
}

func TestFromDirMaxDepth(t *testing.T) {
	root := makeTree(t)
	entries, err := loader.FromDir(context.Background(), root, loader.DirOptions{MaxDepth: 1})
	if err != nil {
		t.Fatalf("FromDir failed: %v", err)
	}
	src := find(entries, "src")
	if src == nil || !src.IsInternal() || len(src.Children) != 0 {
		t.Errorf("depth-limited folder should be an empty folder, got %+v", src)
	}

	entries, err = loader.FromDir(context.Background(), root, loader.DirOptions{MaxDepth: 2})
	if err != nil {
		t.Fatalf("FromDir failed: %v", err)
	}
	lib := find(entries, "src/lib")
	if lib == nil || len(lib.Children) != 0 {
		t.Errorf("expected src/lib without children at depth 2, got %+v", lib)
	}
}

func TestFromDirErrors(t *testing.T) {
	if _, err := loader.FromDir(context.Background(), "/does/not/exist", loader.DirOptions{}); err == nil {
		t.Error("expected error for missing directory")
	}
	file := testutil.WriteFile(t, t.TempDir(), "f.txt", "x")
	if _, err := loader.FromDir(context.Background(), file, loader.DirOptions{}); err == nil {
		t.Error("expected error for a regular file")
	}
	if _, err := loader.FromDir(context.Background(), t.TempDir(), loader.DirOptions{Ignore: []string{"[bad"}}); err == nil {
		t.Error("expected error for a bad glob")
	}
}

func TestFromDirCanceled(t *testing.T) {
	root := makeTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.FromDir(ctx, root, loader.DirOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestMatcher(t *testing.T) {
	m, err := loader.NewMatcher([]string{"node_modules", "*.tmp", "dist/**"})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		rel  string
		want bool
	}{
		{"node_modules", true},
		{"web/node_modules", true},
		{"a/b/file.tmp", true},
		{"dist/js/app.js", true},
		{"src/dist.go", false},
		{"README.md", false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.rel); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
	var none *loader.Matcher
	if none.Match("anything") {
		t.Error("nil matcher should match nothing")
	}
}

func TestFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "tree.yaml", `
- name: src
  children:
    - name: main.go
    - id: custom
      name: util.go
      read_only: true
- name: empty
  folder: true
- name: README.md
`)
	entries, err := loader.FromYAML(path)
	if err != nil {
		t.Fatalf("FromYAML failed: %v", err)
	}
	if find(entries, "src/main.go") == nil {
		t.Error("expected derived id src/main.go")
	}
	custom := find(entries, "custom")
	if custom == nil || !custom.ReadOnly {
		t.Errorf("expected read-only entry with explicit id, got %+v", custom)
	}
	if e := find(entries, "empty"); e == nil || !e.IsInternal() {
		t.Error("folder: true should make an internal entry")
	}
}

func TestFromYAMLWrapped(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "tree.yml", "entries:\n  - name: a\n  - name: b\n")
	entries, err := loader.FromYAML(path)
	if err != nil {
		t.Fatalf("FromYAML failed: %v", err)
	}
	if got := names(entries); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
}

func TestFromJSONRoundTrip(t *testing.T) {
	want := testutil.Sample()
	path := testutil.WriteJSONFile(t, t.TempDir(), "tree.json", want)
	got, err := loader.FromJSON(path)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	testutil.AssertJSONEqual(t, want, got)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		f    loader.Format
	}{
		{"empty yaml", "", loader.FormatYAML},
		{"empty list", "[]", loader.FormatJSON},
		{"bad json", "{", loader.FormatJSON},
		{"duplicate ids", `[{"id":"x","name":"a"},{"id":"x","name":"b"}]`, loader.FormatJSON},
		{"unknown format", "[]", loader.Format("toml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loader.Parse([]byte(tt.data), tt.f); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := loader.Parse([]byte("[]"), loader.FormatYAML); !errors.Is(err, loader.ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
}

func TestFormatFor(t *testing.T) {
	for path, want := range map[string]loader.Format{
		"a.yaml": loader.FormatYAML,
		"a.YML":  loader.FormatYAML,
		"a.json": loader.FormatJSON,
	} {
		if got, ok := loader.FormatFor(path); !ok || got != want {
			t.Errorf("FormatFor(%q) = %q, %v", path, got, ok)
		}
	}
	if _, ok := loader.FormatFor("a.db"); ok {
		t.Error("a.db is not a document format")
	}
}

func TestMarshalYAMLRoundTrip(t *testing.T) {
	want := testutil.Sample()
	data, err := loader.Marshal(want, loader.FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := loader.FromYAML(path)
	if err != nil {
		t.Fatalf("FromYAML failed: %v", err)
	}
	testutil.AssertJSONEqual(t, want, got)
}
