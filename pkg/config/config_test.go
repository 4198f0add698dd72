package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Tree.StickyScroll {
		t.Error("expected sticky scroll enabled by default")
	}
	if cfg.Tree.StickyScrollMaxNodes != 5 {
		t.Errorf("expected max sticky nodes 5, got %d", cfg.Tree.StickyScrollMaxNodes)
	}
	if cfg.Tree.TypeaheadTimeout != 600*time.Millisecond {
		t.Errorf("expected typeahead timeout 600ms, got %v", cfg.Tree.TypeaheadTimeout)
	}
	if cfg.Tree.RowHeight != 1 || cfg.Tree.Indent != 2 || cfg.Tree.OpenDepth != 1 {
		t.Errorf("unexpected layout defaults: %+v", cfg.Tree)
	}
	if err := cfg.Tree.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Tree.StickyScrollMaxNodes != 5 {
		t.Errorf("expected default config, got %+v", cfg.Tree)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
tree:
  sticky_scroll: false
  sticky_scroll_max_nodes: 3
  disable_multi_selection: true
  typeahead_timeout: 1s
  ignore:
    - "*.log"

recent:
  - name: notes
    path: ~/notes
  - name: other
    path: /absolute/path
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Tree.StickyScroll {
		t.Error("expected sticky_scroll false")
	}
	if cfg.Tree.StickyScrollMaxNodes != 3 {
		t.Errorf("expected max nodes 3, got %d", cfg.Tree.StickyScrollMaxNodes)
	}
	if !cfg.Tree.DisableMultiSelection {
		t.Error("expected disable_multi_selection true")
	}
	if cfg.Tree.TypeaheadTimeout != time.Second {
		t.Errorf("expected 1s timeout, got %v", cfg.Tree.TypeaheadTimeout)
	}
	// Keys absent from the file keep their defaults.
	if !cfg.Tree.ShowIndentGuides || cfg.Tree.Indent != 2 {
		t.Errorf("expected defaults for unset keys, got %+v", cfg.Tree)
	}
	if len(cfg.Tree.Ignore) != 1 || cfg.Tree.Ignore[0] != "*.log" {
		t.Errorf("unexpected ignore list %v", cfg.Tree.Ignore)
	}

	home, _ := os.UserHomeDir()
	if cfg.Recent[0].Path != filepath.Join(home, "notes") {
		t.Errorf("expected expanded path, got %q", cfg.Recent[0].Path)
	}
	if cfg.Recent[1].Path != "/absolute/path" {
		t.Errorf("expected absolute path preserved, got %q", cfg.Recent[1].Path)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFrom(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"row height", "tree:\n  row_height: 0\n", ErrRowHeight},
		{"negative indent", "tree:\n  indent: -1\n", ErrNegative},
		{"negative overscan", "tree:\n  overscan: -2\n", ErrNegative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFrom(path)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_BadGlob(t *testing.T) {
	cfg := DefaultTreeConfig()
	cfg.Ignore = []string{"[unclosed"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "[unclosed") {
		t.Errorf("expected glob error, got %v", err)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Tree.StickyScrollMaxNodes = 4
	cfg.Tree.TypeaheadTimeout = 250 * time.Millisecond
	cfg.Recent = []Source{{Name: "proj1", Path: "/path/to/proj1"}}

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}

	if loaded.Tree.StickyScrollMaxNodes != 4 {
		t.Errorf("expected 4, got %d", loaded.Tree.StickyScrollMaxNodes)
	}
	if loaded.Tree.TypeaheadTimeout != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", loaded.Tree.TypeaheadTimeout)
	}
	if len(loaded.Recent) != 1 || loaded.Recent[0].Name != "proj1" {
		t.Errorf("unexpected recent list %v", loaded.Recent)
	}
}

func TestAddRecent(t *testing.T) {
	var cfg Config
	cfg.AddRecent("/a/one")
	cfg.AddRecent("/b/two")
	cfg.AddRecent("/a/one")

	if len(cfg.Recent) != 2 {
		t.Fatalf("expected 2 entries, got %v", cfg.Recent)
	}
	if cfg.Recent[0].Path != "/a/one" || cfg.Recent[0].Name != "one" {
		t.Errorf("expected /a/one first, got %+v", cfg.Recent[0])
	}

	for i := 0; i < 20; i++ {
		cfg.AddRecent(filepath.Join("/many", string(rune('a'+i))))
	}
	if len(cfg.Recent) != maxRecent {
		t.Errorf("expected %d entries, got %d", maxRecent, len(cfg.Recent))
	}
}

func TestFindRecent(t *testing.T) {
	cfg := Config{Recent: []Source{{Name: "Notes", Path: "/n"}}}
	if s := cfg.FindRecent("notes"); s == nil || s.Path != "/n" {
		t.Error("expected case-insensitive match")
	}
	if s := cfg.FindRecent("missing"); s != nil {
		t.Error("expected nil for unknown source")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/foo", filepath.Join(home, "foo")},
		{"/absolute", "/absolute"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := expandHome(tt.input)
		if got != tt.expected {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestConfigDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got := ConfigDir()
	expected := filepath.Join(dir, "arbor")
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
	if ConfigPath() != filepath.Join(expected, "config.yaml") {
		t.Errorf("unexpected config path %q", ConfigPath())
	}
}

func TestSourceStateDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	a := SourceStateDir("/x/project")
	b := SourceStateDir("/y/project")
	if a == b {
		t.Errorf("sources with the same base name share %q", a)
	}
	if filepath.Dir(a) != filepath.Join(dir, "arbor") {
		t.Errorf("state dir %q outside %q", a, dir)
	}
	if !strings.HasPrefix(filepath.Base(a), "project-") {
		t.Errorf("unexpected dir name %q", filepath.Base(a))
	}
	if SourceStateDir("") != "" {
		t.Error("empty source should have no state dir")
	}
}
