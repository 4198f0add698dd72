package testutil

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// VisibleKeys returns the keys of the visible rows in order.
func VisibleKeys(s *tree.Store) []string {
	keys := make([]string, 0, s.VisibleCount())
	for i := 0; i < s.VisibleCount(); i++ {
		keys = append(keys, s.Key(s.VisibleAt(i)))
	}
	return keys
}

// SelectedKeys returns the keys of the selected nodes in tree order.
func SelectedKeys(s *tree.Store) []string {
	var keys []string
	for _, id := range s.SelectedIDs() {
		keys = append(keys, s.Key(id))
	}
	return keys
}

// MustFind returns the node with key or fails the test.
func MustFind(t *testing.T, s *tree.Store, key string) tree.NodeID {
	t.Helper()
	id := s.Find(key)
	if id == tree.NoNode {
		t.Fatalf("node %q not found", key)
	}
	return id
}

// AssertVisible verifies the visible row sequence.
func AssertVisible(t *testing.T, s *tree.Store, keys ...string) {
	t.Helper()
	if got := VisibleKeys(s); !slices.Equal(got, keys) {
		t.Errorf("visible rows:\nexpected: %v\nactual:   %v", keys, got)
	}
}

// AssertFocused verifies the focused node. An empty key expects no focus.
func AssertFocused(t *testing.T, s *tree.Store, key string) {
	t.Helper()
	if got := s.Key(s.Focused()); got != key {
		t.Errorf("expected focus on %q, got %q", key, got)
	}
}

// AssertSelected verifies the selection set in tree order.
func AssertSelected(t *testing.T, s *tree.Store, keys ...string) {
	t.Helper()
	got := SelectedKeys(s)
	if len(got) == 0 && len(keys) == 0 {
		return
	}
	if !slices.Equal(got, keys) {
		t.Errorf("selection:\nexpected: %v\nactual:   %v", keys, got)
	}
}

// AssertJSONEqual compares two values after JSON encoding.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// WriteJSONFile writes entries as a JSON source file and returns its path.
func WriteJSONFile(t *testing.T, dir, name string, entries []model.Entry) string {
	t.Helper()
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal entries: %v", err)
	}
	return WriteFile(t, dir, name, string(data))
}

// WriteFile writes content to dir/name, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
