package tree

import (
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/arbor/pkg/debug"
)

// OpenState is the persisted open/closed state of folders.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "open": {
//	    "src/components": true,   // explicitly opened
//	    "src": false              // explicitly closed
//	  }
//	}
//
// Only folders whose state differs from the open-depth default are stored.
// A missing or corrupt file means defaults.
type OpenState struct {
	Version int             `json:"version"`
	Open    map[string]bool `json:"open"`
}

// OpenStateVersion is the current schema version.
const OpenStateVersion = 1

const openStateFileName = "open-state.json"

// OpenStatePath returns the state file location inside dir.
func OpenStatePath(dir string) string {
	return filepath.Join(dir, openStateFileName)
}

// Snapshot records the folders whose open flag differs from the default.
func (s *Store) Snapshot() *OpenState {
	state := &OpenState{Version: OpenStateVersion, Open: make(map[string]bool)}
	s.walk(func(id NodeID) {
		n := s.nodes[id]
		if !n.internal {
			return
		}
		if def := n.level < s.openDepth; n.open != def {
			state.Open[n.key] = n.open
		}
	})
	return state
}

// Apply sets open flags from state. Unknown keys are ignored.
func (s *Store) Apply(state *OpenState) {
	if state == nil || len(state.Open) == 0 {
		return
	}
	for key, open := range state.Open {
		if id := s.Find(key); id != NoNode && s.nodes[id].internal {
			s.nodes[id].open = open
		}
	}
	if f := s.Focused(); f != NoNode {
		for p := s.nodes[f].parent; p > RootID; p = s.nodes[p].parent {
			if !s.nodes[p].open {
				s.focus = p
			}
		}
	}
	s.rebuildVisible()
}

// SaveOpenState writes the open state to path. An empty path disables
// persistence.
func (s *Store) SaveOpenState(path string) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadOpenState restores the open state from path. A missing file is not an
// error; a corrupt one is logged and ignored.
func (s *Store) LoadOpenState(path string) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var state OpenState
	if err := json.Unmarshal(data, &state); err != nil {
		debug.Warn("invalid open state file %s, using defaults: %v", path, err)
		return
	}
	if state.Version > OpenStateVersion {
		debug.Warn("open state file %s has version %d, using defaults", path, state.Version)
		return
	}
	s.Apply(&state)
}
