// Package model defines the data records arbor displays.
package model

import (
	"fmt"
	"strings"
)

// Entry is one loaded tree record. Entries form the input to the tree store;
// the store copies them into its own arena and never keeps references.
type Entry struct {
	ID       string  `json:"id" yaml:"id"`
	Name     string  `json:"name" yaml:"name"`
	Folder   bool    `json:"folder,omitempty" yaml:"folder,omitempty"`     // Internal node even without children
	ReadOnly bool    `json:"read_only,omitempty" yaml:"read_only,omitempty"` // Excluded from rename
	Children []Entry `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsInternal reports whether the entry is a container.
func (e Entry) IsInternal() bool {
	return e.Folder || len(e.Children) > 0
}

// Folder builds an internal entry. Used by fixtures and the demo tree.
func Folder(id, name string, children ...Entry) Entry {
	return Entry{ID: id, Name: name, Folder: true, Children: children}
}

// File builds a leaf entry.
func File(id, name string) Entry {
	return Entry{ID: id, Name: name}
}

// Validate checks that every entry has a non-empty, unique ID.
func Validate(entries []Entry) error {
	seen := make(map[string]bool)
	stack := make([]Entry, 0, len(entries))
	stack = append(stack, entries...)
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("entry %q has an empty id", e.Name)
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate entry id %q", e.ID)
		}
		seen[e.ID] = true
		stack = append(stack, e.Children...)
	}
	return nil
}

// Count returns the total number of entries including descendants.
func Count(entries []Entry) int {
	n := 0
	stack := append([]Entry(nil), entries...)
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n++
		stack = append(stack, e.Children...)
	}
	return n
}
