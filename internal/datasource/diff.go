package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/arbor/pkg/model"
)

// Diff describes what changed between two loads of a source.
type Diff struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
	// Renamed holds entries whose ID survived with a different name.
	Renamed []Rename `json:"renamed,omitempty"`
	// Moved holds entries whose parent changed.
	Moved []string `json:"moved,omitempty"`
}

// Rename is a name change for a single entry.
type Rename struct {
	ID   string `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Empty reports whether the two loads were identical in IDs, names and
// parents.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Renamed) == 0 && len(d.Moved) == 0
}

// Summary renders the diff for a status line, e.g. "+2 -1 ~1 renamed".
func (d Diff) Summary() string {
	if d.Empty() {
		return "no changes"
	}
	var parts []string
	if n := len(d.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("+%d", n))
	}
	if n := len(d.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("-%d", n))
	}
	if n := len(d.Renamed); n > 0 {
		parts = append(parts, fmt.Sprintf("~%d renamed", n))
	}
	if n := len(d.Moved); n > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", n))
	}
	return strings.Join(parts, " ")
}

type flatEntry struct {
	name   string
	parent string
}

func flatten(entries []model.Entry) map[string]flatEntry {
	out := make(map[string]flatEntry)
	type frame struct {
		list   []model.Entry
		parent string
	}
	stack := []frame{{list: entries}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range f.list {
			out[e.ID] = flatEntry{name: e.Name, parent: f.parent}
			if len(e.Children) > 0 {
				stack = append(stack, frame{e.Children, e.ID})
			}
		}
	}
	return out
}

// Compare diffs two entry trees by ID. Result slices are sorted.
func Compare(before, after []model.Entry) Diff {
	a, b := flatten(before), flatten(after)
	var d Diff
	for id, old := range a {
		cur, ok := b[id]
		if !ok {
			d.Removed = append(d.Removed, id)
			continue
		}
		if cur.name != old.name {
			d.Renamed = append(d.Renamed, Rename{ID: id, From: old.name, To: cur.name})
		}
		if cur.parent != old.parent {
			d.Moved = append(d.Moved, id)
		}
	}
	for id := range b {
		if _, ok := a[id]; !ok {
			d.Added = append(d.Added, id)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Moved)
	sort.Slice(d.Renamed, func(i, j int) bool { return d.Renamed[i].ID < d.Renamed[j].ID })
	return d
}
