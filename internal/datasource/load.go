package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// LoadOptions configures Load.
type LoadOptions struct {
	Dir loader.DirOptions
}

// Load reads entries from a detected source, dispatching to the reader for
// its type.
func Load(ctx context.Context, src Source, opts LoadOptions) ([]model.Entry, error) {
	switch src.Type {
	case SourceTypeDir:
		return loader.FromDir(ctx, src.Path, opts.Dir)
	case SourceTypeYAML:
		return loader.FromYAML(src.Path)
	case SourceTypeJSON:
		return loader.FromJSON(src.Path)
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(src, true)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", src.Path, err)
		}
		defer reader.Close()
		entries, err := reader.LoadEntries(ctx)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return nil, loader.ErrEmpty
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", src.Type)
	}
}

// Editor persists edits made in the tree.
type Editor interface {
	Rename(ctx context.Context, key, name string) error
	Delete(ctx context.Context, keys []string) error
	Create(ctx context.Context, req tree.CreateRequest) (model.Entry, error)
}

// HandlersFor adapts an editor to tree callbacks. A nil editor yields no
// edit handlers, which leaves the tree read-only.
func HandlersFor(ctx context.Context, ed Editor) tree.Handlers {
	if ed == nil {
		return tree.Handlers{}
	}
	return tree.Handlers{
		OnRename: func(key, name string) error { return ed.Rename(ctx, key, name) },
		OnDelete: func(keys []string) error { return ed.Delete(ctx, keys) },
		OnCreate: func(req tree.CreateRequest) (model.Entry, error) { return ed.Create(ctx, req) },
	}
}

// OpenEditor returns the editor for a source. Directory sources have none:
// their IDs are paths, so a rename would change the key.
// The returned closer releases the editor's resources.
func OpenEditor(src Source, entries []model.Entry) (Editor, io.Closer, error) {
	switch src.Type {
	case SourceTypeSQLite:
		r, err := NewSQLiteReader(src, false)
		if err != nil {
			return nil, nopCloser{}, err
		}
		return r, r, nil
	case SourceTypeYAML:
		return NewDocEditor(entries, src.Path, loader.FormatYAML), nopCloser{}, nil
	case SourceTypeJSON:
		return NewDocEditor(entries, src.Path, loader.FormatJSON), nopCloser{}, nil
	}
	return nil, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// ErrReadOnly is returned when an edit targets a read-only entry.
var ErrReadOnly = errors.New("entry is read-only")

// DocEditor applies edits to an in-memory copy of a YAML or JSON document
// and, when it has a path, writes the document back after every edit.
type DocEditor struct {
	mu      sync.Mutex
	entries []model.Entry
	path    string
	format  loader.Format
	ids     map[string]bool
	next    int
}

// NewDocEditor copies entries. An empty path keeps edits in memory only.
func NewDocEditor(entries []model.Entry, path string, f loader.Format) *DocEditor {
	d := &DocEditor{entries: clone(entries), path: path, format: f, ids: make(map[string]bool)}
	walk(d.entries, func(e *model.Entry) { d.ids[e.ID] = true })
	return d
}

// Entries returns a copy of the current document.
func (d *DocEditor) Entries() []model.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return clone(d.entries)
}

// Rename sets the name of the entry with key.
func (d *DocEditor) Rename(_ context.Context, key, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if strings.TrimSpace(name) == "" {
		return errors.New("name must not be empty")
	}
	var target *model.Entry
	walk(d.entries, func(e *model.Entry) {
		if e.ID == key {
			target = e
		}
	})
	if target == nil {
		return fmt.Errorf("renaming %q: %w", key, ErrNotFound)
	}
	if target.ReadOnly {
		return fmt.Errorf("renaming %q: %w", key, ErrReadOnly)
	}
	target.Name = name
	return d.save()
}

// Delete removes entries and their descendants. Unknown keys are ignored.
func (d *DocEditor) Delete(_ context.Context, keys []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	d.entries = prune(d.entries, drop)
	d.ids = make(map[string]bool)
	walk(d.entries, func(e *model.Entry) { d.ids[e.ID] = true })
	return d.save()
}

// Create inserts a new entry with a fresh ID.
func (d *DocEditor) Create(_ context.Context, req tree.CreateRequest) (model.Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e := model.Entry{ID: d.newID(), Name: "untitled", Folder: req.Internal}
	if req.Internal {
		e.Name = "new folder"
	}
	list := &d.entries
	if req.ParentKey != "" {
		var parent *model.Entry
		walk(d.entries, func(p *model.Entry) {
			if p.ID == req.ParentKey {
				parent = p
			}
		})
		if parent == nil {
			return model.Entry{}, fmt.Errorf("creating under %q: %w", req.ParentKey, ErrNotFound)
		}
		parent.Folder = true
		list = &parent.Children
	}
	idx := min(max(req.Index, 0), len(*list))
	*list = append(*list, model.Entry{})
	copy((*list)[idx+1:], (*list)[idx:])
	(*list)[idx] = e
	d.ids[e.ID] = true

	if err := d.save(); err != nil {
		return model.Entry{}, err
	}
	return e, nil
}

func (d *DocEditor) newID() string {
	for {
		d.next++
		id := fmt.Sprintf("new-%d", d.next)
		if !d.ids[id] {
			return id
		}
	}
}

func (d *DocEditor) save() error {
	if d.path == "" {
		return nil
	}
	data, err := loader.Marshal(d.entries, d.format)
	if err != nil {
		return err
	}
	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", d.path, err)
	}
	return os.Rename(tmp, d.path)
}

func walk(entries []model.Entry, fn func(*model.Entry)) {
	stack := make([]*model.Entry, 0, len(entries))
	for i := range entries {
		stack = append(stack, &entries[i])
	}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(e)
		for i := range e.Children {
			stack = append(stack, &e.Children[i])
		}
	}
}

func prune(entries []model.Entry, drop map[string]bool) []model.Entry {
	out := entries[:0]
	for _, e := range entries {
		if drop[e.ID] {
			continue
		}
		if len(e.Children) > 0 {
			e.Folder = true
			e.Children = prune(e.Children, drop)
		}
		out = append(out, e)
	}
	return out
}

func clone(entries []model.Entry) []model.Entry {
	if entries == nil {
		return nil
	}
	out := make([]model.Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		out[i].Children = clone(e.Children)
	}
	return out
}
