// Package loader turns tree sources into entries: a directory on disk or a
// YAML/JSON document describing a nested tree.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/model"
)

// DirOptions controls directory loading.
type DirOptions struct {
	Ignore     []string // globs matched against the base name and the relative path
	MaxDepth   int      // levels below root to descend; 0 for no limit
	ShowHidden bool     // include dot files
}

// maxParallel bounds concurrent top-level directory reads.
const maxParallel = 8

// Matcher decides which relative paths are skipped.
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles ignore patterns. Patterns use '/' as separator, so
// "*.log" matches base names and "build/**" matches a subtree.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling ignore pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether rel (slash separated) is ignored.
func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	base := path.Base(rel)
	for _, g := range m.globs {
		if g.Match(base) || g.Match(rel) {
			return true
		}
	}
	return false
}

// FromDir loads the directory tree under root. Entry IDs are slash separated
// paths relative to root. Folders sort before files, then by name.
func FromDir(ctx context.Context, root string, opts DirOptions) ([]model.Entry, error) {
	defer metrics.Timer(metrics.SourceLoad)()

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("reading %s: not a directory", root)
	}
	matcher, err := NewMatcher(opts.Ignore)
	if err != nil {
		return nil, err
	}

	l := dirLoader{root: root, opts: opts, matcher: matcher}
	top, err := l.readLevel("", 1)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i := range top {
		if !top[i].Folder || !l.descend(1) {
			continue
		}
		e := &top[i]
		g.Go(func() error {
			return l.fill(ctx, e, 1)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	debug.Log("loader: %s -> %d entries", root, model.Count(top))
	return top, nil
}

type dirLoader struct {
	root    string
	opts    DirOptions
	matcher *Matcher
}

func (l dirLoader) descend(depth int) bool {
	return l.opts.MaxDepth <= 0 || depth < l.opts.MaxDepth
}

// fill loads the subtree below e, which sits at depth.
func (l dirLoader) fill(ctx context.Context, e *model.Entry, depth int) error {
	type frame struct {
		entry *model.Entry
		depth int
	}
	stack := []frame{{e, depth}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := l.readLevel(f.entry.ID, f.depth+1)
		if err != nil {
			// Unreadable subdirectories show up empty.
			debug.Warn("loader: %v", err)
			continue
		}
		f.entry.Children = children
		if !l.descend(f.depth + 1) {
			continue
		}
		for i := range children {
			if children[i].Folder {
				stack = append(stack, frame{&children[i], f.depth + 1})
			}
		}
	}
	return nil
}

// readLevel reads one directory, identified by its relative ID, and returns
// its sorted, filtered entries without grandchildren.
func (l dirLoader) readLevel(rel string, depth int) ([]model.Entry, error) {
	dir := filepath.Join(l.root, filepath.FromSlash(rel))
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	out := make([]model.Entry, 0, len(des))
	for _, d := range des {
		name := d.Name()
		if !l.opts.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		id := name
		if rel != "" {
			id = rel + "/" + name
		}
		if l.matcher.Match(id) {
			continue
		}
		e := model.Entry{ID: id, Name: name, Folder: d.IsDir()}
		if info, err := d.Info(); err == nil {
			e.ReadOnly = info.Mode().Perm()&0o200 == 0
			if info.Mode()&fs.ModeSymlink != 0 {
				e.Folder = false
			}
		}
		out = append(out, e)
	}
	SortEntries(out)
	return out, nil
}

// SortEntries orders folders before files, then by case-insensitive name.
func SortEntries(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Folder != b.Folder {
			return a.Folder
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}
