package main

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/arbor/internal/datasource"
	"github.com/vanderheijden86/arbor/pkg/config"
	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/ui"
	"github.com/vanderheijden86/arbor/pkg/watcher"
)

// reloader reloads the source after a change and forwards the result to
// the program, skipping reloads that changed nothing.
type reloader struct {
	mu   sync.Mutex
	load ui.LoadFunc
	prev []model.Entry
	send func(tea.Msg)
}

func newReloader(initial []model.Entry, load ui.LoadFunc, send func(tea.Msg)) *reloader {
	return &reloader{load: load, prev: initial, send: send}
}

func (r *reloader) reload(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load(ctx)
	if err != nil {
		r.send(ui.ReloadMsg{Err: err})
		return
	}
	diff := datasource.Compare(r.prev, entries)
	r.prev = entries
	if diff.Empty() {
		debug.Log("watch: reload found no changes")
		return
	}
	r.send(ui.ReloadMsg{Entries: entries, Note: diff.Summary()})
}

// startWatch watches src and reloads it on change. The returned function
// stops watching.
func startWatch(ctx context.Context, src datasource.Source, cfg config.TreeConfig, initial []model.Entry, load ui.LoadFunc, send func(tea.Msg)) (func(), error) {
	r := newReloader(initial, load, send)
	opts := []watcher.WatcherOption{
		watcher.WithOnChange(func() { r.reload(ctx) }),
		watcher.WithOnError(func(err error) { debug.Warn("watch: %v", err) }),
	}
	if src.Type == datasource.SourceTypeDir {
		m, err := loader.NewMatcher(cfg.Ignore)
		if err != nil {
			return nil, err
		}
		opts = append(opts, watcher.WithIgnore(m.Match))
	}

	w, err := watcher.NewWatcher(src.Path, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	debug.Log("watch: %s (%s filesystem, polling=%v)", src.Path, w.FilesystemType(), w.IsPolling())
	return w.Stop, nil
}
