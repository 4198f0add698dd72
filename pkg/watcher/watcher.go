// Package watcher reports changes to a tree source on disk.
//
// A source is either a single file (YAML, JSON, SQLite) or a directory tree.
// Files are watched through their parent directory so atomic saves are seen;
// directories are watched recursively, adding subdirectories as they appear.
// When fsnotify is unavailable, or the source sits on a network or FUSE
// filesystem, the watcher polls a cheap signature instead.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/arbor/pkg/debug"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// Common errors.
var (
	ErrSourceRemoved  = errors.New("watched source was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback invoked when the source changes.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// WithIgnore skips paths for which fn returns true. It receives paths
// relative to the watched directory, with forward slashes.
func WithIgnore(fn func(rel string) bool) WatcherOption {
	return func(w *Watcher) {
		w.ignore = fn
	}
}

// Watcher monitors a file or directory tree for changes using fsnotify with
// polling fallback.
type Watcher struct {
	path             string
	isDir            bool
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	ignore           func(rel string) bool
	forcePoll        bool
	fsType           FilesystemType

	fsWatcher   *fsnotify.Watcher
	debouncer   *Debouncer
	useFallback bool
	lastSig     signature

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// signature is what polling compares between ticks.
type signature struct {
	mtime time.Time
	size  int64
	count int
}

// NewWatcher creates a new watcher for the given file or directory.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		ignore:           func(string) bool { return false },
		changeCh:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.debouncer = NewDebouncer(w.debounceDuration)

	return w, nil
}

// Start begins watching the source for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	info, err := os.Stat(w.path)
	if err != nil {
		if os.IsPermission(err) {
			return ErrPermission
		}
		// A file source might not exist yet.
		info = nil
	}
	w.isDir = info != nil && info.IsDir()

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.fsType = DetectFilesystemType(w.path)
	w.useFallback = w.forcePoll || envBool("ARBOR_FORCE_POLL") || isRemoteFilesystem(w.fsType)
	w.lastSig = w.signature()

	if !w.useFallback {
		if err := w.startFsnotify(); err != nil {
			debug.Log("watcher: fsnotify unavailable, polling: %v", err)
			w.useFallback = true
		}
	}
	if w.useFallback {
		go w.watchPolling()
	}

	w.started = true
	return nil
}

func (w *Watcher) startFsnotify() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if w.isDir {
		err = w.addTree(fsw, w.path)
	} else {
		// The parent directory sees atomic rename-over saves.
		err = fsw.Add(filepath.Dir(w.path))
	}
	if err != nil {
		fsw.Close()
		return err
	}
	w.fsWatcher = fsw
	go w.watchFsnotify(fsw)
	return nil
}

// addTree registers dir and every non-ignored subdirectory.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.path && w.ignore(w.rel(p)) {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}

func (w *Watcher) rel(p string) string {
	r, err := filepath.Rel(w.path, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(r)
}

// Stop stops watching. The change channel stays open so a receiver blocked
// on Changed is not woken spuriously.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	if w.cancel != nil {
		w.cancel()
	}

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}

	w.debouncer.Cancel()
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// FilesystemType returns the filesystem detected by Start.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives when the source changes.
// This is an alternative to using the OnChange callback.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path returns the watched path.
func (w *Watcher) Path() string {
	return w.path
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.pollInterval
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// relevant reports whether an event path concerns the watched source.
func (w *Watcher) relevant(name string) bool {
	if !w.isDir {
		return filepath.Base(name) == filepath.Base(w.path)
	}
	return !w.ignore(w.rel(name))
}

// watchFsnotify monitors using fsnotify events.
func (w *Watcher) watchFsnotify(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event.Name) {
				continue
			}

			switch {
			case event.Name == w.path && event.Op&fsnotify.Remove != 0:
				w.onError(ErrSourceRemoved)

			case event.Op&fsnotify.Chmod == event.Op:
				// Attribute-only changes do not alter the tree.

			default:
				if w.isDir && event.Op&fsnotify.Create != 0 {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := w.addTree(fsw, event.Name); err != nil {
							debug.Log("watcher: adding %s: %v", event.Name, err)
						}
					}
				}
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// signature summarizes the source for polling. Directories count their
// entries and track the newest modification time.
func (w *Watcher) signature() signature {
	info, err := os.Stat(w.path)
	if err != nil {
		return signature{}
	}
	if !info.IsDir() {
		return signature{mtime: info.ModTime(), size: info.Size(), count: 1}
	}
	sig := signature{mtime: info.ModTime()}
	_ = filepath.WalkDir(w.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p != w.path && w.ignore(w.rel(p)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		sig.count++
		if fi, err := d.Info(); err == nil && fi.ModTime().After(sig.mtime) {
			sig.mtime = fi.ModTime()
		}
		return nil
	})
	return sig
}

// watchPolling monitors using periodic signature checks.
func (w *Watcher) watchPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			if _, err := os.Stat(w.path); err != nil {
				switch {
				case os.IsNotExist(err):
					w.mu.RLock()
					hadSource := w.lastSig.count > 0
					w.mu.RUnlock()
					if hadSource {
						w.onError(ErrSourceRemoved)
					}
				case os.IsPermission(err):
					w.onError(ErrPermission)
				default:
					w.onError(err)
				}
				continue
			}

			sig := w.signature()
			w.mu.Lock()
			changed := sig != w.lastSig
			w.lastSig = sig
			w.mu.Unlock()

			if changed {
				w.debouncer.Trigger(w.notifyChange)
			}
		}
	}
}

// notifyChange invokes the onChange callback and signals the change channel.
func (w *Watcher) notifyChange() {
	w.mu.RLock()
	started := w.started
	w.mu.RUnlock()

	if !started {
		return
	}

	w.onChange()

	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
