// Package keys maps key presses to tree-state operations.
//
// The Dispatcher evaluates an ordered rule table; the first rule whose
// key matches and whose guard passes runs and the key counts as handled.
// Unmatched printable keys feed a typeahead buffer that focuses the first
// visible row whose name starts with the buffer. The buffer belongs to the
// Dispatcher instance and is cleared by a timer after the last keystroke.
package keys

import (
	"strings"
	"time"

	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// DefaultTypeaheadTimeout clears the typeahead buffer after the last key.
const DefaultTypeaheadTimeout = 600 * time.Millisecond

// Tree is the slice of the tree-state store the dispatcher drives.
// *tree.Store implements it.
type Tree interface {
	Focused() tree.NodeID
	MostRecent() tree.NodeID
	SelectedIDs() []tree.NodeID
	SelectedCount() int
	IsEditing() bool
	Handlers() tree.Handlers

	IsSelected(id tree.NodeID) bool
	IsOpen(id tree.NodeID) bool
	IsInternal(id tree.NodeID) bool
	IsEditable(id tree.NodeID) bool
	Name(id tree.NodeID) string
	Parent(id tree.NodeID) tree.NodeID
	NextSibling(id tree.NodeID) tree.NodeID
	PrevSibling(id tree.NodeID) tree.NodeID

	VisibleCount() int
	VisibleAt(i int) tree.NodeID
	NextRow(id tree.NodeID) tree.NodeID
	PrevRow(id tree.NodeID) tree.NodeID
	FirstRow() tree.NodeID
	LastRow() tree.NodeID

	Focus(id tree.NodeID, opts tree.FocusOptions)
	Select(id tree.NodeID)
	SelectMulti(id tree.NodeID)
	SelectContiguous(id tree.NodeID)
	SelectAll()
	Activate(id tree.NodeID)
	Open(id tree.NodeID)
	Close(id tree.NodeID)
	Toggle(id tree.NodeID)
	OpenSiblings(id tree.NodeID)
	PageUp()
	PageDown()
	Delete(ids []tree.NodeID) error
	CreateLeaf() (tree.NodeID, error)
	CreateInternal() (tree.NodeID, error)
	Edit(id tree.NodeID) error
}

// Options configures a Dispatcher.
type Options struct {
	DisableMultiSelection bool
	TypeaheadTimeout      time.Duration

	// OnFocusOut asks the host to move focus out of the tree. reverse is
	// true for Shift+Tab.
	OnFocusOut func(reverse bool)
	// OnError receives errors from store mutations, such as a vetoed delete.
	OnError func(error)
}

// Dispatcher handles key events for one tree instance.
type Dispatcher struct {
	tree  Tree
	sched Scheduler
	opts  Options
	rules []Rule

	buffer      string
	cancelReset func()
}

// New creates a dispatcher. sched delivers the typeahead reset timer and
// deferred edit entry on the host's event loop.
func New(t Tree, sched Scheduler, opts Options) *Dispatcher {
	if opts.TypeaheadTimeout <= 0 {
		opts.TypeaheadTimeout = DefaultTypeaheadTimeout
	}
	d := &Dispatcher{tree: t, sched: sched, opts: opts}
	d.rules = defaultRules()
	return d
}

// Rules returns the rule table in evaluation order.
func (d *Dispatcher) Rules() []Rule {
	return d.rules
}

// MultiSelection reports whether multi-selection rules are active.
func (d *Dispatcher) MultiSelection() bool {
	return !d.opts.DisableMultiSelection
}

// Buffer returns the current typeahead buffer.
func (d *Dispatcher) Buffer() string {
	return d.buffer
}

// Handle processes one key press and reports whether it was consumed.
// Keys are ignored while a node is being renamed.
func (d *Dispatcher) Handle(ev KeyEvent) bool {
	defer metrics.Timer(metrics.KeyDispatch)()

	if d.tree.IsEditing() {
		return false
	}
	for _, r := range d.rules {
		if !r.Match(ev) {
			continue
		}
		if r.Guard != nil && !r.Guard(d) {
			continue
		}
		debug.Log("keys: %s -> %s", ev, r.Name)
		r.Action(d, ev)
		return true
	}
	if ev.Printable() {
		d.typeahead(ev.Key)
		return true
	}
	metrics.KeysUnhandled.Inc()
	return false
}

// typeahead appends key to the buffer, restarts the reset timer and
// focuses the first visible row whose name has the buffer as prefix.
func (d *Dispatcher) typeahead(key string) {
	d.buffer += strings.ToLower(key)
	if d.cancelReset != nil {
		d.cancelReset()
	}
	d.cancelReset = d.sched.AfterFunc(d.opts.TypeaheadTimeout, func() {
		d.buffer = ""
		d.cancelReset = nil
	})

	for i := 0; i < d.tree.VisibleCount(); i++ {
		id := d.tree.VisibleAt(i)
		if strings.HasPrefix(strings.ToLower(d.tree.Name(id)), d.buffer) {
			d.tree.Focus(id, tree.FocusOptions{Scroll: true})
			return
		}
	}
}

func (d *Dispatcher) report(err error) {
	if err == nil {
		return
	}
	debug.Log("keys: %v", err)
	if d.opts.OnError != nil {
		d.opts.OnError(err)
	}
}
