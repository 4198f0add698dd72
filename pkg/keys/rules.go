package keys

import (
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// Rule is one row of the dispatch table.
type Rule struct {
	Name   string
	Keys   string // shown in help
	Help   string
	Match  func(ev KeyEvent) bool
	Guard  func(d *Dispatcher) bool // nil means always
	Action func(d *Dispatcher, ev KeyEvent)
}

func key(name string) func(KeyEvent) bool {
	return func(ev KeyEvent) bool { return ev.Key == name }
}

func plainKey(name string) func(KeyEvent) bool {
	return func(ev KeyEvent) bool { return ev.Key == name && !ev.Mod() }
}

func hasDelete(d *Dispatcher) bool { return d.tree.Handlers().OnDelete != nil }
func hasCreate(d *Dispatcher) bool { return d.tree.Handlers().OnCreate != nil }
func multi(d *Dispatcher) bool     { return d.MultiSelection() }

var noScroll = tree.FocusOptions{}
var scroll = tree.FocusOptions{Scroll: true}

func defaultRules() []Rule {
	return []Rule{
		{
			Name:  "delete",
			Keys:  "backspace",
			Help:  "delete selected rows",
			Match: func(ev KeyEvent) bool { return ev.Key == KeyBackspace || ev.Key == KeyDelete },
			Guard: hasDelete,
			Action: func(d *Dispatcher, _ KeyEvent) {
				d.deleteSelection()
			},
		},
		{
			Name:  "focus-out",
			Keys:  "tab / shift+tab",
			Help:  "leave the tree",
			Match: key(KeyTab),
			Action: func(d *Dispatcher, ev KeyEvent) {
				if d.opts.OnFocusOut != nil {
					d.opts.OnFocusOut(ev.Shift)
				}
			},
		},
		{
			Name:   "activate-next",
			Keys:   "meta+down",
			Help:   "select and activate",
			Match:  func(ev KeyEvent) bool { return ev.Key == KeyDown && ev.Mod() },
			Action: (*Dispatcher).selectAndActivate,
		},
		{
			Name: "down",
			Keys: "down",
			Help: "next row",
			Match: func(ev KeyEvent) bool {
				return ev.Key == KeyDown && !ev.Shift
			},
			Action: (*Dispatcher).focusNext,
		},
		{
			// Shift+Down with multi-selection disabled behaves like Down.
			Name:   "down-plain",
			Match:  func(ev KeyEvent) bool { return ev.Key == KeyDown },
			Guard:  func(d *Dispatcher) bool { return !d.MultiSelection() },
			Action: (*Dispatcher).focusNext,
		},
		{
			Name:  "extend-down",
			Keys:  "shift+down",
			Help:  "extend selection down",
			Match: func(ev KeyEvent) bool { return ev.Key == KeyDown && ev.Shift },
			Guard: multi,
			Action: func(d *Dispatcher, _ KeyEvent) {
				d.extendSelection(d.tree.NextRow)
			},
		},
		{
			Name:   "activate-prev",
			Keys:   "meta+up",
			Help:   "select and activate",
			Match:  func(ev KeyEvent) bool { return ev.Key == KeyUp && ev.Mod() },
			Action: (*Dispatcher).selectAndActivate,
		},
		{
			Name: "up",
			Keys: "up",
			Help: "previous row",
			Match: func(ev KeyEvent) bool {
				return ev.Key == KeyUp && !ev.Shift
			},
			Action: (*Dispatcher).focusPrev,
		},
		{
			Name:   "up-plain",
			Match:  func(ev KeyEvent) bool { return ev.Key == KeyUp },
			Guard:  func(d *Dispatcher) bool { return !d.MultiSelection() },
			Action: (*Dispatcher).focusPrev,
		},
		{
			Name:  "extend-up",
			Keys:  "shift+up",
			Help:  "extend selection up",
			Match: func(ev KeyEvent) bool { return ev.Key == KeyUp && ev.Shift },
			Guard: multi,
			Action: func(d *Dispatcher, _ KeyEvent) {
				d.extendSelection(d.tree.PrevRow)
			},
		},
		{
			Name:  "right",
			Keys:  "right",
			Help:  "open folder or step into it",
			Match: key(KeyRight),
			Action: func(d *Dispatcher, _ KeyEvent) {
				f := d.tree.Focused()
				if f == tree.NoNode || !d.tree.IsInternal(f) {
					return
				}
				if d.tree.IsOpen(f) {
					if next := d.tree.NextRow(f); next != tree.NoNode {
						d.tree.Focus(next, scroll)
					}
					return
				}
				d.tree.Open(f)
			},
		},
		{
			Name:  "left",
			Keys:  "left",
			Help:  "close folder or go to parent",
			Match: key(KeyLeft),
			Action: func(d *Dispatcher, _ KeyEvent) {
				f := d.tree.Focused()
				if f == tree.NoNode {
					return
				}
				if d.tree.IsOpen(f) {
					d.tree.Close(f)
					return
				}
				if p := d.tree.Parent(f); p != tree.NoNode && p != tree.RootID {
					d.tree.Focus(p, scroll)
				}
			},
		},
		{
			Name:  "select-all",
			Keys:  "ctrl+a",
			Help:  "select all rows",
			Match: func(ev KeyEvent) bool { return ev.Key == "a" && ev.Mod() },
			Guard: multi,
			Action: func(d *Dispatcher, _ KeyEvent) {
				d.tree.SelectAll()
			},
		},
		{
			Name:  "create-leaf",
			Keys:  "a",
			Help:  "new file",
			Match: plainKey("a"),
			Guard: hasCreate,
			Action: func(d *Dispatcher, _ KeyEvent) {
				_, err := d.tree.CreateLeaf()
				d.report(err)
			},
		},
		{
			Name:  "create-internal",
			Keys:  "A",
			Help:  "new folder",
			Match: plainKey("A"),
			Guard: hasCreate,
			Action: func(d *Dispatcher, _ KeyEvent) {
				_, err := d.tree.CreateInternal()
				d.report(err)
			},
		},
		{
			Name:  "first",
			Keys:  "home",
			Help:  "first row",
			Match: key(KeyHome),
			Action: func(d *Dispatcher, _ KeyEvent) {
				d.tree.Focus(d.tree.FirstRow(), scroll)
			},
		},
		{
			Name:  "last",
			Keys:  "end",
			Help:  "last row",
			Match: key(KeyEnd),
			Action: func(d *Dispatcher, _ KeyEvent) {
				d.tree.Focus(d.tree.LastRow(), scroll)
			},
		},
		{
			Name:  "rename",
			Keys:  "enter",
			Help:  "rename",
			Match: key(KeyEnter),
			Guard: func(d *Dispatcher) bool {
				f := d.tree.Focused()
				return f != tree.NoNode && d.tree.IsEditable(f) && d.tree.Handlers().OnRename != nil
			},
			Action: func(d *Dispatcher, _ KeyEvent) {
				id := d.tree.Focused()
				d.sched.Defer(func() {
					d.report(d.tree.Edit(id))
				})
			},
		},
		{
			Name:  "toggle",
			Keys:  "space",
			Help:  "open/close folder, activate file",
			Match: plainKey(KeySpace),
			Action: func(d *Dispatcher, _ KeyEvent) {
				f := d.tree.Focused()
				if f == tree.NoNode {
					return
				}
				if d.tree.IsInternal(f) {
					d.tree.Toggle(f)
					return
				}
				d.tree.Select(f)
				d.tree.Activate(f)
			},
		},
		{
			Name:  "open-siblings",
			Keys:  "*",
			Help:  "open all folders at this level",
			Match: plainKey("*"),
			Action: func(d *Dispatcher, _ KeyEvent) {
				if f := d.tree.Focused(); f != tree.NoNode {
					d.tree.OpenSiblings(f)
				}
			},
		},
		{
			Name:  "page-up",
			Keys:  "pgup",
			Help:  "page up",
			Match: key(KeyPgUp),
			Action: func(d *Dispatcher, _ KeyEvent) {
				d.tree.PageUp()
			},
		},
		{
			Name:  "page-down",
			Keys:  "pgdown",
			Help:  "page down",
			Match: key(KeyPgDown),
			Action: func(d *Dispatcher, _ KeyEvent) {
				d.tree.PageDown()
			},
		},
	}
}

func (d *Dispatcher) focusNext(KeyEvent) {
	f := d.tree.Focused()
	if f == tree.NoNode {
		d.tree.Focus(d.tree.FirstRow(), scroll)
		return
	}
	if next := d.tree.NextRow(f); next != tree.NoNode {
		d.tree.Focus(next, scroll)
	}
}

func (d *Dispatcher) focusPrev(KeyEvent) {
	f := d.tree.Focused()
	if f == tree.NoNode {
		d.tree.Focus(d.tree.FirstRow(), scroll)
		return
	}
	if prev := d.tree.PrevRow(f); prev != tree.NoNode {
		d.tree.Focus(prev, scroll)
	}
}

func (d *Dispatcher) selectAndActivate(KeyEvent) {
	f := d.tree.Focused()
	if f == tree.NoNode {
		return
	}
	d.tree.Select(f)
	d.tree.Activate(f)
}

// extendSelection grows the selection one row in the direction of step.
// A focused row that is not yet selected starts a fresh selection.
func (d *Dispatcher) extendSelection(step func(tree.NodeID) tree.NodeID) {
	f := d.tree.Focused()
	if f == tree.NoNode {
		d.tree.Focus(d.tree.FirstRow(), scroll)
		return
	}
	next := step(f)
	if next == tree.NoNode {
		return
	}
	if d.tree.IsSelected(f) {
		d.tree.SelectContiguous(next)
		return
	}
	// Select sets the anchor to f, so the contiguous range grows from there.
	d.tree.Select(f)
	d.tree.SelectContiguous(next)
}

// deleteSelection moves focus off the rows about to disappear, then deletes
// them.
func (d *Dispatcher) deleteSelection() {
	if d.tree.SelectedCount() > 1 {
		ids := d.tree.SelectedIDs()
		next := d.tree.MostRecent()
		if next == tree.NoNode {
			next = d.tree.Focused()
		}
		for next != tree.NoNode && d.doomed(next) {
			next = d.tree.NextSibling(next)
		}
		if next == tree.NoNode {
			next = d.lastSurvivor()
		}
		d.tree.Focus(next, noScroll)
		d.report(d.tree.Delete(ids))
		if d.tree.Focused() == tree.NoNode && d.tree.VisibleCount() > 0 {
			d.tree.Focus(d.tree.LastRow(), noScroll)
		}
		return
	}

	f := d.tree.Focused()
	if f == tree.NoNode {
		return
	}
	next := d.tree.NextSibling(f)
	if next == tree.NoNode {
		next = d.tree.PrevSibling(f)
	}
	if next == tree.NoNode {
		if p := d.tree.Parent(f); p != tree.RootID {
			next = p
		}
	}
	if next != tree.NoNode {
		d.tree.Focus(next, noScroll)
	}
	d.report(d.tree.Delete([]tree.NodeID{f}))
}

// doomed reports whether deleting the selection removes id, either directly
// or with a selected ancestor.
func (d *Dispatcher) doomed(id tree.NodeID) bool {
	for n := id; n != tree.NoNode && n != tree.RootID; n = d.tree.Parent(n) {
		if d.tree.IsSelected(n) {
			return true
		}
	}
	return false
}

// lastSurvivor returns the last visible row that outlives the delete.
func (d *Dispatcher) lastSurvivor() tree.NodeID {
	for n := d.tree.LastRow(); n != tree.NoNode; n = d.tree.PrevRow(n) {
		if !d.doomed(n) {
			return n
		}
	}
	return tree.NoNode
}
