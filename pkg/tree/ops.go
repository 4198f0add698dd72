package tree

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/arbor/pkg/model"
)

// ErrNoHandler is returned by mutations whose external handler is not set.
var ErrNoHandler = errors.New("tree: no handler configured")

// ErrNotEditable is returned when editing a read-only or unknown node.
var ErrNotEditable = errors.New("tree: node is not editable")

// CreateRequest describes where a new node goes.
type CreateRequest struct {
	ParentKey string // empty for top level
	Index     int    // position among the parent's children
	Internal  bool
}

// Handlers are the external callbacks. A nil field disables the feature it
// backs; the keyboard dispatcher checks presence before matching a rule.
type Handlers struct {
	// OnDelete may veto the deletion by returning an error.
	OnDelete func(keys []string) error
	// OnCreate returns the entry to insert. Its ID must be unique.
	OnCreate func(req CreateRequest) (model.Entry, error)
	// OnRename may veto the rename by returning an error.
	OnRename func(key, name string) error

	OnActivate func(id NodeID)
	OnSelect   func(ids []NodeID)
	OnToggle   func(id NodeID, open bool)
}

// ── Focus ──

// Focus moves focus to id. Hidden nodes get their ancestors opened first.
// Unknown ids are ignored.
func (s *Store) Focus(id NodeID, opts FocusOptions) {
	if !s.valid(id) {
		return
	}
	s.openParents(id)
	s.focus = id
	if opts.Scroll {
		s.scrollTo(id)
	}
}

// ClearFocus drops focus without touching the selection.
func (s *Store) ClearFocus() {
	s.focus = NoNode
}

func (s *Store) scrollTo(id NodeID) {
	if s.scroller == nil {
		return
	}
	if row, ok := s.RowIndex(id); ok {
		s.scroller.ScrollToRow(row)
	}
}

// openParents opens every closed ancestor of id.
func (s *Store) openParents(id NodeID) {
	changed := false
	for p := s.nodes[id].parent; p > RootID; p = s.nodes[p].parent {
		if !s.nodes[p].open {
			s.nodes[p].open = true
			changed = true
		}
	}
	if changed {
		s.rebuildVisible()
	}
}

// ── Selection ──

func (s *Store) setSelected(id NodeID, on bool) {
	n := &s.nodes[id]
	if n.selected == on {
		return
	}
	n.selected = on
	if on {
		s.selected++
	} else {
		s.selected--
	}
}

func (s *Store) clearSelection() {
	if s.selected == 0 {
		return
	}
	s.walk(func(id NodeID) {
		s.nodes[id].selected = false
	})
	s.selected = 0
}

func (s *Store) notifySelect() {
	if s.handlers.OnSelect != nil {
		s.handlers.OnSelect(s.SelectedIDs())
	}
}

// Select replaces the selection with id and focuses it.
func (s *Store) Select(id NodeID) {
	if !s.valid(id) {
		return
	}
	s.clearSelection()
	s.setSelected(id, true)
	s.anchor = id
	s.mostRecent = id
	s.Focus(id, FocusOptions{Scroll: true})
	s.notifySelect()
}

// SelectMulti adds id to the selection and makes it the new anchor.
func (s *Store) SelectMulti(id NodeID) {
	if !s.valid(id) {
		return
	}
	s.setSelected(id, true)
	s.anchor = id
	s.mostRecent = id
	s.Focus(id, FocusOptions{Scroll: true})
	s.notifySelect()
}

// SelectContiguous replaces the previous anchor range with the range from
// the anchor to id.
func (s *Store) SelectContiguous(id NodeID) {
	if !s.valid(id) {
		return
	}
	from := s.Anchor()
	if from == NoNode {
		from = s.Focused()
	}
	if from == NoNode {
		from = id
	}
	for _, n := range s.between(from, s.MostRecent()) {
		s.setSelected(n, false)
	}
	for _, n := range s.between(from, id) {
		s.setSelected(n, true)
	}
	s.anchor = from
	s.mostRecent = id
	s.Focus(id, FocusOptions{Scroll: true})
	s.notifySelect()
}

// between returns the visible rows from a to b inclusive, in either order.
func (s *Store) between(a, b NodeID) []NodeID {
	i, ok1 := s.RowIndex(a)
	j, ok2 := s.RowIndex(b)
	if !ok1 || !ok2 {
		return nil
	}
	if i > j {
		i, j = j, i
	}
	return append([]NodeID(nil), s.visible[i:j+1]...)
}

// SelectAll selects every visible row.
func (s *Store) SelectAll() {
	if len(s.visible) == 0 {
		return
	}
	for _, id := range s.visible {
		s.setSelected(id, true)
	}
	s.anchor = s.FirstRow()
	s.mostRecent = s.LastRow()
	s.notifySelect()
}

// DeselectAll empties the selection.
func (s *Store) DeselectAll() {
	s.clearSelection()
	s.anchor = NoNode
	s.mostRecent = NoNode
	s.notifySelect()
}

// Activate reports id to the activation handler.
func (s *Store) Activate(id NodeID) {
	if !s.valid(id) {
		return
	}
	if s.handlers.OnActivate != nil {
		s.handlers.OnActivate(id)
	}
}

// ── Open state ──

func (s *Store) setOpen(id NodeID, open bool) bool {
	if !s.valid(id) || !s.nodes[id].internal || s.nodes[id].open == open {
		return false
	}
	s.nodes[id].open = open
	if s.handlers.OnToggle != nil {
		s.handlers.OnToggle(id, open)
	}
	return true
}

// Open expands an internal node.
func (s *Store) Open(id NodeID) {
	if s.setOpen(id, true) {
		s.rebuildVisible()
	}
}

// Close collapses an internal node. Focus inside the hidden subtree moves
// to the closed node.
func (s *Store) Close(id NodeID) {
	if !s.setOpen(id, false) {
		return
	}
	if s.IsAncestor(id, s.Focused()) {
		s.focus = id
	}
	s.rebuildVisible()
}

// Toggle flips the open state of an internal node.
func (s *Store) Toggle(id NodeID) {
	if s.IsOpen(id) {
		s.Close(id)
	} else {
		s.Open(id)
	}
}

// OpenSiblings opens id and every internal sibling at its level.
func (s *Store) OpenSiblings(id NodeID) {
	if !s.valid(id) {
		return
	}
	changed := false
	for _, sib := range s.nodes[s.nodes[id].parent].children {
		if s.setOpen(sib, true) {
			changed = true
		}
	}
	if changed {
		s.rebuildVisible()
	}
	if f := s.Focused(); f != NoNode {
		s.scrollTo(f)
	}
}

// OpenAll expands every internal node.
func (s *Store) OpenAll() {
	s.walk(func(id NodeID) {
		if s.nodes[id].internal {
			s.nodes[id].open = true
		}
	})
	s.rebuildVisible()
}

// CloseAll collapses every internal node. Focus moves to its top-level
// ancestor.
func (s *Store) CloseAll() {
	s.walk(func(id NodeID) {
		if s.nodes[id].internal {
			s.nodes[id].open = false
		}
	})
	if f := s.Focused(); f != NoNode {
		for s.nodes[f].parent != RootID {
			f = s.nodes[f].parent
		}
		s.focus = f
	}
	s.rebuildVisible()
}

// ── Paging ──

// pageRange returns the fully visible row range, or a ten row window around
// the focused row when no scroller is attached.
func (s *Store) pageRange() (start, stop int) {
	if s.scroller != nil {
		return s.scroller.VisibleRange()
	}
	row, _ := s.RowIndex(s.Focused())
	if row < 0 {
		row = 0
	}
	return row, row + 9
}

// PageUp focuses the first fully visible row, or one page above it when
// focus is already there.
func (s *Store) PageUp() {
	if len(s.visible) == 0 {
		return
	}
	start, stop := s.pageRange()
	page := stop - start
	index, ok := s.RowIndex(s.Focused())
	if !ok {
		index = 0
	}
	if index > start {
		index = start
	} else {
		index = max(start-page, 0)
	}
	s.Focus(s.VisibleAt(index), FocusOptions{Scroll: true})
}

// PageDown focuses the last fully visible row, or one page below it when
// focus is already there.
func (s *Store) PageDown() {
	if len(s.visible) == 0 {
		return
	}
	start, stop := s.pageRange()
	page := stop - start
	index, ok := s.RowIndex(s.Focused())
	if !ok {
		index = 0
	}
	if index < stop {
		index = stop
	} else {
		index += page
	}
	index = min(index, len(s.visible)-1)
	s.Focus(s.VisibleAt(index), FocusOptions{Scroll: true})
}

// ── Structural edits ──

// Delete removes ids and their subtrees after the delete handler agrees.
func (s *Store) Delete(ids []NodeID) error {
	if s.handlers.OnDelete == nil {
		return ErrNoHandler
	}
	var keys []string
	for _, id := range ids {
		if s.valid(id) {
			keys = append(keys, s.nodes[id].key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.handlers.OnDelete(keys); err != nil {
		return fmt.Errorf("deleting %d nodes: %w", len(keys), err)
	}
	for _, id := range ids {
		if s.valid(id) {
			s.remove(id)
		}
	}
	s.rebuildVisible()
	return nil
}

// remove tombstones id and its subtree and unlinks it from its parent.
func (s *Store) remove(id NodeID) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.nodes[n].selected {
			s.setSelected(n, false)
		}
		s.nodes[n].removed = true
		s.nodes[n].row = -1
		delete(s.byKey, s.nodes[n].key)
		stack = append(stack, s.nodes[n].children...)
	}

	p := s.nodes[id].parent
	siblings := s.nodes[p].children
	idx := s.nodes[id].childIndex
	siblings = append(siblings[:idx], siblings[idx+1:]...)
	s.nodes[p].children = siblings
	s.reindex(p)

	// Leave the visible sequence consistent with the removal before the
	// caller rebuilds it.
	kept := s.visible[:0]
	for _, v := range s.visible {
		if !s.nodes[v].removed {
			kept = append(kept, v)
		}
	}
	s.visible = kept
}

// reindex refreshes cached child positions under parent.
func (s *Store) reindex(parent NodeID) {
	for i, c := range s.nodes[parent].children {
		s.nodes[c].childIndex = i
	}
}

// insertionPoint mirrors the usual file-tree convention: inside an open
// focused folder at the top, otherwise right after the focused node.
func (s *Store) insertionPoint() (parent NodeID, index int) {
	f := s.Focused()
	if f == NoNode {
		return RootID, 0
	}
	if s.IsOpen(f) {
		return f, 0
	}
	return s.nodes[f].parent, s.nodes[f].childIndex + 1
}

// CreateLeaf asks the create handler for a new leaf next to the focus.
func (s *Store) CreateLeaf() (NodeID, error) {
	return s.create(false)
}

// CreateInternal asks the create handler for a new folder next to the focus.
func (s *Store) CreateInternal() (NodeID, error) {
	return s.create(true)
}

func (s *Store) create(internal bool) (NodeID, error) {
	if s.handlers.OnCreate == nil {
		return NoNode, ErrNoHandler
	}
	parent, index := s.insertionPoint()
	req := CreateRequest{Index: index, Internal: internal}
	if parent != RootID {
		req.ParentKey = s.nodes[parent].key
	}
	e, err := s.handlers.OnCreate(req)
	if err != nil {
		return NoNode, fmt.Errorf("creating node: %w", err)
	}
	if e.ID == "" {
		return NoNode, fmt.Errorf("creating node: handler returned an empty id")
	}
	if s.Find(e.ID) != NoNode {
		return NoNode, fmt.Errorf("creating node: duplicate id %q", e.ID)
	}
	if internal {
		e.Folder = true
	}
	e.Children = nil

	id := s.appendNode(e, parent)
	// appendNode placed it last; move it to the requested index.
	c := s.nodes[parent].children
	index = min(index, len(c)-1)
	copy(c[index+1:], c[index:len(c)-1])
	c[index] = id
	s.reindex(parent)
	s.rebuildVisible()

	s.Focus(id, FocusOptions{Scroll: true})
	s.editing = NoNode
	if s.nodes[id].editable && s.handlers.OnRename != nil {
		s.editing = id
	}
	return id, nil
}

// Edit puts id in edit mode.
func (s *Store) Edit(id NodeID) error {
	if !s.IsEditable(id) {
		return ErrNotEditable
	}
	s.Focus(id, FocusOptions{Scroll: true})
	s.editing = id
	return nil
}

// SubmitEdit renames the node in edit mode and leaves edit mode. A handler
// veto keeps edit mode active.
func (s *Store) SubmitEdit(name string) error {
	id := s.Editing()
	if id == NoNode {
		return nil
	}
	if s.handlers.OnRename != nil {
		if err := s.handlers.OnRename(s.nodes[id].key, name); err != nil {
			return fmt.Errorf("renaming %q: %w", s.nodes[id].key, err)
		}
	}
	s.nodes[id].name = name
	s.editing = NoNode
	return nil
}

// ResetEdit leaves edit mode without renaming.
func (s *Store) ResetEdit() {
	s.editing = NoNode
}

// ── Reload ──

// Replace swaps in a new set of entries. Open state, focus and selection are
// carried over by key.
func (s *Store) Replace(entries []model.Entry) {
	open := make(map[string]bool)
	s.walk(func(id NodeID) {
		if s.nodes[id].internal {
			open[s.nodes[id].key] = s.nodes[id].open
		}
	})
	focusKey := s.Key(s.Focused())
	anchorKey := s.Key(s.Anchor())
	recentKey := s.Key(s.MostRecent())
	var selected []string
	for _, id := range s.SelectedIDs() {
		selected = append(selected, s.nodes[id].key)
	}

	s.build(entries)
	s.selected = 0
	s.editing = NoNode
	for key, o := range open {
		if id := s.Find(key); id != NoNode && s.nodes[id].internal {
			s.nodes[id].open = o
		}
	}
	for _, key := range selected {
		if id := s.Find(key); id != NoNode {
			s.setSelected(id, true)
		}
	}
	s.rebuildVisible()
	s.focus = s.Find(focusKey)
	s.anchor = s.Find(anchorKey)
	s.mostRecent = s.Find(recentKey)
}
