// Package tree holds the tree-state store: node arena, open flags, selection,
// focus, edit state and the flattened sequence of visible rows.
//
// Nodes are addressed by NodeID, an index into the store's arena. IDs stay
// valid for the lifetime of a Store (deleted nodes are tombstoned, never
// reused), so callers holding an ID after a structural change get "absent"
// answers instead of a different node.
package tree

import (
	"github.com/vanderheijden86/arbor/pkg/model"
)

// NodeID addresses a node in the store's arena.
type NodeID int32

const (
	// NoNode is returned by lookups that find nothing.
	NoNode NodeID = -1
	// RootID is the synthetic root. It has no row and level -1.
	RootID NodeID = 0
)

// node is the arena record. parent is a non-owning back-reference.
type node struct {
	key        string
	name       string
	parent     NodeID
	children   []NodeID
	childIndex int // position within parent's children
	level      int
	internal   bool
	open       bool
	selected   bool
	editable   bool
	removed    bool
	row        int // index in visible, -1 when hidden
}

// Scroller is implemented by the virtualization layer so the store can ask
// for a row to be brought into view and learn the fully visible row range.
type Scroller interface {
	ScrollToRow(index int)
	VisibleRange() (start, stop int)
}

// FocusOptions controls side effects of Focus.
type FocusOptions struct {
	Scroll bool
}

// Store is the tree-state store. It is not safe for concurrent use; all
// access happens on the UI event loop.
type Store struct {
	nodes   []node
	byKey   map[string]NodeID
	visible []NodeID

	focus      NodeID
	anchor     NodeID
	mostRecent NodeID
	editing    NodeID
	selected   int

	openDepth int
	handlers  Handlers
	scroller  Scroller
}

// Option configures a Store.
type Option func(*Store)

// WithHandlers installs the external callbacks.
func WithHandlers(h Handlers) Option {
	return func(s *Store) {
		s.handlers = h
	}
}

// WithOpenDepth opens internal nodes whose level is below depth when the
// tree is built. Zero leaves everything closed.
func WithOpenDepth(depth int) Option {
	return func(s *Store) {
		s.openDepth = depth
	}
}

// WithScroller attaches the virtualization layer.
func WithScroller(sc Scroller) Option {
	return func(s *Store) {
		s.scroller = sc
	}
}

// New builds a store from entries.
func New(entries []model.Entry, opts ...Option) *Store {
	s := &Store{
		focus:      NoNode,
		anchor:     NoNode,
		mostRecent: NoNode,
		editing:    NoNode,
		openDepth:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.build(entries)
	return s
}

// SetScroller attaches or replaces the virtualization layer.
func (s *Store) SetScroller(sc Scroller) {
	s.scroller = sc
}

// SetHandlers replaces the external callbacks.
func (s *Store) SetHandlers(h Handlers) {
	s.handlers = h
}

// Handlers returns the configured callbacks. Presence of a callback gates
// the matching keyboard rule.
func (s *Store) Handlers() Handlers {
	return s.handlers
}

// build resets the arena from entries using an explicit stack.
func (s *Store) build(entries []model.Entry) {
	s.nodes = s.nodes[:0]
	s.visible = nil
	s.byKey = make(map[string]NodeID)
	s.nodes = append(s.nodes, node{
		parent:   NoNode,
		level:    -1,
		internal: true,
		open:     true,
		row:      -1,
	})

	type frame struct {
		entry  model.Entry
		parent NodeID
	}
	// Push in reverse so children are appended in order.
	stack := make([]frame, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		stack = append(stack, frame{entries[i], RootID})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		id := s.appendNode(f.entry, f.parent)
		for i := len(f.entry.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.entry.Children[i], id})
		}
	}
	s.rebuildVisible()
}

// appendNode adds a node for e as the last child of parent.
func (s *Store) appendNode(e model.Entry, parent NodeID) NodeID {
	id := NodeID(len(s.nodes))
	level := s.nodes[parent].level + 1
	n := node{
		key:      e.ID,
		name:     e.Name,
		parent:   parent,
		level:    level,
		internal: e.IsInternal(),
		editable: !e.ReadOnly,
		row:      -1,
	}
	if n.internal && level < s.openDepth {
		n.open = true
	}
	s.nodes = append(s.nodes, n)
	p := &s.nodes[parent]
	s.nodes[id].childIndex = len(p.children)
	p.children = append(p.children, id)
	if e.ID != "" {
		s.byKey[e.ID] = id
	}
	return id
}

// rebuildVisible flattens the open part of the tree in depth-first order.
func (s *Store) rebuildVisible() {
	for _, id := range s.visible {
		if s.valid(id) {
			s.nodes[id].row = -1
		}
	}
	s.visible = s.visible[:0]

	root := &s.nodes[RootID]
	stack := make([]NodeID, 0, len(root.children))
	for i := len(root.children) - 1; i >= 0; i-- {
		stack = append(stack, root.children[i])
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &s.nodes[id]
		n.row = len(s.visible)
		s.visible = append(s.visible, id)
		if n.internal && n.open {
			for i := len(n.children) - 1; i >= 0; i-- {
				stack = append(stack, n.children[i])
			}
		}
	}
}

// valid reports whether id names a live, non-root node.
func (s *Store) valid(id NodeID) bool {
	return id > RootID && int(id) < len(s.nodes) && !s.nodes[id].removed
}

// ── Node traversal facade ──

// Find returns the node with the given stable key, or NoNode.
func (s *Store) Find(key string) NodeID {
	id, ok := s.byKey[key]
	if !ok || !s.valid(id) {
		return NoNode
	}
	return id
}

// Key returns the stable identifier of a node.
func (s *Store) Key(id NodeID) string {
	if !s.valid(id) {
		return ""
	}
	return s.nodes[id].key
}

// Name returns the display name of a node.
func (s *Store) Name(id NodeID) string {
	if !s.valid(id) {
		return ""
	}
	return s.nodes[id].name
}

// Parent returns the parent of id. Top-level nodes return RootID; the root
// and unknown ids return NoNode.
func (s *Store) Parent(id NodeID) NodeID {
	if !s.valid(id) {
		return NoNode
	}
	return s.nodes[id].parent
}

// IsRoot reports whether id is the synthetic root.
func (s *Store) IsRoot(id NodeID) bool {
	return id == RootID
}

// Level returns the nesting level: -1 for the root, 0 for top-level rows.
func (s *Store) Level(id NodeID) int {
	if id == RootID {
		return -1
	}
	if !s.valid(id) {
		return -1
	}
	return s.nodes[id].level
}

// Children returns a copy of the ordered children of id.
func (s *Store) Children(id NodeID) []NodeID {
	if id != RootID && !s.valid(id) {
		return nil
	}
	return append([]NodeID(nil), s.nodes[id].children...)
}

// ChildCount returns the number of children of id.
func (s *Store) ChildCount(id NodeID) int {
	if id != RootID && !s.valid(id) {
		return 0
	}
	return len(s.nodes[id].children)
}

// LastChild returns the last child of id, or NoNode.
func (s *Store) LastChild(id NodeID) NodeID {
	if id != RootID && !s.valid(id) {
		return NoNode
	}
	c := s.nodes[id].children
	if len(c) == 0 {
		return NoNode
	}
	return c[len(c)-1]
}

// NextSibling returns the sibling after id, or NoNode.
func (s *Store) NextSibling(id NodeID) NodeID {
	if !s.valid(id) {
		return NoNode
	}
	n := s.nodes[id]
	siblings := s.nodes[n.parent].children
	if n.childIndex+1 < len(siblings) {
		return siblings[n.childIndex+1]
	}
	return NoNode
}

// PrevSibling returns the sibling before id, or NoNode.
func (s *Store) PrevSibling(id NodeID) NodeID {
	if !s.valid(id) {
		return NoNode
	}
	n := s.nodes[id]
	if n.childIndex > 0 {
		return s.nodes[n.parent].children[n.childIndex-1]
	}
	return NoNode
}

// IsInternal reports whether id is a container.
func (s *Store) IsInternal(id NodeID) bool {
	return s.valid(id) && s.nodes[id].internal
}

// IsLeaf reports whether id is a leaf.
func (s *Store) IsLeaf(id NodeID) bool {
	return s.valid(id) && !s.nodes[id].internal
}

// IsOpen reports whether id is an open container.
func (s *Store) IsOpen(id NodeID) bool {
	return s.valid(id) && s.nodes[id].internal && s.nodes[id].open
}

// IsSelected reports whether id is in the selection set.
func (s *Store) IsSelected(id NodeID) bool {
	return s.valid(id) && s.nodes[id].selected
}

// IsEditable reports whether id may be renamed.
func (s *Store) IsEditable(id NodeID) bool {
	return s.valid(id) && s.nodes[id].editable
}

// IsAncestor reports whether a is a proper ancestor of id.
func (s *Store) IsAncestor(a, id NodeID) bool {
	for p := s.Parent(id); p != NoNode; p = s.Parent(p) {
		if p == a {
			return true
		}
	}
	return false
}

// Path returns the display names from the top-level ancestor down to id.
func (s *Store) Path(id NodeID) []string {
	var path []string
	for n := id; s.valid(n); n = s.nodes[n].parent {
		path = append(path, s.nodes[n].name)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ── Visible row sequence ──

// VisibleCount returns the number of visible rows.
func (s *Store) VisibleCount() int {
	return len(s.visible)
}

// VisibleAt returns the node at row i, or NoNode.
func (s *Store) VisibleAt(i int) NodeID {
	if i < 0 || i >= len(s.visible) {
		return NoNode
	}
	return s.visible[i]
}

// RowIndex returns the row of id in the visible sequence.
func (s *Store) RowIndex(id NodeID) (int, bool) {
	if !s.valid(id) || s.nodes[id].row < 0 {
		return -1, false
	}
	return s.nodes[id].row, true
}

// Visible returns a copy of the visible row sequence.
func (s *Store) Visible() []NodeID {
	return append([]NodeID(nil), s.visible...)
}

// FirstRow returns the first visible row, or NoNode.
func (s *Store) FirstRow() NodeID {
	return s.VisibleAt(0)
}

// LastRow returns the last visible row, or NoNode.
func (s *Store) LastRow() NodeID {
	return s.VisibleAt(len(s.visible) - 1)
}

// NextRow returns the row after id, or NoNode.
func (s *Store) NextRow(id NodeID) NodeID {
	i, ok := s.RowIndex(id)
	if !ok {
		return NoNode
	}
	return s.VisibleAt(i + 1)
}

// PrevRow returns the row before id, or NoNode.
func (s *Store) PrevRow(id NodeID) NodeID {
	i, ok := s.RowIndex(id)
	if !ok {
		return NoNode
	}
	return s.VisibleAt(i - 1)
}

// ── Focus, selection, edit state ──

// Focused returns the focused node, or NoNode.
func (s *Store) Focused() NodeID {
	if !s.valid(s.focus) {
		return NoNode
	}
	return s.focus
}

// MostRecent returns the most recently selected node, or NoNode.
func (s *Store) MostRecent() NodeID {
	if !s.valid(s.mostRecent) {
		return NoNode
	}
	return s.mostRecent
}

// Anchor returns the anchor of the current range selection, or NoNode.
func (s *Store) Anchor() NodeID {
	if !s.valid(s.anchor) {
		return NoNode
	}
	return s.anchor
}

// SelectedCount returns the size of the selection set.
func (s *Store) SelectedCount() int {
	return s.selected
}

// SelectedIDs returns the selected nodes in tree order.
func (s *Store) SelectedIDs() []NodeID {
	if s.selected == 0 {
		return nil
	}
	ids := make([]NodeID, 0, s.selected)
	s.walk(func(id NodeID) {
		if s.nodes[id].selected {
			ids = append(ids, id)
		}
	})
	return ids
}

// Editing returns the node in edit mode, or NoNode.
func (s *Store) Editing() NodeID {
	if !s.valid(s.editing) {
		return NoNode
	}
	return s.editing
}

// IsEditing reports whether any node is in edit mode.
func (s *Store) IsEditing() bool {
	return s.Editing() != NoNode
}

// Len returns the number of live nodes, excluding the root.
func (s *Store) Len() int {
	n := 0
	s.walk(func(NodeID) { n++ })
	return n
}

// walk visits every live node in depth-first order regardless of open state.
func (s *Store) walk(fn func(NodeID)) {
	root := s.nodes[RootID].children
	stack := make([]NodeID, 0, len(root))
	for i := len(root) - 1; i >= 0; i-- {
		stack = append(stack, root[i])
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(id)
		c := s.nodes[id].children
		for i := len(c) - 1; i >= 0; i-- {
			stack = append(stack, c[i])
		}
	}
}
