// Package sticky computes the stack of ancestor header rows pinned to the
// top of a scrolled tree viewport.
//
// Given a scroll offset, the engine finds the first row under the
// viewport top, then peels its ancestor chain from the top level down. Each
// ancestor becomes a header stacked below the previous one. When the
// ancestor's subtree is about to scroll out, its header is pushed up by the
// next sibling instead of overlapping it. Positions are float64 pixels
// relative to the viewport top.
package sticky

import (
	"errors"
	"fmt"
	"math"

	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// DefaultMaxNodes is the default cap on pinned headers.
const DefaultMaxNodes = 5

// MaxHeightRatio caps the stack bottom as a fraction of viewport height.
const MaxHeightRatio = 0.4

// ErrInconsistent means a node reached during computation has no row in
// the visible sequence.
var ErrInconsistent = errors.New("sticky: node missing from visible rows")

// Tree is the read-only view of the tree the engine walks.
type Tree interface {
	VisibleCount() int
	VisibleAt(i int) tree.NodeID
	RowIndex(id tree.NodeID) (int, bool)
	Parent(id tree.NodeID) tree.NodeID
	IsInternal(id tree.NodeID) bool
	IsOpen(id tree.NodeID) bool
	ChildCount(id tree.NodeID) int
	LastChild(id tree.NodeID) tree.NodeID
}

// Rows is the row index: uniform row height, viewport height and the
// currently mounted row range.
type Rows interface {
	RowHeight() float64
	Height() float64
	MountedRange() (start, stop int)
}

// Engine computes sticky state. It holds no per-frame state; each Compute
// is a pure function of the tree, the rows and the offset.
type Engine struct {
	tree     Tree
	rows     Rows
	enabled  bool
	maxNodes int
}

// Option configures an Engine.
type Option func(*Engine)

// WithEnabled turns sticky scroll on or off. On by default.
func WithEnabled(on bool) Option {
	return func(e *Engine) {
		e.enabled = on
	}
}

// WithMaxNodes caps the number of headers. Values below 1 use
// DefaultMaxNodes.
func WithMaxNodes(n int) Option {
	return func(e *Engine) {
		e.maxNodes = n
	}
}

// New creates an engine over t and r.
func New(t Tree, r Rows, opts ...Option) *Engine {
	e := &Engine{tree: t, rows: r, enabled: true, maxNodes: DefaultMaxNodes}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxNodes < 1 {
		e.maxNodes = DefaultMaxNodes
	}
	return e
}

// Enabled reports whether Compute produces headers.
func (e *Engine) Enabled() bool { return e.enabled }

// SetEnabled turns sticky scroll on or off. A disabled engine computes the
// empty state.
func (e *Engine) SetEnabled(on bool) { e.enabled = on }

// MaxNodes returns the cap on stacked headers.
func (e *Engine) MaxNodes() int { return e.maxNodes }

// Compute returns the sticky state for scrollOffset. The empty state is
// returned when disabled, when there are no rows, when the offset is not
// positive, and when the anchor row is outside the mounted range.
func (e *Engine) Compute(scrollOffset float64) (State, error) {
	defer metrics.Timer(metrics.StickyCompute)()

	if !e.enabled || e.tree.VisibleCount() == 0 || !(scrollOffset > 0) {
		return State{}, nil
	}
	rh := e.rows.RowHeight()
	if rh <= 0 {
		return State{}, nil
	}

	anchor := e.anchorRow(scrollOffset, rh)
	if anchor == tree.NoNode {
		return State{}, nil
	}

	var headers []Header
	previous := tree.RootID
	stackHeight := 0.0
	for len(headers) < e.maxNodes {
		candidate := e.ancestorUnder(anchor, previous)
		if candidate == tree.NoNode {
			break
		}
		start, ok := e.tree.RowIndex(candidate)
		if !ok {
			return State{}, fmt.Errorf("header %d: %w", candidate, ErrInconsistent)
		}
		if candidate == anchor {
			if !e.uncollapsedParent(candidate) {
				break
			}
			if float64(start)*rh-scrollOffset == stackHeight {
				break
			}
		}

		end, err := e.lastDescendantRow(candidate)
		if err != nil {
			return State{}, err
		}
		pos := pushedPosition(end, rh, scrollOffset, stackHeight)
		headers = append(headers, Header{
			Node:       candidate,
			Position:   pos,
			Height:     rh,
			StartIndex: start,
			EndIndex:   end,
		})
		stackHeight += rh
		previous = candidate

		// A pushed header is the last one: the rows under it belong to
		// the next sibling subtree.
		if pos < stackHeight-rh {
			break
		}
		next := int(math.Floor((scrollOffset + pos + rh) / rh))
		anchor = e.tree.VisibleAt(next)
		if anchor == tree.NoNode {
			break
		}
	}

	return State{headers: e.constrain(headers)}, nil
}

// anchorRow returns the node of the first row under the viewport top,
// clamped into the mounted range.
func (e *Engine) anchorRow(scrollOffset, rh float64) tree.NodeID {
	start, stop := e.rows.MountedRange()
	if start > stop {
		return tree.NoNode
	}
	idx := int(math.Floor(scrollOffset / rh))
	idx = min(max(idx, start), stop)
	return e.tree.VisibleAt(idx)
}

// ancestorUnder walks up from id and returns the ancestor whose parent is
// previous. With previous == RootID that is the top-level ancestor.
func (e *Engine) ancestorUnder(id, previous tree.NodeID) tree.NodeID {
	cur := id
	for {
		p := e.tree.Parent(cur)
		if p == tree.NoNode {
			return tree.NoNode
		}
		if p == previous {
			return cur
		}
		cur = p
	}
}

func (e *Engine) uncollapsedParent(id tree.NodeID) bool {
	return e.tree.IsInternal(id) && e.tree.IsOpen(id) && e.tree.ChildCount(id) > 0
}

// lastDescendantRow returns the row of the deepest last visible descendant
// of id, or id's own row when it is closed or empty.
func (e *Engine) lastDescendantRow(id tree.NodeID) (int, error) {
	last := id
	for e.uncollapsedParent(last) {
		last = e.tree.LastChild(last)
	}
	row, ok := e.tree.RowIndex(last)
	if !ok {
		return 0, fmt.Errorf("last descendant %d of %d: %w", last, id, ErrInconsistent)
	}
	return row, nil
}

// pushedPosition slides a header up when the bottom of its subtree's last
// row falls inside the header's slot.
func pushedPosition(endIndex int, rh, scrollOffset, stackHeight float64) float64 {
	bottom := float64(endIndex)*rh - scrollOffset + rh
	if stackHeight+rh > bottom && stackHeight <= bottom {
		return max(bottom-rh, 0)
	}
	return stackHeight
}

// constrain truncates at the first header that reaches past the height cap
// or the count cap.
func (e *Engine) constrain(headers []Header) []Header {
	limit := MaxHeightRatio * e.rows.Height()
	for i, h := range headers {
		if h.Position+h.Height > limit || i >= e.maxNodes {
			return headers[:i]
		}
	}
	return headers
}
