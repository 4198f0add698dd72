package sticky

import (
	"slices"

	"github.com/vanderheijden86/arbor/pkg/tree"
)

// Header describes one pinned row.
type Header struct {
	Node       tree.NodeID
	Position   float64 // top edge relative to the viewport top, >= 0
	Height     float64
	StartIndex int // row of Node
	EndIndex   int // row of Node's last visible descendant
}

// Bottom is the header's bottom edge.
func (h Header) Bottom() float64 {
	return h.Position + h.Height
}

// State is an immutable snapshot of the pinned headers, shallowest first.
// The zero value is the empty state.
type State struct {
	headers []Header
}

// NewState builds a state from headers. Used by tests and renderers that
// replay a recorded state.
func NewState(headers ...Header) State {
	return State{headers: slices.Clone(headers)}
}

// Empty reports whether no header is pinned.
func (s State) Empty() bool {
	return len(s.headers) == 0
}

// Len returns the number of headers.
func (s State) Len() int {
	return len(s.headers)
}

// At returns header i.
func (s State) At(i int) Header {
	return s.headers[i]
}

// Headers returns a copy of the headers.
func (s State) Headers() []Header {
	return slices.Clone(s.headers)
}

// Height returns the bottom edge of the stack, 0 when empty.
func (s State) Height() float64 {
	var bottom float64
	for _, h := range s.headers {
		bottom = max(bottom, h.Bottom())
	}
	return bottom
}

// Contains reports whether id is pinned.
func (s State) Contains(id tree.NodeID) bool {
	for _, h := range s.headers {
		if h.Node == id {
			return true
		}
	}
	return false
}

// Equal reports whether both states pin the same nodes at the same
// positions.
func (s State) Equal(o State) bool {
	return slices.Equal(s.headers, o.headers)
}

// Nodes returns the pinned node ids in order.
func (s State) Nodes() []tree.NodeID {
	ids := make([]tree.NodeID, len(s.headers))
	for i, h := range s.headers {
		ids[i] = h.Node
	}
	return ids
}
