// Package rows is the row index of the virtualized list: uniform row
// height, scroll offset, viewport size and the mounted row range.
//
// All measurements are float64 "pixels". The terminal widget uses one unit
// per line; other renderers may use fractional offsets.
package rows

import "math"

// Viewport tracks the scroll position over count rows of equal height.
type Viewport struct {
	rowHeight float64
	width     float64
	height    float64
	overscan  int
	count     int
	offset    float64
}

// New creates a viewport. Non-positive row heights become 1.
func New(rowHeight, height, width float64, overscan int) *Viewport {
	if rowHeight <= 0 {
		rowHeight = 1
	}
	return &Viewport{
		rowHeight: rowHeight,
		width:     max(width, 0),
		height:    max(height, 0),
		overscan:  max(overscan, 0),
	}
}

// RowHeight returns the uniform height of one row.
func (v *Viewport) RowHeight() float64 { return v.rowHeight }

// Height returns the viewport height.
func (v *Viewport) Height() float64 { return v.height }

// Width returns the viewport width.
func (v *Viewport) Width() float64 { return v.width }

// Count returns the number of rows.
func (v *Viewport) Count() int { return v.count }

// Offset returns the scroll offset, always within [0, MaxOffset()].
func (v *Viewport) Offset() float64 { return v.offset }

// SetCount updates the number of rows and re-clamps the offset.
func (v *Viewport) SetCount(n int) {
	v.count = max(n, 0)
	v.offset = v.clamp(v.offset)
}

// Resize updates the viewport size and re-clamps the offset.
func (v *Viewport) Resize(width, height float64) {
	v.width = max(width, 0)
	v.height = max(height, 0)
	v.offset = v.clamp(v.offset)
}

// MaxOffset is the largest valid scroll offset.
func (v *Viewport) MaxOffset() float64 {
	return max(0, float64(v.count)*v.rowHeight-v.height)
}

func (v *Viewport) clamp(offset float64) float64 {
	if offset < 0 || math.IsNaN(offset) {
		return 0
	}
	return min(offset, v.MaxOffset())
}

// ScrollTo sets the offset, clamped to the scrollable range. It reports
// whether the offset changed.
func (v *Viewport) ScrollTo(offset float64) bool {
	next := v.clamp(offset)
	if next == v.offset {
		return false
	}
	v.offset = next
	return true
}

// ScrollBy moves the offset by delta pixels.
func (v *Viewport) ScrollBy(delta float64) bool {
	return v.ScrollTo(v.offset + delta)
}

// VisibleRange returns the first and last row that intersect the viewport.
// An empty list yields (0, -1).
func (v *Viewport) VisibleRange() (start, stop int) {
	if v.count == 0 {
		return 0, -1
	}
	start = int(math.Floor(v.offset / v.rowHeight))
	stop = int(math.Ceil((v.offset+v.height)/v.rowHeight)) - 1
	start = min(max(start, 0), v.count-1)
	stop = min(max(stop, start), v.count-1)
	return start, stop
}

// MountedRange is the visible range widened by the overscan on both sides.
// These are the rows a renderer keeps materialized.
func (v *Viewport) MountedRange() (start, stop int) {
	start, stop = v.VisibleRange()
	if stop < start {
		return start, stop
	}
	return max(start-v.overscan, 0), min(stop+v.overscan, v.count-1)
}

// RowTop returns the top edge of row i relative to the viewport top.
func (v *Viewport) RowTop(i int) float64 {
	return float64(i)*v.rowHeight - v.offset
}

// IndexAt returns the row under viewport coordinate y, or -1.
func (v *Viewport) IndexAt(y float64) int {
	if y < 0 || y >= v.height {
		return -1
	}
	i := int(math.Floor((v.offset + y) / v.rowHeight))
	if i < 0 || i >= v.count {
		return -1
	}
	return i
}

// PageSize is the number of whole rows that fit in the viewport.
func (v *Viewport) PageSize() int {
	return max(1, int(math.Floor(v.height/v.rowHeight)))
}

// EnsureVisible scrolls the minimum amount to show row i entirely below
// topInset, the space covered by overlays at the top of the viewport.
func (v *Viewport) EnsureVisible(i int, topInset float64) bool {
	if i < 0 || i >= v.count {
		return false
	}
	top := float64(i) * v.rowHeight
	bottom := top + v.rowHeight
	switch {
	case top < v.offset+topInset:
		return v.ScrollTo(top - topInset)
	case bottom > v.offset+v.height:
		return v.ScrollTo(bottom - v.height)
	}
	return false
}

// ScrollToRow shows row i with no top inset.
func (v *Viewport) ScrollToRow(i int) {
	v.EnsureVisible(i, 0)
}
