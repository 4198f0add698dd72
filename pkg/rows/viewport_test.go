package rows

import "testing"

func TestScrollToClamps(t *testing.T) {
	v := New(1, 10, 40, 2)
	v.SetCount(25)

	tests := []struct {
		name   string
		offset float64
		want   float64
	}{
		{"negative", -5, 0},
		{"inside", 7, 7},
		{"fractional", 3.5, 3.5},
		{"past end", 100, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v.ScrollTo(tt.offset)
			if v.Offset() != tt.want {
				t.Errorf("ScrollTo(%v) = %v, want %v", tt.offset, v.Offset(), tt.want)
			}
		})
	}
}

func TestScrollToReportsChange(t *testing.T) {
	v := New(1, 10, 40, 0)
	v.SetCount(25)
	if !v.ScrollTo(3) {
		t.Error("expected change")
	}
	if v.ScrollTo(3) {
		t.Error("expected no change")
	}
	if v.ScrollBy(-10) != true || v.Offset() != 0 {
		t.Errorf("ScrollBy should clamp to 0, got %v", v.Offset())
	}
}

func TestShortListNeverScrolls(t *testing.T) {
	v := New(1, 10, 40, 0)
	v.SetCount(4)
	v.ScrollTo(3)
	if v.Offset() != 0 {
		t.Errorf("expected offset 0, got %v", v.Offset())
	}
}

func TestRanges(t *testing.T) {
	v := New(22, 110, 300, 2)
	v.SetCount(100)
	v.ScrollTo(33) // rows 1 (half) .. 6 (half)

	start, stop := v.VisibleRange()
	if start != 1 || stop != 6 {
		t.Errorf("visible = [%d,%d], want [1,6]", start, stop)
	}
	start, stop = v.MountedRange()
	if start != 0 || stop != 8 {
		t.Errorf("mounted = [%d,%d], want [0,8]", start, stop)
	}
	if got := v.RowTop(2); got != 11 {
		t.Errorf("RowTop(2) = %v, want 11", got)
	}
	if got := v.IndexAt(0); got != 1 {
		t.Errorf("IndexAt(0) = %d, want 1", got)
	}
	if got := v.IndexAt(120); got != -1 {
		t.Errorf("IndexAt below viewport = %d, want -1", got)
	}
	if got := v.PageSize(); got != 5 {
		t.Errorf("PageSize = %d, want 5", got)
	}
}

func TestEmptyRanges(t *testing.T) {
	v := New(1, 10, 40, 2)
	start, stop := v.MountedRange()
	if stop >= start {
		t.Errorf("expected empty range, got [%d,%d]", start, stop)
	}
	if v.EnsureVisible(0, 0) {
		t.Error("nothing to scroll to")
	}
}

func TestEnsureVisible(t *testing.T) {
	v := New(1, 10, 40, 0)
	v.SetCount(50)

	v.EnsureVisible(15, 0)
	if v.Offset() != 6 {
		t.Errorf("scroll down: offset %v, want 6", v.Offset())
	}
	// Already visible: no movement.
	if v.EnsureVisible(10, 0) {
		t.Error("row 10 was already visible")
	}
	// Row hidden under a 3-line overlay scrolls it just below the overlay.
	v.EnsureVisible(7, 3)
	if v.Offset() != 4 {
		t.Errorf("inset: offset %v, want 4", v.Offset())
	}
	v.ScrollToRow(0)
	if v.Offset() != 0 {
		t.Errorf("top: offset %v, want 0", v.Offset())
	}
}

func TestResizeReclamps(t *testing.T) {
	v := New(1, 10, 40, 0)
	v.SetCount(20)
	v.ScrollTo(10)
	v.Resize(40, 15)
	if v.Offset() != 5 {
		t.Errorf("offset after grow = %v, want 5", v.Offset())
	}
	v.SetCount(3)
	if v.Offset() != 0 {
		t.Errorf("offset after shrink = %v, want 0", v.Offset())
	}
}

func TestAccessors(t *testing.T) {
	v := New(0, -3, 40, 2)
	if v.RowHeight() != 1 || v.Height() != 0 || v.Width() != 40 || v.Count() != 0 || v.Offset() != 0 {
		t.Errorf("New(0, -3, 40, 2): rowHeight=%v height=%v width=%v count=%d offset=%v",
			v.RowHeight(), v.Height(), v.Width(), v.Count(), v.Offset())
	}
	v.Resize(30, 5)
	v.SetCount(12)
	v.ScrollTo(100)
	if v.Width() != 30 || v.Height() != 5 || v.Count() != 12 || v.Offset() != v.MaxOffset() {
		t.Errorf("after resize: width=%v height=%v count=%d offset=%v max=%v",
			v.Width(), v.Height(), v.Count(), v.Offset(), v.MaxOffset())
	}
}
