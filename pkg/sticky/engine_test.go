package sticky_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/vanderheijden86/arbor/pkg/rows"
	"github.com/vanderheijden86/arbor/pkg/sticky"
	"github.com/vanderheijden86/arbor/pkg/testutil"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// demoStore opens the demo tree fully. Rows (level in brackets):
//
//	 0 src [0]            12 hooks [1]         20 public [0]
//	 1 components [1]     13 use-debounce [2]  21 favicon.ico [1]
//	 2 ui [2]             14 use-media [2]     22 robots.txt [1]
//	 3 forms [3]          15 lib [1]           23 .gitignore [0]
//	 4 checkbox [4]       16 api [2]           24 package.json [0]
//	 5 input [4]          17 utils [2]         25 README.md [0]
//	 6 select [4]         18 index.ts [1]      26 tsconfig.json [0]
//	 7 button [3]         19 main.tsx [1]
//	 8 card [3]
//	 9 dialog [3]
//	10 header [2]
//	11 sidebar [2]
func demoStore(t *testing.T) *tree.Store {
	t.Helper()
	s := tree.New(testutil.DemoTree())
	s.OpenAll()
	if s.VisibleCount() != 27 {
		t.Fatalf("expected 27 rows, got %d", s.VisibleCount())
	}
	return s
}

type harness struct {
	store *tree.Store
	view  *rows.Viewport
	eng   *sticky.Engine
}

func newHarness(s *tree.Store, rowHeight, height float64, opts ...sticky.Option) *harness {
	v := rows.New(rowHeight, height, 300, 2)
	v.SetCount(s.VisibleCount())
	return &harness{store: s, view: v, eng: sticky.New(s, v, opts...)}
}

func (h *harness) at(t *testing.T, offset float64) sticky.State {
	t.Helper()
	h.view.SetCount(h.store.VisibleCount())
	h.view.ScrollTo(offset)
	st, err := h.eng.Compute(h.view.Offset())
	if err != nil {
		t.Fatalf("Compute(%v): %v", offset, err)
	}
	return st
}

type want struct {
	name string
	pos  float64
}

func assertHeaders(t *testing.T, s *tree.Store, st sticky.State, expected ...want) {
	t.Helper()
	var got []want
	for _, h := range st.Headers() {
		got = append(got, want{s.Name(h.Node), h.Position})
	}
	if !slices.Equal(got, expected) {
		t.Errorf("headers:\nexpected: %v\nactual:   %v", expected, got)
	}
}

func TestComputeStacksAncestors(t *testing.T) {
	s := demoStore(t)
	h := newHarness(s, 10, 100)

	tests := []struct {
		name   string
		offset float64
		want   []want
	}{
		{"first row partly hidden", 45, []want{{"src", 0}, {"components", 10}, {"ui", 20}}},
		{"forms pushed by button", 33, []want{{"src", 0}, {"components", 10}, {"ui", 20}, {"forms", 27}}},
		{"aligned child folder stops", 110, []want{{"src", 0}}},
		{"misaligned child folder pins", 112, []want{{"src", 0}, {"hooks", 10}}},
		{"lib pushed by index.ts", 165, []want{{"src", 0}, {"lib", 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertHeaders(t, s, h.at(t, tt.offset), tt.want...)
		})
	}
}

func TestComputePushesLastHeader(t *testing.T) {
	s := demoStore(t)
	h := newHarness(s, 10, 100)

	// ui's last row (dialog, row 9) ends 25px below the top: ui slides up
	// from 20 to 15.
	st := h.at(t, 75)
	assertHeaders(t, s, st, want{"src", 0}, want{"components", 10}, want{"ui", 15})
	if got := st.At(2); got.StartIndex != 2 || got.EndIndex != 9 {
		t.Errorf("ui indices = [%d,%d], want [2,9]", got.StartIndex, got.EndIndex)
	}
	if st.Height() != 25 {
		t.Errorf("stack height = %v, want 25", st.Height())
	}

	st = h.at(t, 105)
	assertHeaders(t, s, st, want{"src", 0}, want{"components", 5})
}

func TestComputeEarlyExits(t *testing.T) {
	s := demoStore(t)
	h := newHarness(s, 10, 100)

	for _, off := range []float64{0, -10} {
		h.view.ScrollTo(0)
		st, err := h.eng.Compute(off)
		if err != nil || !st.Empty() {
			t.Errorf("offset %v: expected empty state, got %v (%v)", off, st.Headers(), err)
		}
	}

	h.eng.SetEnabled(false)
	if st := h.at(t, 45); !st.Empty() {
		t.Errorf("disabled engine should return empty, got %d headers", st.Len())
	}

	empty := tree.New(nil)
	e := newHarness(empty, 10, 100)
	if st := e.at(t, 45); !st.Empty() {
		t.Error("empty tree should return empty state")
	}
}

func TestComputeCaps(t *testing.T) {
	s := demoStore(t)

	h := newHarness(s, 10, 100, sticky.WithMaxNodes(2))
	assertHeaders(t, s, h.at(t, 45), want{"src", 0}, want{"components", 10})

	// 0.4 * 50 = 20: the third header would end at 30.
	h = newHarness(s, 10, 50)
	assertHeaders(t, s, h.at(t, 45), want{"src", 0}, want{"components", 10})
}

func TestComputeTerminalRows(t *testing.T) {
	s := demoStore(t)
	h := newHarness(s, 1, 10)

	assertHeaders(t, s, h.at(t, 1), want{"src", 0}, want{"components", 1}, want{"ui", 2}, want{"forms", 3})
	assertHeaders(t, s, h.at(t, 4), want{"src", 0}, want{"components", 1}, want{"ui", 2})
}

func TestComputeIdempotent(t *testing.T) {
	s := demoStore(t)
	h := newHarness(s, 22, 300)
	for _, off := range []float64{1, 13.5, 48, 77.25, 190} {
		a := h.at(t, off)
		b := h.at(t, off)
		if !a.Equal(b) {
			t.Errorf("offset %v: %v != %v", off, a.Headers(), b.Headers())
		}
	}
}

func TestCollapsingPinnedHeader(t *testing.T) {
	s := demoStore(t)
	h := newHarness(s, 10, 100)

	st := h.at(t, 45)
	ui := s.Find("src/components/ui")
	if !st.Contains(ui) {
		t.Fatalf("expected ui pinned, got %v", st.Nodes())
	}

	s.Close(ui)
	st = h.at(t, 45)
	if st.Contains(ui) {
		t.Errorf("collapsed header should be dropped, got %v", st.Nodes())
	}
	assertHeaders(t, s, st, want{"src", 0}, want{"hooks", 10})
}

// brokenTree hides one node's row to simulate a stale row sequence.
type brokenTree struct {
	*tree.Store
	hidden tree.NodeID
}

func (b brokenTree) RowIndex(id tree.NodeID) (int, bool) {
	if id == b.hidden {
		return -1, false
	}
	return b.Store.RowIndex(id)
}

func TestComputeReportsInconsistency(t *testing.T) {
	s := demoStore(t)
	v := rows.New(10, 100, 300, 2)
	v.SetCount(s.VisibleCount())
	v.ScrollTo(45)

	e := sticky.New(brokenTree{s, s.Find("src/components/ui/dialog.tsx")}, v)
	_, err := e.Compute(45)
	if !errors.Is(err, sticky.ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
}

func TestEngineOptions(t *testing.T) {
	s := demoStore(t)

	h := newHarness(s, 1, 20)
	if !h.eng.Enabled() || h.eng.MaxNodes() != sticky.DefaultMaxNodes {
		t.Errorf("defaults: enabled=%v maxNodes=%d", h.eng.Enabled(), h.eng.MaxNodes())
	}

	h = newHarness(s, 1, 20, sticky.WithMaxNodes(0), sticky.WithEnabled(false))
	if h.eng.Enabled() || h.eng.MaxNodes() != sticky.DefaultMaxNodes {
		t.Errorf("enabled=%v maxNodes=%d, want disabled with the default cap", h.eng.Enabled(), h.eng.MaxNodes())
	}
	h.eng.SetEnabled(true)
	if !h.eng.Enabled() {
		t.Error("SetEnabled(true) did not enable the engine")
	}
}
