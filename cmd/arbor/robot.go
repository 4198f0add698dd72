package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/arbor/pkg/config"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/rows"
	"github.com/vanderheijden86/arbor/pkg/sticky"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

type robotHeader struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	Path       []string `json:"path"`
	Level      int      `json:"level"`
	Position   float64  `json:"position"`
	Height     float64  `json:"height"`
	StartIndex int      `json:"start_index"`
	EndIndex   int      `json:"end_index"`
}

type robotStickyOutput struct {
	GeneratedAt string        `json:"generated_at"`
	Source      string        `json:"source,omitempty"`
	Offset      float64       `json:"offset"`
	Height      float64       `json:"height"`
	RowHeight   float64       `json:"row_height"`
	Rows        int           `json:"rows"`
	FirstRow    string        `json:"first_row,omitempty"`
	Enabled     bool          `json:"enabled"`
	MaxNodes    int           `json:"max_nodes"`
	Headers     []robotHeader `json:"headers"`
}

// computeRobotSticky builds the tree headlessly, scrolls to offset and
// reports the sticky stack. The offset is clamped to the scrollable range.
func computeRobotSticky(entries []model.Entry, cfg config.TreeConfig, offset float64, height int, expandAll bool) (robotStickyOutput, error) {
	if height < 1 {
		return robotStickyOutput{}, fmt.Errorf("--height must be at least 1, got %d", height)
	}
	store := tree.New(entries, tree.WithOpenDepth(cfg.OpenDepth))
	if expandAll {
		store.OpenAll()
	}

	rh := float64(max(cfg.RowHeight, 1))
	vp := rows.New(rh, float64(height), 80, cfg.Overscan)
	vp.SetCount(store.VisibleCount())
	vp.ScrollTo(offset)

	engine := sticky.New(store, vp,
		sticky.WithEnabled(cfg.StickyScroll),
		sticky.WithMaxNodes(cfg.StickyScrollMaxNodes),
	)
	state, err := engine.Compute(vp.Offset())
	if err != nil {
		return robotStickyOutput{}, fmt.Errorf("computing sticky state: %w", err)
	}

	out := robotStickyOutput{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Offset:      vp.Offset(),
		Height:      vp.Height(),
		RowHeight:   rh,
		Rows:        store.VisibleCount(),
		Enabled:     engine.Enabled(),
		MaxNodes:    engine.MaxNodes(),
		Headers:     make([]robotHeader, 0, state.Len()),
	}
	if i := vp.IndexAt(state.Height()); i >= 0 {
		out.FirstRow = store.Key(store.VisibleAt(i))
	}
	for _, h := range state.Headers() {
		out.Headers = append(out.Headers, robotHeader{
			Key:        store.Key(h.Node),
			Name:       store.Name(h.Node),
			Path:       store.Path(h.Node),
			Level:      store.Level(h.Node),
			Position:   h.Position,
			Height:     h.Height,
			StartIndex: h.StartIndex,
			EndIndex:   h.EndIndex,
		})
	}
	return out, nil
}

func writeRobotStickyOutput(w io.Writer, out robotStickyOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
