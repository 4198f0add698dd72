package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/arbor/pkg/guides"
	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

type rowKind int

const (
	rowPlain rowKind = iota
	rowSticky
	rowStickyLast
)

// View renders the visible rows, the sticky overlay and the status line.
// Only mounted rows are rendered.
func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	if m.st.help {
		return m.st.helpView.View() + "\n" + m.renderStatus()
	}

	h := int(m.vp.Height())
	lines := make([]string, h)
	if m.store.VisibleCount() == 0 {
		if h > 0 {
			lines[0] = m.theme.Status.Render("(empty)")
		}
	}

	active := guides.ActiveAncestor(m.store, m.guideRow())
	rh := int(math.Max(1, m.vp.RowHeight()))

	start, stop := m.vp.MountedRange()
	for i := start; i <= stop; i++ {
		line := int(math.Floor(m.vp.RowTop(i)))
		if line < 0 || line >= h {
			continue
		}
		lines[line] = m.renderRow(m.store.VisibleAt(i), active, rowPlain)
	}

	headers := m.st.sticky.Headers()
	for j, hdr := range headers {
		line := int(math.Floor(hdr.Position))
		if line < 0 || line >= h {
			continue
		}
		kind := rowSticky
		if j == len(headers)-1 {
			kind = rowStickyLast
		}
		lines[line] = m.renderRow(hdr.Node, active, kind)
		for k := 1; k < rh && line+k < h; k++ {
			lines[line+k] = m.theme.Sticky.Render(strings.Repeat(" ", m.st.width))
		}
	}

	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString(m.renderStatus())
	return sb.String()
}

// renderRow renders one row: indent guides, expand indicator and name,
// padded to the viewport width.
// guideRow is the row whose folder lights up the indent guides: the most
// recently selected row, or the focused row when nothing is selected.
func (m Model) guideRow() tree.NodeID {
	if r := m.store.MostRecent(); r != tree.NoNode && m.store.IsSelected(r) {
		return r
	}
	return m.store.Focused()
}

func (m Model) renderRow(id tree.NodeID, active tree.NodeID, kind rowKind) string {
	width := m.st.width
	if width <= 0 {
		width = defaultWidth
	}
	level := m.store.Level(id)

	var prefix, plainPrefix string
	if m.cfg.ShowIndentGuides {
		segs := guides.For(id, m.store, active)
		prefix = guides.Prefix(segs, m.theme.GuideStyle(m.cfg.Indent))
		plainPrefix = guides.Text(segs, m.cfg.Indent)
	} else {
		prefix = guides.Blank(level, m.cfg.Indent)
		plainPrefix = prefix
	}
	prefixWidth := runewidth.StringWidth(plainPrefix)

	internal := m.store.IsInternal(id)
	indicator := m.theme.Indicator.Render(expandIndicator(internal, m.store.IsOpen(id)))

	rest := max(width-prefixWidth-2, 0)
	var name string
	if id == m.st.editing && m.store.IsEditing() {
		m.st.editor.Width = max(rest-1, 1)
		name = m.st.editor.View()
	} else {
		name = padRight(truncate(m.store.Name(id), rest), rest)
	}

	style := m.rowStyle(id, kind)
	if internal && kind == rowPlain && !m.store.IsSelected(id) && m.store.Focused() != id {
		style = m.theme.Folder
	}
	return prefix + indicator + style.Render(" "+name)
}

func (m Model) rowStyle(id tree.NodeID, kind rowKind) lipgloss.Style {
	var style lipgloss.Style
	switch kind {
	case rowSticky:
		style = m.theme.Sticky
	case rowStickyLast:
		style = m.theme.StickyEnd
	default:
		style = m.theme.Base
	}
	switch {
	case m.store.Focused() == id:
		style = style.Inherit(m.theme.Focused)
	case m.store.IsSelected(id):
		style = style.Inherit(m.theme.Selected)
	}
	return style
}

// renderStatus renders the position indicator, the selection count and
// the latest message.
func (m Model) renderStatus() string {
	width := m.st.width
	if width <= 0 {
		width = defaultWidth
	}
	var parts []string
	count := m.store.VisibleCount()
	if row, ok := m.store.RowIndex(m.store.Focused()); ok {
		parts = append(parts, fmt.Sprintf("%d/%d", row+1, count))
	} else {
		parts = append(parts, fmt.Sprintf("-/%d", count))
	}
	if n := m.store.SelectedCount(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", n))
	}
	if n := m.st.sticky.Len(); n > 0 {
		parts = append(parts, fmt.Sprintf("%d pinned", n))
	}
	left := " " + strings.Join(parts, "  ")

	msg := m.st.status
	right := m.opts.title
	if right != "" {
		right += " "
	}
	avail := max(width-runewidth.StringWidth(left)-runewidth.StringWidth(right)-2, 0)
	msg = truncate(msg, avail)

	msgStyle := m.theme.Status
	if m.st.statusErr {
		msgStyle = m.theme.Error
	}
	gap := max(width-runewidth.StringWidth(left)-runewidth.StringWidth(msg)-runewidth.StringWidth(right)-2, 0)
	return m.theme.Status.Render(left) + "  " + msgStyle.Render(msg) + strings.Repeat(" ", gap) + m.theme.Status.Render(right)
}

// helpMarkdown lists the application keys and the dispatcher's rule table.
func (m Model) helpMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# Keys\n\n| Key | Action |\n| --- | --- |\n")
	for _, b := range m.opts.keyMap.Bindings() {
		h := b.Help()
		fmt.Fprintf(&sb, "| `%s` | %s |\n", h.Key, h.Desc)
	}
	sb.WriteString("\n## Tree\n\n| Key | Action |\n| --- | --- |\n")
	seen := make(map[string]bool)
	for _, r := range m.disp.Rules() {
		if r.Help == "" || seen[r.Keys+r.Help] {
			continue
		}
		seen[r.Keys+r.Help] = true
		fmt.Fprintf(&sb, "| `%s` | %s |\n", r.Keys, r.Help)
	}
	sb.WriteString("| letters | jump to the first row starting with the typed text |\n")
	return sb.String()
}

func (m Model) renderHelp() string {
	md := m.helpMarkdown()
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(m.st.width-4, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
