// Package guides computes the connector lines drawn left of each tree row.
//
// For is a pure function of the node and the tree: it returns one Segment per
// ancestor level and never touches selection or open state. A segment is
// Active when its line belongs to the folder that contains the cursor, so
// the renderer can highlight the group the user is working in.
package guides

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/arbor/pkg/tree"
)

// Tree is the read-only traversal the guides need. *tree.Store implements it.
type Tree interface {
	Parent(id tree.NodeID) tree.NodeID
	Level(id tree.NodeID) int
	NextSibling(id tree.NodeID) tree.NodeID
	IsInternal(id tree.NodeID) bool
	IsOpen(id tree.NodeID) bool
	ChildCount(id tree.NodeID) int
}

// Segment describes one indentation column of a row.
type Segment struct {
	Level           int         // column, 0 for the leftmost
	Ancestor        tree.NodeID // folder whose children this line connects
	HasSiblingAfter bool        // the line continues below the row
	IsCurrent       bool        // the column holding the row's own branch
	Active          bool
}

// For returns the segments of node, leftmost first. Top-level rows and
// unknown nodes have none.
func For(node tree.NodeID, t Tree, active tree.NodeID) []Segment {
	level := t.Level(node)
	if level <= 0 {
		return nil
	}
	segs := make([]Segment, level)
	i := level - 1
	for cur := node; i >= 0; i-- {
		p := t.Parent(cur)
		if p == tree.NoNode || t.Level(p) < 0 {
			break
		}
		segs[i] = Segment{
			Level:           i,
			Ancestor:        p,
			HasSiblingAfter: t.NextSibling(cur) != tree.NoNode,
			IsCurrent:       cur == node,
			Active:          active != tree.NoNode && p == active,
		}
		cur = p
	}
	return segs
}

// ActiveAncestor returns the folder whose guide line should be highlighted
// for the row id: id itself when it is an open folder with children,
// otherwise its parent. The synthetic root is never active.
func ActiveAncestor(t Tree, id tree.NodeID) tree.NodeID {
	if id == tree.NoNode || t.Level(id) < 0 {
		return tree.NoNode
	}
	if t.IsInternal(id) && t.IsOpen(id) && t.ChildCount(id) > 0 {
		return id
	}
	p := t.Parent(id)
	if p == tree.NoNode || t.Level(p) < 0 {
		return tree.NoNode
	}
	return p
}

// Style controls how Prefix draws segments.
type Style struct {
	Indent int // columns per level
	Guide  lipgloss.Style
	Active lipgloss.Style
}

// Column returns the unstyled text of one segment.
func Column(s Segment, indent int) string {
	if indent <= 0 {
		return ""
	}
	if s.IsCurrent {
		branch := "├"
		if !s.HasSiblingAfter {
			branch = "└"
		}
		if indent == 1 {
			return branch
		}
		return branch + strings.Repeat("─", indent-2) + " "
	}
	if s.HasSiblingAfter {
		return "│" + strings.Repeat(" ", indent-1)
	}
	return strings.Repeat(" ", indent)
}

// Text renders segments without styling.
func Text(segs []Segment, indent int) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(Column(s, indent))
	}
	return b.String()
}

// Prefix renders segments with the guide styles.
func Prefix(segs []Segment, style Style) string {
	var b strings.Builder
	for _, s := range segs {
		col := Column(s, style.Indent)
		if s.Active {
			b.WriteString(style.Active.Render(col))
		} else {
			b.WriteString(style.Guide.Render(col))
		}
	}
	return b.String()
}

// Blank returns the indentation for a row drawn without guides.
func Blank(level, indent int) string {
	if level <= 0 || indent <= 0 {
		return ""
	}
	return strings.Repeat(" ", level*indent)
}
