// Package ui is the terminal tree widget: a bubbletea Model wiring the
// tree-state store, the row viewport, the sticky scroll engine, the
// keyboard dispatcher and the indent guide renderer.
package ui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/arbor/pkg/config"
	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/keys"
	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/rows"
	"github.com/vanderheijden86/arbor/pkg/sticky"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	wheelStep     = 3 // rows per wheel notch
)

// ReloadMsg carries freshly loaded entries. Open folders, focus and
// selection survive by key.
type ReloadMsg struct {
	Entries []model.Entry
	Note    string // shown in the status line
	Err     error
}

// LoadFunc reloads the tree source.
type LoadFunc func(ctx context.Context) ([]model.Entry, error)

type options struct {
	theme         *Theme
	keyMap        KeyMap
	title         string
	onScroll      func(offset float64)
	onClick       func(id tree.NodeID)
	onContextMenu func(id tree.NodeID)
	onFocusOut    func(reverse bool)
	load          LoadFunc
}

// Option configures a Model.
type Option func(*options)

// WithTheme overrides the default theme.
func WithTheme(t Theme) Option {
	return func(o *options) { o.theme = &t }
}

// WithKeyMap overrides the application key bindings.
func WithKeyMap(k KeyMap) Option {
	return func(o *options) { o.keyMap = k }
}

// WithTitle sets the text on the right of the status line.
func WithTitle(title string) Option {
	return func(o *options) { o.title = title }
}

// WithOnScroll is called with the new offset whenever the viewport moves.
func WithOnScroll(fn func(offset float64)) Option {
	return func(o *options) { o.onScroll = fn }
}

// WithOnClick is called after a left click on a row or sticky header.
func WithOnClick(fn func(id tree.NodeID)) Option {
	return func(o *options) { o.onClick = fn }
}

// WithOnContextMenu is called on a right click on a row.
func WithOnContextMenu(fn func(id tree.NodeID)) Option {
	return func(o *options) { o.onContextMenu = fn }
}

// WithFocusOut is called when Tab or Shift+Tab leaves the tree.
func WithFocusOut(fn func(reverse bool)) Option {
	return func(o *options) { o.onFocusOut = fn }
}

// WithLoader enables ctrl+r reloading.
func WithLoader(fn LoadFunc) Option {
	return func(o *options) { o.load = fn }
}

// state is shared by all copies of a Model. Dispatcher callbacks write to
// it, so it lives behind a pointer.
type state struct {
	width, height int
	sticky        sticky.State
	lastOffset    float64

	status    string
	statusErr bool

	help     bool
	helpView viewport.Model

	editor  textinput.Model
	editing tree.NodeID
}

// Model is the tree widget.
type Model struct {
	store  *tree.Store
	vp     *rows.Viewport
	engine *sticky.Engine
	disp   *keys.Dispatcher
	sched  *teaScheduler

	cfg   config.TreeConfig
	theme Theme
	opts  options
	st    *state
}

// New builds the widget over store. The store's scroller is replaced by
// the widget's viewport.
func New(store *tree.Store, cfg config.TreeConfig, opts ...Option) Model {
	o := options{keyMap: DefaultKeyMap()}
	for _, opt := range opts {
		opt(&o)
	}
	var theme Theme
	if o.theme != nil {
		theme = *o.theme
	} else {
		theme = DefaultTheme(lipgloss.DefaultRenderer())
	}
	if cfg.RowHeight < 1 {
		cfg.RowHeight = 1
	}
	if cfg.Indent < 1 {
		cfg.Indent = 1
	}

	vp := rows.New(float64(cfg.RowHeight), defaultHeight-1, defaultWidth, cfg.Overscan)
	engine := sticky.New(store, vp,
		sticky.WithEnabled(cfg.StickyScroll),
		sticky.WithMaxNodes(cfg.StickyScrollMaxNodes),
	)
	st := &state{
		width:    defaultWidth,
		height:   defaultHeight,
		helpView: viewport.New(defaultWidth, defaultHeight),
		editor:   newEditor(),
		editing:  tree.NoNode,
	}
	sched := newTeaScheduler()

	m := Model{
		store:  store,
		vp:     vp,
		engine: engine,
		sched:  sched,
		cfg:    cfg,
		theme:  theme,
		opts:   o,
		st:     st,
	}
	m.disp = keys.New(store, sched, keys.Options{
		DisableMultiSelection: cfg.DisableMultiSelection,
		TypeaheadTimeout:      cfg.TypeaheadTimeout,
		OnFocusOut:            m.focusOut,
		OnError:               m.setError,
	})
	store.SetScroller(focusScroller{vp: vp, store: store, engine: engine})
	m.sync()
	return m
}

func newEditor() textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 255
	return ti
}

// Store returns the tree-state store.
func (m Model) Store() *tree.Store { return m.store }

// Dispatcher returns the keyboard dispatcher.
func (m Model) Dispatcher() *keys.Dispatcher { return m.disp }

// Viewport returns the row viewport.
func (m Model) Viewport() *rows.Viewport { return m.vp }

// Sticky returns the sticky state computed for the current offset.
func (m Model) Sticky() sticky.State { return m.st.sticky }

// Status returns the status message.
func (m Model) Status() string { return m.st.status }

// HelpVisible reports whether the help overlay is open.
func (m Model) HelpVisible() bool { return m.st.help }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		if cmd, handled := m.handleAppKey(msg); handled {
			m.sync()
			return m, tea.Batch(cmd, m.sched.drain())
		}
		cmds = append(cmds, m.handleKey(msg))

	case schedMsg:
		if msg.owner == m.sched {
			m.sched.fire(msg.id)
		}

	case ReloadMsg:
		m.reload(msg)
	}

	cmds = append(cmds, m.sync())
	cmds = append(cmds, m.sched.drain())
	return m, tea.Batch(cmds...)
}

func (m Model) resize(width, height int) {
	m.st.width, m.st.height = width, height
	m.vp.Resize(float64(width), float64(max(height-1, 0)))
	m.st.helpView.Width = width
	m.st.helpView.Height = max(height-1, 1)
	if m.st.help {
		m.st.helpView.SetContent(m.renderHelp())
	}
}

// handleAppKey runs the application bindings. They win over the tree
// dispatcher but not over the rename editor, except quit.
func (m Model) handleAppKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	km := m.opts.keyMap
	switch {
	case key.Matches(msg, km.Quit):
		return tea.Quit, true
	case m.store.IsEditing():
		return nil, false
	case key.Matches(msg, km.Help):
		m.toggleHelp()
		return nil, true
	case m.st.help && key.Matches(msg, km.Close):
		m.st.help = false
		return nil, true
	case m.st.help:
		var cmd tea.Cmd
		m.st.helpView, cmd = m.st.helpView.Update(msg)
		return cmd, true
	case key.Matches(msg, km.Copy):
		m.copyPath()
		return nil, true
	case key.Matches(msg, km.ToggleSticky):
		m.engine.SetEnabled(!m.engine.Enabled())
		if m.engine.Enabled() {
			m.setStatus("sticky scroll on")
		} else {
			m.setStatus("sticky scroll off")
		}
		return nil, true
	case key.Matches(msg, km.Reload) && m.opts.load != nil:
		m.setStatus("reloading…")
		return m.reloadCmd(), true
	}
	return nil, false
}

func (m Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.store.IsEditing() && m.st.editing != tree.NoNode {
		return m.handleEditorKey(msg)
	}
	ev := keys.FromKeyMsg(msg)
	if !m.disp.Handle(ev) {
		debug.Log("ui: unhandled key %s", ev)
		return nil
	}
	if m.disp.Buffer() != "" {
		m.setStatus("find: " + m.disp.Buffer())
	}
	return nil
}

func (m Model) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		name := strings.TrimSpace(m.st.editor.Value())
		if name == "" {
			m.setError(fmt.Errorf("name must not be empty"))
			return nil
		}
		if err := m.store.SubmitEdit(name); err != nil {
			m.setError(err)
			return nil
		}
		m.setStatus("renamed to " + name)
		return nil
	case tea.KeyEsc:
		m.store.ResetEdit()
		return nil
	}
	var cmd tea.Cmd
	m.st.editor, cmd = m.st.editor.Update(msg)
	return cmd
}

// syncEditor starts or stops the rename editor to follow the store's edit
// state. Edit mode is entered from a deferred callback, so this runs after
// every message.
func (m Model) syncEditor() tea.Cmd {
	editing := m.store.Editing()
	if editing == m.st.editing {
		return nil
	}
	m.st.editing = editing
	if editing == tree.NoNode {
		m.st.editor.Blur()
		return nil
	}
	m.st.editor.SetValue(m.store.Name(editing))
	m.st.editor.CursorEnd()
	return m.st.editor.Focus()
}

func (m Model) handleMouse(msg tea.MouseMsg) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.vp.ScrollBy(-wheelStep * m.vp.RowHeight())
		return
	case tea.MouseButtonWheelDown:
		m.vp.ScrollBy(wheelStep * m.vp.RowHeight())
		return
	}
	if msg.Action != tea.MouseActionPress || m.st.help {
		return
	}

	y := float64(msg.Y)
	if hdr, ok := m.headerAt(y); ok {
		if msg.Button == tea.MouseButtonLeft {
			m.revealHeader(hdr)
			m.store.Select(hdr.Node)
			if m.opts.onClick != nil {
				m.opts.onClick(hdr.Node)
			}
		}
		return
	}

	idx := m.vp.IndexAt(y)
	if idx < 0 {
		return
	}
	id := m.store.VisibleAt(idx)
	switch msg.Button {
	case tea.MouseButtonLeft:
		m.clickRow(id, msg)
		if m.opts.onClick != nil {
			m.opts.onClick(id)
		}
	case tea.MouseButtonRight:
		m.store.Focus(id, tree.FocusOptions{})
		if m.opts.onContextMenu != nil {
			m.opts.onContextMenu(id)
		}
	}
}

func (m Model) clickRow(id tree.NodeID, msg tea.MouseMsg) {
	multi := m.disp.MultiSelection()
	indicator := m.store.Level(id) * m.cfg.Indent
	switch {
	case m.store.IsInternal(id) && msg.X == indicator:
		m.store.Focus(id, tree.FocusOptions{})
		m.store.Toggle(id)
	case multi && msg.Shift:
		m.store.SelectContiguous(id)
	case multi && (msg.Ctrl || msg.Alt):
		m.store.SelectMulti(id)
	default:
		m.store.Select(id)
		if m.store.IsLeaf(id) {
			m.store.Activate(id)
		}
	}
}

// headerAt returns the sticky header drawn at viewport line y.
func (m Model) headerAt(y float64) (sticky.Header, bool) {
	for _, h := range m.st.sticky.Headers() {
		if y >= math.Floor(h.Position) && y < h.Bottom() {
			return h, true
		}
	}
	return sticky.Header{}, false
}

// revealHeader scrolls so the header's own row sits where the header was
// drawn.
func (m Model) revealHeader(h sticky.Header) {
	m.vp.ScrollTo(float64(h.StartIndex)*m.vp.RowHeight() - h.Position)
}

func (m Model) toggleHelp() {
	m.st.help = !m.st.help
	if m.st.help {
		m.st.helpView.SetContent(m.renderHelp())
		m.st.helpView.GotoTop()
	}
}

func (m Model) copyPath() {
	f := m.store.Focused()
	if f == tree.NoNode {
		m.setError(fmt.Errorf("nothing focused"))
		return
	}
	p := strings.Join(m.store.Path(f), "/")
	if err := clipboard.WriteAll(p); err != nil {
		m.setError(fmt.Errorf("clipboard: %w", err))
		return
	}
	m.setStatus("copied " + p)
}

func (m Model) reloadCmd() tea.Cmd {
	load := m.opts.load
	return func() tea.Msg {
		entries, err := load(context.Background())
		return ReloadMsg{Entries: entries, Err: err}
	}
}

func (m Model) reload(msg ReloadMsg) {
	if msg.Err != nil {
		m.setError(fmt.Errorf("reload: %w", msg.Err))
		return
	}
	m.store.Replace(msg.Entries)
	metrics.Reloads.Inc()
	if msg.Note != "" {
		m.setStatus("reloaded: " + msg.Note)
	} else {
		m.setStatus("reloaded")
	}
}

func (m Model) focusOut(reverse bool) {
	if m.opts.onFocusOut != nil {
		m.opts.onFocusOut(reverse)
	}
}

func (m Model) setStatus(s string) {
	m.st.status, m.st.statusErr = s, false
}

func (m Model) setError(err error) {
	if err == nil {
		return
	}
	debug.Warn("ui: %v", err)
	m.st.status, m.st.statusErr = err.Error(), true
}

// sync brings the viewport, sticky state and editor in line with the
// store after a message. Sticky state is recomputed here, before the next
// View.
func (m Model) sync() tea.Cmd {
	m.vp.SetCount(m.store.VisibleCount())
	cmd := m.syncEditor()
	m.recomputeSticky()
	if off := m.vp.Offset(); off != m.st.lastOffset {
		m.st.lastOffset = off
		if m.opts.onScroll != nil {
			m.opts.onScroll(off)
		}
	}
	return cmd
}

func (m Model) recomputeSticky() {
	s, err := m.engine.Compute(m.vp.Offset())
	if err != nil {
		metrics.StickyErrors.Inc()
		debug.Warn("ui: sticky scroll: %v", err)
		s = sticky.State{}
	}
	m.st.sticky = s
}

// focusScroller brings focused rows into view below the sticky stack.
type focusScroller struct {
	vp     *rows.Viewport
	store  *tree.Store
	engine *sticky.Engine
}

func (s focusScroller) ScrollToRow(i int) {
	s.vp.SetCount(s.store.VisibleCount())
	s.vp.EnsureVisible(i, s.topInset(i))
}

func (s focusScroller) VisibleRange() (start, stop int) {
	return s.vp.VisibleRange()
}

// topInset is the height the sticky headers of row i can cover: one row
// per ancestor, capped by the engine's limits.
func (s focusScroller) topInset(i int) float64 {
	if !s.engine.Enabled() {
		return 0
	}
	rh := s.vp.RowHeight()
	n := min(
		s.store.Level(s.store.VisibleAt(i)),
		s.engine.MaxNodes(),
		int(math.Floor(sticky.MaxHeightRatio*s.vp.Height()/rh)),
	)
	return float64(max(n, 0)) * rh
}
