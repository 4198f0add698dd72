package keys

import (
	"unicode"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// Key names used by the rule table. Printable keys use their text.
const (
	KeyBackspace = "backspace"
	KeyDelete    = "delete"
	KeyTab       = "tab"
	KeyUp        = "up"
	KeyDown      = "down"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyHome      = "home"
	KeyEnd       = "end"
	KeyEnter     = "enter"
	KeySpace     = " "
	KeyPgUp      = "pgup"
	KeyPgDown    = "pgdown"
)

// KeyEvent is a renderer-neutral key press.
type KeyEvent struct {
	Key   string
	Shift bool
	Meta  bool
	Ctrl  bool
}

// Mod reports whether the platform command modifier is held. Terminals
// deliver it as alt (meta) or ctrl.
func (e KeyEvent) Mod() bool {
	return e.Meta || e.Ctrl
}

// Printable reports whether the event is a single printable character
// without a command modifier.
func (e KeyEvent) Printable() bool {
	if e.Mod() || utf8.RuneCountInString(e.Key) != 1 {
		return false
	}
	r, _ := utf8.DecodeRuneInString(e.Key)
	return unicode.IsPrint(r)
}

func (e KeyEvent) String() string {
	s := e.Key
	if e.Key == KeySpace {
		s = "space"
	}
	if e.Shift {
		s = "shift+" + s
	}
	if e.Ctrl {
		s = "ctrl+" + s
	}
	if e.Meta {
		s = "meta+" + s
	}
	return s
}

// FromKeyMsg converts a bubbletea key message. Alt maps to Meta.
func FromKeyMsg(msg tea.KeyMsg) KeyEvent {
	ev := KeyEvent{Meta: msg.Alt}
	switch msg.Type {
	case tea.KeyBackspace:
		ev.Key = KeyBackspace
	case tea.KeyDelete:
		ev.Key = KeyDelete
	case tea.KeyTab:
		ev.Key = KeyTab
	case tea.KeyShiftTab:
		ev.Key, ev.Shift = KeyTab, true
	case tea.KeyUp:
		ev.Key = KeyUp
	case tea.KeyDown:
		ev.Key = KeyDown
	case tea.KeyShiftUp:
		ev.Key, ev.Shift = KeyUp, true
	case tea.KeyShiftDown:
		ev.Key, ev.Shift = KeyDown, true
	case tea.KeyCtrlUp:
		ev.Key, ev.Ctrl = KeyUp, true
	case tea.KeyCtrlDown:
		ev.Key, ev.Ctrl = KeyDown, true
	case tea.KeyLeft:
		ev.Key = KeyLeft
	case tea.KeyRight:
		ev.Key = KeyRight
	case tea.KeyHome:
		ev.Key = KeyHome
	case tea.KeyEnd:
		ev.Key = KeyEnd
	case tea.KeyEnter:
		ev.Key = KeyEnter
	case tea.KeySpace:
		ev.Key = KeySpace
	case tea.KeyPgUp:
		ev.Key = KeyPgUp
	case tea.KeyPgDown:
		ev.Key = KeyPgDown
	case tea.KeyCtrlA:
		ev.Key, ev.Ctrl = "a", true
	case tea.KeyRunes:
		if msg.Paste {
			return KeyEvent{}
		}
		ev.Key = string(msg.Runes)
	default:
		ev.Key = msg.String()
	}
	return ev
}
