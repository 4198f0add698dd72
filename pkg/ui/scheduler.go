package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// schedMsg delivers a timer or deferred callback back to Update. owner
// keeps messages from one widget instance away from another.
type schedMsg struct {
	owner *teaScheduler
	id    uint64
}

// teaScheduler implements keys.Scheduler on top of tea commands, so every
// callback runs inside Update on the program's goroutine. Commands queue
// up during Update and are returned by drain.
type teaScheduler struct {
	next    uint64
	pending map[uint64]func()
	cmds    []tea.Cmd
}

func newTeaScheduler() *teaScheduler {
	return &teaScheduler{pending: make(map[uint64]func())}
}

func (s *teaScheduler) add(fn func()) uint64 {
	s.next++
	s.pending[s.next] = fn
	return s.next
}

func (s *teaScheduler) AfterFunc(d time.Duration, fn func()) func() {
	id := s.add(fn)
	s.cmds = append(s.cmds, tea.Tick(d, func(time.Time) tea.Msg {
		return schedMsg{owner: s, id: id}
	}))
	return func() { delete(s.pending, id) }
}

func (s *teaScheduler) Defer(fn func()) {
	id := s.add(fn)
	s.cmds = append(s.cmds, func() tea.Msg {
		return schedMsg{owner: s, id: id}
	})
}

// fire runs the callback for id once. Canceled or already fired ids are
// ignored.
func (s *teaScheduler) fire(id uint64) bool {
	fn, ok := s.pending[id]
	if !ok {
		return false
	}
	delete(s.pending, id)
	fn()
	return true
}

// drain returns the commands queued since the last call.
func (s *teaScheduler) drain() tea.Cmd {
	if len(s.cmds) == 0 {
		return nil
	}
	cmds := s.cmds
	s.cmds = nil
	return tea.Batch(cmds...)
}
