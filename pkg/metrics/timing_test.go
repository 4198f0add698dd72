package metrics

import (
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	prev := Enabled()
	SetEnabled(true)
	defer SetEnabled(prev)

	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("count = %d, want 2", s.Count)
	}
	if s.MinMs != 2 || s.MaxMs != 4 || s.AvgMs != 3 {
		t.Errorf("stats = %+v", s)
	}

	m.Reset()
	if m.Count() != 0 || m.Stats().MaxMs != 0 {
		t.Error("reset should clear everything")
	}
}

func TestTimerDisabled(t *testing.T) {
	prev := Enabled()
	SetEnabled(false)
	defer SetEnabled(prev)

	m := newTimingMetric("off")
	Timer(m)()
	if m.Count() != 0 {
		t.Error("disabled timer should not record")
	}
}

func TestTimerWithCallback(t *testing.T) {
	prev := Enabled()
	SetEnabled(true)
	defer SetEnabled(prev)

	m := newTimingMetric("cb")
	called := false
	TimerWithCallback(m, func(time.Duration) { called = true })()
	if !called || m.Count() != 1 {
		t.Errorf("called=%v count=%d", called, m.Count())
	}
}

func TestAllTimingStatsSkipsEmpty(t *testing.T) {
	prev := Enabled()
	SetEnabled(true)
	defer SetEnabled(prev)

	ResetAll()
	StickyCompute.Record(time.Microsecond)
	KeysUnhandled.Inc()

	stats := AllTimingStats()
	if len(stats) != 1 || stats[0].Name != "sticky_compute" {
		t.Errorf("stats = %+v", stats)
	}
	if KeysUnhandled.Value() != 1 {
		t.Errorf("counter = %d", KeysUnhandled.Value())
	}
	ResetAll()
	if KeysUnhandled.Value() != 0 {
		t.Error("ResetAll should clear counters")
	}
}
