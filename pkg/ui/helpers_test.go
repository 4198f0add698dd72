package ui

import (
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"components", 6, "compo…"},
		{"日本語のファイル", 7, "日本語…"},
		{"anything", 0, ""},
		{"ab", 1, "…"},
	}
	for _, tc := range tests {
		got := truncate(tc.in, tc.width)
		if got != tc.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
		if w := runewidth.StringWidth(got); w > tc.width {
			t.Errorf("truncate(%q, %d) is %d cells wide", tc.in, tc.width, w)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("日本", 6); got != "日本  " {
		t.Errorf("padRight = %q", got)
	}
	if got := padRight("toolong", 3); got != "toolong" {
		t.Errorf("padRight should not cut, got %q", got)
	}
}

func TestExpandIndicator(t *testing.T) {
	if expandIndicator(false, true) != "•" || expandIndicator(true, true) != "▾" || expandIndicator(true, false) != "▸" {
		t.Error("unexpected indicators")
	}
}
