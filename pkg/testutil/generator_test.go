package testutil

import (
	"testing"

	"github.com/vanderheijden86/arbor/pkg/model"
)

func TestChain(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		want  int
	}{
		{"chain_0", 0, 1},
		{"chain_1", 1, 2},
		{"chain_5", 5, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewDefault().Chain(tt.depth)
			if n := model.Count(got); n != tt.want {
				t.Errorf("expected %d entries, got %d", tt.want, n)
			}
			if err := model.Validate(got); err != nil {
				t.Errorf("invalid fixture: %v", err)
			}
		})
	}
}

func TestBalanced(t *testing.T) {
	got := NewDefault().Balanced(3, 2)
	// 2 + 4 + 8
	if n := model.Count(got); n != 14 {
		t.Fatalf("expected 14 entries, got %d", n)
	}
	if !got[0].IsInternal() || got[0].Children[0].Children[0].IsInternal() {
		t.Error("expected folders above the last level and leaves on it")
	}
}

func TestRandomDeterministic(t *testing.T) {
	a := New(DefaultConfig()).Random(200)
	b := New(DefaultConfig()).Random(200)
	AssertJSONEqual(t, a, b)
	if n := model.Count(a); n != 200 {
		t.Errorf("expected 200 entries, got %d", n)
	}
	if err := model.Validate(a); err != nil {
		t.Errorf("invalid fixture: %v", err)
	}
}

func TestFixturesValid(t *testing.T) {
	for name, entries := range map[string][]model.Entry{
		"sample": Sample(),
		"demo":   DemoTree(),
		"flat":   Flat("apple", "apricot", "banana"),
		"wide":   NewDefault().Wide(50),
	} {
		if err := model.Validate(entries); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}
