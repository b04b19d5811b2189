package terminal

import (
	"fmt"
	"testing"
)

func TestPanelToggleTwice(t *testing.T) {
	for _, initial := range []bool{false, true} {
		p := New(initial, 0)
		p.Toggle()
		if p.Visible() == initial {
			t.Errorf("Expected first toggle to flip visibility from %v", initial)
		}
		p.Toggle()
		if p.Visible() != initial {
			t.Errorf("Expected visibility %v after two toggles, got %v", initial, p.Visible())
		}
	}
}

func TestPanelVisibilityIndependentOfLines(t *testing.T) {
	p := New(false, 0)
	p.Append("worker started")
	if p.Visible() {
		t.Error("Expected appending to leave the panel hidden")
	}
}

func TestPanelAppendUnbounded(t *testing.T) {
	p := New(true, 0)
	for i := 0; i < 1000; i++ {
		p.Append(fmt.Sprintf("line %d", i))
	}
	if p.Len() != 1000 {
		t.Errorf("Expected 1000 lines, got %d", p.Len())
	}
	lines := p.Lines()
	if lines[0] != "line 0" || lines[999] != "line 999" {
		t.Errorf("Expected lines in append order, got %q ... %q", lines[0], lines[999])
	}
}

func TestPanelAppendLiteralText(t *testing.T) {
	p := New(true, 0)
	p.Append("<b>not markup</b>")
	if got := p.Lines()[0]; got != "<b>not markup</b>" {
		t.Errorf("Expected literal text, got %q", got)
	}
}

func TestPanelBounded(t *testing.T) {
	p := New(true, 3)
	for i := 0; i < 10; i++ {
		p.Append(fmt.Sprintf("line %d", i))
	}

	lines := p.Lines()
	want := []string{"line 7", "line 8", "line 9"}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if p.Total() != 10 {
		t.Errorf("Expected total 10, got %d", p.Total())
	}
}

func TestPanelSetMaxLinesTrims(t *testing.T) {
	p := New(true, 0)
	for i := 0; i < 5; i++ {
		p.Append(fmt.Sprintf("line %d", i))
	}
	p.SetMaxLines(2)
	if p.Len() != 2 || p.Lines()[0] != "line 3" {
		t.Errorf("Expected last two lines, got %v", p.Lines())
	}
	p.SetMaxLines(0)
	p.Append("line 5")
	if p.Len() != 3 {
		t.Errorf("Expected unbounded growth after clearing the limit, got %d", p.Len())
	}
}
