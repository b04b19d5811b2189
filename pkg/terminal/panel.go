// Package terminal implements the collapsible diagnostic log panel.
package terminal

// Panel stores diagnostic lines and the panel's visibility. History is
// unbounded unless a line limit is set, in which case the oldest lines are
// dropped first.
type Panel struct {
	lines   []string
	max     int
	total   int
	visible bool
}

// New creates a panel with the given initial visibility and line limit
// (0 = unbounded).
func New(visible bool, maxLines int) *Panel {
	return &Panel{visible: visible, max: maxLines}
}

// Append adds one line with literal text content.
func (p *Panel) Append(text string) {
	p.lines = append(p.lines, text)
	p.total++
	p.trim()
}

// Lines returns the retained lines, oldest first.
func (p *Panel) Lines() []string {
	out := make([]string, len(p.lines))
	copy(out, p.lines)
	return out
}

// Len returns the number of retained lines.
func (p *Panel) Len() int { return len(p.lines) }

// Total returns the number of lines ever appended.
func (p *Panel) Total() int { return p.total }

// Toggle flips visibility and returns the new value.
func (p *Panel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// Visible reports whether the panel is shown.
func (p *Panel) Visible() bool { return p.visible }

// SetMaxLines changes the line limit, trimming immediately if needed.
func (p *Panel) SetMaxLines(n int) {
	if n < 0 {
		n = 0
	}
	p.max = n
	p.trim()
}

func (p *Panel) trim() {
	if p.max <= 0 || len(p.lines) <= p.max {
		return
	}
	// Compact once the backing array is twice the limit so the drop stays amortised.
	drop := len(p.lines) - p.max
	if cap(p.lines) >= 2*p.max {
		p.lines = append(make([]string, 0, p.max*2), p.lines[drop:]...)
		return
	}
	p.lines = p.lines[drop:]
}
