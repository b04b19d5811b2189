// Package input implements the send-gesture policy, submission rules and
// auto-height of the chat input box.
package input

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shawkym/jarvisui/pkg/config"
)

// Gesture is what a key press means to the input box.
type Gesture int

const (
	// GestureNone leaves the key to the text area.
	GestureNone Gesture = iota
	// GestureSubmit sends the current text.
	GestureSubmit
	// GestureNewline inserts a literal newline.
	GestureNewline
)

// Most terminals cannot report Shift+Enter or Ctrl+Enter, so each policy
// also accepts the keys they commonly arrive as.
var (
	newlineKeys = map[string]bool{"shift+enter": true, "alt+enter": true, "ctrl+j": true}
	submitKeys  = map[string]bool{"ctrl+enter": true, "ctrl+j": true, "ctrl+s": true}
)

// Forwarder is the part of the backend bridge the input box needs.
type Forwarder interface {
	Ready() bool
	ProcessUserQuery(text string)
}

// Controller applies one submit policy and sizes the input box.
type Controller struct {
	policy    config.SubmitPolicy
	minHeight int
	maxHeight int
}

// NewController creates a controller. Heights are clamped to at least one line.
func NewController(policy config.SubmitPolicy, minHeight, maxHeight int) *Controller {
	c := &Controller{policy: policy}
	c.SetHeights(minHeight, maxHeight)
	return c
}

// Policy returns the active submit policy.
func (c *Controller) Policy() config.SubmitPolicy { return c.policy }

// SetPolicy switches the submit policy.
func (c *Controller) SetPolicy(p config.SubmitPolicy) { c.policy = p }

// SetHeights changes the auto-height bounds.
func (c *Controller) SetHeights(minHeight, maxHeight int) {
	if minHeight < 1 {
		minHeight = 1
	}
	if maxHeight < minHeight {
		maxHeight = minHeight
	}
	c.minHeight, c.maxHeight = minHeight, maxHeight
}

// Classify maps a key press onto a gesture under the active policy.
func (c *Controller) Classify(key tea.KeyMsg) Gesture {
	k := key.String()

	if c.policy == config.SubmitOnCtrlEnter {
		switch {
		case submitKeys[k]:
			return GestureSubmit
		case k == "enter" || newlineKeys[k]:
			return GestureNewline
		}
		return GestureNone
	}

	switch {
	case k == "enter":
		return GestureSubmit
	case newlineKeys[k]:
		return GestureNewline
	}
	return GestureNone
}

// Prepare trims text and reports whether anything is left to send.
func Prepare(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	return trimmed, trimmed != ""
}

// Submit forwards text when it is non-empty after trimming and the bridge
// is ready. It reports whether the text was sent; the caller clears the
// field only in that case.
func (c *Controller) Submit(text string, f Forwarder) (string, bool) {
	trimmed, ok := Prepare(text)
	if !ok || f == nil || !f.Ready() {
		return "", false
	}
	f.ProcessUserQuery(trimmed)
	return trimmed, true
}

// Height returns the box height that fits value when wrapped at width,
// clamped to the configured bounds.
func (c *Controller) Height(value string, width int) int {
	lines := 0
	for _, line := range strings.Split(value, "\n") {
		w := lipgloss.Width(line)
		if width > 0 && w > width {
			lines += (w + width - 1) / width
			continue
		}
		lines++
	}
	if lines < c.minHeight {
		return c.minHeight
	}
	if lines > c.maxHeight {
		return c.maxHeight
	}
	return lines
}
