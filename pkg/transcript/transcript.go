// Package transcript holds the ordered, append-only list of rendered
// messages and the copy affordances attached to them.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shawkym/jarvisui/pkg/markup"
)

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole maps a wire role onto a Role. Unknown roles report false.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant, RoleSystem:
		return r, true
	default:
		return RoleSystem, false
	}
}

// Message is one rendered transcript entry. It is never modified after
// being appended.
type Message struct {
	ID   string
	Role Role
	// DisplayContent is the markup-bearing content shown in the bubble
	DisplayContent string
	// RawText is what the full-message copy affordance copies
	RawText string
	// CodeBlocks are the code containers found in DisplayContent
	CodeBlocks []markup.CodeBlock
	// Blocks is DisplayContent flattened for the terminal
	Blocks    []markup.Block
	Timestamp time.Time
}

// NewMessage builds a message. An empty rawText falls back to htmlContent
// verbatim, markup included.
func NewMessage(role Role, htmlContent, rawText string) Message {
	if rawText == "" {
		rawText = htmlContent
	}
	m := Message{
		ID:             uuid.NewString(),
		Role:           role,
		DisplayContent: htmlContent,
		RawText:        rawText,
		Blocks:         markup.Flatten(htmlContent),
		Timestamp:      time.Now(),
	}
	if role != RoleSystem {
		m.CodeBlocks = markup.CodeBlocks(htmlContent)
	}
	return m
}

// HasCopyAffordance reports whether the message gets a full-message copy
// control. System lines are status output, not turns, and never do.
func (m Message) HasCopyAffordance() bool {
	return m.Role != RoleSystem
}

// CopyButtonID is the stable identifier of the full-message copy control.
func (m Message) CopyButtonID() string {
	return m.ID
}

// CodeButtonID is the stable identifier of the copy control of code block n.
func (m Message) CodeButtonID(n int) string {
	return fmt.Sprintf("%s/code/%d", m.ID, n)
}

// Transcript is the append-only message list. Display order is insertion order.
type Transcript struct {
	messages    []Message
	index       map[string]int
	affordances []Affordance
}

// New creates an empty transcript.
func New() *Transcript {
	return &Transcript{index: make(map[string]int)}
}

// Append adds m at the end and returns its position.
func (t *Transcript) Append(m Message) int {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	t.messages = append(t.messages, m)
	pos := len(t.messages) - 1
	t.index[m.ID] = pos
	t.affordances = append(t.affordances, m.Affordances()...)
	return pos
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// At returns the message at position i.
func (t *Transcript) At(i int) Message {
	return t.messages[i]
}

// Messages returns a copy of the messages in display order.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Find looks a message up by ID.
func (t *Transcript) Find(id string) (Message, bool) {
	pos, ok := t.index[id]
	if !ok {
		return Message{}, false
	}
	return t.messages[pos], true
}

// Last returns the most recently appended message.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}
