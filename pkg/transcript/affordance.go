package transcript

import "errors"

// ErrNoCodeElement is reported when a code copy control has no code element
// in its block container.
var ErrNoCodeElement = errors.New("code block has no code element")

// ErrUnknownButton is reported for copy requests naming no known control.
var ErrUnknownButton = errors.New("unknown copy button")

// AffordanceKind tells the two copy controls apart.
type AffordanceKind string

const (
	CopyMessage AffordanceKind = "message"
	CopyCode    AffordanceKind = "code"
)

// Affordance is one copy control attached to a message.
type Affordance struct {
	ButtonID  string
	Kind      AffordanceKind
	MessageID string
	// CodeIndex is the code block index for CopyCode controls
	CodeIndex int
}

// Affordances lists the copy controls of m: one code control per code
// block, then the full-message control in the actions region.
func (m Message) Affordances() []Affordance {
	if !m.HasCopyAffordance() {
		return nil
	}
	out := make([]Affordance, 0, len(m.CodeBlocks)+1)
	for _, block := range m.CodeBlocks {
		out = append(out, Affordance{
			ButtonID:  m.CodeButtonID(block.Index),
			Kind:      CopyCode,
			MessageID: m.ID,
			CodeIndex: block.Index,
		})
	}
	out = append(out, Affordance{ButtonID: m.CopyButtonID(), Kind: CopyMessage, MessageID: m.ID})
	return out
}

// Affordances lists every copy control in display order. The list is built
// as messages are appended; callers must not modify it.
func (t *Transcript) Affordances() []Affordance {
	return t.affordances[:len(t.affordances):len(t.affordances)]
}

// CopyText resolves the text an affordance copies. Full-message controls
// copy the raw text; code controls copy only their own block's code.
func (t *Transcript) CopyText(a Affordance) (string, error) {
	m, ok := t.Find(a.MessageID)
	if !ok {
		return "", ErrUnknownButton
	}
	switch a.Kind {
	case CopyMessage:
		return m.RawText, nil
	case CopyCode:
		if a.CodeIndex < 0 || a.CodeIndex >= len(m.CodeBlocks) {
			return "", ErrUnknownButton
		}
		block := m.CodeBlocks[a.CodeIndex]
		if !block.HasCode {
			return "", ErrNoCodeElement
		}
		return block.Text, nil
	default:
		return "", ErrUnknownButton
	}
}
