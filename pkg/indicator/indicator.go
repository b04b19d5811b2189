// Package indicator implements the mic and mute status controls. Both are
// plain projections of their state onto a set of visual classes and a
// glyph; neither keeps timers.
package indicator

import (
	"sort"
	"strings"
)

// MicState is the backend-reported state of voice input.
type MicState string

const (
	MicIdle      MicState = "idle"
	MicListening MicState = "listening"
	MicThinking  MicState = "thinking"
)

// ParseMicState maps a wire value onto a MicState. Unknown values map to
// idle and report false.
func ParseMicState(s string) (MicState, bool) {
	switch st := MicState(strings.ToLower(strings.TrimSpace(s))); st {
	case MicIdle, MicListening, MicThinking:
		return st, true
	default:
		return MicIdle, false
	}
}

// Visual classes applied to the controls.
const (
	ClassListening = "listening"
	ClassThinking  = "thinking"
	ClassMuted     = "muted"
)

// Visual is what a control looks like.
type Visual struct {
	Glyph string
	Label string
	// Classes is kept sorted
	Classes []string
}

// HasClass reports whether class is applied.
func (v Visual) HasClass(class string) bool {
	i := sort.SearchStrings(v.Classes, class)
	return i < len(v.Classes) && v.Classes[i] == class
}

type classSet map[string]struct{}

func (c classSet) add(name string)    { c[name] = struct{}{} }
func (c classSet) remove(name string) { delete(c, name) }

func (c classSet) sorted() []string {
	out := make([]string, 0, len(c))
	for name := range c {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Mic is the microphone button. Its state changes only when the backend
// pushes one; clicking it asks the backend to toggle and changes nothing
// locally.
type Mic struct {
	state   MicState
	classes classSet
	glyph   string
	label   string
}

// NewMic returns an idle mic button.
func NewMic() *Mic {
	m := &Mic{classes: make(classSet)}
	m.Set(MicIdle)
	return m
}

// Set applies a backend-pushed state. Both non-idle classes are cleared
// before the new one is applied, so at most one is ever present.
func (m *Mic) Set(state MicState) {
	if m.classes == nil {
		m.classes = make(classSet)
	}
	m.classes.remove(ClassListening)
	m.classes.remove(ClassThinking)
	m.state = state

	switch state {
	case MicListening:
		m.classes.add(ClassListening)
		m.glyph, m.label = "●", "Listening…"
	case MicThinking:
		m.classes.add(ClassThinking)
		m.glyph, m.label = "…", "Thinking…"
	default:
		m.state = MicIdle
		m.glyph, m.label = "🎤", ""
	}
}

// State returns the current state.
func (m *Mic) State() MicState { return m.state }

// Visual projects the button.
func (m *Mic) Visual() Visual {
	return Visual{Glyph: m.glyph, Label: m.label, Classes: m.classes.sorted()}
}

// Mute is the audio mute toggle. It flips optimistically on click; the
// caller reports the returned value to the backend.
type Mute struct {
	muted bool
}

// NewMute returns an unmuted toggle.
func NewMute() *Mute {
	return &Mute{}
}

// Toggle flips the state and returns the new value.
func (m *Mute) Toggle() bool {
	m.muted = !m.muted
	return m.muted
}

// Muted returns the current state.
func (m *Mute) Muted() bool { return m.muted }

// Visual projects the toggle.
func (m *Mute) Visual() Visual {
	if m.Muted() {
		return Visual{Glyph: "🔇", Label: "Muted", Classes: []string{ClassMuted}}
	}
	return Visual{Glyph: "🔊", Classes: []string{}}
}
