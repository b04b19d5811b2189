package bridge

import (
	"errors"
	"testing"
)

type recordingBackend struct {
	queries []string
	toggles int
	mutes   []bool
	err     error
}

func (r *recordingBackend) ProcessUserQuery(text string) error {
	r.queries = append(r.queries, text)
	return r.err
}

func (r *recordingBackend) ToggleListening() error {
	r.toggles++
	return r.err
}

func (r *recordingBackend) ToggleMute(isMuted bool) error {
	r.mutes = append(r.mutes, isMuted)
	return r.err
}

func TestGateNoopBeforeReady(t *testing.T) {
	g := NewGate(nil)
	if g.Ready() {
		t.Fatal("Expected new gate not to be ready")
	}

	g.ProcessUserQuery("hello")
	g.ToggleListening()
	g.ToggleMute(true)

	b := &recordingBackend{}
	if !g.Inject(b) {
		t.Fatal("Expected first injection to make the gate ready")
	}
	if len(b.queries) != 0 || b.toggles != 0 || len(b.mutes) != 0 {
		t.Error("Expected calls made before readiness to be dropped, not queued")
	}
}

func TestGateForwardsAfterReady(t *testing.T) {
	g := NewGate(nil)
	b := &recordingBackend{}
	g.Inject(b)

	g.ProcessUserQuery("hello")
	g.ToggleListening()
	g.ToggleMute(true)
	g.ToggleMute(false)

	if len(b.queries) != 1 || b.queries[0] != "hello" {
		t.Errorf("Expected query to be forwarded, got %v", b.queries)
	}
	if b.toggles != 1 {
		t.Errorf("Expected 1 listening toggle, got %d", b.toggles)
	}
	if len(b.mutes) != 2 || !b.mutes[0] || b.mutes[1] {
		t.Errorf("Expected mute states [true false], got %v", b.mutes)
	}
}

func TestGateInjectOnce(t *testing.T) {
	g := NewGate(nil)
	first := &recordingBackend{}
	second := &recordingBackend{}

	g.Inject(first)
	if g.Inject(second) {
		t.Error("Expected second injection to be ignored")
	}
	g.ToggleListening()
	if first.toggles != 1 || second.toggles != 0 {
		t.Error("Expected calls to keep going to the first backend")
	}
	if g.Inject(nil) {
		t.Error("Expected nil injection to be ignored")
	}
}

func TestGateSwallowsErrors(t *testing.T) {
	g := NewGate(nil)
	b := &recordingBackend{err: errors.New("backend is not connected")}
	g.Inject(b)

	g.ProcessUserQuery("still here")
	if len(b.queries) != 1 {
		t.Error("Expected the call to reach the backend")
	}
}
