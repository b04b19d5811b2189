package bridge

import (
	"github.com/shawkym/jarvisui/pkg/log"
	"github.com/shawkym/jarvisui/pkg/metrics"
)

// Backend is the set of calls the UI makes into the backend.
type Backend interface {
	ProcessUserQuery(text string) error
	ToggleListening() error
	ToggleMute(isMuted bool) error
}

// Gate routes UI calls to the backend once it has been injected. Before
// that every call is a silent no-op. Gate is used from the update loop only.
type Gate struct {
	backend Backend
	metrics *metrics.Metrics
}

// NewGate creates a gate that is not ready yet.
func NewGate(m *metrics.Metrics) *Gate {
	return &Gate{metrics: m}
}

// Inject makes b the backend. Only the first injection takes effect; it
// reports whether this call made the gate ready.
func (g *Gate) Inject(b Backend) bool {
	if g.backend != nil || b == nil {
		return false
	}
	g.backend = b
	return true
}

// Ready reports whether a backend has been injected.
func (g *Gate) Ready() bool {
	return g.backend != nil
}

// ProcessUserQuery forwards text to the backend.
func (g *Gate) ProcessUserQuery(text string) {
	g.call(MethodProcessUserQuery, func(b Backend) error { return b.ProcessUserQuery(text) })
}

// ToggleListening forwards a listening toggle.
func (g *Gate) ToggleListening() {
	g.call(MethodToggleListening, func(b Backend) error { return b.ToggleListening() })
}

// ToggleMute forwards the new mute state.
func (g *Gate) ToggleMute(isMuted bool) {
	g.call(MethodToggleMute, func(b Backend) error { return b.ToggleMute(isMuted) })
}

func (g *Gate) call(method string, fn func(Backend) error) {
	if g.backend == nil {
		g.metrics.RecordBridgeCall(method, "dropped")
		return
	}
	if err := fn(g.backend); err != nil {
		g.metrics.RecordBridgeCall(method, "error")
		log.WithError(err).WithField("method", method).Warn("bridge call failed")
		return
	}
	g.metrics.RecordBridgeCall(method, "ok")
}
