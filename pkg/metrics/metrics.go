// Package metrics records UI activity as Prometheus metrics. A nil
// *Metrics is valid and records nothing, so components can take one
// unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for one registry.
type Metrics struct {
	messagesRendered *prometheus.CounterVec
	copyActions      *prometheus.CounterVec
	bridgeCalls      *prometheus.CounterVec
	terminalLines    prometheus.Counter
	bridgeConnected  prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil
// registry leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messagesRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jarvisui_messages_rendered_total",
			Help: "Transcript messages rendered, by role",
		}, []string{"role"}),
		copyActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jarvisui_copy_actions_total",
			Help: "Clipboard copies, by affordance kind and result",
		}, []string{"kind", "result"}),
		bridgeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jarvisui_bridge_calls_total",
			Help: "Calls from the UI to the backend, by method and result",
		}, []string{"method", "result"}),
		terminalLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jarvisui_terminal_lines_total",
			Help: "Lines appended to the terminal panel",
		}),
		bridgeConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jarvisui_bridge_connected",
			Help: "1 while a backend is connected",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.messagesRendered,
			m.copyActions,
			m.bridgeCalls,
			m.terminalLines,
			m.bridgeConnected,
		)
	}
	return m
}

// RecordMessage counts a rendered transcript message.
func (m *Metrics) RecordMessage(role string) {
	if m == nil {
		return
	}
	m.messagesRendered.WithLabelValues(role).Inc()
}

// RecordCopy counts a clipboard copy. result is "ok" or "error".
func (m *Metrics) RecordCopy(kind, result string) {
	if m == nil {
		return
	}
	m.copyActions.WithLabelValues(kind, result).Inc()
}

// RecordBridgeCall counts an outbound call. result is "ok", "error" or "dropped".
func (m *Metrics) RecordBridgeCall(method, result string) {
	if m == nil {
		return
	}
	m.bridgeCalls.WithLabelValues(method, result).Inc()
}

// RecordTerminalLine counts a terminal panel line.
func (m *Metrics) RecordTerminalLine() {
	if m == nil {
		return
	}
	m.terminalLines.Inc()
}

// SetBridgeConnected updates the connection gauge.
func (m *Metrics) SetBridgeConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.bridgeConnected.Set(1)
		return
	}
	m.bridgeConnected.Set(0)
}
