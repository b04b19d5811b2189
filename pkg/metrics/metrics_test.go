package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordMessage("user")
	m.RecordCopy("code", "ok")
	m.RecordBridgeCall("toggle_mute", "dropped")
	m.RecordTerminalLine()
	m.SetBridgeConnected(true)
}

func TestRecord(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordMessage("assistant")
	m.RecordMessage("assistant")
	m.RecordCopy("message", "ok")
	m.RecordBridgeCall("process_user_query", "dropped")
	m.RecordTerminalLine()
	m.SetBridgeConnected(true)

	if got := testutil.ToFloat64(m.messagesRendered.WithLabelValues("assistant")); got != 2 {
		t.Errorf("Expected 2 assistant messages, got %v", got)
	}
	if got := testutil.ToFloat64(m.copyActions.WithLabelValues("message", "ok")); got != 1 {
		t.Errorf("Expected 1 copy, got %v", got)
	}
	if got := testutil.ToFloat64(m.bridgeCalls.WithLabelValues("process_user_query", "dropped")); got != 1 {
		t.Errorf("Expected 1 dropped call, got %v", got)
	}
	if got := testutil.ToFloat64(m.terminalLines); got != 1 {
		t.Errorf("Expected 1 terminal line, got %v", got)
	}
	if got := testutil.ToFloat64(m.bridgeConnected); got != 1 {
		t.Errorf("Expected connected gauge 1, got %v", got)
	}

	m.SetBridgeConnected(false)
	if got := testutil.ToFloat64(m.bridgeConnected); got != 0 {
		t.Errorf("Expected connected gauge 0, got %v", got)
	}
}

func TestServerHandlers(t *testing.T) {
	s := NewServer(ServerConfig{})
	if s.addr != "127.0.0.1:9099" {
		t.Errorf("Expected default addr, got %s", s.addr)
	}
	s.GetMetrics().RecordMessage("user")

	tests := []struct {
		path     string
		status   int
		contains string
	}{
		{"/health", http.StatusOK, "jarvisui-metrics"},
		{"/metrics", http.StatusOK, "jarvisui_messages_rendered_total"},
		{"/", http.StatusOK, "jarvisui_bridge_connected"},
		{"/missing", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}
			if tt.contains != "" && !strings.Contains(rec.Body.String(), tt.contains) {
				t.Errorf("Expected body to contain %q", tt.contains)
			}
		})
	}
}
