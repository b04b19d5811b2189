package middleware

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shawkym/jarvisui/pkg/metrics"
)

type recordedLine struct {
	role string
	text string
}

type fakeChatLog struct {
	lines []recordedLine
}

func (f *fakeChatLog) LogMessage(role, text string, at time.Time) {
	f.lines = append(f.lines, recordedLine{role: role, text: text})
}

func TestMarkdownMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		msg         Message
		wantContain string
		wantRaw     string
	}{
		{
			name:        "markdown converted, raw defaults to source",
			msg:         Message{Role: "assistant", Content: "**bold**", Format: "markdown"},
			wantContain: "<strong>bold</strong>",
			wantRaw:     "**bold**",
		},
		{
			name:        "explicit raw kept",
			msg:         Message{Role: "assistant", Content: "*x*", RawText: "x", Format: "Markdown"},
			wantContain: "<em>x</em>",
			wantRaw:     "x",
		},
		{
			name:        "html untouched",
			msg:         Message{Role: "assistant", Content: "**not md**"},
			wantContain: "**not md**",
			wantRaw:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.msg
			result, err := NewChain(MarkdownMiddleware()).Process(newContext(), &msg)
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if !strings.Contains(result.Content, tt.wantContain) {
				t.Errorf("Expected content to contain %q, got %q", tt.wantContain, result.Content)
			}
			if result.RawText != tt.wantRaw {
				t.Errorf("Expected raw text %q, got %q", tt.wantRaw, result.RawText)
			}
			if result.Format == FormatMarkdown {
				t.Error("Expected format to be cleared after conversion")
			}
		})
	}
}

func TestLocalEchoMiddleware(t *testing.T) {
	ctx := newContext()
	ctx.Source = SourceLocal
	msg := &Message{Role: "user", Content: "<b>hi</b> & bye"}

	result, err := NewChain(LocalEchoMiddleware()).Process(ctx, msg)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if result.Content != "&lt;b&gt;hi&lt;/b&gt; &amp; bye" {
		t.Errorf("Expected escaped content, got %q", result.Content)
	}
	if result.RawText != "<b>hi</b> & bye" {
		t.Errorf("Expected raw text to keep the typed input, got %q", result.RawText)
	}

	backend := &Message{Role: "assistant", Content: "<b>hi</b>"}
	result, _ = NewChain(LocalEchoMiddleware()).Process(newContext(), backend)
	if result.Content != "<b>hi</b>" {
		t.Errorf("Expected backend content untouched, got %q", result.Content)
	}
}

func TestFormatValidationMiddleware(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"", false},
		{"html", false},
		{"HTML", false},
		{"markdown", false},
		{" Markdown ", false},
		{"rtf", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, err := NewChain(FormatValidationMiddleware()).Process(newContext(), &Message{Role: "assistant", Content: "x", Format: tt.format})
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestInboundChainRejectsUnknownFormat(t *testing.T) {
	chatLog := &fakeChatLog{}
	chain := NewInboundChain(InboundOptions{ChatLog: chatLog})

	result, err := chain.Process(newContext(), &Message{Role: "assistant", Content: "{\\rtf1}", Format: "rtf"})
	if err == nil || result != nil {
		t.Errorf("Expected unknown format to be rejected, got %+v, %v", result, err)
	}
	if len(chatLog.lines) != 0 {
		t.Errorf("Expected rejected message not to be logged, got %+v", chatLog.lines)
	}
}

func TestRoleNormalizationMiddleware(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"user", "user"},
		{"assistant", "assistant"},
		{"system", "system"},
		{"narrator", "system"},
		{"", "system"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			result, err := NewChain(RoleNormalizationMiddleware()).Process(newContext(), &Message{Role: tt.in})
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if result.Role != tt.want {
				t.Errorf("Expected role %q, got %q", tt.want, result.Role)
			}
		})
	}
}

func TestErrorRecoveryMiddleware(t *testing.T) {
	panicking := NewMiddlewareFunc("panic", func(ctx *MessageContext, msg *Message, next ProcessFunc) (*Message, error) {
		panic("test panic")
	})

	result, err := NewChain(ErrorRecoveryMiddleware(), panicking).Process(newContext(), &Message{})
	if err == nil || !strings.Contains(err.Error(), "middleware panic") {
		t.Errorf("Expected 'middleware panic' error, got: %v", err)
	}
	if result != nil {
		t.Error("Expected nil result from panic recovery")
	}
}

func TestInboundChain(t *testing.T) {
	chatLog := &fakeChatLog{}
	chain := NewInboundChain(InboundOptions{
		ChatLog: chatLog,
		Metrics: nil,
	})

	ctx := newContext()
	result, err := chain.Process(ctx, &Message{Role: "oracle", Content: "# Title", Format: "markdown"})
	if err != nil {
		t.Fatalf("Inbound chain failed: %v", err)
	}

	if result.Role != "system" {
		t.Errorf("Expected unknown role to become system, got %q", result.Role)
	}
	if !strings.Contains(result.Content, "<h1>Title</h1>") {
		t.Errorf("Expected markdown to be rendered, got %q", result.Content)
	}
	if len(chatLog.lines) != 1 || chatLog.lines[0].role != "system" || chatLog.lines[0].text != "# Title" {
		t.Errorf("Expected chat log to record the final message, got %+v", chatLog.lines)
	}
	if _, ok := ctx.Metadata["processing_duration_ms"]; !ok {
		t.Error("Expected processing duration in metadata")
	}
}

func TestMetricsMiddlewareCountsRoles(t *testing.T) {
	reg := prometheus.NewRegistry()
	chain := NewInboundChain(InboundOptions{Metrics: metrics.NewMetrics(reg)})

	for _, role := range []string{"user", "assistant", "assistant"} {
		if _, err := chain.Process(newContext(), &Message{Role: role, Content: "x"}); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != "jarvisui_messages_rendered_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	if total != 3 {
		t.Errorf("Expected 3 rendered messages, got %v", total)
	}
}
