package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shawkym/jarvisui/pkg/transcript"
)

func createTestMessages() []transcript.Message {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	messages := []transcript.Message{
		transcript.NewMessage(transcript.RoleSystem, "Jarvis is ready.", ""),
		transcript.NewMessage(transcript.RoleUser, "list my files", "list my files"),
		transcript.NewMessage(transcript.RoleAssistant,
			`<p>Run this:</p><pre><code class="language-bash">ls -la</code></pre>`,
			"Run this: ls -la"),
	}
	for i := range messages {
		messages[i].Timestamp = at.Add(time.Duration(i) * time.Second)
	}
	return messages
}

func fixedExporter(opts ExportOptions) *Exporter {
	e := NewExporter(opts)
	e.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return e
}

func TestExportJSON(t *testing.T) {
	exporter := fixedExporter(ExportOptions{Format: FormatJSON, Title: "Test Conversation"})

	var buf bytes.Buffer
	if err := exporter.Export(createTestMessages(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var result struct {
		Title    string        `json:"title"`
		Messages []jsonMessage `json:"messages"`
		Summary  ExportSummary `json:"summary"`
	}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}

	if result.Title != "Test Conversation" {
		t.Errorf("Expected title 'Test Conversation', got %q", result.Title)
	}
	// system line is dropped by default
	if len(result.Messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(result.Messages))
	}
	last := result.Messages[1]
	if last.Text != "Run this: ls -la" {
		t.Errorf("Expected raw text, got %q", last.Text)
	}
	if len(last.CodeBlocks) != 1 || last.CodeBlocks[0] != "ls -la" {
		t.Errorf("Expected code block [ls -la], got %v", last.CodeBlocks)
	}
	if result.Summary.CodeBlocks != 1 {
		t.Errorf("Expected 1 code block in summary, got %d", result.Summary.CodeBlocks)
	}
}

func TestExportMarkdown(t *testing.T) {
	exporter := fixedExporter(ExportOptions{Format: FormatMarkdown, IncludeTimestamps: true})

	var buf bytes.Buffer
	if err := exporter.Export(createTestMessages(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	output := buf.String()

	expected := []string{
		"# Jarvis Conversation",
		"*Exported: 2024-05-01 10:00:00*",
		"### You - 09:30:01",
		"### Jarvis - 09:30:02",
		"```bash\nls -la\n```",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Expected markdown to contain %q\n%s", want, output)
		}
	}
	if strings.Contains(output, "[SYSTEM]") {
		t.Error("Expected system lines to be omitted")
	}
}

func TestExportHTML(t *testing.T) {
	exporter := fixedExporter(ExportOptions{Format: FormatHTML, IncludeSystem: true, Title: "<Jarvis>"})

	var buf bytes.Buffer
	if err := exporter.Export(createTestMessages(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	output := buf.String()

	expected := []string{
		"<!DOCTYPE html>",
		"<title>&lt;Jarvis&gt;</title>",
		`<div class="message system">`,
		`<div class="message user">`,
		`<code class="language-bash">ls -la</code>`,
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("Expected HTML to contain %q", want)
		}
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	exporter := NewExporter(ExportOptions{Format: "pdf"})

	var buf bytes.Buffer
	if err := exporter.Export(createTestMessages(), &buf); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"Markdown", FormatMarkdown, false},
		{"md", FormatMarkdown, false},
		{"html", FormatHTML, false},
		{"pdf", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q): expected error=%v, got %v", tt.in, tt.wantErr, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	exporter := fixedExporter(ExportOptions{Format: FormatMarkdown})

	path, err := exporter.WriteFile(dir, createTestMessages())
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if filepath.Base(path) != "transcript_2024-05-01_10-00-00.md" {
		t.Errorf("Unexpected file name %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read export: %v", err)
	}
	if !strings.Contains(string(data), "list my files") {
		t.Error("Expected export to contain the user message")
	}
}

func TestCalculateSummary(t *testing.T) {
	summary := calculateSummary(createTestMessages())

	if summary.TotalMessages != 3 {
		t.Errorf("Expected 3 messages, got %d", summary.TotalMessages)
	}
	if summary.ByRole["user"] != 1 || summary.ByRole["assistant"] != 1 || summary.ByRole["system"] != 1 {
		t.Errorf("Unexpected role counts %v", summary.ByRole)
	}
}
