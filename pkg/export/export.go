// Package export writes a transcript to a file in JSON, Markdown or HTML form.
package export

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shawkym/jarvisui/pkg/markup"
	"github.com/shawkym/jarvisui/pkg/transcript"
)

// Format represents the export format type.
type Format string

const (
	// FormatJSON exports the transcript as JSON
	FormatJSON Format = "json"
	// FormatMarkdown exports the transcript as Markdown
	FormatMarkdown Format = "markdown"
	// FormatHTML exports the transcript as a standalone HTML page
	FormatHTML Format = "html"
)

// Extension returns the file extension for f.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatHTML:
		return "html"
	default:
		return "md"
	}
}

// ParseFormat validates a configured format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatMarkdown, FormatHTML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ExportOptions contains options for exporting transcripts.
type ExportOptions struct {
	Format Format
	// IncludeSystem keeps system status lines in the export
	IncludeSystem     bool
	IncludeTimestamps bool
	Title             string
}

// Exporter handles transcript exports to different formats.
type Exporter struct {
	options ExportOptions
	now     func() time.Time
}

// NewExporter creates a new Exporter with the given options.
func NewExporter(options ExportOptions) *Exporter {
	if options.Title == "" {
		options.Title = "Jarvis Conversation"
	}
	return &Exporter{options: options, now: time.Now}
}

// Export writes messages to writer in the configured format.
func (e *Exporter) Export(messages []transcript.Message, writer io.Writer) error {
	if !e.options.IncludeSystem {
		messages = withoutSystem(messages)
	}

	switch e.options.Format {
	case FormatJSON:
		return e.exportJSON(messages, writer)
	case FormatMarkdown:
		return e.exportMarkdown(messages, writer)
	case FormatHTML:
		return e.exportHTML(messages, writer)
	default:
		return fmt.Errorf("unsupported export format: %s", e.options.Format)
	}
}

// WriteFile exports messages to transcript_<timestamp>.<ext> under dir and
// returns the path written.
func (e *Exporter) WriteFile(dir string, messages []transcript.Message) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	name := fmt.Sprintf("transcript_%s.%s", e.now().Format("2006-01-02_15-04-05"), e.options.Format.Extension())
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	if err := e.Export(messages, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

type jsonMessage struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Text        string    `json:"text"`
	HTMLContent string    `json:"html_content"`
	CodeBlocks  []string  `json:"code_blocks,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *Exporter) exportJSON(messages []transcript.Message, writer io.Writer) error {
	out := struct {
		Title      string         `json:"title,omitempty"`
		ExportedAt string         `json:"exported_at"`
		Messages   []jsonMessage  `json:"messages"`
		Summary    *ExportSummary `json:"summary"`
	}{
		Title:      e.options.Title,
		ExportedAt: e.now().Format(time.RFC3339),
		Messages:   make([]jsonMessage, 0, len(messages)),
		Summary:    calculateSummary(messages),
	}

	for _, msg := range messages {
		jm := jsonMessage{
			ID:          msg.ID,
			Role:        string(msg.Role),
			Text:        msg.RawText,
			HTMLContent: msg.DisplayContent,
			Timestamp:   msg.Timestamp,
		}
		for _, block := range msg.CodeBlocks {
			if block.HasCode {
				jm.CodeBlocks = append(jm.CodeBlocks, block.Text)
			}
		}
		out.Messages = append(out.Messages, jm)
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func (e *Exporter) exportMarkdown(messages []transcript.Message, writer io.Writer) error {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(e.options.Title)
	sb.WriteString("\n\n")

	sb.WriteString("*Exported: ")
	sb.WriteString(e.now().Format("2006-01-02 15:04:05"))
	sb.WriteString("*\n\n")

	for _, msg := range messages {
		sb.WriteString("### ")
		sb.WriteString(speaker(msg.Role))
		if e.options.IncludeTimestamps {
			sb.WriteString(" - ")
			sb.WriteString(msg.Timestamp.Format("15:04:05"))
		}
		sb.WriteString("\n\n")

		for _, block := range msg.Blocks {
			if block.Kind == markup.CodeBlockKind {
				sb.WriteString("```")
				sb.WriteString(codeLanguage(msg, block.Code))
				sb.WriteString("\n")
				sb.WriteString(block.Text)
				sb.WriteString("\n```\n\n")
				continue
			}
			sb.WriteString(block.Prefix)
			sb.WriteString(block.Text)
			sb.WriteString("\n\n")
		}

		sb.WriteString("---\n\n")
	}

	_, err := io.WriteString(writer, sb.String())
	return err
}

// exportHTML embeds each message's display markup unchanged; it was
// already trusted when it was rendered.
func (e *Exporter) exportHTML(messages []transcript.Message, writer io.Writer) error {
	var sb strings.Builder

	title := html.EscapeString(e.options.Title)

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("  <meta charset=\"UTF-8\">\n")
	sb.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("  <title>%s</title>\n", title))
	sb.WriteString("  <style>\n")
	sb.WriteString(getCSS())
	sb.WriteString("  </style>\n")
	sb.WriteString("</head>\n")
	sb.WriteString("<body>\n")

	sb.WriteString("  <div class=\"container\">\n")
	sb.WriteString("    <header>\n")
	sb.WriteString(fmt.Sprintf("      <h1>%s</h1>\n", title))
	sb.WriteString(fmt.Sprintf("      <p class=\"export-date\">Exported: %s</p>\n", e.now().Format("2006-01-02 15:04:05")))
	sb.WriteString("    </header>\n\n")

	sb.WriteString("    <div id=\"chat-container\">\n")
	for _, msg := range messages {
		sb.WriteString(fmt.Sprintf("      <div class=\"message %s\">\n", msg.Role))
		if msg.Role != transcript.RoleSystem {
			sb.WriteString("        <div class=\"message-header\">\n")
			sb.WriteString(fmt.Sprintf("          <span class=\"speaker\">%s</span>\n", speaker(msg.Role)))
			if e.options.IncludeTimestamps {
				sb.WriteString(fmt.Sprintf("          <span class=\"timestamp\">%s</span>\n", msg.Timestamp.Format("15:04:05")))
			}
			sb.WriteString("        </div>\n")
		}
		sb.WriteString("        <div class=\"message-content\">")
		sb.WriteString(msg.DisplayContent)
		sb.WriteString("</div>\n")
		sb.WriteString("      </div>\n")
	}
	sb.WriteString("    </div>\n")
	sb.WriteString("  </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	_, err := io.WriteString(writer, sb.String())
	return err
}

// ExportSummary contains summary statistics for an exported transcript.
type ExportSummary struct {
	TotalMessages int            `json:"total_messages"`
	ByRole        map[string]int `json:"by_role"`
	CodeBlocks    int            `json:"code_blocks"`
}

func calculateSummary(messages []transcript.Message) *ExportSummary {
	summary := &ExportSummary{ByRole: make(map[string]int)}
	for _, msg := range messages {
		summary.TotalMessages++
		summary.ByRole[string(msg.Role)]++
		summary.CodeBlocks += len(msg.CodeBlocks)
	}
	return summary
}

func withoutSystem(messages []transcript.Message) []transcript.Message {
	out := make([]transcript.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != transcript.RoleSystem {
			out = append(out, msg)
		}
	}
	return out
}

func speaker(role transcript.Role) string {
	switch role {
	case transcript.RoleUser:
		return "You"
	case transcript.RoleAssistant:
		return "Jarvis"
	default:
		return "[SYSTEM]"
	}
}

func codeLanguage(msg transcript.Message, index int) string {
	for _, block := range msg.CodeBlocks {
		if block.Index == index {
			return block.Language
		}
	}
	return ""
}

func getCSS() string {
	return `    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
      line-height: 1.6;
      color: #e0e0e0;
      margin: 0;
      background-color: #1e1e2e;
    }
    .container {
      max-width: 900px;
      margin: 0 auto;
      padding: 20px;
    }
    header {
      border-bottom: 1px solid #44475a;
      padding-bottom: 16px;
      margin-bottom: 24px;
    }
    h1 {
      margin: 0;
      color: #bd93f9;
    }
    .export-date {
      color: #6272a4;
      font-style: italic;
      margin: 8px 0 0 0;
    }
    .message {
      margin-bottom: 18px;
      padding: 12px 16px;
      border-radius: 10px;
      max-width: 80%;
    }
    .message.user {
      margin-left: auto;
      background-color: #3b3f8f;
    }
    .message.assistant {
      background-color: #2d2f3f;
    }
    .message.system {
      max-width: 100%;
      text-align: center;
      color: #6272a4;
      font-style: italic;
    }
    .message-header {
      display: flex;
      justify-content: space-between;
      font-size: 0.85em;
      color: #8be9fd;
      margin-bottom: 6px;
    }
    .timestamp {
      color: #6272a4;
    }
    .code-block, pre {
      background-color: #11111b;
      border-radius: 6px;
      padding: 10px;
      overflow-x: auto;
    }
    @media print {
      .message {
        break-inside: avoid;
      }
    }`
}
