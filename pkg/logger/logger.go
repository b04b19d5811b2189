// Package logger writes the conversation to a chat log file and, when a
// console is attached, prints it with role badges.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Entry is one logged transcript line.
type Entry struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type ChatLogger struct {
	mu        sync.Mutex
	logFile   *os.File
	logPath   string
	logFormat string
	console   io.Writer
	termWidth int
}

var roleColors = map[string]lipgloss.Color{
	"user":      lipgloss.Color("63"),  // Blue
	"assistant": lipgloss.Color("86"),  // Green
	"system":    lipgloss.Color("244"), // Grey
}

var (
	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("236"))
)

// NewChatLogger creates a logger. With an empty logDir nothing is written
// to disk; with a nil console nothing is printed.
func NewChatLogger(logDir string, logFormat string, console io.Writer) (*ChatLogger, error) {
	l := &ChatLogger{
		logFormat: logFormat,
		console:   console,
		termWidth: 80,
	}
	if logDir == "" {
		return l, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("chat_%s.log", timestamp))

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	l.logFile = logFile
	l.logPath = logPath

	if logFormat != "json" {
		l.writeToFile("=== Jarvis Chat Log ===\n")
		l.writeToFile("Started: " + time.Now().Format("2006-01-02 15:04:05") + "\n")
		l.writeToFile("=======================\n\n")
	}

	return l, nil
}

// Path returns the log file path, or "" when logging to disk is off.
func (l *ChatLogger) Path() string {
	return l.logPath
}

// SetWidth sets the console wrap width.
func (l *ChatLogger) SetWidth(width int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if width > 0 {
		l.termWidth = width
	}
}

// LogMessage records one message. text should be the plain-text form.
func (l *ChatLogger) LogMessage(role, text string, at time.Time) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	e := Entry{Role: role, Text: text, Timestamp: at}
	l.writeFileLog(e)
	l.writeConsoleLog(e)
}

// LogSystem records a system line stamped now.
func (l *ChatLogger) LogSystem(message string) {
	l.LogMessage("system", message, time.Now())
}

// LogError records an error from source.
func (l *ChatLogger) LogError(source string, err error) {
	if l == nil || err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	if l.logFile != nil {
		if l.logFormat == "json" {
			data, _ := json.Marshal(map[string]string{
				"role":      "error",
				"source":    source,
				"text":      err.Error(),
				"timestamp": time.Now().Format(time.RFC3339),
			})
			l.writeToFile(string(data) + "\n")
		} else {
			l.writeToFile(fmt.Sprintf("[%s] ERROR - %s: %v\n", timestamp, source, err))
		}
	}

	if l.console != nil {
		fmt.Fprintf(l.console, "%s %s %s: %v\n",
			timestampStyle.Render(fmt.Sprintf("[%s]", timestamp)),
			errorStyle.Render("ERROR"),
			source,
			err)
	}
}

func (l *ChatLogger) writeFileLog(e Entry) {
	if l.logFile == nil {
		return
	}

	if l.logFormat == "json" {
		data, err := json.Marshal(e)
		if err == nil {
			l.writeToFile(string(data) + "\n")
		}
		return
	}
	l.writeToFile(fmt.Sprintf("[%s] %s: %s\n\n", e.Timestamp.Format("15:04:05"), e.Role, e.Text))
}

func (l *ChatLogger) writeConsoleLog(e Entry) {
	if l.console == nil {
		return
	}

	var output strings.Builder
	output.WriteString(separatorStyle.Render(strings.Repeat("─", min(l.termWidth, 80))))
	output.WriteString("\n")
	output.WriteString(timestampStyle.Render("🕐 " + e.Timestamp.Format("15:04:05") + " "))

	if e.Role == "system" {
		output.WriteString(badgeStyle(e.Role).Render(" SYSTEM "))
		output.WriteString(systemStyle.Render(e.Text))
		output.WriteString("\n")
		fmt.Fprint(l.console, output.String())
		return
	}

	output.WriteString(badgeStyle(e.Role).Render(" " + strings.ToUpper(e.Role) + " "))
	output.WriteString("\n\n")

	content := lipgloss.NewStyle().Foreground(roleColor(e.Role))
	for _, line := range strings.Split(l.wrapText(e.Text, 2), "\n") {
		output.WriteString(content.Render(line))
		output.WriteString("\n")
	}
	fmt.Fprint(l.console, output.String())
}

func roleColor(role string) lipgloss.Color {
	if c, ok := roleColors[role]; ok {
		return c
	}
	return lipgloss.Color("240")
}

func badgeStyle(role string) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(roleColor(role)).
		Foreground(lipgloss.Color("0")).
		Bold(true).
		Padding(0, 1).
		MarginRight(1)
}

func (l *ChatLogger) wrapText(text string, indent int) string {
	if l.termWidth <= 0 {
		return text
	}

	maxWidth := l.termWidth - indent - 2
	if maxWidth <= 20 {
		maxWidth = 20
	}

	var wrapped []string
	indentStr := strings.Repeat(" ", indent)

	for _, line := range strings.Split(text, "\n") {
		if len(line) <= maxWidth {
			wrapped = append(wrapped, indentStr+line)
			continue
		}

		current := ""
		for _, word := range strings.Fields(line) {
			for len(word) > maxWidth {
				if current != "" {
					wrapped = append(wrapped, indentStr+current)
					current = ""
				}
				wrapped = append(wrapped, indentStr+word[:maxWidth])
				word = word[maxWidth:]
			}
			switch {
			case current == "":
				current = word
			case len(current)+1+len(word) > maxWidth:
				wrapped = append(wrapped, indentStr+current)
				current = word
			default:
				current += " " + word
			}
		}
		if current != "" {
			wrapped = append(wrapped, indentStr+current)
		}
	}

	return strings.Join(wrapped, "\n")
}

func (l *ChatLogger) writeToFile(content string) {
	if l.logFile == nil {
		return
	}
	if _, err := l.logFile.WriteString(content); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to log file: %v\n", err)
	}
	if err := l.logFile.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "Error syncing log file: %v\n", err)
	}
}

// Close writes the footer and closes the file.
func (l *ChatLogger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile == nil {
		return
	}
	if l.logFormat != "json" {
		l.writeToFile("\n=== Chat Ended ===\n")
		l.writeToFile("Ended: " + time.Now().Format("2006-01-02 15:04:05") + "\n")
	}
	l.logFile.Close()
	l.logFile = nil
}
