package tui

import (
	"strings"
	"sync"
)

// LogWriter is an io.Writer that turns application log output into
// terminal panel lines. Lines are queued on a buffered channel that the
// model drains; when the queue is full new lines are dropped rather than
// blocking the logger.
type LogWriter struct {
	mu      sync.Mutex
	lines   chan string
	partial strings.Builder
}

// NewLogWriter creates a writer queueing up to size lines.
func NewLogWriter(size int) *LogWriter {
	if size <= 0 {
		size = 256
	}
	return &LogWriter{lines: make(chan string, size)}
}

// Lines is the channel to hand to Options.LogLines.
func (w *LogWriter) Lines() <-chan string {
	return w.lines
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.partial.Write(p)
	buffered := w.partial.String()
	w.partial.Reset()

	lines := strings.Split(buffered, "\n")
	// The last element is an incomplete line, or "" after a trailing newline.
	w.partial.WriteString(lines[len(lines)-1])

	for _, line := range lines[:len(lines)-1] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		select {
		case w.lines <- line:
		default:
		}
	}
	return len(p), nil
}
