// Package log provides the structured logger used across jarvisui.
// It wraps zerolog with a small field-oriented API so call sites read
// log.WithField("k", v).Info("msg") regardless of the configured output.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	logger  = zerolog.New(io.Discard)
	base    io.Writer
	mirrors []io.Writer
)

// Level aliases so callers do not need to import zerolog for the common cases.
const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
)

// InitLogger configures the global logger. When pretty is true the output is
// rendered with zerolog's console writer instead of JSON lines.
func InitLogger(w io.Writer, level zerolog.Level, pretty bool) {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	mu.Lock()
	defer mu.Unlock()
	base = w
	mirrors = nil
	logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// AddMirror copies every entry at or above minLevel to w as a plain,
// uncolored line. The TUI uses it to feed the terminal panel.
func AddMirror(w io.Writer, minLevel zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()

	mirror := &levelFilter{
		w:   zerolog.ConsoleWriter{Out: w, NoColor: true, PartsExclude: []string{zerolog.TimestampFieldName}},
		min: minLevel,
	}
	mirrors = append(mirrors, mirror)

	out := base
	if out == nil {
		out = io.Discard
	}
	writers := []io.Writer{out}
	writers = append(writers, mirrors...)
	logger = logger.Output(zerolog.MultiLevelWriter(writers...))
}

// SetLevel changes the minimum level of the global logger.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = logger.Level(level)
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}

// Entry accumulates fields before an event is emitted.
type Entry struct {
	fields map[string]interface{}
	err    error
}

// WithField starts an entry with a single field.
func WithField(key string, value interface{}) *Entry {
	return (&Entry{}).WithField(key, value)
}

// WithFields starts an entry with several fields.
func WithFields(fields map[string]interface{}) *Entry {
	return (&Entry{}).WithFields(fields)
}

// WithError starts an entry carrying err.
func WithError(err error) *Entry {
	return (&Entry{}).WithError(err)
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	if e.fields == nil {
		e.fields = make(map[string]interface{})
	}
	e.fields[key] = value
	return e
}

func (e *Entry) WithFields(fields map[string]interface{}) *Entry {
	for k, v := range fields {
		e.WithField(k, v)
	}
	return e
}

func (e *Entry) WithError(err error) *Entry {
	e.err = err
	return e
}

func (e *Entry) Debug(msg string) { e.emit(zerolog.DebugLevel, msg) }
func (e *Entry) Info(msg string)  { e.emit(zerolog.InfoLevel, msg) }
func (e *Entry) Warn(msg string)  { e.emit(zerolog.WarnLevel, msg) }
func (e *Entry) Error(msg string) { e.emit(zerolog.ErrorLevel, msg) }

func (e *Entry) emit(level zerolog.Level, msg string) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	event := l.WithLevel(level)
	if event == nil {
		return
	}
	if e.err != nil {
		event = event.Err(e.err)
	}
	if len(e.fields) > 0 {
		event = event.Fields(e.fields)
	}
	event.Msg(msg)
}

func Debug(msg string) { (&Entry{}).Debug(msg) }
func Info(msg string)  { (&Entry{}).Info(msg) }
func Warn(msg string)  { (&Entry{}).Warn(msg) }
func Error(msg string) { (&Entry{}).Error(msg) }

type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f *levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f *levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}
