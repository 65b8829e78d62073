// Package logger provides the run-scoped structured logger for a crawl.
//
// Every entry is written to the console through zerolog and also kept in
// memory, so that at the end of a run the full history plus a per-source
// summary can be persisted as scrape-log-YYYY-MM-DD.json.
//
// Example usage:
//
//	log := logger.New(logger.LevelInfo, os.Stderr)
//	log.Success("Eventbrite", "Fetched 12 events", logger.Fields{
//	    "items_found": 12,
//	    "status":      "success",
//	})
//	log.Error("Axios Charlotte", "Adapter failed", logger.Fields{"status": "failed"}, err)
//	path, err := log.Save("data")
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Level represents log severity
type Level string

const (
	LevelDebug   Level = "DEBUG"
	LevelInfo    Level = "INFO"
	LevelSuccess Level = "SUCCESS"
	LevelWarn    Level = "WARN"
	LevelError   Level = "ERROR"
)

var levelOrder = map[Level]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelSuccess: 1,
	LevelWarn:    2,
	LevelError:   3,
}

var zerologLevels = map[Level]zerolog.Level{
	LevelDebug:   zerolog.DebugLevel,
	LevelInfo:    zerolog.InfoLevel,
	LevelSuccess: zerolog.InfoLevel,
	LevelWarn:    zerolog.WarnLevel,
	LevelError:   zerolog.ErrorLevel,
}

// ParseLevel converts a case-insensitive level name into a Level
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToUpper(strings.TrimSpace(s)))
	if level == "WARNING" {
		level = LevelWarn
	}
	if _, ok := levelOrder[level]; !ok {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Fields represents structured log fields
type Fields map[string]interface{}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Source    string `json:"source"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Logger records the log history of one crawl run
type Logger struct {
	mu       sync.Mutex
	minLevel Level
	output   io.Writer
	pretty   bool
	console  zerolog.Logger
	entries  []LogEntry
	runID    string
	start    time.Time
	now      func() time.Time
}

// Option configures a Logger
type Option func(*Logger)

// WithClock sets the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// WithRunID overrides the generated run identifier
func WithRunID(id string) Option {
	return func(l *Logger) {
		l.runID = id
	}
}

// WithConsole switches console output to zerolog's human-readable writer
func WithConsole() Option {
	return func(l *Logger) {
		l.pretty = true
	}
}

// New creates a new logger with the specified minimum console level and output destination.
// Console messages below the minimum level are discarded. The history keeps every
// entry except debug messages.
func New(level Level, output io.Writer, opts ...Option) *Logger {
	if output == nil {
		output = io.Discard
	}
	l := &Logger{
		minLevel: level,
		output:   output,
		runID:    uuid.NewString(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	w := l.output
	if l.pretty {
		w = zerolog.ConsoleWriter{Out: l.output, TimeFormat: time.Kitchen}
	}
	l.console = zerolog.New(w).With().Timestamp().Str("run_id", l.runID).Logger()
	l.start = l.now()
	return l
}

// RunID returns the identifier shared by every entry of this run
func (l *Logger) RunID() string {
	return l.runID
}

// log writes a structured log entry
func (l *Logger) log(level Level, source, message string, fields Fields, err error) {
	if l.shouldLog(level) {
		ev := l.console.WithLevel(zerologLevels[level]).Str("source", source)
		if level == LevelSuccess {
			ev = ev.Bool("success", true)
		}
		if len(fields) > 0 {
			ev = ev.Fields(map[string]interface{}(fields))
		}
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg(message)
	}

	if level == LevelDebug {
		return
	}

	entry := LogEntry{
		Timestamp: l.now().UTC().Format(time.RFC3339Nano),
		Level:     string(level),
		Source:    source,
		Message:   message,
		Fields:    fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// shouldLog determines if a message should reach the console based on level
func (l *Logger) shouldLog(level Level) bool {
	return levelOrder[level] >= levelOrder[l.minLevel]
}

// Debug logs diagnostic detail to the console only
func (l *Logger) Debug(source, message string, fields Fields) {
	l.log(LevelDebug, source, message, fields, nil)
}

// Info logs an informational message
func (l *Logger) Info(source, message string, fields Fields) {
	l.log(LevelInfo, source, message, fields, nil)
}

// Success logs a completed step, typically an adapter run with items_found
func (l *Logger) Success(source, message string, fields Fields) {
	l.log(LevelSuccess, source, message, fields, nil)
}

// Warn logs a recoverable problem
func (l *Logger) Warn(source, message string, fields Fields) {
	l.log(LevelWarn, source, message, fields, nil)
}

// Error logs a failure with its error value
func (l *Logger) Error(source, message string, fields Fields, err error) {
	l.log(LevelError, source, message, fields, err)
}

// Entries returns a copy of the recorded history
func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Count returns how many recorded entries have the given level
func (l *Logger) Count(level Level) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Level == string(level) {
			n++
		}
	}
	return n
}
