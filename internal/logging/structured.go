// Package logging provides structured JSON logging for ralph components.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event represents a structured log event
type Event struct {
	Timestamp string                 `json:"ts"`
	Level     Level                  `json:"level"`
	Component string                 `json:"component"`
	Message   string                 `json:"msg"`
	Workspace string                 `json:"workspace,omitempty"`
	Session   string                 `json:"session,omitempty"`
	Duration  int64                  `json:"duration_ms,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// Logger provides structured logging
type Logger struct {
	mu        *sync.Mutex
	component string
	workspace string
	session   string
	out       io.Writer
	minLevel  Level
}

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// New creates a new logger for a component
func New(component string) *Logger {
	return &Logger{
		mu:        &sync.Mutex{},
		component: component,
		workspace: os.Getenv("RALPH_WORKSPACE"),
		session:   os.Getenv("RALPH_SESSION_ID"),
		out:       os.Stderr,
		minLevel:  parseLevel(os.Getenv("RALPH_LOG_LEVEL")),
	}
}

func parseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// WithWorkspace sets the workspace context
func (l *Logger) WithWorkspace(workspace string) *Logger {
	clone := *l
	clone.workspace = workspace
	return &clone
}

// WithOutput redirects log output (for tests)
func (l *Logger) WithOutput(w io.Writer) *Logger {
	clone := *l
	clone.out = w
	return &clone
}

// log emits a structured log event
func (l *Logger) log(level Level, msg string, extra map[string]interface{}, err error) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Component: l.component,
		Message:   msg,
		Workspace: l.workspace,
		Session:   l.session,
		Extra:     extra,
	}

	if err != nil {
		e.Error = err.Error()
	}

	data, _ := json.Marshal(e)

	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()
}

// Debug logs a debug event
func (l *Logger) Debug(msg string, extra map[string]interface{}) {
	l.log(LevelDebug, msg, extra, nil)
}

// Info logs an info event
func (l *Logger) Info(msg string, extra map[string]interface{}) {
	l.log(LevelInfo, msg, extra, nil)
}

// Warn logs a warning event
func (l *Logger) Warn(msg string, extra map[string]interface{}, err error) {
	l.log(LevelWarn, msg, extra, err)
}

// Error logs an error event
func (l *Logger) Error(msg string, extra map[string]interface{}, err error) {
	l.log(LevelError, msg, extra, err)
}

// TimedEvent logs an info event with duration since start
func (l *Logger) TimedEvent(msg string, start time.Time, extra map[string]interface{}) {
	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     LevelInfo,
		Component: l.component,
		Message:   msg,
		Workspace: l.workspace,
		Session:   l.session,
		Duration:  time.Since(start).Milliseconds(),
		Extra:     extra,
	}

	data, _ := json.Marshal(e)

	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()
}
