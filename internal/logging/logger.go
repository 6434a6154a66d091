/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package logging provides structured logging for RegretDB.

The logging package implements:
  - Log levels (DEBUG, INFO, WARN, ERROR)
  - Key-value fields on every entry
  - Component-based loggers ("engine", "shell", "snapshot", ...)
  - Human-readable text or JSON lines output
  - Statement tracking with generated statement IDs and latency

Usage:

	logger := logging.NewLogger("engine")
	logger.Info("Table created", "table", "users", "columns", 2)

	stmt := logging.NewStatementContext("SELECT")
	stmt.LogComplete(logger, "rows", 3)

Level, output and format are process-wide and are normally set once at
startup from the loaded configuration.
*/
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level represents the severity of a log message.
type Level int

const (
	// DEBUG level for detailed debugging information.
	DEBUG Level = iota
	// INFO level for general operational information.
	INFO
	// WARN level for warning conditions.
	WARN
	// ERROR level for error conditions.
	ERROR
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level. Unknown names map to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Entry represents a single log entry with all its metadata.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Logger provides structured logging for one component.
type Logger struct {
	component string
	mu        sync.Mutex
}

// Config holds logger configuration options.
type Config struct {
	Level    Level
	Output   io.Writer
	JSONMode bool
	Color    bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:    INFO,
		Output:   os.Stderr,
		JSONMode: false,
		Color:    true,
	}
}

var (
	globalConfig = DefaultConfig()
	globalMu     sync.RWMutex
)

// SetGlobalLevel sets the global log level.
func SetGlobalLevel(level Level) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig.Level = level
}

// SetGlobalOutput sets the global log output.
func SetGlobalOutput(w io.Writer) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig.Output = w
}

// SetJSONMode enables or disables JSON output mode.
func SetJSONMode(enabled bool) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig.JSONMode = enabled
}

// SetColor enables or disables ANSI colours in text mode.
func SetColor(enabled bool) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConfig.Color = enabled
}

// Configure replaces the whole global configuration.
func Configure(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	globalConfig = cfg
}

// NewLogger creates a new Logger for the specified component.
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

// Component returns the component name the logger writes under.
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	globalMu.RLock()
	cfg := globalConfig
	globalMu.RUnlock()

	if level < cfg.Level {
		return
	}

	entry := Entry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Component: l.component,
		Message:   msg,
		Fields:    fieldsFromArgs(args),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if cfg.JSONMode {
		writeJSON(cfg.Output, entry)
	} else {
		writeText(cfg.Output, entry, cfg.Color)
	}
}

// fieldsFromArgs turns alternating key/value arguments into a field map.
func fieldsFromArgs(args []interface{}) map[string]interface{} {
	if len(args) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(args)/2+1)
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprintf("arg%d", i)
		}
		fields[key] = args[i+1]
	}
	if len(args)%2 != 0 {
		fields["extra"] = args[len(args)-1]
	}
	return fields
}

func writeJSON(w io.Writer, entry Entry) {
	// error values marshal to {} so they are flattened first
	for k, v := range entry.Fields {
		if err, ok := v.(error); ok {
			entry.Fields[k] = err.Error()
		}
	}
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(w, "ERROR: failed to marshal log entry: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

func writeText(w io.Writer, entry Entry, color bool) {
	timestamp := entry.Timestamp.Format("2006-01-02T15:04:05.000Z")

	levelColor, resetColor := "", ""
	if color {
		switch entry.Level {
		case "DEBUG":
			levelColor = "\033[36m"
		case "INFO":
			levelColor = "\033[32m"
		case "WARN":
			levelColor = "\033[33m"
		case "ERROR":
			levelColor = "\033[31m"
		}
		resetColor = "\033[0m"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s[%-5s]%s [%s] %s",
		timestamp, levelColor, entry.Level, resetColor, entry.Component, entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, entry.Fields[k])
	}

	fmt.Fprintln(w, sb.String())
}

// Debug logs a message at DEBUG level.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(DEBUG, msg, args...)
}

// Info logs a message at INFO level.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(INFO, msg, args...)
}

// Warn logs a message at WARN level.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(WARN, msg, args...)
}

// Error logs a message at ERROR level.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(ERROR, msg, args...)
}

// With returns a logger that adds the given fields to every entry.
func (l *Logger) With(args ...interface{}) *ContextLogger {
	return &ContextLogger{
		logger: l,
		args:   append([]interface{}(nil), args...),
	}
}

// ContextLogger is a logger with pre-set context fields.
type ContextLogger struct {
	logger *Logger
	args   []interface{}
}

// Debug logs a message at DEBUG level with context fields.
func (c *ContextLogger) Debug(msg string, args ...interface{}) {
	c.logger.log(DEBUG, msg, c.merge(args)...)
}

// Info logs a message at INFO level with context fields.
func (c *ContextLogger) Info(msg string, args ...interface{}) {
	c.logger.log(INFO, msg, c.merge(args)...)
}

// Warn logs a message at WARN level with context fields.
func (c *ContextLogger) Warn(msg string, args ...interface{}) {
	c.logger.log(WARN, msg, c.merge(args)...)
}

// Error logs a message at ERROR level with context fields.
func (c *ContextLogger) Error(msg string, args ...interface{}) {
	c.logger.log(ERROR, msg, c.merge(args)...)
}

func (c *ContextLogger) merge(args []interface{}) []interface{} {
	result := make([]interface{}, 0, len(c.args)+len(args))
	result = append(result, c.args...)
	return append(result, args...)
}

// ============================================================================
// Statement Tracking
// ============================================================================

// StatementContext tracks one compile-and-execute call for logging.
type StatementContext struct {
	ID        string
	Kind      string
	StartTime time.Time
}

// NewStatementContext starts tracking a statement of the given kind.
func NewStatementContext(kind string) *StatementContext {
	return &StatementContext{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartTime: time.Now(),
	}
}

// Duration returns the time elapsed since the statement started.
func (s *StatementContext) Duration() time.Duration {
	return time.Since(s.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (s *StatementContext) DurationMs() float64 {
	return float64(s.Duration().Microseconds()) / 1000.0
}

// LogComplete logs a successfully executed statement at DEBUG level.
func (s *StatementContext) LogComplete(logger *Logger, args ...interface{}) {
	base := []interface{}{
		"statement_id", s.ID,
		"kind", s.Kind,
		"status", "ok",
		"duration_ms", fmt.Sprintf("%.3f", s.DurationMs()),
	}
	logger.Debug("Statement executed", append(base, args...)...)
}

// LogError logs a rejected statement at WARN level.
func (s *StatementContext) LogError(logger *Logger, err error, args ...interface{}) {
	base := []interface{}{
		"statement_id", s.ID,
		"kind", s.Kind,
		"status", "error",
		"error", err,
		"duration_ms", fmt.Sprintf("%.3f", s.DurationMs()),
	}
	logger.Warn("Statement failed", append(base, args...)...)
}
