package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents an enumeration of log levels
type LogLevel int

const (
	Critical LogLevel = 50
	Fatal    LogLevel = Critical
	Error    LogLevel = 40
	Warning  LogLevel = 30
	Info     LogLevel = 20
	Debug    LogLevel = 10
	NotSet   LogLevel = 0
)

// ParseLogLevel maps a name such as "debug" or "warn" to a LogLevel.
func ParseLogLevel(name string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return Debug, true
	case "info":
		return Info, true
	case "warn", "warning":
		return Warning, true
	case "error":
		return Error, true
	case "critical", "fatal":
		return Critical, true
	}
	return NotSet, false
}

// DefaultLogLevel is used by loggers created without an explicit level.
// It is read from LOG_LEVEL at startup.
var DefaultLogLevel = Warning

func init() {
	if lvl, ok := ParseLogLevel(os.Getenv("LOG_LEVEL")); ok {
		DefaultLogLevel = lvl
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch {
	case l >= Critical:
		return slog.LevelError + 4
	case l >= Error:
		return slog.LevelError
	case l >= Warning:
		return slog.LevelWarn
	case l >= Info:
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

// Logger provides structured logging with context
type Logger struct {
	component string
	level     *slog.LevelVar
	logger    *slog.Logger
}

// NewLogger creates a new logger for a component, writing to stdout
func NewLogger(component string, logLevel ...LogLevel) *Logger {
	return NewLoggerTo(os.Stdout, component, logLevel...)
}

// NewLoggerTo creates a logger writing text records to w
func NewLoggerTo(w io.Writer, component string, logLevel ...LogLevel) *Logger {
	lvl := DefaultLogLevel
	if len(logLevel) > 0 {
		lvl = logLevel[0]
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(lvl.slogLevel())

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar})
	return &Logger{
		component: component,
		level:     levelVar,
		logger:    slog.New(handler).With("component", component),
	}
}

// SetLogLevel sets the logging level
func (l *Logger) SetLogLevel(logLevel LogLevel) {
	l.level.Set(logLevel.slogLevel())
}

// Info logs an informational message
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

// Error logs an error message
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

// Slog exposes the underlying slog.Logger, e.g. for http.Server.ErrorLog
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}
