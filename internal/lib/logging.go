package lib

import (
	"fmt"
	"log"
	"os"
	"time"
)

// LogLevel defines the severity of log messages
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Logger provides structured logging for the application
type Logger struct {
	level  LogLevel
	logger *log.Logger
}

// NewLogger creates a new logger instance
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(os.Stderr, "", log.LstdFlags),
	}
}

// DefaultLogger returns a logger with INFO level
var DefaultLogger = NewLogger(LogLevelInfo)

// Debug logs a debug message
func (l *Logger) Debug(message string, fields ...interface{}) {
	if l.level <= LogLevelDebug {
		l.log("DEBUG", message, fields...)
	}
}

// Info logs an informational message
func (l *Logger) Info(message string, fields ...interface{}) {
	if l.level <= LogLevelInfo {
		l.log("INFO", message, fields...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(message string, fields ...interface{}) {
	if l.level <= LogLevelWarn {
		l.log("WARN", message, fields...)
	}
}

// Error logs an error message
func (l *Logger) Error(message string, fields ...interface{}) {
	if l.level <= LogLevelError {
		l.log("ERROR", message, fields...)
	}
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
}

// log formats and writes a log message with optional fields
func (l *Logger) log(level string, message string, fields ...interface{}) {
	var fieldsStr string
	if len(fields) > 0 {
		fieldsStr = fmt.Sprintf(" | %v", fields)
	}
	l.logger.Printf("[%s] %s%s", level, message, fieldsStr)
}

// LogRetry logs retry attempts
func LogRetry(logger *Logger, operation string, attempt int, maxAttempts int, err error) {
	logger.Warn(
		fmt.Sprintf("Retry attempt %d/%d for: %s", attempt+1, maxAttempts, operation),
		"error", err,
	)
}

// LogRunStarted logs the start of a run's polling phase
func LogRunStarted(logger *Logger, driverID string, run string) {
	logger.Info("Run started", "driver", driverID, "run", run)
}

// LogRunCompleted logs a completed run
func LogRunCompleted(logger *Logger, driverID string, run string, files int, duration time.Duration) {
	logger.Info("Run completed",
		"driver", driverID,
		"run", run,
		"files", files,
		"duration", duration,
	)
}

// LogRunAbandoned logs an abandoned run with the time waited on it
func LogRunAbandoned(logger *Logger, driverID string, run string, waited time.Duration) {
	logger.Warn("Run abandoned, next run already available",
		"driver", driverID,
		"run", run,
		"waited", waited,
	)
}

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(levelStr string) LogLevel {
	switch levelStr {
	case "debug":
		return LogLevelDebug
	case "info":
		return LogLevelInfo
	case "warn":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}
