package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger interface used by every component of the shell
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// defaultOutput is where loggers created without an explicit writer go
var defaultOutput io.Writer = os.Stderr

// DefaultLogger writes structured JSON lines through zerolog
type DefaultLogger struct {
	zl zerolog.Logger
}

// NewDefaultLogger creates a logger writing to stderr at debug level
func NewDefaultLogger() Logger {
	return NewLogger(defaultOutput, "debug")
}

// NewLogger creates a logger writing to w, dropping entries below level.
// Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *DefaultLogger {
	if w == nil {
		w = defaultOutput
	}
	zl := zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
	return &DefaultLogger{zl: zl}
}

// ParseLevel maps a config level name to a zerolog level
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// fieldsToMap converts the variadic fields slice to a map
// Expected format: key1, value1, key2, value2, ...
func fieldsToMap(fields []interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			if key, ok := fields[i].(string); ok {
				result[key] = normalizeValue(fields[i+1])
			} else {
				// If key is not a string, use index as key
				result[fmt.Sprintf("field_%d", i/2)] = fields[i]
				result[fmt.Sprintf("field_%d_value", i/2)] = normalizeValue(fields[i+1])
			}
		} else {
			// Odd number of fields, add the last one with an index key
			result[fmt.Sprintf("field_%d", i/2)] = fields[i]
		}
	}

	return result
}

// normalizeValue renders errors as their message; zerolog would otherwise
// marshal them as empty objects.
func normalizeValue(v interface{}) interface{} {
	if err, ok := v.(error); ok && err != nil {
		return err.Error()
	}
	return v
}

func (l *DefaultLogger) write(event *zerolog.Event, msg string, fields []interface{}) {
	if event == nil {
		return
	}
	event.Dict("fields", zerolog.Dict().Fields(fieldsToMap(fields))).Msg(msg)
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) {
	l.write(l.zl.Debug(), msg, fields)
}

func (l *DefaultLogger) Info(msg string, fields ...interface{}) {
	l.write(l.zl.Info(), msg, fields)
}

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) {
	l.write(l.zl.Warn(), msg, fields)
}

func (l *DefaultLogger) Error(msg string, fields ...interface{}) {
	l.write(l.zl.Error(), msg, fields)
}

// ClassifiedError is the logging view of errors.AppError (kept as an interface
// to avoid an import cycle)
type ClassifiedError interface {
	Error() string
	GetCode() string
	IsRetryable() bool
	GetContext() map[string]string
	GetTimestamp() time.Time
}

// LogError logs an error with its classification and the caller's context
func LogError(logger Logger, err error, operation string, context map[string]interface{}) {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	if appErr, ok := err.(ClassifiedError); ok {
		fields := []interface{}{
			"operation", operation,
			"error_code", appErr.GetCode(),
			"retryable", appErr.IsRetryable(),
			"timestamp", appErr.GetTimestamp(),
		}

		for k, v := range appErr.GetContext() {
			fields = append(fields, k, v)
		}

		for k, v := range context {
			fields = append(fields, k, v)
		}

		logger.Error(fmt.Sprintf("Operation failed: %s", err.Error()), fields...)
		return
	}

	fields := []interface{}{
		"operation", operation,
		"error_type", fmt.Sprintf("%T", err),
	}

	for k, v := range context {
		fields = append(fields, k, v)
	}

	logger.Error(fmt.Sprintf("Unexpected error: %s", err.Error()), fields...)
}

// LogOperation logs a completed operation and how long it took
func LogOperation(logger Logger, operation string, duration time.Duration, context map[string]interface{}) {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	fields := []interface{}{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	}

	for k, v := range context {
		fields = append(fields, k, v)
	}

	logger.Info(fmt.Sprintf("Operation completed: %s", operation), fields...)
}
