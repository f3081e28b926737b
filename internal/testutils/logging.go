package testutils

import (
	"strings"
	"sync"
	"time"
)

// TestingT is a minimal interface that matches the methods we need from testing.T
type TestingT interface {
	Errorf(format string, args ...any)
}

// FieldsToMap safely converts a slice of alternating key-value pairs to a map.
// Malformed entries are reported through t and skipped.
func FieldsToMap(t TestingT, fields []any) map[string]any {
	fieldsMap := make(map[string]any)

	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			t.Errorf("Malformed fields slice: missing value for key at index %d", i)
			continue
		}

		key, ok := fields[i].(string)
		if !ok {
			t.Errorf("Malformed fields slice: key at index %d is not a string, got %T", i, fields[i])
			continue
		}

		fieldsMap[key] = fields[i+1]
	}

	return fieldsMap
}

// LogEntry is one call recorded by RecordingLogger
type LogEntry struct {
	Level   string
	Message string
	Fields  []any
}

// RecordingLogger satisfies logging.Logger and keeps every call in memory.
// It is safe for concurrent use, since injection and lifecycle code log from goroutines.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []LogEntry
	notify  chan struct{}
}

// NewRecordingLogger returns an empty RecordingLogger
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{notify: make(chan struct{}, 1)}
}

func (r *RecordingLogger) record(level, msg string, fields []any) {
	r.mu.Lock()
	r.entries = append(r.entries, LogEntry{Level: level, Message: msg, Fields: fields})
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *RecordingLogger) Debug(msg string, fields ...interface{}) { r.record("debug", msg, fields) }
func (r *RecordingLogger) Info(msg string, fields ...interface{})  { r.record("info", msg, fields) }
func (r *RecordingLogger) Warn(msg string, fields ...interface{})  { r.record("warn", msg, fields) }
func (r *RecordingLogger) Error(msg string, fields ...interface{}) { r.record("error", msg, fields) }

// Entries returns a snapshot of the recorded calls
func (r *RecordingLogger) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ByLevel returns the recorded calls at level
func (r *RecordingLogger) ByLevel(level string) []LogEntry {
	var out []LogEntry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// Find returns the first entry whose message contains substr
func (r *RecordingLogger) Find(substr string) (LogEntry, bool) {
	for _, e := range r.Entries() {
		if strings.Contains(e.Message, substr) {
			return e, true
		}
	}
	return LogEntry{}, false
}

// WaitFor blocks until an entry containing substr is recorded or timeout elapses
func (r *RecordingLogger) WaitFor(substr string, timeout time.Duration) (LogEntry, bool) {
	deadline := time.After(timeout)
	for {
		if e, ok := r.Find(substr); ok {
			return e, true
		}
		select {
		case <-r.notify:
		case <-deadline:
			return r.Find(substr)
		}
	}
}
