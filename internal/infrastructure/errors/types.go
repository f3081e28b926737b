package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorCode classifies failures across the shell (config, resources, store)
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeNotFound
	ErrCodeDuplicate
	ErrCodeConstraint
	ErrCodeConnection
	ErrCodeTimeout
	ErrCodeBusy
	ErrCodeValidation
	ErrCodePermission
	ErrCodeIO
	ErrCodeDiskSpace
	ErrCodeCorruption
	ErrCodeInternal
	ErrCodeSchema
)

// String returns a string representation of the error code
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeNotFound:
		return "NOT_FOUND"
	case ErrCodeDuplicate:
		return "DUPLICATE"
	case ErrCodeConstraint:
		return "CONSTRAINT"
	case ErrCodeConnection:
		return "CONNECTION"
	case ErrCodeTimeout:
		return "TIMEOUT"
	case ErrCodeBusy:
		return "BUSY"
	case ErrCodeValidation:
		return "VALIDATION"
	case ErrCodePermission:
		return "PERMISSION"
	case ErrCodeIO:
		return "IO"
	case ErrCodeDiskSpace:
		return "DISK_SPACE"
	case ErrCodeCorruption:
		return "CORRUPTION"
	case ErrCodeInternal:
		return "INTERNAL"
	case ErrCodeSchema:
		return "SCHEMA"
	default:
		return "UNKNOWN"
	}
}

// AppError is an error with an operation name, a classification and context
type AppError struct {
	Op        string            // operation name
	Err       error             // underlying error
	Code      ErrorCode         // error classification
	Retryable bool              // whether the error is retryable
	Context   map[string]string // additional context information
	Timestamp time.Time         // when the error occurred
}

func (e *AppError) Error() string {
	if e == nil {
		return "app error"
	}

	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.Code != ErrCodeUnknown {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code.String()))
	}

	if e.Retryable {
		parts = append(parts, "retryable=true")
	}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, e.Context[k]))
		}
	}

	contextStr := ""
	if len(parts) > 0 {
		contextStr = fmt.Sprintf(" [%s]", strings.Join(parts, " "))
	}

	if e.Err != nil {
		return e.Err.Error() + contextStr
	}
	return "app error" + contextStr
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another AppError by code, or the wrapped error
func (e *AppError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*AppError); ok {
		return e.Code == t.Code
	}
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// IsRetryable returns whether the error is retryable
func (e *AppError) IsRetryable() bool {
	if e == nil {
		return false
	}
	return e.Retryable
}

// GetCode returns the error code as a string (for logging interface compatibility)
func (e *AppError) GetCode() string {
	if e == nil {
		return ErrCodeUnknown.String()
	}
	return e.Code.String()
}

// GetContext returns the error context (for logging interface compatibility)
func (e *AppError) GetContext() map[string]string {
	if e == nil || e.Context == nil {
		return make(map[string]string)
	}
	return e.Context
}

// GetTimestamp returns the error timestamp (for logging interface compatibility)
func (e *AppError) GetTimestamp() time.Time {
	if e == nil {
		return time.Time{}
	}
	return e.Timestamp
}

// WithContext adds context information to the error by mutating the receiver.
// Not safe once the error has been handed to another goroutine.
func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// New creates a new classified error
func New(op string, err error, code ErrorCode) *AppError {
	return &AppError{
		Op:        op,
		Err:       err,
		Code:      code,
		Retryable: isRetryableError(code, err),
		Context:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// NewWithContext creates a new classified error carrying a copy of context
func NewWithContext(op string, err error, code ErrorCode, context map[string]string) *AppError {
	appErr := New(op, err, code)
	if context != nil {
		appErr.Context = make(map[string]string, len(context))
		for k, v := range context {
			appErr.Context[k] = v
		}
	}
	return appErr
}

// isRetryableError determines if an error is retryable based on its type
func isRetryableError(code ErrorCode, err error) bool {
	switch code {
	case ErrCodeConnection, ErrCodeTimeout, ErrCodeBusy:
		return true
	case ErrCodeNotFound, ErrCodeDuplicate, ErrCodeConstraint, ErrCodeValidation,
		ErrCodePermission, ErrCodeIO, ErrCodeDiskSpace, ErrCodeCorruption,
		ErrCodeInternal, ErrCodeSchema:
		return false
	default:
		if err != nil {
			errStr := strings.ToLower(err.Error())
			return strings.Contains(errStr, "temporary") ||
				strings.Contains(errStr, "retry") ||
				strings.Contains(errStr, "busy") ||
				strings.Contains(errStr, "locked")
		}
		return false
	}
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if the error is a "not found" error
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsConnection checks if the error is a connection error
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsTimeout checks if the error is a timeout error
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsBusy checks if the error is a busy/locked error
func IsBusy(err error) bool { return hasCode(err, ErrCodeBusy) }

// IsPermission checks if the error is a permission error
func IsPermission(err error) bool { return hasCode(err, ErrCodePermission) }

// IsIO checks if the error is a filesystem/IO error
func IsIO(err error) bool { return hasCode(err, ErrCodeIO) }

// IsCorruption checks if the error is a corruption error
func IsCorruption(err error) bool { return hasCode(err, ErrCodeCorruption) }

// IsRetryable checks if the error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
