package errors

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
)

// ClassifyError maps driver, filesystem and stdlib errors onto error codes
func ClassifyError(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}

	if code := classifySQLiteError(err); code != ErrCodeUnknown {
		return code
	}

	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrCodePermission
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrCodeTimeout
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "unique constraint"):
		return ErrCodeDuplicate
	case strings.Contains(errStr, "constraint"):
		return ErrCodeConstraint
	case strings.Contains(errStr, "database is locked"):
		return ErrCodeBusy
	case strings.Contains(errStr, "database disk image is malformed"):
		return ErrCodeCorruption
	case strings.Contains(errStr, "no such table"), strings.Contains(errStr, "no such column"):
		return ErrCodeSchema
	case strings.Contains(errStr, "permission denied"), strings.Contains(errStr, "access denied"):
		return ErrCodePermission
	case strings.Contains(errStr, "disk full"), strings.Contains(errStr, "no space left"):
		return ErrCodeDiskSpace
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "network unreachable"):
		return ErrCodeConnection
	case strings.Contains(errStr, "timeout"):
		return ErrCodeTimeout
	default:
		return ErrCodeUnknown
	}
}

// Wrap classifies err and wraps it with the operation name
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return New(op, err, ClassifyError(err))
}

// WrapWithContext classifies err and wraps it with the operation name and context
func WrapWithContext(op string, err error, contextMap map[string]string) error {
	if err == nil {
		return nil
	}
	return NewWithContext(op, err, ClassifyError(err), contextMap)
}

// HandleNotFound creates a standardized not found error
func HandleNotFound(op string, resource string, identifier string) error {
	return NewWithContext(op, sql.ErrNoRows, ErrCodeNotFound, map[string]string{
		"resource":   resource,
		"identifier": identifier,
	})
}

// HandleValidationError creates a standardized validation error
func HandleValidationError(op string, field string, value string, reason string) error {
	return NewWithContext(op, errors.New("validation failed"), ErrCodeValidation, map[string]string{
		"field":  field,
		"value":  value,
		"reason": reason,
	})
}

// HandleConnectionError creates a standardized connection error
func HandleConnectionError(op string, details string) error {
	return NewWithContext(op, errors.New("connection error"), ErrCodeConnection, map[string]string{
		"details": details,
	})
}

// HandleResourceError wraps a failure to read a bundled resource file
func HandleResourceError(op string, path string, err error) error {
	code := ClassifyError(err)
	if code == ErrCodeUnknown {
		code = ErrCodeIO
	}
	return NewWithContext(op, err, code, map[string]string{
		"path": path,
	})
}
