package errors

import (
	"fmt"

	"ewebapp/internal/infrastructure/logging"
)

// LoggerBridge adapts logging.Logger to RetryLogger
type LoggerBridge struct {
	logger logging.Logger
}

// NewLoggerBridge creates a new bridge from logging.Logger to RetryLogger
func NewLoggerBridge(logger logging.Logger) RetryLogger {
	return &LoggerBridge{logger: logger}
}

// Printf formats the retry message and logs it at INFO
func (b *LoggerBridge) Printf(format string, v ...interface{}) {
	if b.logger != nil {
		b.logger.Info(fmt.Sprintf(format, v...), "source", "retry")
	}
}

// SetDefaultRetryLogger routes retry messages into logger
func SetDefaultRetryLogger(logger logging.Logger) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	SetRetryLogger(NewLoggerBridge(logger))
}
