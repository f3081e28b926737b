package errors

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// RetryLogger receives retry progress messages
type RetryLogger interface {
	Printf(format string, v ...interface{})
}

// RetryConfig holds configuration for retry logic
type RetryConfig struct {
	MaxAttempts     int           // Maximum number of attempts, including the first
	InitialDelay    time.Duration // Delay before the second attempt
	MaxDelay        time.Duration // Upper bound for any single delay
	BackoffFactor   float64       // Exponential backoff factor
	Jitter          bool          // Whether to add up to 25% jitter
	RetryableErrors []ErrorCode   // Codes eligible for retry
}

var retryLogger RetryLogger

// DefaultRetryConfig suits local SQLite access: a locked database usually clears quickly.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryableErrors: []ErrorCode{
			ErrCodeBusy,
			ErrCodeTimeout,
			ErrCodeConnection,
		},
	}
}

// RetryableOperation is retried until it succeeds or returns a non-retryable error
type RetryableOperation func() error

// SetRetryLogger sets the package-level logger for retry operations
func SetRetryLogger(logger RetryLogger) {
	retryLogger = logger
}

func logRetryMessage(format string, v ...interface{}) {
	if retryLogger != nil {
		retryLogger.Printf(format, v...)
	}
}

func withRetryImpl(ctx context.Context, config *RetryConfig, operation RetryableOperation, operationName string) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if operationName == "" {
		operationName = "unnamed"
	}

	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				logRetryMessage("Operation '%s' succeeded after %d attempts", operationName, attempt+1)
			}
			return nil
		}

		lastErr = err

		if !shouldRetry(err, config) {
			return err
		}

		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateDelay(attempt, config)
		logRetryMessage("Operation '%s' failed (attempt %d/%d), retrying in %v: %v",
			operationName, attempt+1, config.MaxAttempts, delay, err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation '%s' cancelled during retry: %w", operationName, ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation '%s' failed after %d attempts: %w", operationName, config.MaxAttempts, lastErr)
}

// WithRetry executes an operation with retry logic
func WithRetry(ctx context.Context, config *RetryConfig, operation RetryableOperation) error {
	return withRetryImpl(ctx, config, operation, "")
}

// WithRetryContext is WithRetry with an operation name used in log messages
func WithRetryContext(ctx context.Context, config *RetryConfig, operation RetryableOperation, operationName string) error {
	return withRetryImpl(ctx, config, operation, operationName)
}

// shouldRetry only retries classified errors whose code is listed in config
func shouldRetry(err error, config *RetryConfig) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	if !appErr.IsRetryable() {
		return false
	}
	return slices.Contains(config.RetryableErrors, appErr.Code)
}

func calculateDelay(attempt int, config *RetryConfig) time.Duration {
	multiplier := 1.0
	for range attempt {
		multiplier *= config.BackoffFactor
	}

	delay := time.Duration(float64(config.InitialDelay) * multiplier)

	if config.Jitter && delay > 0 {
		jitterAmount := time.Duration(float64(delay) * 0.25)
		if jitterAmount > 0 {
			delay += time.Duration(time.Now().UnixNano() % int64(jitterAmount))
		}
	}

	return min(delay, config.MaxDelay)
}

// RetryQuick retries busy and timeout errors twice with a short, fixed backoff
func RetryQuick(ctx context.Context, operationName string, operation RetryableOperation) error {
	config := &RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  25 * time.Millisecond,
		MaxDelay:      250 * time.Millisecond,
		BackoffFactor: 2.0,
		Jitter:        false,
		RetryableErrors: []ErrorCode{
			ErrCodeBusy,
			ErrCodeTimeout,
		},
	}
	return withRetryImpl(ctx, config, operation, operationName)
}
