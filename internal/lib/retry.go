package lib

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nwpfetch/internal/models"
)

// ErrorType classifies errors for the retry strategy.
type ErrorType string

const (
	ErrorTypeTransient    ErrorType = "transient"     // network, 5xx, timeout - retried
	ErrorTypeNonTransient ErrorType = "non_transient" // 4xx, malformed input - surfaced
)

// ClassifyHTTPError determines if an HTTP status is transient or non-transient.
func ClassifyHTTPError(statusCode int) ErrorType {
	if IsTransientHTTPStatus(statusCode) {
		return ErrorTypeTransient
	}
	return ErrorTypeNonTransient
}

// IsTransientHTTPStatus classifies HTTP status codes for retry logic.
func IsTransientHTTPStatus(status int) bool {
	// 5xx server errors are transient (provider might recover)
	if status >= 500 && status < 600 {
		return true
	}
	// 408 Request Timeout, 429 Too Many Requests are transient
	if status == 408 || status == 429 {
		return true
	}
	return false
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func() error

// ExecuteWithRetry runs an operation under the shared retry policy: a fixed
// number of attempts with a fixed inter-attempt delay. The delay is
// cancellable through the context. Returns nil on the first success, or the
// last error once the attempt bound is exhausted.
func ExecuteWithRetry(ctx context.Context, operation RetryableOperation, config models.RetryConfig, shouldRetry func(error) bool) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		lastErr = err

		if !shouldRetry(err) {
			return fmt.Errorf("non-retryable error: %w", err)
		}

		// Last attempt - don't wait
		if attempt == config.MaxAttempts-1 {
			break
		}

		if err := Sleep(ctx, config.Delay()); err != nil {
			return err
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// Sleep waits for the duration or until the context is cancelled, whichever
// comes first. Returns the context error on cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsNetworkError checks if an error is likely a network-related issue.
// These are typically transient and should be retried.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())

	networkErrors := []string{
		"connection refused",
		"connection reset",
		"no such host",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"deadline exceeded",
		"unexpected eof",
		"eof",
	}

	for _, pattern := range networkErrors {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
