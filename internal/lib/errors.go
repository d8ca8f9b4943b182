package lib

import (
	"errors"
	"fmt"
	"strings"
)

// FetchError carries the category and retryability of a failure alongside
// the underlying cause.
type FetchError struct {
	Category    ErrorCategory
	Message     string
	Cause       error
	HTTPStatus  int
	IsRetryable bool
}

// ErrorCategory classifies errors for logging and exit behavior
type ErrorCategory string

const (
	CategoryNetwork       ErrorCategory = "network"
	CategoryFileSystem    ErrorCategory = "filesystem"
	CategoryProvider      ErrorCategory = "provider"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryConversion    ErrorCategory = "conversion"
)

// Error implements the error interface
func (e *FetchError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", strings.ToUpper(string(e.Category))))
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	if e.HTTPStatus > 0 {
		sb.WriteString(fmt.Sprintf(" (HTTP %d)", e.HTTPStatus))
	}
	return sb.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// ErrProbeFailed creates an error for an existence probe that exhausted its
// retries.
func ErrProbeFailed(url string, cause error) *FetchError {
	return &FetchError{
		Category:    CategoryProvider,
		Message:     fmt.Sprintf("availability probe for %s failed", url),
		Cause:       cause,
		IsRetryable: false,
	}
}

// ErrDownloadFailed creates an error for a download that exhausted its
// retries. Per the fail-fast policy a run with a missing file is unusable,
// so this aborts the process.
func ErrDownloadFailed(url string, cause error) *FetchError {
	return &FetchError{
		Category:    CategoryNetwork,
		Message:     fmt.Sprintf("download of %s failed", url),
		Cause:       cause,
		IsRetryable: false,
	}
}

// ErrNoRemoteRuns creates an error for an empty remote run listing, which
// means the source is misconfigured or the provider is unreachable.
func ErrNoRemoteRuns(source string) *FetchError {
	return &FetchError{
		Category:    CategoryConfiguration,
		Message:     fmt.Sprintf("no remote runs discoverable for source %s", source),
		IsRetryable: false,
	}
}

// ErrConversionFailed creates an error for a failed grib conversion.
// Conversion failures indicate malformed inputs and are not retried.
func ErrConversionFailed(dir string, stderr string, cause error) *FetchError {
	msg := fmt.Sprintf("converting raw files in %s failed", dir)
	if stderr != "" {
		msg += ": " + strings.TrimSpace(stderr)
	}
	return &FetchError{
		Category:    CategoryConversion,
		Message:     msg,
		Cause:       cause,
		IsRetryable: false,
	}
}

// ErrOptimizationFailed creates an error for a failed artifact optimization.
// The intermediate artifact is preserved for diagnosis.
func ErrOptimizationFailed(path string, cause error) *FetchError {
	return &FetchError{
		Category:    CategoryConversion,
		Message:     fmt.Sprintf("optimizing artifact %s failed", path),
		Cause:       cause,
		IsRetryable: false,
	}
}

// WrapError wraps a standard error with FetchError context
func WrapError(category ErrorCategory, message string, cause error) *FetchError {
	return &FetchError{
		Category:    category,
		Message:     message,
		Cause:       cause,
		IsRetryable: IsNetworkError(cause),
	}
}

// AsFetchError extracts a FetchError from an error chain, if present.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
