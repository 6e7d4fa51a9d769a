package errors

import (
	"context"
	"errors"
	"fmt"
)

// MonitorError carries a stable code so callers can branch on failure kind
// without string matching. Component is the data source that failed.
type MonitorError struct {
	Code      string
	Message   string
	Cause     error
	Component string
}

func (e *MonitorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *MonitorError) Unwrap() error { return e.Cause }

const (
	ErrCodeSubprocessFailed = "SUBPROCESS_FAILED"
	ErrCodeParseFailed      = "PARSE_FAILED"
	ErrCodeLookupFailed     = "LOOKUP_FAILED"
	ErrCodeInvalidConfig    = "INVALID_CONFIG"
	ErrCodeStoreFailed      = "STORE_FAILED"
	ErrCodeTimeout          = "TIMEOUT"
	ErrCodeCancelled        = "CANCELLED"
)

func ErrSubprocessFailed(component string, cause error) *MonitorError {
	return &MonitorError{
		Code:      ErrCodeSubprocessFailed,
		Message:   "subprocess failed",
		Cause:     cause,
		Component: component,
	}
}

func ErrParseFailed(component string, cause error) *MonitorError {
	return &MonitorError{
		Code:      ErrCodeParseFailed,
		Message:   "output parse failed",
		Cause:     cause,
		Component: component,
	}
}

func ErrLookupFailed(msg string, cause error) *MonitorError {
	return &MonitorError{
		Code:    ErrCodeLookupFailed,
		Message: msg,
		Cause:   cause,
	}
}

func ErrInvalidConfig(msg string, cause error) *MonitorError {
	return &MonitorError{
		Code:    ErrCodeInvalidConfig,
		Message: msg,
		Cause:   cause,
	}
}

func ErrStoreFailed(msg string, cause error) *MonitorError {
	return &MonitorError{
		Code:    ErrCodeStoreFailed,
		Message: msg,
		Cause:   cause,
	}
}

func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
