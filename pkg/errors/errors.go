// Package errors provides structured error handling for clickwire
package errors

import (
	"errors"
	"runtime"

	stringpool "github.com/clickwire/clickwire/pkg/strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeConnection represents connection errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeQuery represents query execution errors reported by the store
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeFormat represents malformed wire payloads: field-count
	// mismatches, unparseable literals, over-deep array nesting
	ErrorTypeFormat ErrorType = "format"
	// ErrorTypeIncompatibleType represents type pairs with no generalizable
	// common type
	ErrorTypeIncompatibleType ErrorType = "incompatible_type"
	// ErrorTypeUnindexedField represents cache filters on fields that were
	// not indexed when the dataset was added
	ErrorTypeUnindexedField ErrorType = "unindexed_field"
	// ErrorTypeSchemaConflict represents transient remote schema-version
	// conflicts raised while concurrent writers alter the same table
	ErrorTypeSchemaConflict ErrorType = "schema_conflict"
	// ErrorTypeSchemaReconcile represents schema reconciliation failures
	// after retries are exhausted
	ErrorTypeSchemaReconcile ErrorType = "schema_reconcile"
	// ErrorTypePayloadTooLarge represents single records whose payload alone
	// exceeds the batch size ceiling
	ErrorTypePayloadTooLarge ErrorType = "payload_too_large"
	// ErrorTypeInvalidTableName represents malformed table names
	ErrorTypeInvalidTableName ErrorType = "invalid_table_name"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return stringpool.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return stringpool.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: stringpool.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsRetryable returns true if the error belongs to the closed set of
// transient conditions the retry loops are allowed to act on. Everything
// else must propagate immediately.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeSchemaConflict, ErrorTypeConnection, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
