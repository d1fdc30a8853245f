// Package errors provides structured error handling for Tabula with typed
// categories, key/value details and captured stack traces.
//
// # Overview
//
// Every failure the engine reports is an *Error whose Type identifies the
// kind of failure:
//
//   - ErrorTypeMissingColumn: a referenced column does not exist
//   - ErrorTypeColumnCountMismatch: a row has the wrong number of fields
//   - ErrorTypeMissingHeader: delimited input has no header line
//   - ErrorTypeConcatenateColumnMismatch: the appended table lacks a column
//   - ErrorTypeIO: a file or object could not be read or written
//
// Boundary packages (storage, connectors, configuration) use the remaining
// types when wrapping errors from third-party SDKs.
//
// # Basic Usage
//
//	col, err := t.Column("id")
//	if errors.IsType(err, errors.ErrorTypeMissingColumn) {
//	    name := err.(*errors.Error).Details["column"]
//	    ...
//	}
//
// Errors are never retried by the engine: the computation is deterministic,
// and retrying I/O is a caller concern.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of an error.
type ErrorType string

const (
	// ErrorTypeMissingColumn is reported when a column name is not in the table
	ErrorTypeMissingColumn ErrorType = "missing_column"
	// ErrorTypeColumnCountMismatch is reported when a row width differs from the header
	ErrorTypeColumnCountMismatch ErrorType = "column_count_mismatch"
	// ErrorTypeMissingHeader is reported when delimited input has no header line
	ErrorTypeMissingHeader ErrorType = "missing_header"
	// ErrorTypeConcatenateColumnMismatch is reported when a concatenated table lacks a column
	ErrorTypeConcatenateColumnMismatch ErrorType = "concatenate_column_mismatch"
	// ErrorTypeIO represents file and object storage read/write failures
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeConnection represents connection errors to external systems
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeData represents malformed input data
	ErrorTypeData ErrorType = "data"
	// ErrorTypeValidation represents invalid arguments or definitions
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeInternal represents internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error represents a structured error with context.
//
// Details carries the machine-readable payload of each kind: "column" for
// missing and concatenate errors, "expected"/"actual" for count mismatches
// and "path" for I/O failures.
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
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same type. It lets callers
// compare against the sentinel values below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Type == e.Type
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Detail returns the detail stored under key as a string, or "" if absent.
func (e *Error) Detail(key string) string {
	v, ok := e.Details[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Sentinels for errors.Is comparisons.
var (
	ErrMissingColumn             = &Error{Type: ErrorTypeMissingColumn}
	ErrColumnCountMismatch       = &Error{Type: ErrorTypeColumnCountMismatch}
	ErrMissingHeader             = &Error{Type: ErrorTypeMissingHeader}
	ErrConcatenateColumnMismatch = &Error{Type: ErrorTypeConcatenateColumnMismatch}
	ErrIO                        = &Error{Type: ErrorTypeIO}
)

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
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context. Returns nil if err is nil.
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

// MissingColumn reports that the named column does not exist.
func MissingColumn(name string) *Error {
	return &Error{
		Type:    ErrorTypeMissingColumn,
		Message: fmt.Sprintf("column %q does not exist", name),
		Details: map[string]interface{}{"column": name},
		Stack:   captureStack(2),
	}
}

// ColumnCountMismatch reports a row with actual fields where expected were declared.
func ColumnCountMismatch(expected, actual int) *Error {
	return &Error{
		Type:    ErrorTypeColumnCountMismatch,
		Message: fmt.Sprintf("row has %d fields but %d columns are declared", actual, expected),
		Details: map[string]interface{}{"expected": expected, "actual": actual},
		Stack:   captureStack(2),
	}
}

// MissingHeader reports delimited input without a header line.
func MissingHeader() *Error {
	return &Error{
		Type:    ErrorTypeMissingHeader,
		Message: "no header line found",
		Stack:   captureStack(2),
	}
}

// ConcatenateColumnMismatch reports that the second table of a
// concatenation lacks the named column.
func ConcatenateColumnMismatch(name string) *Error {
	return &Error{
		Type:    ErrorTypeConcatenateColumnMismatch,
		Message: fmt.Sprintf("second table in concatenation has no column %q", name),
		Details: map[string]interface{}{"column": name},
		Stack:   captureStack(2),
	}
}

// IoFailure wraps a read or write failure on path.
func IoFailure(path string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Message: fmt.Sprintf("i/o failure on %s", path),
		Cause:   cause,
		Details: map[string]interface{}{"path": path},
		Stack:   captureStack(2),
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

// TypeOf returns the type of the outermost *Error in err's chain, or
// ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorTypeInternal
	}
	return e.Type
}

// As is errors.As from the standard library, re-exported so callers that
// import this package under the name errors keep access to it.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// captureStack captures the current call stack, skipping the given number
// of frames from the top.
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
