package fault

import (
	"errors"
	"fmt"
)

// Class categorizes experiment-engine errors by their nature so callers can
// reason about recovery without inspecting message text.
type Class string

const (
	// ClassConfiguration indicates an invalid experiment setup.
	// Examples: a generated mutation point with no model client, an empty
	// candidate list, a persona without a system prompt.
	// Configuration errors are fatal and never retried.
	ClassConfiguration Class = "configuration"

	// ClassProvider indicates that an external model call failed after the
	// provider client's own retry budget was exhausted.
	ClassProvider Class = "provider"

	// ClassSchema indicates that a structured model response could not be
	// validated against the requested schema, or that the provider produced
	// no structured data at all.
	ClassSchema Class = "schema_violation"

	// ClassToolName indicates that the agent invoked a tool name that is not
	// registered. This is the only class the conversation driver retries.
	ClassToolName Class = "tool_name"

	// ClassProtocol indicates an item shape from the agent run that the
	// driver does not recognize. It signals a driver/provider contract
	// mismatch and is fatal for the trial.
	ClassProtocol Class = "protocol_violation"
)

// Error is the structured error type used throughout the lab engine.
// It carries a Class for semantic dispatch, a human-readable message,
// and an optional wrapped cause.
type Error struct {
	// Class categorizes the error for recovery decisions.
	Class Class

	// Message is a human-readable description of what went wrong.
	Message string

	// Tool is the offending tool name for ClassToolName errors.
	Tool string

	// Retryable indicates whether retrying the operation may succeed.
	Retryable bool

	// Cause is the wrapped underlying error, if any.
	Cause error
}

// Error implements the error interface, formatting as "[class]: message".
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s]: %s: %v", e.Class, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s]: %s", e.Class, e.Message)
}

// Unwrap returns the wrapped cause for errors.Is/errors.As traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Configuration creates a fatal configuration error.
func Configuration(format string, args ...any) *Error {
	return &Error{
		Class:   ClassConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// Provider wraps an external model-call failure.
func Provider(cause error, format string, args ...any) *Error {
	return &Error{
		Class:   ClassProvider,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// SchemaViolation creates a structured-output validation error.
func SchemaViolation(cause error, format string, args ...any) *Error {
	return &Error{
		Class:   ClassSchema,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// ToolName creates a retryable unknown-tool error for the given tool name.
func ToolName(tool string) *Error {
	return &Error{
		Class:     ClassToolName,
		Message:   fmt.Sprintf("tool %q not found", tool),
		Tool:      tool,
		Retryable: true,
	}
}

// Protocol creates a fatal protocol-violation error for an unrecognized
// item shape produced by an agent run.
func Protocol(format string, args ...any) *Error {
	return &Error{
		Class:   ClassProtocol,
		Message: fmt.Sprintf(format, args...),
	}
}

// ClassOf returns the Class of err if it is (or wraps) a *Error,
// and "" otherwise.
func ClassOf(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class
	}
	return ""
}

// IsToolName reports whether err is (or wraps) an unknown-tool error.
// The conversation driver uses this instead of substring-matching the
// error text, which is brittle across providers.
func IsToolName(err error) bool {
	return ClassOf(err) == ClassToolName
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}
