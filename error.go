package pagetext

import (
	"errors"
	"fmt"
)

// Error codes. Every failure returned by the engine carries one of these.
const (
	EUNREACHABLE = "unreachable"   // host could not be resolved or connected to
	ENOTFOUND    = "not_found"     // HTTP 404
	EHTTP        = "http_error"    // any other HTTP status >= 400
	ENOCONTENT   = "no_content"    // heuristic found fewer than MinContentLength characters
	ELAUNCH      = "launch_failed" // headless browser could not be started
	ETIMEOUT     = "timeout"       // navigation, selector wait or request deadline elapsed
	EUNKNOWN     = "unknown"
)

// Error represents an extraction failure.
type Error struct {
	// Code is the machine-readable failure kind.
	Code string

	// Message is a human-readable description.
	Message string

	// Status is the HTTP status code for ENOTFOUND and EHTTP failures.
	Status int

	// Err is the underlying cause. It is kept for diagnostics only.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pagetext error: code=%s message=%s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("pagetext error: code=%s message=%s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError returns an Error with the given code that keeps err as its cause.
func WrapError(code string, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EUNKNOWN.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EUNKNOWN
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors always return "Internal error".
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error"
}

// ErrorStatus returns the HTTP status carried by an application error, or 0.
func ErrorStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// AsError converts any error into an application error. Application errors
// are returned as-is; anything else becomes EUNKNOWN with err as the cause.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapError(EUNKNOWN, err, "failed to extract content")
}
