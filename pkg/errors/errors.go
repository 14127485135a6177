package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the class of failure
type ErrorType string

const (
	// ErrorTypeNetwork is a connectivity or timeout failure
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeEmptyResponse is an upstream response with no body
	ErrorTypeEmptyResponse ErrorType = "empty_response"
	// ErrorTypeParse is malformed JSON in the envelope or the body
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeApplication means upstream explicitly rejected the request
	ErrorTypeApplication ErrorType = "application"
	// ErrorTypeHTTP is an unexpected status code with a non-error envelope
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeIO is a filesystem failure
	ErrorTypeIO ErrorType = "io"
	// ErrorTypeExhausted means a transfer spent its retry budget
	ErrorTypeExhausted ErrorType = "exhausted"
)

// Error is the typed error returned by the API layer and the transfer engine
type Error struct {
	Type    ErrorType
	Message string
	// Status is the HTTP status code when one was received
	Status int
	// File and Tries are set on exhausted transfers
	File  string
	Tries int
	Err   error
}

func (e *Error) Error() string {
	switch e.Type {
	case ErrorTypeExhausted:
		return fmt.Sprintf("failed to download %s after %d tries: %v", e.File, e.Tries, e.Err)
	case ErrorTypeEmptyResponse:
		return fmt.Sprintf("empty response (status %d)", e.Status)
	case ErrorTypeApplication:
		return fmt.Sprintf("server returned %q (status %d)", e.Message, e.Status)
	case ErrorTypeHTTP:
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	if e.Err != nil {
		if e.Message != "" {
			return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
		}
		return fmt.Sprintf("%s error: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same Type, so errors.Is(err, errors.Application) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Status == 0 && t.Err == nil && t.Type == e.Type
}

// Sentinel values usable with errors.Is
var (
	Network       = &Error{Type: ErrorTypeNetwork}
	EmptyResponse = &Error{Type: ErrorTypeEmptyResponse}
	Parse         = &Error{Type: ErrorTypeParse}
	Application   = &Error{Type: ErrorTypeApplication}
	HTTP          = &Error{Type: ErrorTypeHTTP}
	IO            = &Error{Type: ErrorTypeIO}
	Exhausted     = &Error{Type: ErrorTypeExhausted}
)

// NewNetwork wraps a transport failure
func NewNetwork(err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Err: err}
}

// NewEmptyResponse reports a response without a body
func NewEmptyResponse(status int) *Error {
	return &Error{Type: ErrorTypeEmptyResponse, Status: status}
}

// NewParse wraps a JSON decode failure
func NewParse(status int, err error) *Error {
	return &Error{Type: ErrorTypeParse, Status: status, Err: err}
}

// NewApplication reports an envelope with error set
func NewApplication(message string, status int) *Error {
	return &Error{Type: ErrorTypeApplication, Message: message, Status: status}
}

// NewHTTP reports a non-success status
func NewHTTP(status int) *Error {
	return &Error{Type: ErrorTypeHTTP, Status: status}
}

// NewIO wraps a filesystem failure
func NewIO(message string, err error) *Error {
	return &Error{Type: ErrorTypeIO, Message: message, Err: err}
}

// NewExhausted reports a transfer that failed on every attempt
func NewExhausted(file string, tries int, last error) *Error {
	return &Error{Type: ErrorTypeExhausted, File: file, Tries: tries, Err: last}
}

// TypeOf returns the ErrorType of err, or "" when err is not an *Error
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsRetryable checks if an error type should be retried by the transfer engine
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeHTTP, ErrorTypeIO, ErrorTypeEmptyResponse:
		return true
	case ErrorTypeApplication, ErrorTypeParse, ErrorTypeExhausted:
		return false
	default:
		return false
	}
}
