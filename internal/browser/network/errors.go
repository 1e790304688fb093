// internal/browser/network/errors.go
package network

import "fmt"

// Typed errors let a test tell a bad fixture apart from a request nobody
// planned for, using errors.As instead of matching on message text.

// InvalidPatternError is returned when a route pattern cannot be used.
type InvalidPatternError struct {
	Pattern string
	Reason  string
	Err     error // Compilation error from the glob engine, if any.
}

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid route pattern '%s': %s: %v", e.Pattern, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid route pattern '%s': %s", e.Pattern, e.Reason)
}

// Unwrap provides the underlying error for use with errors.Is/As.
func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// NewInvalidPatternError creates a new InvalidPatternError.
func NewInvalidPatternError(pattern, reason string, err error) *InvalidPatternError {
	return &InvalidPatternError{
		Pattern: pattern,
		Reason:  reason,
		Err:     err,
	}
}

// UnhandledRequestError is returned when no registered rule matches a request.
type UnhandledRequestError struct {
	Method string
	URL    string
}

// Error implements the error interface.
func (e *UnhandledRequestError) Error() string {
	return fmt.Sprintf("unhandled request: %s %s matched no route", e.Method, e.URL)
}

// NewUnhandledRequestError creates a new UnhandledRequestError.
func NewUnhandledRequestError(method, url string) *UnhandledRequestError {
	return &UnhandledRequestError{
		Method: method,
		URL:    url,
	}
}

// NetworkError is a simulated transport failure, as produced by Abort or by
// the network_error unhandled policy.
type NetworkError struct {
	URL    string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error for %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("network error for %s: %s", e.URL, e.Reason)
}

// Unwrap provides the underlying error for use with errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new NetworkError.
func NewNetworkError(url, reason string, err error) *NetworkError {
	return &NetworkError{
		URL:    url,
		Reason: reason,
		Err:    err,
	}
}
