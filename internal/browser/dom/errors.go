// internal/browser/dom/errors.go
package dom

import "fmt"

// ParseError is returned by SetContent and SetInnerHTML when markup cannot be loaded.
type ParseError struct {
	Reason string
	Offset int // Byte offset of the problem, or -1 when it has no position.
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	msg := "parse error: " + e.Reason
	if e.Offset >= 0 {
		msg = fmt.Sprintf("parse error at byte %d: %s", e.Offset, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap provides the underlying error for use with errors.Is/As.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(reason string, offset int, err error) *ParseError {
	return &ParseError{
		Reason: reason,
		Offset: offset,
		Err:    err,
	}
}

// NotFoundError is returned when a query matches no element.
type NotFoundError struct {
	Query string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no element matches %s", e.Query)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(query string) *NotFoundError {
	return &NotFoundError{Query: query}
}

// NotInteractableError is returned when an element exists but cannot take the requested input.
type NotInteractableError struct {
	Element string
	Action  string
	Reason  string
}

// Error implements the error interface.
func (e *NotInteractableError) Error() string {
	return fmt.Sprintf("cannot %s %s: %s", e.Action, e.Element, e.Reason)
}

// NewNotInteractableError creates a new NotInteractableError.
func NewNotInteractableError(element, action, reason string) *NotInteractableError {
	return &NotInteractableError{
		Element: element,
		Action:  action,
		Reason:  reason,
	}
}
