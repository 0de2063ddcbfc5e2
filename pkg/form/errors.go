package form

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned for paths that address nothing in the form.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrHiddenField is returned when editing a field that is not mounted.
	ErrHiddenField = errors.New("form: field is hidden")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("form: closed")
)

// MessagePending explains a submit that gave up waiting on async checks.
const MessagePending = "validation pending"

// SubmitError reports a refused submission. Path names the first offending
// field in layout order.
type SubmitError struct {
	Path    string
	Message string
	Err     error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("form: submit refused: %s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("form: submit refused: %s: %s", e.Path, e.Message)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
