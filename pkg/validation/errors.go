package validation

import (
	"errors"
	"fmt"
)

// GenericAsyncFailureMessage is surfaced when an async check itself fails
// (timeout, transport error, panic) rather than rejecting the value.
const GenericAsyncFailureMessage = "校验失败，请稍后重试"

// ErrStaleCompletion marks an async result for a value that is no longer
// current. It is never shown to users.
var ErrStaleCompletion = errors.New("validation: stale completion")

// Rejection is returned by async validators to reject a value with a
// user-facing message.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

// Reject builds a Rejection.
func Reject(message string) error {
	return &Rejection{Message: message}
}

// ValidationError reports a field failing one of its rules.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Path, e.Message)
}

// AsyncCheckFailure wraps an error raised by the async check itself.
type AsyncCheckFailure struct {
	Err error
}

func (e *AsyncCheckFailure) Error() string {
	return fmt.Sprintf("validation: async check failed: %v", e.Err)
}

func (e *AsyncCheckFailure) Unwrap() error {
	return e.Err
}
