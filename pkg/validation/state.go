// Package validation evaluates field rules. Synchronous rules run in
// declaration order and short-circuit on the first failure; an optional async
// validator runs last. Sequencer tags async dispatches so completions for
// superseded values are discarded.
package validation

// Status is a field's position in the validation state machine:
// untouched -> pending -> {valid, invalid}, re-entering pending on change.
type Status string

const (
	StatusUntouched Status = "untouched"
	StatusPending   Status = "pending"
	StatusValid     Status = "valid"
	StatusInvalid   Status = "invalid"
)

// Resolved reports whether the status is terminal (valid or invalid).
func (s Status) Resolved() bool {
	return s == StatusValid || s == StatusInvalid
}

// State is the validation state of one field.
type State struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Untouched is the initial state.
func Untouched() State {
	return State{Status: StatusUntouched}
}

// Pending marks an in-flight async validation.
func Pending() State {
	return State{Status: StatusPending}
}

// Valid marks a passing field.
func Valid() State {
	return State{Status: StatusValid}
}

// Invalid marks a failing field with its message.
func Invalid(message string) State {
	return State{Status: StatusInvalid, Message: message}
}
