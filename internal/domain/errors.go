package domain

import "fmt"

// ValidationError marks malformed appointment input. It is surfaced to the
// caller and never retried.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{msg: msg}
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// TransitionError marks a state-machine guard violation: the requested
// operation is not allowed from the appointment's current status.
type TransitionError struct {
	Op     string
	Status Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s appointment in status %q", e.Op, e.Status)
}

func transitionError(op string, status Status) error {
	return &TransitionError{Op: op, Status: status}
}
