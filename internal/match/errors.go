package match

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalOperation is the root of every guard failure raised by a match.
	ErrIllegalOperation = errors.New("illegal match operation")
	ErrOccupied         = errors.New("stone position occupied")
	ErrNotFound         = errors.New("player not found")
	ErrRoster           = errors.New("roster violation")
)

// IllegalOperationError carries the violated precondition of a match operation.
type IllegalOperationError struct {
	Op     string
	Reason string
	Err    error
}

func (e *IllegalOperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *IllegalOperationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrIllegalOperation}
	}
	return []error{ErrIllegalOperation, e.Err}
}

func illegal(op, reason string, err error) error {
	return &IllegalOperationError{Op: op, Reason: reason, Err: err}
}
