package casetask

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperation is returned for an operation id with no registered task.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNotLinked means the case does not belong to the bulk action being processed.
	ErrNotLinked = errors.New("case not linked to bulk action")

	// ErrAlreadyLinked means the case already belongs to a different bulk action.
	ErrAlreadyLinked = errors.New("case already linked to another bulk action")

	// ErrIneligibleState means the case is in a state the task cannot act on.
	ErrIneligibleState = errors.New("case in ineligible state")
)

// InvalidOperationError reports a lookup of an unregistered operation id.
type InvalidOperationError struct {
	OperationID string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("%s: %q is not registered", ErrInvalidOperation, e.OperationID)
}

// Unwrap lets errors.Is match ErrInvalidOperation.
func (e *InvalidOperationError) Unwrap() error {
	return ErrInvalidOperation
}

// IsInvalidOperation reports whether err was caused by an unregistered operation id.
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}
