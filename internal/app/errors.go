package app

import "fmt"

// PermanentFailureError reports a case the engine gave up on: the retry
// budget was spent or the fault was not retryable.
type PermanentFailureError struct {
	CaseID      string
	OperationID string
	Attempts    int
	Err         error
}

func (e *PermanentFailureError) Error() string {
	return fmt.Sprintf("%s on case %s failed after %d attempt(s): %v", e.OperationID, e.CaseID, e.Attempts, e.Err)
}

func (e *PermanentFailureError) Unwrap() error {
	return e.Err
}
