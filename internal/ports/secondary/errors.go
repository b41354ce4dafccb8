package secondary

import "errors"

// Store fault classes. Adapters wrap these with fmt.Errorf("...: %w") so callers
// classify with errors.Is.
var (
	// ErrConflict means the presented version token is stale.
	ErrConflict = errors.New("version conflict")

	// ErrNotFound means no record exists with the given id.
	ErrNotFound = errors.New("case not found")

	// ErrTransient means the store failed in a way that may succeed on retry.
	ErrTransient = errors.New("transient store failure")
)
