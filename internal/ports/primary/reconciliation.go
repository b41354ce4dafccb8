package primary

import "context"

// ReconciliationTask is a periodic pass that resumes or repairs bulk work.
// Run never returns an error: faults are logged and the next run retries.
type ReconciliationTask interface {
	Name() string
	Run(ctx context.Context)
}
