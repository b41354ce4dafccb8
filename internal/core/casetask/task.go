// Package casetask defines the transformations applied to individual case
// records and the table that maps operation ids to them.
//
// A CaseTask is a value: it takes a record and returns an updated copy. Tasks
// never modify their input and must be safe to apply again to their own
// output, because a submit that loses a version race re-runs the task on
// freshly fetched state.
package casetask

import (
	"context"

	"github.com/example/bulkcase/internal/ports/secondary"
)

// CaseTask transforms one case record.
type CaseTask func(ctx context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error)

// Pipeline chains tasks so each receives the previous task's output.
// The first error stops the chain.
func Pipeline(tasks ...CaseTask) CaseTask {
	return func(ctx context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		current := rec
		for _, task := range tasks {
			next, err := task(ctx, current)
			if err != nil {
				return nil, err
			}
			current = next
		}
		return current, nil
	}
}

// Operation ids submitted against individual cases.
const (
	OpUpdateCourtHearing = "system-update-case-court-hearing"
	OpPronounceCase      = "system-pronounce-case"
	OpLinkWithBulkCase   = "system-link-with-bulk-case"
	OpRemoveBulkCase     = "system-remove-bulk-case"
)

// Operation ids submitted against bulk action records.
const (
	OpCreateBulkCase      = "system-create-bulk-case"
	OpScheduleCases       = "system-schedule-cases"
	OpPronounceCases      = "system-pronounce-cases"
	OpRemoveCasesFromBulk = "system-remove-cases-from-bulk-list"
	OpDropBulkList        = "system-drop-bulk-list"
	OpRemoveFailedCases   = "system-remove-failed-cases"
	OpEmptyBulkCase       = "system-empty-bulk-case"
	OpMigrateBulkCase     = "system-migrate-bulk-case"
	OpResetBulkCaseSchema = "system-reset-bulk-case-schema"
)
