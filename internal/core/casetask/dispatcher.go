package casetask

import (
	"fmt"
	"sort"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/migration"
)

// TaskFactory builds the task for one operation from the parameters stored on
// the bulk action driving it. Factories for operations on the bulk action
// record itself ignore bulk and may receive nil.
type TaskFactory func(bulk *bulkaction.BulkAction) (CaseTask, error)

// Registration binds an operation id to its factory.
type Registration struct {
	OperationID string
	Factory     TaskFactory
}

// Dispatcher maps operation ids to task factories. The table is fixed at
// construction.
type Dispatcher struct {
	factories map[string]TaskFactory
}

// NewDispatcher builds a dispatcher from registrations. Empty or duplicate
// operation ids are rejected.
func NewDispatcher(regs ...Registration) (*Dispatcher, error) {
	factories := make(map[string]TaskFactory, len(regs))
	for _, r := range regs {
		if r.OperationID == "" {
			return nil, fmt.Errorf("registration with empty operation id")
		}
		if r.Factory == nil {
			return nil, fmt.Errorf("operation %q has no factory", r.OperationID)
		}
		if _, dup := factories[r.OperationID]; dup {
			return nil, fmt.Errorf("operation %q registered twice", r.OperationID)
		}
		factories[r.OperationID] = r.Factory
	}
	return &Dispatcher{factories: factories}, nil
}

// NewDefaultDispatcher registers every operation the engine submits against
// cases and bulk action records.
func NewDefaultDispatcher(migrator *migration.Migrator) (*Dispatcher, error) {
	return NewDispatcher(
		Registration{OperationID: OpUpdateCourtHearing, Factory: func(bulk *bulkaction.BulkAction) (CaseTask, error) {
			if bulk == nil {
				return nil, fmt.Errorf("%s needs a bulk action", OpUpdateCourtHearing)
			}
			return UpdateCourtHearing(bulk.ID, bulk.DateAndTimeOfHearing, bulk.Court), nil
		}},
		Registration{OperationID: OpPronounceCase, Factory: func(bulk *bulkaction.BulkAction) (CaseTask, error) {
			if bulk == nil {
				return nil, fmt.Errorf("%s needs a bulk action", OpPronounceCase)
			}
			return Pipeline(
				Pronounce(bulk.ID, bulk.PronouncementJudge, bulk.DateAndTimeOfHearing),
				FinalOrderEligibility(),
			), nil
		}},
		Registration{OperationID: OpLinkWithBulkCase, Factory: func(bulk *bulkaction.BulkAction) (CaseTask, error) {
			if bulk == nil {
				return nil, fmt.Errorf("%s needs a bulk action", OpLinkWithBulkCase)
			}
			return LinkWithBulkCase(bulk.ID), nil
		}},
		Registration{OperationID: OpRemoveBulkCase, Factory: func(bulk *bulkaction.BulkAction) (CaseTask, error) {
			if bulk == nil {
				return nil, fmt.Errorf("%s needs a bulk action", OpRemoveBulkCase)
			}
			return RemoveBulkLink(bulk.ID), nil
		}},
		Registration{OperationID: OpMigrateBulkCase, Factory: func(*bulkaction.BulkAction) (CaseTask, error) {
			return MigrateBulkCase(migrator), nil
		}},
		Registration{OperationID: OpResetBulkCaseSchema, Factory: func(*bulkaction.BulkAction) (CaseTask, error) {
			return ResetBulkCaseSchema(), nil
		}},
	)
}

// Lookup returns the factory registered for operationID, or an
// *InvalidOperationError.
func (d *Dispatcher) Lookup(operationID string) (TaskFactory, error) {
	f, ok := d.factories[operationID]
	if !ok {
		return nil, &InvalidOperationError{OperationID: operationID}
	}
	return f, nil
}

// Task looks up operationID and builds its task from bulk.
func (d *Dispatcher) Task(operationID string, bulk *bulkaction.BulkAction) (CaseTask, error) {
	f, err := d.Lookup(operationID)
	if err != nil {
		return nil, err
	}
	task, err := f(bulk)
	if err != nil {
		return nil, fmt.Errorf("failed to build task %s: %w", operationID, err)
	}
	return task, nil
}

// Operations lists the registered operation ids in sorted order.
func (d *Dispatcher) Operations() []string {
	ops := make([]string, 0, len(d.factories))
	for op := range d.factories {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
