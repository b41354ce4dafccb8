// Package app runs bulk passes over cases and the periodic tasks that repair
// partially failed ones.
package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/core/retry"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// BulkTrigger applies one task to many case records, each under its own
// optimistic token and retry budget.
type BulkTrigger struct {
	store  secondary.CaseStore
	events secondary.EventLog
	policy retry.Policy
	logger *zap.Logger
}

// NewBulkTrigger creates a BulkTrigger. events may be nil to skip auditing.
func NewBulkTrigger(store secondary.CaseStore, events secondary.EventLog, policy retry.Policy, logger *zap.Logger) *BulkTrigger {
	return &BulkTrigger{
		store:  store,
		events: events,
		policy: policy,
		logger: logger,
	}
}

// Trigger applies task to every reference in order and returns the references
// that failed permanently, in input order. One reference failing never stops
// the others.
func (t *BulkTrigger) Trigger(ctx context.Context, refs []bulkaction.CaseReference, operationID string, task casetask.CaseTask, creds Credentials) []bulkaction.CaseReference {
	var failed []bulkaction.CaseReference
	for _, ref := range refs {
		if _, err := t.Update(ctx, ref.ID, operationID, task, creds); err != nil {
			failed = append(failed, ref)
		}
	}

	t.logger.Info("bulk trigger finished",
		zap.String("operation", operationID),
		zap.Int("attempted", len(refs)),
		zap.Int("failed", len(failed)),
	)
	return failed
}

// Update applies task to a single record and returns the persisted result.
// A failure is always a *PermanentFailureError.
func (t *BulkTrigger) Update(ctx context.Context, caseID, operationID string, task casetask.CaseTask, creds Credentials) (*secondary.CaseRecord, error) {
	return t.UpdateWithOperation(ctx, caseID, task, func(*secondary.CaseRecord) string { return operationID }, creds)
}

// UpdateWithOperation is Update for tasks whose operation id depends on their
// result. operation is called with the task output of each attempt.
func (t *BulkTrigger) UpdateWithOperation(ctx context.Context, caseID string, task casetask.CaseTask, operation func(*secondary.CaseRecord) string, creds Credentials) (*secondary.CaseRecord, error) {
	ctx = creds.withActor(ctx)

	var (
		persisted *secondary.CaseRecord
		opID      string
	)
	attempts, err := t.policy.Do(func(attempt int) error {
		current, err := t.store.Fetch(ctx, caseID)
		if err != nil {
			return err
		}

		next, err := task(ctx, current)
		if err != nil {
			return err
		}
		opID = operation(next)

		version, err := t.store.Submit(ctx, secondary.SubmitRequest{
			CaseID:      caseID,
			Version:     current.Version,
			OperationID: opID,
			State:       next.State,
			Data:        next.Data,
		})
		if err != nil {
			if retry.IsRetryable(err) {
				t.logger.Debug("submit rejected, retrying",
					zap.String("case_id", caseID),
					zap.String("operation", opID),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			}
			return err
		}

		persisted = next.Clone()
		persisted.Version = version
		t.audit(ctx, current, persisted, opID)
		return nil
	})
	if err != nil {
		t.logger.Warn("case update failed",
			zap.String("case_id", caseID),
			zap.String("operation", opID),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, &PermanentFailureError{CaseID: caseID, OperationID: opID, Attempts: attempts, Err: err}
	}

	return persisted, nil
}

// audit records an accepted write. Audit failures are logged only.
func (t *BulkTrigger) audit(ctx context.Context, before, after *secondary.CaseRecord, operationID string) {
	recordEvent(ctx, t.events, t.logger, before, after, operationID)
}

func recordEvent(ctx context.Context, events secondary.EventLog, logger *zap.Logger, before, after *secondary.CaseRecord, operationID string) {
	if events == nil {
		return
	}
	entry := secondary.EventEntry{
		CaseID:      after.ID,
		OperationID: operationID,
		StateAfter:  after.State,
		Version:     after.Version,
	}
	if before != nil {
		entry.StateBefore = before.State
	}
	if err := events.LogEvent(ctx, entry); err != nil {
		logger.Warn("failed to record event",
			zap.String("case_id", after.ID),
			zap.String("operation", operationID),
			zap.Error(err),
		)
	}
}
