package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// FailureReconciler drops permanently failed cases from a bulk action.
type FailureReconciler struct {
	trigger *BulkTrigger
	logger  *zap.Logger
}

// NewFailureReconciler creates a FailureReconciler.
func NewFailureReconciler(trigger *BulkTrigger, logger *zap.Logger) *FailureReconciler {
	return &FailureReconciler{
		trigger: trigger,
		logger:  logger,
	}
}

// Reconcile removes failedIDs from the errored and pending lists of bulkID.
// When nothing is left pending or errored the bulk action becomes Empty.
// Faults are logged and swallowed; a later pass retries.
func (r *FailureReconciler) Reconcile(ctx context.Context, bulkID string, failedIDs []string, creds Credentials) {
	if len(failedIDs) == 0 {
		return
	}

	operation := func(rec *secondary.CaseRecord) string {
		if rec.State == bulkaction.StateEmpty {
			return casetask.OpEmptyBulkCase
		}
		return casetask.OpRemoveFailedCases
	}

	rec, err := r.trigger.UpdateWithOperation(ctx, bulkID, removeFailedTask(failedIDs), operation, creds)
	if err != nil {
		r.logger.Error("failed to reconcile failed cases",
			zap.String("bulk_id", bulkID),
			zap.Strings("case_ids", failedIDs),
			zap.Error(err),
		)
		return
	}

	r.logger.Info("reconciled failed cases",
		zap.String("bulk_id", bulkID),
		zap.Strings("case_ids", failedIDs),
		zap.String("state", rec.State),
	)
}

func removeFailedTask(failedIDs []string) casetask.CaseTask {
	return func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		bulk, err := bulkaction.FromRecord(rec)
		if err != nil {
			return nil, err
		}
		bulk.Partition = bulk.Partition.RemoveFailed(failedIDs...)
		if bulk.IsEmpty() && !bulkaction.IsTerminal(bulk.State) {
			bulk.State = bulkaction.StateEmpty
		}
		return bulk.ApplyTo(rec), nil
	}
}
