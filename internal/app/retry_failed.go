package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/core/query"
	"github.com/example/bulkcase/internal/ports/primary"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// RetryFailed re-runs an orchestrator for every bulk action left in a given
// state with errored cases.
type RetryFailed struct {
	name     string
	state    string
	store    secondary.CaseStore
	rerun    func(ctx context.Context, bulkID string) error
	pageSize int
	logger   *zap.Logger
}

// NewRetryFailedScheduling retries scheduling for Listed bulk actions.
func NewRetryFailedScheduling(store secondary.CaseStore, bulkActions primary.BulkActionService, pageSize int, logger *zap.Logger) *RetryFailed {
	return &RetryFailed{
		name:  TaskRetryFailedScheduling,
		state: bulkaction.StateListed,
		store: store,
		rerun: func(ctx context.Context, bulkID string) error {
			_, err := bulkActions.ScheduleCases(ctx, primary.ScheduleCasesRequest{BulkID: bulkID})
			return err
		},
		pageSize: pageSize,
		logger:   logger.With(zap.String("task", TaskRetryFailedScheduling)),
	}
}

// NewRetryFailedPronouncement retries pronouncement for Pronounced bulk actions.
func NewRetryFailedPronouncement(store secondary.CaseStore, bulkActions primary.BulkActionService, pageSize int, logger *zap.Logger) *RetryFailed {
	return &RetryFailed{
		name:  TaskRetryFailedPronouncement,
		state: bulkaction.StatePronounced,
		store: store,
		rerun: func(ctx context.Context, bulkID string) error {
			_, err := bulkActions.PronounceCases(ctx, primary.PronounceCasesRequest{BulkID: bulkID})
			return err
		},
		pageSize: pageSize,
		logger:   logger.With(zap.String("task", TaskRetryFailedPronouncement)),
	}
}

// Name returns the task name.
func (t *RetryFailed) Name() string { return t.name }

// Run re-invokes the orchestrator once per matching bulk action.
func (t *RetryFailed) Run(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	pred := query.AllOf(
		query.StateIn{States: []string{t.state}},
		query.FieldNotEmpty{Field: bulkaction.FieldErrored},
	)
	records, err := searchAll(ctx, t.store, secondary.CaseTypeBulkAction, pred, t.pageSize, 0)
	if err != nil {
		t.logger.Error("search for bulk actions with errors failed", zap.Int("collected", len(records)), zap.Error(err))
	}

	for _, rec := range records {
		if err := t.rerun(ctx, rec.ID); err != nil {
			if casetask.IsInvalidOperation(err) {
				t.logger.Error("run aborted", zap.String("bulk_id", rec.ID), zap.Error(err))
				return
			}
			t.logger.Warn("retry failed", zap.String("bulk_id", rec.ID), zap.Error(err))
			continue
		}
		t.logger.Info("retried bulk action", zap.String("bulk_id", rec.ID))
	}
}

var _ primary.ReconciliationTask = (*RetryFailed)(nil)
