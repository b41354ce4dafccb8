package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// bulkCreator creates a bulk action seeded with cases and links each case
// back to it. Shared by manual creation and CreateBulkBatch.
type bulkCreator struct {
	store         secondary.CaseStore
	events        secondary.EventLog
	trigger       *BulkTrigger
	reconciler    *FailureReconciler
	dispatcher    *casetask.Dispatcher
	schemaVersion int
	logger        *zap.Logger
}

type bulkParams struct {
	hearing time.Time
	court   string
}

// create returns the bulk action as stored after linking, and the references
// that could not be linked. An error means the bulk action was not created,
// or linking could not start.
func (c *bulkCreator) create(ctx context.Context, refs []bulkaction.CaseReference, params bulkParams, creds Credentials) (*bulkaction.BulkAction, []bulkaction.CaseReference, error) {
	seed := &bulkaction.BulkAction{
		State:                bulkaction.StateCreated,
		DateAndTimeOfHearing: params.hearing,
		Court:                params.court,
		SchemaVersion:        c.schemaVersion,
		Partition:            bulkaction.Partition{Pending: refs},
	}
	data := seed.ApplyTo(&secondary.CaseRecord{CaseType: secondary.CaseTypeBulkAction}).Data

	actx := creds.withActor(ctx)
	rec, err := c.store.Create(actx, secondary.CreateRequest{
		CaseType:    secondary.CaseTypeBulkAction,
		State:       bulkaction.StateCreated,
		OperationID: casetask.OpCreateBulkCase,
		Data:        data,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create bulk action: %w", err)
	}
	recordEvent(actx, c.events, c.logger, nil, rec, casetask.OpCreateBulkCase)

	bulk, err := bulkaction.FromRecord(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read created bulk action: %w", err)
	}

	link, err := c.dispatcher.Task(casetask.OpLinkWithBulkCase, bulk)
	if err != nil {
		return bulk, nil, err
	}

	failed := c.trigger.Trigger(ctx, refs, casetask.OpLinkWithBulkCase, link, creds)
	if len(failed) > 0 {
		c.reconciler.Reconcile(ctx, bulk.ID, bulkaction.IDs(failed), creds)
	}

	c.logger.Info("created bulk action",
		zap.String("bulk_id", bulk.ID),
		zap.Int("cases", len(refs)),
		zap.Int("link_failures", len(failed)),
	)

	latest, err := c.store.Fetch(ctx, bulk.ID)
	if err != nil {
		c.logger.Warn("failed to reload bulk action", zap.String("bulk_id", bulk.ID), zap.Error(err))
		return bulk, failed, nil
	}
	if reloaded, err := bulkaction.FromRecord(latest); err == nil {
		bulk = reloaded
	}
	return bulk, failed, nil
}

// caseRef builds the reference for a case record, labelled by applicant.
func caseRef(rec *secondary.CaseRecord) bulkaction.CaseReference {
	label, _ := rec.Data[casetask.FieldApplicantLabel].(string)
	return bulkaction.CaseReference{ID: rec.ID, Label: label}
}
