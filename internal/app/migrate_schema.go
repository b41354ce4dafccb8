package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/core/query"
	"github.com/example/bulkcase/internal/ports/primary"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// MigrateBulkCaseSchema upgrades bulk action payloads stored under an older
// schema version.
type MigrateBulkCaseSchema struct {
	store         secondary.CaseStore
	identity      secondary.IdentityProvider
	trigger       *BulkTrigger
	dispatcher    *casetask.Dispatcher
	latestVersion int
	pageSize      int
	logger        *zap.Logger
}

// NewMigrateBulkCaseSchema creates the MigrateBulkCaseSchema task.
func NewMigrateBulkCaseSchema(
	store secondary.CaseStore,
	identity secondary.IdentityProvider,
	trigger *BulkTrigger,
	dispatcher *casetask.Dispatcher,
	latestVersion int,
	pageSize int,
	logger *zap.Logger,
) *MigrateBulkCaseSchema {
	return &MigrateBulkCaseSchema{
		store:         store,
		identity:      identity,
		trigger:       trigger,
		dispatcher:    dispatcher,
		latestVersion: latestVersion,
		pageSize:      pageSize,
		logger:        logger.With(zap.String("task", TaskMigrateBulkCaseSchema)),
	}
}

// Name returns the task name.
func (t *MigrateBulkCaseSchema) Name() string { return TaskMigrateBulkCaseSchema }

// SchemaBelow matches bulk actions whose schema version is missing or below latest.
func SchemaBelow(latest int) query.Predicate {
	return query.AnyOf(
		query.Not{Predicate: query.FieldExists{Field: bulkaction.FieldSchemaVersion}},
		query.FieldRange{Field: bulkaction.FieldSchemaVersion, Lt: latest},
	)
}

// Run migrates every outdated bulk action. A record that cannot be migrated
// has its schema version reset so the next run starts it from scratch.
func (t *MigrateBulkCaseSchema) Run(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	creds, err := LoadCredentials(ctx, t.identity)
	if err != nil {
		t.logger.Error("run aborted", zap.Error(err))
		return
	}

	migrate, err := t.dispatcher.Task(casetask.OpMigrateBulkCase, nil)
	if err != nil {
		t.logger.Error("run aborted", zap.Error(err))
		return
	}
	reset, err := t.dispatcher.Task(casetask.OpResetBulkCaseSchema, nil)
	if err != nil {
		t.logger.Error("run aborted", zap.Error(err))
		return
	}

	records, err := searchAll(ctx, t.store, secondary.CaseTypeBulkAction, SchemaBelow(t.latestVersion), t.pageSize, 0)
	if err != nil {
		t.logger.Error("search for outdated bulk actions failed", zap.Int("collected", len(records)), zap.Error(err))
	}

	migrated := 0
	for _, rec := range records {
		_, err := t.trigger.Update(ctx, rec.ID, casetask.OpMigrateBulkCase, migrate, creds)
		if err == nil {
			migrated++
			continue
		}
		if errors.Is(err, secondary.ErrNotFound) {
			t.logger.Debug("bulk action gone, skipping", zap.String("bulk_id", rec.ID))
			continue
		}

		t.logger.Warn("migration failed, resetting schema version", zap.String("bulk_id", rec.ID), zap.Error(err))
		if _, err := t.trigger.Update(ctx, rec.ID, casetask.OpResetBulkCaseSchema, reset, creds); err != nil {
			t.logger.Error("failed to reset schema version", zap.String("bulk_id", rec.ID), zap.Error(err))
		}
	}

	t.logger.Info("schema migration finished",
		zap.Int("outdated", len(records)),
		zap.Int("migrated", migrated),
		zap.Int("latest_version", t.latestVersion),
	)
}

var _ primary.ReconciliationTask = (*MigrateBulkCaseSchema)(nil)
