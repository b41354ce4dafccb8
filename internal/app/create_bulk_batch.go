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

// BatchConfig bounds CreateBulkBatch.
type BatchConfig struct {
	// MinBatchSize is the fewest eligible cases worth a bulk action.
	MinBatchSize int
	// MaxBatchSize is the most cases in one bulk action.
	MaxBatchSize int
	// MaxCasesPerRun caps how many eligible cases one run collects.
	MaxCasesPerRun int
	PageSize       int
}

// CreateBulkBatch groups unlinked cases awaiting pronouncement into new bulk
// actions.
type CreateBulkBatch struct {
	store    secondary.CaseStore
	identity secondary.IdentityProvider
	creator  *bulkCreator
	cfg      BatchConfig
	logger   *zap.Logger
}

// NewCreateBulkBatch creates the CreateBulkBatch task.
func NewCreateBulkBatch(
	store secondary.CaseStore,
	events secondary.EventLog,
	identity secondary.IdentityProvider,
	trigger *BulkTrigger,
	reconciler *FailureReconciler,
	dispatcher *casetask.Dispatcher,
	schemaVersion int,
	cfg BatchConfig,
	logger *zap.Logger,
) *CreateBulkBatch {
	return &CreateBulkBatch{
		store:    store,
		identity: identity,
		creator: &bulkCreator{
			store:         store,
			events:        events,
			trigger:       trigger,
			reconciler:    reconciler,
			dispatcher:    dispatcher,
			schemaVersion: schemaVersion,
			logger:        logger,
		},
		cfg:    cfg,
		logger: logger.With(zap.String("task", TaskCreateBulkBatch)),
	}
}

// BatchEligible matches cases awaiting pronouncement that no bulk action holds.
func BatchEligible() query.Predicate {
	return query.AllOf(
		query.StateIn{States: []string{casetask.CaseStateAwaitingPronouncement}},
		query.Not{Predicate: query.FieldExists{Field: casetask.FieldBulkListCaseReference}},
	)
}

// Name returns the task name.
func (t *CreateBulkBatch) Name() string { return TaskCreateBulkBatch }

// Run collects eligible cases and creates one bulk action per chunk.
func (t *CreateBulkBatch) Run(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	creds, err := LoadCredentials(ctx, t.identity)
	if err != nil {
		t.logger.Error("run aborted", zap.Error(err))
		return
	}

	limit := t.cfg.MaxCasesPerRun
	if limit <= 0 {
		limit = t.cfg.MaxBatchSize
	}
	records, err := searchAll(ctx, t.store, secondary.CaseTypeCase, BatchEligible(), t.cfg.PageSize, limit)
	if err != nil {
		t.logger.Error("search for eligible cases failed", zap.Int("collected", len(records)), zap.Error(err))
	}

	if len(records) == 0 || len(records) < t.cfg.MinBatchSize {
		t.logger.Info("not enough eligible cases for a batch",
			zap.Int("eligible", len(records)),
			zap.Int("min_batch_size", t.cfg.MinBatchSize),
		)
		return
	}

	refs := make([]bulkaction.CaseReference, len(records))
	for i, rec := range records {
		refs[i] = caseRef(rec)
	}

	for _, chunk := range chunkRefs(refs, t.cfg.MaxBatchSize) {
		bulk, failed, err := t.creator.create(ctx, chunk, bulkParams{}, creds)
		if err != nil {
			if bulk == nil {
				t.logger.Error("failed to create bulk action, abandoning remaining chunks", zap.Error(err))
			} else {
				t.logger.Error("failed to link cases", zap.String("bulk_id", bulk.ID), zap.Error(err))
			}
			return
		}
		t.logger.Info("batch created",
			zap.String("bulk_id", bulk.ID),
			zap.Int("cases", len(chunk)),
			zap.Int("failed", len(failed)),
		)
	}
}

func chunkRefs(refs []bulkaction.CaseReference, size int) [][]bulkaction.CaseReference {
	if size < 1 {
		size = len(refs)
	}
	var chunks [][]bulkaction.CaseReference
	for start := 0; start < len(refs); start += size {
		end := start + size
		if end > len(refs) {
			end = len(refs)
		}
		chunks = append(chunks, refs[start:end])
	}
	return chunks
}

var _ primary.ReconciliationTask = (*CreateBulkBatch)(nil)
