package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/core/retry"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// markTask sets a payload field so successful writes are observable.
func markTask(value string) casetask.CaseTask {
	return func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		out := rec.Clone()
		out.Data["mark"] = value
		return out, nil
	}
}

func TestBulkTrigger_AllSucceed(t *testing.T) {
	h := newHarness(t)
	refs := h.seedCases(t, 5, casetask.CaseStateAwaitingPronouncement, "")

	failed := h.trigger.Trigger(context.Background(), refs, "mark", markTask("done"), h.creds())

	assert.Empty(t, failed)
	for _, ref := range refs {
		assert.Equal(t, "done", h.fetchCase(t, ref.ID).Data["mark"])
		assert.Equal(t, 1, h.store.submits[ref.ID])
	}
}

func TestBulkTrigger_ConflictExhaustsRetries(t *testing.T) {
	h := newHarness(t)
	refs := h.seedCases(t, 5, casetask.CaseStateAwaitingPronouncement, "")
	h.store.submitHook = alwaysFail("CASE-003", conflictErr("CASE-003"))

	failed := h.trigger.Trigger(context.Background(), refs, "mark", markTask("done"), h.creds())

	require.Len(t, failed, 1)
	assert.Equal(t, "CASE-003", failed[0].ID)
	assert.Equal(t, retry.DefaultMaxAttempts, h.store.submits["CASE-003"])
	for _, id := range []string{"CASE-001", "CASE-002", "CASE-004", "CASE-005"} {
		assert.Equal(t, "done", h.fetchCase(t, id).Data["mark"], id)
		assert.Equal(t, 1, h.store.submits[id], id)
	}
	_, marked := h.fetchCase(t, "CASE-003").Data["mark"]
	assert.False(t, marked)
}

func TestBulkTrigger_ConflictThenSuccess(t *testing.T) {
	h := newHarness(t)
	refs := h.seedCases(t, 1, casetask.CaseStateAwaitingPronouncement, "")
	h.store.submitHook = func(req secondary.SubmitRequest, attempt int) error {
		if attempt < 3 {
			return conflictErr(req.CaseID)
		}
		return nil
	}

	failed := h.trigger.Trigger(context.Background(), refs, "mark", markTask("done"), h.creds())

	assert.Empty(t, failed)
	assert.Equal(t, 3, h.store.submits["CASE-001"])
	assert.Equal(t, "done", h.fetchCase(t, "CASE-001").Data["mark"])
}

func TestBulkTrigger_TransientIsRetried(t *testing.T) {
	h := newHarness(t)
	refs := h.seedCases(t, 1, casetask.CaseStateAwaitingPronouncement, "")
	h.store.submitHook = func(req secondary.SubmitRequest, attempt int) error {
		if attempt == 1 {
			return fmt.Errorf("database is locked: %w", secondary.ErrTransient)
		}
		return nil
	}

	failed := h.trigger.Trigger(context.Background(), refs, "mark", markTask("done"), h.creds())

	assert.Empty(t, failed)
	assert.Equal(t, 2, h.store.submits["CASE-001"])
}

func TestBulkTrigger_NonRetryableFailsOnce(t *testing.T) {
	h := newHarness(t)
	refs := h.seedCases(t, 2, casetask.CaseStateAwaitingPronouncement, "")
	h.store.submitHook = alwaysFail("CASE-001", errors.New("validation rejected"))

	failed := h.trigger.Trigger(context.Background(), refs, "mark", markTask("done"), h.creds())

	assert.Equal(t, []string{"CASE-001"}, bulkaction.IDs(failed))
	assert.Equal(t, 1, h.store.submits["CASE-001"])
	assert.Equal(t, 1, h.store.submits["CASE-002"])
}

func TestBulkTrigger_TaskErrorSkipsSubmit(t *testing.T) {
	h := newHarness(t)
	refs := h.seedCases(t, 3, casetask.CaseStateAwaitingPronouncement, "")

	// Unlinked cases cannot be pronounced under a bulk action
	task := casetask.Pronounce("BULK-001", "Judge", testHearing)
	failed := h.trigger.Trigger(context.Background(), refs, casetask.OpPronounceCase, task, h.creds())

	assert.Equal(t, []string{"CASE-001", "CASE-002", "CASE-003"}, bulkaction.IDs(failed))
	assert.Zero(t, h.store.totalSubmits())
}

func TestBulkTrigger_MissingCaseIsIsolated(t *testing.T) {
	h := newHarness(t)
	refs := h.seedCases(t, 2, casetask.CaseStateAwaitingPronouncement, "")
	refs = append([]bulkaction.CaseReference{{ID: "CASE-404"}}, refs...)

	failed := h.trigger.Trigger(context.Background(), refs, "mark", markTask("done"), h.creds())

	assert.Equal(t, []string{"CASE-404"}, bulkaction.IDs(failed))
	assert.Equal(t, "done", h.fetchCase(t, "CASE-001").Data["mark"])
	assert.Equal(t, "done", h.fetchCase(t, "CASE-002").Data["mark"])
}

func TestBulkTrigger_FailedOrderFollowsInput(t *testing.T) {
	h := newHarness(t)
	refs := h.seedCases(t, 5, casetask.CaseStateAwaitingPronouncement, "")
	h.store.submitHook = func(req secondary.SubmitRequest, _ int) error {
		if req.CaseID == "CASE-002" || req.CaseID == "CASE-005" || req.CaseID == "CASE-004" {
			return conflictErr(req.CaseID)
		}
		return nil
	}

	failed := h.trigger.Trigger(context.Background(), refs, "mark", markTask("done"), h.creds())

	assert.Equal(t, []string{"CASE-002", "CASE-004", "CASE-005"}, bulkaction.IDs(failed))
}

func TestBulkTrigger_NeverExceedsAttemptBudget(t *testing.T) {
	for _, maxAttempts := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("max_%d", maxAttempts), func(t *testing.T) {
			h := newHarness(t)
			refs := h.seedCases(t, 4, casetask.CaseStateAwaitingPronouncement, "")
			h.store.submitHook = func(req secondary.SubmitRequest, _ int) error {
				return conflictErr(req.CaseID)
			}
			trigger := NewBulkTrigger(h.store, h.events, retry.Policy{MaxAttempts: maxAttempts}, zap.NewNop())

			failed := trigger.Trigger(context.Background(), refs, "mark", markTask("done"), h.creds())

			assert.Len(t, failed, 4)
			for _, ref := range refs {
				assert.Equal(t, maxAttempts, h.store.submits[ref.ID])
			}
		})
	}
}

func TestBulkTrigger_Update_ReturnsPermanentFailure(t *testing.T) {
	h := newHarness(t)
	h.seedCases(t, 1, casetask.CaseStateAwaitingPronouncement, "")
	h.store.submitHook = alwaysFail("CASE-001", conflictErr("CASE-001"))

	_, err := h.trigger.Update(context.Background(), "CASE-001", "mark", markTask("x"), h.creds())

	require.Error(t, err)
	var pfe *PermanentFailureError
	require.True(t, errors.As(err, &pfe))
	assert.Equal(t, "CASE-001", pfe.CaseID)
	assert.Equal(t, 3, pfe.Attempts)
	assert.True(t, errors.Is(err, secondary.ErrConflict))
}

func TestBulkTrigger_AuditsWithSystemActor(t *testing.T) {
	h := newHarness(t)
	h.seedCases(t, 1, casetask.CaseStateAwaitingPronouncement, "")

	rec, err := h.trigger.Update(context.Background(), "CASE-001", "mark", markTask("x"), h.creds())
	require.NoError(t, err)

	events, err := h.events.ListEvents(context.Background(), "CASE-001")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "mark", events[0].OperationID)
	assert.Equal(t, "system-user", events[0].ActorID)
	assert.Equal(t, casetask.CaseStateAwaitingPronouncement, events[0].StateBefore)
	assert.Equal(t, rec.Version, events[0].Version)
}
