package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/ports/primary"
	"github.com/example/bulkcase/internal/ports/secondary"
)

func portIDs(refs []primary.CaseRef) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}

func TestScheduleCases_AllSucceed(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 5, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)

	result, err := h.service.ScheduleCases(context.Background(), primary.ScheduleCasesRequest{BulkID: bulkID})
	require.NoError(t, err)

	assert.Equal(t, bulkaction.StateListed, result.State)
	assert.Empty(t, result.Pending)
	assert.Empty(t, result.Errored)
	assert.Equal(t, []string{"CASE-001", "CASE-002", "CASE-003", "CASE-004", "CASE-005"}, portIDs(result.Processed))

	c := h.fetchCase(t, "CASE-004")
	assert.Equal(t, "2026-11-03T10:00:00Z", c.Data[casetask.FieldDateAndTimeOfHearing])
	assert.Equal(t, "Birmingham", c.Data[casetask.FieldCourt])

	stored := h.fetchBulk(t, bulkID)
	assert.Equal(t, result.Version, stored.Version)
	require.NoError(t, stored.Validate())
}

func TestScheduleCases_ConflictingCaseIsErrored(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 5, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)
	h.store.submitHook = alwaysFail("CASE-003", conflictErr("CASE-003"))

	result, err := h.service.ScheduleCases(context.Background(), primary.ScheduleCasesRequest{BulkID: bulkID})
	require.NoError(t, err)

	assert.Equal(t, 3, h.store.submits["CASE-003"])
	assert.Equal(t, []string{"CASE-003"}, portIDs(result.Errored))
	assert.Equal(t, []string{"CASE-001", "CASE-002", "CASE-004", "CASE-005"}, portIDs(result.Processed))
	assert.Empty(t, result.Pending)
	assert.Equal(t, bulkaction.StateListed, result.State)
}

func TestScheduleCases_RetryClearsErrored(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 3, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)
	h.store.submitHook = alwaysFail("CASE-002", conflictErr("CASE-002"))

	_, err := h.service.ScheduleCases(context.Background(), primary.ScheduleCasesRequest{BulkID: bulkID})
	require.NoError(t, err)

	h.store.submitHook = nil
	result, err := h.service.ScheduleCases(context.Background(), primary.ScheduleCasesRequest{BulkID: bulkID})
	require.NoError(t, err)

	assert.Empty(t, result.Errored)
	assert.Equal(t, []string{"CASE-001", "CASE-003", "CASE-002"}, portIDs(result.Processed))
}

func TestScheduleCases_BulkRecordConflictIsRetried(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 2, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)
	h.store.submitHook = func(req secondary.SubmitRequest, attempt int) error {
		if req.CaseID == bulkID && attempt == 1 {
			return conflictErr(bulkID)
		}
		return nil
	}

	result, err := h.service.ScheduleCases(context.Background(), primary.ScheduleCasesRequest{BulkID: bulkID})
	require.NoError(t, err)

	assert.Equal(t, 2, h.store.submits[bulkID])
	assert.Equal(t, bulkaction.StateListed, result.State)
	assert.Len(t, result.Processed, 2)
}

func TestScheduleCases_NewHearing(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 1, bulkaction.StateListed, casetask.CaseStateAwaitingPronouncement)
	newHearing := time.Date(2026, 12, 1, 14, 0, 0, 0, time.UTC)

	result, err := h.service.ScheduleCases(context.Background(), primary.ScheduleCasesRequest{
		BulkID:               bulkID,
		DateAndTimeOfHearing: newHearing,
		Court:                "Nottingham",
	})
	require.NoError(t, err)

	assert.Equal(t, "2026-12-01T14:00:00Z", result.DateAndTimeOfHearing)
	assert.Equal(t, "Nottingham", result.Court)
	assert.Equal(t, "Nottingham", h.fetchCase(t, "CASE-001").Data[casetask.FieldCourt])
}

func TestScheduleCases_GuardFailures(t *testing.T) {
	tests := []struct {
		name    string
		state   string
		req     func(bulkID string) primary.ScheduleCasesRequest
		wantErr string
	}{
		{
			name:    "pronounced bulk action",
			state:   bulkaction.StatePronounced,
			req:     func(id string) primary.ScheduleCasesRequest { return primary.ScheduleCasesRequest{BulkID: id} },
			wantErr: "cannot schedule bulk action BULK-001 in state Pronounced (must be Created or Listed)",
		},
		{
			name:  "hearing in the past",
			state: bulkaction.StateCreated,
			req: func(id string) primary.ScheduleCasesRequest {
				return primary.ScheduleCasesRequest{BulkID: id, DateAndTimeOfHearing: testNow.Add(-time.Hour)}
			},
			wantErr: "hearing date 2026-10-18T08:00:00Z is not in the future",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			bulkID, _ := h.seedLinkedBulk(t, 2, tt.state, casetask.CaseStateAwaitingPronouncement)

			_, err := h.service.ScheduleCases(context.Background(), tt.req(bulkID))

			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
			assert.Zero(t, h.store.totalSubmits())
		})
	}
}

func TestScheduleCases_UnknownBulkAction(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.ScheduleCases(context.Background(), primary.ScheduleCasesRequest{BulkID: "BULK-404"})

	assert.ErrorIs(t, err, secondary.ErrNotFound)
}

func TestScheduleCases_IdentityFailure(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 2, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)
	h.identity.err = errors.New("token service down")

	_, err := h.service.ScheduleCases(context.Background(), primary.ScheduleCasesRequest{BulkID: bulkID})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "token service down")
	assert.Zero(t, h.store.totalSubmits())
}

func TestPronounceCases(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 3, bulkaction.StateListed, casetask.CaseStateAwaitingPronouncement)

	result, err := h.service.PronounceCases(context.Background(), primary.PronounceCasesRequest{
		BulkID:             bulkID,
		PronouncementJudge: "District Judge Green",
	})
	require.NoError(t, err)

	assert.Equal(t, bulkaction.StatePronounced, result.State)
	assert.True(t, result.HasJudgePronounced)
	assert.Equal(t, "District Judge Green", result.PronouncementJudge)
	assert.Len(t, result.Processed, 3)

	c := h.fetchCase(t, "CASE-002")
	assert.Equal(t, casetask.CaseStateConditionalOrderPronounced, c.State)
	assert.Equal(t, "District Judge Green", c.Data[casetask.FieldPronouncementJudge])
	assert.Equal(t, "2026-11-03", c.Data[casetask.FieldConditionalOrderGrantedDate])
	assert.Equal(t, "2026-12-16", c.Data[casetask.FieldDateFinalOrderEligibleFrom])
	assert.Equal(t, "2027-11-03", c.Data[casetask.FieldDateFinalOrderNoLongerEligible])
}

func TestPronounceCases_IneligibleCaseIsErrored(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 2, bulkaction.StateListed, casetask.CaseStateAwaitingPronouncement)
	h.seedCases(t, 1, "Withdrawn", bulkID) // CASE-003
	bulk := h.fetchBulk(t, bulkID)
	bulk.Partition = bulk.Partition.AddPending(bulkaction.CaseReference{ID: "CASE-003"})
	_, err := h.store.CaseStore.Submit(context.Background(), secondary.SubmitRequest{
		CaseID: bulkID, Version: bulk.Version, OperationID: "seed", State: bulk.State,
		Data: bulk.ApplyTo(h.fetchCase(t, bulkID)).Data,
	})
	require.NoError(t, err)

	result, err := h.service.PronounceCases(context.Background(), primary.PronounceCasesRequest{BulkID: bulkID})
	require.NoError(t, err)

	assert.Equal(t, []string{"CASE-003"}, portIDs(result.Errored))
	assert.Equal(t, []string{"CASE-001", "CASE-002"}, portIDs(result.Processed))
	assert.Zero(t, h.store.submits["CASE-003"])
}

func TestPronounceCases_RequiresListed(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 1, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)

	_, err := h.service.PronounceCases(context.Background(), primary.PronounceCasesRequest{BulkID: bulkID})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot pronounce bulk action")
}

func TestRemoveCases(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 5, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)

	result, err := h.service.RemoveCases(context.Background(), primary.RemoveCasesRequest{
		BulkID:  bulkID,
		CaseIDs: []string{"CASE-002", "CASE-004", "CASE-002"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"CASE-001", "CASE-003", "CASE-005"}, portIDs(result.Pending))
	_, linked := h.fetchCase(t, "CASE-002").Data[casetask.FieldBulkListCaseReference]
	assert.False(t, linked)
	assert.Equal(t, bulkID, h.fetchCase(t, "CASE-001").Data[casetask.FieldBulkListCaseReference])
}

func TestRemoveCases_FailedRemovalStaysPending(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 3, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)
	h.store.submitHook = alwaysFail("CASE-003", conflictErr("CASE-003"))

	result, err := h.service.RemoveCases(context.Background(), primary.RemoveCasesRequest{
		BulkID:  bulkID,
		CaseIDs: []string{"CASE-001", "CASE-003"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"CASE-002", "CASE-003"}, portIDs(result.Pending))
	assert.Empty(t, result.Errored)
	assert.Empty(t, result.Processed)
}

func TestRemoveCases_FromProcessedAndErrored(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 3, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)
	h.store.submitHook = alwaysFail("CASE-002", conflictErr("CASE-002"))
	_, err := h.service.ScheduleCases(context.Background(), primary.ScheduleCasesRequest{BulkID: bulkID})
	require.NoError(t, err)
	h.store.submitHook = nil

	result, err := h.service.RemoveCases(context.Background(), primary.RemoveCasesRequest{
		BulkID:  bulkID,
		CaseIDs: []string{"CASE-001", "CASE-002"},
	})
	require.NoError(t, err)

	assert.Empty(t, result.Pending)
	assert.Empty(t, result.Errored)
	assert.Equal(t, []string{"CASE-003"}, portIDs(result.Processed))
}

func TestRemoveCases_AbsentIDIsNoop(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 2, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)
	h.seedCases(t, 1, casetask.CaseStateAwaitingPronouncement, "") // CASE-003, not a member

	result, err := h.service.RemoveCases(context.Background(), primary.RemoveCasesRequest{
		BulkID:  bulkID,
		CaseIDs: []string{"CASE-999", "CASE-003"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"CASE-001", "CASE-002"}, portIDs(result.Pending))
	assert.Empty(t, result.Errored)
	assert.Empty(t, result.Processed)
	assert.Zero(t, h.store.totalSubmits())
	assert.Equal(t, []string{"CASE-001", "CASE-002"}, bulkaction.IDs(h.fetchBulk(t, bulkID).Pending))
}

func TestRemoveCases_MixedMembersAndStrangers(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 3, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)

	result, err := h.service.RemoveCases(context.Background(), primary.RemoveCasesRequest{
		BulkID:  bulkID,
		CaseIDs: []string{"CASE-404", "CASE-002"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"CASE-001", "CASE-003"}, portIDs(result.Pending))
	assert.Zero(t, h.store.submits["CASE-404"])
}

func TestRemoveCases_RemovedTwice(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 2, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)
	req := primary.RemoveCasesRequest{BulkID: bulkID, CaseIDs: []string{"CASE-002"}}

	first, err := h.service.RemoveCases(context.Background(), req)
	require.NoError(t, err)
	submits := h.store.totalSubmits()

	second, err := h.service.RemoveCases(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"CASE-001"}, portIDs(first.Pending))
	assert.Equal(t, portIDs(first.Pending), portIDs(second.Pending))
	assert.Empty(t, second.Errored)
	assert.Empty(t, second.Processed)
	assert.Equal(t, submits, h.store.totalSubmits())
}

func TestDropBulkList(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 3, bulkaction.StateListed, casetask.CaseStateAwaitingPronouncement)

	result, err := h.service.DropBulkList(context.Background(), bulkID)
	require.NoError(t, err)

	assert.Equal(t, bulkaction.StateDropped, result.State)
	assert.Empty(t, result.Pending)
	for _, id := range []string{"CASE-001", "CASE-002", "CASE-003"} {
		_, linked := h.fetchCase(t, id).Data[casetask.FieldBulkListCaseReference]
		assert.False(t, linked, id)
	}

	_, err = h.service.ScheduleCases(context.Background(), primary.ScheduleCasesRequest{BulkID: bulkID})
	assert.Error(t, err, "a dropped bulk action cannot be scheduled")
}

func TestDropBulkList_PartialFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	bulkID, _ := h.seedLinkedBulk(t, 2, bulkaction.StateCreated, casetask.CaseStateAwaitingPronouncement)
	h.store.submitHook = alwaysFail("CASE-001", conflictErr("CASE-001"))

	result, err := h.service.DropBulkList(context.Background(), bulkID)
	require.NoError(t, err)

	assert.Equal(t, bulkaction.StateCreated, result.State)
	assert.Equal(t, []string{"CASE-001"}, portIDs(result.Pending))
}

func TestCreateBulkAction(t *testing.T) {
	h := newHarness(t)
	h.seedCases(t, 3, casetask.CaseStateAwaitingPronouncement, "")
	h.seedCases(t, 1, casetask.CaseStateAwaitingPronouncement, "BULK-900") // CASE-004, linked elsewhere

	resp, err := h.service.CreateBulkAction(context.Background(), primary.CreateBulkActionRequest{
		CaseIDs:              []string{"CASE-001", "CASE-002", "CASE-004", "CASE-003"},
		DateAndTimeOfHearing: testHearing,
		Court:                "Birmingham",
	})
	require.NoError(t, err)

	assert.Equal(t, "BULK-001", resp.BulkID)
	assert.Equal(t, []string{"CASE-004"}, resp.FailedCaseIDs)
	assert.Equal(t, []string{"CASE-001", "CASE-002", "CASE-003"}, portIDs(resp.BulkAction.Pending))
	assert.Equal(t, bulkaction.StateCreated, resp.BulkAction.State)
	assert.Equal(t, "Applicant 1", resp.BulkAction.Pending[0].Label)
	assert.Equal(t, "BULK-001", h.fetchCase(t, "CASE-002").Data[casetask.FieldBulkListCaseReference])
	assert.Equal(t, "BULK-900", h.fetchCase(t, "CASE-004").Data[casetask.FieldBulkListCaseReference])

	events, err := h.events.ListEvents(context.Background(), "BULK-001")
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.Equal(t, casetask.OpCreateBulkCase, events[0].OperationID)
	assert.Equal(t, "system-user", events[0].ActorID)
}

func TestCreateBulkAction_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.CreateBulkAction(context.Background(), primary.CreateBulkActionRequest{})
	assert.Error(t, err)

	_, err = h.service.CreateBulkAction(context.Background(), primary.CreateBulkActionRequest{CaseIDs: []string{"CASE-404"}})
	assert.ErrorIs(t, err, secondary.ErrNotFound)
	assert.Zero(t, h.store.creates)
}

func TestGetAndListBulkActions(t *testing.T) {
	h := newHarness(t)
	listed, _ := h.seedLinkedBulk(t, 1, bulkaction.StateListed, casetask.CaseStateAwaitingPronouncement)
	h.seedBulk(t, &bulkaction.BulkAction{State: bulkaction.StateCreated})
	h.seedBulk(t, &bulkaction.BulkAction{State: bulkaction.StateListed})

	got, err := h.service.GetBulkAction(context.Background(), listed)
	require.NoError(t, err)
	assert.Equal(t, "Birmingham", got.Court)
	assert.Equal(t, "2026-11-03T10:00:00Z", got.DateAndTimeOfHearing)
	assert.NotEmpty(t, got.CreatedAt)

	all, err := h.service.ListBulkActions(context.Background(), primary.BulkActionFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyListed, err := h.service.ListBulkActions(context.Background(), primary.BulkActionFilters{State: bulkaction.StateListed})
	require.NoError(t, err)
	require.Len(t, onlyListed, 2)
	assert.Equal(t, "BULK-001", onlyListed[0].ID)
	assert.Equal(t, "BULK-003", onlyListed[1].ID)
}
