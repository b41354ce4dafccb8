package bulkaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/bulkcase/internal/ports/secondary"
)

func TestFromRecord_RoundTrip(t *testing.T) {
	hearing := time.Date(2026, 11, 3, 10, 0, 0, 0, time.UTC)
	rec := &secondary.CaseRecord{
		ID:       "BULK-001",
		CaseType: secondary.CaseTypeBulkAction,
		State:    StateListed,
		Version:  "v1",
		Data: map[string]any{
			FieldPending:              []any{map[string]any{"caseReference": "CASE-001", "caseParties": "Smith vs Smith"}},
			FieldErrored:              []any{map[string]any{"caseReference": "CASE-002"}},
			FieldProcessed:            []any{},
			FieldDateAndTimeOfHearing: hearing.Format(time.RFC3339),
			FieldCourt:                "birmingham",
			FieldSchemaVersion:        float64(1),
			"unrelated":               "kept",
		},
	}

	ba, err := FromRecord(rec)
	require.NoError(t, err)

	assert.Equal(t, "BULK-001", ba.ID)
	assert.Equal(t, StateListed, ba.State)
	assert.Equal(t, hearing, ba.DateAndTimeOfHearing)
	assert.Equal(t, "birmingham", ba.Court)
	assert.Equal(t, 1, ba.SchemaVersion)
	assert.Equal(t, []CaseReference{{ID: "CASE-001", Label: "Smith vs Smith"}}, ba.Pending)
	assert.Equal(t, []string{"CASE-002"}, IDs(ba.Errored))
	assert.Empty(t, ba.Processed)

	ba.State = StatePronounced
	ba.PronouncementJudge = "District Judge"
	out := ba.ApplyTo(rec)

	assert.Equal(t, StatePronounced, out.State)
	assert.Equal(t, "kept", out.Data["unrelated"])
	assert.Equal(t, "District Judge", out.Data[FieldPronouncementJudge])
	assert.Equal(t, StateListed, rec.State, "input record must not change")
	assert.NotContains(t, rec.Data, FieldPronouncementJudge)

	again, err := FromRecord(out)
	require.NoError(t, err)
	assert.Equal(t, ba.Partition, again.Partition)
}

func TestFromRecord_RejectsOtherCaseTypes(t *testing.T) {
	_, err := FromRecord(&secondary.CaseRecord{ID: "CASE-001", CaseType: secondary.CaseTypeCase})
	assert.Error(t, err)
}

func TestFromRecord_RejectsMalformedLists(t *testing.T) {
	_, err := FromRecord(&secondary.CaseRecord{
		ID:       "BULK-001",
		CaseType: secondary.CaseTypeBulkAction,
		Data:     map[string]any{FieldPending: []any{map[string]any{"caseParties": "no id"}}},
	})
	assert.Error(t, err)
}

func TestIntField(t *testing.T) {
	data := map[string]any{"a": 2, "b": float64(3), "c": "x"}
	assert.Equal(t, 2, IntField(data, "a"))
	assert.Equal(t, 3, IntField(data, "b"))
	assert.Equal(t, 0, IntField(data, "c"))
	assert.Equal(t, 0, IntField(data, "missing"))
}
