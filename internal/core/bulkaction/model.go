// Package bulkaction contains the pure model of a bulk action: the typed view
// of a bulk_action case record, the pending/errored/processed partition and
// the guards for each orchestration step.
package bulkaction

import (
	"fmt"
	"time"

	"github.com/example/bulkcase/internal/ports/secondary"
)

// Bulk action lifecycle states.
const (
	StateCreated    = "Created"
	StateListed     = "Listed"
	StatePronounced = "Pronounced"
	StateDropped    = "Dropped"
	StateEmpty      = "Empty"
)

// Payload keys of a bulk_action record.
const (
	FieldPending              = "bulkListCaseDetails"
	FieldErrored              = "erroredCaseDetails"
	FieldProcessed            = "processedCaseDetails"
	FieldDateAndTimeOfHearing = "dateAndTimeOfHearing"
	FieldCourt                = "court"
	FieldPronouncementJudge   = "pronouncementJudge"
	FieldHasJudgePronounced   = "hasJudgePronounced"
	FieldSchemaVersion        = "bulkCaseSchemaVersion"

	refKeyID    = "caseReference"
	refKeyLabel = "caseParties"
)

// CaseReference points at one case record. Two references are the same
// reference when their IDs match; the label is informational.
type CaseReference struct {
	ID    string
	Label string
}

// BulkAction is the typed view of a bulk_action case record.
type BulkAction struct {
	ID      string
	State   string
	Version string

	DateAndTimeOfHearing time.Time
	Court                string
	PronouncementJudge   string
	HasJudgePronounced   bool
	SchemaVersion        int

	Partition
}

// FromRecord decodes a bulk_action record.
func FromRecord(rec *secondary.CaseRecord) (*BulkAction, error) {
	if rec == nil {
		return nil, fmt.Errorf("nil record")
	}
	if rec.CaseType != secondary.CaseTypeBulkAction {
		return nil, fmt.Errorf("case %s is a %s, not a bulk action", rec.ID, rec.CaseType)
	}

	ba := &BulkAction{
		ID:                 rec.ID,
		State:              rec.State,
		Version:            rec.Version,
		Court:              stringField(rec.Data, FieldCourt),
		PronouncementJudge: stringField(rec.Data, FieldPronouncementJudge),
		SchemaVersion:      IntField(rec.Data, FieldSchemaVersion),
	}

	if v, ok := rec.Data[FieldHasJudgePronounced].(bool); ok {
		ba.HasJudgePronounced = v
	}

	if raw := stringField(rec.Data, FieldDateAndTimeOfHearing); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("bulk action %s: invalid %s: %w", rec.ID, FieldDateAndTimeOfHearing, err)
		}
		ba.DateAndTimeOfHearing = t
	}

	var err error
	if ba.Pending, err = decodeRefs(rec.Data[FieldPending]); err != nil {
		return nil, fmt.Errorf("bulk action %s: %s: %w", rec.ID, FieldPending, err)
	}
	if ba.Errored, err = decodeRefs(rec.Data[FieldErrored]); err != nil {
		return nil, fmt.Errorf("bulk action %s: %s: %w", rec.ID, FieldErrored, err)
	}
	if ba.Processed, err = decodeRefs(rec.Data[FieldProcessed]); err != nil {
		return nil, fmt.Errorf("bulk action %s: %s: %w", rec.ID, FieldProcessed, err)
	}

	return ba, nil
}

// ApplyTo returns a copy of rec carrying ba's state and fields. Payload keys
// the bulk action does not own are preserved.
func (ba *BulkAction) ApplyTo(rec *secondary.CaseRecord) *secondary.CaseRecord {
	out := rec.Clone()
	if out.Data == nil {
		out.Data = map[string]any{}
	}
	out.State = ba.State

	out.Data[FieldPending] = EncodeRefs(ba.Pending)
	out.Data[FieldErrored] = EncodeRefs(ba.Errored)
	out.Data[FieldProcessed] = EncodeRefs(ba.Processed)
	out.Data[FieldSchemaVersion] = ba.SchemaVersion
	out.Data[FieldHasJudgePronounced] = ba.HasJudgePronounced

	setOptional(out.Data, FieldCourt, ba.Court)
	setOptional(out.Data, FieldPronouncementJudge, ba.PronouncementJudge)
	if ba.DateAndTimeOfHearing.IsZero() {
		delete(out.Data, FieldDateAndTimeOfHearing)
	} else {
		out.Data[FieldDateAndTimeOfHearing] = ba.DateAndTimeOfHearing.UTC().Format(time.RFC3339)
	}

	return out
}

// EncodeRefs converts references to their payload form.
func EncodeRefs(refs []CaseReference) []any {
	out := make([]any, 0, len(refs))
	for _, r := range refs {
		entry := map[string]any{refKeyID: r.ID}
		if r.Label != "" {
			entry[refKeyLabel] = r.Label
		}
		out = append(out, entry)
	}
	return out
}

func decodeRefs(v any) ([]CaseReference, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}

	refs := make([]CaseReference, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entry %d: expected an object, got %T", i, item)
		}
		id, _ := m[refKeyID].(string)
		if id == "" {
			return nil, fmt.Errorf("entry %d: missing %s", i, refKeyID)
		}
		label, _ := m[refKeyLabel].(string)
		refs = append(refs, CaseReference{ID: id, Label: label})
	}
	return refs, nil
}

func stringField(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

// IntField reads an integer payload field. JSON numbers decode as float64, so
// both forms are accepted. Missing or malformed values read as 0.
func IntField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func setOptional(data map[string]any, key, value string) {
	if value == "" {
		delete(data, key)
		return
	}
	data[key] = value
}
