package casetask

import (
	"context"
	"fmt"
	"time"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/migration"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// Individual case states the engine acts on.
const (
	CaseStateAwaitingPronouncement      = "AwaitingPronouncement"
	CaseStateConditionalOrderPronounced = "ConditionalOrderPronounced"
)

// Payload keys of individual case records.
const (
	FieldBulkListCaseReference          = "bulkListCaseReference"
	FieldDateAndTimeOfHearing           = "dateAndTimeOfHearing"
	FieldCourt                          = "court"
	FieldPronouncementJudge             = "pronouncementJudge"
	FieldConditionalOrderGrantedDate    = "conditionalOrderGrantedDate"
	FieldDateFinalOrderEligibleFrom     = "dateFinalOrderEligibleFrom"
	FieldDateFinalOrderNoLongerEligible = "dateFinalOrderNoLongerEligible"
	FieldApplicantLabel                 = "applicantLabel"
)

// Final order timing, counted from the conditional order grant date.
const (
	FinalOrderEligibleAfterDays     = 43
	FinalOrderNoLongerEligibleMonth = 12
)

const dateLayout = "2006-01-02"

// UpdateCourtHearing lists a case for the bulk action's hearing.
func UpdateCourtHearing(bulkID string, hearing time.Time, court string) CaseTask {
	return func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		if err := requireLinked(rec, bulkID); err != nil {
			return nil, err
		}
		out := rec.Clone()
		out.Data[FieldDateAndTimeOfHearing] = hearing.UTC().Format(time.RFC3339)
		out.Data[FieldCourt] = court
		return out, nil
	}
}

// Pronounce records the judge and grant date and moves an awaiting case to
// ConditionalOrderPronounced. A case already pronounced keeps its state.
func Pronounce(bulkID, judge string, hearing time.Time) CaseTask {
	return func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		if err := requireLinked(rec, bulkID); err != nil {
			return nil, err
		}
		switch rec.State {
		case CaseStateAwaitingPronouncement, CaseStateConditionalOrderPronounced:
		default:
			return nil, fmt.Errorf("case %s in state %s: %w", rec.ID, rec.State, ErrIneligibleState)
		}

		out := rec.Clone()
		out.State = CaseStateConditionalOrderPronounced
		out.Data[FieldPronouncementJudge] = judge
		out.Data[FieldConditionalOrderGrantedDate] = hearing.UTC().Format(dateLayout)
		return out, nil
	}
}

// FinalOrderEligibility derives the final order dates from the case's own
// conditional order grant date.
func FinalOrderEligibility() CaseTask {
	return func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		raw, _ := rec.Data[FieldConditionalOrderGrantedDate].(string)
		if raw == "" {
			return nil, fmt.Errorf("case %s has no %s", rec.ID, FieldConditionalOrderGrantedDate)
		}
		granted, err := time.Parse(dateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("case %s: invalid %s: %w", rec.ID, FieldConditionalOrderGrantedDate, err)
		}

		out := rec.Clone()
		out.Data[FieldDateFinalOrderEligibleFrom] = granted.AddDate(0, 0, FinalOrderEligibleAfterDays).Format(dateLayout)
		out.Data[FieldDateFinalOrderNoLongerEligible] = granted.AddDate(0, FinalOrderNoLongerEligibleMonth, 0).Format(dateLayout)
		return out, nil
	}
}

// LinkWithBulkCase points a case at its bulk action. Linking to the same bulk
// action again is a no-op; a case linked elsewhere is refused.
func LinkWithBulkCase(bulkID string) CaseTask {
	return func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		current, _ := rec.Data[FieldBulkListCaseReference].(string)
		if current != "" && current != bulkID {
			return nil, fmt.Errorf("case %s linked to %s: %w", rec.ID, current, ErrAlreadyLinked)
		}
		out := rec.Clone()
		out.Data[FieldBulkListCaseReference] = bulkID
		return out, nil
	}
}

// RemoveBulkLink clears the case's back-reference to bulkID. A case that is
// unlinked, or linked to a different bulk action, is returned unchanged.
func RemoveBulkLink(bulkID string) CaseTask {
	return func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		out := rec.Clone()
		if current, _ := rec.Data[FieldBulkListCaseReference].(string); current == bulkID {
			delete(out.Data, FieldBulkListCaseReference)
		}
		return out, nil
	}
}

// MigrateBulkCase upgrades a bulk action record's payload to the latest schema.
func MigrateBulkCase(m *migration.Migrator) CaseTask {
	return func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		if rec.CaseType != secondary.CaseTypeBulkAction {
			return nil, fmt.Errorf("case %s is not a bulk action", rec.ID)
		}
		out := rec.Clone()
		migrated, _ := m.Migrate(out.Data)
		out.Data = migrated
		return out, nil
	}
}

// ResetBulkCaseSchema sets a bulk action's schema version back to zero so the
// next migration pass starts from scratch.
func ResetBulkCaseSchema() CaseTask {
	return func(_ context.Context, rec *secondary.CaseRecord) (*secondary.CaseRecord, error) {
		out := rec.Clone()
		out.Data[bulkaction.FieldSchemaVersion] = 0
		return out, nil
	}
}

func requireLinked(rec *secondary.CaseRecord, bulkID string) error {
	current, _ := rec.Data[FieldBulkListCaseReference].(string)
	if current != bulkID {
		return fmt.Errorf("case %s (linked to %q) for %s: %w", rec.ID, current, bulkID, ErrNotLinked)
	}
	return nil
}
