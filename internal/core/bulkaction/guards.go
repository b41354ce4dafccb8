package bulkaction

import (
	"fmt"
	"strings"
	"time"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// ScheduleContext provides context for scheduling guards.
type ScheduleContext struct {
	BulkID               string
	State                string
	DateAndTimeOfHearing time.Time
	Court                string
	// HearingChanged is set when the caller supplies a new hearing date; only a
	// new date has to lie in the future.
	HearingChanged bool
	Now            time.Time
}

// PronounceContext provides context for pronouncement guards.
type PronounceContext struct {
	BulkID             string
	State              string
	PronouncementJudge string
	HasHearing         bool
}

// MembershipContext provides context for removal and drop guards.
type MembershipContext struct {
	BulkID string
	State  string
}

// CanSchedule evaluates whether the cases of a bulk action can be listed for hearing.
// Rules:
// - State must be Created or Listed (Listed reschedules or retries)
// - Hearing date and court must be set
// - A newly supplied hearing date must be in the future
func CanSchedule(ctx ScheduleContext) GuardResult {
	if !stateIn(ctx.State, StateCreated, StateListed) {
		return denied("cannot schedule bulk action %s in state %s (must be %s or %s)",
			ctx.BulkID, ctx.State, StateCreated, StateListed)
	}
	if ctx.DateAndTimeOfHearing.IsZero() {
		return denied("bulk action %s has no hearing date", ctx.BulkID)
	}
	if strings.TrimSpace(ctx.Court) == "" {
		return denied("bulk action %s has no court", ctx.BulkID)
	}
	if ctx.HearingChanged && !ctx.DateAndTimeOfHearing.After(ctx.Now) {
		return denied("hearing date %s is not in the future", ctx.DateAndTimeOfHearing.Format(time.RFC3339))
	}
	return GuardResult{Allowed: true}
}

// CanPronounce evaluates whether the cases of a bulk action can be pronounced.
// Rules:
// - State must be Listed or Pronounced (Pronounced retries failed cases)
// - The cases must have been listed for a hearing
// - A pronouncement judge must be known
func CanPronounce(ctx PronounceContext) GuardResult {
	if !stateIn(ctx.State, StateListed, StatePronounced) {
		return denied("cannot pronounce bulk action %s in state %s (must be %s or %s)",
			ctx.BulkID, ctx.State, StateListed, StatePronounced)
	}
	if !ctx.HasHearing {
		return denied("bulk action %s has no hearing date", ctx.BulkID)
	}
	if strings.TrimSpace(ctx.PronouncementJudge) == "" {
		return denied("bulk action %s has no pronouncement judge", ctx.BulkID)
	}
	return GuardResult{Allowed: true}
}

// CanChangeMembership evaluates whether cases can be removed from a bulk action
// or the whole list dropped.
// Rules:
// - State must be Created or Listed
func CanChangeMembership(ctx MembershipContext) GuardResult {
	if !stateIn(ctx.State, StateCreated, StateListed) {
		return denied("cannot change cases of bulk action %s in state %s", ctx.BulkID, ctx.State)
	}
	return GuardResult{Allowed: true}
}

// IsTerminal reports whether no further orchestration applies to state.
func IsTerminal(state string) bool {
	return state == StateDropped || state == StateEmpty
}

func stateIn(state string, allowed ...string) bool {
	for _, s := range allowed {
		if state == s {
			return true
		}
	}
	return false
}

func denied(format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}
