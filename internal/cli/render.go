package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/ports/primary"
)

// stateColor returns a color-formatted state for display.
func stateColor(state string) string {
	switch state {
	case bulkaction.StateCreated:
		return color.New(color.FgCyan).Sprint(state)
	case bulkaction.StateListed, casetask.CaseStateAwaitingPronouncement:
		return color.New(color.FgBlue).Sprint(state)
	case bulkaction.StatePronounced, casetask.CaseStateConditionalOrderPronounced:
		return color.New(color.FgGreen).Sprint(state)
	case bulkaction.StateDropped, bulkaction.StateEmpty:
		return color.New(color.FgHiBlack).Sprint(state)
	default:
		return state
	}
}

// printBulkAction writes the detail view of a bulk action.
func printBulkAction(w io.Writer, b *primary.BulkAction) {
	fmt.Fprintf(w, "%s [%s]\n", b.ID, stateColor(b.State))
	if b.DateAndTimeOfHearing != "" {
		fmt.Fprintf(w, "  Hearing: %s\n", b.DateAndTimeOfHearing)
	}
	if b.Court != "" {
		fmt.Fprintf(w, "  Court: %s\n", b.Court)
	}
	if b.PronouncementJudge != "" {
		fmt.Fprintf(w, "  Judge: %s (pronounced: %t)\n", b.PronouncementJudge, b.HasJudgePronounced)
	}
	fmt.Fprintf(w, "  Schema version: %d\n", b.SchemaVersion)
	printRefs(w, "Pending", b.Pending, color.FgYellow)
	printRefs(w, "Errored", b.Errored, color.FgRed)
	printRefs(w, "Processed", b.Processed, color.FgGreen)
}

func printRefs(w io.Writer, title string, refs []primary.CaseRef, attr color.Attribute) {
	fmt.Fprintf(w, "  %s (%d):\n", title, len(refs))
	for _, r := range refs {
		id := color.New(attr).Sprint(r.ID)
		if r.Label != "" {
			fmt.Fprintf(w, "    %s  %s\n", id, r.Label)
		} else {
			fmt.Fprintf(w, "    %s\n", id)
		}
	}
}

// parseHearing parses an optional RFC 3339 hearing flag.
func parseHearing(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hearing %q (want RFC 3339, e.g. 2026-11-03T10:00:00Z): %w", value, err)
	}
	return t, nil
}
