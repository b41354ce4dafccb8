package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/bulkcase/internal/ports/primary"
	"github.com/example/bulkcase/internal/wire"
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Manage bulk actions",
	Long:  "Create, inspect, schedule, pronounce and shrink bulk actions",
}

var bulkCreateCmd = &cobra.Command{
	Use:   "create [case-id...]",
	Short: "Group cases under a new bulk action",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		hearingFlag, _ := cmd.Flags().GetString("hearing")
		court, _ := cmd.Flags().GetString("court")

		hearing, err := parseHearing(hearingFlag)
		if err != nil {
			return err
		}

		resp, err := wire.BulkActionService().CreateBulkAction(ctx, primary.CreateBulkActionRequest{
			CaseIDs:              args,
			DateAndTimeOfHearing: hearing,
			Court:                court,
		})
		if err != nil {
			return fmt.Errorf("failed to create bulk action: %w", err)
		}

		fmt.Printf("✓ Created bulk action %s with %d case(s)\n", resp.BulkID, len(resp.BulkAction.Pending))
		if len(resp.FailedCaseIDs) > 0 {
			fmt.Printf("  Could not link: %s\n", strings.Join(resp.FailedCaseIDs, ", "))
		}
		return nil
	},
}

var bulkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bulk actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		state, _ := cmd.Flags().GetString("state")
		limit, _ := cmd.Flags().GetInt("limit")

		bulks, err := wire.BulkActionService().ListBulkActions(ctx, primary.BulkActionFilters{State: state, Limit: limit})
		if err != nil {
			return fmt.Errorf("failed to list bulk actions: %w", err)
		}

		if len(bulks) == 0 {
			fmt.Println("No bulk actions found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATE\tHEARING\tCOURT\tPENDING\tERRORED\tPROCESSED")
		for _, b := range bulks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
				b.ID, stateColor(b.State), b.DateAndTimeOfHearing, b.Court,
				len(b.Pending), len(b.Errored), len(b.Processed))
		}
		return w.Flush()
	},
}

var bulkShowCmd = &cobra.Command{
	Use:   "show [bulk-id]",
	Short: "Show a bulk action and its cases",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bulk, err := wire.BulkActionService().GetBulkAction(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get bulk action: %w", err)
		}
		printBulkAction(os.Stdout, bulk)
		return nil
	},
}

var bulkScheduleCmd = &cobra.Command{
	Use:   "schedule [bulk-id]",
	Short: "List every outstanding case for the hearing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		hearingFlag, _ := cmd.Flags().GetString("hearing")
		court, _ := cmd.Flags().GetString("court")

		hearing, err := parseHearing(hearingFlag)
		if err != nil {
			return err
		}

		bulk, err := wire.BulkActionService().ScheduleCases(ctx, primary.ScheduleCasesRequest{
			BulkID:               args[0],
			DateAndTimeOfHearing: hearing,
			Court:                court,
		})
		if err != nil {
			return fmt.Errorf("failed to schedule cases: %w", err)
		}

		reportPass("Scheduled", bulk)
		return nil
	},
}

var bulkPronounceCmd = &cobra.Command{
	Use:   "pronounce [bulk-id]",
	Short: "Record the pronouncement on every outstanding case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		judge, _ := cmd.Flags().GetString("judge")

		bulk, err := wire.BulkActionService().PronounceCases(context.Background(), primary.PronounceCasesRequest{
			BulkID:             args[0],
			PronouncementJudge: judge,
		})
		if err != nil {
			return fmt.Errorf("failed to pronounce cases: %w", err)
		}

		reportPass("Pronounced", bulk)
		return nil
	},
}

var bulkRemoveCmd = &cobra.Command{
	Use:   "remove [bulk-id] [case-id...]",
	Short: "Remove cases from a bulk action",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		bulk, err := wire.BulkActionService().RemoveCases(context.Background(), primary.RemoveCasesRequest{
			BulkID:  args[0],
			CaseIDs: args[1:],
		})
		if err != nil {
			return fmt.Errorf("failed to remove cases: %w", err)
		}

		fmt.Printf("✓ Updated bulk action %s: %d case(s) pending\n", bulk.ID, len(bulk.Pending))
		return nil
	},
}

var bulkDropCmd = &cobra.Command{
	Use:   "drop [bulk-id]",
	Short: "Unlink every case and retire the bulk action",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bulk, err := wire.BulkActionService().DropBulkList(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to drop bulk action: %w", err)
		}

		if len(bulk.Pending) > 0 {
			fmt.Printf("! Bulk action %s still holds %d case(s) that could not be unlinked\n", bulk.ID, len(bulk.Pending))
			return nil
		}
		fmt.Printf("✓ Dropped bulk action %s\n", bulk.ID)
		return nil
	},
}

func reportPass(verb string, bulk *primary.BulkAction) {
	fmt.Printf("✓ %s bulk action %s [%s]: %d processed, %d errored\n",
		verb, bulk.ID, stateColor(bulk.State), len(bulk.Processed), len(bulk.Errored))
	for _, r := range bulk.Errored {
		fmt.Printf("  errored: %s\n", r.ID)
	}
}

func init() {
	bulkCreateCmd.Flags().String("hearing", "", "Hearing date and time (RFC 3339)")
	bulkCreateCmd.Flags().String("court", "", "Court name")

	bulkListCmd.Flags().String("state", "", "Filter by state")
	bulkListCmd.Flags().Int("limit", 0, "Maximum number of bulk actions")

	bulkScheduleCmd.Flags().String("hearing", "", "New hearing date and time (RFC 3339)")
	bulkScheduleCmd.Flags().String("court", "", "New court name")

	bulkPronounceCmd.Flags().String("judge", "", "Pronouncement judge")

	bulkCmd.AddCommand(bulkCreateCmd)
	bulkCmd.AddCommand(bulkListCmd)
	bulkCmd.AddCommand(bulkShowCmd)
	bulkCmd.AddCommand(bulkScheduleCmd)
	bulkCmd.AddCommand(bulkPronounceCmd)
	bulkCmd.AddCommand(bulkRemoveCmd)
	bulkCmd.AddCommand(bulkDropCmd)
}

// BulkCmd returns the bulk command
func BulkCmd() *cobra.Command {
	return bulkCmd
}
