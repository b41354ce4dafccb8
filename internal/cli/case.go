package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/example/bulkcase/internal/ports/primary"
	"github.com/example/bulkcase/internal/wire"
)

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Manage individual cases",
}

var caseCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new case",
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")
		state, _ := cmd.Flags().GetString("state")

		c, err := wire.CaseService().CreateCase(context.Background(), primary.CreateCaseRequest{
			State:          state,
			ApplicantLabel: label,
		})
		if err != nil {
			return fmt.Errorf("failed to create case: %w", err)
		}

		fmt.Printf("✓ Created case %s [%s]\n", c.ID, stateColor(c.State))
		return nil
	},
}

var caseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cases",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, _ := cmd.Flags().GetString("state")
		bulkID, _ := cmd.Flags().GetString("bulk")
		unlinked, _ := cmd.Flags().GetBool("unlinked")
		limit, _ := cmd.Flags().GetInt("limit")

		cases, err := wire.CaseService().ListCases(context.Background(), primary.CaseFilters{
			State:    state,
			BulkID:   bulkID,
			Unlinked: unlinked,
			Limit:    limit,
		})
		if err != nil {
			return fmt.Errorf("failed to list cases: %w", err)
		}

		if len(cases) == 0 {
			fmt.Println("No cases found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATE\tBULK\tUPDATED")
		for _, c := range cases {
			bulk := c.BulkID
			if bulk == "" {
				bulk = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, stateColor(c.State), bulk, c.UpdatedAt)
		}
		return w.Flush()
	},
}

var caseShowCmd = &cobra.Command{
	Use:   "show [case-id]",
	Short: "Show a case and its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := wire.CaseService().GetCase(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get case: %w", err)
		}

		fmt.Printf("%s [%s]\n", c.ID, stateColor(c.State))
		fmt.Printf("  Type: %s\n", c.CaseType)
		fmt.Printf("  Version: %s\n", c.Version)
		fmt.Printf("  Created: %s\n", c.CreatedAt)
		fmt.Printf("  Updated: %s\n", c.UpdatedAt)

		data, err := yaml.Marshal(c.Data)
		if err != nil {
			return fmt.Errorf("failed to render case data: %w", err)
		}
		fmt.Println("  Data:")
		fmt.Print(indent(string(data), "    "))
		return nil
	},
}

var caseEventsCmd = &cobra.Command{
	Use:   "events [case-id]",
	Short: "Show the audit trail of a case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := wire.CaseService().ListEvents(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to list events: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No events recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tOPERATION\tACTOR\tFROM\tTO")
		for _, e := range events {
			from := e.StateBefore
			if from == "" {
				from = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.CreatedAt, e.OperationID, e.ActorID, from, stateColor(e.StateAfter))
		}
		return w.Flush()
	},
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return prefix + strings.Join(lines, "\n"+prefix) + "\n"
}

func init() {
	caseCreateCmd.Flags().String("label", "", "Applicant label shown in bulk lists")
	caseCreateCmd.Flags().String("state", "", "Initial state (default AwaitingPronouncement)")

	caseListCmd.Flags().String("state", "", "Filter by state")
	caseListCmd.Flags().String("bulk", "", "Filter by bulk action")
	caseListCmd.Flags().Bool("unlinked", false, "Only cases not in any bulk action")
	caseListCmd.Flags().Int("limit", 0, "Maximum number of cases")

	caseCmd.AddCommand(caseCreateCmd)
	caseCmd.AddCommand(caseListCmd)
	caseCmd.AddCommand(caseShowCmd)
	caseCmd.AddCommand(caseEventsCmd)
}

// CaseCmd returns the case command
func CaseCmd() *cobra.Command {
	return caseCmd
}
