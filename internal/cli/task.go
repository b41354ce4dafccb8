package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/bulkcase/internal/app"
	"github.com/example/bulkcase/internal/wire"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and run periodic tasks",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List periodic tasks and their intervals",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TASK\tINTERVAL")
		for _, st := range wire.ScheduledTasks() {
			interval := st.Interval.String()
			if st.Interval <= 0 {
				interval = "disabled"
			}
			fmt.Fprintf(w, "%s\t%s\n", st.Task.Name(), interval)
		}
		return w.Flush()
	},
}

var taskRunCmd = &cobra.Command{
	Use:   "run [task-name]",
	Short: "Run one periodic task now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := app.FindTask(wire.ScheduledTasks(), args[0])
		if err != nil {
			return err
		}

		task.Run(context.Background())
		fmt.Printf("✓ Task %s finished\n", task.Name())
		return nil
	},
}

func init() {
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskRunCmd)
}

// TaskCmd returns the task command
func TaskCmd() *cobra.Command {
	return taskCmd
}
