package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/bulkcase/internal/wire"
)

// DaemonCmd returns the daemon command
func DaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the periodic tasks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Running %d periodic task(s), Ctrl-C to stop\n", len(wire.ScheduledTasks()))
			if err := wire.Scheduler().Run(ctx); err != nil {
				return fmt.Errorf("scheduler stopped: %w", err)
			}
			fmt.Println("✓ Scheduler stopped")
			return nil
		},
	}
}
