package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/bulkcase/internal/cli"
	"github.com/example/bulkcase/internal/version"
	"github.com/example/bulkcase/internal/wire"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "bulkcase",
		Short:   "bulkcase - bulk orchestration of court cases",
		Version: version.String(),
		Long: `bulkcase groups individual cases into bulk actions, lists them for a
hearing, records the pronouncement on every case and retries whatever failed.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.DoctorCmd())
	rootCmd.AddCommand(cli.CaseCmd())
	rootCmd.AddCommand(cli.BulkCmd())
	rootCmd.AddCommand(cli.TaskCmd())
	rootCmd.AddCommand(cli.DaemonCmd())

	err := rootCmd.Execute()
	wire.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
