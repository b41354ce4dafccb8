package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/bulkcase/internal/config"
	"github.com/example/bulkcase/internal/db"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and database",
		Long: `Write .bulkcase/config.yaml in the current directory (unless present) with a
freshly generated service credential, and create the case database with the required schema.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			cfg, err := config.LoadConfig(cwd)
			switch {
			case err == nil && !force:
				fmt.Printf("Using existing config at %s\n", config.Path(cwd))
			case err == nil || errors.Is(err, fs.ErrNotExist):
				cfg = config.Default()
				cfg.Identity.ServiceCredential = uuid.NewString()
				if err := config.SaveConfig(cwd, cfg); err != nil {
					return err
				}
				fmt.Printf("✓ Config written to %s\n", config.Path(cwd))
			default:
				return err
			}

			dbPath := cfg.Database.Path
			if dbPath == "" {
				if dbPath, err = db.DefaultPath(); err != nil {
					return err
				}
			}

			database, err := db.Open(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			fmt.Printf("✓ Database initialized at %s\n", dbPath)
			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  bulkcase case create --label \"Smith v Smith\"")
			fmt.Println("  bulkcase bulk create CASE-001 CASE-002 --hearing 2026-11-03T10:00:00Z --court Birmingham")

			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing config with defaults")
	return cmd
}
