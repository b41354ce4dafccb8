package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/bulkcase/internal/adapters/persistence"
	"github.com/example/bulkcase/internal/adapters/sqlite"
	"github.com/example/bulkcase/internal/app"
	"github.com/example/bulkcase/internal/config"
	"github.com/example/bulkcase/internal/core/migration"
	"github.com/example/bulkcase/internal/db"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// CheckResult represents the outcome of a single check
type CheckResult struct {
	Name    string
	Status  string // "✓", "⚠", "✗"
	Details string // Only shown if Status != "✓"
}

// DoctorCmd returns the doctor command for environment validation
func DoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration, database and identity",
		Long: `Health check for a bulkcase installation.

Validates:
- .bulkcase/config.yaml parses and holds usable values
- The database opens and its schema is up to date
- The service credential and system user resolve
- No bulk action is waiting for a payload migration

Examples:
  bulkcase doctor              # Run full health check
  bulkcase doctor --quiet      # Exit code only (0=healthy, 1=issues)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			results := runChecks(context.Background(), cwd)

			hasErrors := false
			for _, r := range results {
				if r.Status == "✗" {
					hasErrors = true
					break
				}
			}

			if !quiet {
				fmt.Println()
				fmt.Println("Check              Status")
				fmt.Println("─────────────────────────")
				for _, r := range results {
					fmt.Printf("%-18s %s\n", r.Name, r.Status)
				}
				fmt.Println()

				hasDetails := false
				for _, r := range results {
					if r.Status != "✓" && r.Details != "" {
						if !hasDetails {
							fmt.Println("Details:")
							hasDetails = true
						}
						fmt.Printf("\n%s:\n%s\n", r.Name, r.Details)
					}
				}

				if hasErrors {
					fmt.Println("\n⚠ Issues found. Run 'bulkcase init' to create missing config or schema.")
				} else {
					fmt.Println("All checks passed.")
				}
			}

			if hasErrors {
				return fmt.Errorf("environment validation failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode - exit code only")

	return cmd
}

// runChecks runs every check against the installation rooted at dir. Checks
// after a failed database open are reported as skipped.
func runChecks(ctx context.Context, dir string) []CheckResult {
	cfg, cfgResult := checkConfig(dir)
	results := []CheckResult{cfgResult}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		if dbPath, err = db.DefaultPath(); err != nil {
			return append(results, CheckResult{Name: "Database", Status: "✗", Details: "  " + err.Error()})
		}
	}

	database, err := db.Open(dbPath)
	if err != nil {
		results = append(results, CheckResult{Name: "Database", Status: "✗", Details: fmt.Sprintf("  %s: %v", dbPath, err)})
		results = append(results, checkIdentity(ctx, persistence.NewConfigIdentityProvider(cfg.Identity)))
		return results
	}
	defer database.Close()

	results = append(results, CheckResult{Name: "Database", Status: "✓"})
	results = append(results, checkSchema(func() (int, error) { return db.CurrentVersion(database) }))
	results = append(results, checkIdentity(ctx, persistence.NewConfigIdentityProvider(cfg.Identity)))
	results = append(results, checkBulkSchema(ctx, sqlite.NewCaseStore(database), migration.Default().Latest()))
	return results
}

// checkConfig loads the config in dir. A missing file is a warning; the
// defaults are returned so later checks can still run.
func checkConfig(dir string) (*config.Config, CheckResult) {
	cfg, err := config.LoadOrDefault(dir)
	if err != nil {
		return config.Default(), CheckResult{Name: "Config", Status: "✗", Details: "  " + err.Error()}
	}
	if _, statErr := os.Stat(config.Path(dir)); statErr != nil {
		return cfg, CheckResult{Name: "Config", Status: "⚠", Details: fmt.Sprintf("  %s not found, using defaults", config.Path(dir))}
	}
	return cfg, CheckResult{Name: "Config", Status: "✓"}
}

func checkSchema(current func() (int, error)) CheckResult {
	v, err := current()
	if err != nil {
		return CheckResult{Name: "Schema", Status: "✗", Details: "  " + err.Error()}
	}
	if latest := db.LatestVersion(); v < latest {
		return CheckResult{Name: "Schema", Status: "✗", Details: fmt.Sprintf("  at version %d, want %d", v, latest)}
	}
	return CheckResult{Name: "Schema", Status: "✓"}
}

func checkIdentity(ctx context.Context, identity secondary.IdentityProvider) CheckResult {
	if _, err := identity.ServiceCredential(ctx); err != nil {
		return CheckResult{Name: "Identity", Status: "✗", Details: "  " + err.Error()}
	}
	actor, err := identity.SystemActor(ctx)
	if err != nil {
		return CheckResult{Name: "Identity", Status: "✗", Details: "  " + err.Error()}
	}
	if len(actor.Roles) == 0 {
		return CheckResult{Name: "Identity", Status: "⚠", Details: fmt.Sprintf("  system user %s has no roles", actor.ID)}
	}
	return CheckResult{Name: "Identity", Status: "✓"}
}

// checkBulkSchema warns while bulk actions still wait for the migration task.
func checkBulkSchema(ctx context.Context, store secondary.CaseStore, latest int) CheckResult {
	res, err := store.Search(ctx, secondary.SearchRequest{
		CaseType:  secondary.CaseTypeBulkAction,
		Predicate: app.SchemaBelow(latest),
		Page:      1,
		PageSize:  1,
	})
	if err != nil {
		return CheckResult{Name: "Bulk schema", Status: "✗", Details: "  " + err.Error()}
	}
	if res.Total > 0 {
		return CheckResult{
			Name:    "Bulk schema",
			Status:  "⚠",
			Details: fmt.Sprintf("  %d bulk action(s) below schema %d; run 'bulkcase task run %s'", res.Total, latest, app.TaskMigrateBulkCaseSchema),
		}
	}
	return CheckResult{Name: "Bulk schema", Status: "✓"}
}
