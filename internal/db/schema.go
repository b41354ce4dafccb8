package db

import "database/sql"

// SchemaSQL is the complete schema for fresh installs.
// This schema reflects the current state after all migrations.
//
// This is the single source of truth for the database schema. Tests load it
// through GetSchemaSQL() instead of declaring their own tables, so a column
// referenced by an adapter but missing here fails immediately with
// "no such column".
//
// When adding new columns or tables:
//  1. Add a migration in migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Cases (individual case records and bulk action records share one table)
CREATE TABLE IF NOT EXISTS cases (
	id TEXT PRIMARY KEY,
	case_type TEXT NOT NULL CHECK(case_type IN ('case', 'bulk_action')),
	state TEXT NOT NULL,
	version TEXT NOT NULL,
	data TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_cases_type_state ON cases(case_type, state);

-- Case events (audit trail of every accepted submit)
CREATE TABLE IF NOT EXISTS case_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id TEXT NOT NULL,
	operation_id TEXT NOT NULL,
	actor_id TEXT,
	state_before TEXT,
	state_after TEXT NOT NULL,
	version TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_case_events_case ON case_events(case_id);
`

// InitSchema creates the database schema or runs pending migrations.
func InitSchema(database *sql.DB) error {
	var tableCount int
	err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		var caseTables int
		err = database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = 'cases'").Scan(&caseTables)
		if err != nil {
			return err
		}

		if caseTables > 0 {
			// Pre-versioning database - run migrations to upgrade
			return RunMigrations(database)
		}

		// Fresh install - create modern schema directly and mark every
		// migration as applied
		if _, err := database.Exec(SchemaSQL); err != nil {
			return err
		}
		if err := ensureVersionTable(database); err != nil {
			return err
		}
		for _, m := range migrations {
			if _, err := database.Exec("INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
				return err
			}
		}
		return nil
	}

	return RunMigrations(database)
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
