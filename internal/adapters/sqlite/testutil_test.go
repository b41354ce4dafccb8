// Package sqlite_test contains integration tests for the SQLite adapters.
//
// All test setup goes through setupTestDB, which loads db.GetSchemaSQL() so
// tests always run against the schema production uses.
package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/bulkcase/internal/adapters/sqlite"
	"github.com/example/bulkcase/internal/db"
	"github.com/example/bulkcase/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Each connection to :memory: is its own database
	testDB.SetMaxOpenConns(1)

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// seedCase creates a case record through the store and returns it.
func seedCase(t *testing.T, store *sqlite.CaseStore, caseType, state string, data map[string]any) *secondary.CaseRecord {
	t.Helper()
	rec, err := store.Create(context.Background(), secondary.CreateRequest{
		CaseType:    caseType,
		State:       state,
		OperationID: "seed",
		Data:        data,
	})
	if err != nil {
		t.Fatalf("failed to seed %s: %v", caseType, err)
	}
	return rec
}
