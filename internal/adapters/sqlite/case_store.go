// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/example/bulkcase/internal/ports/secondary"
)

// CaseStore implements secondary.CaseStore with SQLite. Version tokens are
// random UUIDs replaced on every accepted write.
type CaseStore struct {
	db *sql.DB
}

// NewCaseStore creates a new SQLite case store.
func NewCaseStore(db *sql.DB) *CaseStore {
	return &CaseStore{db: db}
}

var idPrefixes = map[string]string{
	secondary.CaseTypeCase:       "CASE",
	secondary.CaseTypeBulkAction: "BULK",
}

const caseColumns = "id, case_type, state, version, data, created_at, updated_at"

// Fetch retrieves a case record with its current version token.
func (s *CaseStore) Fetch(ctx context.Context, id string) (*secondary.CaseRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+caseColumns+" FROM cases WHERE id = ?", id)
	record, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("case %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, classify(fmt.Sprintf("failed to fetch case %s", id), err)
	}
	return record, nil
}

// Submit writes state and payload if req.Version is still current.
func (s *CaseStore) Submit(ctx context.Context, req secondary.SubmitRequest) (string, error) {
	data, err := encodeData(req.Data)
	if err != nil {
		return "", fmt.Errorf("failed to encode case %s: %w", req.CaseID, err)
	}

	newVersion := uuid.NewString()
	result, err := s.db.ExecContext(ctx,
		"UPDATE cases SET state = ?, data = ?, version = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND version = ?",
		req.State, data, newVersion, req.CaseID, req.Version,
	)
	if err != nil {
		return "", classify(fmt.Sprintf("failed to submit %s for case %s", req.OperationID, req.CaseID), err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		// Either the case is gone or someone else wrote first
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases WHERE id = ?", req.CaseID).Scan(&exists)
		if err != nil {
			return "", classify(fmt.Sprintf("failed to check case %s", req.CaseID), err)
		}
		if exists == 0 {
			return "", fmt.Errorf("case %s: %w", req.CaseID, secondary.ErrNotFound)
		}
		return "", fmt.Errorf("submit %s for case %s with version %s: %w", req.OperationID, req.CaseID, req.Version, secondary.ErrConflict)
	}

	return newVersion, nil
}

// Create persists a new record with the next id for its case type.
func (s *CaseStore) Create(ctx context.Context, req secondary.CreateRequest) (*secondary.CaseRecord, error) {
	prefix, ok := idPrefixes[req.CaseType]
	if !ok {
		return nil, fmt.Errorf("unknown case type %q", req.CaseType)
	}
	data, err := encodeData(req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode new %s: %w", req.CaseType, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("failed to begin create", err)
	}
	defer tx.Rollback()

	var maxID int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(CAST(SUBSTR(id, 6) AS INTEGER)), 0) FROM cases WHERE case_type = ?",
		req.CaseType,
	).Scan(&maxID)
	if err != nil {
		return nil, classify("failed to get next case ID", err)
	}
	id := fmt.Sprintf("%s-%03d", prefix, maxID+1)

	_, err = tx.ExecContext(ctx,
		"INSERT INTO cases (id, case_type, state, version, data) VALUES (?, ?, ?, ?, ?)",
		id, req.CaseType, req.State, uuid.NewString(), data,
	)
	if err != nil {
		return nil, classify(fmt.Sprintf("failed to create %s", req.CaseType), err)
	}

	record, err := scanCase(tx.QueryRowContext(ctx, "SELECT "+caseColumns+" FROM cases WHERE id = ?", id))
	if err != nil {
		return nil, classify("failed to read created case", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("failed to commit create", err)
	}
	return record, nil
}

// Search returns one page of records of req.CaseType matching req.Predicate.
func (s *CaseStore) Search(ctx context.Context, req secondary.SearchRequest) (*secondary.SearchResult, error) {
	if req.Page < 1 {
		return nil, fmt.Errorf("page must be at least 1, got %d", req.Page)
	}
	if req.PageSize < 1 {
		return nil, fmt.Errorf("page size must be at least 1, got %d", req.PageSize)
	}

	where, args, err := CompileSearch(req.CaseType, req.Predicate)
	if err != nil {
		return nil, fmt.Errorf("failed to compile search: %w", err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases WHERE "+where, args...).Scan(&total); err != nil {
		return nil, classify("failed to count search results", err)
	}

	pageArgs := append(append([]any{}, args...), req.PageSize, (req.Page-1)*req.PageSize)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+caseColumns+" FROM cases WHERE "+where+" ORDER BY id COLLATE BINARY ASC LIMIT ? OFFSET ?",
		pageArgs...,
	)
	if err != nil {
		return nil, classify("failed to search cases", err)
	}
	defer rows.Close()

	result := &secondary.SearchResult{Total: total}
	for rows.Next() {
		record, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		result.Cases = append(result.Cases, record)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("failed to read search results", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*secondary.CaseRecord, error) {
	var (
		data      string
		createdAt time.Time
		updatedAt time.Time
	)
	record := &secondary.CaseRecord{}
	if err := row.Scan(&record.ID, &record.CaseType, &record.State, &record.Version, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	record.Data = map[string]any{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), &record.Data); err != nil {
			return nil, fmt.Errorf("failed to decode data of case %s: %w", record.ID, err)
		}
	}
	record.CreatedAt = createdAt.Format(time.RFC3339)
	record.UpdatedAt = updatedAt.Format(time.RFC3339)
	return record, nil
}

func encodeData(data map[string]any) (string, error) {
	if data == nil {
		return "{}", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// classify wraps busy and locked database errors as transient.
func classify(msg string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%s: %w: %v", msg, secondary.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Ensure CaseStore implements the interface
var _ secondary.CaseStore = (*CaseStore)(nil)
