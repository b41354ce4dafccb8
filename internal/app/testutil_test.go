package app

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/bulkcase/internal/adapters/sqlite"
	"github.com/example/bulkcase/internal/core/bulkaction"
	"github.com/example/bulkcase/internal/core/casetask"
	"github.com/example/bulkcase/internal/core/migration"
	"github.com/example/bulkcase/internal/core/retry"
	"github.com/example/bulkcase/internal/db"
	"github.com/example/bulkcase/internal/ports/secondary"
)

var (
	testHearing = time.Date(2026, 11, 3, 10, 0, 0, 0, time.UTC)
	testNow     = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
)

// flakyStore wraps a real store and injects faults per call.
type flakyStore struct {
	secondary.CaseStore

	submitHook func(req secondary.SubmitRequest, attempt int) error
	fetchHook  func(id string) error
	searchHook func(req secondary.SearchRequest) error
	createHook func(req secondary.CreateRequest) error

	submits   map[string]int
	submitLog []string
	creates   int
	searches  int
}

func (s *flakyStore) Fetch(ctx context.Context, id string) (*secondary.CaseRecord, error) {
	if s.fetchHook != nil {
		if err := s.fetchHook(id); err != nil {
			return nil, err
		}
	}
	return s.CaseStore.Fetch(ctx, id)
}

func (s *flakyStore) Submit(ctx context.Context, req secondary.SubmitRequest) (string, error) {
	s.submits[req.CaseID]++
	s.submitLog = append(s.submitLog, req.CaseID+" "+req.OperationID)
	if s.submitHook != nil {
		if err := s.submitHook(req, s.submits[req.CaseID]); err != nil {
			return "", err
		}
	}
	return s.CaseStore.Submit(ctx, req)
}

func (s *flakyStore) Search(ctx context.Context, req secondary.SearchRequest) (*secondary.SearchResult, error) {
	s.searches++
	if s.searchHook != nil {
		if err := s.searchHook(req); err != nil {
			return nil, err
		}
	}
	return s.CaseStore.Search(ctx, req)
}

func (s *flakyStore) Create(ctx context.Context, req secondary.CreateRequest) (*secondary.CaseRecord, error) {
	s.creates++
	if s.createHook != nil {
		if err := s.createHook(req); err != nil {
			return nil, err
		}
	}
	return s.CaseStore.Create(ctx, req)
}

// totalSubmits counts submits across every record.
func (s *flakyStore) totalSubmits() int {
	n := 0
	for _, c := range s.submits {
		n += c
	}
	return n
}

// alwaysFail injects err on every submit to caseID.
func alwaysFail(caseID string, err error) func(secondary.SubmitRequest, int) error {
	return func(req secondary.SubmitRequest, _ int) error {
		if req.CaseID == caseID {
			return err
		}
		return nil
	}
}

// stubIdentity is a fixed identity provider.
type stubIdentity struct {
	token string
	actor secondary.Actor
	err   error
	calls int
}

func (s *stubIdentity) ServiceCredential(_ context.Context) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

func (s *stubIdentity) SystemActor(_ context.Context) (*secondary.Actor, error) {
	if s.err != nil {
		return nil, s.err
	}
	actor := s.actor
	return &actor, nil
}

type harness struct {
	db         *sql.DB
	store      *flakyStore
	events     *sqlite.EventLogRepository
	identity   *stubIdentity
	trigger    *BulkTrigger
	reconciler *FailureReconciler
	dispatcher *casetask.Dispatcher
	migrator   *migration.Migrator
	service    *BulkActionServiceImpl
	logger     *zap.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	testDB.SetMaxOpenConns(1)
	_, err = testDB.Exec(db.GetSchemaSQL())
	require.NoError(t, err)
	t.Cleanup(func() { testDB.Close() })

	logger := zap.NewNop()
	store := &flakyStore{CaseStore: sqlite.NewCaseStore(testDB), submits: map[string]int{}}
	events := sqlite.NewEventLogRepository(testDB)
	identity := &stubIdentity{token: "s2s-token", actor: secondary.Actor{ID: "system-user", Name: "System"}}
	migrator := migration.Default()
	dispatcher, err := casetask.NewDefaultDispatcher(migrator)
	require.NoError(t, err)

	trigger := NewBulkTrigger(store, events, retry.DefaultPolicy(), logger)
	reconciler := NewFailureReconciler(trigger, logger)
	service := NewBulkActionService(store, events, identity, trigger, reconciler, dispatcher, migrator.Latest(), 2, logger)
	service.now = func() time.Time { return testNow }

	return &harness{
		db:         testDB,
		store:      store,
		events:     events,
		identity:   identity,
		trigger:    trigger,
		reconciler: reconciler,
		dispatcher: dispatcher,
		migrator:   migrator,
		service:    service,
		logger:     logger,
	}
}

func (h *harness) creds() Credentials {
	return Credentials{ServiceToken: h.identity.token, Actor: h.identity.actor}
}

// seedCases creates n cases in state, optionally linked to bulkID.
func (h *harness) seedCases(t *testing.T, n int, state, bulkID string) []bulkaction.CaseReference {
	t.Helper()
	refs := make([]bulkaction.CaseReference, n)
	for i := range refs {
		data := map[string]any{casetask.FieldApplicantLabel: fmt.Sprintf("Applicant %d", i+1)}
		if bulkID != "" {
			data[casetask.FieldBulkListCaseReference] = bulkID
		}
		rec, err := h.store.CaseStore.Create(context.Background(), secondary.CreateRequest{
			CaseType:    secondary.CaseTypeCase,
			State:       state,
			OperationID: "seed",
			Data:        data,
		})
		require.NoError(t, err)
		refs[i] = caseRef(rec)
	}
	return refs
}

// seedBulk stores bulk as a new bulk action record and returns its id.
func (h *harness) seedBulk(t *testing.T, bulk *bulkaction.BulkAction) string {
	t.Helper()
	if bulk.SchemaVersion == 0 {
		bulk.SchemaVersion = h.migrator.Latest()
	}
	rec, err := h.store.CaseStore.Create(context.Background(), secondary.CreateRequest{
		CaseType:    secondary.CaseTypeBulkAction,
		State:       bulk.State,
		OperationID: "seed",
		Data:        bulk.ApplyTo(&secondary.CaseRecord{}).Data,
	})
	require.NoError(t, err)
	return rec.ID
}

// seedLinkedBulk creates a bulk action in state with n linked cases pending.
func (h *harness) seedLinkedBulk(t *testing.T, n int, state, caseState string) (string, []bulkaction.CaseReference) {
	t.Helper()
	refs := make([]bulkaction.CaseReference, n)
	for i := range refs {
		refs[i] = bulkaction.CaseReference{ID: fmt.Sprintf("CASE-%03d", i+1), Label: fmt.Sprintf("Applicant %d", i+1)}
	}
	bulkID := h.seedBulk(t, &bulkaction.BulkAction{
		State:                state,
		DateAndTimeOfHearing: testHearing,
		Court:                "Birmingham",
		PronouncementJudge:   "District Judge Brown",
		Partition:            bulkaction.Partition{Pending: refs},
	})
	h.seedCases(t, n, caseState, bulkID)
	return bulkID, refs
}

func (h *harness) fetchBulk(t *testing.T, bulkID string) *bulkaction.BulkAction {
	t.Helper()
	rec, err := h.store.CaseStore.Fetch(context.Background(), bulkID)
	require.NoError(t, err)
	bulk, err := bulkaction.FromRecord(rec)
	require.NoError(t, err)
	return bulk
}

func (h *harness) fetchCase(t *testing.T, caseID string) *secondary.CaseRecord {
	t.Helper()
	rec, err := h.store.CaseStore.Fetch(context.Background(), caseID)
	require.NoError(t, err)
	return rec
}

func conflictErr(caseID string) error {
	return fmt.Errorf("submit for case %s: %w", caseID, secondary.ErrConflict)
}
