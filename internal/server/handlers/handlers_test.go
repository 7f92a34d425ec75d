package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"cartflow/internal/engine"
	"cartflow/internal/store"

	"github.com/google/uuid"
)

// Mock transaction
type mockTx struct{}

func (m *mockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (m *mockTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (m *mockTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (m *mockTx) Commit() error { return nil }

func (m *mockTx) Rollback() error { return nil }

// Mock Store
type mockStore struct {
	beginTxErr error
	pingErr    error

	// Tenant hooks
	createTenantErr error
	listTenantsResp []store.Tenant
	listTenantsErr  error

	// Run hooks
	createRunErr  error
	getRunResp    *store.WorkflowRun
	getRunErr     error
	listRunsResp  []store.WorkflowRun
	listRunsErr   error
	listStepsResp []store.StepRecord
	listStepsErr  error

	// Spies
	capturedTenant *store.Tenant
	capturedHash   string
	capturedRun    *store.WorkflowRun
	capturedLimit  int
	capturedOffset int
}

func (m *mockStore) BeginTx(ctx context.Context) (store.Tx, error) {
	if m.beginTxErr != nil {
		return nil, m.beginTxErr
	}
	return &mockTx{}, nil
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) CreateTenant(ctx context.Context, tenant *store.Tenant, hashedKey string) error {
	m.capturedTenant = tenant
	m.capturedHash = hashedKey
	return m.createTenantErr
}

func (m *mockStore) GetTenantByID(ctx context.Context, id string) (*store.Tenant, error) {
	return nil, sql.ErrNoRows // handled by the resolver, not the handlers
}

func (m *mockStore) GetTenantByAPIKeyHash(ctx context.Context, hash string) (*store.Tenant, error) {
	return nil, sql.ErrNoRows // handled by the auth middleware, not the handlers
}

func (m *mockStore) ListTenants(ctx context.Context) ([]store.Tenant, error) {
	return m.listTenantsResp, m.listTenantsErr
}

func (m *mockStore) CreateRun(ctx context.Context, tx store.DBTransaction, run *store.WorkflowRun) error {
	m.capturedRun = run
	return m.createRunErr
}

func (m *mockStore) GetRunByID(ctx context.Context, id uuid.UUID) (*store.WorkflowRun, error) {
	return m.getRunResp, m.getRunErr
}

func (m *mockStore) MarkRunRunning(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockStore) MarkRunSuspended(ctx context.Context, id uuid.UUID, until time.Time) error {
	return nil
}

func (m *mockStore) SetRunCursor(ctx context.Context, id uuid.UUID, step int) error { return nil }

func (m *mockStore) CompleteRun(ctx context.Context, id uuid.UUID, messageID string) error {
	return nil
}

func (m *mockStore) FailRun(ctx context.Context, id uuid.UUID, errMsg string) error { return nil }

func (m *mockStore) ListRunsByTenant(ctx context.Context, tenantID string, limit, offset int) ([]store.WorkflowRun, error) {
	m.capturedLimit = limit
	m.capturedOffset = offset
	return m.listRunsResp, m.listRunsErr
}

func (m *mockStore) GetStep(ctx context.Context, runID uuid.UUID, stepName string) (*store.StepRecord, error) {
	return nil, nil
}

func (m *mockStore) BeginStep(ctx context.Context, runID uuid.UUID, stepName string) (int, error) {
	return 1, nil
}

func (m *mockStore) CompleteStep(ctx context.Context, runID uuid.UUID, stepName string, result json.RawMessage) error {
	return nil
}

func (m *mockStore) FailStep(ctx context.Context, runID uuid.UUID, stepName string, errMsg string) error {
	return nil
}

func (m *mockStore) ScheduleWake(ctx context.Context, runID uuid.UUID, stepName string, wakeAt time.Time) error {
	return nil
}

func (m *mockStore) ListSteps(ctx context.Context, runID uuid.UUID) ([]store.StepRecord, error) {
	return m.listStepsResp, m.listStepsErr
}

// Mock queue for the dispatcher path
type mockQueue struct {
	enqueueErr    error
	enqueuedRunID uuid.UUID
}

func (m *mockQueue) Enqueue(ctx context.Context, tx store.DBTransaction, runID uuid.UUID, tenantID string, visibleAfter time.Time) (int64, error) {
	m.enqueuedRunID = runID
	return 1, m.enqueueErr
}

func (m *mockQueue) DequeueBatch(ctx context.Context, limit int) ([]store.QueueItem, error) {
	return nil, nil
}

func (m *mockQueue) Complete(ctx context.Context, runID uuid.UUID) error { return nil }

func (m *mockQueue) Fail(ctx context.Context, runID uuid.UUID, errMsg string) (bool, error) {
	return false, nil
}

func (m *mockQueue) SetVisibleAfter(ctx context.Context, runID uuid.UUID, visibleAfter time.Time) error {
	return nil
}

func (m *mockQueue) Count(ctx context.Context) (int64, error) { return 0, nil }

func newTestHandlers(s *mockStore, q *mockQueue) *Handlers {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(s, engine.NewDispatcher(s, s, q, log))
}
