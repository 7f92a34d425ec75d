package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"cartflow/internal/store"

	"github.com/google/uuid"
)

// In-memory store fakes shared by the engine tests. They mirror the
// guard semantics of the SQL layer: a Succeeded step record is
// immutable, BeginStep reports 0 for an already-succeeded step, and
// ScheduleWake keeps the first recorded wake time.

type fakeStepStore struct {
	mu    sync.Mutex
	order []string
	steps map[string]*store.StepRecord
}

func newFakeStepStore() *fakeStepStore {
	return &fakeStepStore{steps: make(map[string]*store.StepRecord)}
}

func stepKey(runID uuid.UUID, name string) string {
	return runID.String() + "/" + name
}

func (f *fakeStepStore) GetStep(ctx context.Context, runID uuid.UUID, stepName string) (*store.StepRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.steps[stepKey(runID, stepName)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStepStore) BeginStep(ctx context.Context, runID uuid.UUID, stepName string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stepKey(runID, stepName)
	rec, ok := f.steps[key]
	if !ok {
		f.order = append(f.order, key)
		f.steps[key] = &store.StepRecord{
			RunID:    runID,
			StepName: stepName,
			State:    store.StepStateInProgress,
			Attempts: 1,
		}
		return 1, nil
	}
	if rec.State == store.StepStateSucceeded {
		return 0, nil
	}
	rec.State = store.StepStateInProgress
	rec.Attempts++
	return rec.Attempts, nil
}

func (f *fakeStepStore) CompleteStep(ctx context.Context, runID uuid.UUID, stepName string, result json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.steps[stepKey(runID, stepName)]
	if !ok || rec.State == store.StepStateSucceeded {
		return nil
	}
	rec.State = store.StepStateSucceeded
	rec.Result = result
	rec.ErrorMessage = nil
	return nil
}

func (f *fakeStepStore) FailStep(ctx context.Context, runID uuid.UUID, stepName string, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.steps[stepKey(runID, stepName)]
	if !ok || rec.State == store.StepStateSucceeded {
		return nil
	}
	rec.State = store.StepStateFailed
	rec.ErrorMessage = &errMsg
	return nil
}

func (f *fakeStepStore) ScheduleWake(ctx context.Context, runID uuid.UUID, stepName string, wakeAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stepKey(runID, stepName)
	rec, ok := f.steps[key]
	if !ok {
		f.order = append(f.order, key)
		f.steps[key] = &store.StepRecord{
			RunID:    runID,
			StepName: stepName,
			State:    store.StepStateInProgress,
			WakeAt:   &wakeAt,
		}
		return nil
	}
	if rec.WakeAt == nil {
		rec.WakeAt = &wakeAt
	}
	return nil
}

func (f *fakeStepStore) ListSteps(ctx context.Context, runID uuid.UUID) ([]store.StepRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.StepRecord
	for _, key := range f.order {
		rec := f.steps[key]
		if rec.RunID == runID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type fakeRunStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*store.WorkflowRun
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: make(map[uuid.UUID]*store.WorkflowRun)}
}

func (f *fakeRunStore) CreateRun(ctx context.Context, tx store.DBTransaction, run *store.WorkflowRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *run
	cp.CreatedAt = time.Now()
	f.runs[run.ID] = &cp
	return nil
}

func (f *fakeRunStore) GetRunByID(ctx context.Context, id uuid.UUID) (*store.WorkflowRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *run
	return &cp, nil
}

func (f *fakeRunStore) MarkRunRunning(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if run.Status.Terminal() {
		return nil
	}
	run.Status = store.RunStatusRunning
	if run.StartedAt == nil {
		now := time.Now()
		run.StartedAt = &now
	}
	return nil
}

func (f *fakeRunStore) MarkRunSuspended(ctx context.Context, id uuid.UUID, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return sql.ErrNoRows
	}
	run.Status = store.RunStatusSuspended
	return nil
}

func (f *fakeRunStore) SetRunCursor(ctx context.Context, id uuid.UUID, step int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if step > run.CurrentStep {
		run.CurrentStep = step
	}
	return nil
}

func (f *fakeRunStore) CompleteRun(ctx context.Context, id uuid.UUID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return sql.ErrNoRows
	}
	run.Status = store.RunStatusCompleted
	run.MessageID = &messageID
	now := time.Now()
	run.FinishedAt = &now
	return nil
}

func (f *fakeRunStore) FailRun(ctx context.Context, id uuid.UUID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return sql.ErrNoRows
	}
	run.Status = store.RunStatusFailed
	run.ErrorMessage = &errMsg
	now := time.Now()
	run.FinishedAt = &now
	return nil
}

func (f *fakeRunStore) ListRunsByTenant(ctx context.Context, tenantID string, limit, offset int) ([]store.WorkflowRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.WorkflowRun
	for _, run := range f.runs {
		if run.TenantID == tenantID {
			out = append(out, *run)
		}
	}
	return out, nil
}

type queueRow struct {
	tenantID     string
	attempt      int
	visibleAfter time.Time
}

type fakeQueue struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*queueRow
	runs  *fakeRunStore // for terminal failure bookkeeping
	fails int
}

func newFakeQueue(runs *fakeRunStore) *fakeQueue {
	return &fakeQueue{rows: make(map[uuid.UUID]*queueRow), runs: runs}
}

func (f *fakeQueue) Enqueue(ctx context.Context, tx store.DBTransaction, runID uuid.UUID, tenantID string, visibleAfter time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[runID] = &queueRow{tenantID: tenantID, visibleAfter: visibleAfter}
	return int64(len(f.rows)), nil
}

func (f *fakeQueue) DequeueBatch(ctx context.Context, limit int) ([]store.QueueItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var out []store.QueueItem
	for id, row := range f.rows {
		if len(out) >= limit {
			break
		}
		if row.visibleAfter.After(now) {
			continue
		}
		row.visibleAfter = now.Add(5 * time.Minute)
		out = append(out, store.QueueItem{RunID: id, TenantID: row.tenantID, Attempt: row.attempt})
	}
	return out, nil
}

func (f *fakeQueue) Complete(ctx context.Context, runID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, runID)
	return nil
}

func (f *fakeQueue) Fail(ctx context.Context, runID uuid.UUID, errMsg string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails++
	row, ok := f.rows[runID]
	if !ok || row.attempt >= 4 {
		delete(f.rows, runID)
		if f.runs != nil {
			f.runs.FailRun(ctx, runID, errMsg)
		}
		return false, nil
	}
	row.attempt++
	row.visibleAfter = time.Now().Add(10 * time.Second)
	return true, nil
}

func (f *fakeQueue) SetVisibleAfter(ctx context.Context, runID uuid.UUID, visibleAfter time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[runID]
	if !ok {
		return sql.ErrNoRows
	}
	row.visibleAfter = visibleAfter
	return nil
}

func (f *fakeQueue) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

type fakeTenantStore struct {
	mu      sync.Mutex
	tenants map[string]*store.Tenant
	fetches int
}

func newFakeTenantStore() *fakeTenantStore {
	return &fakeTenantStore{tenants: make(map[string]*store.Tenant)}
}

func (f *fakeTenantStore) CreateTenant(ctx context.Context, tenant *store.Tenant, hashedKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *tenant
	f.tenants[tenant.ID] = &cp
	return nil
}

func (f *fakeTenantStore) GetTenantByID(ctx context.Context, id string) (*store.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	t, ok := f.tenants[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTenantStore) GetTenantByAPIKeyHash(ctx context.Context, hash string) (*store.Tenant, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeTenantStore) ListTenants(ctx context.Context) ([]store.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Tenant
	for _, t := range f.tenants {
		out = append(out, *t)
	}
	return out, nil
}

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (t *fakeTx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (t *fakeTx) Commit() error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeTxBeginner struct {
	last *fakeTx
}

func (f *fakeTxBeginner) BeginTx(ctx context.Context) (store.Tx, error) {
	f.last = &fakeTx{}
	return f.last, nil
}
