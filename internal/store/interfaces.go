package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DBTransaction defines the methods shared by *sql.DB and *sql.Tx
// This allows us to pass either a connection pool or an active transaction to the repository methods.
type DBTransaction interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type Tx interface {
	DBTransaction
	Commit() error
	Rollback() error
}

// TenantStore handles tenant configuration rows.
// The workflow core only ever reads; writes come from onboarding.
type TenantStore interface {
	// CreateTenant inserts a new tenant row with its hashed API key.
	CreateTenant(ctx context.Context, tenant *Tenant, hashedKey string) error

	// GetTenantByID returns a tenant by its ID.
	// Returns sql.ErrNoRows when no row matches.
	GetTenantByID(ctx context.Context, id string) (*Tenant, error)

	// GetTenantByAPIKeyHash returns a tenant by its API key hash.
	GetTenantByAPIKeyHash(ctx context.Context, hash string) (*Tenant, error)

	// ListTenants returns all tenants, newest first.
	ListTenants(ctx context.Context) ([]Tenant, error)
}

// RunStore handles the persistence of workflow runs.
type RunStore interface {
	// CreateRun inserts the initial Pending state of a new run.
	CreateRun(ctx context.Context, tx DBTransaction, run *WorkflowRun) error

	// GetRunByID returns a run by its ID.
	GetRunByID(ctx context.Context, id uuid.UUID) (*WorkflowRun, error)

	// MarkRunRunning transitions a run to Running, stamping started_at
	// on the first transition only.
	MarkRunRunning(ctx context.Context, id uuid.UUID) error

	// MarkRunSuspended parks the run until the wake time.
	MarkRunSuspended(ctx context.Context, id uuid.UUID, until time.Time) error

	// SetRunCursor advances the run's step cursor.
	SetRunCursor(ctx context.Context, id uuid.UUID, step int) error

	// CompleteRun records the terminal Completed state and the
	// provider message ID.
	CompleteRun(ctx context.Context, id uuid.UUID, messageID string) error

	// FailRun records the terminal Failed state with the last error.
	FailRun(ctx context.Context, id uuid.UUID, errMsg string) error

	// ListRunsByTenant returns a tenant's runs, newest first.
	ListRunsByTenant(ctx context.Context, tenantID string, limit, offset int) ([]WorkflowRun, error)
}

// StepStore is the step executor's persistence contract.
// Writes are scoped per (run_id, step_name), so concurrent runs never
// contend. The succeeded guard on CompleteStep makes the memo
// check-then-write safe against duplicate completion.
type StepStore interface {
	// GetStep returns the record for (runID, stepName), or (nil, nil)
	// when the step has never been entered.
	GetStep(ctx context.Context, runID uuid.UUID, stepName string) (*StepRecord, error)

	// BeginStep upserts the record into InProgress and increments the
	// attempt counter. It is a no-op on an already-Succeeded record.
	// Returns the attempt number of this entry.
	BeginStep(ctx context.Context, runID uuid.UUID, stepName string) (int, error)

	// CompleteStep stores the result and marks the step Succeeded.
	// A record that is already Succeeded is never overwritten.
	CompleteStep(ctx context.Context, runID uuid.UUID, stepName string, result json.RawMessage) error

	// FailStep marks the current attempt Failed and retains the error.
	FailStep(ctx context.Context, runID uuid.UUID, stepName string, errMsg string) error

	// ScheduleWake records a suspend step's wake time.
	ScheduleWake(ctx context.Context, runID uuid.UUID, stepName string, wakeAt time.Time) error

	// ListSteps returns all step records of a run in creation order.
	ListSteps(ctx context.Context, runID uuid.UUID) ([]StepRecord, error)
}
