package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"cartflow/internal/fault"
	"cartflow/internal/store"

	"github.com/google/uuid"
)

// TxBeginner starts database transactions. Satisfied by the postgres
// store.
type TxBeginner interface {
	BeginTx(ctx context.Context) (store.Tx, error)
}

// Dispatcher turns inbound abandonment events into queued workflow
// runs. Run creation and enqueue happen in one transaction, so a run
// row without a queue row can never exist.
type Dispatcher struct {
	db    TxBeginner
	runs  store.RunStore
	queue store.Queue
	log   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given stores.
func NewDispatcher(db TxBeginner, runs store.RunStore, queue store.Queue, log *slog.Logger) *Dispatcher {
	return &Dispatcher{db: db, runs: runs, queue: queue, log: log}
}

// OnTrigger validates and persists one abandonment event and returns
// the run created for it. The payload is captured verbatim; only the
// routing field is inspected here, everything else is the pipeline's
// concern.
func (d *Dispatcher) OnTrigger(ctx context.Context, payload json.RawMessage) (*store.WorkflowRun, error) {
	var trigger TriggerEvent
	if err := json.Unmarshal(payload, &trigger); err != nil {
		return nil, fault.Wrap(fault.InvalidPayload, err, "trigger payload is malformed")
	}
	if trigger.TenantID == "" {
		return nil, fault.New(fault.InvalidPayload, "trigger payload is missing tenant_id")
	}

	run := &store.WorkflowRun{
		ID:             uuid.New(),
		TenantID:       trigger.TenantID,
		TriggerPayload: payload,
		Status:         store.RunStatusPending,
	}

	tx, err := d.db.BeginTx(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.Transient, err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := d.runs.CreateRun(ctx, tx, run); err != nil {
		return nil, fault.Wrap(fault.Transient, err, "failed to create run")
	}

	if _, err := d.queue.Enqueue(ctx, tx, run.ID, run.TenantID, time.Now()); err != nil {
		return nil, fault.Wrap(fault.Transient, err, "failed to enqueue run")
	}

	if err := tx.Commit(); err != nil {
		return nil, fault.Wrap(fault.Transient, err, "failed to commit run")
	}

	d.log.Info("run accepted", "run_id", run.ID, "tenant_id", run.TenantID)

	return run, nil
}
