// Package store contains the database layer for cartflow.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Queue defines the interface for the run scheduling queue.
// Implementations must use SELECT ... FOR UPDATE SKIP LOCKED semantics.
// A queue row exists for every non-terminal run; its visible_after
// timestamp doubles as the persisted wake time while a run is
// suspended, so a process restart never loses a parked run.
type Queue interface {
	// Enqueue adds a run to the queue, visible from visibleAfter.
	Enqueue(ctx context.Context, tx DBTransaction, runID uuid.UUID, tenantID string, visibleAfter time.Time) (int64, error)

	// DequeueBatch claims up to 'limit' due runs atomically.
	// Returns nil slice if nothing is due.
	DequeueBatch(ctx context.Context, limit int) ([]QueueItem, error)

	// Complete removes a run from the queue once it reaches a
	// terminal state.
	Complete(ctx context.Context, runID uuid.UUID) error

	// Fail records a retryable failure: the run is re-scheduled with
	// exponential backoff, or, once the attempt budget is exhausted,
	// removed from the queue and marked Failed with errMsg.
	// Returns true when the run was re-scheduled.
	Fail(ctx context.Context, runID uuid.UUID, errMsg string) (bool, error)

	// SetVisibleAfter re-schedules a run's next wake. Used for timed
	// suspension.
	SetVisibleAfter(ctx context.Context, runID uuid.UUID, visibleAfter time.Time) error

	// Count tracks the number of runs currently queued.
	Count(ctx context.Context) (int64, error)
}

// QueueItem represents a dequeued run from the queue.
type QueueItem struct {
	RunID    uuid.UUID
	TenantID string
	Attempt  int
}
