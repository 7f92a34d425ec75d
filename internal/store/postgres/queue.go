package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cartflow/internal/store"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Default retry policy
const (
	MaxRetries        = 5
	VisibilityTimeout = 5 * time.Minute
)

// Enqueue adds a run to the scheduling queue.
func (s *Store) Enqueue(ctx context.Context, tx store.DBTransaction, runID uuid.UUID, tenantID string, visibleAfter time.Time) (int64, error) {
	if visibleAfter.IsZero() {
		visibleAfter = time.Now()
	}

	query := `
		INSERT INTO run_queue (run_id, tenant_id, visible_after)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	executor := s.getExecutor(tx)

	var id int64
	err := executor.QueryRowContext(ctx, query, runID, tenantID, visibleAfter).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue run %s: %w", runID, err)
	}

	return id, nil
}

// DequeueBatch claims up to 'limit' due runs atomically using SELECT ... FOR UPDATE SKIP LOCKED.
// Claimed rows get their visibility pushed out so a crashed scheduler
// turn is redelivered after the visibility timeout.
// Returns nil slice if nothing is due.
func (s *Store) DequeueBatch(ctx context.Context, limit int) ([]store.QueueItem, error) {
	if limit <= 0 {
		limit = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	selectQuery := `
		SELECT id, run_id, tenant_id, attempt
		FROM run_queue
		WHERE visible_after <= NOW()
		ORDER BY visible_after ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`

	rows, err := tx.QueryContext(ctx, selectQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("batch dequeue query failed: %w", err)
	}
	defer rows.Close()

	var items []store.QueueItem
	var queueIDs []int64

	for rows.Next() {
		var queueID int64
		var item store.QueueItem
		if err := rows.Scan(&queueID, &item.RunID, &item.TenantID, &item.Attempt); err != nil {
			return nil, fmt.Errorf("batch dequeue scan failed: %w", err)
		}
		items = append(items, item)
		queueIDs = append(queueIDs, queueID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("batch dequeue rows error: %w", err)
	}

	// Nothing due
	if len(items) == 0 {
		return nil, nil
	}

	// Bulk update visibility timeout for all claimed runs
	_, err = tx.ExecContext(ctx, `
		UPDATE run_queue
		SET visible_after = NOW() + ($1 * INTERVAL '1 second')
		WHERE id = ANY($2)
	`, VisibilityTimeout.Seconds(), pq.Array(queueIDs))
	if err != nil {
		return nil, fmt.Errorf("batch visibility update failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return items, nil
}

// Complete removes a terminal run from the queue.
func (s *Store) Complete(ctx context.Context, runID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM run_queue WHERE run_id = $1", runID)
	return err
}

// Fail handles a retryable step failure with backoff.
// Within budget, the run is re-scheduled at 10s * 2^attempt; once
// retries are exhausted the queue row is dropped and the run is marked
// Failed with errMsg.
func (s *Store) Fail(ctx context.Context, runID uuid.UUID, errMsg string) (bool, error) {
	// Check current attempts
	var attempt int
	err := s.db.QueryRowContext(ctx, "SELECT attempt FROM run_queue WHERE run_id = $1", runID).Scan(&attempt)

	exhausted := false
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Run not found in queue -> treat as already terminal
			exhausted = true
		} else {
			// Return actual DB error to avoid accidentally retrying
			return false, err
		}
	} else if attempt >= MaxRetries-1 {
		// attempt counts prior requeues, so executions = attempt + 1.
		exhausted = true
	}

	if !exhausted {
		// RETRY: Exponential Backoff (10s * 2^attempt)
		backoff := time.Duration(10*(1<<attempt)) * time.Second
		_, err = s.db.ExecContext(ctx, `
			UPDATE run_queue
			SET attempt = attempt + 1, visible_after = NOW() + ($1 * INTERVAL '1 second')
			WHERE run_id = $2
		`, backoff.Seconds(), runID)
		return true, err
	}

	// permanent failure
	_, err = s.db.ExecContext(ctx, "DELETE FROM run_queue WHERE run_id = $1", runID)
	if err != nil {
		return false, fmt.Errorf("failed to delete exhausted run from queue: %w", err)
	}

	return false, s.FailRun(ctx, runID, errMsg)
}

// SetVisibleAfter re-schedules a run's next wake. This is the
// persistence behind timed suspension: the run stays parked until the
// timestamp elapses, surviving process restarts.
func (s *Store) SetVisibleAfter(ctx context.Context, runID uuid.UUID, visibleAfter time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE run_queue
		SET visible_after = $1
		WHERE run_id = $2
	`, visibleAfter, runID)
	return err
}

// Count tracks the number of runs currently queued.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM run_queue").Scan(&count)
	return count, err
}
