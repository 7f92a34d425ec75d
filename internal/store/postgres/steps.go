package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cartflow/internal/store"

	"github.com/google/uuid"
)

// GetStep returns the step record, or (nil, nil) when the step has
// never been entered for this run.
func (s *Store) GetStep(ctx context.Context, runID uuid.UUID, stepName string) (*store.StepRecord, error) {
	query := `
		SELECT run_id, step_name, state, result, attempts, error_message, wake_at, updated_at
		FROM step_records
		WHERE run_id = $1 AND step_name = $2
	`

	var rec store.StepRecord
	// result is NULL until the step succeeds; scan through []byte so
	// in-progress and failed rows read back cleanly.
	err := s.db.QueryRowContext(ctx, query, runID, stepName).Scan(
		&rec.RunID, &rec.StepName, &rec.State, (*[]byte)(&rec.Result),
		&rec.Attempts, &rec.ErrorMessage, &rec.WakeAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// BeginStep upserts the record into InProgress and bumps the attempt
// counter. The succeeded guard makes this a no-op when the step already
// holds a memoized result, so a crash between completion and the next
// poll can never restart a finished step.
func (s *Store) BeginStep(ctx context.Context, runID uuid.UUID, stepName string) (int, error) {
	query := `
		INSERT INTO step_records (run_id, step_name, state, attempts, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (run_id, step_name) DO UPDATE
		SET state = EXCLUDED.state, attempts = step_records.attempts + 1, updated_at = NOW()
		WHERE step_records.state <> $4
		RETURNING attempts
	`

	var attempts int
	err := s.db.QueryRowContext(ctx, query, runID, stepName, store.StepStateInProgress, store.StepStateSucceeded).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		// Already succeeded; nothing to begin.
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to begin step %s of run %s: %w", stepName, runID, err)
	}

	return attempts, nil
}

// CompleteStep stores the result and marks the step Succeeded.
// The guard keeps a recorded result immutable: a duplicate completion
// after a crash or race leaves the first result in place.
func (s *Store) CompleteStep(ctx context.Context, runID uuid.UUID, stepName string, result json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE step_records
		SET state = $1, result = $2, error_message = NULL, updated_at = NOW()
		WHERE run_id = $3 AND step_name = $4 AND state <> $1
	`, store.StepStateSucceeded, result, runID, stepName)
	return err
}

func (s *Store) FailStep(ctx context.Context, runID uuid.UUID, stepName string, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE step_records
		SET state = $1, error_message = $2, updated_at = NOW()
		WHERE run_id = $3 AND step_name = $4 AND state <> $5
	`, store.StepStateFailed, errMsg, runID, stepName, store.StepStateSucceeded)
	return err
}

// ScheduleWake records a suspend step's wake time. COALESCE keeps the
// first recorded wake time stable across redeliveries of the same run.
func (s *Store) ScheduleWake(ctx context.Context, runID uuid.UUID, stepName string, wakeAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO step_records (run_id, step_name, state, wake_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (run_id, step_name) DO UPDATE
		SET wake_at = COALESCE(step_records.wake_at, EXCLUDED.wake_at), updated_at = NOW()
		WHERE step_records.state <> $5
	`, runID, stepName, store.StepStateInProgress, wakeAt, store.StepStateSucceeded)
	return err
}

func (s *Store) ListSteps(ctx context.Context, runID uuid.UUID) ([]store.StepRecord, error) {
	query := `
		SELECT run_id, step_name, state, result, attempts, error_message, wake_at, updated_at
		FROM step_records
		WHERE run_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []store.StepRecord
	for rows.Next() {
		var rec store.StepRecord
		if err := rows.Scan(
			&rec.RunID, &rec.StepName, &rec.State, (*[]byte)(&rec.Result),
			&rec.Attempts, &rec.ErrorMessage, &rec.WakeAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		steps = append(steps, rec)
	}

	return steps, rows.Err()
}
