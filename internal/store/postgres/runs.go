package postgres

import (
	"context"
	"time"

	"cartflow/internal/store"

	"github.com/google/uuid"
)

func (s *Store) CreateRun(ctx context.Context, tx store.DBTransaction, run *store.WorkflowRun) error {
	executor := s.getExecutor(tx)

	query := `
		INSERT INTO workflow_runs (id, tenant_id, trigger_payload, status, current_step, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := executor.ExecContext(ctx, query,
		run.ID,
		run.TenantID,
		run.TriggerPayload,
		run.Status,
		run.CurrentStep,
		run.CreatedAt,
	)
	return err
}

func (s *Store) GetRunByID(ctx context.Context, id uuid.UUID) (*store.WorkflowRun, error) {
	query := `
		SELECT id, tenant_id, trigger_payload, status, current_step, message_id, error_message, created_at, started_at, finished_at
		FROM workflow_runs WHERE id = $1
	`

	var run store.WorkflowRun

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.TenantID, &run.TriggerPayload,
		&run.Status, &run.CurrentStep, &run.MessageID,
		&run.ErrorMessage, &run.CreatedAt, &run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

func (s *Store) MarkRunRunning(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workflow_runs
		SET status = $1, started_at = COALESCE(started_at, NOW())
		WHERE id = $2 AND status NOT IN ($3, $4)
	`, store.RunStatusRunning, id, store.RunStatusCompleted, store.RunStatusFailed)
	return err
}

func (s *Store) MarkRunSuspended(ctx context.Context, id uuid.UUID, until time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workflow_runs
		SET status = $1
		WHERE id = $2 AND status NOT IN ($3, $4)
	`, store.RunStatusSuspended, id, store.RunStatusCompleted, store.RunStatusFailed)
	return err
}

func (s *Store) SetRunCursor(ctx context.Context, id uuid.UUID, step int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workflow_runs
		SET current_step = GREATEST(current_step, $1)
		WHERE id = $2
	`, step, id)
	return err
}

func (s *Store) CompleteRun(ctx context.Context, id uuid.UUID, messageID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workflow_runs
		SET status = $1, message_id = $2, finished_at = NOW()
		WHERE id = $3
	`, store.RunStatusCompleted, messageID, id)
	return err
}

func (s *Store) FailRun(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workflow_runs
		SET status = $1, error_message = $2, finished_at = NOW()
		WHERE id = $3
	`, store.RunStatusFailed, errMsg, id)
	return err
}

func (s *Store) ListRunsByTenant(ctx context.Context, tenantID string, limit, offset int) ([]store.WorkflowRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, tenant_id, trigger_payload, status, current_step, message_id, error_message, created_at, started_at, finished_at
		FROM workflow_runs
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.WorkflowRun
	for rows.Next() {
		var run store.WorkflowRun
		if err := rows.Scan(
			&run.ID, &run.TenantID, &run.TriggerPayload,
			&run.Status, &run.CurrentStep, &run.MessageID,
			&run.ErrorMessage, &run.CreatedAt, &run.StartedAt,
			&run.FinishedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
