package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"cartflow/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Store{db: db}, mock
}

func stepColumns() []string {
	return []string{"run_id", "step_name", "state", "result", "attempts", "error_message", "wake_at", "updated_at"}
}

func TestGetStep_NeverEntered(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()

	mock.ExpectQuery(`SELECT run_id, step_name, state, result, attempts, error_message, wake_at, updated_at`).
		WithArgs(runID, "fetch-tenant-config").
		WillReturnError(sql.ErrNoRows)

	rec, err := s.GetStep(context.Background(), runID, "fetch-tenant-config")
	if err != nil {
		t.Fatalf("GetStep failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record for untouched step, got %+v", rec)
	}
}

func TestGetStep_Succeeded(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()
	result := json.RawMessage(`{"message_id":"m-1"}`)
	updatedAt := time.Now()

	mock.ExpectQuery(`SELECT run_id, step_name, state, result`).
		WithArgs(runID, "dispatch-message").
		WillReturnRows(sqlmock.NewRows(stepColumns()).
			AddRow(runID, "dispatch-message", store.StepStateSucceeded, []byte(result), 1, nil, nil, updatedAt))

	rec, err := s.GetStep(context.Background(), runID, "dispatch-message")
	if err != nil {
		t.Fatalf("GetStep failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.State != store.StepStateSucceeded {
		t.Errorf("got state %s, want succeeded", rec.State)
	}
	if string(rec.Result) != string(result) {
		t.Errorf("got result %s, want %s", rec.Result, result)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetStep_SuspendedRowHasNoResult(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()
	wakeAt := time.Now().Add(45 * time.Minute)
	updatedAt := time.Now()

	// A parked wait step holds a NULL result; the redelivery read after
	// ScheduleWake must still come back cleanly.
	mock.ExpectQuery(`SELECT run_id, step_name, state, result`).
		WithArgs(runID, "wait-for-dynamic-delay").
		WillReturnRows(sqlmock.NewRows(stepColumns()).
			AddRow(runID, "wait-for-dynamic-delay", store.StepStateInProgress, nil, 1, nil, wakeAt, updatedAt))

	rec, err := s.GetStep(context.Background(), runID, "wait-for-dynamic-delay")
	if err != nil {
		t.Fatalf("GetStep failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.Result != nil {
		t.Errorf("expected nil result, got %s", rec.Result)
	}
	if rec.WakeAt == nil || !rec.WakeAt.Equal(wakeAt) {
		t.Errorf("got wake %v, want %v", rec.WakeAt, wakeAt)
	}
}

func TestBeginStep_FirstAttempt(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()

	mock.ExpectQuery(`INSERT INTO step_records`).
		WithArgs(runID, "generate-message", store.StepStateInProgress, store.StepStateSucceeded).
		WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(1))

	attempts, err := s.BeginStep(context.Background(), runID, "generate-message")
	if err != nil {
		t.Fatalf("BeginStep failed: %v", err)
	}
	if attempts != 1 {
		t.Errorf("got attempts %d, want 1", attempts)
	}
}

func TestBeginStep_AlreadySucceededIsNoop(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()

	// The succeeded guard filters the upsert, so no row comes back.
	mock.ExpectQuery(`INSERT INTO step_records`).
		WillReturnError(sql.ErrNoRows)

	attempts, err := s.BeginStep(context.Background(), runID, "generate-message")
	if err != nil {
		t.Fatalf("BeginStep failed: %v", err)
	}
	if attempts != 0 {
		t.Errorf("got attempts %d, want 0 for succeeded step", attempts)
	}
}

func TestCompleteStep(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()
	result := json.RawMessage(`"Hola"`)

	mock.ExpectExec(`UPDATE step_records`).
		WithArgs(store.StepStateSucceeded, []byte(result), runID, "generate-message").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.CompleteStep(context.Background(), runID, "generate-message", result); err != nil {
		t.Fatalf("CompleteStep failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFailStep(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()

	mock.ExpectExec(`UPDATE step_records`).
		WithArgs(store.StepStateFailed, "connection refused", runID, "dispatch-message", store.StepStateSucceeded).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.FailStep(context.Background(), runID, "dispatch-message", "connection refused"); err != nil {
		t.Fatalf("FailStep failed: %v", err)
	}
}

func TestScheduleWake(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()
	wakeAt := time.Now().Add(time.Hour)

	mock.ExpectExec(`INSERT INTO step_records`).
		WithArgs(runID, "wait-for-dynamic-delay", store.StepStateInProgress, wakeAt, store.StepStateSucceeded).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.ScheduleWake(context.Background(), runID, "wait-for-dynamic-delay", wakeAt); err != nil {
		t.Fatalf("ScheduleWake failed: %v", err)
	}
}

func TestListSteps(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()
	updatedAt := time.Now()

	mock.ExpectQuery(`SELECT run_id, step_name, state, result`).
		WithArgs(runID).
		WillReturnRows(sqlmock.NewRows(stepColumns()).
			AddRow(runID, "fetch-tenant-config", store.StepStateSucceeded, []byte(`{}`), 1, nil, nil, updatedAt).
			AddRow(runID, "wait-for-dynamic-delay", store.StepStateInProgress, nil, 0, nil, updatedAt.Add(time.Hour), updatedAt))

	steps, err := s.ListSteps(context.Background(), runID)
	if err != nil {
		t.Fatalf("ListSteps failed: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0].StepName != "fetch-tenant-config" {
		t.Errorf("unexpected first step %s", steps[0].StepName)
	}
	if steps[1].WakeAt == nil {
		t.Error("suspend step should carry a wake time")
	}
}
