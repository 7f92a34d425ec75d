// Package engine contains the durable workflow core: the memoizing step
// executor, the abandonment pipeline, the trigger dispatcher and the
// scheduler that drives runs off the queue.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cartflow/internal/fault"
	"cartflow/internal/store"

	"github.com/google/uuid"
)

// Suspension signals that the run must park until Until. It flows up
// through the pipeline as an error so a suspend step can stop the whole
// advance without unwinding state.
type Suspension struct {
	Until time.Time
}

func (s *Suspension) Error() string {
	return fmt.Sprintf("run suspended until %s", s.Until.Format(time.RFC3339))
}

// Executor runs steps with per-(run, step) memoization. A step that has
// already succeeded is never executed again; its stored result is
// served verbatim on every re-entry.
type Executor struct {
	steps store.StepStore
	now   func() time.Time
}

// NewExecutor creates an executor over the given step store.
func NewExecutor(steps store.StepStore) *Executor {
	return &Executor{steps: steps, now: time.Now}
}

// Execute runs producer at (runID, name), memoizing its result.
// Producer errors are recorded on the step record and returned
// unchanged so the caller keeps the fault classification.
func (e *Executor) Execute(ctx context.Context, runID uuid.UUID, name string, producer func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	rec, err := e.steps.GetStep(ctx, runID, name)
	if err != nil {
		return nil, fault.Wrap(fault.Transient, err, "step lookup failed")
	}
	if rec != nil && rec.State == store.StepStateSucceeded {
		return rec.Result, nil
	}

	attempt, err := e.steps.BeginStep(ctx, runID, name)
	if err != nil {
		return nil, fault.Wrap(fault.Transient, err, "step begin failed")
	}
	if attempt == 0 {
		// Lost the race to a concurrent completion; serve the memo.
		rec, err = e.steps.GetStep(ctx, runID, name)
		if err != nil {
			return nil, fault.Wrap(fault.Transient, err, "step lookup failed")
		}
		if rec == nil {
			return nil, fault.New(fault.Unknown, "step %s vanished after begin", name)
		}
		return rec.Result, nil
	}

	result, err := producer(ctx)
	if err != nil {
		if ferr := e.steps.FailStep(ctx, runID, name, err.Error()); ferr != nil {
			return nil, fault.Wrap(fault.Transient, ferr, "step failure not recorded")
		}
		return nil, err
	}

	if err := e.steps.CompleteStep(ctx, runID, name, result); err != nil {
		return nil, fault.Wrap(fault.Transient, err, "step completion not recorded")
	}

	return result, nil
}

// Suspend implements a durable timed wait at (runID, name). The first
// entry persists the wake time and returns a *Suspension; re-entries
// before the wake time return the same *Suspension, and re-entries
// after it complete the step. The wake time is fixed on first entry, so
// a crash-and-redeliver never extends the wait.
func (e *Executor) Suspend(ctx context.Context, runID uuid.UUID, name string, d time.Duration) error {
	rec, err := e.steps.GetStep(ctx, runID, name)
	if err != nil {
		return fault.Wrap(fault.Transient, err, "step lookup failed")
	}
	if rec != nil && rec.State == store.StepStateSucceeded {
		return nil
	}

	wake := e.now().Add(d)
	if rec != nil && rec.WakeAt != nil {
		wake = *rec.WakeAt
	}

	if !e.now().Before(wake) {
		// First entry with an already-elapsed wake (zero delay) has no
		// row yet; completion only updates existing rows.
		if rec == nil {
			if _, err := e.steps.BeginStep(ctx, runID, name); err != nil {
				return fault.Wrap(fault.Transient, err, "step begin failed")
			}
		}
		result, _ := json.Marshal(map[string]string{"woke_at": e.now().UTC().Format(time.RFC3339)})
		if err := e.steps.CompleteStep(ctx, runID, name, result); err != nil {
			return fault.Wrap(fault.Transient, err, "step completion not recorded")
		}
		return nil
	}

	if err := e.steps.ScheduleWake(ctx, runID, name, wake); err != nil {
		return fault.Wrap(fault.Transient, err, "wake not recorded")
	}

	return &Suspension{Until: wake}
}

// Run executes a typed step through the executor, marshaling the
// producer's value into the step memo and unmarshaling it back on
// replay.
func Run[T any](ctx context.Context, e *Executor, runID uuid.UUID, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	raw, err := e.Execute(ctx, runID, name, func(ctx context.Context) (json.RawMessage, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fault.Wrap(fault.Unknown, err, "step result not serializable")
		}
		return data, nil
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fault.Wrap(fault.Unknown, err, fmt.Sprintf("memoized result of %s is corrupt", name))
	}

	return out, nil
}
