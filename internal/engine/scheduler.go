package engine

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cartflow/internal/fault"
	"cartflow/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// SchedulerConfig holds tuning for the run scheduler.
type SchedulerConfig struct {
	Concurrency  int
	PollInterval time.Duration
	MaxBackoff   time.Duration // cap on poll backoff when the queue is empty
}

// Scheduler drives workflow runs off the queue. It claims due runs in
// batches, advances each through the pipeline on its own goroutine and
// records the outcome: completion, timed suspension, retry with
// backoff, or terminal failure.
type Scheduler struct {
	queue    store.Queue
	runs     store.RunStore
	pipeline *Pipeline
	config   SchedulerConfig
	log      *slog.Logger
	done     chan struct{}

	runsCompleted metric.Int64Counter
	runsFailed    metric.Int64Counter
}

// NewScheduler creates a scheduler with sane defaults for any unset
// config values.
func NewScheduler(queue store.Queue, runs store.RunStore, pipeline *Pipeline, config SchedulerConfig, log *slog.Logger) *Scheduler {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}

	meter := otel.Meter("cartflow-scheduler")
	runsCompleted, err := meter.Int64Counter("cartflow.runs.completed")
	if err != nil {
		log.Warn("failed to create runs.completed counter", "error", err)
	}
	runsFailed, err := meter.Int64Counter("cartflow.runs.failed")
	if err != nil {
		log.Warn("failed to create runs.failed counter", "error", err)
	}

	return &Scheduler{
		queue:         queue,
		runs:          runs,
		pipeline:      pipeline,
		config:        config,
		log:           log,
		done:          make(chan struct{}),
		runsCompleted: runsCompleted,
		runsFailed:    runsFailed,
	}
}

// Run starts the main pull-loop. It blocks until the context is
// cancelled, then waits for in-flight runs to finish advancing.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler starting", "concurrency", s.config.Concurrency)

	sem := make(chan struct{}, s.config.Concurrency)
	var wg sync.WaitGroup

	// Channel to signal when a slot becomes available (adaptive polling)
	pollNow := make(chan struct{}, 1)

	// Current backoff duration (increases on empty queue, resets on work found)
	currentBackoff := s.config.PollInterval

	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
			// Already a poll pending
		}
	}

	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping, draining in-flight runs")
			wg.Wait()
			close(s.done)
			return ctx.Err()

		case <-time.After(currentBackoff):
			triggerPoll()

		case <-pollNow:
			availableSlots := s.config.Concurrency - len(sem)
			if availableSlots <= 0 {
				continue
			}

			items, err := s.queue.DequeueBatch(ctx, availableSlots)
			if err != nil {
				s.log.Error("dequeue failed", "error", err)
				continue
			}

			if len(items) == 0 {
				// Empty queue - increase backoff, capped at MaxBackoff
				currentBackoff = currentBackoff * 2
				if currentBackoff > s.config.MaxBackoff {
					currentBackoff = s.config.MaxBackoff
				}
				continue
			}

			currentBackoff = s.config.PollInterval

			for _, item := range items {
				sem <- struct{}{}

				wg.Add(1)
				go func(item store.QueueItem) {
					defer wg.Done()
					defer func() {
						<-sem
						triggerPoll()
					}()
					s.processRun(ctx, item)
				}(item)
			}

			// If there are still free slots, poll again immediately
			if len(items) < availableSlots {
				triggerPoll()
			}
		}
	}
}

// Done returns a channel that is closed when the scheduler has fully
// stopped.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// processRun advances a single claimed run and records the outcome.
// Bookkeeping after Advance uses a fresh context so a SIGTERM mid-run
// never loses the result of a step that already happened.
func (s *Scheduler) processRun(ctx context.Context, item store.QueueItem) {
	tracer := otel.Tracer("cartflow-scheduler")
	ctx, span := tracer.Start(ctx, "advance_run",
		trace.WithAttributes(
			attribute.String("run.id", item.RunID.String()),
			attribute.String("tenant.id", item.TenantID),
			attribute.Int("queue.attempt", item.Attempt),
		),
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	defer span.End()

	run, err := s.runs.GetRunByID(ctx, item.RunID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Queue row without a run row; drop it.
			s.queue.Complete(context.Background(), item.RunID)
			return
		}
		s.log.Error("run lookup failed", "run_id", item.RunID, "error", err)
		return
	}

	if run.Status.Terminal() {
		s.queue.Complete(context.Background(), run.ID)
		return
	}

	if err := s.runs.MarkRunRunning(ctx, run.ID); err != nil {
		s.log.Error("run transition failed", "run_id", run.ID, "error", err)
		return
	}

	outcome, err := s.pipeline.Advance(ctx, run)

	var susp *Suspension
	switch {
	case err == nil:
		if err := s.runs.CompleteRun(context.Background(), run.ID, outcome.MessageID); err != nil {
			s.log.Error("run completion not recorded", "run_id", run.ID, "error", err)
			return
		}
		s.queue.Complete(context.Background(), run.ID)
		if s.runsCompleted != nil {
			s.runsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant.id", run.TenantID)))
		}
		s.log.Info("run completed", "run_id", run.ID, "message_id", outcome.MessageID)

	case errors.As(err, &susp):
		if err := s.runs.MarkRunSuspended(context.Background(), run.ID, susp.Until); err != nil {
			s.log.Error("run suspension not recorded", "run_id", run.ID, "error", err)
		}
		if err := s.queue.SetVisibleAfter(context.Background(), run.ID, susp.Until); err != nil {
			s.log.Error("wake not scheduled", "run_id", run.ID, "error", err)
			return
		}
		s.log.Info("run suspended", "run_id", run.ID, "until", susp.Until)

	case !fault.Retryable(err):
		span.RecordError(err)
		if ferr := s.runs.FailRun(context.Background(), run.ID, err.Error()); ferr != nil {
			s.log.Error("run failure not recorded", "run_id", run.ID, "error", ferr)
		}
		s.queue.Complete(context.Background(), run.ID)
		if s.runsFailed != nil {
			s.runsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant.id", run.TenantID)))
		}
		s.log.Warn("run failed", "run_id", run.ID, "kind", fault.KindOf(err).String(), "error", err)

	default:
		span.RecordError(err)
		requeued, ferr := s.queue.Fail(context.Background(), run.ID, err.Error())
		if ferr != nil {
			s.log.Error("retry not recorded", "run_id", run.ID, "error", ferr)
			return
		}
		if requeued {
			s.log.Warn("run attempt failed, will retry", "run_id", run.ID, "attempt", item.Attempt, "error", err)
			return
		}
		if s.runsFailed != nil {
			s.runsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant.id", run.TenantID)))
		}
		s.log.Warn("run failed after exhausting retries", "run_id", run.ID, "error", err)
	}
}
