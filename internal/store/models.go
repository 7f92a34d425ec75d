// Package store contains the database layer for cartflow.
package store

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Tenant represents a storefront account in the multi-tenant system.
// Its configuration parameterizes every workflow run triggered for it.
// Nullable columns stay nullable here; defaulting happens in the
// tenant resolver, not the store.
type Tenant struct {
	ID               string
	Name             string
	DelayMinutes     *int
	Provider         *string
	ProviderToken    *string
	DestinationPhone *string
	MetaPhoneID      *string
	MetaTemplateName *string
	HealthStatus     string
	CreatedAt        time.Time
}

// WorkflowRun represents one execution instance of the abandonment
// recovery pipeline for one trigger.
type WorkflowRun struct {
	ID             uuid.UUID
	TenantID       string
	TriggerPayload json.RawMessage // captured verbatim at trigger time
	Status         RunStatus
	CurrentStep    int
	MessageID      *string
	ErrorMessage   *string
	CreatedAt      time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
}

// RunStatus represents the state of a workflow run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSuspended RunStatus = "suspended"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// StepRecord is the durable memo of a single step execution within a run.
// Once Succeeded, Result is immutable and is served verbatim on every
// re-entry into the step.
type StepRecord struct {
	RunID        uuid.UUID
	StepName     string
	State        StepState
	Result       json.RawMessage
	Attempts     int
	ErrorMessage *string
	WakeAt       *time.Time // suspend steps only
	UpdatedAt    time.Time
}

// StepState represents the state of a step record.
type StepState string

const (
	StepStateNotStarted StepState = "not_started"
	StepStateInProgress StepState = "in_progress"
	StepStateSucceeded  StepState = "succeeded"
	StepStateFailed     StepState = "failed"
)
