// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the engine API.
package api

import (
	"encoding/json"
	"time"
)

// CreateTenantRequest is the request body for onboarding a new tenant.
type CreateTenantRequest struct {
	TenantID         string `json:"tenant_id"`
	Name             string `json:"name"`
	DelayMinutes     *int   `json:"delay_minutes,omitempty"`
	Provider         string `json:"provider,omitempty"`
	ProviderToken    string `json:"provider_token,omitempty"`
	DestinationPhone string `json:"destination_phone,omitempty"`
	MetaPhoneID      string `json:"meta_phone_id,omitempty"`
	MetaTemplateName string `json:"meta_template_name,omitempty"`
}

// CreateTenantResponse is the response body after onboarding a tenant.
type CreateTenantResponse struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	ApiKey   string `json:"api_key"`
}

// TenantSummary is a single row in the admin tenant listing.
type TenantSummary struct {
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	DelayMinutes *int      `json:"delay_minutes,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	HealthStatus string    `json:"health_status"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListTenantsResponse is the response body for the admin tenant listing.
type ListTenantsResponse struct {
	Tenants []TenantSummary `json:"tenants"`
}

// TriggerResponse is returned after an abandonment event is accepted.
// Acceptance only means the payload shape was valid; the workflow
// outcome is observable later via GET /runs/{id}.
type TriggerResponse struct {
	RunID string `json:"run_id"`
}

// StepResponse describes one step record of a run.
type StepResponse struct {
	Name     string          `json:"name"`
	State    string          `json:"state"`
	Attempts int             `json:"attempts"`
	Result   json.RawMessage `json:"result,omitempty"`
	WakeAt   *time.Time      `json:"wake_at,omitempty"`
}

// RunResponse is the response body for run status queries.
type RunResponse struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Status     string         `json:"status"`
	MessageID  *string        `json:"message_id,omitempty"`
	Error      *string        `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Steps      []StepResponse `json:"steps,omitempty"`
}

// ListRunsResponse is the response body for a tenant's run listing.
type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}
