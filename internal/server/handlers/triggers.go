package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"cartflow/internal/fault"
	"cartflow/internal/server/middleware"
	"cartflow/pkg/api"
)

// maxTriggerBytes caps the size of an inbound trigger payload.
const maxTriggerBytes = 64 * 1024

// Trigger handles POST /triggers.
// It accepts a cart-abandoned event, creates the Pending run and
// enqueues it. Acceptance says nothing about the workflow outcome; that
// is observable later via GET /runs/{id}.
func (h *Handlers) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxTriggerBytes))
	if err != nil {
		h.httpError(w, "Payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	// The payload's routing field must name the authenticated tenant.
	var routing struct {
		TenantID string `json:"tenant_id"`
	}
	if err := json.Unmarshal(payload, &routing); err == nil && routing.TenantID != "" && routing.TenantID != tenant.ID {
		h.httpError(w, "tenant_id does not match API key", http.StatusForbidden)
		return
	}

	run, err := h.dispatcher.OnTrigger(ctx, payload)
	if err != nil {
		if fault.KindOf(err) == fault.InvalidPayload {
			h.httpError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.httpError(w, "Failed to accept trigger", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusAccepted, api.TriggerResponse{RunID: run.ID.String()})
}
