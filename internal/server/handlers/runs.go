package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"cartflow/internal/server/middleware"
	"cartflow/internal/store"
	"cartflow/pkg/api"

	"github.com/google/uuid"
)

// GetRun handles GET /runs/{id}.
// Runs are tenant-scoped: a key for another tenant sees a 404, not a
// 403, so run IDs leak nothing across tenants.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.httpError(w, "Invalid run id", http.StatusBadRequest)
		return
	}

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	run, err := h.store.GetRunByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.httpError(w, "Run not found", http.StatusNotFound)
			return
		}
		h.httpError(w, "Failed to load run", http.StatusInternalServerError)
		return
	}
	if run.TenantID != tenant.ID {
		h.httpError(w, "Run not found", http.StatusNotFound)
		return
	}

	steps, err := h.store.ListSteps(ctx, runID)
	if err != nil {
		h.httpError(w, "Failed to load steps", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, runResponse(run, steps))
}

// ListRuns handles GET /runs for the authenticated tenant.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenant, ok := middleware.TenantFromContext(ctx)
	if !ok {
		h.httpError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	runs, err := h.store.ListRunsByTenant(ctx, tenant.ID, limit, offset)
	if err != nil {
		h.httpError(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	resp := api.ListRunsResponse{Runs: make([]api.RunResponse, 0, len(runs))}
	for i := range runs {
		resp.Runs = append(resp.Runs, runResponse(&runs[i], nil))
	}

	h.respondJson(w, http.StatusOK, resp)
}

func runResponse(run *store.WorkflowRun, steps []store.StepRecord) api.RunResponse {
	resp := api.RunResponse{
		ID:         run.ID.String(),
		TenantID:   run.TenantID,
		Status:     string(run.Status),
		MessageID:  run.MessageID,
		Error:      run.ErrorMessage,
		CreatedAt:  run.CreatedAt,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}

	for _, s := range steps {
		resp.Steps = append(resp.Steps, api.StepResponse{
			Name:     s.StepName,
			State:    string(s.State),
			Attempts: s.Attempts,
			Result:   s.Result,
			WakeAt:   s.WakeAt,
		})
	}

	return resp
}
