package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"cartflow/internal/auth"
	"cartflow/internal/store"
	"cartflow/pkg/api"

	"github.com/lib/pq"
)

// CreateTenant handles POST /tenants (onboarding).
// It generates a new API key, hashes it for storage, and returns the
// raw key ONCE.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.TenantID == "" || req.Name == "" {
		h.httpError(w, "tenant_id and name are required", http.StatusBadRequest)
		return
	}

	apiKey, err := auth.NewKey()
	if err != nil {
		h.httpError(w, "Entropy failure", http.StatusInternalServerError)
		return
	}
	hashedKey := auth.HashKey(apiKey)

	tenant := &store.Tenant{
		ID:               req.TenantID,
		Name:             req.Name,
		DelayMinutes:     req.DelayMinutes,
		Provider:         optional(req.Provider),
		ProviderToken:    optional(req.ProviderToken),
		DestinationPhone: optional(req.DestinationPhone),
		MetaPhoneID:      optional(req.MetaPhoneID),
		MetaTemplateName: optional(req.MetaTemplateName),
		HealthStatus:     "OK",
	}

	if err := h.store.CreateTenant(ctx, tenant, hashedKey); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			h.httpError(w, "Tenant already exists", http.StatusConflict)
			return
		}
		h.httpError(w, "Failed to create tenant", http.StatusInternalServerError)
		return
	}

	// Return the raw key (this is the only time the caller sees it).
	resp := api.CreateTenantResponse{
		TenantID: tenant.ID,
		Name:     tenant.Name,
		ApiKey:   apiKey,
	}
	h.respondJson(w, http.StatusCreated, resp)
}

// ListTenants handles GET /tenants (admin listing).
// Secrets never leave the store layer through this endpoint.
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.ListTenants(r.Context())
	if err != nil {
		h.httpError(w, "Failed to list tenants", http.StatusInternalServerError)
		return
	}

	resp := api.ListTenantsResponse{Tenants: make([]api.TenantSummary, 0, len(tenants))}
	for _, t := range tenants {
		summary := api.TenantSummary{
			TenantID:     t.ID,
			Name:         t.Name,
			DelayMinutes: t.DelayMinutes,
			HealthStatus: t.HealthStatus,
			CreatedAt:    t.CreatedAt,
		}
		if t.Provider != nil {
			summary.Provider = *t.Provider
		}
		resp.Tenants = append(resp.Tenants, summary)
	}

	h.respondJson(w, http.StatusOK, resp)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
