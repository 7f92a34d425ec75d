// Package handlers contains HTTP handlers for the engine API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"cartflow/internal/engine"
	"cartflow/internal/store"
	"cartflow/pkg/api"
)

// StoreFactory combines the store interfaces the API needs.
type StoreFactory interface {
	BeginTx(ctx context.Context) (store.Tx, error)
	Ping(ctx context.Context) error
	store.TenantStore
	store.RunStore
	store.StepStore
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	store      StoreFactory
	dispatcher *engine.Dispatcher
}

// New creates a new Handlers instance.
func New(s StoreFactory, d *engine.Dispatcher) *Handlers {
	return &Handlers{store: s, dispatcher: d}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}
