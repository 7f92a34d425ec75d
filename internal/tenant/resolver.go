// Package tenant resolves per-tenant workflow configuration.
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cartflow/internal/fault"
	"cartflow/internal/store"
)

// DefaultDelay applies when a tenant has no configured abandonment delay.
const DefaultDelay = 60 * time.Minute

// DefaultProvider is the safe no-op provider used when a tenant has not
// picked one.
const DefaultProvider = "NOOP"

// Config is a tenant's resolved workflow configuration with defaults
// applied. It is what a run's fetch-tenant-config step memoizes, so it
// must stay JSON round-trippable.
type Config struct {
	TenantID         string `json:"tenant_id"`
	DelayMinutes     *int   `json:"delay_minutes"`
	Provider         string `json:"provider"`
	ProviderToken    string `json:"provider_token"`
	DestinationPhone string `json:"destination_phone"`
	MetaPhoneID      string `json:"meta_phone_id,omitempty"`
	MetaTemplateName string `json:"meta_template_name,omitempty"`
}

// Delay returns the configured abandonment delay, defaulting to
// DefaultDelay when absent.
func (c Config) Delay() time.Duration {
	if c.DelayMinutes == nil {
		return DefaultDelay
	}
	return time.Duration(*c.DelayMinutes) * time.Minute
}

// Resolver fetches tenant configuration for workflow runs.
// There is no caching across runs: configuration edits take effect on
// the next triggered run, never on an in-flight run's memoized fetch.
type Resolver struct {
	tenants store.TenantStore
}

// NewResolver creates a resolver backed by the given tenant store.
func NewResolver(tenants store.TenantStore) *Resolver {
	return &Resolver{tenants: tenants}
}

// Fetch loads the tenant's configuration.
// A missing row is a NotFound fault (retrying cannot fix a row that
// does not exist); any other store error is Transient.
func (r *Resolver) Fetch(ctx context.Context, tenantID string) (Config, error) {
	t, err := r.tenants.GetTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Config{}, fault.New(fault.NotFound, "no config for tenant %s", tenantID)
		}
		return Config{}, fault.Wrap(fault.Transient, err, "config fetch failed")
	}

	cfg := Config{
		TenantID:     t.ID,
		DelayMinutes: t.DelayMinutes,
		Provider:     DefaultProvider,
	}
	if t.Provider != nil && *t.Provider != "" {
		cfg.Provider = *t.Provider
	}
	if t.ProviderToken != nil {
		cfg.ProviderToken = *t.ProviderToken
	}
	if t.DestinationPhone != nil {
		cfg.DestinationPhone = *t.DestinationPhone
	}
	if t.MetaPhoneID != nil {
		cfg.MetaPhoneID = *t.MetaPhoneID
	}
	if t.MetaTemplateName != nil {
		cfg.MetaTemplateName = *t.MetaTemplateName
	}

	return cfg, nil
}
