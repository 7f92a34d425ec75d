package postgres

import (
	"context"

	"cartflow/internal/store"
)

func (s *Store) CreateTenant(ctx context.Context, tenant *store.Tenant, hashedKey string) error {
	query := `
		INSERT INTO tenants (id, name, api_key_hash, delay_minutes, provider, provider_token, destination_phone, meta_phone_id, meta_template_name, health_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.ExecContext(ctx, query,
		tenant.ID,
		tenant.Name,
		hashedKey,
		tenant.DelayMinutes,
		tenant.Provider,
		tenant.ProviderToken,
		tenant.DestinationPhone,
		tenant.MetaPhoneID,
		tenant.MetaTemplateName,
		tenant.HealthStatus,
		tenant.CreatedAt,
	)
	return err
}

const tenantColumns = "id, name, delay_minutes, provider, provider_token, destination_phone, meta_phone_id, meta_template_name, health_status, created_at"

func (s *Store) GetTenantByID(ctx context.Context, id string) (*store.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM tenants WHERE id = $1"

	var t store.Tenant

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.DelayMinutes,
		&t.Provider,
		&t.ProviderToken,
		&t.DestinationPhone,
		&t.MetaPhoneID,
		&t.MetaTemplateName,
		&t.HealthStatus,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (s *Store) GetTenantByAPIKeyHash(ctx context.Context, hash string) (*store.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM tenants WHERE api_key_hash = $1"

	var t store.Tenant

	err := s.db.QueryRowContext(ctx, query, hash).Scan(
		&t.ID,
		&t.Name,
		&t.DelayMinutes,
		&t.Provider,
		&t.ProviderToken,
		&t.DestinationPhone,
		&t.MetaPhoneID,
		&t.MetaTemplateName,
		&t.HealthStatus,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]store.Tenant, error) {
	query := "SELECT " + tenantColumns + " FROM tenants ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []store.Tenant
	for rows.Next() {
		var t store.Tenant
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&t.DelayMinutes,
			&t.Provider,
			&t.ProviderToken,
			&t.DestinationPhone,
			&t.MetaPhoneID,
			&t.MetaTemplateName,
			&t.HealthStatus,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}
