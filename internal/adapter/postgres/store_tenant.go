package postgres

import (
	"context"
	"fmt"
)

// --- Tenants ---

// ProvisionTenant registers the tenant and brings its namespace up to the
// current schema version. Safe to call repeatedly: the registry insert is
// conflict-free and the migrator skips applied versions.
func (s *Store) ProvisionTenant(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO tenants (id) VALUES ($1) ON CONFLICT (id) DO NOTHING", id)
	if err != nil {
		return fmt.Errorf("register tenant %s: %w", id, err)
	}

	return s.migrateSchema(ctx, schemaFor(id))
}

func (s *Store) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM tenants ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MigrateTenant applies pending schema migrations to one tenant namespace;
// an empty id migrates the default namespace.
func (s *Store) MigrateTenant(ctx context.Context, id string) error {
	return s.migrateSchema(ctx, schemaFor(id))
}
