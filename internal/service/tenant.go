package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/deviceline/inventory/internal/domain/tenant"
	"github.com/deviceline/inventory/internal/port/store"
)

// TenantService provisions tenant namespaces and runs schema migrations.
type TenantService struct {
	store  store.TenantStore
	logger *slog.Logger
}

// NewTenantService creates a TenantService.
func NewTenantService(ts store.TenantStore, logger *slog.Logger) *TenantService {
	return &TenantService{store: ts, logger: logger}
}

// Create provisions the tenant's namespace and migrates it to the current
// schema version. Creating an already provisioned tenant is idempotent.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.store.ProvisionTenant(ctx, req.TenantID); err != nil {
		return fmt.Errorf("provision tenant %q: %w", req.TenantID, err)
	}
	s.logger.Info("tenant provisioned", "tenant_id", req.TenantID)
	return nil
}

// Migrate brings a single tenant's namespace up to the current schema
// version. An empty id targets the default (single-tenant) namespace.
func (s *TenantService) Migrate(ctx context.Context, tenantID string) error {
	if err := s.store.MigrateTenant(ctx, tenantID); err != nil {
		return fmt.Errorf("migrate tenant %q: %w", tenantID, err)
	}
	return nil
}

// migrateConcurrency bounds parallel tenant migrations; each one holds a
// schema lock and a pool connection.
const migrateConcurrency = 4

// MigrateAll migrates the default namespace and every registered tenant.
// Tenant namespaces are independent, so they migrate in parallel; the first
// failure cancels the rest.
func (s *TenantService) MigrateAll(ctx context.Context) error {
	if err := s.Migrate(ctx, ""); err != nil {
		return err
	}
	ids, err := s.store.ListTenantIDs(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(migrateConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := s.Migrate(ctx, id); err != nil {
				return err
			}
			s.logger.Info("tenant migrated", "tenant_id", id)
			return nil
		})
	}
	return g.Wait()
}
