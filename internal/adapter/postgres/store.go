package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deviceline/inventory/internal/middleware"
)

// defaultSchema is the namespace used when no tenant is on the request.
const defaultSchema = "inventory"

// schemaPrefix namespaces tenant schemas apart from everything else in the
// database.
const schemaPrefix = "inventory_"

// Store implements store.DataStore and store.TenantStore on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// schemaFor maps a tenant id to its schema name. The result must always be
// rendered through ident() so arbitrary tenant ids stay safe in SQL.
func schemaFor(tenantID string) string {
	if tenantID == "" {
		return defaultSchema
	}
	return schemaPrefix + tenantID
}

// schemaFromCtx resolves the tenant schema from the request context.
// All tenant-scoped queries must use this to enforce isolation.
func schemaFromCtx(ctx context.Context) string {
	return schemaFor(middleware.TenantFromContext(ctx))
}

// ident quotes an identifier for safe interpolation into SQL.
func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
