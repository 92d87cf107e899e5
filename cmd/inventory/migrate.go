package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"github.com/deviceline/inventory/internal/adapter/postgres"
	"github.com/deviceline/inventory/internal/config"
	"github.com/deviceline/inventory/internal/service"
)

// runMigrate implements the `inventory migrate [--tenant <id>]` subcommand.
// Without --tenant it migrates the default namespace and every registered
// tenant to the current schema version.
func runMigrate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	tenantID := fs.String("tenant", "", "migrate only the given tenant's namespace")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("tenant registry migrations: %w", err)
	}

	tenants := service.NewTenantService(postgres.NewStore(pool), slog.Default())

	if *tenantID != "" {
		if err := tenants.Migrate(ctx, *tenantID); err != nil {
			return err
		}
		slog.Info("tenant migrated", "tenant_id", *tenantID, "schema_version", postgres.SchemaVersion)
		return nil
	}

	if err := tenants.MigrateAll(ctx); err != nil {
		return err
	}
	slog.Info("all namespaces migrated", "schema_version", postgres.SchemaVersion)
	return nil
}
