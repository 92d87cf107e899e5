package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/jackc/pgx/v5"
)

// SchemaVersion is the tenant-namespace schema version provisioned for new
// tenants and targeted by `inventory migrate`.
const SchemaVersion = "1.1.0"

// schemaMigration is one versioned step applied to a tenant namespace.
// Steps run in ascending version order inside a single transaction per
// namespace and are recorded in that namespace's migration_info table.
type schemaMigration struct {
	version string
	apply   func(ctx context.Context, tx pgx.Tx, schema string) error
}

var schemaMigrations = []schemaMigration{
	{version: "1.0.0", apply: migrateBaseTables},
	{version: "1.1.0", apply: migrateAttributeIndexes},
}

// migrateSchema creates the schema if needed and applies every migration
// newer than the namespace's recorded version. Re-running with nothing
// pending is a no-op.
func (s *Store) migrateSchema(ctx context.Context, schema string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident(schema)); err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	_, err = tx.Exec(ctx,
		"CREATE TABLE IF NOT EXISTS "+ident(schema)+".migration_info ("+
			" major INT NOT NULL, minor INT NOT NULL, patch INT NOT NULL,"+
			" applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),"+
			" PRIMARY KEY (major, minor, patch))")
	if err != nil {
		return fmt.Errorf("create migration_info in %s: %w", schema, err)
	}

	// Serialize concurrent migrators of the same namespace.
	if _, err := tx.Exec(ctx, "LOCK TABLE "+ident(schema)+".migration_info IN EXCLUSIVE MODE"); err != nil {
		return fmt.Errorf("lock migration_info in %s: %w", schema, err)
	}

	current, err := appliedVersion(ctx, tx, schema)
	if err != nil {
		return err
	}

	for _, m := range schemaMigrations {
		v := semver.MustParse(m.version)
		if !v.GreaterThan(current) {
			continue
		}
		if err := m.apply(ctx, tx, schema); err != nil {
			return fmt.Errorf("migrate %s to %s: %w", schema, m.version, err)
		}
		_, err = tx.Exec(ctx,
			"INSERT INTO "+ident(schema)+".migration_info (major, minor, patch) VALUES ($1, $2, $3)",
			v.Major(), v.Minor(), v.Patch())
		if err != nil {
			return fmt.Errorf("record migration %s in %s: %w", m.version, schema, err)
		}
	}

	return tx.Commit(ctx)
}

// appliedVersion returns the highest version recorded in migration_info,
// or 0.0.0 for a fresh namespace.
func appliedVersion(ctx context.Context, tx pgx.Tx, schema string) (*semver.Version, error) {
	rows, err := tx.Query(ctx, "SELECT major, minor, patch FROM "+ident(schema)+".migration_info")
	if err != nil {
		return nil, fmt.Errorf("read migration_info in %s: %w", schema, err)
	}
	defer rows.Close()

	current := semver.MustParse("0.0.0")
	for rows.Next() {
		var major, minor, patch uint64
		if err := rows.Scan(&major, &minor, &patch); err != nil {
			return nil, fmt.Errorf("scan migration_info: %w", err)
		}
		v := semver.New(major, minor, patch, "", "")
		if v.GreaterThan(current) {
			current = v
		}
	}
	return current, rows.Err()
}

func migrateBaseTables(ctx context.Context, tx pgx.Tx, schema string) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + ident(schema) + ".devices (" +
			" id TEXT PRIMARY KEY," +
			" group_name TEXT," +
			" revision UUID NOT NULL," +
			" created_at TIMESTAMPTZ NOT NULL DEFAULT now()," +
			" updated_at TIMESTAMPTZ NOT NULL DEFAULT now())",
		"CREATE TABLE IF NOT EXISTS " + ident(schema) + ".attributes (" +
			" device_id TEXT NOT NULL REFERENCES " + ident(schema) + ".devices (id) ON DELETE CASCADE," +
			" scope TEXT NOT NULL," +
			" name TEXT NOT NULL," +
			" description TEXT," +
			" value_str TEXT," +
			" value_num DOUBLE PRECISION," +
			" value_strs TEXT[]," +
			" value_nums DOUBLE PRECISION[]," +
			" ord BIGINT GENERATED ALWAYS AS IDENTITY," +
			" PRIMARY KEY (device_id, scope, name))",
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func migrateAttributeIndexes(ctx context.Context, tx pgx.Tx, schema string) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS attributes_scope_name_value_idx ON " +
			ident(schema) + ".attributes (scope, name, value_str)",
		"CREATE INDEX IF NOT EXISTS attributes_scope_name_num_idx ON " +
			ident(schema) + ".attributes (scope, name, value_num)",
		"CREATE INDEX IF NOT EXISTS devices_group_name_idx ON " +
			ident(schema) + ".devices (group_name) WHERE group_name IS NOT NULL",
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
