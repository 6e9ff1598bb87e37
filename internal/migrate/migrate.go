// Package migrate applies the audit store's embedded schema migrations
// (internal/migrate/migrations/*.sql, the stage_attempts table and its
// evolutions) against the configured Postgres pool. It runs once at
// cmd/acp-seller startup, ahead of internal/audit.New, so the audit
// trail never writes to a column that hasn't been created yet.
package migrate

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var auditSchema embed.FS

const migrationsDir = "migrations"

// Run applies every not-yet-recorded migration in auditSchema, oldest
// version first, recording each applied version in schema_migrations so a
// later Run against the same database is a no-op. Each applied migration
// is logged at info; logger is required.
func Run(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	log := logger.With("component", "migrate")

	if err := ensureTrackingTable(ctx, pool); err != nil {
		return err
	}

	versions, err := pendingVersions(ctx, pool)
	if err != nil {
		return err
	}

	for _, version := range versions {
		if err := applyVersion(ctx, pool, version); err != nil {
			return err
		}
		log.Info("migration_applied", "version", version)
	}

	return nil
}

func ensureTrackingTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT        PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// pendingVersions returns the embedded migration versions (filenames minus
// their .sql suffix, sorted so numeric prefixes like 0001_, 0002_ apply in
// order) that schema_migrations does not yet record.
func pendingVersions(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	entries, err := auditSchema.ReadDir(migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	all := make([]string, 0, len(entries))
	for _, e := range entries {
		all = append(all, strings.TrimSuffix(e.Name(), ".sql"))
	}
	sort.Strings(all)

	pending := make([]string, 0, len(all))
	for _, version := range all {
		var applied bool
		err := pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)",
			version).Scan(&applied)
		if err != nil {
			return nil, fmt.Errorf("check migration %s: %w", version, err)
		}
		if !applied {
			pending = append(pending, version)
		}
	}
	return pending, nil
}

func applyVersion(ctx context.Context, pool *pgxpool.Pool, version string) error {
	sql, err := auditSchema.ReadFile(migrationsDir + "/" + version + ".sql")
	if err != nil {
		return fmt.Errorf("read migration %s: %w", version, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply migration %s: %w", version, err)
	}
	if _, err := pool.Exec(ctx,
		"INSERT INTO schema_migrations(version) VALUES($1)", version,
	); err != nil {
		return fmt.Errorf("record migration %s: %w", version, err)
	}
	return nil
}
