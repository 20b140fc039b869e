package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kdimtricp/movierank/internal/logging"
)

// Migration is one NNN_name.sql file. Version is the NNN prefix.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// Migrator applies numbered SQL files to Postgres and records each applied
// version in schema_migrations. SQLite schemas are created by NewDB instead.
type Migrator struct {
	db     *sql.DB
	dbType string
}

func NewMigrator(db *sql.DB, dbType string) *Migrator {
	return &Migrator{db: db, dbType: dbType}
}

func (m *Migrator) tracked() bool {
	return m.dbType == "postgres"
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := m.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	versions := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		versions[v] = true
	}
	return versions, rows.Err()
}

// LoadMigrations reads NNN_name.sql files from dir, sorted by version.
func LoadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			logging.Warn().Str("file", name).Msg("Skipping migration without NNN_ prefix")
			continue
		}

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(body)})
	}

	slices.SortFunc(migrations, func(a, b Migration) int {
		return strings.Compare(a.Version, b.Version)
	})
	return migrations, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", mig.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", mig.Name, err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", mig.Version); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", mig.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", mig.Name, err)
	}

	logging.Info().Str("migration", mig.Name).Msg("Applied migration")
	return nil
}

// Status lists every migration file in dir along with the applied versions.
func (m *Migrator) Status(ctx context.Context, dir string) ([]Migration, map[string]bool, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return nil, nil, err
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, nil, err
	}
	migrations, err := LoadMigrations(dir)
	if err != nil {
		return nil, nil, err
	}
	return migrations, applied, nil
}

// Run applies every pending migration in version order. It is a no-op for
// databases that are not tracked.
func (m *Migrator) Run(ctx context.Context, dir string) error {
	if !m.tracked() {
		logging.Debug().Str("db", m.dbType).Msg("Skipping migrations for untracked database")
		return nil
	}

	migrations, applied, err := m.Status(ctx, dir)
	if err != nil {
		return err
	}

	var count int
	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return err
		}
		count++
	}

	logging.Info().Int("applied", count).Int("total", len(migrations)).Msg("Migrations up to date")
	return nil
}
