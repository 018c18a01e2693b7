// Package migrations applies the embedded PostgreSQL schema.
package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"gostamp/internal"
)

//go:embed sql/*.sql
var embedded embed.FS

const schemaTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		checksum TEXT NOT NULL,
		applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`

// Migrator handles database schema migrations
type Migrator struct {
	db     *sqlx.DB
	files  fs.FS
	logger *internal.Logger
}

// NewMigrator creates a migrator over the embedded schema files
func NewMigrator(db *sqlx.DB, logger *internal.Logger) *Migrator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Migrator{db: db, files: embedded, logger: logger}
}

// MigrationFile is one versioned schema file
type MigrationFile struct {
	Version  string
	Name     string
	Path     string
	Checksum string
	SQL      string
}

// MigrationStatus pairs a migration with whether it has been applied
type MigrationStatus struct {
	Version string
	Name    string
	Applied bool
}

// Up executes all pending migrations, each in its own transaction
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if _, err := m.db.ExecContext(ctx, schemaTable); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := Files(m.files)
	if err != nil {
		return 0, fmt.Errorf("failed to find migration files: %w", err)
	}

	count := 0
	for _, file := range files {
		if checksum, ok := applied[file.Version]; ok {
			if checksum != file.Checksum {
				m.logger.Warn("migration %s changed after it was applied", file.Version)
			}
			continue
		}
		if err := m.apply(ctx, file); err != nil {
			return count, fmt.Errorf("failed to apply migration %s: %w", file.Version, err)
		}
		m.logger.Info("applied migration %s_%s", file.Version, file.Name)
		count++
	}
	return count, nil
}

// Down removes the record of the most recent migration. Schema files are
// forward-only, so the tables themselves are left in place.
func (m *Migrator) Down(ctx context.Context) (string, error) {
	var version string
	err := m.db.GetContext(ctx, &version, `
		SELECT version FROM schema_migrations
		ORDER BY applied_at DESC, version DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("no migrations to roll back")
		}
		return "", fmt.Errorf("failed to get last migration: %w", err)
	}

	if _, err := m.db.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
		return "", fmt.Errorf("failed to remove migration record: %w", err)
	}
	m.logger.Info("unrecorded migration %s", version)
	return version, nil
}

// Status reports every known migration and whether it is applied
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if _, err := m.db.ExecContext(ctx, schemaTable); err != nil {
		return nil, fmt.Errorf("failed to ensure migrations table: %w", err)
	}
	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	files, err := Files(m.files)
	if err != nil {
		return nil, err
	}

	status := make([]MigrationStatus, len(files))
	for i, file := range files {
		_, ok := applied[file.Version]
		status[i] = MigrationStatus{Version: file.Version, Name: file.Name, Applied: ok}
	}
	return status, nil
}

func (m *Migrator) appliedMigrations(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Version  string `db:"version"`
		Checksum string `db:"checksum"`
	}
	if err := m.db.SelectContext(ctx, &rows, "SELECT version, checksum FROM schema_migrations"); err != nil {
		return nil, err
	}
	applied := make(map[string]string, len(rows))
	for _, row := range rows {
		applied[row.Version] = row.Checksum
	}
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, file MigrationFile) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, file.SQL); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, checksum) VALUES ($1, $2)",
		file.Version, file.Checksum); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

// Files parses NNN_name.sql files under sql/ sorted by version
func Files(fsys fs.FS) ([]MigrationFile, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, err
	}

	var files []MigrationFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, name, ok := strings.Cut(strings.TrimSuffix(entry.Name(), ".sql"), "_")
		if !ok || version == "" {
			continue
		}
		p := path.Join("sql", entry.Name())
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, err
		}
		files = append(files, MigrationFile{
			Version:  version,
			Name:     name,
			Path:     p,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(data)),
			SQL:      string(data),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})
	return files, nil
}

// Embedded returns the migration files compiled into the binary
func Embedded() ([]MigrationFile, error) {
	return Files(embedded)
}
