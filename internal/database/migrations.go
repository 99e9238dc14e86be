package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationManager manages database migrations
type MigrationManager struct {
	db  *sqlx.DB
	fs  fs.FS
	log *zap.Logger
}

// NewMigrationManager creates a migration manager over the embedded migrations
func NewMigrationManager(db *sqlx.DB, log *zap.Logger) *MigrationManager {
	if log == nil {
		log = zap.NewNop()
	}
	sub, _ := fs.Sub(migrationFiles, "migrations")
	return &MigrationManager{db: db, fs: sub, log: log}
}

// InitMigrationsTable creates the migrations tracking table
func (m *MigrationManager) InitMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns the set of applied migration versions
func (m *MigrationManager) GetAppliedMigrations(ctx context.Context) (map[int]bool, error) {
	var versions []int
	if err := m.db.SelectContext(ctx, &versions, "SELECT version FROM migrations ORDER BY version"); err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}

	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// LoadMigrations loads the migration files sorted by version
func (m *MigrationManager) LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		// Parse version from filename (e.g., "001_create_trips.sql")
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			m.log.Warn("skipping migration file with invalid name", zap.String("file", entry.Name()))
			continue
		}

		content, err := fs.ReadFile(m.fs, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    strings.TrimSuffix(entry.Name(), ".sql"),
			SQL:     string(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// ApplyMigration applies a single migration and records it
func (m *MigrationManager) ApplyMigration(ctx context.Context, migration Migration) error {
	err := Transaction(ctx, m.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}
		record := tx.Rebind("INSERT INTO migrations (version, name) VALUES (?, ?)")
		if _, err := tx.ExecContext(ctx, record, migration.Version, migration.Name); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.log.Info("applied migration", zap.Int("version", migration.Version), zap.String("name", migration.Name))
	return nil
}

// RunMigrations runs all pending migrations
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	if err := m.InitMigrationsTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	migrations, err := m.LoadMigrations()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			m.log.Debug("skipping applied migration", zap.Int("version", migration.Version))
			continue
		}
		if err := m.ApplyMigration(ctx, migration); err != nil {
			return err
		}
	}

	m.log.Info("all migrations applied")
	return nil
}
