package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers "sqlite", which sqlx does not know as a ? driver
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// sqlitePragmas are applied by the driver to every pooled connection
var sqlitePragmas = []string{"journal_mode(WAL)", "foreign_keys(1)", "busy_timeout(5000)"}

// Config holds database configuration
type Config struct {
	Driver string
	DSN    string
}

// Open connects to the configured database
func Open(cfg Config, log *zap.Logger) (*sqlx.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dsn := cfg.DSN
	switch cfg.Driver {
	case DriverSQLite:
		path, _, _ := strings.Cut(strings.TrimPrefix(cfg.DSN, "file:"), "?")
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = sqliteDSN(cfg.DSN)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("database initialized", zap.String("driver", cfg.Driver))
	return db, nil
}

// sqliteDSN appends the connection pragmas as _pragma query parameters,
// keeping any parameters already present in dsn.
func sqliteDSN(dsn string) string {
	params := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		params[i] = "_pragma=" + p
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Transaction executes a function within a database transaction
func Transaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
