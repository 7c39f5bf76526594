package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/noah-isme/pitch-engagement-api/pkg/config"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

const migrationsTable = "schema_migrations"

// Migrator applies the embedded schema migrations for the configured backend.
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// NewMigrator opens a dedicated handle for migrations. golang-migrate closes the
// handle it is given, so the application pool is never shared with it.
func NewMigrator(cfg config.DatabaseConfig, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		driverName string
		dsn        string
		dir        string
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		driverName, dsn, dir = "sqlite3", cfg.SQLiteDSN(), "migrations/sqlite"
	case config.DriverPostgres:
		driverName, dsn, dir = "postgres", cfg.PostgresDSN(), "migrations/postgres"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open migration handle: %w", err)
	}

	var instance migratedb.Driver
	if driverName == "sqlite3" {
		instance, err = sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: migrationsTable})
	} else {
		instance, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create %s migration driver: %w", driverName, err)
	}

	src, err := iofs.New(migrationFiles, dir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, instance)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// Up runs all pending migrations.
func (m *Migrator) Up() error {
	m.logger.Info("running database migrations")
	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("run migrations: %w", err)
	}
	m.logger.Info("migrations completed")
	return nil
}

// Down rolls back every migration.
func (m *Migrator) Down() error {
	m.logger.Warn("rolling back all migrations")
	if err := m.migrate.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", err)
	}
	return nil
}

// Version returns the current migration version.
func (m *Migrator) Version() (uint, bool, error) {
	return m.migrate.Version()
}

// Close releases the source and the dedicated handle.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}

// Migrate brings the schema up to date and releases the migrator.
func Migrate(cfg config.DatabaseConfig, logger *zap.Logger) error {
	m, err := NewMigrator(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil && logger != nil {
			logger.Warn("close migrator", zap.Error(err))
		}
	}()
	return m.Up()
}

// ApplySchema executes the embedded up migrations directly through ex without
// version tracking. Tests use it to build a fresh schema.
func ApplySchema(ctx context.Context, ex Executor) error {
	dir := "migrations/sqlite"
	if ex.Dialect().Name() == PostgresName {
		dir = "migrations/postgres"
	}

	entries, err := fs.ReadDir(migrationFiles, dir)
	if err != nil {
		return err
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrationFiles.ReadFile(path.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := ex.Execute(ctx, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}
