package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/noah-isme/pitch-engagement-api/pkg/config"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
)

// SQLite is the embedded backend. It runs in WAL mode so readers never wait on the
// single writer, and opens write transactions with BEGIN IMMEDIATE so writers queue
// on the busy timeout instead of failing on a stale snapshot.
type SQLite struct {
	base
	db *sqlx.DB
}

// NewSQLite opens the database file named by cfg.SQLitePath, creating its directory.
func NewSQLite(cfg config.DatabaseConfig, opts Options) (*SQLite, error) {
	if dir := filepath.Dir(cfg.SQLitePath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", cfg.SQLiteDSN()+"&_txlock=immediate")
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, translateError(err)
	}

	return WrapSQLite(db, opts), nil
}

// WrapSQLite adapts an already opened handle.
func WrapSQLite(db *sqlx.DB, opts Options) *SQLite {
	return &SQLite{base: base{run: db, dialect: SQLiteDialect(), opts: opts.withDefaults()}, db: db}
}

// Execute runs a write. Insert identifiers come straight from the driver.
func (s *SQLite) Execute(ctx context.Context, query string, args ...interface{}) (ExecResult, error) {
	return sqliteExecute(ctx, &s.base, query, args...)
}

// WithTransaction runs fn inside one transaction, rolling back on error or panic.
func (s *SQLite) WithTransaction(ctx context.Context, fn func(tx Executor) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return translateError(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqliteTx{base: base{run: tx, dialect: s.dialect, opts: s.opts}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.opts.Logger.Error("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateError(err)
	}
	return nil
}

// Ping verifies the database file is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return translateError(s.db.PingContext(ctx))
}

// Close releases the handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations.
func (s *SQLite) DB() *sqlx.DB {
	return s.db
}

type sqliteTx struct {
	base
}

func (t *sqliteTx) Execute(ctx context.Context, query string, args ...interface{}) (ExecResult, error) {
	return sqliteExecute(ctx, &t.base, query, args...)
}

func (t *sqliteTx) WithTransaction(context.Context, func(tx Executor) error) error {
	return appErrors.Clone(appErrors.ErrUnsupported, "nested transactions are not supported")
}

func sqliteExecute(ctx context.Context, b *base, query string, args ...interface{}) (ExecResult, error) {
	res, err := b.exec(ctx, query, args...)
	if err != nil {
		return ExecResult{}, err
	}
	out := ExecResult{Changes: rowsAffected(res)}
	if isInsert(query) {
		id, err := res.LastInsertId()
		if err != nil {
			return ExecResult{}, fmt.Errorf("last insert id: %w", err)
		}
		out.InsertedID = &id
	}
	return out, nil
}
