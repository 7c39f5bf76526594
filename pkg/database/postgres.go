package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/pitch-engagement-api/pkg/config"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
)

// Postgres is the networked backend behind a bounded pool. database/sql acquires a
// connection per statement and releases it on every return path.
type Postgres struct {
	base
	db *sqlx.DB
}

// NewPostgres returns a configured PostgreSQL executor.
func NewPostgres(cfg config.DatabaseConfig, opts Options) (*Postgres, error) {
	db, err := sqlx.Open("postgres", cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, translateError(err)
	}

	return WrapPostgres(db, opts), nil
}

// WrapPostgres adapts an already opened handle.
func WrapPostgres(db *sqlx.DB, opts Options) *Postgres {
	return &Postgres{base: base{run: db, dialect: PostgresDialect(), opts: opts.withDefaults()}, db: db}
}

// Execute runs a write. INSERTs are issued with RETURNING id so the identifier comes
// from the same statement rather than a follow-up lookup.
func (p *Postgres) Execute(ctx context.Context, query string, args ...interface{}) (ExecResult, error) {
	if !isInsert(query) {
		res, err := p.exec(ctx, query, args...)
		if err != nil {
			return ExecResult{}, err
		}
		return ExecResult{Changes: rowsAffected(res)}, nil
	}

	query = p.dialect.Rebind(query + " RETURNING id")
	defer p.observe("execute", query, time.Now())
	var id int64
	if err := p.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return ExecResult{}, translateError(err)
	}
	return ExecResult{Changes: 1, InsertedID: &id}, nil
}

// WithTransaction is not offered on the pooled backend.
func (p *Postgres) WithTransaction(context.Context, func(tx Executor) error) error {
	return appErrors.Clone(appErrors.ErrUnsupported, "transactions are only supported on the embedded backend")
}

// Ping verifies the server is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return translateError(p.db.PingContext(ctx))
}

// Close drains the pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// DB exposes the underlying pool for migrations.
func (p *Postgres) DB() *sqlx.DB {
	return p.db
}
