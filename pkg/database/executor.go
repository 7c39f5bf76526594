// Package database is the dialect adapter: it runs `?`-parameterised statements
// against either the embedded SQLite backend or the networked Postgres backend and
// normalises placeholders, row scanning, insert identifiers and errors.
package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ExecResult reports the outcome of a write. InsertedID is set only for INSERT statements.
type ExecResult struct {
	Changes    int64
	InsertedID *int64
}

// Executor is the single execution surface repositories depend on.
//
// Statements are written with `?` placeholders. INSERT statements must target a
// table whose primary key column is `id`. No call is retried.
type Executor interface {
	Dialect() Dialect
	// Query scans every row into dest, a pointer to a slice.
	Query(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	// QueryOne scans the first row into dest and reports whether a row existed.
	QueryOne(ctx context.Context, dest interface{}, query string, args ...interface{}) (bool, error)
	Execute(ctx context.Context, query string, args ...interface{}) (ExecResult, error)
	// WithTransaction runs fn atomically. Only the embedded backend supports it;
	// the networked backend returns ErrUnsupported without running fn.
	WithTransaction(ctx context.Context, fn func(tx Executor) error) error
}

// Conn is an Executor that owns a connection pool.
type Conn interface {
	Executor
	Ping(ctx context.Context) error
	Close() error
	DB() *sqlx.DB
}

// QueryObserver receives the duration of every statement, labelled by operation.
type QueryObserver func(label string, duration time.Duration)

// Options tunes logging and instrumentation of an executor.
type Options struct {
	Logger             *zap.Logger
	Observer           QueryObserver
	SlowQueryThreshold time.Duration
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.SlowQueryThreshold <= 0 {
		o.SlowQueryThreshold = 200 * time.Millisecond
	}
	return o
}

// runner is satisfied by both *sqlx.DB and *sqlx.Tx.
type runner interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

type base struct {
	run     runner
	dialect Dialect
	opts    Options
}

func (b *base) Dialect() Dialect {
	return b.dialect
}

func (b *base) Query(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	query = b.dialect.Rebind(query)
	defer b.observe("query", query, time.Now())
	if err := b.run.SelectContext(ctx, dest, query, args...); err != nil {
		return translateError(err)
	}
	return nil
}

func (b *base) QueryOne(ctx context.Context, dest interface{}, query string, args ...interface{}) (bool, error) {
	query = b.dialect.Rebind(query)
	defer b.observe("query_one", query, time.Now())
	if err := b.run.GetContext(ctx, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, translateError(err)
	}
	return true, nil
}

func (b *base) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	query = b.dialect.Rebind(query)
	defer b.observe("execute", query, time.Now())
	res, err := b.run.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	return res, nil
}

func (b *base) observe(label, query string, start time.Time) {
	duration := time.Since(start)
	if b.opts.Observer != nil {
		b.opts.Observer(b.dialect.Name()+"_"+label, duration)
	}
	if duration > b.opts.SlowQueryThreshold {
		b.opts.Logger.Warn("slow query",
			zap.String("dialect", b.dialect.Name()),
			zap.String("query", query),
			zap.Duration("duration", duration))
		return
	}
	b.opts.Logger.Debug("query executed",
		zap.String("dialect", b.dialect.Name()),
		zap.String("op", label),
		zap.Duration("duration", duration))
}

func isInsert(query string) bool {
	trimmed := strings.TrimSpace(query)
	return len(trimmed) >= 6 && strings.EqualFold(trimmed[:6], "INSERT")
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}
