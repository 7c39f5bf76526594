package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Unit is a calendar unit accepted by Dialect.Ago.
type Unit string

const (
	Hours Unit = "hours"
	Days  Unit = "days"
)

// Dialect renders the few SQL fragments that differ between the embedded and
// networked backends. Statements elsewhere are written once with `?` placeholders.
// Column arguments must be trusted identifiers; they are spliced verbatim.
type Dialect interface {
	Name() string
	// Rebind rewrites canonical `?` placeholders into the backend's native syntax.
	Rebind(query string) string
	// Ago returns an expression for "backend now minus n units" and its bind argument.
	Ago(n int, unit Unit) (string, interface{})
	StartOfToday() string
	DayBucket(column string) string
	HourBucket(column string) string
	// IPv4Prefix keeps the first two octets of an address, or 'unknown' when the value is not dotted.
	IPv4Prefix(column string) string
}

// Dialect names.
const (
	SQLiteName   = "sqlite"
	PostgresName = "postgres"
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return SQLiteName }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) Ago(n int, unit Unit) (string, interface{}) {
	return "datetime('now', ?)", fmt.Sprintf("-%d %s", n, unit)
}

func (sqliteDialect) StartOfToday() string { return "date('now')" }

func (sqliteDialect) DayBucket(column string) string {
	return fmt.Sprintf("date(%s)", column)
}

func (sqliteDialect) HourBucket(column string) string {
	return fmt.Sprintf("CAST(strftime('%%H', %s) AS INTEGER)", column)
}

func (sqliteDialect) IPv4Prefix(column string) string {
	return fmt.Sprintf("CASE WHEN %[1]s LIKE '%%.%%.%%' THEN substr(%[1]s, 1, instr(%[1]s, '.') + instr(substr(%[1]s, instr(%[1]s, '.') + 1), '.') - 1) ELSE 'unknown' END", column)
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return PostgresName }

func (postgresDialect) Rebind(query string) string { return sqlx.Rebind(sqlx.DOLLAR, query) }

func (postgresDialect) Ago(n int, unit Unit) (string, interface{}) {
	return "NOW() - CAST(? AS INTERVAL)", fmt.Sprintf("%d %s", n, unit)
}

func (postgresDialect) StartOfToday() string { return "CURRENT_DATE" }

func (postgresDialect) DayBucket(column string) string {
	return fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM-DD')", column)
}

func (postgresDialect) HourBucket(column string) string {
	return fmt.Sprintf("CAST(EXTRACT(HOUR FROM %s) AS INTEGER)", column)
}

func (postgresDialect) IPv4Prefix(column string) string {
	return fmt.Sprintf("CASE WHEN %[1]s LIKE '%%.%%.%%' THEN SPLIT_PART(%[1]s, '.', 1) || '.' || SPLIT_PART(%[1]s, '.', 2) ELSE 'unknown' END", column)
}

// SQLiteDialect returns the embedded backend dialect.
func SQLiteDialect() Dialect { return sqliteDialect{} }

// PostgresDialect returns the networked backend dialect.
func PostgresDialect() Dialect { return postgresDialect{} }
