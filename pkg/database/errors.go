package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
)

// translateError maps driver failures onto the error taxonomy. The driver error stays
// reachable through errors.Unwrap. Anything unrecognised is returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			return appErrors.WrapAs(appErrors.ErrConstraint, err, "")
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr:
			return appErrors.WrapAs(appErrors.ErrConnection, err, "")
		case sqlite3.ErrError:
			return appErrors.WrapAs(appErrors.ErrQuerySyntax, err, "")
		}
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23":
			return appErrors.WrapAs(appErrors.ErrConstraint, err, "")
		case "22":
			// data exception: a filter value the column type cannot hold
			return appErrors.WrapAs(appErrors.ErrValidation, err, "")
		case "08", "53", "57":
			return appErrors.WrapAs(appErrors.ErrConnection, err, "")
		case "42":
			return appErrors.WrapAs(appErrors.ErrQuerySyntax, err, "")
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return appErrors.WrapAs(appErrors.ErrConnection, err, "")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return appErrors.WrapAs(appErrors.ErrConnection, err, "")
	}
	return err
}
