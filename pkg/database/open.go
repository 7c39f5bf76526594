package database

import (
	"fmt"

	"github.com/noah-isme/pitch-engagement-api/pkg/config"
)

// Open builds the executor selected by cfg.Driver. This is the only place the
// backend choice is made.
func Open(cfg config.DatabaseConfig, opts Options) (Conn, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return NewSQLite(cfg, opts)
	case config.DriverPostgres:
		return NewPostgres(cfg, opts)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
