package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/pitch-engagement-api/pkg/config"
)

func TestMigrateSQLiteIsRepeatable(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:            config.DriverSQLite,
		SQLitePath:        filepath.Join(t.TempDir(), "migrate.db"),
		SQLiteBusyTimeout: 5 * time.Second,
		MaxOpenConns:      2,
	}

	require.NoError(t, Migrate(cfg, zap.NewNop()))
	require.NoError(t, Migrate(cfg, zap.NewNop()))

	m, err := NewMigrator(cfg, nil)
	require.NoError(t, err)
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)
	assert.False(t, dirty)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := NewSQLite(cfg, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	id := insertPitch(t, db, "Migrated", "tok-migrated")
	_, err = db.Execute(context.Background(),
		"INSERT INTO pitch_views (pitch_id, anonymous_visitor_id, session_id) VALUES (?, ?, ?)", id, "v", "s")
	require.NoError(t, err)
}

func TestMigratorDownRemovesSchema(t *testing.T) {
	cfg := config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "down.db"),
	}
	m, err := NewMigrator(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	require.NoError(t, m.Up())
	require.NoError(t, m.Down())
	_, _, err = m.Version()
	assert.ErrorIs(t, err, migrate.ErrNilVersion)
}

func TestNewMigratorRejectsUnknownDriver(t *testing.T) {
	_, err := NewMigrator(config.DatabaseConfig{Driver: "mysql"}, nil)
	assert.Error(t, err)
}
