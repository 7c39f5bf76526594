package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.Database.SQLiteBusyTimeout)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, time.Minute, cfg.Stats.CacheTTL)
	assert.False(t, cfg.Stats.CacheEnabled)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestLoadPostgresFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_SLOW_QUERY_THRESHOLD", "1s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, time.Second, cfg.Database.SlowQueryThreshold)
	assert.Contains(t, cfg.Database.PostgresDSN(), "host=db.internal")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestSQLiteDSN(t *testing.T) {
	cfg := DatabaseConfig{SQLitePath: "/tmp/p.db", SQLiteBusyTimeout: 2 * time.Second}
	assert.Equal(t, "file:/tmp/p.db?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=2000", cfg.SQLiteDSN())
}
