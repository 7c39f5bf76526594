package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pitch-engagement-api/internal/models"
	"github.com/noah-isme/pitch-engagement-api/pkg/config"
	"github.com/noah-isme/pitch-engagement-api/pkg/database"
)

func newTestExecutor(t *testing.T) database.Executor {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{
		Driver:            config.DriverSQLite,
		SQLitePath:        filepath.Join(t.TempDir(), "pitches.db"),
		SQLiteBusyTimeout: 5 * time.Second,
		MaxOpenConns:      8,
	}, database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.ApplySchema(context.Background(), db))
	return db
}

type seed struct {
	title, name, company, summary string
	status                        models.PitchStatus
	minutesAgo                    int
}

var seedCounter int

func seedPitch(t *testing.T, ex database.Executor, s seed) int64 {
	t.Helper()
	if s.status == "" {
		s.status = models.PitchStatusPublished
	}
	seedCounter++
	res, err := ex.Execute(context.Background(),
		`INSERT INTO pitches (title, name, company, summary, status, share_token, created_date)
         VALUES (?, ?, ?, ?, ?, ?, datetime('now', ?))`,
		s.title, s.name, s.company, s.summary, s.status,
		fmt.Sprintf("token-%d-%d", time.Now().UnixNano(), seedCounter),
		fmt.Sprintf("-%d minutes", s.minutesAgo))
	require.NoError(t, err)
	require.NotNil(t, res.InsertedID)
	return *res.InsertedID
}
