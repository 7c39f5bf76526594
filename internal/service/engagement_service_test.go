package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/pitch-engagement-api/internal/models"
	"github.com/noah-isme/pitch-engagement-api/internal/repository"
	"github.com/noah-isme/pitch-engagement-api/pkg/config"
	"github.com/noah-isme/pitch-engagement-api/pkg/database"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
)

type stubCacheRepo struct {
	mu       sync.Mutex
	store    map[string][]byte
	deleted  []string
	patterns []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.store, k)
		s.deleted = append(s.deleted, k)
	}
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patterns = append(s.patterns, pattern)
	return nil
}

type fakeViewRepo struct {
	inserted   []models.PitchView
	insertErr  error
	stats      models.ViewStats
	statsCalls int
	daysSeen   []int
	limitSeen  int
	hoursSeen  int
	returning  bool
}

func (f *fakeViewRepo) Insert(_ context.Context, view *models.PitchView) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.inserted = append(f.inserted, *view)
	return int64(len(f.inserted)), nil
}

func (f *fakeViewRepo) FindByID(_ context.Context, id int64) (*models.PitchView, error) {
	view := f.inserted[id-1]
	view.ID = id
	return &view, nil
}

func (f *fakeViewRepo) Stats(context.Context, int64) (models.ViewStats, error) {
	f.statsCalls++
	return f.stats, nil
}

func (f *fakeViewRepo) DailyViews(_ context.Context, _ int64, days int) ([]models.DailyViews, error) {
	f.daysSeen = append(f.daysSeen, days)
	return []models.DailyViews{{Date: "2024-03-05", Views: 2}}, nil
}

func (f *fakeViewRepo) HourlyDistribution(context.Context, int64, int) ([]models.HourlyViews, error) {
	return []models.HourlyViews{{Hour: 9, Views: 2}}, nil
}

func (f *fakeViewRepo) TopReferrers(context.Context, int64, int) ([]models.ReferrerStat, error) {
	return []models.ReferrerStat{{Referrer: models.DirectReferrer, Views: 2}}, nil
}

func (f *fakeViewRepo) TopLocations(context.Context, int64, int) ([]models.LocationStat, error) {
	return []models.LocationStat{{IPPrefix: "10.0", Views: 2}}, nil
}

func (f *fakeViewRepo) Recent(_ context.Context, limit int) ([]models.RecentView, error) {
	f.limitSeen = limit
	return nil, nil
}

func (f *fakeViewRepo) HasVisitorSince(_ context.Context, _ int64, _ string, hours int) (bool, error) {
	f.hoursSeen = hours
	return f.returning, nil
}

type fakeCounter struct {
	calls []int64
	err   error
}

func (f *fakeCounter) RecordView(_ context.Context, id int64) error {
	f.calls = append(f.calls, id)
	return f.err
}

func TestVisitorAndSessionIdentifiers(t *testing.T) {
	rc := models.RequestContext{UserAgent: "Mozilla/5.0", IP: "203.0.113.7", AcceptLanguage: "en-US"}

	visitor := AnonymousVisitorID(rc)
	assert.Len(t, visitor, 16)
	assert.Equal(t, visitor, AnonymousVisitorID(rc))
	assert.NotEqual(t, visitor, AnonymousVisitorID(models.RequestContext{UserAgent: "Mozilla/5.0", IP: "203.0.113.8", AcceptLanguage: "en-US"}))

	at := time.UnixMilli(1_700_000_000_000)
	session := SessionID(rc, at)
	assert.Len(t, session, 12)
	assert.Equal(t, session, SessionID(rc, at))
	assert.NotEqual(t, session, SessionID(rc, at.Add(time.Millisecond)))
}

func TestTrackViewStoresEventAndInvalidatesStats(t *testing.T) {
	views := &fakeViewRepo{returning: true}
	counter := &fakeCounter{}
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	metrics := NewMetricsService()
	svc := NewEngagementService(views, counter, cache, metrics, zap.NewNop())

	rc := models.RequestContext{UserAgent: "UA", IP: "10.0.0.1", Referrer: "https://x.com", AcceptLanguage: "en"}
	view, err := svc.TrackView(context.Background(), 7, rc)
	require.NoError(t, err)

	assert.EqualValues(t, 1, view.ID)
	assert.EqualValues(t, 7, view.PitchID)
	assert.Equal(t, AnonymousVisitorID(rc), view.AnonymousVisitorID)
	assert.Len(t, view.SessionID, 12)
	assert.Equal(t, "https://x.com", view.Referrer)
	assert.Equal(t, []int64{7}, counter.calls)
	assert.Equal(t, []string{"engagement:stats:7"}, cacheRepo.deleted)
	assert.EqualValues(t, 1, metrics.Snapshot().ViewsTracked)
}

func TestTrackViewWithoutTransactionsCountsFirst(t *testing.T) {
	views := &fakeViewRepo{}
	counter := &fakeCounter{err: appErrors.Clone(appErrors.ErrConnection, "down")}
	svc := NewEngagementService(views, counter, nil, nil, nil)

	_, err := svc.TrackView(context.Background(), 1, models.RequestContext{})
	assert.ErrorIs(t, err, appErrors.ErrConnection)
	assert.Equal(t, []int64{1}, counter.calls)
	assert.Empty(t, views.inserted)

	views = &fakeViewRepo{insertErr: appErrors.Clone(appErrors.ErrConstraint, "fk")}
	counter = &fakeCounter{}
	svc = NewEngagementService(views, counter, nil, nil, nil)
	_, err = svc.TrackView(context.Background(), 1, models.RequestContext{})
	assert.ErrorIs(t, err, appErrors.ErrConstraint)
	assert.Equal(t, []int64{1}, counter.calls)
}

func TestTrackViewTransactionPassesRepositories(t *testing.T) {
	outer := &fakeViewRepo{}
	inner := &fakeViewRepo{}
	innerCounter := &fakeCounter{}
	runs := 0
	svc := NewEngagementService(outer, &fakeCounter{}, nil, nil, nil).
		WithTransactions(func(ctx context.Context, fn func(ViewRepository, ViewCounter) error) error {
			runs++
			return fn(inner, innerCounter)
		})

	view, err := svc.TrackView(context.Background(), 3, models.RequestContext{UserAgent: "UA"})
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
	assert.EqualValues(t, 3, view.PitchID)
	assert.Len(t, inner.inserted, 1)
	assert.Empty(t, outer.inserted)
	assert.Equal(t, []int64{3}, innerCounter.calls)
}

func newEngagementSQLite(t *testing.T) *database.SQLite {
	t.Helper()
	db, err := database.NewSQLite(config.DatabaseConfig{
		Driver:            config.DriverSQLite,
		SQLitePath:        filepath.Join(t.TempDir(), "engagement.db"),
		SQLiteBusyTimeout: 10 * time.Second,
		MaxOpenConns:      8,
	}, database.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.ApplySchema(context.Background(), db))
	return db
}

func TestExecutorTransactionsSkipsPostgres(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	pg := database.WrapPostgres(sqlx.NewDb(sqlDB, "postgres"), database.Options{})
	assert.Nil(t, ExecutorTransactions(pg))
	assert.NotNil(t, ExecutorTransactions(newEngagementSQLite(t)))
}

func TestTrackViewRollsBackEventWhenCounterFails(t *testing.T) {
	db := newEngagementSQLite(t)
	ctx := context.Background()
	pitches := repository.NewPitchRepository(db)

	res, err := db.Execute(ctx, "INSERT INTO pitches (title, status, share_token) VALUES (?, ?, ?)", "Deck", "published", "tok")
	require.NoError(t, err)
	pitchID := *res.InsertedID

	failing := &fakeCounter{err: appErrors.Clone(appErrors.ErrConnection, "busy")}
	svc := NewEngagementService(repository.NewViewRepository(db), pitches, nil, nil, nil).
		WithTransactions(func(ctx context.Context, fn func(ViewRepository, ViewCounter) error) error {
			return db.WithTransaction(ctx, func(tx database.Executor) error {
				return fn(repository.NewViewRepository(tx), failing)
			})
		})

	_, err = svc.TrackView(ctx, pitchID, models.RequestContext{UserAgent: "UA", IP: "10.0.0.1"})
	assert.ErrorIs(t, err, appErrors.ErrConnection)

	var events int
	_, err = db.QueryOne(ctx, &events, "SELECT COUNT(*) FROM pitch_views WHERE pitch_id = ?", pitchID)
	require.NoError(t, err)
	assert.Zero(t, events)

	pitch, err := pitches.FindByID(ctx, pitchID)
	require.NoError(t, err)
	assert.Zero(t, pitch.ViewCount)
	assert.Equal(t, models.PitchStatusPublished, pitch.Status)
}

func TestGetViewStatsUsesCache(t *testing.T) {
	views := &fakeViewRepo{stats: models.ViewStats{TotalViews: 3, UniqueViewers: 2}}
	cache := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewEngagementService(views, &fakeCounter{}, cache, nil, zap.NewNop())
	ctx := context.Background()

	stats, hit, err := svc.GetViewStats(ctx, 1)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, stats.TotalViews)

	cached, hit, err := svc.GetViewStats(ctx, 1)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, stats, cached)
	assert.Equal(t, 1, views.statsCalls)
}

func TestEngagementBounds(t *testing.T) {
	views := &fakeViewRepo{}
	svc := NewEngagementService(views, &fakeCounter{}, nil, nil, nil)
	ctx := context.Background()

	for _, days := range []int{0, -4, 7, 9999} {
		out, err := svc.GetDetailedAnalytics(ctx, 1, days)
		require.NoError(t, err)
		assert.Len(t, out.DailyViews, 1)
		assert.Equal(t, models.DirectReferrer, out.ReferrerStats[0].Referrer)
	}
	assert.Equal(t, []int{30, 30, 7, 365}, views.daysSeen)

	_, err := svc.GetRecentViews(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, views.limitSeen)
	_, err = svc.GetRecentViews(ctx, 500)
	require.NoError(t, err)
	assert.Equal(t, 100, views.limitSeen)

	_, err = svc.IsReturningViewer(ctx, 1, "v", 0)
	require.NoError(t, err)
	assert.Equal(t, 24, views.hoursSeen)
}

func TestTrackViewConcurrentAgainstSQLite(t *testing.T) {
	db := newEngagementSQLite(t)
	ctx := context.Background()

	pitches := repository.NewPitchRepository(db)
	views := repository.NewViewRepository(db)
	svc := NewEngagementService(views, pitches, nil, nil, nil).WithTransactions(ExecutorTransactions(db))
	require.NotNil(t, svc.tx)

	_, err := db.Execute(ctx, "INSERT INTO pitches (title, status, share_token) VALUES (?, ?, ?)", "Deck", "published", "tok")
	require.NoError(t, err)
	pitch, err := pitches.FindByShareToken(ctx, "tok")
	require.NoError(t, err)

	first, err := svc.TrackView(ctx, pitch.ID, models.RequestContext{UserAgent: "UA", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.False(t, first.ViewedAt.IsZero())
	after, err := pitches.FindByID(ctx, pitch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PitchStatusViewed, after.Status)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TrackView(ctx, pitch.ID, models.RequestContext{UserAgent: "UA", IP: "10.0.0.2"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	after, err = pitches.FindByID(ctx, pitch.ID)
	require.NoError(t, err)
	assert.EqualValues(t, n+1, after.ViewCount)
	assert.Equal(t, models.PitchStatusMultipleViews, after.Status)

	stats, _, err := svc.GetViewStats(ctx, pitch.ID)
	require.NoError(t, err)
	assert.Equal(t, n+1, stats.TotalViews)
	assert.Equal(t, 2, stats.UniqueViewers)

	returning, err := svc.IsReturningViewer(ctx, pitch.ID, AnonymousVisitorID(models.RequestContext{UserAgent: "UA", IP: "10.0.0.2"}), 1)
	require.NoError(t, err)
	assert.True(t, returning)

	recent, err := svc.GetRecentViews(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
	assert.Equal(t, "Deck", recent[0].PitchTitle)

	_, err = svc.TrackView(ctx, 424242, models.RequestContext{})
	assert.ErrorIs(t, err, appErrors.ErrConstraint)
}
