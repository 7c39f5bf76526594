package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pitch-engagement-api/internal/models"
	"github.com/noah-isme/pitch-engagement-api/internal/repository"
	"github.com/noah-isme/pitch-engagement-api/pkg/database"
)

// Window and page bounds for engagement queries.
const (
	DefaultAnalyticsDays   = 30
	MaxAnalyticsDays       = 365
	DefaultRecentViews     = 10
	MaxRecentViews         = 100
	DefaultReturningWithin = 24
)

// ViewRepository describes the event persistence required by EngagementService.
type ViewRepository interface {
	Insert(ctx context.Context, view *models.PitchView) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.PitchView, error)
	Stats(ctx context.Context, pitchID int64) (models.ViewStats, error)
	DailyViews(ctx context.Context, pitchID int64, days int) ([]models.DailyViews, error)
	HourlyDistribution(ctx context.Context, pitchID int64, days int) ([]models.HourlyViews, error)
	TopReferrers(ctx context.Context, pitchID int64, days int) ([]models.ReferrerStat, error)
	TopLocations(ctx context.Context, pitchID int64, days int) ([]models.LocationStat, error)
	Recent(ctx context.Context, limit int) ([]models.RecentView, error)
	HasVisitorSince(ctx context.Context, pitchID int64, visitorID string, hours int) (bool, error)
}

// ViewCounter advances a pitch's counter and status after a view is stored.
type ViewCounter interface {
	RecordView(ctx context.Context, id int64) error
}

// TxRunner runs fn with repositories bound to a single transaction.
type TxRunner func(ctx context.Context, fn func(views ViewRepository, pitches ViewCounter) error) error

// ExecutorTransactions returns a TxRunner over ex, or nil when the backend has no
// transaction support.
func ExecutorTransactions(ex database.Executor) TxRunner {
	if ex.Dialect().Name() == database.PostgresName {
		return nil
	}
	return func(ctx context.Context, fn func(views ViewRepository, pitches ViewCounter) error) error {
		return ex.WithTransaction(ctx, func(tx database.Executor) error {
			return fn(repository.NewViewRepository(tx), repository.NewPitchRepository(tx))
		})
	}
}

// EngagementService records anonymised pitch views and answers statistics over them.
// It does not check that a pitch exists before tracking; callers resolve the pitch first.
//
// With a TxRunner the event insert and the counter update commit together. Without one
// (the networked backend) the counter is advanced first and the insert follows, so a
// failed insert leaves view_count one ahead of the event rows.
type EngagementService struct {
	views   ViewRepository
	pitches ViewCounter
	tx      TxRunner
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngagementService constructs an engagement service.
func NewEngagementService(views ViewRepository, pitches ViewCounter, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *EngagementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngagementService{views: views, pitches: pitches, cache: cache, metrics: metrics, logger: logger, now: time.Now}
}

// WithTransactions makes TrackView write through run. A nil run keeps the sequential path.
func (s *EngagementService) WithTransactions(run TxRunner) *EngagementService {
	s.tx = run
	return s
}

// TrackView stores one view of pitchID derived from rc, bumps the pitch counter and
// returns the stored event.
func (s *EngagementService) TrackView(ctx context.Context, pitchID int64, rc models.RequestContext) (*models.PitchView, error) {
	view := &models.PitchView{
		PitchID:            pitchID,
		AnonymousVisitorID: AnonymousVisitorID(rc),
		IPAddress:          rc.IP,
		UserAgent:          rc.UserAgent,
		Referrer:           rc.Referrer,
		SessionID:          SessionID(rc, s.now()),
	}

	returning, err := s.views.HasVisitorSince(ctx, pitchID, view.AnonymousVisitorID, DefaultReturningWithin)
	if err != nil {
		s.logger.Warn("returning viewer lookup failed", zap.Int64("pitch_id", pitchID), zap.Error(err))
	}

	var stored *models.PitchView
	if s.tx != nil {
		err = s.tx(ctx, func(views ViewRepository, pitches ViewCounter) error {
			id, err := views.Insert(ctx, view)
			if err != nil {
				return err
			}
			if err := pitches.RecordView(ctx, pitchID); err != nil {
				return err
			}
			stored, err = views.FindByID(ctx, id)
			return err
		})
	} else {
		stored, err = s.recordSequential(ctx, view)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, statsCacheKey(pitchID)); err != nil {
			s.logger.Warn("invalidate view stats", zap.Int64("pitch_id", pitchID), zap.Error(err))
		}
	}
	s.metrics.RecordViewTracked(returning)
	s.logger.Debug("pitch view tracked",
		zap.Int64("pitch_id", pitchID),
		zap.Int64("view_id", stored.ID),
		zap.Bool("returning", returning))
	return stored, nil
}

func (s *EngagementService) recordSequential(ctx context.Context, view *models.PitchView) (*models.PitchView, error) {
	if err := s.pitches.RecordView(ctx, view.PitchID); err != nil {
		return nil, err
	}
	id, err := s.views.Insert(ctx, view)
	if err != nil {
		s.logger.Error("view counted without event row", zap.Int64("pitch_id", view.PitchID), zap.Error(err))
		return nil, err
	}
	return s.views.FindByID(ctx, id)
}

// GetViewStats returns totals and windowed counts for a pitch. The boolean indicates
// whether the stats came from cache.
func (s *EngagementService) GetViewStats(ctx context.Context, pitchID int64) (models.ViewStats, bool, error) {
	key := statsCacheKey(pitchID)
	if s.cache != nil {
		var cached models.ViewStats
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, true, nil
		}
	}

	start := time.Now()
	stats, err := s.views.Stats(ctx, pitchID)
	if err != nil {
		return models.ViewStats{}, false, err
	}
	s.metrics.ObserveDBQuery("engagement_stats", time.Since(start))

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, 0); err != nil {
			s.logger.Warn("cache view stats", zap.Error(err))
		}
	}
	return stats, false, nil
}

// GetDetailedAnalytics breaks down the trailing days of views. days outside
// [1, MaxAnalyticsDays] falls back to the default or the maximum.
func (s *EngagementService) GetDetailedAnalytics(ctx context.Context, pitchID int64, days int) (models.DetailedAnalytics, error) {
	days = normalizeDays(days)
	out := models.DetailedAnalytics{Days: days}

	var err error
	if out.DailyViews, err = s.views.DailyViews(ctx, pitchID, days); err != nil {
		return models.DetailedAnalytics{}, err
	}
	if out.HourlyDistribution, err = s.views.HourlyDistribution(ctx, pitchID, days); err != nil {
		return models.DetailedAnalytics{}, err
	}
	if out.ViewerLocations, err = s.views.TopLocations(ctx, pitchID, days); err != nil {
		return models.DetailedAnalytics{}, err
	}
	if out.ReferrerStats, err = s.views.TopReferrers(ctx, pitchID, days); err != nil {
		return models.DetailedAnalytics{}, err
	}
	return out, nil
}

// GetRecentViews lists the latest views across all pitches.
func (s *EngagementService) GetRecentViews(ctx context.Context, limit int) ([]models.RecentView, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentViews
	case limit > MaxRecentViews:
		limit = MaxRecentViews
	}
	return s.views.Recent(ctx, limit)
}

// IsReturningViewer reports whether visitorID viewed the pitch within the last
// withinHours, defaulting to a day.
func (s *EngagementService) IsReturningViewer(ctx context.Context, pitchID int64, visitorID string, withinHours int) (bool, error) {
	if withinHours <= 0 {
		withinHours = DefaultReturningWithin
	}
	return s.views.HasVisitorSince(ctx, pitchID, visitorID, withinHours)
}

// SystemMetrics returns the instrumentation snapshot.
func (s *EngagementService) SystemMetrics() models.SystemMetrics {
	return s.metrics.Snapshot()
}

func normalizeDays(days int) int {
	switch {
	case days <= 0:
		return DefaultAnalyticsDays
	case days > MaxAnalyticsDays:
		return MaxAnalyticsDays
	}
	return days
}

func statsCacheKey(pitchID int64) string {
	return fmt.Sprintf("engagement:stats:%d", pitchID)
}

// engagementCachePattern matches every engagement entry cached for pitchID.
func engagementCachePattern(pitchID int64) string {
	return fmt.Sprintf("engagement:*:%d", pitchID)
}
