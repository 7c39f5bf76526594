package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/pitch-engagement-api/internal/models"
	"github.com/noah-isme/pitch-engagement-api/pkg/database"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
)

const viewColumns = "id, pitch_id, anonymous_visitor_id, viewed_at, ip_address, user_agent, referrer, session_id"

// TopN caps the referrer and location breakdowns.
const TopN = 10

// ViewRepository persists and aggregates pitch view events.
type ViewRepository struct {
	ex database.Executor
}

// NewViewRepository constructs a ViewRepository.
func NewViewRepository(ex database.Executor) *ViewRepository {
	return &ViewRepository{ex: ex}
}

// Insert stores a view event and returns its id. viewed_at is set by the backend.
func (r *ViewRepository) Insert(ctx context.Context, view *models.PitchView) (int64, error) {
	res, err := r.ex.Execute(ctx, `INSERT INTO pitch_views (pitch_id, anonymous_visitor_id, ip_address, user_agent, referrer, session_id)
        VALUES (?, ?, ?, ?, ?, ?)`,
		view.PitchID, view.AnonymousVisitorID, view.IPAddress, view.UserAgent, view.Referrer, view.SessionID)
	if err != nil {
		return 0, fmt.Errorf("insert pitch view: %w", err)
	}
	if res.InsertedID == nil {
		return 0, appErrors.Clone(appErrors.ErrInternal, "insert did not report an id")
	}
	return *res.InsertedID, nil
}

// FindByID fetches one view event.
func (r *ViewRepository) FindByID(ctx context.Context, id int64) (*models.PitchView, error) {
	var view models.PitchView
	found, err := r.ex.QueryOne(ctx, &view, "SELECT "+viewColumns+" FROM pitch_views WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get pitch view %d: %w", id, err)
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("pitch view %d not found", id))
	}
	return &view, nil
}

type statsRow struct {
	TotalViews     int               `db:"total_views"`
	UniqueViewers  int               `db:"unique_viewers"`
	LastViewed     database.NullTime `db:"last_viewed"`
	ViewsToday     int               `db:"views_today"`
	ViewsThisWeek  int               `db:"views_this_week"`
	ViewsThisMonth int               `db:"views_this_month"`
}

// Stats aggregates every view of a pitch in one statement. Windows are relative to the
// backend clock.
func (r *ViewRepository) Stats(ctx context.Context, pitchID int64) (models.ViewStats, error) {
	d := r.ex.Dialect()
	weekExpr, weekArg := d.Ago(7, database.Days)
	monthExpr, monthArg := d.Ago(30, database.Days)

	sql := fmt.Sprintf(`SELECT
            COUNT(*) AS total_views,
            COUNT(DISTINCT anonymous_visitor_id) AS unique_viewers,
            MAX(viewed_at) AS last_viewed,
            COUNT(CASE WHEN viewed_at >= %s THEN 1 END) AS views_today,
            COUNT(CASE WHEN viewed_at >= %s THEN 1 END) AS views_this_week,
            COUNT(CASE WHEN viewed_at >= %s THEN 1 END) AS views_this_month
        FROM pitch_views
        WHERE pitch_id = ?`, d.StartOfToday(), weekExpr, monthExpr)

	var row statsRow
	if _, err := r.ex.QueryOne(ctx, &row, sql, weekArg, monthArg, pitchID); err != nil {
		return models.ViewStats{}, fmt.Errorf("view stats for pitch %d: %w", pitchID, err)
	}
	return models.ViewStats{
		TotalViews:     row.TotalViews,
		UniqueViewers:  row.UniqueViewers,
		LastViewed:     row.LastViewed.Ptr(),
		ViewsToday:     row.ViewsToday,
		ViewsThisWeek:  row.ViewsThisWeek,
		ViewsThisMonth: row.ViewsThisMonth,
	}, nil
}

// window renders the shared predicate of the detailed breakdowns.
func (r *ViewRepository) window(pitchID int64, days int) (string, []interface{}) {
	expr, arg := r.ex.Dialect().Ago(days, database.Days)
	return "pitch_id = ? AND viewed_at >= " + expr, []interface{}{pitchID, arg}
}

// DailyViews counts views per calendar day over the trailing days.
func (r *ViewRepository) DailyViews(ctx context.Context, pitchID int64, days int) ([]models.DailyViews, error) {
	where, args := r.window(pitchID, days)
	sql := fmt.Sprintf(`SELECT %s AS date, COUNT(*) AS views FROM pitch_views WHERE %s GROUP BY 1 ORDER BY 1`,
		r.ex.Dialect().DayBucket("viewed_at"), where)

	out := []models.DailyViews{}
	if err := r.ex.Query(ctx, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("daily views for pitch %d: %w", pitchID, err)
	}
	return out, nil
}

// HourlyDistribution counts views per hour of day over the trailing days.
func (r *ViewRepository) HourlyDistribution(ctx context.Context, pitchID int64, days int) ([]models.HourlyViews, error) {
	where, args := r.window(pitchID, days)
	sql := fmt.Sprintf(`SELECT %s AS hour, COUNT(*) AS views FROM pitch_views WHERE %s GROUP BY 1 ORDER BY 1`,
		r.ex.Dialect().HourBucket("viewed_at"), where)

	out := []models.HourlyViews{}
	if err := r.ex.Query(ctx, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("hourly views for pitch %d: %w", pitchID, err)
	}
	return out, nil
}

// TopReferrers returns the most frequent referrers over the trailing days.
func (r *ViewRepository) TopReferrers(ctx context.Context, pitchID int64, days int) ([]models.ReferrerStat, error) {
	where, args := r.window(pitchID, days)
	sql := fmt.Sprintf(`SELECT CASE WHEN referrer IS NULL OR referrer = '' THEN '%s' ELSE referrer END AS referrer,
            COUNT(*) AS views
        FROM pitch_views WHERE %s GROUP BY 1 ORDER BY 2 DESC, 1 LIMIT %d`, models.DirectReferrer, where, TopN)

	out := []models.ReferrerStat{}
	if err := r.ex.Query(ctx, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("referrers for pitch %d: %w", pitchID, err)
	}
	return out, nil
}

// TopLocations returns the most frequent two-octet IP prefixes over the trailing days.
func (r *ViewRepository) TopLocations(ctx context.Context, pitchID int64, days int) ([]models.LocationStat, error) {
	where, args := r.window(pitchID, days)
	sql := fmt.Sprintf(`SELECT %s AS ip_prefix, COUNT(*) AS views
        FROM pitch_views WHERE %s GROUP BY 1 ORDER BY 2 DESC, 1 LIMIT %d`, r.ex.Dialect().IPv4Prefix("ip_address"), where, TopN)

	out := []models.LocationStat{}
	if err := r.ex.Query(ctx, &out, sql, args...); err != nil {
		return nil, fmt.Errorf("locations for pitch %d: %w", pitchID, err)
	}
	return out, nil
}

// Recent returns the latest views across all pitches with the pitch title attached.
func (r *ViewRepository) Recent(ctx context.Context, limit int) ([]models.RecentView, error) {
	sql := `SELECT v.id, v.pitch_id, v.anonymous_visitor_id, v.viewed_at, v.ip_address, v.user_agent, v.referrer, v.session_id,
            p.title AS pitch_title
        FROM pitch_views v
        JOIN pitches p ON p.id = v.pitch_id
        ORDER BY v.viewed_at DESC, v.id DESC
        LIMIT ?`

	out := []models.RecentView{}
	if err := r.ex.Query(ctx, &out, sql, limit); err != nil {
		return nil, fmt.Errorf("recent views: %w", err)
	}
	return out, nil
}

// HasVisitorSince reports whether visitorID viewed the pitch within the last hours.
func (r *ViewRepository) HasVisitorSince(ctx context.Context, pitchID int64, visitorID string, hours int) (bool, error) {
	expr, arg := r.ex.Dialect().Ago(hours, database.Hours)
	sql := "SELECT 1 FROM pitch_views WHERE pitch_id = ? AND anonymous_visitor_id = ? AND viewed_at >= " + expr + " LIMIT 1"

	var one int
	found, err := r.ex.QueryOne(ctx, &one, sql, pitchID, visitorID, arg)
	if err != nil {
		return false, fmt.Errorf("returning viewer check for pitch %d: %w", pitchID, err)
	}
	return found, nil
}
