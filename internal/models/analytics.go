package models

import "time"

// ViewStats summarises all views of one pitch.
type ViewStats struct {
	TotalViews     int        `json:"total_views"`
	UniqueViewers  int        `json:"unique_viewers"`
	LastViewed     *time.Time `json:"last_viewed"`
	ViewsToday     int        `json:"views_today"`
	ViewsThisWeek  int        `json:"views_this_week"`
	ViewsThisMonth int        `json:"views_this_month"`
}

// DailyViews counts views per calendar day (YYYY-MM-DD).
type DailyViews struct {
	Date  string `db:"date" json:"date"`
	Views int    `db:"views" json:"views"`
}

// HourlyViews counts views per hour of day, 0-23.
type HourlyViews struct {
	Hour  int `db:"hour" json:"hour"`
	Views int `db:"views" json:"views"`
}

// ReferrerStat counts views per referrer. Views without a referrer are reported as Direct.
type ReferrerStat struct {
	Referrer string `db:"referrer" json:"referrer"`
	Views    int    `db:"views" json:"views"`
}

// LocationStat counts views per two-octet IP prefix.
type LocationStat struct {
	IPPrefix string `db:"ip_prefix" json:"ip_prefix"`
	Views    int    `db:"views" json:"views"`
}

// DetailedAnalytics breaks views in a trailing window down by time, source and network.
type DetailedAnalytics struct {
	Days               int            `json:"days"`
	DailyViews         []DailyViews   `json:"daily_views"`
	HourlyDistribution []HourlyViews  `json:"hourly_distribution"`
	ViewerLocations    []LocationStat `json:"viewer_locations"`
	ReferrerStats      []ReferrerStat `json:"referrer_stats"`
}

// DirectReferrer labels views that arrived without a referrer.
const DirectReferrer = "Direct"
