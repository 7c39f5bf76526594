package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/pitch-engagement-api/internal/models"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
	"github.com/noah-isme/pitch-engagement-api/pkg/export"
)

type pitchLookup interface {
	FindByID(ctx context.Context, id int64) (*models.Pitch, error)
}

type engagementReader interface {
	GetViewStats(ctx context.Context, pitchID int64) (models.ViewStats, bool, error)
	GetDetailedAnalytics(ctx context.Context, pitchID int64, days int) (models.DetailedAnalytics, error)
}

type reportRenderer interface {
	Render(report export.Report) ([]byte, error)
}

// ExportResult is a rendered analytics report ready to stream.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a pitch's engagement analytics as CSV or PDF.
type ExportService struct {
	pitches    pitchLookup
	engagement engagementReader
	csv        reportRenderer
	pdf        reportRenderer
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(pitches pitchLookup, engagement engagementReader, metrics *MetricsService, logger *zap.Logger, csv, pdf reportRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{pitches: pitches, engagement: engagement, csv: csv, pdf: pdf, metrics: metrics, logger: logger, now: time.Now}
}

// Export renders stats and the detailed breakdown of the trailing days for one pitch.
func (s *ExportService) Export(ctx context.Context, pitchID int64, days int, format string) (*ExportResult, error) {
	f, err := export.ParseFormat(strings.ToLower(format))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	pitch, err := s.pitches.FindByID(ctx, pitchID)
	if err != nil {
		return nil, err
	}
	stats, _, err := s.engagement.GetViewStats(ctx, pitchID)
	if err != nil {
		return nil, err
	}
	analytics, err := s.engagement.GetDetailedAnalytics(ctx, pitchID, days)
	if err != nil {
		return nil, err
	}

	report := buildEngagementReport(pitch, stats, analytics)
	renderer := s.csv
	if f == export.FormatPDF {
		renderer = s.pdf
	}
	payload, err := renderer.Render(report)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	s.metrics.RecordExport(string(f))
	s.logger.Info("analytics exported",
		zap.Int64("pitch_id", pitchID),
		zap.String("format", string(f)),
		zap.Int("days", analytics.Days),
		zap.Int("bytes", len(payload)))

	return &ExportResult{
		Filename:    fmt.Sprintf("pitch_%d_analytics_%s.%s", pitchID, s.now().UTC().Format("20060102_150405"), f),
		ContentType: f.ContentType(),
		Data:        payload,
	}, nil
}

func buildEngagementReport(pitch *models.Pitch, stats models.ViewStats, analytics models.DetailedAnalytics) export.Report {
	itoa := strconv.Itoa
	summary := []map[string]string{
		{"Metric": "Total views", "Value": itoa(stats.TotalViews)},
		{"Metric": "Unique viewers", "Value": itoa(stats.UniqueViewers)},
		{"Metric": "Views today", "Value": itoa(stats.ViewsToday)},
		{"Metric": "Views this week", "Value": itoa(stats.ViewsThisWeek)},
		{"Metric": "Views this month", "Value": itoa(stats.ViewsThisMonth)},
		{"Metric": "Last viewed", "Value": formatReportTime(stats.LastViewed)},
		{"Metric": "Status", "Value": string(pitch.Status)},
	}

	daily := make([]map[string]string, 0, len(analytics.DailyViews))
	for _, d := range analytics.DailyViews {
		daily = append(daily, map[string]string{"Date": d.Date, "Views": itoa(d.Views)})
	}
	hourly := make([]map[string]string, 0, len(analytics.HourlyDistribution))
	for _, h := range analytics.HourlyDistribution {
		hourly = append(hourly, map[string]string{"Hour": fmt.Sprintf("%02d:00", h.Hour), "Views": itoa(h.Views)})
	}
	referrers := make([]map[string]string, 0, len(analytics.ReferrerStats))
	for _, r := range analytics.ReferrerStats {
		referrers = append(referrers, map[string]string{"Referrer": r.Referrer, "Views": itoa(r.Views)})
	}
	locations := make([]map[string]string, 0, len(analytics.ViewerLocations))
	for _, l := range analytics.ViewerLocations {
		locations = append(locations, map[string]string{"IP prefix": l.IPPrefix, "Views": itoa(l.Views)})
	}

	window := fmt.Sprintf(" (last %d days)", analytics.Days)
	return export.Report{
		Title: fmt.Sprintf("Engagement report: %s", pitch.Title),
		Sections: []export.Section{
			{Title: "Summary", Dataset: export.Dataset{Headers: []string{"Metric", "Value"}, Rows: summary}},
			{Title: "Daily views" + window, Dataset: export.Dataset{Headers: []string{"Date", "Views"}, Rows: daily}},
			{Title: "Hourly distribution" + window, Dataset: export.Dataset{Headers: []string{"Hour", "Views"}, Rows: hourly}},
			{Title: "Top referrers" + window, Dataset: export.Dataset{Headers: []string{"Referrer", "Views"}, Rows: referrers}},
			{Title: "Viewer networks" + window, Dataset: export.Dataset{Headers: []string{"IP prefix", "Views"}, Rows: locations}},
		},
	}
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
