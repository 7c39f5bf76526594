package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pitch-engagement-api/internal/dto"
	"github.com/noah-isme/pitch-engagement-api/internal/models"
	"github.com/noah-isme/pitch-engagement-api/internal/service"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
	"github.com/noah-isme/pitch-engagement-api/pkg/response"
)

type engagementService interface {
	GetViewStats(ctx context.Context, pitchID int64) (models.ViewStats, bool, error)
	GetDetailedAnalytics(ctx context.Context, pitchID int64, days int) (models.DetailedAnalytics, error)
	GetRecentViews(ctx context.Context, limit int) ([]models.RecentView, error)
	IsReturningViewer(ctx context.Context, pitchID int64, visitorID string, withinHours int) (bool, error)
	SystemMetrics() models.SystemMetrics
}

type exportService interface {
	Export(ctx context.Context, pitchID int64, days int, format string) (*service.ExportResult, error)
}

// AnalyticsHandler exposes engagement analytics endpoints.
type AnalyticsHandler struct {
	engagement engagementService
	exports    exportService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(engagement engagementService, exports exportService) *AnalyticsHandler {
	return &AnalyticsHandler{engagement: engagement, exports: exports}
}

// Stats godoc
// @Summary Pitch view statistics
// @Tags Analytics
// @Produce json
// @Param id path int true "Pitch ID"
// @Success 200 {object} response.Envelope
// @Router /pitches/{id}/analytics/stats [get]
func (h *AnalyticsHandler) Stats(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	stats, cacheHit, err := h.engagement.GetViewStats(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, timedMeta(c, start, cacheHit))
}

// Detailed godoc
// @Summary Detailed pitch analytics
// @Tags Analytics
// @Produce json
// @Param id path int true "Pitch ID"
// @Param days query int false "Trailing window in days (default 30, max 365)"
// @Success 200 {object} response.Envelope
// @Router /pitches/{id}/analytics/detailed [get]
func (h *AnalyticsHandler) Detailed(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	analytics, err := h.engagement.GetDetailedAnalytics(c.Request.Context(), id, queryInt(c, "days"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analytics, nil, timedMeta(c, start, false))
}

// Returning godoc
// @Summary Returning viewer check
// @Tags Analytics
// @Produce json
// @Param id path int true "Pitch ID"
// @Param visitor query string true "Anonymous visitor ID"
// @Param hours query int false "Lookback in hours (default 24)"
// @Success 200 {object} response.Envelope
// @Router /pitches/{id}/analytics/returning [get]
func (h *AnalyticsHandler) Returning(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	visitor := c.Query("visitor")
	if visitor == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "visitor required"))
		return
	}
	returning, err := h.engagement.IsReturningViewer(c.Request.Context(), id, visitor, queryInt(c, "hours"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"returning": returning}, nil)
}

// Export godoc
// @Summary Export pitch analytics
// @Tags Analytics
// @Produce text/csv
// @Produce application/pdf
// @Param id path int true "Pitch ID"
// @Param days query int false "Trailing window in days"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /pitches/{id}/analytics/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ExportAnalyticsQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export parameters"))
		return
	}
	out, err := h.exports.Export(c.Request.Context(), id, req.Days, req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, out.Filename, out.ContentType, out.Data)
}

// Recent godoc
// @Summary Recent views across pitches
// @Tags Analytics
// @Produce json
// @Param limit query int false "Number of views (default 10, max 100)"
// @Success 200 {object} response.Envelope
// @Router /analytics/recent [get]
func (h *AnalyticsHandler) Recent(c *gin.Context) {
	start := time.Now()
	views, err := h.engagement.GetRecentViews(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil, timedMeta(c, start, false))
}

// System godoc
// @Summary Instrumentation snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	start := time.Now()
	metrics := h.engagement.SystemMetrics()
	response.JSON(c, http.StatusOK, metrics, nil, timedMeta(c, start, false))
}
