package handler

import "github.com/gin-gonic/gin"

// Routes groups the API handlers mounted under the API prefix.
type Routes struct {
	Pitches   *PitchHandler
	Share     *ShareHandler
	Analytics *AnalyticsHandler
}

// Register mounts every API route on api.
func (r Routes) Register(api gin.IRouter) {
	pitches := api.Group("/pitches")
	pitches.GET("", r.Pitches.List)
	pitches.POST("", r.Pitches.Create)
	pitches.GET("/:id", r.Pitches.Get)
	pitches.PATCH("/:id", r.Pitches.Update)
	pitches.DELETE("/:id", r.Pitches.Delete)
	pitches.POST("/:id/publish", r.Pitches.Publish)

	pitches.GET("/:id/analytics/stats", r.Analytics.Stats)
	pitches.GET("/:id/analytics/detailed", r.Analytics.Detailed)
	pitches.GET("/:id/analytics/returning", r.Analytics.Returning)
	pitches.GET("/:id/analytics/export", r.Analytics.Export)

	analytics := api.Group("/analytics")
	analytics.GET("/recent", r.Analytics.Recent)
	analytics.GET("/system", r.Analytics.System)

	api.GET("/share/:token", r.Share.View)
}
