package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/pitch-engagement-api/internal/models"
	"github.com/noah-isme/pitch-engagement-api/pkg/response"
)

type sharedPitchResolver interface {
	GetShared(ctx context.Context, token string) (*models.Pitch, error)
}

type viewTracker interface {
	TrackView(ctx context.Context, pitchID int64, rc models.RequestContext) (*models.PitchView, error)
}

// SharedPitchResponse is served to anyone holding a share link.
type SharedPitchResponse struct {
	Pitch     models.PublicPitch `json:"pitch"`
	VisitorID string             `json:"visitor_id,omitempty"`
}

// ShareHandler serves public share links and records a view for each open.
type ShareHandler struct {
	pitches sharedPitchResolver
	views   viewTracker
	logger  *zap.Logger
}

// NewShareHandler constructs the share handler.
func NewShareHandler(pitches sharedPitchResolver, views viewTracker, logger *zap.Logger) *ShareHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShareHandler{pitches: pitches, views: views, logger: logger}
}

// View godoc
// @Summary Open shared pitch
// @Description Resolves a share token and records an anonymised view.
// @Tags Share
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /share/{token} [get]
func (h *ShareHandler) View(c *gin.Context) {
	ctx := c.Request.Context()
	pitch, err := h.pitches.GetShared(ctx, c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	out := SharedPitchResponse{Pitch: pitch.Public()}
	rc := models.NewRequestContext(c.Request.Header, c.Request.RemoteAddr)
	view, err := h.views.TrackView(ctx, pitch.ID, rc)
	if err != nil {
		// The pitch is still served; a lost view is logged.
		h.logger.Error("track view failed", zap.Int64("pitch_id", pitch.ID), zap.Error(err))
	} else {
		out.VisitorID = view.AnonymousVisitorID
	}
	response.JSON(c, http.StatusOK, out, nil)
}
