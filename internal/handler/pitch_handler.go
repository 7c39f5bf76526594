package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pitch-engagement-api/internal/dto"
	"github.com/noah-isme/pitch-engagement-api/internal/models"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
	"github.com/noah-isme/pitch-engagement-api/pkg/query"
	"github.com/noah-isme/pitch-engagement-api/pkg/response"
)

type pitchService interface {
	List(ctx context.Context, spec query.Spec) (query.Result[models.Pitch], error)
	Get(ctx context.Context, id int64) (*models.Pitch, error)
	Create(ctx context.Context, req dto.CreatePitchRequest) (*models.Pitch, error)
	Update(ctx context.Context, id int64, req dto.UpdatePitchRequest) (*models.Pitch, error)
	Delete(ctx context.Context, id int64) error
	Publish(ctx context.Context, id int64) (*models.Pitch, error)
}

// PitchHandler exposes owner-side pitch endpoints.
type PitchHandler struct {
	pitches pitchService
}

// NewPitchHandler constructs the pitch handler.
func NewPitchHandler(pitches pitchService) *PitchHandler {
	return &PitchHandler{pitches: pitches}
}

// List godoc
// @Summary List pitches
// @Tags Pitches
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size (max 100)"
// @Param sortBy query string false "Sort field"
// @Param sortOrder query string false "asc or desc"
// @Param search query string false "Substring search"
// @Param searchFields query string false "Comma separated searchable fields"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /pitches [get]
func (h *PitchHandler) List(c *gin.Context) {
	result, err := h.pitches.List(c.Request.Context(), query.ParseSpec(c.Request.URL.Query()))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Page(c, result)
}

// Get godoc
// @Summary Get pitch
// @Tags Pitches
// @Produce json
// @Param id path int true "Pitch ID"
// @Success 200 {object} response.Envelope
// @Router /pitches/{id} [get]
func (h *PitchHandler) Get(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	pitch, err := h.pitches.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pitch, nil)
}

// Create godoc
// @Summary Create pitch
// @Tags Pitches
// @Accept json
// @Produce json
// @Param payload body dto.CreatePitchRequest true "Pitch payload"
// @Success 201 {object} response.Envelope
// @Router /pitches [post]
func (h *PitchHandler) Create(c *gin.Context) {
	var req dto.CreatePitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	pitch, err := h.pitches.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pitch)
}

// Update godoc
// @Summary Update pitch
// @Tags Pitches
// @Accept json
// @Produce json
// @Param id path int true "Pitch ID"
// @Param payload body dto.UpdatePitchRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /pitches/{id} [patch]
func (h *PitchHandler) Update(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdatePitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	pitch, err := h.pitches.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pitch, nil)
}

// Delete godoc
// @Summary Delete pitch
// @Tags Pitches
// @Param id path int true "Pitch ID"
// @Success 204
// @Router /pitches/{id} [delete]
func (h *PitchHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.pitches.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish godoc
// @Summary Publish draft pitch
// @Tags Pitches
// @Produce json
// @Param id path int true "Pitch ID"
// @Success 200 {object} response.Envelope
// @Router /pitches/{id}/publish [post]
func (h *PitchHandler) Publish(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	pitch, err := h.pitches.Publish(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pitch, nil)
}
