package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pitch-engagement-api/internal/dto"
	"github.com/noah-isme/pitch-engagement-api/internal/models"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
	"github.com/noah-isme/pitch-engagement-api/pkg/query"
)

type pitchRepository interface {
	FindMany(ctx context.Context, spec query.Spec) (query.Result[models.Pitch], error)
	FindByID(ctx context.Context, id int64) (*models.Pitch, error)
	FindByShareToken(ctx context.Context, token string) (*models.Pitch, error)
	Create(ctx context.Context, fields map[string]interface{}) (*models.Pitch, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) (*models.Pitch, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Publish(ctx context.Context, id int64) (bool, error)
}

// PitchService handles pitch use-cases. Repository errors are returned as they are so
// the taxonomy codes reach the API layer intact.
type PitchService struct {
	repo      pitchRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPitchService constructs the pitch service. cache may be nil.
func NewPitchService(repo pitchRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PitchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PitchService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns one page of pitches.
func (s *PitchService) List(ctx context.Context, spec query.Spec) (query.Result[models.Pitch], error) {
	return s.repo.FindMany(ctx, spec)
}

// Get returns a pitch by id.
func (s *PitchService) Get(ctx context.Context, id int64) (*models.Pitch, error) {
	return s.repo.FindByID(ctx, id)
}

// GetShared resolves a pitch from its share token. Drafts are not visible publicly.
func (s *PitchService) GetShared(ctx context.Context, token string) (*models.Pitch, error) {
	pitch, err := s.repo.FindByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !pitch.IsPublic() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pitch not found")
	}
	return pitch, nil
}

// Create stores a new draft with a fresh share token.
func (s *PitchService) Create(ctx context.Context, req dto.CreatePitchRequest) (*models.Pitch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pitch payload")
	}
	pitch, err := s.repo.Create(ctx, map[string]interface{}{
		"title":       req.Title,
		"name":        req.Name,
		"company":     req.Company,
		"email":       req.Email,
		"summary":     req.Summary,
		"share_token": uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("pitch created", zap.Int64("pitch_id", pitch.ID))
	return pitch, nil
}

// Update applies a partial update. An empty payload is a validation error.
func (s *PitchService) Update(ctx context.Context, id int64, req dto.UpdatePitchRequest) (*models.Pitch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pitch payload")
	}
	return s.repo.Update(ctx, id, req.Fields())
}

// Delete removes a pitch and, by cascade, its views, then drops its cached engagement.
func (s *PitchService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("pitch %d not found", id))
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, engagementCachePattern(id)); err != nil {
			s.logger.Warn("invalidate engagement cache", zap.Int64("pitch_id", id), zap.Error(err))
		}
	}
	s.logger.Info("pitch deleted", zap.Int64("pitch_id", id))
	return nil
}

// Publish moves a draft to published. Publishing a pitch that already left draft is a
// validation error.
func (s *PitchService) Publish(ctx context.Context, id int64) (*models.Pitch, error) {
	ok, err := s.repo.Publish(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only draft pitches can be published")
	}
	return s.repo.FindByID(ctx, id)
}
