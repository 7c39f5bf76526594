package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/pitch-engagement-api/internal/models"
	"github.com/noah-isme/pitch-engagement-api/pkg/database"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
	"github.com/noah-isme/pitch-engagement-api/pkg/query"
)

var pitchEntity = query.MustEntity(query.EntityConfig{
	Table: "pitches",
	SelectableFields: []string{
		"id", "title", "name", "company", "email", "summary", "status",
		"view_count", "last_viewed", "share_token", "created_date", "updated_date",
	},
	SortableFields:   []string{"created_date", "updated_date", "title", "company", "view_count", "last_viewed", "id"},
	SearchableFields: []string{"title", "name", "company", "summary"},
	// status, view_count and last_viewed only move through Publish and RecordView.
	WritableFields: []string{"title", "name", "company", "email", "summary", "share_token"},
	UpdatedField:   "updated_date",
})

// The CASE reads the pre-increment view_count, so the whole transition is one
// statement and concurrent viewers cannot lose an update.
const recordViewSQL = `UPDATE pitches
SET view_count = view_count + 1,
    last_viewed = CURRENT_TIMESTAMP,
    status = CASE
        WHEN status = 'draft' THEN status
        WHEN view_count = 0 THEN 'viewed'
        ELSE 'multiple_views'
    END
WHERE id = ?`

const publishSQL = `UPDATE pitches SET status = ?, updated_date = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`

// PitchRepository persists pitches.
type PitchRepository struct {
	*Repository[models.Pitch]
	ex database.Executor
}

// NewPitchRepository constructs a PitchRepository.
func NewPitchRepository(ex database.Executor) *PitchRepository {
	return &PitchRepository{Repository: New[models.Pitch](ex, pitchEntity), ex: ex}
}

// FindByShareToken resolves a pitch from its public token.
func (r *PitchRepository) FindByShareToken(ctx context.Context, token string) (*models.Pitch, error) {
	return r.FindBy(ctx, "share_token", token)
}

// RecordView increments the view counter, stamps last_viewed and advances the status:
// the first view of a non-draft pitch moves it to viewed, any later view to
// multiple_views. Drafts keep their status.
func (r *PitchRepository) RecordView(ctx context.Context, id int64) error {
	res, err := r.ex.Execute(ctx, recordViewSQL, id)
	if err != nil {
		return fmt.Errorf("record view on pitch %d: %w", id, err)
	}
	if res.Changes == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("pitch %d not found", id))
	}
	return nil
}

// Publish moves a draft to published. It reports false when the pitch exists but is
// no longer a draft.
func (r *PitchRepository) Publish(ctx context.Context, id int64) (bool, error) {
	res, err := r.ex.Execute(ctx, publishSQL, models.PitchStatusPublished, id, models.PitchStatusDraft)
	if err != nil {
		return false, fmt.Errorf("publish pitch %d: %w", id, err)
	}
	if res.Changes > 0 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}
