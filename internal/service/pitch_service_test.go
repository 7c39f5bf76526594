package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/pitch-engagement-api/internal/dto"
	"github.com/noah-isme/pitch-engagement-api/internal/models"
	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
	"github.com/noah-isme/pitch-engagement-api/pkg/query"
)

type fakePitchRepo struct {
	pitches   map[int64]*models.Pitch
	created   map[string]interface{}
	updated   map[string]interface{}
	nextID    int64
	published bool
}

func newFakePitchRepo(pitches ...*models.Pitch) *fakePitchRepo {
	repo := &fakePitchRepo{pitches: map[int64]*models.Pitch{}}
	for _, p := range pitches {
		repo.pitches[p.ID] = p
		if p.ID > repo.nextID {
			repo.nextID = p.ID
		}
	}
	return repo
}

func (f *fakePitchRepo) FindMany(_ context.Context, spec query.Spec) (query.Result[models.Pitch], error) {
	data := make([]models.Pitch, 0, len(f.pitches))
	for _, p := range f.pitches {
		data = append(data, *p)
	}
	return query.NewResult(data, len(data), query.Plan{Page: spec.Page, Limit: 10}), nil
}

func (f *fakePitchRepo) FindByID(_ context.Context, id int64) (*models.Pitch, error) {
	p, ok := f.pitches[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "pitch not found")
	}
	return p, nil
}

func (f *fakePitchRepo) FindByShareToken(_ context.Context, token string) (*models.Pitch, error) {
	for _, p := range f.pitches {
		if p.ShareToken == token {
			return p, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "pitch not found")
}

func (f *fakePitchRepo) Create(_ context.Context, fields map[string]interface{}) (*models.Pitch, error) {
	f.created = fields
	f.nextID++
	p := &models.Pitch{ID: f.nextID, Title: fields["title"].(string), ShareToken: fields["share_token"].(string), Status: models.PitchStatusDraft}
	f.pitches[p.ID] = p
	return p, nil
}

func (f *fakePitchRepo) Update(_ context.Context, id int64, fields map[string]interface{}) (*models.Pitch, error) {
	if len(fields) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no updatable fields supplied")
	}
	f.updated = fields
	return f.FindByID(context.Background(), id)
}

func (f *fakePitchRepo) Delete(_ context.Context, id int64) (bool, error) {
	if _, ok := f.pitches[id]; !ok {
		return false, nil
	}
	delete(f.pitches, id)
	return true, nil
}

func (f *fakePitchRepo) Publish(_ context.Context, id int64) (bool, error) {
	p, ok := f.pitches[id]
	if !ok || p.Status != models.PitchStatusDraft {
		return false, nil
	}
	p.Status = models.PitchStatusPublished
	f.published = true
	return true, nil
}

func TestPitchServiceCreateAssignsShareToken(t *testing.T) {
	repo := newFakePitchRepo()
	svc := NewPitchService(repo, nil, nil, nil)

	pitch, err := svc.Create(context.Background(), dto.CreatePitchRequest{Title: "Seed deck", Email: "founder@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.PitchStatusDraft, pitch.Status)
	_, err = uuid.Parse(pitch.ShareToken)
	assert.NoError(t, err)
	assert.Equal(t, "founder@example.com", repo.created["email"])
	assert.NotContains(t, repo.created, "status")

	_, err = svc.Create(context.Background(), dto.CreatePitchRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPitchServiceUpdate(t *testing.T) {
	repo := newFakePitchRepo(&models.Pitch{ID: 1, Title: "Deck"})
	svc := NewPitchService(repo, nil, nil, nil)
	ctx := context.Background()

	title := "Deck v2"
	_, err := svc.Update(ctx, 1, dto.UpdatePitchRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"title": "Deck v2"}, repo.updated)

	_, err = svc.Update(ctx, 1, dto.UpdatePitchRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	bad := "nope"
	_, err = svc.Update(ctx, 1, dto.UpdatePitchRequest{Email: &bad})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestPitchServiceGetSharedHidesDrafts(t *testing.T) {
	repo := newFakePitchRepo(
		&models.Pitch{ID: 1, ShareToken: "draft", Status: models.PitchStatusDraft},
		&models.Pitch{ID: 2, ShareToken: "live", Status: models.PitchStatusViewed},
	)
	svc := NewPitchService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.GetShared(ctx, "draft")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.GetShared(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	pitch, err := svc.GetShared(ctx, "live")
	require.NoError(t, err)
	assert.EqualValues(t, 2, pitch.ID)
}

func TestPitchServiceDeleteAndPublish(t *testing.T) {
	repo := newFakePitchRepo(&models.Pitch{ID: 1, Status: models.PitchStatusDraft})
	svc := NewPitchService(repo, nil, nil, nil)
	ctx := context.Background()

	published, err := svc.Publish(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.PitchStatusPublished, published.Status)

	_, err = svc.Publish(ctx, 1)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	require.NoError(t, svc.Delete(ctx, 1))
	assert.ErrorIs(t, svc.Delete(ctx, 1), appErrors.ErrNotFound)
}

func TestPitchServiceDeleteInvalidatesEngagementCache(t *testing.T) {
	repo := newFakePitchRepo(&models.Pitch{ID: 7, Status: models.PitchStatusViewed})
	cacheRepo := &stubCacheRepo{}
	cache := NewCacheService(cacheRepo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, statsCacheKey(7), models.ViewStats{TotalViews: 9}, 0))

	svc := NewPitchService(repo, cache, nil, nil)
	require.NoError(t, svc.Delete(ctx, 7))
	assert.Equal(t, []string{"engagement:*:7"}, cacheRepo.patterns)

	assert.ErrorIs(t, svc.Delete(ctx, 7), appErrors.ErrNotFound)
	assert.Len(t, cacheRepo.patterns, 1)
}
