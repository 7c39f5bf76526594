package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/pitch-engagement-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, zap.NewNop())
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "stats:1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "stats:1", map[string]int{"total_views": 1}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "stats:1"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "stats:*"))
	assert.NoError(t, repo.Close())
}
