package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tahfiz-analytics/pkg/errors"
)

func TestCacheKeyBuilders(t *testing.T) {
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "summary:2026-03-02", DailySummaryCacheKey(date))
	assert.Equal(t, "students:2026-03-02", StudentSummariesCacheKey(date))
	assert.Equal(t, "teachers:2026-03-02", TeacherSummariesCacheKey(date))
	assert.Equal(t, "classes:2026-03-02", ClassSummariesCacheKey(date))
	assert.Equal(t, "alerts:active", ActiveAlertsCacheKey)
}

func TestCacheKeysAreNamespaced(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "analytics:summary:2026-03-02", repo.key(DailySummaryCacheKey(date)))
	// The wildcard used after a run expands to the whole keyspace.
	assert.Equal(t, "analytics:*", repo.key("*"))
}

func TestCacheRepositoryDegradesWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	err := repo.Get(ctx, "summary:2026-03-02", &dest)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "summary:2026-03-02", map[string]string{"k": "v"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "*"))
	require.NoError(t, repo.Close())
}
