package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joacominatel/peerpods/internal/domain"
)

func TestCommunityExistsCache_CachesPositiveAndNegative(t *testing.T) {
	repo := &fakeCommunityRepo{}
	active := repo.add("active", 1, true)
	inactive := repo.add("inactive", 1, false)
	missing := domain.NewCommunityID()

	cache := NewCommunityExistsCache(repo, time.Minute)
	ctx := context.Background()

	tests := []struct {
		name       string
		id         domain.CommunityID
		wantExists bool
		wantActive bool
	}{
		{"active pod", active.ID(), true, true},
		{"inactive pod", inactive.ID(), true, false},
		{"missing pod", missing, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 2 {
				exists, isActive, err := cache.CheckActive(ctx, tt.id)
				require.NoError(t, err)
				assert.Equal(t, tt.wantExists, exists)
				assert.Equal(t, tt.wantActive, isActive)
			}
		})
	}

	assert.Equal(t, 3, repo.findCalls)
	assert.Equal(t, 3, cache.Size())
}

func TestCommunityExistsCache_ExpiresAndCleansUp(t *testing.T) {
	repo := &fakeCommunityRepo{}
	pod := repo.add("pod", 1, true)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache := NewCommunityExistsCache(repo, time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, _, err := cache.CheckActive(ctx, pod.ID())
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	cache.Cleanup()
	assert.Equal(t, 0, cache.Size())

	_, _, err = cache.CheckActive(ctx, pod.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findCalls)
}

func TestCommunityExistsCache_Invalidate(t *testing.T) {
	repo := &fakeCommunityRepo{}
	missing := domain.NewCommunityID()
	cache := NewCommunityExistsCache(repo, time.Hour)
	ctx := context.Background()

	exists, _, err := cache.CheckActive(ctx, missing)
	require.NoError(t, err)
	assert.False(t, exists)

	cache.Invalidate(missing)
	assert.Equal(t, 0, cache.Size())
}

func TestCommunityExistsCache_RepositoryErrorNotCached(t *testing.T) {
	repo := &fakeCommunityRepo{err: errors.New("connection refused")}
	cache := NewCommunityExistsCache(repo, time.Hour)

	_, _, err := cache.CheckActive(context.Background(), domain.NewCommunityID())

	assert.Error(t, err)
	assert.Equal(t, 0, cache.Size())
}
