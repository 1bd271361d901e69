package cache

import (
	"context"
	"errors"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

// CommunityRepositoryWithCache wraps a CommunityRepository and serves the pod
// directory from the redis ranking, falling back to postgres on a miss.
type CommunityRepositoryWithCache struct {
	domain.CommunityRepository

	redis  *RedisClient
	logger *logging.Logger
}

// NewCommunityRepositoryWithCache creates a cached community repository.
// if redis is nil, all calls go directly to the underlying repository.
func NewCommunityRepositoryWithCache(
	repo domain.CommunityRepository,
	redis *RedisClient,
	logger *logging.Logger,
) *CommunityRepositoryWithCache {
	return &CommunityRepositoryWithCache{
		CommunityRepository: repo,
		redis:               redis,
		logger:              logger.WithComponent("community_cache"),
	}
}

// ListActive returns active pods ordered by member count.
func (r *CommunityRepositoryWithCache) ListActive(ctx context.Context, limit, offset int) ([]*domain.Community, error) {
	if r.redis == nil {
		return r.CommunityRepository.ListActive(ctx, limit, offset)
	}

	rawIDs, err := r.redis.TopPods(ctx, int64(limit), int64(offset))
	if err != nil {
		r.logger.Debug("pod ranking miss, falling back to postgres",
			"limit", limit,
			"offset", offset,
			"reason", err.Error(),
		)
		return r.fromPostgres(ctx, limit, offset)
	}

	// a short page means the ranking may be missing pods; postgres is authoritative
	if len(rawIDs) < limit {
		return r.fromPostgres(ctx, limit, offset)
	}

	ids := make([]domain.CommunityID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := domain.ParseCommunityID(raw)
		if err != nil {
			r.logger.Warn("invalid community id in pod ranking", "id", raw, "error", err.Error())
			continue
		}
		ids = append(ids, id)
	}

	communities, err := r.CommunityRepository.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	active := communities[:0]
	for _, c := range communities {
		if !c.IsActive() {
			if err := r.redis.RemovePod(ctx, c.ID()); err != nil {
				r.logger.Warn("failed to drop inactive pod from ranking", "community_id", c.ID().String(), "error", err.Error())
			}
			continue
		}
		active = append(active, c)
	}

	r.logger.Debug("pod ranking hit", "limit", limit, "offset", offset, "returned", len(active))
	return active, nil
}

// fromPostgres serves the page from the database and reseeds the ranking with it.
func (r *CommunityRepositoryWithCache) fromPostgres(ctx context.Context, limit, offset int) ([]*domain.Community, error) {
	communities, err := r.CommunityRepository.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	for _, c := range communities {
		if err := r.redis.SetPodMembers(ctx, c.ID(), c.MemberCount()); err != nil {
			if !errors.Is(err, ErrRedisNotConnected) {
				r.logger.Warn("failed to reseed pod ranking", "community_id", c.ID().String(), "error", err.Error())
			}
			break
		}
	}
	return communities, nil
}
