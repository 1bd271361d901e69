package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/logging"
)

const (
	// PodRankingKey is the sorted set of active pods scored by member count.
	PodRankingKey = "peerpods:pods:by_members"

	matchKeyPrefix = "peerpods:matches:"
	matchIndexKey  = "peerpods:matches:idx:"

	// AllCommunitiesScope caches discovery across every pod the user shares.
	AllCommunitiesScope = "all"

	defaultConnectTimeout = 10 * time.Second
	defaultMatchTTL       = 5 * time.Minute
)

var (
	ErrRedisNotConnected = errors.New("redis not connected")
	ErrRedisEmpty        = errors.New("redis pod ranking is empty")
)

// RedisConfig holds configuration for Redis connection.
type RedisConfig struct {
	URL string

	// MatchTTL bounds how long a ranked discovery result is served from cache.
	MatchTTL time.Duration
}

// RedisClient wraps the go-redis client with the discovery cache and pod ranking.
type RedisClient struct {
	client   *redis.Client
	logger   *logging.Logger
	matchTTL time.Duration
}

// NewRedisClient creates a new Redis client from the config.
// returns nil if the URL is empty (redis disabled).
func NewRedisClient(cfg RedisConfig, logger *logging.Logger) (*RedisClient, error) {
	if cfg.URL == "" {
		logger.Info("redis disabled: no REDIS_URL configured")
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	opts.DialTimeout = defaultConnectTimeout
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 50
	opts.MinIdleConns = 5

	ttl := cfg.MatchTTL
	if ttl <= 0 {
		ttl = defaultMatchTTL
	}

	return &RedisClient{
		client:   redis.NewClient(opts),
		logger:   logger.WithComponent("redis"),
		matchTTL: ttl,
	}, nil
}

// Connect tests the connection to Redis.
func (r *RedisClient) Connect(ctx context.Context) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	r.logger.Info("redis connected")
	return nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// HealthCheck verifies Redis is responding.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}
	return r.client.Ping(ctx).Err()
}

// MatchKey builds the cache key for one discovery request.
func MatchKey(userID domain.UserID, scope string, limit int) string {
	if scope == "" {
		scope = AllCommunitiesScope
	}
	return matchKeyPrefix + userID.String() + ":" + scope + ":" + strconv.Itoa(limit)
}

// GetMatches returns a cached discovery result. found is false on a miss.
func (r *RedisClient) GetMatches(ctx context.Context, userID domain.UserID, scope string, limit int) ([]domain.CompatibilityResult, bool, error) {
	if r.client == nil {
		return nil, false, ErrRedisNotConnected
	}

	raw, err := r.client.Get(ctx, MatchKey(userID, scope, limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get matches failed: %w", err)
	}

	var results []domain.CompatibilityResult
	if err := json.Unmarshal(raw, &results); err != nil {
		// unreadable entry, treat as a miss and let the caller overwrite it
		r.logger.Warn("discarding corrupted match cache entry",
			"user_id", userID.String(),
			"error", err.Error(),
		)
		return nil, false, nil
	}

	return results, true, nil
}

// SetMatches caches a discovery result and records the key under the user's index
// so InvalidateUser can find it.
func (r *RedisClient) SetMatches(ctx context.Context, userID domain.UserID, scope string, limit int, results []domain.CompatibilityResult) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}

	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encoding matches: %w", err)
	}

	key := MatchKey(userID, scope, limit)
	index := matchIndexKey + userID.String()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, payload, r.matchTTL)
	pipe.SAdd(ctx, index, key)
	pipe.Expire(ctx, index, r.matchTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("caching matches: %w", err)
	}

	r.logger.Debug("matches cached",
		"user_id", userID.String(),
		"scope", scope,
		"count", len(results),
	)
	return nil
}

// InvalidateUser drops every cached discovery result requested by the user.
func (r *RedisClient) InvalidateUser(ctx context.Context, userID domain.UserID) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}

	index := matchIndexKey + userID.String()
	keys, err := r.client.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("listing cached matches: %w", err)
	}

	if err := r.client.Del(ctx, append(keys, index)...).Err(); err != nil {
		return fmt.Errorf("invalidating matches: %w", err)
	}

	r.logger.Debug("match cache invalidated", "user_id", userID.String(), "keys", len(keys))
	return nil
}

// SetPodMembers records the authoritative member count of a pod.
func (r *RedisClient) SetPodMembers(ctx context.Context, id domain.CommunityID, members int) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}

	err := r.client.ZAdd(ctx, PodRankingKey, redis.Z{
		Score:  float64(members),
		Member: id.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// IncrementPodMembers adjusts a pod's member count, adding the pod when it's new.
func (r *RedisClient) IncrementPodMembers(ctx context.Context, id domain.CommunityID, delta int) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}

	if err := r.client.ZIncrBy(ctx, PodRankingKey, float64(delta), id.String()).Err(); err != nil {
		r.logger.Error("failed to update pod ranking",
			"community_id", id.String(),
			"delta", delta,
			"error", err.Error(),
		)
		return fmt.Errorf("zincrby failed: %w", err)
	}
	return nil
}

// TopPods returns pod ids ordered by member count (descending).
// ids only, full rows come from postgres.
func (r *RedisClient) TopPods(ctx context.Context, limit, offset int64) ([]string, error) {
	if r.client == nil {
		return nil, ErrRedisNotConnected
	}

	members, err := r.client.ZRevRange(ctx, PodRankingKey, offset, offset+limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}
	if len(members) == 0 {
		return nil, ErrRedisEmpty
	}
	return members, nil
}

// RemovePod drops a pod from the ranking, e.g. once it's deactivated.
func (r *RedisClient) RemovePod(ctx context.Context, id domain.CommunityID) error {
	if r.client == nil {
		return ErrRedisNotConnected
	}

	if err := r.client.ZRem(ctx, PodRankingKey, id.String()).Err(); err != nil {
		return fmt.Errorf("zrem failed: %w", err)
	}
	return nil
}
