package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"team-governance/internal/domain"
	"team-governance/pkg/redis"
)

// TeamCache is a read-through Redis copy of team records kept in a slower
// store. Every write through TeamService invalidates the entry.
type TeamCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTeamCache creates a new team cache
func NewTeamCache(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *TeamCache {
	if ttl <= 0 {
		ttl = redis.TTLTeamCache
	}
	return &TeamCache{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// GetTeam returns the cached record or loads it with fallback. Cache errors
// never fail the read.
func (c *TeamCache) GetTeam(ctx context.Context, key domain.TeamKey, fallback func(ctx context.Context, key domain.TeamKey) (*domain.Team, error)) (*domain.Team, error) {
	cacheKey := c.redis.KeyBuilder.KeyTeamCache(key.Name, key.ID)

	cached, err := c.redis.Get(ctx, cacheKey)
	switch {
	case err == nil:
		var team domain.Team
		jsonErr := json.Unmarshal([]byte(cached), &team)
		if jsonErr == nil {
			c.logger.Debug("Team cache hit", zap.String("team", key.String()))
			return &team, nil
		}
		c.logger.Warn("Team cache corrupted, falling back to store",
			zap.String("team", key.String()),
			zap.Error(jsonErr))
	case errors.Is(err, redis.Nil):
		c.logger.Debug("Team cache miss", zap.String("team", key.String()))
	default:
		c.logger.Warn("Team cache error, falling back to store",
			zap.String("team", key.String()),
			zap.Error(err))
	}

	team, err := fallback(ctx, key)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(team); err == nil {
		if err := c.redis.Set(ctx, cacheKey, payload, c.ttl); err != nil {
			c.logger.Warn("Failed to cache team", zap.String("team", key.String()), zap.Error(err))
		}
	}
	return team, nil
}

// Invalidate drops the cached copy of key
func (c *TeamCache) Invalidate(ctx context.Context, key domain.TeamKey) {
	if err := c.redis.Delete(ctx, c.redis.KeyBuilder.KeyTeamCache(key.Name, key.ID)); err != nil {
		c.logger.Error("Failed to invalidate team cache",
			zap.String("team", key.String()),
			zap.Error(err))
	}
}

// HealthCheck performs a health check on the cache system
func (c *TeamCache) HealthCheck(ctx context.Context) error {
	start := time.Now()
	err := c.redis.Health(ctx)
	duration := time.Since(start)

	if err != nil {
		c.logger.Error("Cache health check failed",
			zap.Duration("duration", duration),
			zap.Error(err))
		return fmt.Errorf("cache unhealthy: %w", err)
	}

	c.logger.Debug("Cache health check passed", zap.Duration("duration", duration))
	return nil
}
