package cache

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/post-reactors/internal/domain"
)

// ProfileLoader is the backing store for ProfileCache.
type ProfileLoader interface {
	ListProfilesByPost(ctx context.Context, postID int64) ([]domain.StoredProfile, error)
}

// ProfileCache is a read-through cache of stored profiles per post.
// Redis errors are logged and fall through to the loader.
type ProfileCache struct {
	loader ProfileLoader
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

func NewProfileCache(loader ProfileLoader, cache *CacheService, ttl time.Duration, logger *zap.Logger) *ProfileCache {
	return &ProfileCache{
		loader: loader,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func profilesKey(postID int64) string {
	return fmt.Sprintf("post:%d:profiles", postID)
}

func (c *ProfileCache) ListProfilesByPost(ctx context.Context, postID int64) ([]domain.StoredProfile, error) {
	key := profilesKey(postID)

	if c.cache != nil {
		var cached []domain.StoredProfile
		found, err := c.cache.Get(ctx, key, &cached)
		if err != nil {
			c.logger.Warn("Profile cache read failed", zap.Int64("post_id", postID), zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	profiles, err := c.loader.ListProfilesByPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, profiles, c.ttl); err != nil {
			c.logger.Warn("Profile cache write failed", zap.Int64("post_id", postID), zap.Error(err))
		}
	}
	return profiles, nil
}

// Invalidate drops the cached profiles of a post after new ones were saved.
func (c *ProfileCache) Invalidate(ctx context.Context, postID int64) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Del(ctx, profilesKey(postID)); err != nil {
		c.logger.Warn("Profile cache invalidation failed", zap.Int64("post_id", postID), zap.Error(err))
	}
}
