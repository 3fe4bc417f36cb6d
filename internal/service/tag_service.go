package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/repository"
)

const tagCacheKey = "blogverse:tags:all"

// TagService serves the global tag list through a read-through Redis
// cache. Concurrent misses collapse into a single database query via
// singleflight. A nil redis client degrades to plain database reads.
type TagService struct {
	tags   repository.TagRepository
	cache  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

func NewTagService(tags repository.TagRepository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *TagService {
	return &TagService{tags: tags, cache: cache, ttl: ttl, logger: logger}
}

func (s *TagService) List(ctx context.Context) ([]domain.Tag, error) {
	if s.cache == nil {
		observability.RecordTagCacheEvent(ctx, "bypass")
		return s.tags.ListAll()
	}

	raw, err := s.cache.Get(ctx, tagCacheKey).Result()
	switch {
	case err == nil:
		var tags []domain.Tag
		if err := json.Unmarshal([]byte(raw), &tags); err == nil {
			observability.RecordTagCacheEvent(ctx, "hit")
			return tags, nil
		}
		// A corrupt entry is treated as a miss and rewritten below.
		s.logger.WarnContext(ctx, "tag cache entry corrupt, refetching")
	case !errors.Is(err, redis.Nil):
		observability.RecordTagCacheEvent(ctx, "error")
		s.logger.WarnContext(ctx, "tag cache read failed", "error", err)
		return s.tags.ListAll()
	}

	observability.RecordTagCacheEvent(ctx, "miss")
	v, err, _ := s.group.Do(tagCacheKey, func() (any, error) {
		tags, err := s.tags.ListAll()
		if err != nil {
			return nil, err
		}
		if payload, err := json.Marshal(tags); err == nil {
			if err := s.cache.Set(ctx, tagCacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.WarnContext(ctx, "tag cache write failed", "error", err)
			}
		}
		return tags, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Tag), nil
}

// Invalidate drops the cached list; the next read repopulates it.
func (s *TagService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, tagCacheKey).Err(); err != nil {
		s.logger.WarnContext(ctx, "tag cache invalidation failed", "error", err)
	}
}
