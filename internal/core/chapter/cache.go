// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package chapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/talehub/internal/platform/constants"
)

// # Chapter List Cache

// ListCache holds ordered chapter listings per story.
//
// Implementations must treat their own failures as misses: the database is
// always the source of truth.
type ListCache interface {
	Get(ctx context.Context, storyID string) ([]*Chapter, bool)
	Set(ctx context.Context, storyID string, chapters []*Chapter)
	Invalidate(ctx context.Context, storyID string)
}

// NopCache disables caching.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]*Chapter, bool) { return nil, false }
func (NopCache) Set(context.Context, string, []*Chapter)        {}
func (NopCache) Invalidate(context.Context, string)             {}

// redisListCache stores JSON encoded listings under RedisPrefixChapterList.
type redisListCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisListCache constructs a cache-aside listing cache backed by Redis.
func NewRedisListCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) ListCache {
	return &redisListCache{client: client, ttl: ttl, logger: logger}
}

func listKey(storyID string) string {
	return constants.RedisPrefixChapterList + storyID
}

func (cache *redisListCache) Get(ctx context.Context, storyID string) ([]*Chapter, bool) {
	payload, err := cache.client.Get(ctx, listKey(storyID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cache.logger.WarnContext(ctx, "chapter_cache_get_failed",
				slog.String("story_id", storyID),
				slog.Any("error", err),
			)
		}
		return nil, false
	}

	var chapters []*Chapter
	if err := json.Unmarshal(payload, &chapters); err != nil {
		cache.logger.WarnContext(ctx, "chapter_cache_corrupt", slog.String("story_id", storyID))
		cache.Invalidate(ctx, storyID)
		return nil, false
	}
	return chapters, true
}

func (cache *redisListCache) Set(ctx context.Context, storyID string, chapters []*Chapter) {
	payload, err := json.Marshal(chapters)
	if err != nil {
		return
	}

	if err := cache.client.Set(ctx, listKey(storyID), payload, cache.ttl).Err(); err != nil {
		cache.logger.WarnContext(ctx, "chapter_cache_set_failed",
			slog.String("story_id", storyID),
			slog.Any("error", err),
		)
	}
}

func (cache *redisListCache) Invalidate(ctx context.Context, storyID string) {
	if err := cache.client.Del(ctx, listKey(storyID)).Err(); err != nil {
		cache.logger.WarnContext(ctx, "chapter_cache_invalidate_failed",
			slog.String("story_id", storyID),
			slog.Any("error", err),
		)
	}
}
