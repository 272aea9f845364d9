package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/tahfiz-analytics/pkg/errors"
)

// cacheNamespace prefixes every key this repository touches, so one
// invalidation pattern covers all derived reads after a rerun.
const cacheNamespace = "analytics:"

// ActiveAlertsCacheKey addresses the current alert set.
const ActiveAlertsCacheKey = "alerts:active"

// DailySummaryCacheKey addresses the program summary for one date.
func DailySummaryCacheKey(date time.Time) string {
	return "summary:" + date.Format("2006-01-02")
}

// StudentSummariesCacheKey addresses the per-student rows for one date.
func StudentSummariesCacheKey(date time.Time) string {
	return "students:" + date.Format("2006-01-02")
}

// TeacherSummariesCacheKey addresses the per-teacher rows for one week.
func TeacherSummariesCacheKey(weekStart time.Time) string {
	return "teachers:" + weekStart.Format("2006-01-02")
}

// ClassSummariesCacheKey addresses the per-class rows for one week.
func ClassSummariesCacheKey(weekStart time.Time) string {
	return "classes:" + weekStart.Format("2006-01-02")
}

// CacheRepository stores JSON-encoded analytics payloads in redis under the
// analytics namespace. A nil client degrades to a pass-through: every read
// misses and writes are dropped, so the engine runs fine without redis.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs the repository around an optional client.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{client: client, logger: logger}
}

func (r *CacheRepository) key(k string) string {
	return cacheNamespace + k
}

// Get retrieves and unmarshals the cached value into dest. A missing key or a
// missing client both surface as ErrCacheMiss.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// Set marshals value and stores it under the namespaced key with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value for %s: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// DeleteByPattern removes cached entries matching the pattern within the
// namespace; "*" clears the whole analytics keyspace.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.client == nil {
		return nil
	}

	scoped := r.key(pattern)
	iter := r.client.Scan(ctx, 0, scoped, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan %s: %w", scoped, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete %d keys for %s: %w", len(keys), scoped, err)
	}
	if r.logger != nil {
		r.logger.Debug("cache keys invalidated",
			zap.String("pattern", scoped),
			zap.Int("count", len(keys)))
	}
	return nil
}

// Close releases the underlying redis connection if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
