package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Redis shares availability results between server processes. Each category
// has a version counter; bumping it orphans every older entry, which then
// ages out through its TTL.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: "fleetbook:avail"}
}

func (r *Redis) versionKey(categoryID int32) string {
	return fmt.Sprintf("%s:ver:%d", r.prefix, categoryID)
}

func (r *Redis) entryKey(ctx context.Context, q Query) (string, error) {
	ver, err := r.client.Get(ctx, r.versionKey(q.CategoryID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("%s:%d:v%d:%s", r.prefix, q.CategoryID, ver, q.suffix()), nil
}

func (r *Redis) Get(ctx context.Context, q Query) (*domain.Availability, bool) {
	key, err := r.entryKey(ctx, q)
	if err != nil {
		logger.Warn("Availability cache read failed", "error", err)
		return nil, false
	}
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Availability cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var a domain.Availability
	if err := json.Unmarshal(data, &a); err != nil {
		logger.Warn("Discarding malformed availability cache entry", "key", key, "error", err)
		return nil, false
	}
	return &a, true
}

func (r *Redis) Set(ctx context.Context, q Query, a domain.Availability) {
	if r.ttl <= 0 {
		return
	}
	key, err := r.entryKey(ctx, q)
	if err != nil {
		logger.Warn("Availability cache write failed", "error", err)
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		logger.Warn("Availability cache write failed", "key", key, "error", err)
	}
}

func (r *Redis) InvalidateCategory(ctx context.Context, categoryID int32) {
	if err := r.client.Incr(ctx, r.versionKey(categoryID)).Err(); err != nil {
		logger.Warn("Availability cache invalidation failed", "category_id", categoryID, "error", err)
	}
}
