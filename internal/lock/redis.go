package lock

import (
	"context"
	"sync"
	"time"

	"fleetbook-backend/internal/domain"
	"fleetbook-backend/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another process is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX PX. The TTL bounds how long a crashed
// holder can block others.
type Redis struct {
	client    redis.UniversalClient
	ttl       time.Duration
	retryWait time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{client: client, ttl: ttl, retryWait: 25 * time.Millisecond}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	key = "lock:" + key
	token := uuid.NewString()
	wait := r.retryWait
	for {
		logger.ExternalServiceCall("redis", "lock", "key", key)
		ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			logger.ExternalServiceResult("redis", "lock", err, "key", key)
			return nil, domain.NewUnavailableError("failed to acquire "+key, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// Release even if the caller's context is already done.
					rctx, cancel := context.WithTimeout(context.Background(), time.Second)
					defer cancel()
					if err := releaseScript.Run(rctx, r.client, []string{key}, token).Err(); err != nil {
						logger.Warn("Failed to release redis lock", "key", key, "error", err)
					}
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, domain.NewUnavailableError("timed out waiting for "+key, ctx.Err())
		case <-time.After(wait):
		}
		if wait < 200*time.Millisecond {
			wait *= 2
		}
	}
}
