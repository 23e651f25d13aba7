package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/facilityreservation/backend/internal/infrastructure/clients/redis"
)

const (
	redisLockPrefix   = "lock:"
	redisLockPoll     = 25 * time.Millisecond
	redisUnlockBudget = 2 * time.Second
)

// unlockScript deletes the lock only when it still carries our token
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a Locker shared by every API instance pointed at the same Redis.
// Locks expire after ttl so a crashed holder cannot block a facility forever.
type RedisLock struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLock creates a Redis-backed Locker
func NewRedisLock(client *redisclient.Client, ttl, wait time.Duration) *RedisLock {
	return &RedisLock{client: client.Client(), ttl: ttl, wait: wait}
}

var _ providers.Locker = (*RedisLock)(nil)

// Lock polls SET NX PX until the lock is taken, the wait expires or ctx is done
func (l *RedisLock) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisLockPrefix + key
	token := uuid.NewString()

	deadline := time.Now().Add(l.wait)
	ticker := time.NewTicker(redisLockPoll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if l.wait > 0 && time.Now().After(deadline) {
			return nil, providers.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), redisUnlockBudget)
		defer cancel()
		if err := unlockScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil && err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to release lock")
		}
	}, nil
}
