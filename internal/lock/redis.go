package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RedisLock is a best-effort SET NX lock. The database transaction stays the
// authority on slot occupancy; the lock only turns concurrent bookings of the
// same slot into a fast Locked reply.
type RedisLock struct {
	client redis.UniversalClient
	owner  string
}

func NewRedisLock(client redis.UniversalClient, owner string) *RedisLock {
	if owner == "" {
		owner = "1"
	}

	return &RedisLock{client: client, owner: owner}
}

// unlockScript deletes the key only if this instance still owns it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	const op = "lock.RedisLock.Lock"

	lockKey := fmt.Sprintf("lock:%s", key)
	result, err := r.client.SetNX(ctx, lockKey, r.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	const op = "lock.RedisLock.Unlock"

	lockKey := fmt.Sprintf("lock:%s", key)
	if err := unlockScript.Run(ctx, r.client, []string{lockKey}, r.owner).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
