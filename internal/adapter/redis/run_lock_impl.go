package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/user/stay-harvester/internal/repository"
)

const runLockKey = "harvester:run_lock"

// releaseScript deletes the lock only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLockImpl provides a concrete implementation for the RunLock interface using Redis.
type RunLockImpl struct {
	client *redis.Client
}

// NewRunLock creates a new instance of RunLockImpl.
func NewRunLock(client *redis.Client) *RunLockImpl {
	return &RunLockImpl{client: client}
}

// Acquire sets the lock key with SET NX and a TTL, so a crashed run frees it
// eventually.
func (r *RunLockImpl) Acquire(ctx context.Context, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, runLockKey, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", repository.ErrLockHeld
	}
	return token, nil
}

func (r *RunLockImpl) Release(ctx context.Context, token string) error {
	return releaseScript.Run(ctx, r.client, []string{runLockKey}, token).Err()
}
