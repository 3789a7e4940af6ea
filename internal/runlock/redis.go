package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLock locks with SET NX and a TTL. The TTL frees the lock of a
// crashed batch. Release only deletes the key while it still carries this
// instance's random token.
type RedisLock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
	owned  bool
}

// NewRedisLock creates a lock on key using an existing client.
// Close does not close the client.
func NewRedisLock(client *redis.Client, key string, ttl time.Duration) (*RedisLock, error) {
	token, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate lock token: %w", err)
	}
	return &RedisLock{
		client: client,
		key:    "lock:" + key,
		token:  token.String(),
		ttl:    ttlOrDefault(ttl),
	}, nil
}

func newOwnedRedisLock(client *redis.Client, key string, ttl time.Duration) (*RedisLock, error) {
	l, err := NewRedisLock(client, key, ttl)
	if err != nil {
		client.Close()
		return nil, err
	}
	l.owned = true
	return l, nil
}

// Key returns the redis key holding the lock.
func (l *RedisLock) Key() string { return l.key }

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", l.key, err)
	}
	return nil
}

func (l *RedisLock) Close() error {
	if !l.owned {
		return nil
	}
	return l.client.Close()
}
