package cache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another instance")

// releaseScript deletes the lock only if the caller still owns it.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// Lock is a held distributed lock.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// AcquireLock takes the named lock for ttl with SET NX PX.
func (c *Cache) AcquireLock(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	token, err := lockToken()
	if err != nil {
		return nil, err
	}

	k := key("lock", name)
	ok, err := c.client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: c.client, key: k, token: token}, nil
}

// Release frees the lock if it was not lost to expiry.
func (l *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

func lockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
