package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/anayu15/mi-gestor-sub003/internal/model"
)

// AuthCacheTTL is how long a verified key stays cached.
const AuthCacheTTL = 5 * time.Minute

func authKey(cacheKey string) string { return key("auth", "ctx", cacheKey) }

// authIndexKey holds the cache keys derived from one API key so that
// revoking the key can drop them without knowing the plaintext.
func authIndexKey(keyID string) string { return key("auth", "key", keyID) }

// GetAuthContext returns the cached auth context for cacheKey, or nil on a miss.
// Corrupt entries are treated as misses.
func (c *Cache) GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authKey(cacheKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auth context: %w", err)
	}

	var authCtx model.AuthContext
	if err := json.Unmarshal(data, &authCtx); err != nil {
		return nil, nil //nolint:nilerr
	}
	return &authCtx, nil
}

// SetAuthContext caches an auth context and indexes it by key ID.
func (c *Cache) SetAuthContext(ctx context.Context, cacheKey string, authCtx *model.AuthContext) error {
	data, err := json.Marshal(authCtx)
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	idx := authIndexKey(authCtx.KeyID)
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, authKey(cacheKey), data, AuthCacheTTL)
	pipe.SAdd(ctx, idx, cacheKey)
	pipe.Expire(ctx, idx, AuthCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set auth context: %w", err)
	}
	return nil
}

// InvalidateAPIKey drops every cached auth context of a key.
// Called on revoke and rotate.
func (c *Cache) InvalidateAPIKey(ctx context.Context, keyID string) error {
	idx := authIndexKey(keyID)
	members, err := c.client.SMembers(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("list auth cache entries: %w", err)
	}

	keys := make([]string, 0, len(members)+1)
	for _, m := range members {
		keys = append(keys, authKey(m))
	}
	keys = append(keys, idx)

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete auth cache entries: %w", err)
	}
	return nil
}
