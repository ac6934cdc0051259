package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func dataVersionKey(userID string) string { return key("data", "version", userID) }

func reportKey(userID string, version int64, name string) string {
	return key("report", userID, strconv.FormatInt(version, 10), name)
}

// DataVersion returns the user's current data version, 0 if never bumped.
func (c *Cache) DataVersion(ctx context.Context, userID string) (int64, error) {
	v, err := c.client.Get(ctx, dataVersionKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("get data version: %w", err)
	}
	return v, nil
}

// BumpDataVersion invalidates every cached report of the user.
// Old entries are left to expire.
func (c *Cache) BumpDataVersion(ctx context.Context, userID string) error {
	if err := c.client.Incr(ctx, dataVersionKey(userID)).Err(); err != nil {
		return fmt.Errorf("bump data version: %w", err)
	}
	return nil
}

// GetReport decodes a cached report into dest. Returns ErrCacheMiss when absent.
func (c *Cache) GetReport(ctx context.Context, userID string, version int64, name string, dest any) error {
	data, err := c.client.Get(ctx, reportKey(userID, version, name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("get report: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return ErrCacheMiss
	}
	return nil
}

// SetReport stores a computed report for ttl.
func (c *Cache) SetReport(ctx context.Context, userID string, version int64, name string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := c.client.Set(ctx, reportKey(userID, version, name), data, ttl).Err(); err != nil {
		return fmt.Errorf("set report: %w", err)
	}
	return nil
}
