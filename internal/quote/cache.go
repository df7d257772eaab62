package quote

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "quote:v1:"

// Cache stores comparisons in Redis as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client or non-positive ttl disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Key builds the cache key for an outward code and volume.
func Key(outward string, volume float64) string {
	return keyPrefix + strings.ToUpper(outward) + ":" + strconv.FormatFloat(volume, 'f', -1, 64)
}

// Get loads the cached comparison for key and reports whether it existed.
func (c *Cache) Get(ctx context.Context, key string) (Comparison, bool, error) {
	if !c.enabled() {
		return Comparison{}, false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Comparison{}, false, nil
	}
	if err != nil {
		return Comparison{}, false, err
	}
	var cmp Comparison
	if err := json.Unmarshal(data, &cmp); err != nil {
		return Comparison{}, false, err
	}
	return cmp, true, nil
}

// Set stores cmp under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, cmp Comparison) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(cmp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate removes every cached comparison and returns the number of keys deleted.
func (c *Cache) Invalidate(ctx context.Context) (int, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}
