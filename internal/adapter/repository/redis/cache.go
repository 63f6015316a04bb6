package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/emiledger/internal/usecase"
)

// setIfNewerScript writes the value (KEYS[1]) and its version (KEYS[2])
// unless the stored version is already at or past ARGV[1].
var setIfNewerScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if current and tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[3])
return 1
`)

// Cache implements usecase.Cache using Redis.
type Cache struct {
	client redis.UniversalClient
	prefix string
}

// NewCache creates a new Cache.
func NewCache(client redis.UniversalClient) *Cache {
	return &Cache{
		client: client,
		prefix: "cache:",
	}
}

// dataKey hash-tags the key so value and version share a cluster slot.
func (c *Cache) dataKey(key string) string {
	return c.prefix + "{" + key + "}"
}

func (c *Cache) versionKey(key string) string {
	return c.dataKey(key) + ":version"
}

// Get retrieves a value by key, returning usecase.ErrCacheMiss when absent.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.dataKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, usecase.ErrCacheMiss
	}
	return val, err
}

// SetIfNewer stores value with TTL unless a same or later version is cached.
func (c *Cache) SetIfNewer(ctx context.Context, key string, version int64, value []byte, ttl time.Duration) (bool, error) {
	if ttl < time.Millisecond {
		return false, errors.New("cache ttl must be at least 1ms")
	}

	written, err := setIfNewerScript.Run(ctx, c.client,
		[]string{c.dataKey(key), c.versionKey(key)},
		version, value, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return written == 1, nil
}

// Delete removes a key and its version.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.dataKey(key), c.versionKey(key)).Err()
}
