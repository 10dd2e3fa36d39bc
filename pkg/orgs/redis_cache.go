package orgs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is a SharedCache backed by Redis
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache creates a shared membership cache. Entries expire after ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "coachgate:membership",
	}
}

// NewRedisClient parses url and verifies the connection with a ping
func NewRedisClient(ctx context.Context, url string, poolSize int) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if poolSize > 0 {
		opts.PoolSize = poolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 500 * time.Millisecond
	opts.WriteTimeout = 500 * time.Millisecond

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func (c *RedisCache) key(userID, orgID string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, orgID, userID)
}

// Get retrieves a cached membership lookup along with its remaining TTL
func (c *RedisCache) Get(ctx context.Context, userID, orgID string) (*CacheEntry, error) {
	key := c.key(userID, orgID)

	pipe := c.client.TxPipeline()
	get := pipe.Get(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	data, err := get.Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal membership: %w", err)
	}
	// -1 (no expiry) and -2 (gone) come back as negative durations
	if remaining := pttl.Val(); remaining > 0 {
		entry.TTL = remaining
	}

	return &entry, nil
}

// Set stores a membership lookup
func (c *RedisCache) Set(ctx context.Context, userID, orgID string, entry CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal membership: %w", err)
	}
	return c.client.Set(ctx, c.key(userID, orgID), data, c.ttl).Err()
}

// Delete removes a membership lookup
func (c *RedisCache) Delete(ctx context.Context, userID, orgID string) error {
	return c.client.Del(ctx, c.key(userID, orgID)).Err()
}
