package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache caches served price categories
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisCache wraps client. A zero ttl keeps entries until evicted.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetCategory returns the cached category for key, reporting false on a miss
func (c *RedisCache) GetCategory(ctx context.Context, key string) (int, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read cache: %w", err)
	}
	category, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("invalid cached category %q: %w", val, err)
	}
	return category, true, nil
}

// SetCategory stores category under key
func (c *RedisCache) SetCategory(ctx context.Context, key string, category int) error {
	if err := c.client.Set(ctx, key, strconv.Itoa(category), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}
