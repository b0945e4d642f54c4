// Package cache caches resolved media metadata in Redis so a re-sent URL
// does not hit the extraction backend again within the TTL.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vidgrab/vidgrab/pkg/models"
)

// Cache provides metadata caching backed by Redis
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// SetMediaInfo caches a resolved media snapshot for its source URL
func (c *Cache) SetMediaInfo(ctx context.Context, url string, info *models.MediaInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal media info: %w", err)
	}

	return c.client.Set(ctx, mediaKey(url), data, c.ttl).Err()
}

// GetMediaInfo retrieves a cached media snapshot. A miss returns (nil, nil).
func (c *Cache) GetMediaInfo(ctx context.Context, url string) (*models.MediaInfo, error) {
	data, err := c.client.Get(ctx, mediaKey(url)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get media info from cache: %w", err)
	}

	var info models.MediaInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal media info: %w", err)
	}

	return &info, nil
}

// DeleteMediaInfo removes a cached media snapshot
func (c *Cache) DeleteMediaInfo(ctx context.Context, url string) error {
	return c.client.Del(ctx, mediaKey(url)).Err()
}

func mediaKey(url string) string {
	return fmt.Sprintf("media:%s", url)
}
