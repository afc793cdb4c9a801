// Package cache keeps the rendered gallery list in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/artfolio/gallery/internal/photo"
)

// KeyGeneration counts list invalidations. The list itself is stored under
// KeyPhotos suffixed with the generation it was read in.
const (
	KeyGeneration = "gallery:photos:gen"
	KeyPhotos     = "gallery:photos"
)

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// PhotoCache caches the list of photo views.
type PhotoCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewPhotoCache returns a cache that expires entries after ttl.
func NewPhotoCache(client redis.Cmdable, ttl time.Duration) *PhotoCache {
	return &PhotoCache{client: client, ttl: ttl}
}

// Get returns the list cached for the current generation along with that
// generation. ok is false on a miss.
func (c *PhotoCache) Get(ctx context.Context) ([]photo.View, int64, bool, error) {
	gen, err := c.client.Get(ctx, KeyGeneration).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, fmt.Errorf("get photos generation: %w", err)
	}

	data, err := c.client.Get(ctx, listKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("get photos cache: %w", err)
	}
	var views []photo.View
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, gen, false, fmt.Errorf("unmarshal photos cache: %w", err)
	}
	return views, gen, true, nil
}

// Set stores views under gen for the configured ttl. A list read before an
// Invalidate lands under a generation nobody looks up any more.
func (c *PhotoCache) Set(ctx context.Context, gen int64, views []photo.View) error {
	data, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("marshal photos cache: %w", err)
	}
	if err := c.client.Set(ctx, listKey(gen), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set photos cache: %w", err)
	}
	return nil
}

// Invalidate moves to the next generation.
func (c *PhotoCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, KeyGeneration).Err(); err != nil {
		return fmt.Errorf("incr photos generation: %w", err)
	}
	return nil
}

func listKey(gen int64) string {
	return KeyPhotos + ":" + strconv.FormatInt(gen, 10)
}
