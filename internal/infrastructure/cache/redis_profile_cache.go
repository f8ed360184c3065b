package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"petadopt/internal/domain/entity"
	"petadopt/pkg/errors"
)

const profileKeyPrefix = "profile:"

// RedisProfileCache shares resolved profiles between API instances.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProfileCache(client *redis.Client, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{
		client: client,
		ttl:    ttl,
	}
}

// NewRedisClient connects and pings so a bad address fails at startup.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.TransientIO("Failed to connect to redis", err)
	}
	return client, nil
}

func (c *RedisProfileCache) Get(ctx context.Context, uid string) (*entity.Profile, bool, error) {
	raw, err := c.client.Get(ctx, profileKeyPrefix+uid).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.TransientIO("Failed to read profile cache", err)
	}

	var profile entity.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		// A corrupt entry is treated as a miss and overwritten on the next Set.
		return nil, false, nil
	}
	return &profile, true, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, profile *entity.Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return errors.Internal("Failed to encode profile", err)
	}
	if err := c.client.Set(ctx, profileKeyPrefix+profile.ID, raw, c.ttl).Err(); err != nil {
		return errors.TransientIO("Failed to write profile cache", err)
	}
	return nil
}

func (c *RedisProfileCache) Delete(ctx context.Context, uid string) error {
	if err := c.client.Del(ctx, profileKeyPrefix+uid).Err(); err != nil {
		return errors.TransientIO("Failed to evict profile cache", err)
	}
	return nil
}
