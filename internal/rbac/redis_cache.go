package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "teamscope:permissions:"

// NewRedisClient connects to the server named by a redis:// URL.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return client, nil
}

// RedisCache shares permission sets between API instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, key Key) ([]string, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key.String()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("permission cache read failed", zap.String("key", key.String()), zap.Error(err))
		}
		return nil, false
	}

	var perms []string
	if err := json.Unmarshal(data, &perms); err != nil {
		c.logger.Warn("permission cache entry corrupt", zap.String("key", key.String()), zap.Error(err))
		return nil, false
	}
	return perms, true
}

func (c *RedisCache) Set(ctx context.Context, key Key, perms []string) {
	if perms == nil {
		perms = []string{}
	}
	data, err := json.Marshal(perms)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key.String(), data, c.ttl).Err(); err != nil {
		c.logger.Warn("permission cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
}

func (c *RedisCache) Forget(ctx context.Context, key Key) {
	if err := c.client.Del(ctx, redisKeyPrefix+key.String()).Err(); err != nil {
		c.logger.Warn("permission cache delete failed", zap.String("key", key.String()), zap.Error(err))
	}
}

func (c *RedisCache) Flush(ctx context.Context) {
	var keys []string
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("permission cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("permission cache flush failed", zap.Error(err))
	}
}
