package providers

import (
	"context"
	"errors"
	"github.com/redis/go-redis/v9"
	"instametrics/internal/structures"
	"time"
)

const (
	redisKeyPrefix = "instametrics:"
	redisOpTimeout = 250 * time.Millisecond
)

// RedisCacheProvider shares cached responses between instances. Errors
// are logged and treated as misses.
type RedisCacheProvider struct {
	client *redis.Client
	ttl    time.Duration
	logger Logger
}

func NewRedisCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	client := redis.NewClient(&redis.Options{Addr: conf.Cache.RedisAddr})
	ttl := time.Duration(cacheTTLSeconds(conf)) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf(TypeApp, "Redis cache at %s unreachable: %s", conf.Cache.RedisAddr, err)
	} else {
		logger.Infof(TypeApp, "Redis cache initialized: %s, TTL=%s", conf.Cache.RedisAddr, ttl)
	}

	return &RedisCacheProvider{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCacheProvider) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnf(TypeApp, "Redis get %s: %s", key, err)
		}
		return nil, false
	}
	return val, true
}

func (c *RedisCacheProvider) Set(key string, value []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := c.client.Set(ctx, redisKeyPrefix+key, value, c.ttl).Err(); err != nil {
		c.logger.Warnf(TypeApp, "Redis set %s: %s", key, err)
	}
}

func (c *RedisCacheProvider) Close() error {
	return c.client.Close()
}
