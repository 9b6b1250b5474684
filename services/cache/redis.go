package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/admissions/core"
)

type redisCache struct {
	client *redis.Client
	prefix string
}

var _ core.Cache = (*redisCache)(nil)

// NewRedisCache connects to conf.Redis.URL and checks the connection.
func NewRedisCache(ctx context.Context, conf *core.Config) (core.Cache, func() error, error) {
	opts, err := redis.ParseURL(conf.Redis.URL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing redis url")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, errors.Wrap(err, "pinging redis")
	}
	return &redisCache{client: client, prefix: conf.Redis.Prefix}, client.Close, nil
}

func (c *redisCache) key(k string) string {
	return c.prefix + k
}

func (c *redisCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return core.ErrCacheMiss
		}
		return errors.Wrap(err, "getting cache key")
	}
	return errors.Wrap(json.Unmarshal(data, dest), "decoding cached value")
}

func (c *redisCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encoding cache value")
	}
	return errors.Wrap(c.client.Set(ctx, c.key(key), data, ttl).Err(), "setting cache key")
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, c.key(k))
	}
	return errors.Wrap(c.client.Del(ctx, prefixed...).Err(), "deleting cache keys")
}
