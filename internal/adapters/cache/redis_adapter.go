package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/pediatric-clinic/internal/domain/providers"
	redisclient "github.com/zatekoja/pediatric-clinic/internal/infrastructure/clients/redis"
)

// RedisAdapter implements CacheProvider on Redis strings. Every key is
// namespaced with prefix so several deployments can share one server.
type RedisAdapter struct {
	client redis.Cmdable
	prefix string
}

// NewRedisAdapter creates a new Redis cache adapter
func NewRedisAdapter(client *redisclient.Client, prefix string) providers.CacheProvider {
	return NewRedisAdapterFromCmdable(client.Client(), prefix)
}

// NewRedisAdapterFromCmdable builds the adapter on any go-redis command set
func NewRedisAdapterFromCmdable(client redis.Cmdable, prefix string) *RedisAdapter {
	return &RedisAdapter{client: client, prefix: prefix}
}

// Get returns the value under key
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Get(ctx, a.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return result, nil
}

// Set stores value under key; a non-positive ttl keeps it until deleted
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := a.client.Set(ctx, a.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Touch restarts the expiry of key
func (a *RedisAdapter) Touch(ctx context.Context, key string, ttl time.Duration) error {
	var (
		ok  bool
		err error
	)
	if ttl > 0 {
		ok, err = a.client.Expire(ctx, a.prefix+key, ttl).Result()
	} else {
		ok, err = a.client.Persist(ctx, a.prefix+key).Result()
		if err == nil && !ok {
			// PERSIST reports false for keys without expiry too
			n, existsErr := a.client.Exists(ctx, a.prefix+key).Result()
			ok, err = n > 0, existsErr
		}
	}
	if err != nil {
		return fmt.Errorf("redis touch %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", providers.ErrCacheMiss, key)
	}
	return nil
}

// Delete removes key
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, a.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
