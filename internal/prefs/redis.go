package prefs

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/tphakala/imagelab/internal/errors"
)

// redisPingTimeout bounds the connectivity check in OpenRedis.
const redisPingTimeout = 5 * time.Second

// RedisStore keeps preferences as plain Redis strings under a key prefix.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
}

// OpenRedis connects to url (redis://[user:pass@]host:port/db) and checks
// connectivity.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, errors.New(err).
			Component("prefs").
			Category(errors.CategoryConfiguration).
			Context("backend", "redis").
			Build()
	}
	opts.DialTimeout = redisPingTimeout
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, backendError(err, "redis", "ping")
	}
	return NewRedisStore(rdb, prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *goredis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, backendError(err, "redis", "get")
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return backendError(err, "redis", "set")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return backendError(err, "redis", "delete")
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

var _ Store = (*RedisStore)(nil)
