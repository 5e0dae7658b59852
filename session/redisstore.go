package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisClient is the part of the redis client the store uses. *redis.Client satisfies it.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps sessions in redis, each expiring after the TTL since it was last put.
type RedisStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client RedisClient, prefix string, ttl time.Duration) *RedisStore {
	if len(prefix) == 0 {
		prefix = "plug:session:"
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// NewRedisClient connects to the redis server by its URL, e.g. redis://localhost:6379/0.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}

	return redis.NewClient(opts), nil
}

func (r *RedisStore) Get(ctx context.Context, sid string) (string, map[string]any, error) {
	raw, err := r.client.Get(ctx, r.prefix+sid).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil, nil
	case err != nil:
		return "", nil, errors.Wrapf(err, "get session %s", sid)
	}

	data, err := decode(raw)
	if err != nil {
		return "", nil, nil
	}

	return sid, data, nil
}

func (r *RedisStore) Put(ctx context.Context, sid string, data map[string]any) (string, error) {
	if len(sid) == 0 {
		sid = newSID()
	}

	raw, err := encode(data)
	if err != nil {
		return "", err
	}

	if err = r.client.Set(ctx, r.prefix+sid, raw, r.ttl).Err(); err != nil {
		return "", errors.Wrapf(err, "put session %s", sid)
	}

	return sid, nil
}

func (r *RedisStore) Delete(ctx context.Context, sid string) error {
	return errors.Wrapf(r.client.Del(ctx, r.prefix+sid).Err(), "delete session %s", sid)
}
