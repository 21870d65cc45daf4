package memorystore

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore is Backend A (network KV, §4.9). A failed initial ping
// latches the store into a disabled state: every write becomes a no-op
// success and every read reports "not found" rather than erroring, so
// memory degrades gracefully instead of taking the request path down.
type redisStore struct {
	client   *redis.Client
	disabled atomic.Bool
}

// NewRedisStore dials the given Redis URL and pings it once; a failed
// ping disables the store rather than returning an error.
func NewRedisStore(ctx context.Context, url string) (Store, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	s := &redisStore{client: redis.NewClient(opt)}
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.disabled.Store(true)
	}
	return s, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if s.disabled.Load() {
		return "", false, nil
	}
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, nil
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.disabled.Load() {
		return nil
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if s.disabled.Load() {
		return nil
	}
	return s.client.Del(ctx, key).Err()
}

func (s *redisStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.disabled.Load() {
		return false, nil
	}
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *redisStore) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(v), out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *redisStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	enc, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(enc), ttl)
}

func (s *redisStore) RPush(ctx context.Context, key string, value string) error {
	if s.disabled.Load() {
		return nil
	}
	return s.client.RPush(ctx, key, value).Err()
}

func (s *redisStore) LPush(ctx context.Context, key string, value string) error {
	if s.disabled.Load() {
		return nil
	}
	return s.client.LPush(ctx, key, value).Err()
}

func (s *redisStore) LRange(ctx context.Context, key string, start, end int) ([]string, error) {
	if s.disabled.Load() {
		return nil, nil
	}
	return s.client.LRange(ctx, key, int64(start), int64(end)).Result()
}

func (s *redisStore) LLen(ctx context.Context, key string) (int, error) {
	if s.disabled.Load() {
		return 0, nil
	}
	n, err := s.client.LLen(ctx, key).Result()
	return int(n), err
}

func (s *redisStore) LTrim(ctx context.Context, key string, start, end int) error {
	if s.disabled.Load() {
		return nil
	}
	return s.client.LTrim(ctx, key, int64(start), int64(end)).Err()
}

func (s *redisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if s.disabled.Load() {
		return nil
	}
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *redisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if s.disabled.Load() {
		return -2 * time.Second, nil
	}
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return -2 * time.Second, nil
	}
	if d < 0 {
		// go-redis reports the -1/-2 sentinels as raw nanosecond durations;
		// scale them to seconds to match the SQLite backend.
		return d * time.Second, nil
	}
	return d, nil
}

func (s *redisStore) Incr(ctx context.Context, key string) (int64, error) {
	if s.disabled.Load() {
		return 0, nil
	}
	return s.client.Incr(ctx, key).Result()
}

func (s *redisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	if s.disabled.Load() {
		return nil, nil
	}
	return s.client.Keys(ctx, pattern).Result()
}

func (s *redisStore) FlushAll(ctx context.Context) error {
	if s.disabled.Load() {
		return nil
	}
	return s.client.FlushAll(ctx).Err()
}
