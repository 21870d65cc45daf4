// Package memorystore implements the §4.9 key-value/list capability
// behind one interface over two interchangeable backends: a network KV
// (Redis) and an embedded file database (SQLite). Both backends share
// these semantics — set-with-ttl is atomic, ttl(-2 absent, -1 no
// expiry), keys() supports only "*" wildcards, and list operations are
// 0-indexed and dense after ltrim. They differ in one respect: on the
// SQLite backend expire() applies only to plain keys, so lists never
// expire there.
package memorystore

import (
	"context"
	"time"
)

// Store is the abstract capability both backends implement.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error

	RPush(ctx context.Context, key string, value string) error
	LPush(ctx context.Context, key string, value string) error
	LRange(ctx context.Context, key string, start, end int) ([]string, error)
	LLen(ctx context.Context, key string) (int, error)
	LTrim(ctx context.Context, key string, start, end int) error

	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Incr(ctx context.Context, key string) (int64, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	FlushAll(ctx context.Context) error
}

// normalizeRange resolves Python/Redis-style inclusive start/end list
// indices (negative means "from the end", -1 means "to end") against a
// concrete length, clamping to valid bounds.
func normalizeRange(start, end, length int) (int, int) {
	if start < 0 {
		start += length
	}
	if end < 0 {
		end += length
	}
	if start < 0 {
		start = 0
	}
	if end >= length {
		end = length - 1
	}
	return start, end
}
