package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

// GetJSON loads the value at key into dest. Returns false when the key is
// absent or the cache is unavailable.
func GetJSON(ctx context.Context, key string, dest any) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			observability.RecordErrorInContext(ctx, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// Stale or corrupt entry; drop it so the next read repopulates.
		client.Del(ctx, key)
		return false
	}
	return true
}

// SetJSON stores value at key with the given TTL. Failures are swallowed;
// the cache is best effort.
func SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	client.Set(ctx, key, raw, ttl)
}

// Aside implements the cache-aside pattern: load key into dest on a hit,
// otherwise call fill (which is expected to populate dest) and store the
// result under key.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fill func() error) error {
	if GetJSON(ctx, key, dest) {
		observability.RecordCacheHit(key)
		return nil
	}
	observability.RecordCacheMiss(key)

	if err := fill(); err != nil {
		return err
	}
	SetJSON(ctx, key, dest, ttl)
	return nil
}
