package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache holds derived read models (the dashboard report) as JSON. Entries
// are disposable: a miss, an undecodable entry and a failed write all fall
// back to the loader.
type Cache struct {
	rdb *redis.Client
	sf  singleflight.Group
}

func New(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

func (c *Cache) raw(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return b, true, nil
}

// GetJSON decodes the entry at key. A corrupt entry reads as a miss.
func GetJSON[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var out T

	b, ok, err := c.raw(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}

	if err := json.Unmarshal(b, &out); err != nil {
		var zero T
		return zero, false, nil
	}

	return out, true, nil
}

func SetJSON(ctx context.Context, c *Cache, key string, val any, ttl time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// GetOrSetJSON returns the cached value or loads it once per key across
// concurrent callers. Loader errors are returned and never cached.
func GetOrSetJSON[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	loader func(ctx context.Context) (T, error),
) (T, error) {
	var zero T

	if v, ok, err := GetJSON[T](ctx, c, key); err != nil || ok {
		return v, err
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		if cached, ok, err := GetJSON[T](ctx, c, key); err != nil || ok {
			return cached, err
		}

		fresh, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		_ = SetJSON(ctx, c, key, fresh, ttl)

		return fresh, nil
	})
	if err != nil {
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: unexpected value type %T for %s", v, key)
	}

	return out, nil
}

// InvalidateStats drops the all-venues report and the report scoped to
// resourceID for the anchor month.
func (c *Cache) InvalidateStats(ctx context.Context, resourceID int64, anchor time.Time) error {
	return c.rdb.Unlink(ctx, KeyMonthlyStats(0, anchor), KeyMonthlyStats(resourceID, anchor)).Err()
}
