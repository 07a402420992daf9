package cache

import (
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"
)

type Entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Single returns the cached value for key, refreshing it through fn at most
// once per ttl across concurrent callers.
func Single[T any](
	c *xsync.Map[string, Entry[T]],
	sfg *singleflight.Group,
	key string,
	ttl time.Duration,
	fn func() (T, error),
) (T, error) {
	if e, ok := c.Load(key); ok && time.Since(e.fetchedAt) <= ttl {
		return e.value, nil
	}

	v, err, _ := sfg.Do(key, func() (any, error) {
		if e, ok := c.Load(key); ok && time.Since(e.fetchedAt) <= ttl {
			return e, nil
		}
		res, err := fn()
		if err != nil {
			return Entry[T]{}, err
		}
		e := Entry[T]{value: res, fetchedAt: time.Now()}
		c.Store(key, e)
		return e, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(Entry[T]).value, nil
}
