package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface. Values are stored as JSON.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Outcome describes how GetOrLoad produced its value.
type Outcome string

const (
	Hit   Outcome = "hit"
	Miss  Outcome = "miss"
	Error Outcome = "error" // cache read failed, value was loaded
)

// GetOrLoad returns the cached value for key or calls load and stores its
// result. A failing cache never fails the call; load errors are returned
// as-is and nothing is stored.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, Outcome, error) {
	var v T
	outcome := Miss
	if err := c.Get(ctx, key, &v); err == nil {
		return v, Hit, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		outcome = Error
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, outcome, err
	}
	_ = c.Set(ctx, key, v, ttl)
	return v, outcome, nil
}
