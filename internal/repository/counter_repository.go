package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CounterStore atomically increments the integer stored at key by one and
// returns the new value.  A missing key counts as 0 before the increment.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// CounterRepo keeps hit counters in Redis.  Concurrent increments are
// serialized by the server; nothing is locked here.
type CounterRepo struct{ RDB redis.Cmdable }

func NewCounterRepo(rdb redis.Cmdable) *CounterRepo { return &CounterRepo{RDB: rdb} }

// Incr issues a single INCR.  Dial failures, timeouts and replies such as
// WRONGTYPE are all reported as ErrStoreUnavailable.
func (r *CounterRepo) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.RDB.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: redis incr %q: %v", ErrStoreUnavailable, key, err)
	}
	return n, nil
}
