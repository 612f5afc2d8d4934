package worker

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisKeyspaceDriver drains the routes store's insert-signal channel and
// hands each id to the worker. This is the default driver: the routes
// store's own PUBLISH on create stands in for a native INSERT-only change
// feed.
type RedisKeyspaceDriver struct {
	worker *Worker
	sub    *redis.PubSub
}

func NewRedisKeyspaceDriver(w *Worker, sub *redis.PubSub) *RedisKeyspaceDriver {
	return &RedisKeyspaceDriver{worker: w, sub: sub}
}

// Run blocks, processing insert signals until ctx is canceled.
func (d *RedisKeyspaceDriver) Run(ctx context.Context) error {
	ch := d.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := d.worker.ProcessInsert(ctx, msg.Payload); err != nil {
				d.worker.log.Warn().Err(err).Str("routeId", msg.Payload).Msg("redis-keyspace driver: process insert failed")
			}
		}
	}
}
