// Package redisstore wraps the Redis primitives the spatial and routes
// stores are built on: plain GET/SET for item blobs, sorted sets for
// hash-prefix partition scans, and pub/sub for the redis-keyspace
// notification driver.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/droneroute/flightcore/internal/core/observability"
)

type Option func(*redis.Options)

func WithPoolSize(n int) Option {
	return func(o *redis.Options) { o.PoolSize = n }
}

func WithMinIdleConns(n int) Option {
	return func(o *redis.Options) { o.MinIdleConns = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.WriteTimeout = d }
}

type Client struct {
	rdb *redis.Client
}

func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     64,
		MinIdleConns: 4,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)

	start := time.Now()
	err := rdb.Ping(ctx).Err()
	observability.ObserveCacheOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Raw exposes the underlying client for callers that need Redis features
// this wrapper doesn't. The worker drivers do not use it; the redis-keyspace
// driver reads from a Subscribe PubSub.
func (c *Client) Raw() *redis.Client { return c.rdb }

// MGet returns a map of found keys to their values.
func (c *Client) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	start := time.Now()
	if len(keys) == 0 {
		observability.ObserveCacheOp("mget", nil, time.Since(start).Seconds())
		return map[string][]byte{}, nil
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	observability.ObserveCacheOp("mget", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis MGET %d keys: %w", len(keys), err)
	}

	out := make(map[string][]byte, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			out[keys[i]] = []byte(t)
		case []byte:
			out[keys[i]] = t
		default:
			out[keys[i]] = fmt.Append(nil, t)
		}
	}
	return out, nil
}

func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	start := time.Now()
	err := c.rdb.Set(ctx, key, val, ttl).Err()
	observability.ObserveCacheOp("set", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis SET %q: %w", key, err)
	}
	return nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := c.rdb.Del(ctx, keys...).Err()
	observability.ObserveCacheOp("del", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis DEL %d keys: %w", len(keys), err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

func (c *Client) MSetWithTTL(ctx context.Context, kv map[string][]byte, ttl time.Duration) error {
	start := time.Now()
	if len(kv) == 0 {
		observability.ObserveCacheOp("mset", nil, time.Since(start).Seconds())
		return nil
	}

	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range kv {
			if err := p.Set(ctx, k, v, ttl).Err(); err != nil {
				return fmt.Errorf("redis MSET pipeline SET %q: %w", k, err)
			}
		}
		return nil
	})

	observability.ObserveCacheOp("mset", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis MSET %d keys (pipeline): %w", len(kv), err)
	}
	return nil
}

// WriteItem is a single item/member pair staged in a partition write.
type WriteItem struct {
	SetKey   string // sorted-set key the member is indexed under
	ItemKey  string // item blob key
	ItemBlob []byte
	TTL      time.Duration
}

// WritePartitioned pipelines a batch of item writes together with their
// ZADD into the owning hash-prefix sorted set, every member scored with the
// caller-supplied score (the spatial store passes the write time in Unix
// nanoseconds). It is the primitive the spatial store's batched write path
// uses for groups of up to WriteBatchSize items.
func (c *Client) WritePartitioned(ctx context.Context, items []WriteItem, score float64) error {
	start := time.Now()
	if len(items) == 0 {
		observability.ObserveCacheOp("write_partitioned", nil, time.Since(start).Seconds())
		return nil
	}

	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, it := range items {
			if err := p.Set(ctx, it.ItemKey, it.ItemBlob, it.TTL).Err(); err != nil {
				return fmt.Errorf("pipeline SET %q: %w", it.ItemKey, err)
			}
			if err := p.ZAdd(ctx, it.SetKey, redis.Z{Score: score, Member: it.ItemKey}).Err(); err != nil {
				return fmt.Errorf("pipeline ZADD %q: %w", it.SetKey, err)
			}
		}
		return nil
	})

	observability.ObserveCacheOp("write_partitioned", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis write_partitioned %d items: %w", len(items), err)
	}
	return nil
}

// PartitionMembers returns every item key indexed in the sorted set at
// setKey, ordered by score and then lexicographically by member for equal
// scores, bounded to limit (0 means unbounded).
func (c *Client) PartitionMembers(ctx context.Context, setKey string, limit int) ([]string, error) {
	start := time.Now()
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	members, err := c.rdb.ZRange(ctx, setKey, 0, stop).Result()
	observability.ObserveCacheOp("zrange", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis ZRANGE %q: %w", setKey, err)
	}
	return members, nil
}

// Publish emits an event on channel, used by the submit path to signal the
// redis-keyspace worker driver of a newly inserted RouteRecord.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	start := time.Now()
	err := c.rdb.Publish(ctx, channel, payload).Err()
	observability.ObserveCacheOp("publish", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis PUBLISH %q: %w", channel, err)
	}
	return nil
}

// Subscribe returns a PubSub subscribed to channel. Callers must Close it.
func (c *Client) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channel)
}

// Ping satisfies health.Pinger for the readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
