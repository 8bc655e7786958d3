// Package cache keeps public trace records in Redis so repeated scans of the
// same label do not hit the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"shrimp-trace/internal/traceability"
)

const (
	DefaultPrefix = "trace:"
	DefaultTTL    = 10 * time.Minute
)

// TraceCache is a cache-aside store of traceability records keyed by batch
// number.
type TraceCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	hits   atomic.Uint64
	misses atomic.Uint64
}

type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

func NewTraceCache(client *redis.Client, prefix string, ttl time.Duration) *TraceCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TraceCache{client: client, prefix: prefix, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *TraceCache) key(batchNumber string) string {
	return c.prefix + batchNumber
}

func (c *TraceCache) Get(ctx context.Context, batchNumber string) (*traceability.Record, bool, error) {
	data, err := c.client.Get(ctx, c.key(batchNumber)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var rec traceability.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("cache unmarshal: %w", err)
	}
	c.hits.Add(1)
	return &rec, true, nil
}

func (c *TraceCache) Set(ctx context.Context, rec *traceability.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.key(rec.BatchNumber), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *TraceCache) Delete(ctx context.Context, batchNumber string) error {
	if err := c.client.Del(ctx, c.key(batchNumber)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

func (c *TraceCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

func (c *TraceCache) Close() error {
	return c.client.Close()
}
