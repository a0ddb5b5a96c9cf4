// Package cache caches per-broker active lead counts in Redis. The counts
// decorate the broker directory and are purely informational, so a short
// TTL plus event-driven invalidation is enough.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leadCountKey = "users:leadcount:active"

// LeadCounts is the Redis-backed count cache. A nil client disables
// caching: every read is a miss and writes are dropped.
type LeadCounts struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeadCounts(client *redis.Client, ttl time.Duration) *LeadCounts {
	return &LeadCounts{client: client, ttl: ttl}
}

// Get returns the cached counts and whether the cache held them.
func (c *LeadCounts) Get(ctx context.Context) (map[uuid.UUID]int, bool, error) {
	if c.client == nil {
		return nil, false, nil
	}

	raw, err := c.client.Get(ctx, leadCountKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lead count cache get: %w", err)
	}

	var counts map[uuid.UUID]int
	if err := json.Unmarshal(raw, &counts); err != nil {
		// A corrupt entry is treated as a miss and overwritten on refill.
		return nil, false, nil
	}
	return counts, true, nil
}

// Set stores the counts with the configured TTL.
func (c *LeadCounts) Set(ctx context.Context, counts map[uuid.UUID]int) error {
	if c.client == nil {
		return nil
	}

	raw, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("lead count cache set: %w", err)
	}
	if err := c.client.Set(ctx, leadCountKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("lead count cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached counts so the next read refills them.
func (c *LeadCounts) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, leadCountKey).Err(); err != nil {
		return fmt.Errorf("lead count cache invalidate: %w", err)
	}
	return nil
}
