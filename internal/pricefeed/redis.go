package pricefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/facebookgo/clock"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	keyPrefix       = "pricefeed:v1:"
	fieldRate       = "rate"
	fieldObservedAt = "observed_at"
)

// RedisCache shares the rate table between host processes. Each currency is
// stored as a hash holding the rate and its observation time.
type RedisCache struct {
	client *redis.Client
	clk    clock.Clock
}

// NewRedis builds a Redis-backed cache. A nil clock uses the wall clock.
func NewRedis(client *redis.Client, clk clock.Clock) *RedisCache {
	if clk == nil {
		clk = clock.New()
	}
	return &RedisCache{client: client, clk: clk}
}

// Get returns the cached quote, or ok=false when nothing is stored.
func (c *RedisCache) Get(ctx context.Context, currency string) (Quote, bool, error) {
	fields, err := c.client.HGetAll(ctx, keyPrefix+normalize(currency)).Result()
	if err != nil {
		return Quote{}, false, fmt.Errorf("read rate: %w", err)
	}
	raw, ok := fields[fieldRate]
	if !ok {
		return Quote{}, false, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return Quote{}, false, fmt.Errorf("decode rate: %w", err)
	}
	observedAt, err := time.Parse(time.RFC3339Nano, fields[fieldObservedAt])
	if err != nil {
		return Quote{}, false, fmt.Errorf("decode observed_at: %w", err)
	}
	return Quote{Rate: rate, ObservedAt: observedAt.UTC()}, true, nil
}

// Set stores the rate stamped with the current time.
func (c *RedisCache) Set(ctx context.Context, currency string, rate decimal.Decimal) error {
	err := c.client.HSet(ctx, keyPrefix+normalize(currency), map[string]any{
		fieldRate:       rate.String(),
		fieldObservedAt: c.clk.Now().UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return fmt.Errorf("write rate: %w", err)
	}
	return nil
}
