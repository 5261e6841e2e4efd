package pricefeed

import (
	"context"
	"sync"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"
)

type memoryCache struct {
	mu     sync.RWMutex
	clk    clock.Clock
	quotes map[string]Quote
}

// NewMemory creates a concurrency-safe in-process rate table. A nil clock uses
// the wall clock.
func NewMemory(clk clock.Clock) Cache {
	if clk == nil {
		clk = clock.New()
	}
	return &memoryCache{clk: clk, quotes: make(map[string]Quote)}
}

func (c *memoryCache) Get(_ context.Context, currency string) (Quote, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[normalize(currency)]
	return q, ok, nil
}

func (c *memoryCache) Set(_ context.Context, currency string, rate decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[normalize(currency)] = Quote{Rate: rate, ObservedAt: c.clk.Now().UTC()}
	return nil
}
