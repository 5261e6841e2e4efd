package pricefeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a cached fiat rate for one unit of a currency.
type Quote struct {
	Rate       decimal.Decimal
	ObservedAt time.Time
}

// Cache is a currency to rate table with observation timestamps. It applies no
// freshness policy of its own.
type Cache interface {
	Get(ctx context.Context, currency string) (Quote, bool, error)
	Set(ctx context.Context, currency string, rate decimal.Decimal) error
}

func normalize(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ParseRates parses a "BTC=45000,ETH=3000" list.
func ParseRates(s string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		code, raw, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("invalid rate entry %q", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid rate for %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive", code)
		}
		out[normalize(code)] = rate
	}
	return out, nil
}

// Seed writes a static rate table into the cache.
func Seed(ctx context.Context, cache Cache, rates map[string]decimal.Decimal) error {
	for code, rate := range rates {
		if err := cache.Set(ctx, code, rate); err != nil {
			return fmt.Errorf("seed rate %s: %w", code, err)
		}
	}
	return nil
}
