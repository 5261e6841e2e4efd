package cryptorail

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/paycore/internal/payment"
)

// Config holds the per-network tables and pricing policy of the crypto rail.
type Config struct {
	// SupportedCurrencies lists accepted crypto codes. Empty accepts any code.
	SupportedCurrencies []payment.CryptoCurrency
	// SupportedNetworks lists accepted networks. Empty accepts any network.
	SupportedNetworks []payment.Network

	NetworkFees           map[payment.Network]decimal.Decimal
	DefaultNetworkFee     decimal.Decimal
	RequiredConfirmations map[payment.Network]uint32
	DefaultConfirmations  uint32

	// ProcessingRate is the share of the fiat value charged as processing fee.
	ProcessingRate decimal.Decimal
	// RateTolerance is the relative deviation between quoted and cached rate
	// above which a warning is raised.
	RateTolerance decimal.Decimal
	// MaxRateAge is the freshness limit for cached rates.
	MaxRateAge time.Duration
	// FiatMinorUnits converts whole fiat units to the smallest unit.
	FiatMinorUnits int64
	// QuoteCurrency is the fiat currency the price feed quotes in. Crypto
	// charges in any other fiat currency are rejected.
	QuoteCurrency string
}

// DefaultConfig returns the standard fee and confirmation tables.
func DefaultConfig() Config {
	return Config{
		SupportedCurrencies: []payment.CryptoCurrency{payment.BTC, payment.ETH, payment.USDC, payment.USDT, payment.DAI},
		SupportedNetworks: []payment.Network{
			payment.Bitcoin, payment.Ethereum, payment.Polygon, payment.BSC, payment.Arbitrum, payment.Optimism,
		},
		NetworkFees: map[payment.Network]decimal.Decimal{
			payment.Bitcoin:  decimal.RequireFromString("0.0001"),
			payment.Ethereum: decimal.RequireFromString("0.005"),
			payment.Polygon:  decimal.RequireFromString("0.0001"),
			payment.BSC:      decimal.RequireFromString("0.0001"),
			payment.Arbitrum: decimal.RequireFromString("0.0001"),
			payment.Optimism: decimal.RequireFromString("0.0001"),
		},
		DefaultNetworkFee: decimal.RequireFromString("0.001"),
		RequiredConfirmations: map[payment.Network]uint32{
			payment.Bitcoin:  6,
			payment.Ethereum: 12,
			payment.Polygon:  20,
			payment.BSC:      15,
			payment.Arbitrum: 12,
			payment.Optimism: 12,
		},
		DefaultConfirmations: 6,
		ProcessingRate:       decimal.RequireFromString("0.01"),
		RateTolerance:        decimal.RequireFromString("0.02"),
		MaxRateAge:           5 * time.Minute,
		FiatMinorUnits:       100,
		QuoteCurrency:        "usd",
	}
}

func (c Config) networkFee(n payment.Network) decimal.Decimal {
	if fee, ok := c.NetworkFees[n]; ok {
		return fee
	}
	return c.DefaultNetworkFee
}

func (c Config) requiredConfirmations(n payment.Network) uint32 {
	if req, ok := c.RequiredConfirmations[n]; ok && req > 0 {
		return req
	}
	if c.DefaultConfirmations == 0 {
		return 1
	}
	return c.DefaultConfirmations
}

func (c Config) supportsCurrency(cur payment.CryptoCurrency) bool {
	if len(c.SupportedCurrencies) == 0 {
		return true
	}
	for _, s := range c.SupportedCurrencies {
		if s == cur {
			return true
		}
	}
	return false
}

func (c Config) supportsNetwork(n payment.Network) bool {
	if len(c.SupportedNetworks) == 0 {
		return true
	}
	for _, s := range c.SupportedNetworks {
		if s == n {
			return true
		}
	}
	return false
}
