package payment

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CryptoCurrency is a cryptocurrency ticker. Codes outside the predefined set
// are allowed and treated as custom currencies.
type CryptoCurrency string

const (
	BTC  CryptoCurrency = "BTC"
	ETH  CryptoCurrency = "ETH"
	USDC CryptoCurrency = "USDC"
	USDT CryptoCurrency = "USDT"
	DAI  CryptoCurrency = "DAI"
)

// ParseCryptoCurrency normalises a ticker to its canonical upper-case form.
func ParseCryptoCurrency(s string) CryptoCurrency {
	return CryptoCurrency(strings.ToUpper(strings.TrimSpace(s)))
}

func (c CryptoCurrency) String() string { return string(c) }

// Network is a blockchain network name.
type Network string

const (
	Bitcoin  Network = "Bitcoin"
	Ethereum Network = "Ethereum"
	Polygon  Network = "Polygon"
	BSC      Network = "BSC"
	Arbitrum Network = "Arbitrum"
	Optimism Network = "Optimism"
)

func (n Network) String() string { return string(n) }

// Family groups networks sharing an address grammar.
type Family string

const (
	FamilyBitcoin Family = "bitcoin"
	FamilyEVM     Family = "evm"
	FamilyOther   Family = "other"
)

// Family reports the address family of the network.
func (n Network) Family() Family {
	switch n {
	case Bitcoin:
		return FamilyBitcoin
	case Ethereum, Polygon, BSC, Arbitrum, Optimism:
		return FamilyEVM
	default:
		return FamilyOther
	}
}

// ParseNetwork maps case-insensitive names and common aliases to a Network.
func ParseNetwork(s string) Network {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bitcoin", "btc":
		return Bitcoin
	case "ethereum", "eth":
		return Ethereum
	case "polygon", "matic":
		return Polygon
	case "bsc", "binancesmartchain", "binance-smart-chain", "bnb":
		return BSC
	case "arbitrum":
		return Arbitrum
	case "optimism":
		return Optimism
	default:
		return Network(strings.TrimSpace(s))
	}
}

// CryptoDetails is a fully specified crypto quote.
type CryptoDetails struct {
	Currency      CryptoCurrency  `json:"currency"`
	Network       Network         `json:"network"`
	WalletAddress string          `json:"wallet_address"`
	AmountCrypto  decimal.Decimal `json:"amount_crypto"`
	ExchangeRate  decimal.Decimal `json:"exchange_rate"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// Method selects the settlement rail. The set of implementations is closed:
// Card and Crypto.
type Method interface {
	Rail() string
	isMethod()
}

const (
	RailCard   = "card"
	RailCrypto = "crypto"
)

// Card settles through the card intermediary.
type Card struct{}

// Crypto settles on-chain with the given quote.
type Crypto struct {
	Details CryptoDetails
}

func (Card) Rail() string   { return RailCard }
func (Crypto) Rail() string { return RailCrypto }

func (Card) isMethod()   {}
func (Crypto) isMethod() {}
