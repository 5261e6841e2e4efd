package cryptorail

import (
	"errors"
	"testing"

	"github.com/congo-pay/paycore/internal/payment"
)

func TestValidateAddress(t *testing.T) {
	cases := []struct {
		name    string
		network payment.Network
		addr    string
		valid   bool
	}{
		{"p2pkh", payment.Bitcoin, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", true},
		{"p2sh", payment.Bitcoin, "3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy", true},
		{"bech32", payment.Bitcoin, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", true},
		{"bech32 upper", payment.Bitcoin, "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4", true},
		{"bad base58 checksum", payment.Bitcoin, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb", false},
		{"bad bech32 checksum", payment.Bitcoin, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t5", false},
		{"testnet bech32", payment.Bitcoin, "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx", false},
		{"evm on bitcoin", payment.Bitcoin, "0x52908400098527886E0F7030069857D2E4169EE7", false},
		{"garbage", payment.Bitcoin, "not-an-address", false},
		{"evm", payment.Ethereum, "0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"evm lower", payment.Polygon, "0x52908400098527886e0f7030069857d2e4169ee7", true},
		{"evm short", payment.BSC, "0x52908400098527886E0F7030069857D2E4169EE", false},
		{"evm no prefix", payment.Arbitrum, "0052908400098527886E0F7030069857D2E4169EE7", false},
		{"evm non hex", payment.Optimism, "0x52908400098527886E0F7030069857D2E4169EZZ", false},
		{"custom network", payment.Network("Solana"), "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T", true},
		{"empty", payment.Network("Solana"), "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAddress(tc.network, tc.addr)
			if tc.valid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.valid && !errors.Is(err, payment.ErrInvalidAddress) {
				t.Fatalf("expected invalid address, got %v", err)
			}
		})
	}
}
