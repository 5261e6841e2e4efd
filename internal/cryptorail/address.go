package cryptorail

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/common"

	"github.com/congo-pay/paycore/internal/payment"
)

const (
	p2pkhVersion = 0x00
	p2shVersion  = 0x05
	bech32HRP    = "bc"
)

// ValidateAddress checks addr against the grammar of the network's family.
// Networks outside the known families accept any non-empty address.
func ValidateAddress(network payment.Network, addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: empty address", payment.ErrInvalidAddress)
	}
	var ok bool
	switch network.Family() {
	case payment.FamilyBitcoin:
		ok = validBase58(addr) || validBech32(addr)
	case payment.FamilyEVM:
		ok = validEVM(addr)
	default:
		ok = strings.TrimSpace(addr) != ""
	}
	if !ok {
		return fmt.Errorf("%w: %q is not a %s address", payment.ErrInvalidAddress, addr, network)
	}
	return nil
}

func validBase58(addr string) bool {
	if len(addr) < 26 || len(addr) > 35 {
		return false
	}
	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return false
	}
	return (version == p2pkhVersion || version == p2shVersion) && len(payload) == 20
}

func validBech32(addr string) bool {
	if !strings.HasPrefix(strings.ToLower(addr), bech32HRP+"1") {
		return false
	}
	hrp, data, err := bech32.Decode(addr)
	if err != nil || hrp != bech32HRP || len(data) < 1 {
		return false
	}
	// Segwit v0 only.
	if data[0] != 0 {
		return false
	}
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return false
	}
	return len(program) == 20 || len(program) == 32
}

func validEVM(addr string) bool {
	return len(addr) == 42 && strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}
