package wallet

import (
	"github.com/shopspring/decimal"

	"github.com/congo-pay/paycore/internal/payment"
)

// Info is the public view of a registered wallet. Balances are cached
// bookkeeping, not a chain read.
type Info struct {
	Currency payment.CryptoCurrency
	Network  payment.Network
	Address  string
	Balance  decimal.Decimal
}
