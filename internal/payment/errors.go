package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest covers malformed input: zero amount, empty currency,
	// unsupported currency or network.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidAddress indicates a wallet address failed its network grammar.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrRequestExpired is returned when a quote is submitted or updated after
	// its expiry.
	ErrRequestExpired = errors.New("payment request expired")

	// ErrRateUnavailable means no fresh exchange rate is cached for a currency.
	ErrRateUnavailable = errors.New("exchange rate unavailable")

	// ErrInsufficientBalance occurs when a debit would drive a wallet negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicateWallet indicates a wallet is already registered for the currency.
	ErrDuplicateWallet = errors.New("wallet already registered")

	// ErrWalletNotFound indicates no wallet is registered for the currency.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrUnknownTransaction indicates the settlement identifier is not known.
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrInvalidAmount is returned for refunds that are non-positive or exceed
	// the refundable charge.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrRailFailure wraps an opaque error surfaced by a rail collaborator.
	ErrRailFailure = errors.New("rail failure")
)

// RailFailure wraps a collaborator error so callers can match ErrRailFailure
// while keeping the original error in the chain.
func RailFailure(rail string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrRailFailure, rail, err)
}

// Invalid builds an ErrInvalidRequest with a detail message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
