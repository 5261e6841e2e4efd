package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/paycore/internal/payment"
)

type entry struct {
	mu   sync.Mutex
	info Info
	// gone marks a registration whose write-through failed.
	gone bool
}

// Manager keeps the per-currency wallet registry. Operations on one currency
// are serialized; different currencies never contend.
type Manager struct {
	mu      sync.RWMutex
	entries map[payment.CryptoCurrency]*entry
	repo    Repository
}

// NewManager builds a wallet manager writing through to repo. A nil repo keeps
// state in memory only.
func NewManager(repo Repository) *Manager {
	if repo == nil {
		repo = NewMemoryRepository()
	}
	return &Manager{entries: make(map[payment.CryptoCurrency]*entry), repo: repo}
}

// Load rehydrates the registry from the repository.
func (m *Manager) Load(ctx context.Context) error {
	wallets, err := m.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load wallets: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range wallets {
		m.entries[w.Currency] = &entry{info: w}
	}
	return nil
}

// AddWallet registers a wallet for its currency.
func (m *Manager) AddWallet(ctx context.Context, wallet Info) error {
	if strings.TrimSpace(wallet.Address) == "" {
		return payment.Invalid("wallet address is required")
	}
	if wallet.Currency == "" {
		return payment.Invalid("wallet currency is required")
	}
	if wallet.Balance.IsNegative() {
		return payment.Invalid("wallet balance cannot be negative")
	}

	// The entry is reserved locked so readers of this currency wait for the
	// write-through while other currencies stay available.
	m.mu.Lock()
	if _, exists := m.entries[wallet.Currency]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", payment.ErrDuplicateWallet, wallet.Currency)
	}
	e := &entry{info: wallet}
	e.mu.Lock()
	m.entries[wallet.Currency] = e
	m.mu.Unlock()
	defer e.mu.Unlock()

	if err := m.repo.Save(ctx, wallet); err != nil {
		e.gone = true
		m.mu.Lock()
		delete(m.entries, wallet.Currency)
		m.mu.Unlock()
		return fmt.Errorf("persist wallet: %w", err)
	}
	return nil
}

// Wallet returns a copy of the wallet registered for currency.
func (m *Manager) Wallet(_ context.Context, currency payment.CryptoCurrency) (Info, error) {
	e, ok := m.acquire(currency)
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", payment.ErrWalletNotFound, currency)
	}
	defer e.mu.Unlock()
	return e.info, nil
}

// Balance returns the cached balance for currency.
func (m *Manager) Balance(ctx context.Context, currency payment.CryptoCurrency) (decimal.Decimal, error) {
	w, err := m.Wallet(ctx, currency)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// Address returns the receiving address for currency.
func (m *Manager) Address(ctx context.Context, currency payment.CryptoCurrency) (string, error) {
	w, err := m.Wallet(ctx, currency)
	if err != nil {
		return "", err
	}
	return w.Address, nil
}

// Credit adds amount to the wallet and returns the new balance.
func (m *Manager) Credit(ctx context.Context, currency payment.CryptoCurrency, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: credit must be positive", payment.ErrInvalidAmount)
	}
	e, ok := m.acquire(currency)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", payment.ErrWalletNotFound, currency)
	}
	defer e.mu.Unlock()
	return m.store(ctx, e, e.info.Balance.Add(amount))
}

// Debit subtracts amount from the wallet. An unregistered wallet has a zero
// balance, so any debit against it is insufficient.
func (m *Manager) Debit(ctx context.Context, currency payment.CryptoCurrency, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: debit must be positive", payment.ErrInvalidAmount)
	}
	e, ok := m.acquire(currency)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s has no balance", payment.ErrInsufficientBalance, currency)
	}
	defer e.mu.Unlock()
	if e.info.Balance.LessThan(amount) {
		return e.info.Balance, fmt.Errorf("%w: balance %s, requested %s", payment.ErrInsufficientBalance, e.info.Balance, amount)
	}
	return m.store(ctx, e, e.info.Balance.Sub(amount))
}

// acquire returns the locked entry for currency.
func (m *Manager) acquire(currency payment.CryptoCurrency) (*entry, bool) {
	m.mu.RLock()
	e, ok := m.entries[currency]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	if e.gone {
		e.mu.Unlock()
		return nil, false
	}
	return e, true
}

// store persists the new balance; e.mu must be held.
func (m *Manager) store(ctx context.Context, e *entry, balance decimal.Decimal) (decimal.Decimal, error) {
	next := e.info
	next.Balance = balance
	if err := m.repo.Save(ctx, next); err != nil {
		return e.info.Balance, fmt.Errorf("persist wallet: %w", err)
	}
	e.info = next
	return balance, nil
}
