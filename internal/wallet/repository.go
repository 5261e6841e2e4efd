package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/paycore/internal/payment"
)

// Repository persists wallet state so a host can rehydrate the manager.
type Repository interface {
	Save(ctx context.Context, wallet Info) error
	List(ctx context.Context) ([]Info, error)
}

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[payment.CryptoCurrency]Info
}

// NewMemoryRepository constructs an in-memory repository for tests and dev.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[payment.CryptoCurrency]Info)}
}

func (r *memoryRepository) Save(_ context.Context, wallet Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[wallet.Currency] = wallet
	return nil
}

func (r *memoryRepository) List(_ context.Context) ([]Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.storage))
	for _, w := range r.storage {
		out = append(out, w)
	}
	return out, nil
}

// Schema creates the table used by PostgresRepository.
const Schema = `CREATE TABLE IF NOT EXISTS crypto_wallets (
    currency   TEXT PRIMARY KEY,
    network    TEXT NOT NULL,
    address    TEXT NOT NULL,
    balance    NUMERIC NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL
);`

// PostgresRepository stores wallets in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the wallet table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, Schema)
	return err
}

// Save upserts the wallet row.
func (r *PostgresRepository) Save(ctx context.Context, wallet Info) error {
	_, err := r.db.Exec(ctx, `INSERT INTO crypto_wallets (currency, network, address, balance, updated_at)
        VALUES ($1, $2, $3, $4::numeric, now())
        ON CONFLICT (currency) DO UPDATE SET network = EXCLUDED.network, address = EXCLUDED.address,
        balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at`,
		string(wallet.Currency), string(wallet.Network), wallet.Address, wallet.Balance.String())
	return err
}

// List loads every stored wallet.
func (r *PostgresRepository) List(ctx context.Context) ([]Info, error) {
	rows, err := r.db.Query(ctx, `SELECT currency, network, address, balance::text FROM crypto_wallets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			currency, network, address, balance string
		)
		if err := rows.Scan(&currency, &network, &address, &balance); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("decode balance for %s: %w", currency, err)
		}
		out = append(out, Info{
			Currency: payment.CryptoCurrency(currency),
			Network:  payment.Network(network),
			Address:  address,
			Balance:  amount,
		})
	}
	return out, rows.Err()
}
