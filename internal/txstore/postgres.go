package txstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/paycore/internal/payment"
)

// Schema creates the table used by PostgresStore.
const Schema = `CREATE TABLE IF NOT EXISTS crypto_transactions (
    id             TEXT PRIMARY KEY,
    state          TEXT NOT NULL,
    observed       BIGINT NOT NULL DEFAULT 0,
    required       BIGINT NOT NULL DEFAULT 0,
    reason         TEXT NOT NULL DEFAULT '',
    observed_count BIGINT NOT NULL DEFAULT 0,
    details        JSONB NOT NULL,
    fiat_amount    BIGINT NOT NULL,
    fiat_currency  TEXT NOT NULL,
    fees           JSONB NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
);`

const uniqueViolation = "23505"

var _ Store = (*PostgresStore)(nil)

// PostgresStore persists transaction records in PostgreSQL. Update takes a row
// lock so concurrent updates for one id are applied in order.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the backing table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	return err
}

// Create inserts a new record.
func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	args, err := columns(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO crypto_transactions
        (id, state, observed, required, reason, observed_count, details, fiat_amount, fiat_currency, fees, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrExists, rec.ID)
	}
	return err
}

// Get fetches a record by settlement id.
func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	return scanRecord(s.db.QueryRow(ctx, selectRecord+` WHERE id = $1`, id), id)
}

// Update applies fn to the locked row and writes the result back.
func (s *PostgresStore) Update(ctx context.Context, id string, fn MutateFunc) (Record, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	current, err := scanRecord(tx.QueryRow(ctx, selectRecord+` WHERE id = $1 FOR UPDATE`, id), id)
	if err != nil {
		return Record{}, err
	}

	next, err := fn(current)
	if err != nil {
		return current, err
	}
	next.ID = current.ID

	args, err := columns(next)
	if err != nil {
		return Record{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE crypto_transactions SET state = $2, observed = $3, required = $4, reason = $5,
        observed_count = $6, details = $7, fiat_amount = $8, fiat_currency = $9, fees = $10, created_at = $11, updated_at = $12
        WHERE id = $1`, args...); err != nil {
		return Record{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, err
	}
	return next, nil
}

// Len counts stored records.
func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM crypto_transactions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

const selectRecord = `SELECT id, state, observed, required, reason, observed_count, details, fiat_amount, fiat_currency, fees, created_at, updated_at
        FROM crypto_transactions`

func columns(rec Record) ([]any, error) {
	view := payment.ViewOf(rec.Status)
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}
	fees, err := json.Marshal(rec.Fees)
	if err != nil {
		return nil, fmt.Errorf("encode fees: %w", err)
	}
	return []any{
		rec.ID, view.State, int64(view.Observed), int64(view.Required), view.Reason, int64(rec.Observed),
		details, rec.FiatAmount, rec.FiatCurrency, fees, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	}, nil
}

func scanRecord(row pgx.Row, id string) (Record, error) {
	var (
		rec                         Record
		view                        payment.StatusView
		observed, required, counted int64
		details, fees               []byte
	)
	err := row.Scan(&rec.ID, &view.State, &observed, &required, &view.Reason, &counted,
		&details, &rec.FiatAmount, &rec.FiatCurrency, &fees, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s", payment.ErrUnknownTransaction, id)
		}
		return Record{}, err
	}
	view.Observed = uint32(observed)
	view.Required = uint32(required)
	rec.Observed = uint32(counted)
	if rec.Status, err = view.Status(); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(details, &rec.Details); err != nil {
		return Record{}, fmt.Errorf("decode details: %w", err)
	}
	if err := json.Unmarshal(fees, &rec.Fees); err != nil {
		return Record{}, fmt.Errorf("decode fees: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}
