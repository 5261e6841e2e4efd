package txstore

import (
	"context"
	"errors"
	"time"

	"github.com/congo-pay/paycore/internal/payment"
)

// ErrExists indicates a record with the same settlement id is already stored.
var ErrExists = errors.New("transaction record exists")

// Record is the lifecycle state of one crypto settlement. Records are never
// deleted; terminal records are kept for status queries.
type Record struct {
	ID           string
	Status       payment.Status
	Observed     uint32
	Details      payment.CryptoDetails
	FiatAmount   int64
	FiatCurrency string
	Fees         payment.Fees
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MutateFunc computes the next record from the current one. Returning the
// input unchanged makes the update a no-op.
type MutateFunc func(current Record) (Record, error)

// Store maps settlement identifiers to records. Update is atomic per id;
// updates for different ids never contend.
type Store interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	Update(ctx context.Context, id string, fn MutateFunc) (Record, error)
	Len(ctx context.Context) (int, error)
}
