package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request is the method-agnostic payment request. Amount is expressed in the
// smallest fiat unit (cents).
type Request struct {
	Amount      int64
	Currency    string
	Description string
	Customer    string
	Method      Method
	Metadata    map[string]string
}

// Fees describes the charges computed for a payment. Fiat amounts are in the
// smallest unit of Currency; NetworkFee is denominated in the crypto currency.
type Fees struct {
	NetworkFee       decimal.Decimal `json:"network_fee"`
	ProcessingFee    int64           `json:"processing_fee"`
	InternationalFee int64           `json:"international_fee"`
	TotalFee         int64           `json:"total_fee"`
	Currency         string          `json:"currency"`
}

// Result is a value snapshot of a processed payment. Exactly one of
// PaymentIntentID and TransactionHash is set.
type Result struct {
	Success         bool
	PaymentIntentID string
	TransactionHash string
	ClientSecret    string
	ErrorMessage    string
	Method          Method
	Status          Status
	Fees            Fees
	CreatedAt       time.Time
}

// SettlementID returns the rail-specific identifier.
func (r Result) SettlementID() string {
	if r.PaymentIntentID != "" {
		return r.PaymentIntentID
	}
	return r.TransactionHash
}

// CopyMetadata returns a detached copy of the metadata map.
func (r Request) CopyMetadata() map[string]string {
	out := make(map[string]string, len(r.Metadata))
	for k, v := range r.Metadata {
		out[k] = v
	}
	return out
}
