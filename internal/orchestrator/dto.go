package orchestrator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/paycore/internal/payment"
	"github.com/congo-pay/paycore/internal/txstore"
)

type cryptoRequest struct {
	Currency      string    `json:"currency" validate:"required"`
	Network       string    `json:"network" validate:"required"`
	WalletAddress string    `json:"wallet_address" validate:"required"`
	AmountCrypto  string    `json:"amount_crypto" validate:"required,numeric"`
	ExchangeRate  string    `json:"exchange_rate" validate:"required,numeric"`
	ExpiresAt     time.Time `json:"expires_at" validate:"required"`
}

// ProcessRequest is the JSON body of a payment submission.
type ProcessRequest struct {
	Amount      int64             `json:"amount" validate:"gt=0"`
	Currency    string            `json:"currency" validate:"required"`
	Description string            `json:"description"`
	Customer    string            `json:"customer_email" validate:"omitempty,email"`
	Method      string            `json:"method" validate:"required,oneof=card crypto"`
	Crypto      *cryptoRequest    `json:"crypto" validate:"required_if=Method crypto"`
	Metadata    map[string]string `json:"metadata"`
}

func (r ProcessRequest) toDomain() (payment.Request, error) {
	req := payment.Request{
		Amount:      r.Amount,
		Currency:    r.Currency,
		Description: r.Description,
		Customer:    r.Customer,
		Metadata:    r.Metadata,
	}
	switch r.Method {
	case payment.RailCard:
		req.Method = payment.Card{}
	case payment.RailCrypto:
		amount, err := decimal.NewFromString(r.Crypto.AmountCrypto)
		if err != nil {
			return payment.Request{}, payment.Invalid("amount_crypto: %v", err)
		}
		rate, err := decimal.NewFromString(r.Crypto.ExchangeRate)
		if err != nil {
			return payment.Request{}, payment.Invalid("exchange_rate: %v", err)
		}
		req.Method = payment.Crypto{Details: payment.CryptoDetails{
			Currency:      payment.ParseCryptoCurrency(r.Crypto.Currency),
			Network:       payment.ParseNetwork(r.Crypto.Network),
			WalletAddress: r.Crypto.WalletAddress,
			AmountCrypto:  amount,
			ExchangeRate:  rate,
			ExpiresAt:     r.Crypto.ExpiresAt,
		}}
	default:
		return payment.Request{}, payment.Invalid("unsupported method %q", r.Method)
	}
	return req, nil
}

// ResultResponse is the JSON form of payment.Result.
type ResultResponse struct {
	Success         bool                   `json:"success"`
	PaymentIntentID string                 `json:"payment_intent_id,omitempty"`
	TransactionHash string                 `json:"transaction_hash,omitempty"`
	ClientSecret    string                 `json:"client_secret,omitempty"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	Method          string                 `json:"method"`
	Crypto          *payment.CryptoDetails `json:"crypto,omitempty"`
	Status          payment.StatusView     `json:"status"`
	Fees            payment.Fees           `json:"fees"`
	CreatedAt       time.Time              `json:"created_at"`
}

func toResponse(res payment.Result) ResultResponse {
	out := ResultResponse{
		Success:         res.Success,
		PaymentIntentID: res.PaymentIntentID,
		TransactionHash: res.TransactionHash,
		ClientSecret:    res.ClientSecret,
		ErrorMessage:    res.ErrorMessage,
		Status:          payment.ViewOf(res.Status),
		Fees:            res.Fees,
		CreatedAt:       res.CreatedAt,
	}
	if res.Method != nil {
		out.Method = res.Method.Rail()
	}
	if m, ok := res.Method.(payment.Crypto); ok {
		d := m.Details
		out.Crypto = &d
	}
	return out
}

// TransactionResponse is the JSON form of a crypto settlement record.
type TransactionResponse struct {
	SettlementID string                `json:"settlement_id"`
	Status       payment.StatusView    `json:"status"`
	Observed     uint32                `json:"observed_confirmations"`
	Crypto       payment.CryptoDetails `json:"crypto"`
	FiatAmount   int64                 `json:"fiat_amount"`
	FiatCurrency string                `json:"fiat_currency"`
	Fees         payment.Fees          `json:"fees"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func toTransactionResponse(rec txstore.Record) TransactionResponse {
	return TransactionResponse{
		SettlementID: rec.ID,
		Status:       payment.ViewOf(rec.Status),
		Observed:     rec.Observed,
		Crypto:       rec.Details,
		FiatAmount:   rec.FiatAmount,
		FiatCurrency: rec.FiatCurrency,
		Fees:         rec.Fees,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

// resultFor rebuilds the minimal result needed to address a settlement.
func resultFor(rail, id string) (payment.Result, error) {
	switch rail {
	case payment.RailCard:
		return payment.Result{PaymentIntentID: id, Method: payment.Card{}}, nil
	case payment.RailCrypto:
		return payment.Result{TransactionHash: id, Method: payment.Crypto{}}, nil
	default:
		return payment.Result{}, fmt.Errorf("%w: unknown rail %q", payment.ErrInvalidRequest, rail)
	}
}

type confirmationsRequest struct {
	Observed *uint32 `json:"observed" validate:"required"`
}

type failRequest struct {
	Reason string `json:"reason"`
}

type refundRequest struct {
	Amount *int64 `json:"amount"`
}
