package cardrail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/paycore/internal/logging"
	"github.com/congo-pay/paycore/internal/payment"
)

const (
	// DefaultHomeCountry is the issuer country treated as domestic.
	DefaultHomeCountry = "US"

	flatFee = 30
)

var (
	processingRate    = decimal.RequireFromString("0.029")
	internationalRate = decimal.RequireFromString("0.01")

	supportedCurrencies = []string{"usd", "eur", "gbp", "cad", "aud", "jpy", "chf", "sek", "nok", "dkk"}
)

// Charge captures the data needed to open a card intent.
type Charge struct {
	Amount      int64
	Currency    string
	Description string
	Customer    string
	Metadata    map[string]string
}

// Service drives card intents through the intermediary and caches the last
// snapshot of each.
type Service struct {
	intermediary Intermediary
	homeCountry  string
	logger       *slog.Logger

	mu        sync.RWMutex
	snapshots map[string]payment.Result
}

// NewService constructs the card rail. An empty homeCountry means US.
func NewService(intermediary Intermediary, homeCountry string, logger *slog.Logger) *Service {
	if intermediary == nil {
		intermediary = NewMemoryIntermediary()
	}
	if homeCountry == "" {
		homeCountry = DefaultHomeCountry
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		intermediary: intermediary,
		homeCountry:  strings.ToUpper(homeCountry),
		logger:       logger,
		snapshots:    make(map[string]payment.Result),
	}
}

// CalculateFees applies the percentage plus flat fee model. International
// cards pay an extra percentage.
func CalculateFees(amount int64, currency string, international bool) payment.Fees {
	amt := decimal.NewFromInt(amount)
	processing := amt.Mul(processingRate).Round(0).IntPart() + flatFee
	var intl int64
	if international {
		intl = amt.Mul(internationalRate).Round(0).IntPart()
	}
	return payment.Fees{
		NetworkFee:       decimal.Zero,
		ProcessingFee:    processing,
		InternationalFee: intl,
		TotalFee:         processing + intl,
		Currency:         currency,
	}
}

// SupportedCurrencies lists the fiat currencies accepted by the card rail.
func SupportedCurrencies() []string {
	return append([]string(nil), supportedCurrencies...)
}

// ProcessPayment opens an intent for the charge. The result is Pending until
// the intent is confirmed.
func (s *Service) ProcessPayment(ctx context.Context, charge Charge) (payment.Result, error) {
	if charge.Amount <= 0 {
		return payment.Result{}, payment.Invalid("amount must be positive")
	}
	if strings.TrimSpace(charge.Currency) == "" {
		return payment.Result{}, payment.Invalid("currency is required")
	}

	intent, err := s.intermediary.CreateIntent(ctx, IntentInput(charge))
	if err != nil {
		return payment.Result{}, payment.RailFailure(payment.RailCard, err)
	}

	res := s.snapshot(intent)
	res.Success = true
	s.store(res)
	s.logger.Info("card intent created", "intent_id", intent.ID, "amount", intent.Amount, "currency", intent.Currency)
	return res, nil
}

// ConfirmPayment confirms the intent and returns the updated snapshot.
func (s *Service) ConfirmPayment(ctx context.Context, id string) (payment.Result, error) {
	intent, err := s.intermediary.ConfirmIntent(ctx, id)
	if err != nil {
		return payment.Result{}, s.wrap(id, err)
	}
	res := s.snapshot(intent)
	res.Success = intent.Status == IntentSucceeded
	if f, ok := res.Status.(payment.Failed); ok {
		res.ErrorMessage = f.Reason
	}
	s.store(res)
	s.logger.Info("card intent confirmed", "intent_id", id, "status", intent.Status)
	return res, nil
}

// CancelPayment cancels an unconfirmed intent.
func (s *Service) CancelPayment(ctx context.Context, id string) (payment.Result, error) {
	intent, err := s.intermediary.CancelIntent(ctx, id)
	if err != nil {
		return payment.Result{}, s.wrap(id, err)
	}
	res := s.snapshot(intent)
	res.ClientSecret = ""
	res.ErrorMessage = "payment was canceled"
	s.store(res)
	s.logger.Info("card intent canceled", "intent_id", id)
	return res, nil
}

// RefundPayment refunds amount, or the whole remaining charge when amount is
// nil. Amounts outside (0, remaining] fail with ErrInvalidAmount.
func (s *Service) RefundPayment(ctx context.Context, id string, amount *int64) (payment.Result, error) {
	intent, err := s.intermediary.RetrieveIntent(ctx, id)
	if err != nil {
		return payment.Result{}, s.wrap(id, err)
	}

	remaining := intent.Amount - intent.Refunded
	refund := remaining
	if amount != nil {
		refund = *amount
	}
	if refund <= 0 || refund > remaining {
		return payment.Result{}, fmt.Errorf("%w: refund %d, refundable %d", payment.ErrInvalidAmount, refund, remaining)
	}

	intent, err = s.intermediary.RefundIntent(ctx, id, refund)
	if err != nil {
		return payment.Result{}, s.wrap(id, err)
	}
	res := s.snapshot(intent)
	res.Success = true
	res.ClientSecret = ""
	res.Fees = payment.Fees{NetworkFee: decimal.Zero, Currency: intent.Currency}
	s.store(res)
	s.logger.Info("card intent refunded", "intent_id", id, "amount", refund, "refunded_total", intent.Refunded)
	return res, nil
}

// PaymentStatus asks the intermediary for the current intent status.
func (s *Service) PaymentStatus(ctx context.Context, id string) (payment.Status, error) {
	intent, err := s.intermediary.RetrieveIntent(ctx, id)
	if err != nil {
		return nil, s.wrap(id, err)
	}
	status := mapStatus(intent)

	s.mu.Lock()
	if prev, ok := s.snapshots[id]; ok {
		prev.Status = status
		s.snapshots[id] = prev
	}
	s.mu.Unlock()
	return status, nil
}

// Snapshot returns the last cached result for an intent.
func (s *Service) Snapshot(id string) (payment.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.snapshots[id]
	return res, ok
}

func (s *Service) snapshot(intent Intent) payment.Result {
	created := intent.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return payment.Result{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Method:          payment.Card{},
		Status:          mapStatus(intent),
		Fees:            CalculateFees(intent.Amount, intent.Currency, s.international(intent)),
		CreatedAt:       created,
	}
}

func (s *Service) international(intent Intent) bool {
	return intent.IssuerCountry != "" && !strings.EqualFold(intent.IssuerCountry, s.homeCountry)
}

func (s *Service) store(res payment.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[res.PaymentIntentID] = res
}

func (s *Service) wrap(id string, err error) error {
	if errors.Is(err, ErrIntentNotFound) {
		return fmt.Errorf("%w: %s", payment.ErrUnknownTransaction, id)
	}
	return payment.RailFailure(payment.RailCard, err)
}

func mapStatus(intent Intent) payment.Status {
	switch intent.Status {
	case IntentSucceeded:
		return payment.Confirmed{}
	case IntentCanceled:
		return payment.Failed{Reason: "payment was canceled"}
	case IntentFailed:
		reason := intent.FailureReason
		if reason == "" {
			reason = "payment failed"
		}
		return payment.Failed{Reason: reason}
	default:
		return payment.Pending{}
	}
}
