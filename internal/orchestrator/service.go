package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/congo-pay/paycore/internal/cardrail"
	"github.com/congo-pay/paycore/internal/cryptorail"
	"github.com/congo-pay/paycore/internal/logging"
	"github.com/congo-pay/paycore/internal/metrics"
	"github.com/congo-pay/paycore/internal/notification"
	"github.com/congo-pay/paycore/internal/payment"
	"github.com/congo-pay/paycore/internal/txstore"
)

// Service routes method-agnostic requests to the card or crypto rail and
// returns one result shape for both.
type Service struct {
	card     *cardrail.Service
	crypto   *cryptorail.Service
	notifier notification.Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewService constructs an orchestrator over both rails.
func NewService(card *cardrail.Service, crypto *cryptorail.Service, notifier notification.Notifier, rec metrics.Recorder, logger *slog.Logger) *Service {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{card: card, crypto: crypto, notifier: notifier, metrics: rec, logger: logger}
}

// Currencies groups the accepted fiat and crypto codes.
type Currencies struct {
	Fiat   []string `json:"fiat"`
	Crypto []string `json:"crypto"`
}

// ProcessPayment validates req and dispatches it to the rail chosen by its
// method. Invalid requests never reach a rail.
func (s *Service) ProcessPayment(ctx context.Context, req payment.Request) (payment.Result, error) {
	start := time.Now()
	req.Currency = strings.ToLower(strings.TrimSpace(req.Currency))

	rail := "unknown"
	if req.Method != nil {
		rail = req.Method.Rail()
	}
	labels := map[string]string{"rail": rail}
	defer func() {
		s.metrics.ObserveLatency("process_payment", time.Since(start), labels)
	}()

	if err := s.validate(req); err != nil {
		s.metrics.IncCounter("rejected", labels)
		return payment.Result{}, err
	}

	var (
		res payment.Result
		err error
	)
	switch m := req.Method.(type) {
	case payment.Card:
		res, err = s.card.ProcessPayment(ctx, cardrail.Charge{
			Amount:      req.Amount,
			Currency:    req.Currency,
			Description: req.Description,
			Customer:    req.Customer,
			Metadata:    req.CopyMetadata(),
		})
	case payment.Crypto:
		labels["network"] = m.Details.Network.String()
		res, err = s.crypto.ProcessPayment(ctx, cryptorail.Charge{
			Amount:   req.Amount,
			Currency: req.Currency,
			Details:  m.Details,
		})
	default:
		err = payment.Invalid("unsupported payment method %T", req.Method)
	}
	if err != nil {
		s.metrics.IncCounter("failed", labels)
		s.logger.Warn("payment failed", "rail", rail, "error", err)
		return payment.Result{}, err
	}

	s.metrics.IncCounter("processed", labels)
	s.logger.Info("payment processed", "rail", rail, "settlement_id", res.SettlementID(), "amount", req.Amount, "currency", req.Currency)
	return res, nil
}

// CreateSubscriptionPayment opens a recurring-billing payment.
func (s *Service) CreateSubscriptionPayment(ctx context.Context, amount int64, currency, customer string, method payment.Method) (payment.Result, error) {
	return s.ProcessPayment(ctx, payment.Request{
		Amount:      amount,
		Currency:    currency,
		Description: "Subscription payment",
		Customer:    customer,
		Method:      method,
		Metadata:    map[string]string{"payment_type": "subscription"},
	})
}

// CheckPaymentStatus re-reads the status for the settlement recorded in res.
func (s *Service) CheckPaymentStatus(ctx context.Context, res payment.Result) (payment.Status, error) {
	switch res.Method.(type) {
	case payment.Card:
		if res.PaymentIntentID == "" {
			return nil, payment.Invalid("card result has no intent id")
		}
		return s.card.PaymentStatus(ctx, res.PaymentIntentID)
	case payment.Crypto:
		if res.TransactionHash == "" {
			return nil, payment.Invalid("crypto result has no transaction hash")
		}
		return s.crypto.CheckStatus(ctx, res.TransactionHash)
	default:
		return nil, payment.Invalid("unsupported payment method %T", res.Method)
	}
}

// CryptoTransaction returns the full record of a crypto settlement.
func (s *Service) CryptoTransaction(ctx context.Context, id string) (txstore.Record, error) {
	return s.crypto.Transaction(ctx, id)
}

// UpdateConfirmations forwards a chain watcher observation to the crypto rail.
func (s *Service) UpdateConfirmations(ctx context.Context, id string, observed uint32) (payment.Status, error) {
	return s.crypto.UpdateConfirmations(ctx, id, observed)
}

// FailTransaction records a failed broadcast reported by the chain watcher.
func (s *Service) FailTransaction(ctx context.Context, id, reason string) (payment.Status, error) {
	return s.crypto.FailTransaction(ctx, id, reason)
}

// ConfirmCardPayment confirms a card intent.
func (s *Service) ConfirmCardPayment(ctx context.Context, id string) (payment.Result, error) {
	res, err := s.card.ConfirmPayment(ctx, id)
	if err != nil {
		return payment.Result{}, err
	}
	switch st := res.Status.(type) {
	case payment.Confirmed:
		s.notify(ctx, notification.KindPaymentConfirmed, id, st.String())
	case payment.Failed:
		s.notify(ctx, notification.KindPaymentFailed, id, st.Reason)
	}
	return res, nil
}

// CancelCardPayment cancels a card intent.
func (s *Service) CancelCardPayment(ctx context.Context, id string) (payment.Result, error) {
	return s.card.CancelPayment(ctx, id)
}

// RefundPayment refunds a card payment in full or in part. Crypto payments
// cannot be refunded by the core.
func (s *Service) RefundPayment(ctx context.Context, res payment.Result, amount *int64) (payment.Result, error) {
	switch res.Method.(type) {
	case payment.Card:
		out, err := s.card.RefundPayment(ctx, res.PaymentIntentID, amount)
		if err != nil {
			return payment.Result{}, err
		}
		s.metrics.IncCounter("refunded", map[string]string{"rail": payment.RailCard})
		s.notify(ctx, notification.KindPaymentRefunded, res.PaymentIntentID, "refund accepted")
		return out, nil
	case payment.Crypto:
		return payment.Result{}, payment.RailFailure(payment.RailCrypto, errors.New("crypto refunds are not supported"))
	default:
		return payment.Result{}, payment.Invalid("unsupported payment method %T", res.Method)
	}
}

// SupportedMethods lists the rails.
func (s *Service) SupportedMethods() []string {
	return []string{payment.RailCard, payment.RailCrypto}
}

// SupportedCurrencies lists the fiat codes of the card rail and the crypto
// codes of the crypto rail.
func (s *Service) SupportedCurrencies() Currencies {
	out := Currencies{Fiat: cardrail.SupportedCurrencies()}
	for _, c := range s.crypto.SupportedCurrencies() {
		out.Crypto = append(out.Crypto, c.String())
	}
	return out
}

func (s *Service) validate(req payment.Request) error {
	if req.Amount <= 0 {
		return payment.Invalid("amount must be positive")
	}
	if req.Currency == "" {
		return payment.Invalid("currency is required")
	}
	if req.Method == nil {
		return payment.Invalid("payment method is required")
	}
	if m, ok := req.Method.(payment.Crypto); ok {
		charge := cryptorail.Charge{Amount: req.Amount, Currency: req.Currency, Details: m.Details}
		if err := s.crypto.ValidateCharge(charge); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) notify(ctx context.Context, kind, id, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, Destination: id, Body: body}); err != nil {
		s.logger.Warn("notification failed", "settlement_id", id, "error", err)
	}
}
