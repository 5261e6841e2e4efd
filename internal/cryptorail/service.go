package cryptorail

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/paycore/internal/logging"
	"github.com/congo-pay/paycore/internal/metrics"
	"github.com/congo-pay/paycore/internal/notification"
	"github.com/congo-pay/paycore/internal/payment"
	"github.com/congo-pay/paycore/internal/pricefeed"
	"github.com/congo-pay/paycore/internal/txstore"
	"github.com/congo-pay/paycore/internal/wallet"
)

const maxIDAttempts = 3

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// Charge is a crypto payment accepted from the orchestrator. Amount and
// Currency are the fiat face value of the request.
type Charge struct {
	Amount   int64
	Currency string
	Details  payment.CryptoDetails
}

// Service settles payments on chain. It owns the wallet registry and the
// transaction records; confirmation depth is pushed in by a chain watcher.
type Service struct {
	store    txstore.Store
	prices   pricefeed.Cache
	wallets  *wallet.Manager
	cfg      Config
	clock    clock.Clock
	logger   *slog.Logger
	metrics  metrics.Recorder
	notifier notification.Notifier
}

// NewService wires the crypto rail. A nil wallets manager gets an in-memory one.
func NewService(store txstore.Store, prices pricefeed.Cache, wallets *wallet.Manager, cfg Config, opts ...Option) *Service {
	if wallets == nil {
		wallets = wallet.NewManager(nil)
	}
	s := &Service{
		store:    store,
		prices:   prices,
		wallets:  wallets,
		cfg:      cfg,
		clock:    clock.New(),
		logger:   logging.Discard(),
		metrics:  metrics.NoopRecorder{},
		notifier: notification.NewLoggerNotifier(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate performs the checks that must pass before any state is created.
func (s *Service) Validate(d payment.CryptoDetails) error {
	if !d.ExpiresAt.After(s.clock.Now()) {
		return fmt.Errorf("%w: expired at %s", payment.ErrRequestExpired, d.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if !s.cfg.supportsCurrency(d.Currency) {
		return payment.Invalid("unsupported crypto currency %q", d.Currency)
	}
	if !s.cfg.supportsNetwork(d.Network) {
		return payment.Invalid("unsupported network %q", d.Network)
	}
	if err := ValidateAddress(d.Network, d.WalletAddress); err != nil {
		return err
	}
	if !d.AmountCrypto.IsPositive() {
		return payment.Invalid("crypto amount must be positive")
	}
	if !d.ExchangeRate.IsPositive() {
		return payment.Invalid("quoted exchange rate must be positive")
	}
	return nil
}

// ValidateCharge runs Validate and checks the fiat side of the charge.
func (s *Service) ValidateCharge(charge Charge) error {
	if err := s.Validate(charge.Details); err != nil {
		return err
	}
	if !s.quotedIn(charge.Currency) {
		return payment.Invalid("crypto payments must be priced in %s, got %q", s.cfg.QuoteCurrency, charge.Currency)
	}
	return nil
}

// ProcessPayment validates the quote, prices it at the cached rate and
// registers a pending transaction.
func (s *Service) ProcessPayment(ctx context.Context, charge Charge) (payment.Result, error) {
	d := charge.Details
	if err := s.ValidateCharge(charge); err != nil {
		return payment.Result{}, err
	}

	rate, err := s.GetExchangeRate(ctx, d.Currency)
	if err != nil {
		return payment.Result{}, err
	}
	s.checkDeviation(d, rate)

	fees, err := s.CalculateFees(d.Network, d.AmountCrypto, rate, charge.Currency)
	if err != nil {
		return payment.Result{}, err
	}
	now := s.clock.Now().UTC()

	var id string
	for attempt := 0; ; attempt++ {
		id, err = newSettlementID()
		if err != nil {
			return payment.Result{}, fmt.Errorf("mint settlement id: %w", err)
		}
		err = s.store.Create(ctx, txstore.Record{
			ID:           id,
			Status:       payment.Pending{},
			Details:      d,
			FiatAmount:   charge.Amount,
			FiatCurrency: charge.Currency,
			Fees:         fees,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, txstore.ErrExists) || attempt+1 >= maxIDAttempts {
			return payment.Result{}, fmt.Errorf("register transaction: %w", err)
		}
	}

	s.logger.Info("crypto payment registered",
		"settlement_id", id,
		"currency", d.Currency.String(),
		"network", d.Network.String(),
		"amount", d.AmountCrypto.String(),
	)
	s.metrics.IncCounter("registered", s.labels(d.Network))

	return payment.Result{
		Success:         true,
		TransactionHash: id,
		Method:          payment.Crypto{Details: d},
		Status:          payment.Pending{},
		Fees:            fees,
		CreatedAt:       now,
	}, nil
}

// CalculateFees prices the network fee and the processing fee in the smallest
// unit of the quote currency at rate. Fees that do not fit an int64 are
// rejected.
func (s *Service) CalculateFees(network payment.Network, amount, rate decimal.Decimal, fiatCurrency string) (payment.Fees, error) {
	if !s.quotedIn(fiatCurrency) {
		return payment.Fees{}, payment.Invalid("fees are quoted in %s, not %q", s.cfg.QuoteCurrency, fiatCurrency)
	}
	minor := decimal.NewFromInt(s.cfg.FiatMinorUnits)
	networkFee := s.cfg.networkFee(network)

	processing := amount.Mul(s.cfg.ProcessingRate).Mul(rate).Mul(minor).Round(0)
	total := processing.Add(networkFee.Mul(rate).Mul(minor).Round(0))
	if processing.IsNegative() || total.GreaterThan(maxMinorUnits) {
		return payment.Fees{}, payment.Invalid("amount too large")
	}

	return payment.Fees{
		NetworkFee:    networkFee,
		ProcessingFee: processing.IntPart(),
		TotalFee:      total.IntPart(),
		Currency:      strings.ToLower(s.cfg.QuoteCurrency),
	}, nil
}

// GetExchangeRate returns the cached rate when it is younger than MaxRateAge.
func (s *Service) GetExchangeRate(ctx context.Context, currency payment.CryptoCurrency) (decimal.Decimal, error) {
	quote, ok, err := s.prices.Get(ctx, currency.String())
	if err != nil {
		return decimal.Zero, payment.RailFailure("pricefeed", err)
	}
	if !ok || !quote.Rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no rate for %s", payment.ErrRateUnavailable, currency)
	}
	if age := s.clock.Now().Sub(quote.ObservedAt); s.cfg.MaxRateAge > 0 && age > s.cfg.MaxRateAge {
		return decimal.Zero, fmt.Errorf("%w: rate for %s is %s old", payment.ErrRateUnavailable, currency, age.Round(time.Second))
	}
	return quote.Rate, nil
}

// UpdateConfirmations applies an observed block depth. Terminal records are
// returned unchanged and expiry wins over incoming depth.
func (s *Service) UpdateConfirmations(ctx context.Context, id string, observed uint32) (payment.Status, error) {
	var entered payment.Status
	rec, err := s.store.Update(ctx, id, func(cur txstore.Record) (txstore.Record, error) {
		entered = nil
		if cur.Status.Terminal() {
			return cur, nil
		}
		now := s.clock.Now().UTC()
		if now.After(cur.Details.ExpiresAt) {
			entered = payment.Expired{}
			cur.Status = entered
			cur.UpdatedAt = now
			return cur, nil
		}

		count := max(observed, cur.Observed)
		required := s.cfg.requiredConfirmations(cur.Details.Network)
		switch {
		case count >= required:
			entered = payment.Confirmed{}
			cur.Status = entered
		case count > 0:
			cur.Status = payment.Confirming{Observed: count, Required: required}
		}
		cur.Observed = count
		cur.UpdatedAt = now
		return cur, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, rec, entered)
	return rec.Status, nil
}

// CheckStatus returns the current status, forcing Expired on a lapsed quote.
func (s *Service) CheckStatus(ctx context.Context, id string) (payment.Status, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status.Terminal() || !s.clock.Now().After(rec.Details.ExpiresAt) {
		return rec.Status, nil
	}

	var entered payment.Status
	rec, err = s.store.Update(ctx, id, func(cur txstore.Record) (txstore.Record, error) {
		entered = nil
		if cur.Status.Terminal() {
			return cur, nil
		}
		entered = payment.Expired{}
		cur.Status = entered
		cur.UpdatedAt = s.clock.Now().UTC()
		return cur, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, rec, entered)
	return rec.Status, nil
}

// FailTransaction marks a dropped or reverted broadcast as failed.
func (s *Service) FailTransaction(ctx context.Context, id, reason string) (payment.Status, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "transaction failed"
	}
	var entered payment.Status
	rec, err := s.store.Update(ctx, id, func(cur txstore.Record) (txstore.Record, error) {
		entered = nil
		if cur.Status.Terminal() {
			return cur, nil
		}
		now := s.clock.Now().UTC()
		if now.After(cur.Details.ExpiresAt) {
			entered = payment.Expired{}
		} else {
			entered = payment.Failed{Reason: reason}
		}
		cur.Status = entered
		cur.UpdatedAt = now
		return cur, nil
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, rec, entered)
	return rec.Status, nil
}

// Transaction returns the stored record for id, expiring it first when its
// quote has lapsed.
func (s *Service) Transaction(ctx context.Context, id string) (txstore.Record, error) {
	if _, err := s.CheckStatus(ctx, id); err != nil {
		return txstore.Record{}, err
	}
	return s.store.Get(ctx, id)
}

// AddWallet registers a receiving wallet after checking its address grammar.
func (s *Service) AddWallet(ctx context.Context, w wallet.Info) error {
	if err := ValidateAddress(w.Network, w.Address); err != nil {
		return err
	}
	return s.wallets.AddWallet(ctx, w)
}

// Wallet returns the wallet registered for currency.
func (s *Service) Wallet(ctx context.Context, currency payment.CryptoCurrency) (wallet.Info, error) {
	return s.wallets.Wallet(ctx, currency)
}

// WalletBalance returns the cached balance for currency.
func (s *Service) WalletBalance(ctx context.Context, currency payment.CryptoCurrency) (decimal.Decimal, error) {
	return s.wallets.Balance(ctx, currency)
}

// WalletAddress returns the receiving address for currency.
func (s *Service) WalletAddress(ctx context.Context, currency payment.CryptoCurrency) (string, error) {
	return s.wallets.Address(ctx, currency)
}

// SupportedCurrencies lists the accepted crypto codes.
func (s *Service) SupportedCurrencies() []payment.CryptoCurrency {
	return append([]payment.CryptoCurrency(nil), s.cfg.SupportedCurrencies...)
}

// SupportedNetworks lists the accepted networks.
func (s *Service) SupportedNetworks() []payment.Network {
	return append([]payment.Network(nil), s.cfg.SupportedNetworks...)
}

func (s *Service) checkDeviation(d payment.CryptoDetails, current decimal.Decimal) {
	deviation := d.ExchangeRate.Sub(current).Abs().Div(current)
	if deviation.LessThanOrEqual(s.cfg.RateTolerance) {
		return
	}
	s.logger.Warn("quoted rate outside tolerance, settling at cached rate",
		"currency", d.Currency.String(),
		"quoted", d.ExchangeRate.String(),
		"current", current.String(),
		"deviation", deviation.StringFixed(4),
	)
	s.metrics.IncCounter("rate_deviation", s.labels(d.Network))
}

// afterTransition runs the side effects of entering a terminal status. It is
// called at most once per record because only one update can observe the
// transition.
func (s *Service) afterTransition(ctx context.Context, rec txstore.Record, entered payment.Status) {
	if entered == nil {
		return
	}
	labels := s.labels(rec.Details.Network)

	var kind string
	switch entered.(type) {
	case payment.Confirmed:
		kind = notification.KindPaymentConfirmed
		s.creditWallet(ctx, rec)
		s.metrics.IncCounter("confirmed", labels)
	case payment.Expired:
		kind = notification.KindPaymentExpired
		s.metrics.IncCounter("expired", labels)
	case payment.Failed:
		kind = notification.KindPaymentFailed
		s.metrics.IncCounter("failed", labels)
	default:
		return
	}

	s.logger.Info("crypto payment settled", "settlement_id", rec.ID, "status", entered.String())
	msg := notification.Message{Kind: kind, Destination: rec.ID, Body: entered.String()}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", "settlement_id", rec.ID, "error", err)
	}
}

func (s *Service) creditWallet(ctx context.Context, rec txstore.Record) {
	w, err := s.wallets.Wallet(ctx, rec.Details.Currency)
	if err != nil {
		return
	}
	if !sameAddress(w.Network, w.Address, rec.Details.WalletAddress) {
		return
	}
	balance, err := s.wallets.Credit(ctx, rec.Details.Currency, rec.Details.AmountCrypto)
	if err != nil {
		s.logger.Error("wallet credit failed", "settlement_id", rec.ID, "error", err)
		return
	}
	s.logger.Info("wallet credited",
		"settlement_id", rec.ID,
		"currency", rec.Details.Currency.String(),
		"balance", balance.String(),
	)
}

func (s *Service) quotedIn(fiatCurrency string) bool {
	return s.cfg.QuoteCurrency == "" || strings.EqualFold(strings.TrimSpace(fiatCurrency), s.cfg.QuoteCurrency)
}

func (s *Service) labels(n payment.Network) map[string]string {
	return map[string]string{"rail": payment.RailCrypto, "network": n.String()}
}

func sameAddress(n payment.Network, a, b string) bool {
	if n.Family() == payment.FamilyEVM {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func newSettlementID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}
