package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/paycore/internal/cardrail"
	"github.com/congo-pay/paycore/internal/cryptorail"
	"github.com/congo-pay/paycore/internal/logging"
	"github.com/congo-pay/paycore/internal/notification"
	"github.com/congo-pay/paycore/internal/payment"
	"github.com/congo-pay/paycore/internal/pricefeed"
	"github.com/congo-pay/paycore/internal/txstore"
	"github.com/congo-pay/paycore/internal/wallet"
)

const bech32Address = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"

type harness struct {
	svc      *Service
	clk      *clock.Mock
	store    txstore.Store
	card     *cardrail.MemoryIntermediary
	notifier *notification.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := clock.NewMock()
	clk.Add(24 * time.Hour)

	prices := pricefeed.NewMemory(clk)
	if err := prices.Set(context.Background(), "BTC", decimal.NewFromInt(45000)); err != nil {
		t.Fatalf("seed rate: %v", err)
	}

	h := &harness{
		clk:      clk,
		store:    txstore.NewMemory(),
		card:     cardrail.NewMemoryIntermediary(),
		notifier: &notification.Recorder{},
	}
	crypto := cryptorail.NewService(h.store, prices, wallet.NewManager(nil), cryptorail.DefaultConfig(),
		cryptorail.WithClock(clk), cryptorail.WithNotifier(h.notifier))
	card := cardrail.NewService(h.card, "US", logging.Discard())
	h.svc = NewService(card, crypto, h.notifier, nil, logging.Discard())
	return h
}

func (h *harness) cryptoRequest() payment.Request {
	return payment.Request{
		Amount:   4500,
		Currency: "USD",
		Method: payment.Crypto{Details: payment.CryptoDetails{
			Currency:      payment.BTC,
			Network:       payment.Bitcoin,
			WalletAddress: bech32Address,
			AmountCrypto:  decimal.RequireFromString("0.001"),
			ExchangeRate:  decimal.NewFromInt(45000),
			ExpiresAt:     h.clk.Now().Add(time.Hour),
		}},
	}
}

func (h *harness) records(t *testing.T) int {
	t.Helper()
	n, err := h.store.Len(context.Background())
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	return n
}

func TestProcessCardPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.ProcessPayment(ctx, payment.Request{Amount: 10000, Currency: "usd", Method: payment.Card{}})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.PaymentIntentID == "" || res.TransactionHash != "" || res.ClientSecret == "" {
		t.Fatalf("unexpected identifiers %+v", res)
	}
	if res.Fees.ProcessingFee != 320 || res.Fees.TotalFee != 320 {
		t.Fatalf("unexpected card fees %+v", res.Fees)
	}

	status, err := h.svc.CheckPaymentStatus(ctx, res)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != res.Status {
		t.Fatalf("expected round-trip status %s, got %s", res.Status, status)
	}
}

func TestProcessCryptoPayment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.ProcessPayment(ctx, h.cryptoRequest())
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.TransactionHash == "" || res.PaymentIntentID != "" {
		t.Fatalf("unexpected identifiers %+v", res)
	}
	if res.Status != (payment.Pending{}) {
		t.Fatalf("expected pending, got %s", res.Status)
	}
	if !res.Fees.NetworkFee.Equal(decimal.RequireFromString("0.0001")) {
		t.Fatalf("expected network fee 0.0001, got %s", res.Fees.NetworkFee)
	}
	if res.Fees.Currency != "usd" {
		t.Fatalf("expected normalised fee currency, got %s", res.Fees.Currency)
	}

	status, err := h.svc.CheckPaymentStatus(ctx, res)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != res.Status {
		t.Fatalf("expected round-trip status %s, got %s", res.Status, status)
	}

	status, err = h.svc.UpdateConfirmations(ctx, res.TransactionHash, 6)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if status != (payment.Confirmed{}) {
		t.Fatalf("expected confirmed, got %s", status)
	}
}

func TestInvalidRequestsHaveNoSideEffects(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	badAddress := h.cryptoRequest()
	m := badAddress.Method.(payment.Crypto)
	m.Details.WalletAddress = "not-an-address"
	badAddress.Method = m

	expired := h.cryptoRequest()
	m = expired.Method.(payment.Crypto)
	m.Details.ExpiresAt = h.clk.Now().Add(-time.Minute)
	expired.Method = m

	euro := h.cryptoRequest()
	euro.Currency = "EUR"

	cases := []struct {
		name string
		req  payment.Request
		want error
	}{
		{"crypto priced in eur", euro, payment.ErrInvalidRequest},
		{"zero amount", payment.Request{Amount: 0, Currency: "usd", Method: payment.Card{}}, payment.ErrInvalidRequest},
		{"empty currency", payment.Request{Amount: 100, Method: payment.Card{}}, payment.ErrInvalidRequest},
		{"no method", payment.Request{Amount: 100, Currency: "usd"}, payment.ErrInvalidRequest},
		{"bad address", badAddress, payment.ErrInvalidAddress},
		{"expired quote", expired, payment.ErrRequestExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := h.svc.ProcessPayment(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if n := h.records(t); n != 0 {
		t.Fatalf("expected no transaction records, got %d", n)
	}
}

func TestRefundRouting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	card, err := h.svc.ProcessPayment(ctx, payment.Request{Amount: 10000, Currency: "usd", Method: payment.Card{}})
	if err != nil {
		t.Fatalf("process card: %v", err)
	}
	if _, err := h.svc.ConfirmCardPayment(ctx, card.PaymentIntentID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	over := int64(20000)
	if _, err := h.svc.RefundPayment(ctx, card, &over); !errors.Is(err, payment.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := h.svc.RefundPayment(ctx, card, nil); err != nil {
		t.Fatalf("refund: %v", err)
	}

	crypto, err := h.svc.ProcessPayment(ctx, h.cryptoRequest())
	if err != nil {
		t.Fatalf("process crypto: %v", err)
	}
	if _, err := h.svc.RefundPayment(ctx, crypto, nil); !errors.Is(err, payment.ErrRailFailure) {
		t.Fatalf("expected rail failure for crypto refund, got %v", err)
	}

	kinds := map[string]bool{}
	for _, msg := range h.notifier.Messages() {
		kinds[msg.Kind] = true
	}
	if !kinds[notification.KindPaymentConfirmed] || !kinds[notification.KindPaymentRefunded] {
		t.Fatalf("expected confirm and refund notifications, got %+v", h.notifier.Messages())
	}
}

func TestCreateSubscriptionPayment(t *testing.T) {
	h := newHarness(t)
	res, err := h.svc.CreateSubscriptionPayment(context.Background(), 999, "usd", "ada@example.com", payment.Card{})
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	if res.PaymentIntentID == "" || res.Status != (payment.Pending{}) {
		t.Fatalf("unexpected subscription result %+v", res)
	}
}

func TestSupportedListings(t *testing.T) {
	h := newHarness(t)
	if methods := h.svc.SupportedMethods(); len(methods) != 2 {
		t.Fatalf("expected two methods, got %v", methods)
	}
	currencies := h.svc.SupportedCurrencies()
	if len(currencies.Fiat) != 10 || len(currencies.Crypto) != 5 {
		t.Fatalf("unexpected currencies %+v", currencies)
	}
}
