package cardrail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Intent statuses reported by the intermediary.
const (
	IntentRequiresConfirmation = "requires_confirmation"
	IntentProcessing           = "processing"
	IntentSucceeded            = "succeeded"
	IntentCanceled             = "canceled"
	IntentFailed               = "failed"
)

// Metadata keys understood by MemoryIntermediary.
const (
	MetadataIssuerCountry = "card_issuer_country"
	MetadataDecline       = "card_decline_reason"
)

var (
	// ErrIntentNotFound is returned by an intermediary for unknown intent ids.
	ErrIntentNotFound = errors.New("intent not found")
	// ErrIntentState is returned when an intent cannot take the requested transition.
	ErrIntentState = errors.New("intent state does not allow operation")
)

// IntentInput describes a new charge.
type IntentInput struct {
	Amount      int64
	Currency    string
	Description string
	Customer    string
	Metadata    map[string]string
}

// Intent is the intermediary's record of a card charge.
type Intent struct {
	ID            string
	ClientSecret  string
	Status        string
	FailureReason string
	Amount        int64
	Refunded      int64
	Currency      string
	IssuerCountry string
	CreatedAt     time.Time
}

// Intermediary represents a connector to an external card processor. Its
// responses are authoritative for card payment status.
type Intermediary interface {
	CreateIntent(ctx context.Context, input IntentInput) (Intent, error)
	RetrieveIntent(ctx context.Context, id string) (Intent, error)
	ConfirmIntent(ctx context.Context, id string) (Intent, error)
	CancelIntent(ctx context.Context, id string) (Intent, error)
	RefundIntent(ctx context.Context, id string, amount int64) (Intent, error)
}

type memoryIntent struct {
	Intent
	decline string
}

// MemoryIntermediary simulates a card processor in process.
type MemoryIntermediary struct {
	mu      sync.Mutex
	intents map[string]*memoryIntent
}

// NewMemoryIntermediary constructs an empty simulator.
func NewMemoryIntermediary() *MemoryIntermediary {
	return &MemoryIntermediary{intents: make(map[string]*memoryIntent)}
}

func (m *MemoryIntermediary) CreateIntent(_ context.Context, input IntentInput) (Intent, error) {
	if input.Amount <= 0 {
		return Intent{}, fmt.Errorf("amount must be positive")
	}
	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	in := &memoryIntent{
		Intent: Intent{
			ID:            id,
			ClientSecret:  id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
			Status:        IntentRequiresConfirmation,
			Amount:        input.Amount,
			Currency:      input.Currency,
			IssuerCountry: strings.ToUpper(input.Metadata[MetadataIssuerCountry]),
			CreatedAt:     time.Now().UTC(),
		},
		decline: input.Metadata[MetadataDecline],
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[id] = in
	return in.Intent, nil
}

func (m *MemoryIntermediary) RetrieveIntent(_ context.Context, id string) (Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[id]
	if !ok {
		return Intent{}, fmt.Errorf("%w: %s", ErrIntentNotFound, id)
	}
	return in.Intent, nil
}

func (m *MemoryIntermediary) ConfirmIntent(_ context.Context, id string) (Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[id]
	if !ok {
		return Intent{}, fmt.Errorf("%w: %s", ErrIntentNotFound, id)
	}
	switch in.Status {
	case IntentSucceeded, IntentFailed:
		return in.Intent, nil
	case IntentCanceled:
		return Intent{}, fmt.Errorf("%w: %s is canceled", ErrIntentState, id)
	}
	if in.decline != "" {
		in.Status = IntentFailed
		in.FailureReason = in.decline
	} else {
		in.Status = IntentSucceeded
	}
	return in.Intent, nil
}

func (m *MemoryIntermediary) CancelIntent(_ context.Context, id string) (Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[id]
	if !ok {
		return Intent{}, fmt.Errorf("%w: %s", ErrIntentNotFound, id)
	}
	switch in.Status {
	case IntentSucceeded, IntentFailed:
		return Intent{}, fmt.Errorf("%w: %s is %s", ErrIntentState, id, in.Status)
	}
	in.Status = IntentCanceled
	return in.Intent, nil
}

func (m *MemoryIntermediary) RefundIntent(_ context.Context, id string, amount int64) (Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[id]
	if !ok {
		return Intent{}, fmt.Errorf("%w: %s", ErrIntentNotFound, id)
	}
	if in.Status != IntentSucceeded {
		return Intent{}, fmt.Errorf("%w: %s is %s", ErrIntentState, id, in.Status)
	}
	if amount <= 0 || in.Refunded+amount > in.Amount {
		return Intent{}, fmt.Errorf("refund of %d exceeds refundable %d", amount, in.Amount-in.Refunded)
	}
	in.Refunded += amount
	return in.Intent, nil
}
