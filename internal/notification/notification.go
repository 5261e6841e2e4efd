package notification

import (
	"context"
	"log/slog"
	"sync"
)

const (
	// KindPaymentConfirmed is sent once a settlement reaches its final depth.
	KindPaymentConfirmed = "payment_confirmed"
	// KindPaymentExpired is sent when a quote lapses before confirmation.
	KindPaymentExpired = "payment_expired"
	// KindPaymentFailed is sent when a rail reports a failed settlement.
	KindPaymentFailed = "payment_failed"
	// KindPaymentRefunded is sent after a card refund is accepted.
	KindPaymentRefunded = "payment_refunded"
)

// Message describes a notification payload. Destination is the settlement id.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "body", message.Body)
	return nil
}

// Recorder keeps every message in memory. Tests use it to assert delivery.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Send appends the message.
func (r *Recorder) Send(_ context.Context, message Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

// Messages returns a copy of everything sent so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}
