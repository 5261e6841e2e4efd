package notification

import (
	"context"
	"testing"

	"github.com/congo-pay/paycore/internal/logging"
)

func TestLoggerNotifierNilSafe(t *testing.T) {
	var n *LoggerNotifier
	if err := n.Send(context.Background(), Message{Kind: KindPaymentFailed}); err != nil {
		t.Fatalf("expected nil error from nil notifier, got %v", err)
	}
	if err := NewLoggerNotifier(logging.Discard()).Send(context.Background(), Message{Kind: KindPaymentConfirmed}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestRecorderCopiesMessages(t *testing.T) {
	r := &Recorder{}
	_ = r.Send(context.Background(), Message{Kind: KindPaymentConfirmed, Destination: "0x01"})

	got := r.Messages()
	got[0].Kind = "mutated"
	if r.Messages()[0].Kind != KindPaymentConfirmed {
		t.Fatalf("expected recorder to return a copy")
	}
}
