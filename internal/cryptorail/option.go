package cryptorail

import (
	"log/slog"

	"github.com/facebookgo/clock"

	"github.com/congo-pay/paycore/internal/metrics"
	"github.com/congo-pay/paycore/internal/notification"
)

// Option customizes a Service. Nil values keep the default.
type Option func(*Service)

// WithClock sets the time source used for expiry and rate freshness.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithNotifier sets where terminal transitions are announced.
func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}
