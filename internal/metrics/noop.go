package metrics

import "time"

// NoopRecorder discards every observation. It is the default when no
// registry is wired.
type NoopRecorder struct{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
