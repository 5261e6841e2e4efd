package metrics

import "time"

// Recorder receives payment events. Labels other than "rail" and "network"
// are ignored by the Prometheus implementation.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
