package payment

import "fmt"

// Status tracks a payment from submission to finality. Implementations are
// Pending, Confirming, Confirmed, Failed and Expired; all are comparable values.
type Status interface {
	// Terminal reports whether the status can never change again.
	Terminal() bool
	String() string
	isStatus()
}

// Pending means the broadcast has not been observed yet.
type Pending struct{}

// Confirming means the transaction is on chain but below the required depth.
type Confirming struct {
	Observed uint32
	Required uint32
}

// Confirmed means the required depth was reached.
type Confirmed struct{}

// Failed carries the reason reported by the rail.
type Failed struct {
	Reason string
}

// Expired means the quote lapsed before confirmation.
type Expired struct{}

func (Pending) Terminal() bool    { return false }
func (Confirming) Terminal() bool { return false }
func (Confirmed) Terminal() bool  { return true }
func (Failed) Terminal() bool     { return true }
func (Expired) Terminal() bool    { return true }

func (Pending) String() string { return StatePending }
func (c Confirming) String() string {
	return fmt.Sprintf("%s(%d/%d)", StateConfirming, c.Observed, c.Required)
}
func (Confirmed) String() string { return StateConfirmed }
func (f Failed) String() string  { return fmt.Sprintf("%s(%s)", StateFailed, f.Reason) }
func (Expired) String() string   { return StateExpired }

func (Pending) isStatus()    {}
func (Confirming) isStatus() {}
func (Confirmed) isStatus()  {}
func (Failed) isStatus()     {}
func (Expired) isStatus()    {}

const (
	StatePending    = "pending"
	StateConfirming = "confirming"
	StateConfirmed  = "confirmed"
	StateFailed     = "failed"
	StateExpired    = "expired"
)

// StatusView is the flat representation used for JSON and SQL columns.
type StatusView struct {
	State    string `json:"state"`
	Observed uint32 `json:"observed,omitempty"`
	Required uint32 `json:"required,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ViewOf flattens a status.
func ViewOf(s Status) StatusView {
	switch v := s.(type) {
	case Pending:
		return StatusView{State: StatePending}
	case Confirming:
		return StatusView{State: StateConfirming, Observed: v.Observed, Required: v.Required}
	case Confirmed:
		return StatusView{State: StateConfirmed}
	case Failed:
		return StatusView{State: StateFailed, Reason: v.Reason}
	case Expired:
		return StatusView{State: StateExpired}
	default:
		return StatusView{State: StatePending}
	}
}

// Status rebuilds the typed status from its flat form.
func (v StatusView) Status() (Status, error) {
	switch v.State {
	case StatePending:
		return Pending{}, nil
	case StateConfirming:
		return Confirming{Observed: v.Observed, Required: v.Required}, nil
	case StateConfirmed:
		return Confirmed{}, nil
	case StateFailed:
		return Failed{Reason: v.Reason}, nil
	case StateExpired:
		return Expired{}, nil
	default:
		return nil, fmt.Errorf("unknown status state %q", v.State)
	}
}
