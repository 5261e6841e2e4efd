package payment

import (
	"errors"
	"testing"
)

func TestStatusTerminal(t *testing.T) {
	cases := map[Status]bool{
		Pending{}:                           false,
		Confirming{Observed: 2, Required: 6}: false,
		Confirmed{}:                         true,
		Failed{Reason: "dropped"}:           true,
		Expired{}:                           true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Fatalf("%s: expected terminal=%v, got %v", status, want, got)
		}
	}
}

func TestStatusViewRejectsUnknownState(t *testing.T) {
	if _, err := (StatusView{State: "settled"}).Status(); err == nil {
		t.Fatal("expected error for unknown state")
	}
}

func TestNetworkFamily(t *testing.T) {
	for _, n := range []Network{Ethereum, Polygon, BSC, Arbitrum, Optimism} {
		if n.Family() != FamilyEVM {
			t.Fatalf("%s: expected evm family", n)
		}
	}
	if Bitcoin.Family() != FamilyBitcoin {
		t.Fatal("expected bitcoin family")
	}
	if ParseNetwork("solana").Family() != FamilyOther {
		t.Fatal("expected custom network to fall in the other family")
	}
	if ParseNetwork("binance-smart-chain") != BSC {
		t.Fatal("expected alias to resolve to BSC")
	}
}

func TestRailFailureWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := RailFailure("card", cause)
	if !errors.Is(err, ErrRailFailure) || !errors.Is(err, cause) {
		t.Fatalf("expected both sentinel and cause in chain, got %v", err)
	}
	if RailFailure("card", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}
}

func TestResultSettlementID(t *testing.T) {
	card := Result{PaymentIntentID: "pi_1"}
	crypto := Result{TransactionHash: "0xabc"}
	if card.SettlementID() != "pi_1" || crypto.SettlementID() != "0xabc" {
		t.Fatalf("unexpected settlement ids %q %q", card.SettlementID(), crypto.SettlementID())
	}
}
