package contracts

import (
	"testing"
)

func TestParseOrderSide(t *testing.T) {
	tests := []struct {
		input  string
		want   OrderSide
		wantOK bool
	}{
		{"buy", OrderSideBuy, true},
		{"sell", OrderSideSell, true},
		{"closed", OrderSideClosed, true},
		{"BUY", "", false}, // exact match only, mirroring the raw payload
		{"", "", false},
		{"hold", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseOrderSide(tt.input)
			if ok != tt.wantOK {
				t.Errorf("ParseOrderSide(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseOrderSide(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestOrderSide_SideRank(t *testing.T) {
	if OrderSideBuy.SideRank() >= OrderSideSell.SideRank() {
		t.Error("buy must sort before sell")
	}
	if OrderSideSell.SideRank() >= OrderSideClosed.SideRank() {
		t.Error("sell must sort before closed")
	}
	if OrderSide("mystery").SideRank() <= OrderSideClosed.SideRank() {
		t.Error("unknown sides must sort last")
	}
}

func TestRawPayload_EntryCount(t *testing.T) {
	payload := RawPayload{
		"a": {{"order_type": "buy"}, {"order_type": "sell"}},
		"b": {{"order_type": "closed"}},
		"c": {},
	}
	if got := payload.EntryCount(); got != 3 {
		t.Errorf("EntryCount() = %d, want 3", got)
	}

	if got := (RawPayload{}).EntryCount(); got != 0 {
		t.Errorf("EntryCount() on empty payload = %d, want 0", got)
	}
}
