package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to withdraw address", from: StateIdle, to: StateChooseAddressWithdraw, expected: true},
		{name: "address to amount", from: StateChooseAddressWithdraw, to: StateChooseAmountWithdraw, expected: true},
		{name: "amount to confirmation", from: StateChooseAmountWithdraw, to: StateConfirmationWithdraw, expected: true},
		{name: "sum straight to confirmation", from: StateEnterSumDeal, to: StateConfirmationDeal, expected: true},
		{name: "sum to requisites", from: StateEnterSumDeal, to: StateEnterReqDeal, expected: true},
		{name: "stay in place", from: StateNewLotRate, to: StateNewLotRate, expected: true},
		{name: "any state back to idle", from: StateConfirmationDeal, to: StateIdle, expected: true},
		{name: "another flow interrupts", from: StateWriteMessage, to: StatePromocodesCount, expected: true},
		{name: "idle to withdraw confirmation invalid", from: StateIdle, to: StateConfirmationWithdraw, expected: false},
		{name: "lot type to limits invalid", from: StateNewLotType, to: StateNewLotLimits, expected: false},
		{name: "unknown to promo amount invalid", from: State("unknown"), to: StatePromocodesAmount, expected: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}

func TestQualify(t *testing.T) {
	if got := StateWriteMessage.Qualify("btc"); got != "write_message_btc" {
		t.Fatalf("Qualify = %q", got)
	}
	if got := Unqualify("write_message_btc", "btc"); got != StateWriteMessage {
		t.Fatalf("Unqualify = %q", got)
	}
	if got := Unqualify("idle", "btc"); got != StateIdle {
		t.Fatalf("Unqualify idle = %q", got)
	}
}
