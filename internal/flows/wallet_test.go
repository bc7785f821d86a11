package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

const testAddress = "bc1qexampleaddress"

func withdrawHarness(t *testing.T) (*harness, *api.User) {
	h := newHarness(t)
	u := h.addUser(&api.User{ID: 7, TelegramID: 700})
	h.api.wallets[u.ID] = &api.Wallet{Balance: decimal.NewFromInt(1)}
	return h, u
}

func TestWithdrawAmountAcceptsComma(t *testing.T) {
	h, u := withdrawHarness(t)

	r, err := h.flows.WithdrawAmount(context.Background(), Input{
		User:  u,
		Text:  "0,5",
		State: stateOf(state.StateChooseAmountWithdraw, map[string]interface{}{keyAddress: testAddress}),
	})
	require.NoError(t, err)
	assert.Equal(t, Advance, r.Outcome)
	assert.Equal(t, state.StateConfirmationWithdraw, r.Next)
	assert.Equal(t, "0.5", r.Data[keyAmount])
	assert.Equal(t, testAddress, r.Data[keyAddress])
}

func TestWithdrawAmountRejections(t *testing.T) {
	cases := map[string]struct {
		text  string
		limit string
	}{
		"not a number":      {text: "abc"},
		"above balance":     {text: "2"},
		"below minimum":     {text: "0.0001"},
		"too many decimals": {text: "0.123456789"},
		"above daily limit": {text: "0.5", limit: "0.1"},
		"negative":          {text: "-0.5"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h, u := withdrawHarness(t)
			if tc.limit != "" {
				h.api.wallets[u.ID].WithdrawalLimit = decimal.RequireFromString(tc.limit)
			}
			r, err := h.flows.WithdrawAmount(context.Background(), Input{
				User:  u,
				Text:  tc.text,
				State: stateOf(state.StateChooseAmountWithdraw, map[string]interface{}{keyAddress: testAddress}),
			})
			require.NoError(t, err)
			assert.Equal(t, Stay, r.Outcome)
		})
	}
}

func confirmWithdrawInput(h *harness, u *api.User, amount string) Input {
	return Input{
		User: u,
		Text: h.label("yes"),
		State: stateOf(state.StateConfirmationWithdraw, map[string]interface{}{
			keyAddress: testAddress,
			keyAmount:  amount,
		}),
	}
}

func TestWithdrawConfirmSends(t *testing.T) {
	h, u := withdrawHarness(t)

	r, err := h.flows.WithdrawConfirm(context.Background(), confirmWithdrawInput(h, u, "0.5"))
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	require.Len(t, h.api.sent, 1)
	assert.True(t, h.api.sent[0].Amount.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, []string{testAddress}, h.guard.recorded)
	assert.Equal(t, h.flows.view(u).TransactionInQueue().Text, r.Replies[0].Text)
}

func TestWithdrawConfirmCooldown(t *testing.T) {
	h, u := withdrawHarness(t)
	h.guard.blocked = true

	r, err := h.flows.WithdrawConfirm(context.Background(), confirmWithdrawInput(h, u, "0.5"))
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Empty(t, h.api.sent)
	assert.Empty(t, h.guard.recorded)
}

func TestWithdrawConfirmCooldownSkippedInTestMode(t *testing.T) {
	h, u := withdrawHarness(t)
	h.guard.blocked = true
	h.flows.opts.TestMode = true

	_, err := h.flows.WithdrawConfirm(context.Background(), confirmWithdrawInput(h, u, "0.5"))
	require.NoError(t, err)
	assert.Len(t, h.api.sent, 1)
}

func TestWithdrawConfirmRechecksBalance(t *testing.T) {
	h, u := withdrawHarness(t)
	h.api.wallets[u.ID].Balance = decimal.RequireFromString("0.1")

	r, err := h.flows.WithdrawConfirm(context.Background(), confirmWithdrawInput(h, u, "0.5"))
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Empty(t, h.api.sent)
	assert.Equal(t, h.flows.view(u).Menu("wrong_sum", nil).Text, r.Replies[0].Text)
}

func TestWithdrawConfirmConflict(t *testing.T) {
	h, u := withdrawHarness(t)
	h.api.sendErr = errors.New("api: 409 Conflict")

	r, err := h.flows.WithdrawConfirm(context.Background(), confirmWithdrawInput(h, u, "0.5"))
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Equal(t, h.flows.view(u).Menu("withdrawal_limit_reached", nil).Text, r.Replies[0].Text)
}
