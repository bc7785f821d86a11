package flows

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

// dealHarness has a sell lot at 100 per coin whose owner holds one coin, which caps the
// upper limit at 99.
func dealHarness(t *testing.T) (*harness, *api.User) {
	h := newHarness(t)
	owner := h.addUser(&api.User{ID: 2, TelegramID: 200, Nickname: "seller"})
	taker := h.addUser(&api.User{ID: 3, TelegramID: 300, Nickname: "buyer"})
	h.api.wallets[owner.ID] = &api.Wallet{Balance: decimal.NewFromInt(1)}
	h.api.lots["L1"] = &api.Lot{
		Identificator: "L1",
		UserID:        owner.ID,
		Type:          api.LotSell,
		Symbol:        "btc",
		Currency:      "rub",
		Broker:        "Sber",
		Rate:          decimal.NewFromInt(100),
		LimitFrom:     10,
		LimitTo:       5000,
		IsActive:      true,
	}
	return h, taker
}

func TestBeginDealChecksLot(t *testing.T) {
	h, taker := dealHarness(t)
	ctx := context.Background()

	r, err := h.flows.BeginDeal(ctx, Input{User: taker, Args: []string{"L1"}})
	require.NoError(t, err)
	assert.Equal(t, Advance, r.Outcome)
	assert.Equal(t, state.StateEnterSumDeal, r.Next)
	assert.Equal(t, "L1", r.Data[keyLotID])

	h.api.lots["L1"].IsActive = false
	r, err = h.flows.BeginDeal(ctx, Input{User: taker, Args: []string{"L1"}})
	require.NoError(t, err)
	assert.Equal(t, Stay, r.Outcome)
	assert.Equal(t, h.flows.view(taker).Menu("lot_not_active", nil).Text, r.Replies[0].Text)

	taker.ShadowBan = true
	r, err = h.flows.BeginDeal(ctx, Input{User: taker, Args: []string{"L1"}})
	require.NoError(t, err)
	assert.Equal(t, h.flows.view(taker).YouAreBanned().Text, r.Replies[0].Text)
}

func TestEnterSumDeal(t *testing.T) {
	cases := map[string]struct {
		text    string
		outcome Outcome
	}{
		"within limits":        {text: "50", outcome: Advance},
		"fractional":           {text: "50.5", outcome: Stay},
		"below lower limit":    {text: "5", outcome: Stay},
		"above seller balance": {text: "500", outcome: Stay},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h, taker := dealHarness(t)
			r, err := h.flows.EnterSumDeal(context.Background(), Input{
				User:  taker,
				Text:  tc.text,
				State: stateOf(state.StateEnterSumDeal, map[string]interface{}{keyLotID: "L1"}),
			})
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, r.Outcome)
			if tc.outcome == Advance {
				assert.Equal(t, state.StateConfirmationDeal, r.Next)
				assert.Equal(t, "50", r.Data[keyValueCurrency])
				assert.Equal(t, "0.5", r.Data[keyValueUnits])
			}
		})
	}
}

func confirmDealInput(h *harness, taker *api.User, currency, units string) Input {
	return Input{
		User: taker,
		Text: h.label("yes"),
		State: stateOf(state.StateConfirmationDeal, map[string]interface{}{
			keyLotID:         "L1",
			keyValueCurrency: currency,
			keyValueUnits:    units,
		}),
	}
}

func TestConfirmDealCreates(t *testing.T) {
	h, taker := dealHarness(t)

	r, err := h.flows.ConfirmDeal(context.Background(), confirmDealInput(h, taker, "50", "0.5"))
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	require.Len(t, h.api.deals, 1)
	assert.Equal(t, "L1", h.api.deals[0].LotID)
	assert.Equal(t, taker.ID, h.api.deals[0].UserID)
}

func TestConfirmDealRechecksMaxLimit(t *testing.T) {
	h, taker := dealHarness(t)
	// the seller spent most of the balance while the taker was typing
	h.api.wallets[2].Balance = decimal.RequireFromString("0.3")

	r, err := h.flows.ConfirmDeal(context.Background(), confirmDealInput(h, taker, "50", "0.5"))
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Empty(t, h.api.deals)
	assert.Equal(t, h.flows.view(taker).Error(false).Text, r.Replies[0].Text)
}

func TestConfirmDealRejectsRateDrift(t *testing.T) {
	h, taker := dealHarness(t)
	h.api.lots["L1"].Rate = decimal.NewFromInt(104)

	r, err := h.flows.ConfirmDeal(context.Background(), confirmDealInput(h, taker, "50", "0.5"))
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Empty(t, h.api.deals)
	assert.Equal(t, h.flows.view(taker).Menu("rate_changed", nil).Text, r.Replies[0].Text)
}

func TestConfirmDealOtherTextIsUnknownCommand(t *testing.T) {
	h, taker := dealHarness(t)
	in := confirmDealInput(h, taker, "50", "0.5")
	in.Text = "what?"

	r, err := h.flows.ConfirmDeal(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Empty(t, h.api.deals)
}

func TestCancellable(t *testing.T) {
	deal := &api.Deal{State: api.DealProposed, Buyer: api.DealParty{ID: 1}, Seller: api.DealParty{ID: 2}}
	assert.True(t, cancellable(deal, 1))
	assert.True(t, cancellable(deal, 2))
	assert.False(t, cancellable(deal, 3))

	deal.State = api.DealConfirmed
	assert.True(t, cancellable(deal, 1))
	assert.False(t, cancellable(deal, 2))

	deal.State = api.DealPaid
	assert.False(t, cancellable(deal, 1))
}
