package flows

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

type promoAPI struct {
	*fakeAPI

	createErr  error
	created    []decimal.Decimal
	counts     []int
	activation *api.PromocodeActivation
}

func (a *promoAPI) CreatePromocode(_ context.Context, _ int64, activations int, amount decimal.Decimal) (*api.Promocode, error) {
	if a.createErr != nil {
		return nil, a.createErr
	}
	a.created = append(a.created, amount)
	a.counts = append(a.counts, activations)
	return &api.Promocode{ID: 1, Code: "SKYCODE", Amount: amount, Count: activations}, nil
}

func (a *promoAPI) ActivatePromocode(context.Context, int64, string) (*api.PromocodeActivation, error) {
	if a.activation == nil {
		return nil, &api.RejectionError{Status: 403, Detail: "promocode not found"}
	}
	return a.activation, nil
}

func promoHarness(t *testing.T) (*harness, *promoAPI, *api.User) {
	h := newHarness(t)
	u := h.addUser(&api.User{ID: 3, TelegramID: 300, Currency: "rub"})
	h.api.wallets[u.ID] = &api.Wallet{Balance: decimal.NewFromInt(1)}
	pa := &promoAPI{fakeAPI: h.api}
	h.flows.api = pa
	return h, pa, u
}

func TestCreatePromocodeStartsWizard(t *testing.T) {
	h, _, u := promoHarness(t)

	r, err := h.flows.CreatePromocode(context.Background(), Input{User: u, Args: []string{keyboard.PromoFiat}})
	require.NoError(t, err)
	assert.Equal(t, Advance, r.Outcome)
	assert.Equal(t, state.StatePromocodesCount, r.Next)
	assert.Equal(t, keyboard.PromoFiat, r.Data[keyPromoKind])
}

func TestCreatePromocodeNeedsBalance(t *testing.T) {
	h, _, u := promoHarness(t)
	h.api.wallets[u.ID].Balance = decimal.RequireFromString("0.0001")

	r, err := h.flows.CreatePromocode(context.Background(), Input{User: u, Args: []string{keyboard.PromoCrypto}})
	require.NoError(t, err)
	assert.Equal(t, Stay, r.Outcome)
	assert.Equal(t, h.flows.view(u).NotEnoughForPromocode(false).Text, r.Replies[0].Text)
}

func TestPromocodeCountBounds(t *testing.T) {
	for _, text := range []string{"0", "1000", "abc", "-3"} {
		h, _, u := promoHarness(t)
		r, err := h.flows.PromocodeCount(context.Background(), Input{
			User:  u,
			Text:  text,
			State: stateOf(state.StatePromocodesCount, map[string]interface{}{keyPromoKind: keyboard.PromoCrypto}),
		})
		require.NoError(t, err)
		assert.Equal(t, Stay, r.Outcome, text)
	}

	h, _, u := promoHarness(t)
	r, err := h.flows.PromocodeCount(context.Background(), Input{
		User:  u,
		Text:  "999",
		State: stateOf(state.StatePromocodesCount, map[string]interface{}{keyPromoKind: keyboard.PromoCrypto}),
	})
	require.NoError(t, err)
	assert.Equal(t, Advance, r.Outcome)
	assert.Equal(t, state.StatePromocodesAmount, r.Next)
	assert.Equal(t, 999, r.Data[keyPromoCount])
	assert.Equal(t, keyboard.PromoCrypto, r.Data[keyPromoKind])
}

func TestPromocodeAmountConvertsFiat(t *testing.T) {
	h, pa, u := promoHarness(t)
	h.api.wallets[u.ID].Balance = decimal.NewFromInt(10)

	r, err := h.flows.PromocodeAmount(context.Background(), Input{
		User:  u,
		Text:  "150,5",
		State: stateOf(state.StatePromocodesAmount, map[string]interface{}{keyPromoKind: keyboard.PromoFiat, keyPromoCount: 2}),
	})
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	require.Len(t, pa.created, 1)
	// 150.5 RUB at 100 RUB per coin
	assert.True(t, decimal.RequireFromString("1.505").Equal(pa.created[0]), pa.created[0].String())
	assert.Equal(t, []int{2}, pa.counts)
	require.Len(t, r.Replies, 2)
	assert.Contains(t, r.Replies[1].Text, "SKYCODE")
}

func TestPromocodeAmountRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("below fiat minimum", func(t *testing.T) {
		h, pa, u := promoHarness(t)
		r, err := h.flows.PromocodeAmount(ctx, Input{
			User:  u,
			Text:  "99",
			State: stateOf(state.StatePromocodesAmount, map[string]interface{}{keyPromoKind: keyboard.PromoFiat, keyPromoCount: 1}),
		})
		require.NoError(t, err)
		assert.Equal(t, Stay, r.Outcome)
		assert.Empty(t, pa.created)
	})

	t.Run("fiat currency without a minimum", func(t *testing.T) {
		h, pa, u := promoHarness(t)
		u.Currency = "eur"
		r, err := h.flows.PromocodeAmount(ctx, Input{
			User:  u,
			Text:  "1000",
			State: stateOf(state.StatePromocodesAmount, map[string]interface{}{keyPromoKind: keyboard.PromoFiat, keyPromoCount: 1}),
		})
		require.NoError(t, err)
		assert.Equal(t, Stay, r.Outcome)
		assert.Equal(t, h.flows.view(u).WrongAmount().Text, r.Replies[0].Text)
		assert.Empty(t, pa.created)
	})

	t.Run("coin without a minimum", func(t *testing.T) {
		h, pa, u := promoHarness(t)
		h.flows.opts.Symbol = "DOGE"
		r, err := h.flows.PromocodeAmount(ctx, Input{
			User:  u,
			Text:  "0.5",
			State: stateOf(state.StatePromocodesAmount, map[string]interface{}{keyPromoKind: keyboard.PromoCrypto, keyPromoCount: 1}),
		})
		require.NoError(t, err)
		assert.Equal(t, Stay, r.Outcome)
		assert.Equal(t, h.flows.view(u).WrongAmount().Text, r.Replies[0].Text)
		assert.Empty(t, pa.created)
	})

	t.Run("balance does not cover every activation", func(t *testing.T) {
		h, pa, u := promoHarness(t)
		r, err := h.flows.PromocodeAmount(ctx, Input{
			User:  u,
			Text:  "0.4",
			State: stateOf(state.StatePromocodesAmount, map[string]interface{}{keyPromoKind: keyboard.PromoCrypto, keyPromoCount: 3}),
		})
		require.NoError(t, err)
		assert.Equal(t, Reset, r.Outcome)
		assert.Empty(t, pa.created)
	})

	t.Run("api limit", func(t *testing.T) {
		h, pa, u := promoHarness(t)
		pa.createErr = &api.RejectionError{Status: 403, Detail: "Promocode limit"}
		r, err := h.flows.PromocodeAmount(ctx, Input{
			User:  u,
			Text:  "0.01",
			State: stateOf(state.StatePromocodesAmount, map[string]interface{}{keyPromoKind: keyboard.PromoCrypto, keyPromoCount: 1}),
		})
		require.NoError(t, err)
		assert.Equal(t, Reset, r.Outcome)
		assert.Equal(t, h.flows.view(u).Menu("promocode_limit", nil).Text, r.Replies[0].Text)
	})
}

func TestCheckPromocode(t *testing.T) {
	h, pa, u := promoHarness(t)
	h.addUser(&api.User{ID: 9, Nickname: "owner"})
	ctx := context.Background()

	r, err := h.flows.CheckPromocode(ctx, Input{User: u, Text: "NOPE"})
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Equal(t, h.flows.view(u).Menu("wrong_promocode", nil).Text, r.Replies[0].Text)

	pa.activation = &api.PromocodeActivation{OwnerID: 9, Amount: decimal.RequireFromString("0.01")}
	r, err = h.flows.CheckPromocode(ctx, Input{User: u, Text: " SKYCODE "})
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Contains(t, r.Replies[0].Text, "owner")
}
