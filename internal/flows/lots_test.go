package flows

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

type lotAPI struct {
	*fakeAPI

	brokers []api.Broker
	created []api.NewLot
	updated []api.LotUpdate
}

func (a *lotAPI) Brokers(context.Context, string) ([]api.Broker, error) { return a.brokers, nil }

func (a *lotAPI) CreateLot(_ context.Context, lot api.NewLot) (*api.Lot, error) {
	a.created = append(a.created, lot)
	return &api.Lot{Identificator: "L1", Type: lot.Type, Rate: lot.Rate, LimitFrom: lot.LimitFrom, LimitTo: lot.LimitTo}, nil
}

func (a *lotAPI) UpdateLot(_ context.Context, upd api.LotUpdate) error {
	a.updated = append(a.updated, upd)
	return nil
}

func lotHarness(t *testing.T) (*harness, *lotAPI, *api.User) {
	h := newHarness(t)
	u := h.addUser(&api.User{ID: 5, TelegramID: 500, Currency: "rub"})
	h.api.settings.Currencies = []api.CurrencySettings{{ID: "rub", RateVariation: decimal.RequireFromString("0.05")}}
	la := &lotAPI{fakeAPI: h.api, brokers: []api.Broker{{ID: "sber", Name: "Sberbank"}, {ID: "tinkoff", Name: "Tinkoff"}}}
	h.flows.api = la
	return h, la, u
}

func TestNewLotWizard(t *testing.T) {
	h, la, u := lotHarness(t)
	ctx := context.Background()

	r, err := h.flows.NewLotType(ctx, Input{User: u, Text: "sideways", State: stateOf(state.StateNewLotType, nil)})
	require.NoError(t, err)
	assert.Equal(t, Stay, r.Outcome)

	r, err = h.flows.NewLotType(ctx, Input{User: u, Text: h.label("you_wanna_sell"), State: stateOf(state.StateNewLotType, nil)})
	require.NoError(t, err)
	require.Equal(t, Advance, r.Outcome)
	assert.Equal(t, state.StateNewLotBroker, r.Next)
	assert.Equal(t, api.LotSell, r.Data[keyLotType])

	r, err = h.flows.NewLotBroker(ctx, Input{User: u, Text: "Tinkoff", State: stateOf(state.StateNewLotBroker, r.Data)})
	require.NoError(t, err)
	require.Equal(t, Advance, r.Outcome)
	assert.Equal(t, "tinkoff", r.Data[keyBroker])

	r, err = h.flows.NewLotRate(ctx, Input{User: u, Text: "2%", State: stateOf(state.StateNewLotRate, r.Data)})
	require.NoError(t, err)
	require.Equal(t, Advance, r.Outcome)
	assert.Equal(t, "102", r.Data[keyRate])
	assert.Equal(t, "1.02", r.Data[keyCoefficient])
	assert.Len(t, r.Replies, 2, "percent rates also show the resulting price")

	r, err = h.flows.NewLotLimits(ctx, Input{User: u, Text: "1000 - 5000", State: stateOf(state.StateNewLotLimits, r.Data)})
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	require.Len(t, la.created, 1)
	created := la.created[0]
	assert.Equal(t, api.LotSell, created.Type)
	assert.Equal(t, "tinkoff", created.Broker)
	assert.Equal(t, int64(1000), created.LimitFrom)
	assert.Equal(t, int64(5000), created.LimitTo)
	require.NotNil(t, created.Coefficient)
	assert.Equal(t, "1.02", created.Coefficient.String())
}

func TestNewLotRateOutsideBand(t *testing.T) {
	for _, text := range []string{"10%", "90", "abc"} {
		h, _, u := lotHarness(t)
		r, err := h.flows.NewLotRate(context.Background(), Input{User: u, Text: text, State: stateOf(state.StateNewLotRate, nil)})
		require.NoError(t, err)
		assert.Equal(t, Stay, r.Outcome, text)
		assert.Equal(t, h.flows.view(u).Prompt("wrong_rate", nil).Text, r.Replies[0].Text)
	}
}

func TestNewLotLimitsRejectsBadRange(t *testing.T) {
	h, la, u := lotHarness(t)
	r, err := h.flows.NewLotLimits(context.Background(), Input{
		User:  u,
		Text:  "5000-1000",
		State: stateOf(state.StateNewLotLimits, map[string]interface{}{keyRate: "100"}),
	})
	require.NoError(t, err)
	assert.Equal(t, Stay, r.Outcome)
	assert.Empty(t, la.created)
}

func TestEditConditionsLengthLimit(t *testing.T) {
	h, la, u := lotHarness(t)
	h.api.lots["L1"] = &api.Lot{Identificator: "L1", UserID: u.ID}

	r, err := h.flows.EditConditions(context.Background(), Input{
		User:  u,
		Text:  strings.Repeat("я", maxConditions+1),
		State: stateOf(state.StateChangeConditions, map[string]interface{}{keyLotID: "L1"}),
	})
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Empty(t, la.updated)
}

func TestChangeLotRequiresOwner(t *testing.T) {
	h, _, u := lotHarness(t)
	h.api.lots["L2"] = &api.Lot{Identificator: "L2", UserID: u.ID + 1}

	r, err := h.flows.ChangeRate(context.Background(), Input{User: u, Args: []string{"L2"}})
	require.NoError(t, err)
	assert.Equal(t, Stay, r.Outcome)

	h.api.lots["L3"] = &api.Lot{Identificator: "L3", UserID: u.ID}
	r, err = h.flows.ChangeRate(context.Background(), Input{User: u, Args: []string{"L3"}})
	require.NoError(t, err)
	assert.Equal(t, Advance, r.Outcome)
	assert.Equal(t, state.StateChangeRate, r.Next)
	assert.Equal(t, "L3", r.Data[keyLotID])
}

func TestSortSellLots(t *testing.T) {
	lots := []api.Lot{
		{Identificator: "offline-high", Rate: decimal.NewFromInt(110)},
		{Identificator: "online-low", Rate: decimal.NewFromInt(95), IsOnline: true},
		{Identificator: "verified-high", Rate: decimal.NewFromInt(105), IsVerify: true},
		{Identificator: "offline-low", Rate: decimal.NewFromInt(90)},
	}
	sortSellLots(lots)

	ids := make([]string, 0, len(lots))
	for _, l := range lots {
		ids = append(ids, l.Identificator)
	}
	assert.Equal(t, []string{"verified-high", "online-low", "offline-high", "offline-low"}, ids)
}
