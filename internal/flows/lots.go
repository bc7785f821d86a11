package flows

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/money"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

const (
	keyLotType     = "lot_type"
	keyBroker      = "broker"
	keyRate        = "rate"
	keyCoefficient = "coefficient"
	keyLotID       = "lot_id"

	maxConditions = 1024
)

func pageArg(in Input, i int) int {
	page, err := strconv.Atoi(in.Arg(i))
	if err != nil {
		return 1
	}
	return page
}

// Exchange is the entry screen of the market.
func (f *Flows) Exchange(ctx context.Context, in Input) (Result, error) {
	u := in.User
	rate, err := f.api.Rate(ctx, u.Currency)
	if err != nil {
		return Result{}, fmt.Errorf("exchange: rate: %w", err)
	}
	active, err := f.api.ActiveDealsCount(ctx, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("exchange: active deals: %w", err)
	}
	lots, err := f.api.UserLots(ctx, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("exchange: lots: %w", err)
	}
	return reply(f.view(u).Exchange(rate, u.Currency, active, len(lots))), nil
}

// HandleLots lists the user's own lots with the rate distance to the market.
func (f *Flows) HandleLots(ctx context.Context, in Input) (Result, error) {
	u := in.User
	lots, err := f.api.UserLots(ctx, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("handle lots: %w", err)
	}
	wallet, err := f.api.GetWallet(ctx, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("handle lots: %w", err)
	}

	currencies := lo.Uniq(append(lo.Map(lots, func(l api.Lot, _ int) string { return l.Currency }), u.Currency))
	rates := make(map[string]decimal.Decimal, len(currencies))
	for _, c := range currencies {
		if rates[c], err = f.api.Rate(ctx, c); err != nil {
			return Result{}, fmt.Errorf("handle lots: rate %s: %w", c, err)
		}
	}

	page, from, to := keyboard.PageBounds(pageArg(in, 0), len(lots))
	return reply(f.view(u).HandleLots(u.Currency, rates, wallet.IsActive, lots[from:to], page, keyboard.Pages(len(lots)))), nil
}

func (f *Flows) ToggleTrading(ctx context.Context, in Input) (Result, error) {
	if err := f.api.ToggleTrading(ctx, in.User.ID); err != nil {
		return Result{}, fmt.Errorf("toggle trading: %w", err)
	}
	in.Args = []string{"1"}
	return f.HandleLots(ctx, in)
}

// Market shows one side of the book grouped by broker.
func (f *Flows) Market(ctx context.Context, in Input) (Result, error) {
	u := in.User
	lotType := in.Arg(0)
	if lotType != api.LotBuy && lotType != api.LotSell {
		return reply(f.view(u).Error(false)), nil
	}
	rate, err := f.api.Rate(ctx, u.Currency)
	if err != nil {
		return Result{}, fmt.Errorf("market: rate: %w", err)
	}
	lots, err := f.api.MarketLots(ctx, u.ID, lotType)
	if err != nil {
		return Result{}, fmt.Errorf("market: %w", err)
	}
	page, from, to := keyboard.PageBounds(pageArg(in, 1), len(lots))
	return reply(f.view(u).Market(lotType, rate, u.Currency, lots[from:to], page, keyboard.Pages(len(lots)))), nil
}

func (f *Flows) broker(ctx context.Context, currency, id, name string) (*api.Broker, error) {
	brokers, err := f.api.Brokers(ctx, currency)
	if err != nil {
		return nil, err
	}
	b, ok := lo.Find(brokers, func(b api.Broker) bool {
		return (id != "" && b.ID == id) || (name != "" && b.Name == name)
	})
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// sortSellLots puts online or verified sellers first, then the best rate.
func sortSellLots(lots []api.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		pi, pj := lots[i].IsOnline || lots[i].IsVerify, lots[j].IsOnline || lots[j].IsVerify
		if pi != pj {
			return pi
		}
		return lots[i].Rate.GreaterThan(lots[j].Rate)
	})
}

// BrokerLots lists the lots of one broker for one side of the book.
func (f *Flows) BrokerLots(ctx context.Context, in Input) (Result, error) {
	u := in.User
	lotType := in.Arg(0)
	b, err := f.broker(ctx, "", in.Arg(1), "")
	if err != nil {
		return Result{}, fmt.Errorf("broker lots: %w", err)
	}
	if b == nil {
		return reply(f.view(u).Error(false)), nil
	}
	lots, err := f.api.BrokerLots(ctx, u.ID, lotType, b.ID)
	if err != nil {
		return Result{}, fmt.Errorf("broker lots: %w", err)
	}
	if lotType == api.LotSell {
		sortSellLots(lots)
	}
	page, from, to := keyboard.PageBounds(pageArg(in, 2), len(lots))
	return reply(f.view(u).BrokerLots(lotType, *b, len(lots), lots[from:to], page, keyboard.Pages(len(lots)))), nil
}

// lotLimit recomputes the upper limit of lot from the balance of whoever sells crypto.
func (f *Flows) lotLimit(ctx context.Context, lot api.Lot, takerID int64) (int64, *api.Wallet, error) {
	wallet, err := f.api.GetWallet(ctx, lot.SellerID(takerID))
	if err != nil {
		return 0, nil, err
	}
	return money.MaxLimit(lot.LimitTo, wallet.Balance, lot.Rate), wallet, nil
}

// Lot shows a lot. Owners get the management card, everybody else the deal card.
func (f *Flows) Lot(ctx context.Context, in Input) (Result, error) {
	return f.showLot(ctx, in.User, in.Arg(0))
}

func (f *Flows) showLot(ctx context.Context, u *api.User, lotID string) (Result, error) {
	v := f.view(u)
	lot, err := f.api.GetLot(ctx, lotID)
	if err != nil || !strings.EqualFold(lot.Symbol, f.opts.Symbol) {
		return reply(v.Menu("no_such_lot", nil)), nil
	}
	if lot.UserID == u.ID {
		return reply(v.SelfLot(*lot)), nil
	}

	owner, err := f.api.GetUser(ctx, lot.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("lot: owner: %w", err)
	}
	stat, err := f.api.UserStat(ctx, lot.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("lot: owner stat: %w", err)
	}
	limitTo, sellerWallet, err := f.lotLimit(ctx, *lot, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("lot: seller wallet: %w", err)
	}
	banned, err := f.api.UserMessagesBanned(ctx, u.ID, lot.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("lot: messages ban: %w", err)
	}

	access := keyboard.LotOpen
	minUnits := decimal.NewFromInt(lot.LimitFrom).Div(lot.Rate)
	switch {
	case banned:
		access = keyboard.LotClosed
	case sellerWallet.Balance.LessThan(minUnits):
		access = keyboard.LotNoBalance
	case owner.IsBaned || u.IsBaned:
		access = keyboard.LotClosed
	}
	return reply(v.Lot(composer.LotCard{
		Lot:     *lot,
		Owner:   *owner,
		Stat:    *stat,
		LimitTo: limitTo,
		Access:  access,
	})), nil
}

// CreateLot starts the new lot wizard.
func (f *Flows) CreateLot(_ context.Context, in Input) (Result, error) {
	return advance(state.StateNewLotType, nil, f.view(in.User).ChooseLotType(false)), nil
}

func (f *Flows) NewLotType(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	var lotType string
	switch {
	case f.IsLabel("you_wanna_buy", in.Text):
		lotType = api.LotBuy
	case f.IsLabel("you_wanna_sell", in.Text):
		lotType = api.LotSell
	default:
		return reply(v.ChooseLotType(true)), nil
	}
	brokers, err := f.api.Brokers(ctx, in.User.Currency)
	if err != nil {
		return Result{}, fmt.Errorf("new lot: brokers: %w", err)
	}
	return advance(state.StateNewLotBroker, in.State.Data(map[string]interface{}{keyLotType: lotType}),
		v.ChooseBroker(brokers, false)), nil
}

func (f *Flows) NewLotBroker(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	brokers, err := f.api.Brokers(ctx, u.Currency)
	if err != nil {
		return Result{}, fmt.Errorf("new lot: brokers: %w", err)
	}
	b, ok := lo.Find(brokers, func(b api.Broker) bool { return b.Name == strings.TrimSpace(in.Text) })
	if !ok {
		return reply(v.ChooseBroker(brokers, true)), nil
	}
	rate, err := f.api.Rate(ctx, u.Currency)
	if err != nil {
		return Result{}, fmt.Errorf("new lot: rate: %w", err)
	}
	return advance(state.StateNewLotRate, in.State.Data(map[string]interface{}{keyBroker: b.ID}),
		v.ChooseRate(rate, u.Currency)), nil
}

// parseLotRate reads a rate for currency against the current market and the allowed variation.
func (f *Flows) parseLotRate(ctx context.Context, currency, text string) (decimal.Decimal, *decimal.Decimal, bool, error) {
	market, err := f.api.Rate(ctx, currency)
	if err != nil {
		return decimal.Zero, nil, false, err
	}
	settings, err := f.api.Settings(ctx)
	if err != nil {
		return decimal.Zero, nil, false, err
	}
	variation, _ := settings.RateVariation(currency)
	rate, coef, err := money.ParseRate(text, market, variation)
	if err != nil {
		return decimal.Zero, nil, false, nil
	}
	return rate, coef, true, nil
}

func (f *Flows) NewLotRate(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	rate, coef, ok, err := f.parseLotRate(ctx, u.Currency, in.Text)
	if err != nil {
		return Result{}, fmt.Errorf("new lot: rate: %w", err)
	}
	if !ok {
		return reply(v.Prompt("wrong_rate", nil)), nil
	}

	data := map[string]interface{}{keyRate: rate.String(), keyCoefficient: ""}
	var replies []composer.Response
	if coef != nil {
		data[keyCoefficient] = coef.String()
		replies = append(replies, v.PriceNow(rate, u.Currency))
	}
	replies = append(replies, v.ChooseLimits(u.Currency))
	return advance(state.StateNewLotLimits, in.State.Data(data), replies...), nil
}

func (f *Flows) NewLotLimits(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	from, to, err := money.ParseLimits(in.Text)
	if err != nil {
		return reply(v.Prompt("wrong_limits", nil)), nil
	}

	rate, err := decimal.NewFromString(in.State.String(keyRate))
	if err != nil {
		return Result{}, fmt.Errorf("new lot: stored rate: %w", err)
	}
	req := api.NewLot{
		Type:      in.State.String(keyLotType),
		LimitFrom: from,
		LimitTo:   to,
		Broker:    in.State.String(keyBroker),
		Rate:      rate,
		UserID:    u.ID,
	}
	if raw := in.State.String(keyCoefficient); raw != "" {
		coef, err := decimal.NewFromString(raw)
		if err != nil {
			return Result{}, fmt.Errorf("new lot: stored coefficient: %w", err)
		}
		req.Coefficient = &coef
	}

	lot, err := f.api.CreateLot(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("new lot: create: %w", err)
	}
	return reset(v.Menu("lot_created", nil), v.NewLot(*lot)), nil
}

// ownLot loads lotID and checks that u may edit it.
func (f *Flows) ownLot(ctx context.Context, u *api.User, lotID string) (*api.Lot, bool, error) {
	lot, err := f.api.GetLot(ctx, lotID)
	if err != nil {
		if _, rejected := api.Rejection(err); rejected || api.IsStatus(err, 404) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if lot.UserID != u.ID || lot.IsDeleted {
		return lot, false, nil
	}
	return lot, true, nil
}

// changeLot starts editing one field of an owned lot. next selects the field.
func (f *Flows) changeLot(next state.State, prompt string) Handler {
	return func(ctx context.Context, in Input) (Result, error) {
		v := f.view(in.User)
		lot, ok, err := f.ownLot(ctx, in.User, in.Arg(0))
		if err != nil {
			return Result{}, fmt.Errorf("change lot: %w", err)
		}
		if !ok {
			return reply(v.Error(false)), nil
		}
		return advance(next, map[string]interface{}{keyLotID: lot.Identificator}, v.Prompt(prompt, nil)), nil
	}
}

func (f *Flows) ChangeLimits(ctx context.Context, in Input) (Result, error) {
	return f.changeLot(state.StateChangeLimits, "change_limits")(ctx, in)
}

func (f *Flows) ChangeRate(ctx context.Context, in Input) (Result, error) {
	return f.changeLot(state.StateChangeRate, "change_rate")(ctx, in)
}

func (f *Flows) ChangeConditions(ctx context.Context, in Input) (Result, error) {
	return f.changeLot(state.StateChangeConditions, "change_conditions")(ctx, in)
}

// applyLotUpdate stores upd and shows the refreshed lot.
func (f *Flows) applyLotUpdate(ctx context.Context, u *api.User, upd api.LotUpdate) (Result, error) {
	if err := f.api.UpdateLot(ctx, upd); err != nil {
		return Result{}, fmt.Errorf("update lot: %w", err)
	}
	shown, err := f.showLot(ctx, u, upd.Identificator)
	if err != nil {
		return Result{}, err
	}
	return reset(append([]composer.Response{f.view(u).Done()}, shown.Replies...)...), nil
}

func (f *Flows) EditLimits(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	lot, ok, err := f.ownLot(ctx, in.User, in.State.String(keyLotID))
	if err != nil {
		return Result{}, fmt.Errorf("edit limits: %w", err)
	}
	if !ok {
		return reset(v.Error(false)), nil
	}
	from, to, err := money.ParseLimits(in.Text)
	if err != nil {
		return reset(v.Error(false)), nil
	}
	return f.applyLotUpdate(ctx, in.User, api.LotUpdate{
		Identificator: lot.Identificator,
		UserID:        in.User.ID,
		LimitFrom:     &from,
		LimitTo:       &to,
	})
}

func (f *Flows) EditRate(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	lot, ok, err := f.ownLot(ctx, in.User, in.State.String(keyLotID))
	if err != nil {
		return Result{}, fmt.Errorf("edit rate: %w", err)
	}
	if !ok {
		return reset(v.Error(false)), nil
	}
	rate, coef, valid, err := f.parseLotRate(ctx, lot.Currency, in.Text)
	if err != nil {
		return Result{}, fmt.Errorf("edit rate: %w", err)
	}
	if !valid {
		return reset(v.Error(false)), nil
	}
	return f.applyLotUpdate(ctx, in.User, api.LotUpdate{
		Identificator: lot.Identificator,
		UserID:        in.User.ID,
		Rate:          &rate,
		Coefficient:   coef,
	})
}

func (f *Flows) EditConditions(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	if utf8.RuneCountInString(in.Text) > maxConditions {
		return reset(v.Error(false)), nil
	}
	lot, ok, err := f.ownLot(ctx, in.User, in.State.String(keyLotID))
	if err != nil {
		return Result{}, fmt.Errorf("edit conditions: %w", err)
	}
	if !ok {
		return reset(v.Error(false)), nil
	}
	details := in.Text
	return f.applyLotUpdate(ctx, in.User, api.LotUpdate{
		Identificator: lot.Identificator,
		UserID:        in.User.ID,
		Details:       &details,
	})
}

// LotStatus switches an owned lot on or off.
func (f *Flows) LotStatus(ctx context.Context, in Input) (Result, error) {
	lot, ok, err := f.ownLot(ctx, in.User, in.Arg(0))
	if err != nil {
		return Result{}, fmt.Errorf("lot status: %w", err)
	}
	if !ok {
		return reply(f.view(in.User).Error(false)), nil
	}
	active := !lot.IsActive
	if err := f.api.UpdateLot(ctx, api.LotUpdate{
		Identificator:  lot.Identificator,
		UserID:         in.User.ID,
		ActivityStatus: &active,
	}); err != nil {
		return Result{}, fmt.Errorf("lot status: %w", err)
	}
	return f.showLot(ctx, in.User, lot.Identificator)
}

func (f *Flows) DeleteLot(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	lot, ok, err := f.ownLot(ctx, in.User, in.Arg(0))
	if err != nil {
		return Result{}, fmt.Errorf("delete lot: %w", err)
	}
	if !ok {
		return reply(v.Error(false)), nil
	}
	return advance(state.StateConfirmationDeleteLot, map[string]interface{}{keyLotID: lot.Identificator},
		v.DeleteLotConfirmation(*lot)), nil
}

func (f *Flows) DeleteLotConfirm(ctx context.Context, in Input) (Result, error) {
	return f.confirm(ctx, in, func(ctx context.Context, in Input) (Result, error) {
		v := f.view(in.User)
		lot, ok, err := f.ownLot(ctx, in.User, in.State.String(keyLotID))
		if err != nil {
			return Result{}, fmt.Errorf("delete lot: %w", err)
		}
		if !ok {
			return reset(v.Error(false)), nil
		}
		if err := f.api.DeleteLot(ctx, lot.Identificator, in.User.ID); err != nil {
			return Result{}, fmt.Errorf("delete lot: %w", err)
		}
		return reset(v.Menu("lot_deleted", nil)), nil
	})
}
