package flows

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/money"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

const (
	keyDealID        = "deal_id"
	keyValueCurrency = "value_currency"
	keyValueUnits    = "value_units"
	keyRequisite     = "req"
)

// dealIn loads the deal and reports whether it is in the wanted state.
func (f *Flows) dealIn(ctx context.Context, id, want string) (*api.Deal, bool, error) {
	deal, err := f.api.GetDeal(ctx, id, false, true)
	if err != nil {
		if _, rejected := api.Rejection(err); rejected || api.IsStatus(err, 404) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return deal, deal.State == want, nil
}

func (f *Flows) ActiveDeals(ctx context.Context, in Input) (Result, error) {
	deals, err := f.api.ActiveDeals(ctx, in.User.ID)
	if err != nil {
		return Result{}, fmt.Errorf("active deals: %w", err)
	}
	return reply(f.view(in.User).ActiveDeals(deals)), nil
}

// Deal shows the deal card to a participant or an admin.
func (f *Flows) Deal(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	deal, err := f.api.GetDeal(ctx, in.Arg(0), false, true)
	if err != nil || !strings.EqualFold(deal.Symbol, f.opts.Symbol) || !(deal.IsParticipant(u.ID) || u.IsAdmin) {
		return reply(v.Notice("deal_does_not_exists", nil)), nil
	}

	view := keyboard.DealView{
		Deal:         *deal,
		ViewerID:     u.ID,
		IsAdmin:      u.IsAdmin,
		RequiredMask: deal.RequiredMask(),
		Now:          f.now(),
	}
	if view.RequiredMask {
		if view.Mask, err = f.api.Mask(ctx, deal.Identificator); err != nil {
			return Result{}, fmt.Errorf("deal: mask: %w", err)
		}
	}
	return reply(v.Deal(view)), nil
}

// BeginDeal opens the amount step for a lot of somebody else.
func (f *Flows) BeginDeal(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	if u.ShadowBan {
		return reply(v.YouAreBanned()), nil
	}
	lot, err := f.api.GetLot(ctx, in.Arg(0))
	if err != nil {
		return Result{}, fmt.Errorf("begin deal: %w", err)
	}
	switch {
	case lot.IsDeleted:
		return reply(v.Menu("lot_deleted", nil)), nil
	case !lot.IsActive:
		return reply(v.Menu("lot_not_active", nil)), nil
	}
	limitTo, _, err := f.lotLimit(ctx, *lot, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("begin deal: seller wallet: %w", err)
	}
	return advance(state.StateEnterSumDeal,
		map[string]interface{}{keyLotID: lot.Identificator, "pressed_at": f.now().Unix()},
		v.EnterSum(*lot, limitTo)), nil
}

// EnterSumDeal takes a whole fiat amount within the recomputed lot limits.
func (f *Flows) EnterSumDeal(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	amountCurrency, err := money.ParseWhole(in.Text)
	if err != nil {
		return reply(v.Prompt("wrong_sum", nil)), nil
	}
	lot, err := f.api.GetLot(ctx, in.State.String(keyLotID))
	if err != nil {
		return Result{}, fmt.Errorf("enter sum: %w", err)
	}
	limitTo, _, err := f.lotLimit(ctx, *lot, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("enter sum: seller wallet: %w", err)
	}
	if amountCurrency.GreaterThan(decimal.NewFromInt(limitTo)) || amountCurrency.LessThan(decimal.NewFromInt(lot.LimitFrom)) {
		return reply(v.Prompt("wrong_sum", nil)), nil
	}

	units := money.Units(amountCurrency, lot.Rate)
	data := in.State.Data(map[string]interface{}{
		keyValueCurrency: amountCurrency.String(),
		keyValueUnits:    units.String(),
	})

	// The taker of a buy lot sells crypto and has to say where the fiat goes.
	if lot.Type == api.LotBuy {
		last, err := f.lastRequisites(ctx, u, lot.Currency, lot.Broker)
		if err != nil {
			return Result{}, fmt.Errorf("enter sum: %w", err)
		}
		return advance(state.StateEnterReqDeal, data, v.EnterRequisite(lot.Broker, last)), nil
	}
	return advance(state.StateConfirmationDeal, data, v.Agreement(*lot, units, amountCurrency)), nil
}

func (f *Flows) lastRequisites(ctx context.Context, u *api.User, currency, brokerName string) ([]string, error) {
	b, err := f.broker(ctx, "", "", brokerName)
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}
	if b == nil {
		return nil, nil
	}
	return f.api.LastRequisites(ctx, u.ID, currency, b.ID)
}

func (f *Flows) EnterReqDeal(ctx context.Context, in Input) (Result, error) {
	lot, err := f.api.GetLot(ctx, in.State.String(keyLotID))
	if err != nil {
		return Result{}, fmt.Errorf("enter requisite: %w", err)
	}
	units, _ := decimal.NewFromString(in.State.String(keyValueUnits))
	amountCurrency, _ := decimal.NewFromString(in.State.String(keyValueCurrency))
	return advance(state.StateConfirmationDeal,
		in.State.Data(map[string]interface{}{keyRequisite: strings.TrimSpace(in.Text)}),
		f.view(in.User).Agreement(*lot, units, amountCurrency)), nil
}

// ConfirmDeal creates the deal after rechecking limits, balance and rate.
func (f *Flows) ConfirmDeal(ctx context.Context, in Input) (Result, error) {
	return f.confirm(ctx, in, f.createDeal)
}

func (f *Flows) createDeal(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	units, err := decimal.NewFromString(in.State.String(keyValueUnits))
	if err != nil {
		return reset(v.Error(false)), nil
	}
	amountCurrency, err := decimal.NewFromString(in.State.String(keyValueCurrency))
	if err != nil {
		return reset(v.Error(false)), nil
	}
	lot, err := f.api.GetLot(ctx, in.State.String(keyLotID))
	if err != nil {
		return Result{}, fmt.Errorf("create deal: %w", err)
	}
	limitTo, sellerWallet, err := f.lotLimit(ctx, *lot, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("create deal: seller wallet: %w", err)
	}
	if amountCurrency.GreaterThan(decimal.NewFromInt(limitTo)) || units.GreaterThan(sellerWallet.Balance) {
		return reset(v.Error(false)), nil
	}
	if money.RateChanged(lot.Rate, units, amountCurrency) {
		f.log.Info("deal rate changed",
			slog.String("lot_id", lot.Identificator),
			slog.String("lot_rate", lot.Rate.String()),
			slog.String("amount", units.String()),
			slog.String("amount_currency", amountCurrency.String()))
		return reset(v.Menu("rate_changed", nil)), nil
	}

	deal, err := f.api.CreateDeal(ctx, api.NewDeal{
		LotID:          lot.Identificator,
		AmountCurrency: amountCurrency,
		Amount:         units,
		Requisite:      in.State.String(keyRequisite),
		Rate:           lot.Rate,
		UserID:         u.ID,
	})
	if err != nil {
		f.log.Warn("create deal rejected", slog.Int64("user_id", u.ID), slog.Any("error", err))
		return reset(v.Menu("too_much_deals", nil)), nil
	}
	return reset(v.DealRun(*deal)), nil
}

// cancellable reports whether u may still cancel the deal: participants before payment,
// except a seller once the deal is confirmed.
func cancellable(deal *api.Deal, userID int64) bool {
	if !deal.IsParticipant(userID) {
		return false
	}
	switch deal.State {
	case api.DealProposed:
		return true
	case api.DealConfirmed:
		return deal.Seller.ID != userID
	default:
		return false
	}
}

func (f *Flows) CancelDeal(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	deal, _, err := f.dealIn(ctx, in.Arg(0), "")
	if err != nil {
		return Result{}, fmt.Errorf("cancel deal: %w", err)
	}
	if deal == nil || !cancellable(deal, in.User.ID) {
		return reply(v.Error(false)), nil
	}
	return advance(state.StateConfirmationDeclineDeal, map[string]interface{}{keyDealID: deal.Identificator},
		v.CancelDealConfirmation(deal.Identificator)), nil
}

func (f *Flows) CancelDealConfirm(ctx context.Context, in Input) (Result, error) {
	return f.confirm(ctx, in, func(ctx context.Context, in Input) (Result, error) {
		v := f.view(in.User)
		deal, _, err := f.dealIn(ctx, in.State.String(keyDealID), "")
		if err != nil {
			return Result{}, fmt.Errorf("cancel deal: %w", err)
		}
		if deal == nil || !cancellable(deal, in.User.ID) {
			return reset(v.Error(false)), nil
		}
		if err := f.api.CancelDeal(ctx, in.User.ID, deal.Identificator); err != nil {
			return Result{}, fmt.Errorf("cancel deal: %w", err)
		}
		return reset(v.DealCanceled(deal.Identificator)), nil
	})
}

// AcceptDeal is pressed by the lot owner on a proposed deal. A seller first names the
// requisite the buyer should pay to.
func (f *Flows) AcceptDeal(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	deal, ok, err := f.dealIn(ctx, in.Arg(0), api.DealProposed)
	if err != nil {
		return Result{}, fmt.Errorf("accept deal: %w", err)
	}
	if !ok {
		return reset(v.Error(false)), nil
	}

	switch deal.Lot.Type {
	case api.LotSell:
		last, err := f.lastRequisites(ctx, u, deal.Currency, deal.Lot.Broker)
		if err != nil {
			return Result{}, fmt.Errorf("accept deal: %w", err)
		}
		return advance(state.StateEnterReqDealWhileAccepting, map[string]interface{}{keyDealID: deal.Identificator},
			v.EnterRequisite(deal.Lot.Broker, last)), nil
	case api.LotBuy:
		if err := f.api.AdvanceDeal(ctx, u.ID, deal.Identificator); err != nil {
			return Result{}, fmt.Errorf("accept deal: %w", err)
		}
		settings, err := f.api.Settings(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("accept deal: settings: %w", err)
		}
		return reset(v.ConfirmSentFiat(*deal, settings.AdvancedDealTime)), nil
	}
	return reset(v.Error(false)), nil
}

func (f *Flows) EnterReqAccepting(_ context.Context, in Input) (Result, error) {
	req := strings.TrimSpace(in.Text)
	return advance(state.StateEnterReqDealWhileAcceptingConfirm,
		in.State.Data(map[string]interface{}{keyRequisite: req}),
		f.view(in.User).ConfirmRequisite(req)), nil
}

func (f *Flows) EnterReqAcceptingConfirm(ctx context.Context, in Input) (Result, error) {
	return f.confirm(ctx, in, func(ctx context.Context, in Input) (Result, error) {
		u := in.User
		v := f.view(u)
		deal, ok, err := f.dealIn(ctx, in.State.String(keyDealID), api.DealProposed)
		if err != nil {
			return Result{}, fmt.Errorf("accept deal: %w", err)
		}
		if !ok || deal.Lot.Type != api.LotSell {
			return reset(v.Error(false)), nil
		}
		if err := f.api.UpdateDealRequisite(ctx, u.ID, deal.Identificator, in.State.String(keyRequisite)); err != nil {
			return Result{}, fmt.Errorf("accept deal: requisite: %w", err)
		}
		if err := f.api.AdvanceDeal(ctx, u.ID, deal.Identificator); err != nil {
			return Result{}, fmt.Errorf("accept deal: %w", err)
		}
		settings, err := f.api.Settings(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("accept deal: settings: %w", err)
		}
		return reset(v.OpponentConfirmed(*deal, u.ID, settings.AdvancedDealTime)), nil
	})
}

// dealStep is the callback half of a two-step deal action. It checks the deal is in want
// and the viewer takes part, then asks for confirmation in next.
func (f *Flows) dealStep(ctx context.Context, in Input, want string, next state.State,
	ask func(v composer.View, d api.Deal) composer.Response) (Result, error) {
	v := f.view(in.User)
	deal, ok, err := f.dealIn(ctx, in.Arg(0), want)
	if err != nil {
		return Result{}, fmt.Errorf("deal step %s: %w", next, err)
	}
	if !ok || !deal.IsParticipant(in.User.ID) {
		return reply(v.Error(false)), nil
	}
	return advance(next, map[string]interface{}{keyDealID: deal.Identificator}, ask(v, *deal)), nil
}

// dealFinish is the confirmation half: on yes it rechecks the state and runs act.
func (f *Flows) dealFinish(ctx context.Context, in Input, want string,
	act func(ctx context.Context, deal *api.Deal) (composer.Response, error)) (Result, error) {
	return f.confirm(ctx, in, func(ctx context.Context, in Input) (Result, error) {
		v := f.view(in.User)
		deal, ok, err := f.dealIn(ctx, in.State.String(keyDealID), want)
		if err != nil {
			return Result{}, err
		}
		if !ok || !deal.IsParticipant(in.User.ID) {
			return reset(v.Error(false)), nil
		}
		r, err := act(ctx, deal)
		if err != nil {
			f.log.Warn("deal action failed",
				slog.String("deal_id", deal.Identificator), slog.Int64("user_id", in.User.ID), slog.Any("error", err))
			return reset(v.Error(false)), nil
		}
		return reset(r), nil
	})
}

// ConfirmSentFiat asks the buyer to confirm the payment went out.
func (f *Flows) ConfirmSentFiat(ctx context.Context, in Input) (Result, error) {
	return f.dealStep(ctx, in, api.DealConfirmed, state.StateConfirmationFiatSending,
		func(v composer.View, d api.Deal) composer.Response { return v.AreYouSureSentFiat(d) })
}

func (f *Flows) ConfirmSentFiatFinal(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	return f.dealFinish(ctx, in, api.DealConfirmed, func(ctx context.Context, d *api.Deal) (composer.Response, error) {
		if err := f.api.AdvanceDeal(ctx, in.User.ID, d.Identificator); err != nil {
			return composer.Response{}, err
		}
		return v.Menu("opponent_notified", nil), nil
	})
}

// SendCrypto releases crypto of a paid deal.
func (f *Flows) SendCrypto(ctx context.Context, in Input) (Result, error) {
	return f.dealStep(ctx, in, api.DealPaid, state.StateConfirmationCryptoSending,
		func(v composer.View, d api.Deal) composer.Response { return v.DealConfirmation(d) })
}

func (f *Flows) SendCryptoConfirm(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	return f.dealFinish(ctx, in, api.DealPaid, func(ctx context.Context, d *api.Deal) (composer.Response, error) {
		if err := f.api.AdvanceDeal(ctx, in.User.ID, d.Identificator); err != nil {
			return composer.Response{}, err
		}
		return v.YouSentCrypto(*d), nil
	})
}

// SendCryptoNoAgreement releases crypto of a confirmed deal before the buyer reports payment.
func (f *Flows) SendCryptoNoAgreement(ctx context.Context, in Input) (Result, error) {
	return f.dealStep(ctx, in, api.DealConfirmed, state.StateCryptoSendingNoConfirmation,
		func(v composer.View, d api.Deal) composer.Response { return v.DealConfirmation(d) })
}

func (f *Flows) SendCryptoNoAgreementConfirm(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	return f.dealFinish(ctx, in, api.DealConfirmed, func(ctx context.Context, d *api.Deal) (composer.Response, error) {
		if err := f.api.SendCryptoWithoutAgreement(ctx, in.User.ID, d.Identificator); err != nil {
			return composer.Response{}, err
		}
		return v.YouSentCrypto(*d), nil
	})
}

// RunPayment completes a declined fast deal.
func (f *Flows) RunPayment(ctx context.Context, in Input) (Result, error) {
	return f.dealStep(ctx, in, api.DealDeleted, state.StateCryptoSendingFDDeclined,
		func(v composer.View, d api.Deal) composer.Response { return v.DealConfirmation(d) })
}

func (f *Flows) RunPaymentConfirm(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	return f.dealFinish(ctx, in, api.DealDeleted, func(ctx context.Context, d *api.Deal) (composer.Response, error) {
		if err := f.api.ConfirmDeclinedFastDeal(ctx, in.User.ID, d.Identificator); err != nil {
			return composer.Response{}, err
		}
		return v.YouSentCrypto(*d), nil
	})
}

// RunPaymentWithReq completes a declined fast deal whose merchant wants the payer requisite.
func (f *Flows) RunPaymentWithReq(ctx context.Context, in Input) (Result, error) {
	return f.dealStep(ctx, in, api.DealDeleted, state.StateCryptoSendingFDDeclinedWithReq,
		func(v composer.View, _ api.Deal) composer.Response { return v.Prompt("deal_confirmation_enter_req", nil) })
}

func (f *Flows) RunPaymentRequisite(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	deal, ok, err := f.dealIn(ctx, in.State.String(keyDealID), api.DealDeleted)
	if err != nil {
		return Result{}, fmt.Errorf("run payment: %w", err)
	}
	if !ok {
		return reset(v.Error(false)), nil
	}
	return advance(state.StateCryptoSendingFDDeclinedWithReqConfirm,
		in.State.Data(map[string]interface{}{keyRequisite: strings.TrimSpace(in.Text)}),
		v.DealConfirmation(*deal)), nil
}

func (f *Flows) RunPaymentWithReqConfirm(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	req := in.State.String(keyRequisite)
	return f.dealFinish(ctx, in, api.DealDeleted, func(ctx context.Context, d *api.Deal) (composer.Response, error) {
		if err := f.api.SetMask(ctx, d.Identificator, req); err != nil {
			return composer.Response{}, err
		}
		if err := f.api.ConfirmDeclinedFastDeal(ctx, in.User.ID, d.Identificator); err != nil {
			return composer.Response{}, err
		}
		return v.YouSentCrypto(*d), nil
	})
}

// RateUser records a like or dislike left after a deal. Failures are only logged.
func (f *Flows) RateUser(method string) Handler {
	return func(ctx context.Context, in Input) (Result, error) {
		targetID, err := strconv.ParseInt(in.Arg(0), 10, 64)
		if err != nil {
			return reply(), nil
		}
		if err := f.api.RateUser(ctx, in.User.ID, targetID, in.Arg(1), method); err != nil {
			f.log.Info("rate user failed", slog.Int64("user_id", in.User.ID), slog.Any("error", err))
			return reply(), nil
		}
		return reply(f.view(in.User).Menu("back_to_main_menu", nil)), nil
	}
}
