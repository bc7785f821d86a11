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
	"github.com/Proton-105/skyexchange-bot/internal/money"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

const (
	keyPromoKind  = "promocode_type"
	keyPromoCount = "count"

	maxPromoCount = 999
	// fiat denominated codes are converted to crypto at this precision
	promoUnitPlaces = 7
)

// Smallest amount per activation, by coin and by fiat currency.
var (
	minPromoCrypto = map[string]decimal.Decimal{
		"eth":  decimal.RequireFromString("0.001"),
		"btc":  decimal.RequireFromString("0.0001"),
		"usdt": decimal.NewFromInt(1),
	}
	minPromoFiat = map[string]decimal.Decimal{
		"rub": decimal.NewFromInt(100),
		"usd": decimal.NewFromInt(1),
		"kzt": decimal.NewFromInt(500),
		"uah": decimal.NewFromInt(30),
		"byn": decimal.NewFromInt(3),
		"uzs": decimal.NewFromInt(10000),
		"azn": decimal.NewFromInt(1),
		"tjs": decimal.NewFromInt(100),
	}
)

// Rejection details of the promo code endpoint.
const (
	rejectedPromoLimit = "promocode limit"
	rejectedNoMoney    = "you don't have enough money"
	rejectedBanned     = "you are banned"
	rejectedWrongData  = "wrong data"
)

func (f *Flows) Promocodes(ctx context.Context, in Input) (Result, error) {
	active, err := f.api.ActivePromocodesCount(ctx, in.User.ID)
	if err != nil {
		return Result{}, fmt.Errorf("promocodes: %w", err)
	}
	return reply(f.view(in.User).Promocodes(*in.User, active)), nil
}

// CreatePromocode shows the balance and the denomination choice, or starts the wizard once
// a denomination was picked.
func (f *Flows) CreatePromocode(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	wallet, err := f.api.GetWallet(ctx, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("create promocode: %w", err)
	}

	kind := in.Arg(0)
	switch kind {
	case "":
		return reply(v.CreatePromocode(*u, *wallet)), nil
	case keyboard.PromoCrypto, keyboard.PromoFiat:
	default:
		return reply(v.Error(false)), nil
	}

	if minimum, ok := minPromoCrypto[strings.ToLower(f.opts.Symbol)]; !ok || wallet.Balance.LessThanOrEqual(minimum) {
		return reply(v.NotEnoughForPromocode(false)), nil
	}
	return advance(state.StatePromocodesCount, map[string]interface{}{keyPromoKind: kind}, v.ChooseCount(false)), nil
}

func (f *Flows) PromocodeCount(_ context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	count, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil || count <= 0 || count > maxPromoCount {
		return reply(v.ChooseCount(true)), nil
	}
	return advance(state.StatePromocodesAmount, in.State.Data(map[string]interface{}{keyPromoCount: count}),
		v.ChoosePromocodeAmount(*in.User, in.State.String(keyPromoKind))), nil
}

// minPromoAmount is the smallest amount per activation in the unit the user typed.
// ok is false for a currency or coin without a configured minimum.
func (f *Flows) minPromoAmount(kind, currency string) (decimal.Decimal, bool) {
	if kind == keyboard.PromoFiat {
		minimum, ok := minPromoFiat[strings.ToLower(currency)]
		return minimum, ok
	}
	minimum, ok := minPromoCrypto[strings.ToLower(f.opts.Symbol)]
	return minimum, ok
}

// PromocodeAmount creates the codes. Fiat amounts are converted to crypto at the current rate.
func (f *Flows) PromocodeAmount(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	kind := in.State.String(keyPromoKind)
	count := in.State.Int64(keyPromoCount)

	minimum, known := f.minPromoAmount(kind, u.Currency)
	if !known {
		return reply(v.WrongAmount()), nil
	}
	amount, err := money.ParseAmount(in.Text)
	if err != nil || amount.LessThan(minimum) {
		return reply(v.WrongAmount()), nil
	}
	currencyAmount := amount.Truncate(2)

	wallet, err := f.api.GetWallet(ctx, u.ID)
	if err != nil {
		return Result{}, fmt.Errorf("promocode amount: %w", err)
	}
	rate, err := f.api.Rate(ctx, u.Currency)
	if err != nil {
		return Result{}, fmt.Errorf("promocode amount: rate: %w", err)
	}
	if kind == keyboard.PromoFiat {
		if rate.IsZero() {
			return reset(v.Error(false)), nil
		}
		amount = amount.DivRound(rate, promoUnitPlaces+4).Truncate(promoUnitPlaces)
	}
	if wallet.Balance.LessThan(amount.Mul(decimal.NewFromInt(count))) {
		return reset(v.NotEnoughForPromocode(false)), nil
	}

	promo, err := f.api.CreatePromocode(ctx, u.ID, int(count), amount)
	if err != nil {
		detail, rejected := promoRejection(err)
		switch {
		case !rejected:
			f.log.Error("create promocode failed", slog.Int64("user_id", u.ID), slog.Any("error", err))
			return reset(v.Error(false)), nil
		case detail == rejectedPromoLimit:
			return reset(v.Menu("promocode_limit", nil)), nil
		case detail == rejectedNoMoney:
			return reset(v.NotEnoughForPromocode(false)), nil
		case detail == rejectedBanned:
			return reset(v.YouAreBanned()), nil
		case detail == rejectedWrongData:
			return reply(v.WrongAmount()), nil
		default:
			return reset(v.Error(false)), nil
		}
	}

	if kind == keyboard.PromoCrypto {
		currencyAmount = amount.Mul(rate).Truncate(2)
	}
	return reset(v.PromocodeCreated(*u, *promo, currencyAmount)...), nil
}

// ActivatePromocode asks for a code to redeem.
func (f *Flows) ActivatePromocode(_ context.Context, in Input) (Result, error) {
	return advance(state.StateActivatePromocode, nil, f.view(in.User).Prompt("activate_promocode", nil)), nil
}

func (f *Flows) CheckPromocode(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	activation, err := f.api.ActivatePromocode(ctx, u.ID, strings.TrimSpace(in.Text))
	if err != nil {
		f.log.Info("promocode activation failed", slog.Int64("user_id", u.ID), slog.Any("error", err))
		return reset(v.Menu("wrong_promocode", nil)), nil
	}
	owner, err := f.api.GetUser(ctx, activation.OwnerID)
	if err != nil {
		return Result{}, fmt.Errorf("check promocode: owner: %w", err)
	}
	return reset(v.PromocodeActivated(activation.Amount, owner.Nickname)), nil
}

// ActivePromocodes lists every code the user still has running.
func (f *Flows) ActivePromocodes(ctx context.Context, in Input) (Result, error) {
	promos, err := f.api.ActivePromocodes(ctx, in.User.ID)
	if err != nil {
		return Result{}, fmt.Errorf("active promocodes: %w", err)
	}
	v := f.view(in.User)
	var out Result
	for _, p := range promos {
		out.Replies = append(out.Replies, v.Promocode(p)...)
	}
	return out, nil
}

func (f *Flows) DeletePromocode(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	id, err := strconv.ParseInt(in.Arg(0), 10, 64)
	if err != nil {
		return reply(v.Error(false)), nil
	}
	if err := f.api.DeletePromocode(ctx, in.User.ID, id); err != nil {
		f.log.Error("delete promocode failed", slog.Int64("user_id", in.User.ID), slog.Any("error", err))
		return reply(v.Error(false)), nil
	}
	return reply(v.Menu("promocode_deleted", nil)), nil
}

func promoRejection(err error) (string, bool) {
	detail, ok := api.Rejection(err)
	return strings.ToLower(strings.TrimSpace(detail)), ok
}
