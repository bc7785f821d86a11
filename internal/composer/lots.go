package composer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
)

func (v View) rateArgs(rate decimal.Decimal, currency string) i18n.Args {
	return i18n.Args{"rate": rate, "currency": strings.ToUpper(currency), "cnt": 1}
}

func (v View) Exchange(rate decimal.Decimal, currency string, activeDeals, lots int) Response {
	return v.With("exchange", v.rateArgs(rate, currency), v.KB.Exchange(v.T, activeDeals, lots))
}

// HandleLots lists the viewer's own lots. Page navigation edits the list in place.
func (v View) HandleLots(currency string, rates map[string]decimal.Decimal, trading bool, lots []api.Lot, page, pages int) Response {
	return v.With("exchange", v.rateArgs(rates[currency], currency),
		v.KB.HandleLots(v.T, trading, lots, rates, page, pages)).Editing()
}

func (v View) Market(lotType string, rate decimal.Decimal, currency string, lots []api.MarketLot, page, pages int) Response {
	return v.With("exchange_"+lotType, v.rateArgs(rate, currency),
		v.KB.Market(v.T, lots, page, pages, currency, lotType)).Editing()
}

func (v View) BrokerLots(lotType string, broker api.Broker, total int, lots []api.Lot, page, pages int) Response {
	return v.With("menu_lots_"+lotType+"_from_broker", i18n.Args{
		"lots_count": total,
		"broker":     broker.Name,
	}, v.KB.BrokerLots(v.T, lots, page, pages, lotType, broker.ID)).Editing()
}

func (v View) conditions(lot api.Lot) string {
	if lot.Details == "" {
		return ""
	}
	return v.Text("lot_conditions", i18n.Args{"conditions": lot.Details})
}

// LotCard is the data behind another user's lot.
type LotCard struct {
	Lot     api.Lot
	Owner   api.User
	Stat    api.UserStat
	LimitTo int64
	Access  keyboard.LotAccess
}

func (v View) Lot(c LotCard) Response {
	kind := v.Text("reverse_"+c.Lot.Type, nil)
	return v.With("lot", i18n.Args{
		"likes":           c.Stat.Likes,
		"dislikes":        c.Stat.Dislikes,
		"broker":          c.Lot.Broker,
		"nick":            c.Owner.Nickname,
		"verify_sm":       Mark(c.Owner.IsVerify),
		"deals_done":      c.Stat.Deals,
		"currency":        strings.ToUpper(c.Lot.Currency),
		"revenue":         c.Stat.Revenue,
		"days_registered": c.Stat.DaysRegistered,
		"limit_from":      c.Lot.LimitFrom,
		"limit_to":        c.LimitTo,
		"type":            kind,
		"type_lowercase":  strings.ToLower(kind),
		"rate":            c.Lot.Rate,
		"cnt":             1,
		"rating_points":   c.Stat.Rating,
		"rating_sm":       c.Stat.RatingLogo,
		"conditions_str":  v.conditions(c.Lot),
	}, v.KB.Lot(v.T, c.Lot.Identificator, c.Access))
}

func (v View) SelfLot(lot api.Lot) Response {
	return v.With("self_lot", i18n.Args{
		"broker":         lot.Broker,
		"rate":           lot.Rate,
		"cnt":            1,
		"currency":       strings.ToUpper(lot.Currency),
		"limit_from":     lot.LimitFrom,
		"limit_to":       lot.LimitTo,
		"identificator":  lot.Identificator,
		"conditions_str": v.conditions(lot),
	}, v.KB.SelfLot(v.T, lot))
}

// NewLot summarizes a lot right after creation.
func (v View) NewLot(lot api.Lot) Response {
	return v.Menu("new_lot", i18n.Args{
		"cnt":        1,
		"number":     lot.Identificator,
		"rate":       lot.Rate,
		"limit_from": lot.LimitFrom,
		"limit_to":   lot.LimitTo,
		"currency":   strings.ToUpper(lot.Currency),
		"broker":     lot.Broker,
	})
}

func (v View) ChooseLotType(wrong bool) Response {
	key := "choose_new_lot_type"
	if wrong {
		key = "wrong_lot_type"
	}
	return v.With(key, nil, keyboard.LotTypes(v.T, v.c.symbol))
}

func (v View) ChooseBroker(brokers []api.Broker, wrong bool) Response {
	names := make([]string, len(brokers))
	for i, b := range brokers {
		names[i] = b.Name
	}
	key := "choose_broker"
	if wrong {
		key = "wrong_broker"
	}
	return v.With(key, nil, keyboard.Brokers(v.T, names))
}

func (v View) ChooseRate(rate decimal.Decimal, currency string) Response {
	return v.Prompt("choose_rate", v.rateArgs(rate, currency))
}

// PriceNow echoes the absolute rate a percentage input resolved to.
func (v View) PriceNow(rate decimal.Decimal, currency string) Response {
	return v.Notice("price_now", i18n.Args{"value": rate, "currency": strings.ToUpper(currency)})
}

func (v View) ChooseLimits(currency string) Response {
	return v.Prompt("choose_limits", i18n.Args{"currency": strings.ToUpper(currency)})
}

func (v View) DeleteLotConfirmation(lot api.Lot) Response {
	return v.Ask("delete_lot_confirmation", i18n.Args{"lot_id": lot.Identificator, "broker": lot.Broker})
}
