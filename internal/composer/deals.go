package composer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
)

const (
	// Deal timestamps are shown in Moscow time.
	displayOffset = 3 * time.Hour
	displayLayout = "Mon Jan _2 15:04:05 2006"

	paymentsV2Banner = "‼️<b>Автоматическая сделка payments v2</b>\n\n"
)

func displayTime(raw string) string {
	t := api.ParseTime(raw)
	if t.IsZero() {
		return raw
	}
	return t.Add(displayOffset).Format(displayLayout)
}

func dealCurrency(d api.Deal) string {
	if d.Lot.Currency != "" {
		return strings.ToUpper(d.Lot.Currency)
	}
	return strings.ToUpper(d.Currency)
}

func dealBroker(d api.Deal) string {
	if d.Lot.Broker != "" {
		return d.Lot.Broker
	}
	return d.Broker
}

// Deal renders the deal card together with the actions available to the viewer.
func (v View) Deal(view keyboard.DealView) Response {
	d := view.Deal
	end := ""
	if d.EndTime != "" {
		end = v.Text("deal_"+d.State+"_at", i18n.Args{"d": displayTime(d.EndTime)})
	}
	text := ""
	if d.PaymentV2ID != "" {
		text = paymentsV2Banner
	}
	text += v.Text("deal", i18n.Args{
		"creation_date":  displayTime(d.Created),
		"end_time_str":   end,
		"identificator":  d.Identificator,
		"value_currency": d.AmountCurrency,
		"value_units":    d.Amount,
		"lot":            d.Lot.Identificator,
		"deal_status":    v.Text("deal_"+d.State, nil),
		"currency":       dealCurrency(d),
		"requisite":      d.Requisite,
		"buyer":          d.Buyer.Nickname,
		"seller":         d.Seller.Nickname,
	})
	return Response{Text: text, Markup: v.KB.Deal(v.T, view)}
}

func (v View) DealRun(d api.Deal) Response {
	return v.Menu("deal_run", i18n.Args{"identificator": d.Identificator})
}

// ProposeDeal tells the lot owner someone wants to trade.
func (v View) ProposeDeal(lot api.Lot, d api.Deal, opponent string, limitMinutes int) Response {
	commission := d.BuyerCommission
	if lot.Type == api.LotSell {
		commission = d.SellerCommission
	}
	return v.With("propose_deal_lot_type_"+lot.Type, i18n.Args{
		"opponent":       opponent,
		"value_currency": d.AmountCurrency,
		"currency":       strings.ToUpper(lot.Currency),
		"broker":         lot.Broker,
		"cnt":            1,
		"value_units":    d.Amount,
		"limit_for_deal": limitMinutes,
		"commission":     commission.StringFixed(8),
		"rate":           d.Rate,
	}, v.KB.AcceptOrDecline(v.T, d.Identificator))
}

func (v View) EnterSum(lot api.Lot, limitTo int64) Response {
	return v.Prompt("enter_sum_lot_type_"+lot.Type, i18n.Args{
		"limit_from": lot.LimitFrom,
		"limit_to":   limitTo,
		"currency":   strings.ToUpper(lot.Currency),
	})
}

func (v View) Agreement(lot api.Lot, units, amountCurrency decimal.Decimal) Response {
	return v.Ask("agreement_lot_type_"+lot.Type, i18n.Args{
		"value_units":    units,
		"cnt":            1,
		"value_currency": amountCurrency,
		"currency":       strings.ToUpper(lot.Currency),
		"rate":           lot.Rate,
	})
}

func (v View) EnterRequisite(broker string, last []string) Response {
	return v.With("enter_req_deal", i18n.Args{"broker": broker}, keyboard.Requisites(v.T, last))
}

func (v View) ConfirmRequisite(requisite string) Response {
	return v.Ask("confirm_requisite_deal", i18n.Args{"requisite": requisite})
}

// ConfirmSentFiat asks the buyer to pay and then press the button.
func (v View) ConfirmSentFiat(d api.Deal, longLimit int) Response {
	return v.With("confirm_sent_fiat", i18n.Args{
		"broker":         dealBroker(d),
		"value_currency": d.AmountCurrency,
		"currency":       dealCurrency(d),
		"long_limit":     longLimit,
		"req":            d.Requisite,
	}, v.KB.ConfirmSentFiat(v.T, d.Identificator, d.RequiredMask()))
}

// OpponentConfirmed is sent to the side that accepted, naming the other participant.
func (v View) OpponentConfirmed(d api.Deal, viewerID int64, longLimit int) Response {
	opponent := d.Buyer
	if viewerID == d.Buyer.ID {
		opponent = d.Seller
	}
	return v.Menu("opponent_confirmed_deal_lot_type_"+d.Lot.Type, i18n.Args{
		"broker":         dealBroker(d),
		"nickname":       opponent.Nickname,
		"long_limit":     longLimit,
		"value_currency": d.AmountCurrency,
		"currency":       dealCurrency(d),
	})
}

func (v View) AreYouSureSentFiat(d api.Deal) Response {
	return v.Ask("are_you_sure_sent_fiat", i18n.Args{
		"broker":         dealBroker(d),
		"nickname":       d.Seller.Nickname,
		"value_currency": d.AmountCurrency,
		"currency":       dealCurrency(d),
	})
}

// PleaseCheckFiat asks the seller to verify the incoming payment. delayed selects the
// variant that explains the dispute button appears later.
func (v View) PleaseCheckFiat(d api.Deal, mask string, delayed, showDispute bool) Response {
	maskText := ""
	if mask != "" {
		maskText = "\n\n⚠️ <b>Реквизиты отправителя:</b> " + mask
	}
	key := "please_check_fiat"
	if delayed {
		key = "please_check_fiat_with_5_min"
	}
	return v.With(key, i18n.Args{
		"value_currency":     d.AmountCurrency,
		"currency":           dealCurrency(d),
		"broker":             dealBroker(d),
		"deal_identificator": d.Identificator,
		"buyer_nickname":     d.Buyer.Nickname,
		"mask_text":          maskText,
	}, v.KB.CheckFiat(v.T, d.Identificator, showDispute))
}

func (v View) DisputeReady(dealID string) Response {
	return v.With("dispute_ready", i18n.Args{"deal_identificator": dealID}, v.KB.OpenDispute(v.T, dealID))
}

func (v View) DealConfirmation(d api.Deal) Response {
	return v.Ask("deal_confirmation", i18n.Args{
		"value_currency": d.AmountCurrency,
		"buyer_nickname": d.Buyer.Nickname,
		"value_units":    d.Amount,
		"currency":       dealCurrency(d),
	})
}

func (v View) YouSentCrypto(d api.Deal) Response {
	return v.With("you_sent_crypto", i18n.Args{
		"buyer_nickname": d.Buyer.Nickname,
		"value_units":    d.Amount,
	}, v.KB.LikeDislike(v.T, d.Buyer.ID, d.Identificator))
}

func (v View) YouReceivedCrypto(d api.Deal) Response {
	return v.With("you_received_crypto", i18n.Args{
		"seller_nickname": d.Seller.Nickname,
		"value_units":     d.Amount,
	}, v.KB.LikeDislike(v.T, d.Seller.ID, d.Identificator))
}

func (v View) DealTimeout(dealID string) Response {
	return v.Notice("message_about_deal_timeout", i18n.Args{"deal_identificator": dealID})
}

func (v View) CancelDealConfirmation(dealID string) Response {
	return v.Ask("cancel_deal", i18n.Args{"deal_identificator": dealID})
}

func (v View) DealCanceled(dealID string) Response {
	return v.Menu("deal_canceled", i18n.Args{"deal_identificator": dealID})
}

func (v View) OpponentCanceledDeal(dealID string) Response {
	return v.Menu("opponent_canceled_deal", i18n.Args{"deal_identificator": dealID})
}

// OpponentOpenedDispute lets the other side answer. Only a buyer facing a seller-opened
// dispute may decline it.
func (v View) OpponentOpenedDispute(dealID string, disputeTime int, canDecline bool) Response {
	return v.With("opponent_opened_dispute", i18n.Args{"identificator": dealID, "t": disputeTime},
		v.KB.AnswerDispute(v.T, dealID, canDecline))
}

func (v View) DisputeOpened(dealID string, disputeTime int) Response {
	return v.Notice("dispute_opened", i18n.Args{"identificator": dealID, "t": disputeTime})
}

func (v View) DisputeOpenedNotification(dealID string) Response {
	return v.Notice("dispute_opened_notification", i18n.Args{"identificator": dealID})
}

func (v View) BothOpenedDispute(dealID string) Response {
	return v.Notice("both_opened_dispute", i18n.Args{"identificator": dealID})
}

func (v View) ConfirmDeclineDispute(dealID string) Response {
	return v.Ask("confirm_decline_dispute", i18n.Args{"identificator": dealID})
}

// DealClosedByDispute reports a dispute verdict to one participant.
func (v View) DealClosedByDispute(dealID string, won, byAdmin bool) Response {
	key := "deal_closed_by_dispute_lost"
	if won {
		key = "deal_closed_by_dispute_won"
	}
	if byAdmin {
		key += "_admin"
	}
	return v.Notice(key, i18n.Args{"identificator": dealID})
}

func (v View) LotDeactivated(lotID string) Response {
	return v.Notice("lot_deactivated", i18n.Args{"identificator": lotID})
}

func (v View) ActiveDeals(deals []api.ActiveDeal) Response {
	return v.With("active_deals", i18n.Args{"cnt": len(deals)}, v.KB.ActiveDeals(v.T, deals))
}
