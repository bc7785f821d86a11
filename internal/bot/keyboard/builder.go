package keyboard

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
	"github.com/Proton-105/skyexchange-bot/internal/money"
	"github.com/Proton-105/skyexchange-bot/pkg/config"
)

var (
	lotActivation   = map[bool]string{true: "🌕", false: "🌑"}
	verifiedMark    = map[bool]string{true: "✅", false: ""}
	ownLotMark      = "🔵"
	onlineLotMark   = "🌕"
	offlineLotMark  = "⚪️"
	verifiedLotMark = "✅"
)

// LotAccess describes whether the viewer may start a deal on a lot.
type LotAccess int

const (
	LotOpen LotAccess = iota
	LotClosed
	LotNoBalance
)

// Builder creates the inline keyboards attached to bot replies.
type Builder struct {
	log    *slog.Logger
	symbol string
	links  config.LinksConfig
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger, symbol string, links config.LinksConfig) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log, symbol: symbol, links: links}
}

// Symbol returns the deployment coin in upper case.
func (b *Builder) Symbol() string {
	return strings.ToUpper(b.symbol)
}

func (b *Builder) encode(unique, data string) string {
	payload, err := EncodeCallback(unique, data)
	if err != nil {
		b.log.Warn("callback data truncated", slog.String("unique", unique), slog.Any("error", err))
		return unique
	}
	return payload
}

func (b *Builder) build(kb *InlineKeyboardBuilder) *telebot.ReplyMarkup {
	return kb.Build(b.encode)
}

func btn(t i18n.Translator, name, unique, data string, args i18n.Args) InlineButton {
	return InlineButton{Text: Label(t, name, args), Unique: unique, Data: data}
}

func link(t i18n.Translator, name, url string) InlineButton {
	return InlineButton{Text: Label(t, name, nil), URL: url}
}

func telegramLink(handle string) string {
	return "t.me/" + strings.TrimPrefix(handle, "@")
}

// MainMenu is the reply keyboard for the idle state.
func (b *Builder) MainMenu(t i18n.Translator) *telebot.ReplyMarkup {
	return MainMenu(t, b.symbol)
}

func (b *Builder) Wallet(t i18n.Translator) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().
		AddRow(btn(t, "deposit", CbDeposit, "", nil), btn(t, "withdraw", CbWithdraw, "", nil)).
		AddRow(btn(t, "promocodes", CbPromocodes, "", nil), btn(t, "reports", CbReports, "", nil))
	if b.symbol == "usdt" {
		kb.AddRow(btn(t, "deposit_rub", CbDepositRub, "", nil))
	}
	return b.build(kb)
}

// BuySell links straight into the market lists.
func (b *Builder) BuySell(t i18n.Translator) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(
		btn(t, "buy", CbMarket, Join(api.LotBuy, "1"), nil),
		btn(t, "sell", CbMarket, Join(api.LotSell, "1"), nil),
	))
}

func (b *Builder) Exchange(t i18n.Translator, activeDeals, lots int) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().AddRow(
		btn(t, "buy", CbMarket, Join(api.LotBuy, "1"), nil),
		btn(t, "sell", CbMarket, Join(api.LotSell, "1"), nil),
	)
	lotsLabel := "create_lot_"
	if lots > 0 {
		lotsLabel = "handle_lots"
	}
	kb.AddRow(btn(t, lotsLabel, CbHandleLots, "1", nil))
	if activeDeals > 0 {
		kb.AddRow(btn(t, "active_deals", CbActiveDeals, "", i18n.Args{"cnt": activeDeals}))
	}
	return b.build(kb)
}

func (b *Builder) ActiveDeals(t i18n.Translator, deals []api.ActiveDeal) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, d := range deals {
		name := "active_deal"
		switch {
		case d.DisputeExists:
			name += "_dispute"
		case d.State == api.DealPaid:
			name += "_paid"
		}
		kb.AddRow(btn(t, name, CbDeal, d.Identificator, i18n.Args{
			"broker":         d.Broker,
			"value_currency": d.AmountCurrency,
			"currency":       strings.ToUpper(d.Currency),
		}))
	}
	kb.AddRow(btn(t, "back", CbExchange, "", nil))
	return b.build(kb)
}

// HandleLots lists the viewer's own lots with the market distance of each rate.
func (b *Builder) HandleLots(t i18n.Translator, tradingActive bool, lots []api.Lot, rates map[string]decimal.Decimal, page, pages int) *telebot.ReplyMarkup {
	toggle := "activate_trading"
	if tradingActive {
		toggle = "deactivate_trading"
	}
	kb := NewInlineKeyboard().AddRow(btn(t, toggle, CbToggleTrading, "", nil))

	for _, lot := range lots {
		var diff decimal.Decimal
		if lot.Coefficient.Valid {
			diff = lot.Coefficient.Decimal.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).Round(2)
		} else {
			diff = money.PercentDiff(rates[lot.Currency], lot.Rate)
		}
		kb.AddRow(btn(t, "user_lot", CbLot, lot.Identificator, i18n.Args{
			"type":          Label(t, "lot_"+lot.Type, nil),
			"broker":        lot.Broker,
			"percent":       diff,
			"currency":      strings.ToUpper(lot.Currency),
			"rate":          lot.Rate,
			"activation_sm": lotActivation[lot.IsActive && tradingActive],
		}))
	}

	back := btn(t, "cancel_lots", CbExchange, "", nil)
	kb.AddRow(PaginationButtons(CbHandleLots, "", page, pages, back)...)
	kb.AddRow(btn(t, "create_lot", CbCreateLot, "", nil))
	return b.build(kb)
}

// Market lists brokers with their best rate for one side of the book.
func (b *Builder) Market(t i18n.Translator, lots []api.MarketLot, page, pages int, currency, lotType string) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, l := range lots {
		if l.Count > 0 {
			kb.AddRow(btn(t, "lot_buy_sell_menu", CbBrokerLots, Join(lotType, l.Broker.ID, "1"), i18n.Args{
				"broker":   l.Broker.Name,
				"rate":     l.Rate,
				"currency": strings.ToUpper(currency),
				"cnt":      l.Count,
			}))
			continue
		}
		kb.AddRow(btn(t, "lot_buy_sell_menu_empty", CbNoop, "", i18n.Args{"broker": l.Broker.Name}))
	}
	back := btn(t, "cancel_lots", CbExchange, "", nil)
	kb.AddRow(PaginationButtons(CbMarket, lotType, page, pages, back)...)
	return b.build(kb)
}

// BrokerLots lists the lots of one broker.
func (b *Builder) BrokerLots(t i18n.Translator, lots []api.Lot, page, pages int, lotType, brokerID string) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	for _, lot := range lots {
		kb.AddRow(btn(t, "lot_buy_sell_menu_broker", CbLot, lot.Identificator, i18n.Args{
			"rate":       lot.Rate,
			"currency":   strings.ToUpper(lot.Currency),
			"limit_from": lot.LimitFrom,
			"limit_to":   lot.LimitTo,
			"sm":         lotMark(lot),
		}))
	}
	back := btn(t, "cancel_lots", CbMarket, Join(lotType, "1"), nil)
	kb.AddRow(PaginationButtons(CbBrokerLots, Join(lotType, brokerID), page, pages, back)...)
	return b.build(kb)
}

func lotMark(lot api.Lot) string {
	switch {
	case lot.Owner:
		return ownLotMark
	case lot.IsVerify:
		return verifiedLotMark
	case lot.IsOnline:
		return onlineLotMark
	default:
		return offlineLotMark
	}
}

func (b *Builder) Lot(t i18n.Translator, lotID string, access LotAccess) *telebot.ReplyMarkup {
	var button InlineButton
	switch access {
	case LotNoBalance:
		button = btn(t, "cant_begin_deal_balance", CbNoop, "", nil)
	case LotClosed:
		button = btn(t, "cant_begin_deal", CbNoop, "", nil)
	default:
		button = btn(t, "begin_deal", CbBeginDeal, lotID, nil)
	}
	return b.build(NewInlineKeyboard().AddRow(button))
}

// SelfLot shows the management buttons for a lot the viewer owns.
func (b *Builder) SelfLot(t i18n.Translator, lot api.Lot) *telebot.ReplyMarkup {
	id := lot.Identificator
	status := "lot_on"
	if lot.IsActive {
		status = "lot_off"
	}
	return b.build(NewInlineKeyboard().
		AddRow(
			btn(t, "limits", CbChangeLimits, id, nil),
			btn(t, "rate", CbChangeRate, id, nil),
			btn(t, "conditions", CbChangeConditions, id, nil),
		).
		AddRow(
			btn(t, "back", CbHandleLots, "1", nil),
			btn(t, "delete", CbDeleteLot, id, nil),
			btn(t, status, CbLotStatus, id, nil),
		))
}

func (b *Builder) AcceptOrDecline(t i18n.Translator, dealID string) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(
		btn(t, "accept_deal", CbAcceptDeal, dealID, nil),
		btn(t, "decline_deal", CbCancelDeal, dealID, nil),
	))
}

// ConfirmSentFiat is sent to the buyer once the seller confirmed. Masked merchant deals
// only allow cancelling from here.
func (b *Builder) ConfirmSentFiat(t i18n.Translator, dealID string, requiredMask bool) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard()
	if !requiredMask {
		kb.AddRow(btn(t, "confirm_sent_fiat", CbConfirmSentFiat, dealID, nil))
	}
	kb.AddRow(btn(t, "cancel_deal", CbCancelDeal, dealID, nil))
	return b.build(kb)
}

func (b *Builder) CheckFiat(t i18n.Translator, dealID string, showDispute bool) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().AddRow(btn(t, "send_crypto", CbSendCrypto, dealID, nil))
	if showDispute {
		kb.AddRow(btn(t, "open_dispute", CbOpenDispute, dealID, nil))
	}
	return b.build(kb)
}

func (b *Builder) OpenDispute(t i18n.Translator, dealID string) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(btn(t, "open_dispute", CbOpenDispute, dealID, nil)))
}

func (b *Builder) AnswerDispute(t i18n.Translator, dealID string, canDecline bool) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().AddRow(btn(t, "answer_dispute", CbOpenDispute, dealID, nil))
	if canDecline {
		kb.AddRow(btn(t, "decline_dispute", CbDeclineDispute, dealID, nil))
	}
	return b.build(kb)
}

func (b *Builder) LikeDislike(t i18n.Translator, targetID int64, dealID string) *telebot.ReplyMarkup {
	target := strconv.FormatInt(targetID, 10)
	return b.build(NewInlineKeyboard().AddRow(
		btn(t, "like", CbLike, Join(target, dealID), nil),
		btn(t, "dislike", CbDislike, Join(target, dealID), nil),
	))
}

func (b *Builder) About(t i18n.Translator) *telebot.ReplyMarkup {
	support := telegramLink(b.links.Support)
	return b.build(NewInlineKeyboard().
		AddRow(btn(t, "communication", CbCommunication, "", nil), btn(t, "friends", CbFriends, "", nil)).
		AddRow(btn(t, "affiliate", CbAffiliate, "", nil), link(t, "conditions", b.links.TermsURL)).
		AddRow(link(t, "support", support), link(t, "verification", support)))
}

func (b *Builder) Communication(t i18n.Translator) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(link(t, "world_chat", b.links.WorldChat), link(t, "ru_chat", "https://"+b.links.ChatLink)).
		AddRow(btn(t, "back", CbAbout, "", nil), link(t, "news_channel", "https://"+b.links.ChannelLink)))
}

func (b *Builder) Friends(t i18n.Translator) *telebot.ReplyMarkup {
	site := "https://" + strings.TrimPrefix(b.links.Site, "www.")
	return b.build(NewInlineKeyboard().
		AddRow(link(t, "SKY CRYPTO", site+"/partner")).
		AddRow(link(t, "SKY PAY", site+"/sky-pay")).
		AddRow(link(t, "education", site+"/training")).
		AddRow(link(t, "FAQ", site+"/faq")).
		AddRow(btn(t, "back", CbAbout, "", nil)))
}

func (b *Builder) Affiliate(t i18n.Translator) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(btn(t, "get_code", CbGetCode, "", nil)).
		AddRow(btn(t, "back", CbAbout, "", nil)))
}

func (b *Builder) InviteFriend(t i18n.Translator) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(btn(t, "get_code", CbGetCode, "", nil)))
}

func (b *Builder) Settings(t i18n.Translator) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(btn(t, "lang", CbLangSettings, "", nil), btn(t, "rate", CbRateSettings, "", nil)).
		AddRow(btn(t, "currency_settings", CbCurrencySettings, "", nil)))
}

func (b *Builder) LangSettings(t i18n.Translator) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(btn(t, "lang_ru", CbLang, "ru", nil)).
		AddRow(btn(t, "lang_en", CbLang, "en", nil)).
		AddRow(btn(t, "back", CbSettings, "", nil)))
}

func (b *Builder) RateSettings(t i18n.Translator) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(btn(t, "back", CbSettings, "", nil)))
}

func (b *Builder) CurrencySettings(t i18n.Translator, currencies []api.Currency) *telebot.ReplyMarkup {
	row := make([]InlineButton, 0, len(currencies))
	for _, c := range currencies {
		row = append(row, InlineButton{Text: strings.ToUpper(c.ID), Unique: CbChooseCurrency, Data: c.ID})
	}
	return b.build(NewInlineKeyboard().
		AddRow(row...).
		AddRow(btn(t, "back", CbSettings, "", nil)))
}

func (b *Builder) Promocodes(t i18n.Translator, active int) *telebot.ReplyMarkup {
	kb := NewInlineKeyboard().AddRow(
		btn(t, "create_promocode", CbCreatePromocode, "", nil),
		btn(t, "activate_promocode", CbActivatePromocode, "", nil),
	)
	if active > 0 {
		kb.AddRow(btn(t, "active_promocodes", CbActivePromocodes, "", i18n.Args{"cnt": active}))
	}
	kb.AddRow(btn(t, "back", CbWallet, "", nil))
	return b.build(kb)
}

// CreatePromocode asks whether the code is denominated in crypto or in the user's currency.
func (b *Builder) CreatePromocode(t i18n.Translator, currency string) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().
		AddRow(
			InlineButton{Text: b.Symbol(), Unique: CbCreatePromocode, Data: PromoCrypto},
			InlineButton{Text: strings.ToUpper(currency), Unique: CbCreatePromocode, Data: PromoFiat},
		).
		AddRow(btn(t, "back", CbPromocodes, "", nil)))
}

func (b *Builder) DeletePromocode(t i18n.Translator, id int64) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(btn(t, "delete", CbDeletePromocode, strconv.FormatInt(id, 10), nil)))
}

func (b *Builder) Answer(t i18n.Translator, senderID int64) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(btn(t, "answer", CbWriteMessage, strconv.FormatInt(senderID, 10), nil)))
}

// Token asks the Telegram account owner whether to reveal the join token.
func (b *Builder) Token(t i18n.Translator, token string) *telebot.ReplyMarkup {
	return b.build(NewInlineKeyboard().AddRow(
		btn(t, "yes", CbShowToken, token, nil),
		btn(t, "no", CbDeclineToken, "", nil),
	))
}

// AdminMenu is shown to admins only and is not localized.
func (b *Builder) AdminMenu() *telebot.ReplyMarkup {
	item := func(text, kind string) InlineButton {
		return InlineButton{Text: text, Unique: CbAdminReport, Data: kind}
	}
	return b.build(NewInlineKeyboard().
		AddRow(item("Пользователи", "users"), item("Заявки", "lots")).
		AddRow(item("Сделки", "deals"), item("Промокоды", "promocodes")).
		AddRow(item("Транзакции", "transactions"), item("Финансы", "financial")).
		AddRow(item("Обмены", "exchange")).
		AddRow(item("Ком. мерчантов", "merchant")).
		AddRow(item("Кампании", "campaigns")))
}

// Verified renders the check mark used next to verified nicknames.
func Verified(v bool) string {
	return verifiedMark[v]
}
