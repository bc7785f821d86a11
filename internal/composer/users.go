package composer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
	"github.com/Proton-105/skyexchange-bot/internal/money"
)

// ReferralPercent is the share of the exchange commission paid to the referrer.
const ReferralPercent = 40

var hundred = decimal.NewFromInt(100)

func (v View) ConfirmPolicy() Response {
	return v.With("confirm_policy", nil, keyboard.ConfirmPolicy(v.T))
}

func (v View) Start() Response {
	return v.Menu("start", i18n.Args{
		"channel_link": v.c.links.ChannelLink,
		"chat_link":    v.c.links.ChatLink,
	})
}

// StartSecond follows Start with the bot username the user can share.
func (v View) StartSecond(botUsername string) Response {
	return v.Menu("start_second", i18n.Args{"tg_username": botUsername})
}

func (v View) YouAreBanned() Response {
	return v.Notice("you_are_baned", i18n.Args{"support": "t.me/" + strings.TrimPrefix(v.c.links.Support, "@")})
}

// UnknownCommand is the catch-all reply that also lists the fees.
func (v View) UnknownCommand(withdrawCommission decimal.Decimal) Response {
	text := "(комиссия сети) - " + withdrawCommission.String()
	if v.c.symbol == "btc" {
		text = "(динамичная комиссия)\n" +
			"От 0.0001 BTC до 0.0005 BTC -> 0.00007 BTC\n" +
			"От 0.0005 BTC до 0.001 BTC -> 0.0001 BTC\n" +
			"От 0.001 BTC до 0.1 BTC -> 0.0002 BTC\n" +
			"От 0.1 BTC до 1 BTC -> 0.0003 BTC"
	}
	return v.Menu("unknown_command", i18n.Args{
		"buy_commission":           money.BuyerCommission.Mul(hundred).StringFixed(1),
		"sell_commission":          money.SellerCommission.Mul(hundred).StringFixed(1),
		"withdraw_commission_text": text,
	})
}

func (v View) About(u api.User) Response {
	return v.With("about", i18n.Args{
		"nickname": u.Nickname,
		"site":     v.c.links.Site,
	}, v.KB.About(v.T))
}

func (v View) Communication() Response {
	return v.With("communication", nil, v.KB.Communication(v.T)).Editing()
}

func (v View) Friends() Response {
	return v.With("friends", nil, v.KB.Friends(v.T)).Editing()
}

func (v View) Affiliate(u api.User, a api.Affiliate) Response {
	return v.With("affiliate", i18n.Args{
		"currency":            strings.ToUpper(u.Currency),
		"invited_cnt":         a.InvitedCount,
		"earned_from_ref":     a.EarnedFromRef,
		"earned_in_currency":  a.EarnedFromRefCurrency.StringFixed(2),
		"percents_commission": ReferralPercent,
	}, v.KB.Affiliate(v.T)).Editing()
}

// ReferralLink is the deep link that credits new users to the owner of code.
func ReferralLink(botUsername, code string) string {
	return "https://t.me/" + strings.TrimPrefix(botUsername, "@") + "?start=" + code
}

func (v View) Settings(u api.User) Response {
	return v.With("settings", i18n.Args{
		"nickname":        u.Nickname,
		"verification_sm": Mark(u.IsVerify),
		"sky_pay_sm":      Mark(u.SkyPay),
	}, v.KB.Settings(v.T))
}

func (v View) LangSettings() Response {
	return v.With("lang_settings", nil, v.KB.LangSettings(v.T)).Editing()
}

func (v View) RateSettings(u api.User, rate decimal.Decimal) Response {
	return v.With("rate_settings", v.rateArgs(rate, u.Currency), v.KB.RateSettings(v.T)).Editing()
}

func (v View) CurrencySettings(u api.User, currencies []api.Currency) Response {
	return v.With("currency_settings", i18n.Args{"currency": strings.ToUpper(u.Currency)},
		v.KB.CurrencySettings(v.T, currencies)).Editing()
}

func (v View) Done() Response {
	return v.Menu("done", nil)
}

// UserCard is the data behind a profile lookup.
type UserCard struct {
	Info           api.UserInfo
	IsAdmin        bool
	AllowMessages  bool
	BannedMessages bool
}

// User renders a profile. Admins also see the balance and merchant flags.
func (v View) User(c UserCard) Response {
	u := c.Info
	extra := ""
	if c.IsAdmin {
		extra = v.Text("balance", i18n.Args{"balance": u.Balance}) +
			v.Text("allow_sell", i18n.Args{"allow_sell": Mark(u.AllowSell)}) +
			v.Text("allow_sale_v2", i18n.Args{"allow_sale_v2": Mark(u.AllowSaleV2)}) +
			v.Text("sky_pay", i18n.Args{"sky_pay": Mark(u.SkyPay)}) +
			v.Text("sky_pay_v2", i18n.Args{"sky_pay_v2": Mark(u.AllowSuperBuy)}) +
			v.Text("super_verification", i18n.Args{"super_verification": Mark(u.SuperVerifyOnly)})
	}
	return v.With("user", i18n.Args{
		"balance_str":     extra,
		"verification_sm": Mark(u.IsVerify),
		"sky_pay_sm":      Mark(u.SkyPay),
		"nickname":        u.Nickname,
		"telegram_id":     u.TelegramID,
		"deals":           u.Deals,
		"revenue":         u.Revenue,
		"days_registered": u.DaysRegistered,
		"likes":           u.Likes,
		"dislikes":        u.Dislikes,
		"rating":          u.Rating,
		"rating_logo":     u.RatingLogo,
		"currency":        strings.ToUpper(u.Currency),
	}, v.KB.User(v.T, keyboard.UserView{
		Info:           u,
		IsAdmin:        c.IsAdmin,
		AllowMessages:  c.AllowMessages,
		BannedMessages: c.BannedMessages,
	}))
}

func (v View) UserDoesNotExist() Response {
	return v.With("user_does_not_exists", nil, v.KB.InviteFriend(v.T))
}

func (v View) MessageSent(nickname string) Response {
	return v.Menu("message_sent", i18n.Args{"nickname": nickname})
}

// MessageReceived relays a user message. An empty text means a photo or document was sent.
func (v View) MessageReceived(sender api.User, text string) Response {
	if text == "" {
		return v.With("photo_received", i18n.Args{"nickname": sender.Nickname}, v.KB.Answer(v.T, sender.ID))
	}
	return v.With("message_received", i18n.Args{"text": text, "nickname": sender.Nickname}, v.KB.Answer(v.T, sender.ID))
}

// AccountsJoin asks the Telegram account owner to confirm linking a web account.
func (v View) AccountsJoin(tg, web api.User, token string) Response {
	return v.With("new_accounts_join", i18n.Args{
		"first_nickname":  web.Nickname,
		"second_nickname": tg.Nickname,
	}, v.KB.Token(v.T, token))
}

func (v View) NewReferral(nickname string) Response {
	return v.With("new_referral", i18n.Args{"identificator": nickname}, v.KB.InviteFriend(v.T))
}

func (v View) ReferralEarning(referral string, earning decimal.Decimal) Response {
	return v.With("referral_earning", i18n.Args{
		"identificator": referral,
		"earning":       earning.StringFixed(8),
	}, v.KB.InviteFriend(v.T))
}

func (v View) NewIncome(amount decimal.Decimal) Response {
	return v.Notice("new_income", i18n.Args{"amount": amount})
}

func (v View) NewIncomeFromAdmin(amount decimal.Decimal) Response {
	return v.Notice("new_income_from_admin", i18n.Args{"value": amount})
}

func (v View) TransactionProcessed(link string) Response {
	return v.Notice("transaction_processed", i18n.Args{"link": link})
}
