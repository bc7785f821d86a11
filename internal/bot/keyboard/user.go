package keyboard

import (
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
)

// Admin toggle fields carried in CbToggle callbacks.
const (
	ToggleBan               = "ban"
	ToggleShadowBan         = "shadowban"
	ToggleApplyShadowBan    = "applyshadowban"
	ToggleVerification      = "verification"
	ToggleSuperVerification = "superverification"
	ToggleSkyPay            = "skypay"
	ToggleSkyPayV2          = "skypayv2"
	ToggleAllowSell         = "allowsell"
	ToggleAllowSaleV2       = "allowsalev2"
	ToggleMessagesBan       = "usermessagesban"
)

// User report kinds carried in CbUserReport callbacks.
const (
	ReportTransactions = "transactions"
	ReportDeals        = "deals"
	ReportLots         = "lots"
	ReportPromocodes   = "promocodes"
)

// UserView is the data behind a user card keyboard.
type UserView struct {
	Info           api.UserInfo
	IsAdmin        bool
	AllowMessages  bool
	BannedMessages bool
}

func pick(on bool, whenOn, whenOff string) string {
	if on {
		return whenOn
	}
	return whenOff
}

// User builds the user card keyboard. Admins additionally get moderation toggles and reports.
func (b *Builder) User(t i18n.Translator, v UserView) *telebot.ReplyMarkup {
	u := v.Info
	id := strconv.FormatInt(u.ID, 10)
	toggle := func(name, field string) InlineButton {
		return btn(t, name, CbToggle, Join(field, id), nil)
	}

	kb := NewInlineKeyboard()
	if v.IsAdmin {
		kb.AddRow(toggle(pick(u.IsBaned, "unban", "ban"), ToggleBan))
		kb.AddRow(
			toggle(pick(u.IsVerify, "unverify", "verify"), ToggleVerification),
			toggle(pick(u.SuperVerifyOnly, "unsuperverify", "superverify"), ToggleSuperVerification),
		)
		kb.AddRow(
			toggle(pick(u.SkyPay, "sky_pay_off", "sky_pay_on"), ToggleSkyPay),
			toggle(pick(u.AllowSuperBuy, "sky_pay_v2_off", "sky_pay_v2_on"), ToggleSkyPayV2),
		)
		kb.AddRow(
			toggle(pick(u.AllowSell, "disallow_sell", "allow_sell"), ToggleAllowSell),
			toggle(pick(u.AllowSaleV2, "disallow_sale_v2", "allow_sale_v2"), ToggleAllowSaleV2),
		)
		kb.AddRow(toggle(pick(u.ShadowBan, "shadow_unban", "shadow_ban"), ToggleShadowBan))
		kb.AddRow(toggle(pick(u.ApplyShadowBan, "apply_shadow_unban", "apply_shadow_ban"), ToggleApplyShadowBan))
	}
	if v.AllowMessages {
		kb.AddRow(btn(t, "write_message", CbWriteMessage, id, nil))
	}
	kb.AddRow(toggle(pick(v.BannedMessages, "unban_messages", "ban_messages"), ToggleMessagesBan))

	if v.IsAdmin {
		report := func(name, kind string) InlineButton {
			return btn(t, name, CbUserReport, Join(kind, id), nil)
		}
		kb.AddRow(report("transactions", ReportTransactions), report("deals", ReportDeals))
		kb.AddRow(
			report("lots", ReportLots),
			report("promo_codes", ReportPromocodes),
			btn(t, "transit", CbTransit, id, nil),
		)
	}
	return b.build(kb)
}
