package composer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/api"
)

// Support lookup kinds, named after the /p, /pv2, /s, /sv2, /cp and /w commands.
const (
	InfoPayment    = "payment"
	InfoPaymentV2  = "payment_v2"
	InfoSale       = "sale"
	InfoSaleV2     = "sale_v2"
	InfoCPayment   = "cpayment"
	InfoWithdrawal = "withdrawal"
)

var infoTitles = map[string]string{
	InfoPayment:    "Платеж",
	InfoPaymentV2:  "Платеж v2",
	InfoSale:       "Продажа",
	InfoSaleV2:     "Продажа",
	InfoCPayment:   "CPayment",
	InfoWithdrawal: "Вывод v2",
}

// Admin output is Russian only and is not routed through the catalog.

func field(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// SupportInfo formats a merchant object looked up by support staff.
func (c *Composer) SupportInfo(kind string, data map[string]any) string {
	var b strings.Builder
	line := func(title, value string) {
		fmt.Fprintf(&b, "<b>%s:</b> %s\n", title, value)
	}
	line(infoTitles[kind], field(data, "id"))
	line("Мерчант", "/u"+field(data, "merchant"))
	line("Сумма", field(data, "amount"))
	if kind == InfoPayment || kind == InfoPaymentV2 {
		line("Сумма в валюте", field(data, "is_currency_amount"))
	}
	line("Криптовалюта", strings.ToUpper(field(data, "symbol")))
	if kind != InfoWithdrawal {
		line("Валюта", strings.ToUpper(field(data, "currency")))
	}
	payment := kind == InfoPayment || kind == InfoPaymentV2
	if payment {
		line("Адрес", field(data, "address"))
	}
	line("Статус", field(data, "status"))
	if kind == InfoWithdrawal {
		line("Адрес", field(data, "address"))
	}

	if kind == InfoCPayment || kind == InfoWithdrawal {
		return b.String()
	}
	b.WriteString("<b>Сделки:</b>\n")
	deals, _ := data["deals"].([]any)
	for _, raw := range deals {
		deal, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		b.WriteString("  /d" + field(deal, "identificator"))
		if payment {
			b.WriteString(", " + field(deal, "buyer_email"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (c *Composer) NodeTransaction(tx *api.NodeTx) string {
	const layout = "2006-01-02 15:04:05"
	return fmt.Sprintf("<pre>Транзакция %s\nЗарегистрирована %s\nПроведена %s\nСумма %s\nКомиссия %s</pre>",
		tx.TxID,
		time.Unix(tx.TimeReceived, 0).UTC().Format(layout),
		time.Unix(tx.BlockTime, 0).UTC().Format(layout),
		tx.Amount,
		tx.Fee.Abs().StringFixed(8))
}

// Profit formats the treasury summary posted to the profits chat.
func (c *Composer) Profit(p *api.Profit) string {
	sym := c.Symbol()
	var text string
	if funds, total, ok := p.Funds(); ok {
		text = fmt.Sprintf("<b>Пользователей:</b> %d\n"+
			"<b>Подтв. баланс:</b> %s %s\n"+
			"<b>Неподтв. баланс:</b> %s %s\n"+
			"<b>Баланс запасной:</b> %s %s\n"+
			"<b>Баланс платежный:</b> %s %s\n"+
			"<b>Денег в базе:</b> %s %s\n"+
			"<b>Заводы:</b> %s %s\n"+
			"<b>Выводы:</b> %s %s\n"+
			"<b>Профит:</b> ~ %s %s",
			p.Users,
			funds.Confirmed, sym,
			funds.Unconfirmed, sym,
			funds.Secondary, sym,
			funds.CPayments, sym,
			p.DBFunds, sym,
			funds.Deposits, sym,
			funds.Withdraws, sym,
			p.Profit, sym)
	} else {
		text = fmt.Sprintf("<b>Пользователей:</b> %d\n"+
			"<b>Денег на кошельке:</b> %s %s\n"+
			"<b>Денег в базе:</b> %s %s\n"+
			"<b>Профит:</b> %s %s",
			p.Users, total, sym, p.DBFunds, sym, p.Profit, sym)
	}
	if c.symbol == "usdt" {
		text += "\n\n<b>TRX баланс:</b> " + p.TRXBalance.String()
	}
	return text + fmt.Sprintf("\n\n<b>Дисбаланс:</b> %s %s", p.Imbalance, sym)
}

func (c *Composer) Campaign(cp *api.Campaign) string {
	text := fmt.Sprintf("<b>Название:</b> %s\n<b>Регистраций:</b> %d\n<b>Ссылки:</b>\n", cp.Name, cp.Registrations)
	for _, l := range cp.Links {
		text += l + "\n"
	}
	return text
}

var finIntervals = []struct{ key, title string }{
	{"year", "Год"},
	{"month", "Месяц"},
	{"week", "Неделя"},
	{"day", "День"},
}

// FinReport formats earnings by source. usdRate converts the totals to dollars.
func (c *Composer) FinReport(r api.FinReport, usdRate decimal.Decimal) string {
	sym := c.Symbol()
	var b strings.Builder
	section := func(title, source string) {
		b.WriteString(title + ":\n")
		for _, in := range finIntervals {
			fmt.Fprintf(&b, "%s: %s %s\n", in.title, r[source+"_"+in.key], sym)
		}
		b.WriteString("\n")
	}
	section("Заработок на транзакциях", "transactions")
	section("Заработок на сделках", "deals")
	section("Заработок на мерчантах", "merchants")

	b.WriteString("Всего заработано:\n")
	for i, in := range finIntervals {
		total := r["transactions_"+in.key].Add(r["deals_"+in.key]).Add(r["merchants_"+in.key]).Round(5)
		fmt.Fprintf(&b, "%s: %s %s ~ %s$", in.title, total, sym, usdRate.Mul(total).StringFixed(2))
		if i < len(finIntervals)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (c *Composer) Frozen(entries []api.FrozenEntry) string {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Frozen)
	}
	text := fmt.Sprintf("Всего в заморозке %s %s:\n", total, c.Symbol())
	for _, e := range entries {
		text += fmt.Sprintf("/u%s %s %s\n", e.User, e.Frozen, c.Symbol())
	}
	return text
}

func (c *Composer) Transit(t *api.Transit) string {
	return fmt.Sprintf("Адрес %s\nПриватный ключ %s\nБаланс %s %s", t.Address, t.PrivateKey, t.Balance, c.Symbol())
}

func (c *Composer) WithdrawalsToggled(enabled bool) string {
	return "Вывод " + pick(enabled, "включен", "отключен")
}

func (c *Composer) FastDealsToggled(enabled bool) string {
	return "Быстрая сделка " + pick(enabled, "включена", "отключена")
}

func (c *Composer) MessagesBanned(banned bool) string {
	return pick(banned, "Юзер забанен", "Юзер разбанен")
}

func (c *Composer) NewBalance(nickname string, balance decimal.Decimal, withSymbol bool) string {
	text := fmt.Sprintf("Новый баланс пользователя /u%s %s", nickname, balance)
	if withSymbol {
		text = "✅ " + text + " " + c.Symbol()
	}
	return text
}

func (c *Composer) NewFrozen(nickname string, frozen decimal.Decimal) string {
	return fmt.Sprintf("Новое количество замороженных средств пользователя /u%s %s", nickname, frozen)
}

// Months lists one report command per month since the exchange launched.
func (c *Composer) Months(prefix string, now time.Time) string {
	var b strings.Builder
	for m := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC); !m.After(now); m = m.AddDate(0, 1, 0) {
		fmt.Fprintf(&b, "/%s_%d_%d\n", prefix, m.Year(), int(m.Month()))
	}
	return b.String()
}

func pick(on bool, whenOn, whenOff string) string {
	if on {
		return whenOn
	}
	return whenOff
}

// ControlUpdate formats a ledger entry for the control chat.
func (c *Composer) ControlUpdate(u api.ControlUpdate) string {
	sym := strings.ToUpper(u.Symbol)
	created, _, _ := strings.Cut(u.CreatedAt, ".")
	return fmt.Sprintf("<b>Пользователь:</b> /u%d\n"+
		"<b>Инстанс:</b> %s\n"+
		"<b>Время:</b> %s\n"+
		"<b>Баланс:</b> %s %s\n"+
		"<b>Заморозка:</b> %s %s\n"+
		"<b>Сообщение:</b> %s\n"+
		"<b>Текущий баланс:</b> %s %s\n"+
		"<b>Текущая заморозка:</b> %s %s",
		u.User, u.Instance, created,
		u.ChangeBalance.Round(6), sym,
		u.ChangeFrozen.Round(6), sym,
		StripTags(u.Message),
		u.Balance.Round(6), sym,
		u.Frozen.Round(6), sym)
}

// DealControl formats the short entry posted to the deal control chat. deal may be nil
// when the message does not reference a deal.
func (c *Composer) DealControl(u api.ControlUpdate, deal *api.Deal) string {
	created, _, _ := strings.Cut(u.CreatedAt, ".")
	text := fmt.Sprintf("<b>Пользователь:</b> /u%d\n<b>Время:</b> %s\n<b>Сообщение:</b> %s",
		u.User, created, StripTags(u.Message))
	if deal != nil {
		text += fmt.Sprintf("\n<b>Сумма в %s:</b> %s", strings.ToUpper(deal.Currency), deal.AmountCurrency)
		text += "\n<b>Реквизиты:</b> " + deal.Requisite
		text += "\n<b>Имейл покупателя:</b> " + StripTags(deal.Buyer.Email)
	}
	return text
}

// UserMessageCaption heads a user-to-user message mirrored to the moderation chat.
func (c *Composer) UserMessageCaption(m api.UserMessageCopy) string {
	return fmt.Sprintf("📨  /u%d  ➡️  /u%d", m.Sender, m.Receiver)
}

func (c *Composer) Earning(e api.Earning) string {
	prefix := ""
	if e.Income.IsPositive() {
		prefix = "+"
	}
	return fmt.Sprintf("%s %s %s", prefix, e.Income, c.Symbol())
}

func (c *Composer) NodeFunding(f api.NodeFunding) string {
	return fmt.Sprintf("<b>Пополнение запаса!</b>\n\nСумма: %s %s\nСсылка: %s", f.Amount, c.Symbol(), f.Link)
}

// StripTags drops angle brackets so user supplied text cannot break HTML parse mode.
func StripTags(s string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

func (v View) AdminMenu() Response {
	return v.With("admin_menu", nil, v.KB.AdminMenu())
}

// SpamAlert tells admins that a user keeps hammering the bot while throttled.
func (c *Composer) SpamAlert(telegramID int64, threshold int) string {
	return fmt.Sprintf("Более %d сообщений заблокировано ботом от юзера %d со времени последнего успешного ответа. Вероятно, спам атака",
		threshold, telegramID)
}
