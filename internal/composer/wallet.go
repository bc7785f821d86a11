package composer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
)

// maxWithdrawHint caps the "available to withdraw" hint per coin.
var maxWithdrawHint = map[string]decimal.Decimal{
	"btc":  decimal.NewFromInt(1),
	"eth":  decimal.NewFromInt(5),
	"usdt": decimal.NewFromInt(10000),
}

// WalletSummary is the data behind the wallet screen.
type WalletSummary struct {
	User   api.User
	Wallet api.Wallet
	Stat   api.UserStat
	Bound  bool
}

func (v View) Wallet(s WalletSummary) Response {
	frozen := ""
	if s.Wallet.Frozen.IsPositive() {
		frozen = v.Text("frozen", i18n.Args{"frozen": s.Wallet.Frozen})
	}
	return v.With("wallet", i18n.Args{
		"balance":         s.Wallet.Balance.StringFixed(8),
		"frozen_str":      frozen,
		"deposited":       s.Stat.Deposited,
		"withdrawn":       s.Stat.Withdrawn,
		"likes":           s.Stat.Likes,
		"dislikes":        s.Stat.Dislikes,
		"nick":            s.User.Nickname,
		"verify_sm":       Mark(s.User.IsVerify),
		"sky_pay_sm":      Mark(s.User.SkyPay),
		"about":           s.Wallet.BalanceCurrency.StringFixed(2),
		"deals_done":      s.Stat.Deals,
		"currency":        strings.ToUpper(s.User.Currency),
		"revenue":         s.Stat.Revenue,
		"days_registered": s.Stat.DaysRegistered,
		"rating_sm":       s.Stat.RatingLogo,
		"rating_points":   s.Stat.Rating,
		"bind_sm":         Mark(s.Bound),
	}, v.KB.Wallet(v.T))
}

// Deposit explains how to top up. The address itself follows as a separate message.
func (v View) Deposit(wallet api.Wallet, minDeposit decimal.Decimal) []Response {
	text := v.Text("deposit", nil)
	if v.c.symbol == "usdt" {
		text += "\n\n" + v.Text("trc_only", nil)
	}
	if minDeposit.IsPositive() {
		text += "\n\n" + v.Text("min_deposit", i18n.Args{"min_deposit": minDeposit})
	}
	return []Response{{Text: text}, {Text: wallet.Address}}
}

// DepositRub sends the QR code of a rouble top-up.
func (v View) DepositRub(qr []byte) []Response {
	return []Response{
		v.Notice("pre_deposit_rub_text", nil),
		{Attachment: &Attachment{Kind: KindPhoto, Name: "qr.png", Content: qr}},
	}
}

// Withdraw asks for the destination address.
func (v View) Withdraw(lastAddress string) Response {
	suffix := ""
	if v.c.symbol == "usdt" {
		suffix = " (TRC-20)"
	}
	return v.With("withdraw", i18n.Args{"add_str": suffix}, keyboard.Withdraw(v.T, lastAddress))
}

func (v View) NotEnoughFunds(minimum, balance decimal.Decimal) Response {
	return v.With("not_enoung_funds_withdraw", i18n.Args{
		"min_to_withdraw": minimum,
		"balance":         balance,
	}, v.KB.BuySell(v.T))
}

// WithdrawAmount asks how much to send, quoting the network commission.
func (v View) WithdrawAmount(address string, balance, minimum decimal.Decimal, commission api.Commission) Response {
	key := "choose_amount_withdraw"
	if v.c.symbol == "eth" {
		key += "_short"
	}
	available := balance.Sub(commission.Commission).Truncate(6)
	if limit, ok := maxWithdrawHint[v.c.symbol]; ok && available.GreaterThan(limit) {
		available = limit
	}
	return v.Prompt(key, i18n.Args{
		"chosen_address": address,
		"min_sum":        minimum,
		"available":      balance,
		"commission":     v.commissionText(commission),
		"to_withdraw":    available,
	})
}

func (v View) commissionText(c api.Commission) string {
	tier := func(i int) string {
		if i < len(c.DynamicCommissions) && len(c.DynamicCommissions[i]) > 1 {
			return c.DynamicCommissions[i][1].String()
		}
		return c.Commission.String()
	}
	switch v.c.symbol {
	case "btc":
		return v.Text("commission_string_btc", i18n.Args{
			"dynamic_commission_1": tier(3),
			"dynamic_commission_2": tier(2),
			"dynamic_commission_3": tier(1),
			"dynamic_commission_4": tier(0),
		})
	case "usdt":
		return v.Text("commission_string_usdt", i18n.Args{
			"dynamic_commission_1": tier(1),
			"dynamic_commission_2": tier(0),
		})
	default:
		return c.Commission.String() + " " + v.c.Symbol()
	}
}

func (v View) WithdrawalConfirmation(amount decimal.Decimal, address string) Response {
	return v.Ask("withdrawal_confirmation", i18n.Args{"amount": amount, "address": address})
}

func (v View) TransactionInQueue() Response {
	if v.c.symbol == "btc" {
		return v.Menu("transaction_in_queue_long", nil)
	}
	return v.Menu("transaction_in_queue", nil)
}
