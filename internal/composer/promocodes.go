package composer

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
)

func (v View) Promocodes(u api.User, active int) Response {
	return v.With("promocodes", i18n.Args{"currency": strings.ToUpper(u.Currency)}, v.KB.Promocodes(v.T, active))
}

// CreatePromocode shows the balance and asks which denomination the code uses.
func (v View) CreatePromocode(u api.User, w api.Wallet) Response {
	return v.With("create_promocode", i18n.Args{
		"currency":         strings.ToUpper(u.Currency),
		"balance_units":    w.Balance,
		"balance_currency": w.BalanceCurrency.StringFixed(2),
	}, v.KB.CreatePromocode(v.T, u.Currency)).Editing()
}

// NotEnoughForPromocode keeps the cancel keyboard when raised inside the wizard.
func (v View) NotEnoughForPromocode(inWizard bool) Response {
	if inWizard {
		return v.Prompt("not_enoung_funds_promocode", nil)
	}
	return v.Menu("not_enoung_funds_promocode", nil)
}

func (v View) ChooseCount(wrong bool) Response {
	if wrong {
		return v.Prompt("wrong_count", nil)
	}
	return v.Prompt("choose_count", nil)
}

// ChoosePromocodeAmount asks for the per-activation amount in the chosen denomination.
func (v View) ChoosePromocodeAmount(u api.User, kind string) Response {
	unit := v.c.Symbol()
	if kind == keyboard.PromoFiat {
		unit = strings.ToUpper(u.Currency)
	}
	return v.Prompt("choose_amount", i18n.Args{"t": unit})
}

func (v View) WrongAmount() Response {
	return v.Prompt("wrong_amount", nil)
}

// PromocodeCreated confirms creation and then sends the bare code so it is easy to copy.
func (v View) PromocodeCreated(u api.User, p api.Promocode, currencyAmount decimal.Decimal) []Response {
	return []Response{
		v.Menu("promocode_created", i18n.Args{
			"code":            p.Code,
			"count":           p.Count,
			"amount":          p.Amount.StringFixed(8),
			"currency_amount": currencyAmount.StringFixed(2),
			"currency":        strings.ToUpper(u.Currency),
		}),
		{Text: "<b>" + p.Code + "</b>"},
	}
}

func (v View) PromocodeActivated(amount decimal.Decimal, owner string) Response {
	return v.Menu("promocode_activated", i18n.Args{"amount": amount.StringFixed(8), "nickname": owner})
}

func (v View) PromocodeActivatedBy(activator, code string, amount decimal.Decimal) Response {
	return v.Menu("promocode_activated_by", i18n.Args{
		"nickname": activator,
		"amount":   amount.StringFixed(8),
		"code":     code,
	})
}

// Promocode renders one active code with a delete button, followed by the bare code.
func (v View) Promocode(p api.Promocode) []Response {
	return []Response{
		v.With("promocode", i18n.Args{
			"amount":      p.Amount.StringFixed(8),
			"count":       p.Count,
			"code":        p.Code,
			"activations": p.Activations,
		}, v.KB.DeletePromocode(v.T, p.ID)),
		{Text: "<b>" + p.Code + "</b>"},
	}
}
