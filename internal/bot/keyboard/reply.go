package keyboard

import (
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/i18n"
)

// Label resolves a button caption from the menu_misc namespace. Unknown names are
// used as the caption verbatim so that broker names and raw values pass through.
func Label(t i18n.Translator, name string, args i18n.Args) string {
	if t == nil {
		return name
	}
	key := "menu_misc." + name
	text := t.Render(key, args)
	if text == key || strings.TrimSpace(text) == "" {
		return name
	}
	return text
}

func replyMarkup(rows ...[]string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([][]telebot.ReplyButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]telebot.ReplyButton, len(row))
		for i, text := range row {
			buttons[i] = telebot.ReplyButton{Text: text}
		}
		keyboard = append(keyboard, buttons)
	}
	markup.ReplyKeyboard = keyboard
	return markup
}

// MainMenu builds the localized reply keyboard shown when no flow is running.
func MainMenu(t i18n.Translator, symbol string) *telebot.ReplyMarkup {
	args := i18n.Args{"symbol": strings.ToUpper(symbol)}
	return replyMarkup(
		[]string{Label(t, "wallet", nil), Label(t, "exchange", args)},
		[]string{Label(t, "about", nil), Label(t, "settings", nil)},
	)
}

// ConfirmPolicy builds the single "accept" button shown after /start.
func ConfirmPolicy(t i18n.Translator) *telebot.ReplyMarkup {
	return replyMarkup([]string{Label(t, "confirm_policy", nil)})
}

// Cancel builds the keyboard shown inside every wizard step.
func Cancel(t i18n.Translator) *telebot.ReplyMarkup {
	return replyMarkup([]string{Label(t, "cancel", nil)})
}

// YesNo builds a one-time confirmation keyboard.
func YesNo(t i18n.Translator) *telebot.ReplyMarkup {
	markup := replyMarkup([]string{Label(t, "yes", nil), Label(t, "no", nil)})
	markup.OneTimeKeyboard = true
	return markup
}

// Withdraw offers the last used address when there is one.
func Withdraw(t i18n.Translator, lastAddress string) *telebot.ReplyMarkup {
	if lastAddress == "" {
		return Cancel(t)
	}
	return replyMarkup([]string{lastAddress}, []string{Label(t, "cancel", nil)})
}

// LotTypes lets the user pick which side of the market a new lot is on.
func LotTypes(t i18n.Translator, symbol string) *telebot.ReplyMarkup {
	args := i18n.Args{"symbol": strings.ToUpper(symbol)}
	return replyMarkup(
		[]string{Label(t, "you_wanna_sell", args)},
		[]string{Label(t, "you_wanna_buy", args)},
		[]string{Label(t, "cancel", nil)},
	)
}

// Brokers lists broker names two per row.
func Brokers(t i18n.Translator, names []string) *telebot.ReplyMarkup {
	rows := make([][]string, 0, len(names)/2+2)
	for i := 0; i < len(names); i += 2 {
		end := i + 2
		if end > len(names) {
			end = len(names)
		}
		rows = append(rows, names[i:end])
	}
	rows = append(rows, []string{Label(t, "cancel", nil)})
	return replyMarkup(rows...)
}

// Requisites suggests the most recent requisite.
func Requisites(t i18n.Translator, last []string) *telebot.ReplyMarkup {
	if len(last) == 0 || last[0] == "" {
		return Cancel(t)
	}
	return replyMarkup([]string{last[0]}, []string{Label(t, "cancel", nil)})
}

// Remove hides any reply keyboard.
func Remove() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{RemoveKeyboard: true}
}
