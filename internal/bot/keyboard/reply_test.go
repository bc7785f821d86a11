package keyboard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
)

func TestMainMenu(t *testing.T) {
	translator := &fakeTranslator{translations: map[string]string{
		"menu_misc.wallet":   "💼 Wallet",
		"menu_misc.exchange": "📊 Exchange {{.symbol}}",
		"menu_misc.about":    "ℹ️ About",
		"menu_misc.settings": "⚙️ Settings",
	}}

	markup := keyboard.MainMenu(translator, "btc")
	assert.True(t, markup.ResizeKeyboard)

	expected := [][]string{
		{"💼 Wallet", "📊 Exchange BTC"},
		{"ℹ️ About", "⚙️ Settings"},
	}
	require.Len(t, markup.ReplyKeyboard, len(expected))
	for i, row := range expected {
		require.Len(t, markup.ReplyKeyboard[i], len(row))
		for j, text := range row {
			assert.Equal(t, text, markup.ReplyKeyboard[i][j].Text)
		}
	}
}

func TestLabelFallsBackToName(t *testing.T) {
	translator := &fakeTranslator{translations: map[string]string{}}
	assert.Equal(t, "Sberbank", keyboard.Label(translator, "Sberbank", nil))
	assert.Equal(t, "x", keyboard.Label(nil, "x", nil))
}

func TestWithdrawOffersLastAddress(t *testing.T) {
	translator := &fakeTranslator{translations: map[string]string{"menu_misc.cancel": "❌ Cancel"}}

	markup := keyboard.Withdraw(translator, "bc1qxyz")
	require.Len(t, markup.ReplyKeyboard, 2)
	assert.Equal(t, "bc1qxyz", markup.ReplyKeyboard[0][0].Text)
	assert.Equal(t, "❌ Cancel", markup.ReplyKeyboard[1][0].Text)

	markup = keyboard.Withdraw(translator, "")
	require.Len(t, markup.ReplyKeyboard, 1)
}

func TestBrokersTwoPerRow(t *testing.T) {
	translator := &fakeTranslator{translations: map[string]string{"menu_misc.cancel": "❌ Cancel"}}

	markup := keyboard.Brokers(translator, []string{"A", "B", "C"})
	require.Len(t, markup.ReplyKeyboard, 3)
	assert.Len(t, markup.ReplyKeyboard[0], 2)
	assert.Len(t, markup.ReplyKeyboard[1], 1)
	assert.Equal(t, "❌ Cancel", markup.ReplyKeyboard[2][0].Text)
}
