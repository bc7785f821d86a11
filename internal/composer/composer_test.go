package composer_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
	"github.com/Proton-105/skyexchange-bot/pkg/config"
)

func newComposer(t *testing.T) *composer.Composer {
	t.Helper()
	manager, err := i18n.LoadFromDir("../i18n/locales", "ru")
	require.NoError(t, err)

	links := config.LinksConfig{Support: "@sky_support"}
	kb := keyboard.NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)), "btc", links)
	return composer.New(manager, kb, "BTC", "Bitcoin", links)
}

func TestMediaKind(t *testing.T) {
	assert.Equal(t, composer.KindDocument, composer.Media("https://cdn.example/agreement.PDF", "").Kind)
	assert.Equal(t, composer.KindPhoto, composer.Media("https://cdn.example/qr.png", "scan me").Kind)
	assert.Equal(t, "scan me", composer.Media("https://cdn.example/qr.png", "scan me").Caption)
}

func TestResponseEmptyAndEditing(t *testing.T) {
	assert.True(t, composer.Response{}.Empty())
	assert.False(t, composer.Response{Text: "hi"}.Empty())
	assert.False(t, composer.Response{Attachment: &composer.Attachment{Kind: composer.KindPhoto}}.Empty())

	r := composer.Response{Text: "hi"}
	edited := r.Editing()
	assert.True(t, edited.Edit)
	assert.False(t, r.Edit, "Editing returns a copy")
}

func TestTextInjectsDeploymentArgs(t *testing.T) {
	c := newComposer(t)
	v := c.For("en")

	text := v.Text("promocode_deleted", nil)
	assert.Equal(t, "Promo code deleted.", text)

	deleted := v.Text("deal_canceled", i18n.Args{"deal_identificator": "abc"})
	assert.Contains(t, deleted, "/dabc")

	assert.Equal(t, "BTC", c.Symbol())
	assert.Equal(t, "btc", c.Coin())
}

func TestUnknownLanguageFallsBack(t *testing.T) {
	c := newComposer(t)
	assert.Equal(t, c.For("ru").Text("some_error", nil), c.For("xx").Text("some_error", nil))
}

func TestPromptCarriesCancelKeyboard(t *testing.T) {
	c := newComposer(t)
	v := c.For("en")

	r := v.Prompt("choose_count", nil)
	require.NotNil(t, r.Markup)
	require.Len(t, r.Markup.ReplyKeyboard, 1)
	assert.Equal(t, v.Label("cancel"), r.Markup.ReplyKeyboard[0][0].Text)

	menu := v.Menu("promocode_deleted", nil)
	require.NotNil(t, menu.Markup)
	assert.Len(t, menu.Markup.ReplyKeyboard, 2)
}

func TestErrorKeepsWizardKeyboard(t *testing.T) {
	v := newComposer(t).For("en")

	inWizard := v.Error(true)
	assert.Equal(t, v.Label("cancel"), inWizard.Markup.ReplyKeyboard[0][0].Text)

	idle := v.Error(false)
	assert.Equal(t, v.MainMenu().ReplyKeyboard, idle.Markup.ReplyKeyboard)
}

func TestPromocodeCreatedSendsBareCode(t *testing.T) {
	v := newComposer(t).For("en")
	u := api.User{Currency: "rub"}
	p := api.Promocode{Code: "SKY42", Count: 3, Amount: decimal.RequireFromString("0.001")}

	rs := v.PromocodeCreated(u, p, decimal.NewFromInt(100))
	require.Len(t, rs, 2)
	assert.Contains(t, rs[0].Text, "0.00100000 BTC")
	assert.Contains(t, rs[0].Text, "100.00 RUB")
	assert.Equal(t, "<b>SKY42</b>", rs[1].Text)
	assert.Nil(t, rs[1].Markup)
}

func TestMark(t *testing.T) {
	assert.Equal(t, "✅", composer.Mark(true))
	assert.Equal(t, "❌", composer.Mark(false))
}

func TestFailure(t *testing.T) {
	v := newComposer(t).For("ru")

	assert.Equal(t, v.SomeError().Text, v.Failure("").Text)
	assert.Equal(t, v.Menu("service_unavailable", nil).Text, v.Failure("misc.service_unavailable").Text)

	r := v.Failure("Lot is <b>paused</b>")
	assert.Equal(t, "Lot is &lt;b&gt;paused&lt;/b&gt;", r.Text)
	assert.NotNil(t, r.Markup)
}
