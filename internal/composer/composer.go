// Package composer turns domain data into localized replies: a text, an optional keyboard
// and an optional attachment.
package composer

import (
	"html"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
	"github.com/Proton-105/skyexchange-bot/pkg/config"
)

// Attachment kinds.
const (
	KindDocument = "document"
	KindPhoto    = "photo"
)

// Attachment is a file sent before the text of a Response. Either URL or Content is set.
type Attachment struct {
	Kind    string
	Name    string
	URL     string
	Content []byte
	Caption string
}

// Media picks the attachment kind for a hosted file: PDFs go out as documents, the rest as photos.
func Media(url, caption string) *Attachment {
	kind := KindPhoto
	if strings.HasSuffix(strings.ToLower(url), "pdf") {
		kind = KindDocument
	}
	return &Attachment{Kind: kind, URL: url, Caption: caption}
}

// Response is one outgoing message.
type Response struct {
	Text       string
	Markup     *telebot.ReplyMarkup
	Attachment *Attachment
	// Edit asks the transport to replace the message a callback came from instead of sending a new one.
	Edit bool
}

// Empty reports whether there is nothing to send.
func (r Response) Empty() bool {
	return r.Text == "" && r.Attachment == nil && r.Markup == nil
}

// Editing returns a copy of r marked for in-place editing.
func (r Response) Editing() Response {
	r.Edit = true
	return r
}

var verifyMark = map[bool]string{true: "✅", false: "❌"}

// Mark renders a boolean as a check or a cross.
func Mark(v bool) string {
	return verifyMark[v]
}

// Composer renders replies for one deployment.
type Composer struct {
	i18n     *i18n.Manager
	kb       *keyboard.Builder
	symbol   string
	coinName string
	links    config.LinksConfig
}

func New(manager *i18n.Manager, kb *keyboard.Builder, symbol, coinName string, links config.LinksConfig) *Composer {
	return &Composer{
		i18n:     manager,
		kb:       kb,
		symbol:   strings.ToLower(symbol),
		coinName: coinName,
		links:    links,
	}
}

// Symbol returns the deployment coin in upper case.
func (c *Composer) Symbol() string {
	return strings.ToUpper(c.symbol)
}

// Coin returns the deployment coin in lower case, as the API spells it.
func (c *Composer) Coin() string {
	return c.symbol
}

// Links exposes the configured public links.
func (c *Composer) Links() config.LinksConfig {
	return c.links
}

// Labels exposes the translation catalog for reply label matching.
func (c *Composer) Labels() *i18n.Manager {
	return c.i18n
}

// Keyboard returns the keyboard builder.
func (c *Composer) Keyboard() *keyboard.Builder {
	return c.kb
}

// Raw wraps preformatted text, used for admin output that is not localized.
func (c *Composer) Raw(text string, markup *telebot.ReplyMarkup) Response {
	return Response{Text: text, Markup: markup}
}

// For binds the composer to a language.
func (c *Composer) For(lang string) View {
	return View{T: c.i18n.Translator(lang), KB: c.kb, c: c}
}

// View renders replies in one language.
type View struct {
	T  i18n.Translator
	KB *keyboard.Builder
	c  *Composer
}

// Text renders misc.key. symbol, coin_name and support are always available to the template.
func (v View) Text(key string, args i18n.Args) string {
	full := i18n.Args{
		"symbol":    v.c.Symbol(),
		"coin_name": strings.ToUpper(v.c.coinName),
		"support":   v.c.links.Support,
	}
	for k, val := range args {
		full[k] = val
	}
	return strings.ReplaceAll(v.T.Render("misc."+key, full), "\t", "  ")
}

// Label renders a button caption.
func (v View) Label(name string) string {
	return keyboard.Label(v.T, name, i18n.Args{"symbol": v.c.Symbol()})
}

// MainMenu is the idle reply keyboard.
func (v View) MainMenu() *telebot.ReplyMarkup {
	return v.KB.MainMenu(v.T)
}

// Notice is text without a keyboard.
func (v View) Notice(key string, args i18n.Args) Response {
	return Response{Text: v.Text(key, args)}
}

// Menu is text followed by the main menu.
func (v View) Menu(key string, args i18n.Args) Response {
	return Response{Text: v.Text(key, args), Markup: v.MainMenu()}
}

// WizardTimeout tells the user an unanswered wizard was dropped.
func (v View) WizardTimeout() Response {
	return v.Menu("wizard_timeout", nil)
}

// Prompt is text with the cancel keyboard, used by wizard steps.
func (v View) Prompt(key string, args i18n.Args) Response {
	return Response{Text: v.Text(key, args), Markup: keyboard.Cancel(v.T)}
}

// Ask is text with a yes/no keyboard.
func (v View) Ask(key string, args i18n.Args) Response {
	return Response{Text: v.Text(key, args), Markup: keyboard.YesNo(v.T)}
}

// With is text with an explicit keyboard.
func (v View) With(key string, args i18n.Args, markup *telebot.ReplyMarkup) Response {
	return Response{Text: v.Text(key, args), Markup: markup}
}

// Error is the generic failure reply. Inside a wizard it keeps the cancel keyboard.
func (v View) Error(inWizard bool) Response {
	if inWizard {
		return v.Prompt("error", nil)
	}
	return v.Menu("error", nil)
}

// SomeError is sent when a handler fails unexpectedly.
func (v View) SomeError() Response {
	return v.Menu("some_error", nil)
}

// Failure answers a failed update. message is either a misc.* key or a rejection detail
// from the exchange, which is shown as is.
func (v View) Failure(message string) Response {
	if message == "" {
		return v.SomeError()
	}
	if key, ok := strings.CutPrefix(message, "misc."); ok {
		return v.Menu(key, nil)
	}
	return Response{Text: html.EscapeString(message), Markup: v.MainMenu()}
}
