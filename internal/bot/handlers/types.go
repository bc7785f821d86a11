// Package handlers holds the types shared by the bot router, its middleware chain and
// the dispatcher. Per-update values travel in the telebot context.
package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/flows"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

// Handler processes one update.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// Route is what the router matched for an update.
type Route struct {
	// Name labels logs, metrics and per-route rate limits.
	Name    string
	Handler flows.Handler
	Args    []string
	// Public routes run for Telegram users the API does not know yet.
	Public bool
	// Interrupts is set when an inline button is pressed in the middle of a wizard.
	Interrupts bool
	// Refreshes marks routes that change the sender's own profile.
	Refreshes bool
}

const (
	keyCtx   = "sky.ctx"
	keyRoute = "sky.route"
	keyUser  = "sky.user"
	keyState = "sky.state"
)

func SetRoute(c telebot.Context, r *Route) { c.Set(keyRoute, r) }

// RouteFrom returns the matched route or nil.
func RouteFrom(c telebot.Context) *Route {
	r, _ := c.Get(keyRoute).(*Route)
	return r
}

// RouteName is "unknown" when nothing matched.
func RouteName(c telebot.Context) string {
	if r := RouteFrom(c); r != nil {
		return r.Name
	}
	return "unknown"
}

func SetUser(c telebot.Context, u *api.User) { c.Set(keyUser, u) }

// UserFrom returns the resolved API user or nil.
func UserFrom(c telebot.Context) *api.User {
	u, _ := c.Get(keyUser).(*api.User)
	return u
}

func SetState(c telebot.Context, s *state.UserState) { c.Set(keyState, s) }

// StateFrom returns the session loaded by the router; nil means idle.
func StateFrom(c telebot.Context) *state.UserState {
	s, _ := c.Get(keyState).(*state.UserState)
	return s
}

// SenderID is the Telegram id of the update author, or 0.
func SenderID(c telebot.Context) int64 {
	if c == nil || c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}

func SetContext(c telebot.Context, ctx context.Context) { c.Set(keyCtx, ctx) }

// Context returns the per-update context, carrying the correlation id.
func Context(c telebot.Context) context.Context {
	if ctx, ok := c.Get(keyCtx).(context.Context); ok {
		return ctx
	}
	return context.Background()
}
