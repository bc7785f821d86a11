package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	apperrors "github.com/Proton-105/skyexchange-bot/internal/errors"
	"github.com/Proton-105/skyexchange-bot/internal/flows"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
	"github.com/Proton-105/skyexchange-bot/internal/state"
	"github.com/Proton-105/skyexchange-bot/pkg/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestComposer(t *testing.T) *composer.Composer {
	t.Helper()
	manager, err := i18n.LoadFromDir("../i18n/locales", "ru")
	require.NoError(t, err)

	links := config.LinksConfig{Support: "@sky_support"}
	return composer.New(manager, keyboard.NewBuilder(discardLogger(), "btc", links), "BTC", "Bitcoin", links)
}

// withFailureHandling installs the outer part of the production chain.
func withFailureHandling(t *testing.T, h *harness) *composer.Composer {
	t.Helper()
	comp := newTestComposer(t)
	errHandler := apperrors.NewHandler(discardLogger(), false)
	h.router.Use(RecoveryMiddleware(discardLogger(), errHandler, comp, h.fsm))
	h.router.Use(ErrorHandlingMiddleware(errHandler, comp, h.fsm, discardLogger()))
	return comp
}

type stubUsers struct {
	order *[]string
	users map[int64]*api.User
}

func (s stubUsers) GetUserByTelegram(_ context.Context, tg int64) (*api.User, error) {
	*s.order = append(*s.order, "resolve")
	if u, ok := s.users[tg]; ok {
		return u, nil
	}
	return nil, &api.StatusError{Method: http.MethodGet, Path: "/users", Status: http.StatusNotFound}
}

type stubBans struct {
	order  *[]string
	banned map[int64]bool
}

func (s stubBans) IsBanned(_ context.Context, tg int64) (bool, error) {
	*s.order = append(*s.order, "ban")
	return s.banned[tg], nil
}

func TestHandlerErrorResetsSession(t *testing.T) {
	h := newHarness(t)
	comp := withFailureHandling(t, h)
	h.router.RegisterStateHandler(state.StateWriteMessage, func(context.Context, flows.Input) (flows.Result, error) {
		return flows.Result{}, errors.New("exchange is down")
	})
	h.enterWizard(t, 7)

	ctx := textUpdate(7, "hello")
	require.NoError(t, h.router.Route(ctx))

	assert.Equal(t, state.StateIdle, h.current(t, 7))
	assert.Equal(t, []interface{}{comp.For("").SomeError().Text}, ctx.sent)
}

func TestHandlerPanicResetsSession(t *testing.T) {
	h := newHarness(t)
	comp := withFailureHandling(t, h)
	h.router.RegisterStateHandler(state.StateWriteMessage, func(context.Context, flows.Input) (flows.Result, error) {
		panic("nil map")
	})
	h.enterWizard(t, 7)

	ctx := textUpdate(7, "hello")
	require.NoError(t, h.router.Route(ctx))

	assert.Equal(t, state.StateIdle, h.current(t, 7))
	assert.Equal(t, []interface{}{comp.For("").SomeError().Text}, ctx.sent)
}

func TestRejectionDetailIsShown(t *testing.T) {
	h := newHarness(t)
	withFailureHandling(t, h)
	h.router.RegisterCommand("pause", `^/pause$`, func(context.Context, flows.Input) (flows.Result, error) {
		return flows.Result{}, apperrors.NewRejectionError("Lot <b>paused</b>", nil)
	}, nil)

	ctx := textUpdate(7, "/pause")
	require.NoError(t, h.router.Route(ctx))

	assert.Equal(t, []interface{}{"Lot &lt;b&gt;paused&lt;/b&gt;"}, ctx.sent)
}

func TestStateLoadFailureGoesThroughChain(t *testing.T) {
	h := newHarness(t)
	comp := withFailureHandling(t, h)
	h.redis.SetError("LOADING redis is loading the dataset")

	ctx := textUpdate(7, "/menu")
	require.NoError(t, h.router.Route(ctx))

	assert.Empty(t, h.calls)
	assert.Equal(t, []interface{}{comp.For("").SomeError().Text}, ctx.sent)
}

func TestInvalidTransitionIsRejected(t *testing.T) {
	h := newHarness(t)
	h.router.RegisterCommand("jump", `^/jump$`, h.record("jump", flows.Result{
		Outcome: flows.Advance,
		Next:    state.StateNewLotLimits,
		Replies: []composer.Response{{Text: "limits?"}},
	}), nil)

	ctx := textUpdate(7, "/jump")
	err := h.router.Route(ctx)

	require.ErrorIs(t, err, state.ErrInvalidTransition)
	assert.Equal(t, state.StateIdle, h.current(t, 7))
	assert.Empty(t, ctx.sent)
}

func TestUserChainResolvesBeforeBanCheck(t *testing.T) {
	h := newHarness(t)
	var order []string
	users := stubUsers{order: &order, users: map[int64]*api.User{8: {ID: 80, TelegramID: 8}}}
	bans := stubBans{order: &order, banned: map[int64]bool{9: true}}
	for _, mw := range userChain(users, h.record("start", flows.Result{}), bans, nil, nil, discardLogger()) {
		h.router.Use(mw)
	}

	// unknown and banned: redirected to start by resolution, then dropped
	ctx := textUpdate(9, "/menu")
	require.NoError(t, h.router.Route(ctx))
	assert.Equal(t, []string{"resolve", "ban"}, order)
	assert.Empty(t, h.calls)
	assert.Empty(t, ctx.sent)

	order = nil
	require.NoError(t, h.router.Route(textUpdate(8, "/menu")))
	assert.Equal(t, []string{"resolve", "ban"}, order)
	got := h.last(t)
	assert.Equal(t, "menu", got.name)
	require.NotNil(t, got.in.User)
	assert.Equal(t, int64(80), got.in.User.ID)
}
