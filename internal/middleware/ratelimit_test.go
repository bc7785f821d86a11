package middleware

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/bot/handlers"
	"github.com/Proton-105/skyexchange-bot/internal/guard"
	"github.com/Proton-105/skyexchange-bot/internal/ratelimit"
	"github.com/Proton-105/skyexchange-bot/pkg/config"
)

type updateContext struct {
	telebot.Context
	sender    *telebot.User
	cb        *telebot.Callback
	store     map[string]interface{}
	responded int
}

func newUpdate(tg int64, route string) *updateContext {
	c := &updateContext{sender: &telebot.User{ID: tg}, store: map[string]interface{}{}}
	handlers.SetRoute(c, &handlers.Route{Name: route})
	return c
}

func (c *updateContext) Sender() *telebot.User         { return c.sender }
func (c *updateContext) Callback() *telebot.Callback   { return c.cb }
func (c *updateContext) Get(key string) interface{}    { return c.store[key] }
func (c *updateContext) Set(key string, v interface{}) { c.store[key] = v }

func (c *updateContext) Respond(...*telebot.CallbackResponse) error {
	c.responded++
	return nil
}

type alert struct {
	chatID int64
	text   string
}

type recordingAlerter struct {
	sent []alert
}

func (a *recordingAlerter) Text(_ context.Context, chatID int64, text string) error {
	a.sent = append(a.sent, alert{chatID: chatID, text: text})
	return nil
}

type rateLimitHarness struct {
	mw      *RateLimitMiddleware
	alerter *recordingAlerter
	handled int
}

// newRateLimitHarness allows one update per minute per route and alerts after two
// throttled updates in a row.
func newRateLimitHarness(t *testing.T, cfg config.RateLimitConfig) *rateLimitHarness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &rateLimitHarness{alerter: &recordingAlerter{}}
	h.mw = NewRateLimitMiddleware(
		ratelimit.NewRedisLimiter(client, "btc", log),
		ratelimit.NewRules(cfg),
		guard.New(client, config.GuardConfig{SpamThreshold: 2}, log),
		h.alerter,
		[]int64{900, 901},
		func(tg int64, threshold int) string { return fmt.Sprintf("%d sent %d throttled updates", tg, threshold) },
		log,
	)
	return h
}

func (h *rateLimitHarness) send(t *testing.T, c *updateContext) {
	t.Helper()
	err := h.mw.Handle(func(telebot.Context) error {
		h.handled++
		return nil
	})(c)
	require.NoError(t, err)
}

func perMinute() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled: true,
		PerUser: config.RateLimitRule{Limit: 1, Window: "1m"},
	}
}

func TestRateLimitDropsThrottledUpdate(t *testing.T) {
	h := newRateLimitHarness(t, perMinute())

	h.send(t, newUpdate(1, "wallet"))
	assert.Equal(t, 1, h.handled)

	h.send(t, newUpdate(1, "wallet"))
	assert.Equal(t, 1, h.handled, "second update in the window is dropped")

	cb := newUpdate(1, "wallet")
	cb.cb = &telebot.Callback{Data: "x"}
	h.send(t, cb)
	assert.Equal(t, 1, h.handled)
	assert.Equal(t, 1, cb.responded, "throttled callback is still answered")

	h.send(t, newUpdate(2, "wallet"))
	assert.Equal(t, 2, h.handled, "other users keep their own budget")
	assert.Empty(t, h.alerter.sent)
}

func TestRateLimitAlertsAdminsPastThreshold(t *testing.T) {
	h := newRateLimitHarness(t, perMinute())

	h.send(t, newUpdate(1, "wallet"))
	h.send(t, newUpdate(1, "wallet"))
	h.send(t, newUpdate(1, "wallet"))
	assert.Empty(t, h.alerter.sent)

	h.send(t, newUpdate(1, "wallet"))
	require.Len(t, h.alerter.sent, 2)
	assert.Equal(t, alert{chatID: 900, text: "1 sent 2 throttled updates"}, h.alerter.sent[0])
	assert.Equal(t, int64(901), h.alerter.sent[1].chatID)
	assert.Equal(t, 1, h.handled)
}

func TestRateLimitPassResetsSpamCounter(t *testing.T) {
	h := newRateLimitHarness(t, perMinute())

	h.send(t, newUpdate(1, "wallet"))
	h.send(t, newUpdate(1, "wallet"))
	h.send(t, newUpdate(1, "wallet"))

	// an update on another route gets through and clears the count
	h.send(t, newUpdate(1, "menu"))
	assert.Equal(t, 2, h.handled)

	h.send(t, newUpdate(1, "wallet"))
	h.send(t, newUpdate(1, "wallet"))
	assert.Empty(t, h.alerter.sent)

	h.send(t, newUpdate(1, "wallet"))
	assert.Len(t, h.alerter.sent, 2)
}

func TestRateLimitSkipsWhitelistAndDisabled(t *testing.T) {
	cfg := perMinute()
	cfg.Whitelist = []int64{1}
	h := newRateLimitHarness(t, cfg)
	for i := 0; i < 3; i++ {
		h.send(t, newUpdate(1, "wallet"))
	}
	assert.Equal(t, 3, h.handled)

	cfg = perMinute()
	cfg.Enabled = false
	h = newRateLimitHarness(t, cfg)
	for i := 0; i < 3; i++ {
		h.send(t, newUpdate(2, "wallet"))
	}
	assert.Equal(t, 3, h.handled)
}
