package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/bot/handlers"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/flows"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

// fakeContext implements the part of telebot.Context the pipeline touches.
type fakeContext struct {
	telebot.Context
	sender    *telebot.User
	msg       *telebot.Message
	cb        *telebot.Callback
	store     map[string]interface{}
	sent      []interface{}
	edited    []interface{}
	responded int
}

func textUpdate(tg int64, text string) *fakeContext {
	return &fakeContext{
		sender: &telebot.User{ID: tg, Username: "tester"},
		msg:    &telebot.Message{Text: text},
		store:  map[string]interface{}{},
	}
}

func callbackUpdate(tg int64, data string) *fakeContext {
	return &fakeContext{
		sender: &telebot.User{ID: tg},
		cb:     &telebot.Callback{Data: data, Message: &telebot.Message{Text: "card"}},
		store:  map[string]interface{}{},
	}
}

func (c *fakeContext) Sender() *telebot.User       { return c.sender }
func (c *fakeContext) Callback() *telebot.Callback { return c.cb }

func (c *fakeContext) Message() *telebot.Message {
	if c.cb != nil {
		return c.cb.Message
	}
	return c.msg
}

func (c *fakeContext) Text() string {
	if m := c.Message(); m != nil {
		return m.Text
	}
	return ""
}

func (c *fakeContext) Send(what interface{}, _ ...interface{}) error {
	c.sent = append(c.sent, what)
	return nil
}

func (c *fakeContext) Edit(what interface{}, _ ...interface{}) error {
	c.edited = append(c.edited, what)
	return nil
}

func (c *fakeContext) Respond(...*telebot.CallbackResponse) error {
	c.responded++
	return nil
}

func (c *fakeContext) Get(key string) interface{}        { return c.store[key] }
func (c *fakeContext) Set(key string, val interface{}) { c.store[key] = val }

type labels map[string]string

func (l labels) IsLabel(name, text string) bool { return l[name] == text }

// call records what a handler saw.
type call struct {
	name string
	in   flows.Input
}

type harness struct {
	router *Router
	fsm    state.StateMachine
	redis  *miniredis.Miniredis
	calls  []call
}

func (h *harness) record(name string, res flows.Result) flows.Handler {
	return func(_ context.Context, in flows.Input) (flows.Result, error) {
		h.calls = append(h.calls, call{name: name, in: in})
		return res, nil
	}
}

func (h *harness) last(t *testing.T) call {
	t.Helper()
	require.NotEmpty(t, h.calls)
	return h.calls[len(h.calls)-1]
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	fsm := state.NewStateMachine(state.NewRedisStorage(client, "btc", time.Hour, log), log, client, "btc")

	h := &harness{fsm: fsm, redis: mr}
	r := NewRouter(fsm, labels{"cancel": "Cancel", "wallet": "Wallet"}, NewDispatcher(fsm, nil, nil, log), log)
	r.SetSpecial(
		h.record("start", flows.Result{}),
		h.record("cancel", flows.Result{Outcome: flows.Reset, Replies: []composer.Response{{Text: "canceled"}}}),
		h.record("forward", flows.Result{}),
		h.record("unknown", flows.Result{Outcome: flows.Reset}),
	)
	r.RegisterLabel("wallet", h.record("wallet", flows.Result{}))
	r.RegisterCommand("menu", `^/menu$`, h.record("menu", flows.Result{}), nil)
	r.RegisterCommand("write", `^/write$`, h.record("write", flows.Result{
		Outcome: flows.Advance,
		Next:    state.StateWriteMessage,
		Data:    map[string]interface{}{"receiver": 5},
	}), nil)
	r.RegisterCommand("change_balance", `^/add(b|bm|f) ([a-zA-Z0-9]+) ([0-9,.-]+)$`, h.record("change_balance", flows.Result{}), nil)
	r.RegisterCommand("monthly_report", `^/r([dpleutfcm])_([0-9]+)_([0-9]+)$`, h.record("monthly_report", flows.Result{}), func(m []string) ([]string, bool) {
		kind, ok := flows.ReportType("r" + m[1])
		if !ok {
			return nil, false
		}
		return []string{kind, m[2], m[3]}, true
	})
	r.RegisterCallback(keyboard.CbLot, h.record("lot", flows.Result{
		Replies: []composer.Response{composer.Response{Text: "lot card"}.Editing()},
	}))
	r.RegisterStateHandler(state.StateWriteMessage, h.record("send_message", flows.Result{Outcome: flows.Reset}))
	h.router = r
	return h
}

func (h *harness) enterWizard(t *testing.T, tg int64) {
	t.Helper()
	require.NoError(t, h.fsm.SetState(context.Background(), tg, state.StateWriteMessage, map[string]interface{}{"receiver": 5}))
}

func (h *harness) current(t *testing.T, tg int64) state.State {
	t.Helper()
	st, err := h.fsm.GetState(context.Background(), tg)
	if errors.Is(err, state.ErrStateNotFound) {
		return state.StateIdle
	}
	require.NoError(t, err)
	return st.Current()
}

func TestStartWorksInsideWizard(t *testing.T) {
	h := newHarness(t)
	h.enterWizard(t, 7)

	require.NoError(t, h.router.Route(textUpdate(7, "/start ref42")))

	got := h.last(t)
	assert.Equal(t, "start", got.name)
	assert.Equal(t, []string{"ref42"}, got.in.Args)
	assert.Equal(t, int64(7), got.in.TelegramID)
}

func TestWizardCapturesCommandsAndLabels(t *testing.T) {
	h := newHarness(t)
	h.enterWizard(t, 7)

	require.NoError(t, h.router.Route(textUpdate(7, "Wallet")))

	got := h.last(t)
	assert.Equal(t, "send_message", got.name)
	assert.Equal(t, "Wallet", got.in.Text)
	assert.Equal(t, int64(5), got.in.State.Int64("receiver"))
	assert.Equal(t, state.StateIdle, h.current(t, 7))
}

func TestCancelIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.enterWizard(t, 7)

	for i := 0; i < 2; i++ {
		ctx := textUpdate(7, "Cancel")
		require.NoError(t, h.router.Route(ctx))
		assert.Equal(t, []interface{}{"canceled"}, ctx.sent)
		assert.Equal(t, state.StateIdle, h.current(t, 7))
	}
	assert.Len(t, h.calls, 2)
	assert.Equal(t, state.StateWriteMessage, h.calls[0].in.State.Current())
	assert.Equal(t, state.StateIdle, h.calls[1].in.State.Current())
}

func TestCallbackInterruptsWizard(t *testing.T) {
	h := newHarness(t)
	h.enterWizard(t, 7)

	ctx := callbackUpdate(7, "lot:abc123")
	require.NoError(t, h.router.Route(ctx))

	got := h.last(t)
	assert.Equal(t, "lot", got.name)
	assert.Equal(t, []string{"abc123"}, got.in.Args)
	assert.Nil(t, got.in.State)
	assert.Empty(t, got.in.Text)
	assert.Equal(t, state.StateIdle, h.current(t, 7))
	assert.Equal(t, 1, ctx.responded)
	assert.Equal(t, []interface{}{"lot card"}, ctx.edited)
	assert.Empty(t, ctx.sent)
}

func TestUnknownCallbackIsAnswered(t *testing.T) {
	h := newHarness(t)

	ctx := callbackUpdate(7, "nothing:here")
	require.NoError(t, h.router.Route(ctx))

	assert.Empty(t, h.calls)
	assert.Equal(t, 1, ctx.responded)
}

func TestAdvanceStoresSession(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.router.Route(textUpdate(7, "/write")))

	st, err := h.fsm.GetState(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, state.StateWriteMessage, st.Current())
	assert.Equal(t, int64(5), st.Int64("receiver"))
}

func TestCommandArguments(t *testing.T) {
	tests := []struct {
		text string
		name string
		args []string
	}{
		{text: "/addbm alice -1,5", name: "change_balance", args: []string{"bm", "alice", "-1,5"}},
		{text: "/rd_2024_3", name: "monthly_report", args: []string{"deals", "2024", "3"}},
		{text: "/rc_2024_3", name: "unknown"},
		{text: "/menu", name: "menu", args: []string{}},
		{text: "hello", name: "unknown"},
		{text: "Wallet", name: "wallet"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.router.Route(textUpdate(7, tt.text)))

			got := h.last(t)
			assert.Equal(t, tt.name, got.name)
			if tt.args != nil {
				assert.Equal(t, tt.args, got.in.Args)
			}
		})
	}
}

func TestForwardShowsAuthor(t *testing.T) {
	h := newHarness(t)
	ctx := textUpdate(7, "some forwarded text")
	ctx.msg.OriginalSender = &telebot.User{ID: 42}

	require.NoError(t, h.router.Route(ctx))

	got := h.last(t)
	assert.Equal(t, "forward", got.name)
	assert.Equal(t, []string{"42"}, got.in.Args)
}

func TestEmptyMessageIsIgnored(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.router.Route(textUpdate(7, "")))
	assert.Empty(t, h.calls)
}

func TestMiddlewaresRunInOrder(t *testing.T) {
	h := newHarness(t)
	var order []string
	for _, name := range []string{"outer", "inner"} {
		name := name
		h.router.Use(func(next handlers.Handler) handlers.Handler {
			return func(c telebot.Context) error {
				order = append(order, name)
				return next(c)
			}
		})
	}

	require.NoError(t, h.router.Route(textUpdate(7, "/menu")))
	assert.Equal(t, []string{"outer", "inner"}, order)
}
