package flows

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/i18n"
	"github.com/Proton-105/skyexchange-bot/internal/state"
	"github.com/Proton-105/skyexchange-bot/pkg/config"
)

var errNotFound = errors.New("not found")

// fakeAPI implements the calls the tests reach. Anything else panics through the nil embed.
type fakeAPI struct {
	API

	users    map[int64]*api.User
	infos    map[string]*api.UserInfo
	wallets  map[int64]*api.Wallet
	lots     map[string]*api.Lot
	settings api.Settings
	rate     decimal.Decimal
	exists   bool

	msgBans map[[2]int64]bool

	sendErr   error
	sent      []api.SendTransactionRequest
	deals     []api.NewDeal
	updates   []api.UserUpdate
	newUsers  [][2]string
	changes   []decimal.Decimal
	allReport api.Report
	reportArg [3]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		users:   map[int64]*api.User{},
		infos:   map[string]*api.UserInfo{},
		wallets: map[int64]*api.Wallet{},
		lots:    map[string]*api.Lot{},
		msgBans: map[[2]int64]bool{},
		settings: api.Settings{
			MinTxAmount: decimal.RequireFromString("0.001"),
			Commission:  decimal.RequireFromString("0.0005"),
			DisputeTime: 5,
		},
		rate: decimal.NewFromInt(100),
	}
}

func (a *fakeAPI) GetUser(_ context.Context, id int64) (*api.User, error) {
	if u, ok := a.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, errNotFound
}

func (a *fakeAPI) GetUserByTelegram(_ context.Context, tg int64) (*api.User, error) {
	for _, u := range a.users {
		if u.TelegramID == tg {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errNotFound
}

func (a *fakeAPI) UserExists(context.Context, int64) (bool, error) { return a.exists, nil }

func (a *fakeAPI) NewUser(_ context.Context, tg int64, campaign, ref string) (*api.User, error) {
	a.newUsers = append(a.newUsers, [2]string{campaign, ref})
	u := &api.User{ID: 100, TelegramID: tg, Lang: "ru", Nickname: "fresh"}
	a.users[u.ID] = u
	return u, nil
}

func (a *fakeAPI) NicknameExists(_ context.Context, nickname string) (bool, error) {
	_, ok := a.infos[nickname]
	return ok, nil
}

func (a *fakeAPI) GetUserInfo(_ context.Context, nickname string) (*api.UserInfo, error) {
	if info, ok := a.infos[nickname]; ok {
		return info, nil
	}
	return nil, errNotFound
}

func (a *fakeAPI) UpdateUser(_ context.Context, upd api.UserUpdate) error {
	a.updates = append(a.updates, upd)
	return nil
}

func (a *fakeAPI) UserMessagesBanned(_ context.Context, userID, targetID int64) (bool, error) {
	return a.msgBans[[2]int64{userID, targetID}], nil
}

func (a *fakeAPI) SetUserMessagesBan(_ context.Context, userID, targetID int64, status bool) error {
	a.msgBans[[2]int64{targetID, userID}] = status
	return nil
}

func (a *fakeAPI) GetWallet(_ context.Context, id int64) (*api.Wallet, error) {
	if w, ok := a.wallets[id]; ok {
		cp := *w
		return &cp, nil
	}
	return &api.Wallet{}, nil
}

func (a *fakeAPI) Settings(context.Context) (*api.Settings, error) {
	s := a.settings
	return &s, nil
}

func (a *fakeAPI) Rate(context.Context, string) (decimal.Decimal, error) { return a.rate, nil }

func (a *fakeAPI) SendTransaction(_ context.Context, req api.SendTransactionRequest) error {
	if a.sendErr != nil {
		return a.sendErr
	}
	a.sent = append(a.sent, req)
	return nil
}

func (a *fakeAPI) GetLot(_ context.Context, id string) (*api.Lot, error) {
	if l, ok := a.lots[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, errNotFound
}

func (a *fakeAPI) CreateDeal(_ context.Context, d api.NewDeal) (*api.Deal, error) {
	a.deals = append(a.deals, d)
	return &api.Deal{Identificator: "D1", State: api.DealProposed, Amount: d.Amount, AmountCurrency: d.AmountCurrency}, nil
}

func (a *fakeAPI) ChangeBalance(_ context.Context, _, _ int64, amount decimal.Decimal, _ bool) error {
	a.changes = append(a.changes, amount)
	return nil
}

func (a *fakeAPI) AllReports(_ context.Context, t, from, to string) (api.Report, error) {
	a.reportArg = [3]string{t, from, to}
	return a.allReport, nil
}

type fakeGuard struct {
	blocked  bool
	recorded []string
	bans     map[int64]bool
}

func (g *fakeGuard) WithdrawalAllowed(string) bool { return !g.blocked }

func (g *fakeGuard) RecordWithdrawal(address string) { g.recorded = append(g.recorded, address) }

func (g *fakeGuard) SetMessagesBan(_ context.Context, tg int64, banned bool) error {
	if g.bans == nil {
		g.bans = map[int64]bool{}
	}
	g.bans[tg] = banned
	return nil
}

type sentNotice struct {
	chatID int64
	resp   composer.Response
}

type fakeNotifier struct {
	sent []sentNotice
}

func (n *fakeNotifier) Notify(_ context.Context, chatID int64, r composer.Response) error {
	n.sent = append(n.sent, sentNotice{chatID, r})
	return nil
}

type harness struct {
	flows    *Flows
	api      *fakeAPI
	guard    *fakeGuard
	notifier *fakeNotifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	manager, err := i18n.LoadFromDir("../i18n/locales", "ru")
	require.NoError(t, err)

	links := config.LinksConfig{Support: "@support"}
	kb := keyboard.NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)), "btc", links)
	comp := composer.New(manager, kb, "btc", "Bitcoin", links)

	h := &harness{api: newFakeAPI(), guard: &fakeGuard{}, notifier: &fakeNotifier{}}
	h.flows = New(h.api, comp, h.guard, h.notifier, Options{
		Symbol:         "BTC",
		Decimals:       8,
		BotUsername:    "sky_btc_bot",
		BroadcastDelay: time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.flows.now = func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) }
	return h
}

func (h *harness) addUser(u *api.User) *api.User {
	if u.Lang == "" {
		u.Lang = "ru"
	}
	h.api.users[u.ID] = u
	return u
}

func (h *harness) label(name string) string {
	return h.flows.view(nil).Label(name)
}

func stateOf(s state.State, data map[string]interface{}) *state.UserState {
	return &state.UserState{CurrentState: s, Context: data}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "stay", Stay.String())
	assert.Equal(t, "advance", Advance.String())
	assert.Equal(t, "reset", Reset.String())
}

func TestInputArg(t *testing.T) {
	in := Input{Args: []string{"a", "b"}}
	assert.Equal(t, "b", in.Arg(1))
	assert.Empty(t, in.Arg(2))
	assert.Empty(t, in.Arg(-1))
}

func TestCancelIsIdempotent(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(&api.User{ID: 1})
	ctx := context.Background()

	first, err := h.flows.Cancel(ctx, Input{User: u, State: stateOf(state.StateChooseAmountWithdraw, nil)})
	require.NoError(t, err)
	assert.Equal(t, Reset, first.Outcome)
	require.Len(t, first.Replies, 1)
	assert.Equal(t, h.flows.view(u).Menu("cancel_withdraw", nil).Text, first.Replies[0].Text)

	second, err := h.flows.Cancel(ctx, Input{User: u, State: nil})
	require.NoError(t, err)
	assert.Equal(t, Reset, second.Outcome)
	assert.Equal(t, h.flows.view(u).Menu("action_canceled", nil).Text, second.Replies[0].Text)
}

func TestConfirmBranches(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(&api.User{ID: 1})
	ctx := context.Background()
	called := 0
	yes := func(context.Context, Input) (Result, error) {
		called++
		return reset(), nil
	}

	_, err := h.flows.confirm(ctx, Input{User: u, Text: h.label("yes")}, yes)
	require.NoError(t, err)
	assert.Equal(t, 1, called)

	r, err := h.flows.confirm(ctx, Input{User: u, Text: h.label("no"), State: stateOf(state.StateConfirmationDeleteLot, nil)}, yes)
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Equal(t, h.flows.view(u).Menu("cancel_delete_lot", nil).Text, r.Replies[0].Text)

	r, err = h.flows.confirm(ctx, Input{User: u, Text: "maybe"}, yes)
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Equal(t, 1, called)
}

func TestIsLabelMatchesEveryLanguage(t *testing.T) {
	h := newHarness(t)
	for _, lang := range h.flows.comp.Labels().Languages() {
		assert.True(t, h.flows.IsLabel("cancel", h.flows.comp.For(lang).Label("cancel")), lang)
	}
	assert.False(t, h.flows.IsLabel("cancel", "definitely not a label"))
}
