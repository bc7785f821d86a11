package flows

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
)

func TestReportPeriod(t *testing.T) {
	from, to, ok := reportPeriod("2024", "2", "")
	require.True(t, ok)
	assert.Equal(t, "1706745600", from) // 2024-02-01 00:00:00 UTC
	assert.Equal(t, "1709251199", to)   // 2024-02-29 23:59:59 UTC

	from, to, ok = reportPeriod("2024", "2", "29")
	require.True(t, ok)
	assert.Equal(t, "1709164800", from)
	assert.Equal(t, "1709251199", to)

	_, _, ok = reportPeriod("2024", "13", "")
	assert.False(t, ok)
	_, _, ok = reportPeriod("x", "1", "")
	assert.False(t, ok)
}

func TestReportType(t *testing.T) {
	typ, ok := ReportType("rf")
	require.True(t, ok)
	assert.Equal(t, "income", typ)
	_, ok = ReportType("rz")
	assert.False(t, ok)
}

func TestAdminCommandsRejectUsers(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(&api.User{ID: 1})

	r, err := h.flows.MessagesBanAll(context.Background(), Input{User: u, Args: []string{"1", "555"}})
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Empty(t, h.guard.bans)
}

func TestMessagesBanAll(t *testing.T) {
	h := newHarness(t)
	admin := h.addUser(&api.User{ID: 1, IsAdmin: true})
	ctx := context.Background()

	r, err := h.flows.MessagesBanAll(ctx, Input{User: admin, Args: []string{"1", "555"}})
	require.NoError(t, err)
	assert.True(t, h.guard.bans[555])
	assert.Equal(t, h.flows.comp.MessagesBanned(true), r.Replies[0].Text)

	_, err = h.flows.MessagesBanAll(ctx, Input{User: admin, Args: []string{"0", "555"}})
	require.NoError(t, err)
	assert.False(t, h.guard.bans[555])
}

func TestChangeBalanceNotifiesOnIncome(t *testing.T) {
	h := newHarness(t)
	admin := h.addUser(&api.User{ID: 1, IsAdmin: true})
	target := h.addUser(&api.User{ID: 2, TelegramID: 200, Nickname: "bob"})
	h.api.infos["bob"] = &api.UserInfo{User: *target}
	h.api.wallets[target.ID] = &api.Wallet{Balance: decimal.NewFromInt(3)}
	ctx := context.Background()

	r, err := h.flows.ChangeBalance(ctx, Input{User: admin, Args: []string{BalanceAdd, "bob", "1,5"}})
	require.NoError(t, err)
	require.Len(t, h.api.changes, 1)
	assert.True(t, h.api.changes[0].Equal(decimal.RequireFromString("1.5")))
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, int64(200), h.notifier.sent[0].chatID)
	assert.Equal(t, h.flows.comp.NewBalance("bob", decimal.NewFromInt(3), true), r.Replies[0].Text)

	_, err = h.flows.ChangeBalance(ctx, Input{User: admin, Args: []string{BalanceAdd, "bob", "-1"}})
	require.NoError(t, err)
	assert.Len(t, h.notifier.sent, 1)
}

func TestMonthlyReportSendsCSV(t *testing.T) {
	h := newHarness(t)
	admin := h.addUser(&api.User{ID: 1, IsAdmin: true})
	h.api.allReport = api.Report{{"date": "2024-02-01", "merchants_income": 1.5}}

	r, err := h.flows.MonthlyReport(context.Background(), Input{User: admin, Args: []string{"merchants", "2024", "2"}})
	require.NoError(t, err)
	require.Len(t, r.Replies, 1)
	require.NotNil(t, r.Replies[0].Attachment)
	assert.Equal(t, "merchants.csv", r.Replies[0].Attachment.Name)
	assert.Equal(t, "merchants", h.api.reportArg[0])
	assert.Contains(t, string(r.Replies[0].Attachment.Content), "date,merchants_income")
}

func TestControlReportAllowsSupport(t *testing.T) {
	h := newHarness(t)
	staff := h.addUser(&api.User{ID: 9, TelegramID: 900})
	h.flows.opts.SupportIDs = []int64{900}

	r, err := h.flows.ControlReport(context.Background(), Input{User: staff, Args: []string{"2024", "3", "1"}})
	require.NoError(t, err)
	require.Len(t, r.Replies, 1)
	assert.Equal(t, "control", h.api.reportArg[0])
}
