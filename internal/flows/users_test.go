package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
)

func usersHarness(t *testing.T) (*harness, *api.User, *api.User) {
	h := newHarness(t)
	viewer := h.addUser(&api.User{ID: 1, TelegramID: 100, Nickname: "viewer"})
	target := h.addUser(&api.User{ID: 2, TelegramID: 200, Nickname: "target"})
	h.api.infos["target"] = &api.UserInfo{User: *target}
	return h, viewer, target
}

func TestUserProfileUnknownNickname(t *testing.T) {
	h, viewer, _ := usersHarness(t)

	r, err := h.flows.UserProfile(context.Background(), Input{User: viewer, Args: []string{"nobody"}})
	require.NoError(t, err)
	assert.Equal(t, h.flows.view(viewer).UserDoesNotExist().Text, r.Replies[0].Text)
}

func TestUserByForward(t *testing.T) {
	h, viewer, _ := usersHarness(t)

	r, err := h.flows.UserByForward(context.Background(), Input{User: viewer, Args: []string{"200"}})
	require.NoError(t, err)
	require.Len(t, r.Replies, 1)
	assert.NotEqual(t, h.flows.view(viewer).UserDoesNotExist().Text, r.Replies[0].Text)
}

func TestToggleRequiresAdmin(t *testing.T) {
	h, viewer, target := usersHarness(t)

	r, err := h.flows.Toggle(context.Background(), Input{
		User: viewer,
		Args: []string{keyboard.ToggleBan, "2"},
	})
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Empty(t, h.api.updates)
	assert.False(t, target.IsBaned)
}

func TestToggleFlipsField(t *testing.T) {
	h, viewer, _ := usersHarness(t)
	viewer.IsAdmin = true

	_, err := h.flows.Toggle(context.Background(), Input{
		User: viewer,
		Args: []string{keyboard.ToggleSkyPayV2, "2"},
	})
	require.NoError(t, err)
	require.Len(t, h.api.updates, 1)
	upd := h.api.updates[0]
	assert.Equal(t, int64(2), upd.UserID)
	require.NotNil(t, upd.AllowSuperBuy)
	assert.True(t, *upd.AllowSuperBuy)
	assert.Nil(t, upd.IsBaned)
}

func TestToggleMessagesBanIsPersonal(t *testing.T) {
	h, viewer, target := usersHarness(t)
	ctx := context.Background()
	in := Input{User: viewer, Args: []string{keyboard.ToggleMessagesBan, "2"}}

	_, err := h.flows.Toggle(ctx, in)
	require.NoError(t, err)
	assert.True(t, h.api.msgBans[[2]int64{target.ID, viewer.ID}])

	_, err = h.flows.Toggle(ctx, in)
	require.NoError(t, err)
	assert.False(t, h.api.msgBans[[2]int64{target.ID, viewer.ID}])
	assert.Empty(t, h.api.updates)
}

func TestEveryToggleFieldHasKeyboardName(t *testing.T) {
	for _, field := range []string{
		keyboard.ToggleBan, keyboard.ToggleShadowBan, keyboard.ToggleApplyShadowBan,
		keyboard.ToggleVerification, keyboard.ToggleSuperVerification,
		keyboard.ToggleSkyPay, keyboard.ToggleSkyPayV2,
		keyboard.ToggleAllowSell, keyboard.ToggleAllowSaleV2,
	} {
		_, ok := userToggles[field]
		assert.True(t, ok, field)
	}
}

func TestChooseCurrencyAnswersInNewCurrency(t *testing.T) {
	h, viewer, _ := usersHarness(t)

	r, err := h.flows.ChooseCurrency(context.Background(), Input{User: viewer, Args: []string{"usd"}})
	require.NoError(t, err)
	require.Len(t, h.api.updates, 1)
	assert.Equal(t, "usd", *h.api.updates[0].Currency)
	assert.Len(t, r.Replies, 1)
}
