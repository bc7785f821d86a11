package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

func TestStartPayload(t *testing.T) {
	cases := []struct {
		payload  string
		campaign string
		ref      string
	}{
		{payload: "", campaign: "", ref: ""},
		{payload: "abc123", campaign: "", ref: "abc123"},
		{payload: "c-0123456789abcdef", campaign: "0123456789abcdef", ref: ""},
		{payload: "c-short", campaign: "", ref: "c-short"},
		{payload: "averyveryverylongcode", campaign: "", ref: ""},
	}
	for _, tc := range cases {
		campaign, ref := startPayload(tc.payload)
		assert.Equal(t, tc.campaign, campaign, tc.payload)
		assert.Equal(t, tc.ref, ref, tc.payload)
	}
}

func TestStartRegistersNewUser(t *testing.T) {
	h := newHarness(t)

	r, err := h.flows.Start(context.Background(), Input{TelegramID: 42, Args: []string{"c-0123456789abcdef"}})
	require.NoError(t, err)
	assert.Equal(t, Advance, r.Outcome)
	assert.Equal(t, state.StateConfirmPolicy, r.Next)
	assert.Equal(t, [][2]string{{"0123456789abcdef", ""}}, h.api.newUsers)
}

func TestStartKnownUserSkipsRegistration(t *testing.T) {
	h := newHarness(t)
	h.api.exists = true
	u := h.addUser(&api.User{ID: 5, TelegramID: 42})

	r, err := h.flows.Start(context.Background(), Input{User: u, TelegramID: 42})
	require.NoError(t, err)
	assert.Equal(t, state.StateConfirmPolicy, r.Next)
	assert.Empty(t, h.api.newUsers)
}

func TestConfirmPolicy(t *testing.T) {
	h := newHarness(t)
	u := h.addUser(&api.User{ID: 5, TelegramID: 42})
	ctx := context.Background()

	r, err := h.flows.ConfirmPolicy(ctx, Input{User: u, Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, Stay, r.Outcome)

	r, err = h.flows.ConfirmPolicy(ctx, Input{User: u, Text: h.label("confirm_policy")})
	require.NoError(t, err)
	assert.Equal(t, Reset, r.Outcome)
	assert.Len(t, r.Replies, 2)
}
