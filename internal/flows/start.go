package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

const (
	campaignPrefix = "c-"
	campaignLength = 16
	maxRefCode     = 10
)

// startPayload splits the deep-link argument of /start into a campaign id and a referral code.
func startPayload(payload string) (campaign, ref string) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ""
	}
	if id, ok := strings.CutPrefix(payload, campaignPrefix); ok && len(id) == campaignLength {
		campaign = id
	}
	if len(payload) <= maxRefCode {
		ref = payload
	}
	return campaign, ref
}

// Start registers unknown users, sends the user agreement and waits for it to be accepted.
func (f *Flows) Start(ctx context.Context, in Input) (Result, error) {
	exists, err := f.api.UserExists(ctx, in.TelegramID)
	if err != nil {
		return Result{}, fmt.Errorf("start: %w", err)
	}

	user := in.User
	if !exists {
		campaign, ref := startPayload(in.Arg(0))
		user, err = f.api.NewUser(ctx, in.TelegramID, campaign, ref)
		if err != nil {
			return Result{}, fmt.Errorf("start: register: %w", err)
		}
	} else if user == nil {
		if user, err = f.api.GetUserByTelegram(ctx, in.TelegramID); err != nil {
			return Result{}, fmt.Errorf("start: %w", err)
		}
	}

	var replies []composer.Response
	if f.opts.AgreementURL != "" {
		replies = append(replies, composer.Response{Attachment: &composer.Attachment{
			Kind: composer.KindDocument,
			Name: "agreement.pdf",
			URL:  f.opts.AgreementURL,
		}})
	}
	replies = append(replies, f.view(user).ConfirmPolicy())
	return advance(state.StateConfirmPolicy, nil, replies...), nil
}

// ConfirmPolicy greets a user who accepted the agreement.
func (f *Flows) ConfirmPolicy(_ context.Context, in Input) (Result, error) {
	if !f.IsLabel("confirm_policy", in.Text) {
		return reply(f.view(in.User).ConfirmPolicy()), nil
	}
	v := f.view(in.User)
	return reset(v.Start(), v.StartSecond(in.Username)), nil
}
