package flows

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

const (
	keyReceiverID = "receiver_id"

	contentTypePDF     = "application/pdf"
	rejectedPDFScript  = "400 bad request: javascript in pdf"
	rejectedBadRequest = "bad request"
)

// userToggle flips one admin-controlled flag of target.
type userToggle func(target api.User) api.UserUpdate

func flip(v bool) *bool {
	v = !v
	return &v
}

// userToggles maps CbToggle fields to the profile update they apply. The messages ban is
// per viewer and handled separately.
var userToggles = map[string]userToggle{
	keyboard.ToggleBan: func(u api.User) api.UserUpdate {
		return api.UserUpdate{UserID: u.ID, IsBaned: flip(u.IsBaned)}
	},
	keyboard.ToggleShadowBan: func(u api.User) api.UserUpdate {
		return api.UserUpdate{UserID: u.ID, ShadowBan: flip(u.ShadowBan)}
	},
	keyboard.ToggleApplyShadowBan: func(u api.User) api.UserUpdate {
		return api.UserUpdate{UserID: u.ID, ApplyShadowBan: flip(u.ApplyShadowBan)}
	},
	keyboard.ToggleVerification: func(u api.User) api.UserUpdate {
		return api.UserUpdate{UserID: u.ID, IsVerify: flip(u.IsVerify)}
	},
	keyboard.ToggleSuperVerification: func(u api.User) api.UserUpdate {
		return api.UserUpdate{UserID: u.ID, SuperVerifyOnly: flip(u.SuperVerifyOnly)}
	},
	keyboard.ToggleSkyPay: func(u api.User) api.UserUpdate {
		return api.UserUpdate{UserID: u.ID, SkyPay: flip(u.SkyPay)}
	},
	keyboard.ToggleSkyPayV2: func(u api.User) api.UserUpdate {
		return api.UserUpdate{UserID: u.ID, AllowSuperBuy: flip(u.AllowSuperBuy)}
	},
	keyboard.ToggleAllowSell: func(u api.User) api.UserUpdate {
		return api.UserUpdate{UserID: u.ID, AllowSell: flip(u.AllowSell)}
	},
	keyboard.ToggleAllowSaleV2: func(u api.User) api.UserUpdate {
		return api.UserUpdate{UserID: u.ID, AllowSaleV2: flip(u.AllowSaleV2)}
	},
}

// UserProfile shows the card of the user with the nickname in the first argument.
func (f *Flows) UserProfile(ctx context.Context, in Input) (Result, error) {
	return f.showUser(ctx, in.User, in.Arg(0))
}

// UserByForward shows the card of the author of a forwarded message.
func (f *Flows) UserByForward(ctx context.Context, in Input) (Result, error) {
	tg, err := strconv.ParseInt(in.Arg(0), 10, 64)
	if err != nil {
		return reply(f.view(in.User).UserDoesNotExist()), nil
	}
	target, err := f.api.GetUserByTelegram(ctx, tg)
	if err != nil {
		return reply(f.view(in.User).UserDoesNotExist()), nil
	}
	return f.showUser(ctx, in.User, target.Nickname)
}

func (f *Flows) showUser(ctx context.Context, viewer *api.User, nickname string) (Result, error) {
	v := f.view(viewer)
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return reply(v.UserDoesNotExist()), nil
	}
	exists, err := f.api.NicknameExists(ctx, nickname)
	if err != nil {
		return Result{}, fmt.Errorf("user: %w", err)
	}
	if !exists {
		return reply(v.UserDoesNotExist()), nil
	}
	info, err := f.api.GetUserInfo(ctx, nickname)
	if err != nil {
		return Result{}, fmt.Errorf("user: %w", err)
	}
	blockedByTarget, err := f.api.UserMessagesBanned(ctx, viewer.ID, info.ID)
	if err != nil {
		return Result{}, fmt.Errorf("user: messages ban: %w", err)
	}
	blockedByViewer, err := f.api.UserMessagesBanned(ctx, info.ID, viewer.ID)
	if err != nil {
		return Result{}, fmt.Errorf("user: messages ban: %w", err)
	}
	return reply(v.User(composer.UserCard{
		Info:           *info,
		IsAdmin:        viewer.IsAdmin,
		AllowMessages:  !blockedByTarget,
		BannedMessages: blockedByViewer,
	})), nil
}

// Toggle applies one CbToggle button. Everything but the personal messages ban is admin only.
func (f *Flows) Toggle(ctx context.Context, in Input) (Result, error) {
	u := in.User
	field := in.Arg(0)
	targetID, err := strconv.ParseInt(in.Arg(1), 10, 64)
	if err != nil {
		return reply(f.view(u).Error(false)), nil
	}

	if field == keyboard.ToggleMessagesBan {
		current, err := f.api.UserMessagesBanned(ctx, targetID, u.ID)
		if err != nil {
			return Result{}, fmt.Errorf("toggle messages ban: %w", err)
		}
		if err := f.api.SetUserMessagesBan(ctx, u.ID, targetID, !current); err != nil {
			return Result{}, fmt.Errorf("toggle messages ban: %w", err)
		}
	} else {
		toggle, ok := userToggles[field]
		if !ok || !u.IsAdmin {
			return f.UnknownCommand(ctx, in)
		}
		target, err := f.api.GetUser(ctx, targetID)
		if err != nil {
			return Result{}, fmt.Errorf("toggle %s: %w", field, err)
		}
		if err := f.api.UpdateUser(ctx, toggle(*target)); err != nil {
			return Result{}, fmt.Errorf("toggle %s: %w", field, err)
		}
	}

	target, err := f.api.GetUser(ctx, targetID)
	if err != nil {
		return Result{}, fmt.Errorf("toggle %s: %w", field, err)
	}
	return f.showUser(ctx, u, target.Nickname)
}

// WriteMessage starts composing a message to another user.
func (f *Flows) WriteMessage(_ context.Context, in Input) (Result, error) {
	receiver, err := strconv.ParseInt(in.Arg(0), 10, 64)
	if err != nil {
		return reply(f.view(in.User).Error(false)), nil
	}
	return advance(state.StateWriteMessage, map[string]interface{}{keyReceiverID: receiver},
		f.view(in.User).Prompt("write_message", nil)), nil
}

// SendMessage delivers the text, photo or PDF the user sent while composing.
func (f *Flows) SendMessage(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	receiver := in.State.Int64(keyReceiverID)

	if in.File != nil {
		if r, done := f.sendMedia(ctx, in, receiver); done {
			return r, nil
		}
	} else if err := f.api.SendUserMessage(ctx, u.ID, receiver, in.Text); err != nil {
		detail, _ := api.Rejection(err)
		if strings.Contains(strings.ToLower(detail+" "+err.Error()), rejectedBadRequest) {
			return reset(v.Menu("user_baned_messages_from_you", nil)), nil
		}
		f.log.Warn("send user message failed", slog.Int64("user_id", u.ID), slog.Any("error", err))
	}

	to, err := f.api.GetUser(ctx, receiver)
	if err != nil {
		return Result{}, fmt.Errorf("send message: receiver: %w", err)
	}
	return reset(v.MessageSent(to.Nickname)), nil
}

// sendMedia uploads the attachment and relays it. done reports that r is the final answer.
func (f *Flows) sendMedia(ctx context.Context, in Input, receiver int64) (Result, bool) {
	u := in.User
	v := f.view(u)
	file := in.File
	if file.ContentType != "" && file.ContentType != contentTypePDF {
		return reset(v.Error(false)), true
	}

	body, err := file.Open()
	if err != nil {
		f.log.Error("download attachment failed", slog.Int64("user_id", u.ID), slog.Any("error", err))
		return reset(v.Error(false)), true
	}
	defer body.Close()

	media, err := f.api.UploadMedia(ctx, u.ID, file.Name, body, file.ContentType)
	if err == nil {
		err = f.api.SendUserMedia(ctx, u.ID, receiver, media.ID)
	}
	if err != nil {
		if api.IsRejectedWith(err, rejectedPDFScript) {
			return reset(v.Menu("javascript_in_pdf", nil)), true
		}
		f.log.Error("send user media failed", slog.Int64("user_id", u.ID), slog.Any("error", err))
		return reset(v.Error(false)), true
	}
	return Result{}, false
}

// ShowToken reveals the account join token after the owner agreed.
func (f *Flows) ShowToken(_ context.Context, in Input) (Result, error) {
	return reply(f.comp.Raw(in.Arg(0), nil)), nil
}

func (f *Flows) DeclineToken(_ context.Context, in Input) (Result, error) {
	return reply(f.view(in.User).Menu("action_canceled", nil)), nil
}

func (f *Flows) About(_ context.Context, in Input) (Result, error) {
	return reply(f.view(in.User).About(*in.User)), nil
}

func (f *Flows) Communication(_ context.Context, in Input) (Result, error) {
	return reply(f.view(in.User).Communication()), nil
}

func (f *Flows) Friends(_ context.Context, in Input) (Result, error) {
	return reply(f.view(in.User).Friends()), nil
}

func (f *Flows) Affiliate(ctx context.Context, in Input) (Result, error) {
	a, err := f.api.Affiliate(ctx, in.User.ID)
	if err != nil {
		return Result{}, fmt.Errorf("affiliate: %w", err)
	}
	return reply(f.view(in.User).Affiliate(*in.User, *a)), nil
}

// GetCode sends the referral deep link.
func (f *Flows) GetCode(ctx context.Context, in Input) (Result, error) {
	a, err := f.api.Affiliate(ctx, in.User.ID)
	if err != nil {
		return Result{}, fmt.Errorf("get code: %w", err)
	}
	return reply(f.comp.Raw(composer.ReferralLink(f.opts.BotUsername, a.RefCode), nil)), nil
}

func (f *Flows) Settings(_ context.Context, in Input) (Result, error) {
	return reply(f.view(in.User).Settings(*in.User)), nil
}

func (f *Flows) LangSettings(_ context.Context, in Input) (Result, error) {
	return reply(f.view(in.User).LangSettings()), nil
}

// UpdateLang stores the chosen language and answers in it right away.
func (f *Flows) UpdateLang(ctx context.Context, in Input) (Result, error) {
	lang := in.Arg(0)
	known := false
	for _, l := range f.comp.Labels().Languages() {
		known = known || l == lang
	}
	if !known {
		return reply(f.view(in.User).Error(false)), nil
	}
	if err := f.api.UpdateUser(ctx, api.UserUpdate{UserID: in.User.ID, Lang: &lang}); err != nil {
		return Result{}, fmt.Errorf("update lang: %w", err)
	}
	u := *in.User
	u.Lang = lang
	v := f.view(&u)
	return reply(v.Done(), v.Settings(u)), nil
}

func (f *Flows) RateSettings(ctx context.Context, in Input) (Result, error) {
	rate, err := f.api.Rate(ctx, in.User.Currency)
	if err != nil {
		return Result{}, fmt.Errorf("rate settings: %w", err)
	}
	return reply(f.view(in.User).RateSettings(*in.User, rate)), nil
}

func (f *Flows) CurrencySettings(ctx context.Context, in Input) (Result, error) {
	currencies, err := f.api.Currencies(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("currency settings: %w", err)
	}
	return reply(f.view(in.User).CurrencySettings(*in.User, currencies)), nil
}

func (f *Flows) ChooseCurrency(ctx context.Context, in Input) (Result, error) {
	currency := in.Arg(0)
	if currency == "" {
		return reply(f.view(in.User).Error(false)), nil
	}
	if err := f.api.UpdateUser(ctx, api.UserUpdate{UserID: in.User.ID, Currency: &currency}); err != nil {
		return Result{}, fmt.Errorf("choose currency: %w", err)
	}
	u := *in.User
	u.Currency = currency
	return reply(f.view(&u).Settings(u)), nil
}
