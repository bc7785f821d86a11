package flows

import (
	"context"
	"fmt"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/state"
)

// Winners accepted by the admin close button.
const (
	WinnerBuyer  = "buyer"
	WinnerSeller = "seller"
)

const rejectedEarlyDispute = "you can open a dispute only 5 minutes after the deal"

// OpenDispute lets either participant of a paid deal call an arbiter.
func (f *Flows) OpenDispute(ctx context.Context, in Input) (Result, error) {
	u := in.User
	v := f.view(u)
	deal, ok, err := f.dealIn(ctx, in.Arg(0), api.DealPaid)
	if err != nil {
		return Result{}, fmt.Errorf("open dispute: %w", err)
	}
	if !ok || !deal.IsParticipant(u.ID) {
		return reply(v.Error(false)), nil
	}

	existing, err := f.api.GetDispute(ctx, deal.Identificator)
	if err != nil {
		return Result{}, fmt.Errorf("open dispute: %w", err)
	}
	if existing.Involves(u.ID) {
		return reply(v.Notice("dispute_already_opened", nil)), nil
	}

	dispute, err := f.api.CreateDispute(ctx, u.ID, deal.Identificator)
	if err != nil {
		if api.IsRejectedWith(err, rejectedEarlyDispute) {
			return reply(v.Menu("error_open_dispute_without_waiting", nil)), nil
		}
		if _, rejected := api.Rejection(err); rejected {
			return reply(v.Error(false)), nil
		}
		return Result{}, fmt.Errorf("open dispute: %w", err)
	}
	if dispute.Both() {
		return reply(v.BothOpenedDispute(deal.Identificator)), nil
	}

	settings, err := f.api.Settings(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("open dispute: settings: %w", err)
	}
	return reply(v.DisputeOpened(deal.Identificator, settings.DisputeTime)), nil
}

// DeclineDispute is offered to the buyer when the seller opened a dispute.
func (f *Flows) DeclineDispute(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	deal, ok, err := f.dealIn(ctx, in.Arg(0), api.DealPaid)
	if err != nil {
		return Result{}, fmt.Errorf("decline dispute: %w", err)
	}
	if !ok || deal.Buyer.ID != in.User.ID {
		return reply(v.Error(false)), nil
	}
	return advance(state.StateDeclineDispute, map[string]interface{}{keyDealID: deal.Identificator},
		v.ConfirmDeclineDispute(deal.Identificator)), nil
}

// DeclineDisputeConfirm cancels the deal in favour of the seller who opened the dispute.
func (f *Flows) DeclineDisputeConfirm(ctx context.Context, in Input) (Result, error) {
	return f.confirm(ctx, in, func(ctx context.Context, in Input) (Result, error) {
		v := f.view(in.User)
		deal, ok, err := f.dealIn(ctx, in.State.String(keyDealID), api.DealPaid)
		if err != nil {
			return Result{}, fmt.Errorf("decline dispute: %w", err)
		}
		if !ok || deal.Buyer.ID != in.User.ID {
			return reset(v.Error(false)), nil
		}
		dispute, err := f.api.GetDispute(ctx, deal.Identificator)
		if err != nil {
			return Result{}, fmt.Errorf("decline dispute: %w", err)
		}
		if !dispute.Opened() || dispute.Initiator.ID != deal.Seller.ID {
			return reset(v.Error(false)), nil
		}
		if err := f.api.CancelDeal(ctx, deal.Buyer.ID, deal.Identificator); err != nil {
			return Result{}, fmt.Errorf("decline dispute: cancel: %w", err)
		}
		return reset(v.DealCanceled(deal.Identificator)), nil
	})
}

// CloseDeal settles a disputed deal by an admin decision.
func (f *Flows) CloseDeal(ctx context.Context, in Input) (Result, error) {
	v := f.view(in.User)
	if !in.User.IsAdmin {
		return f.UnknownCommand(ctx, in)
	}
	winner := in.Arg(1)
	if winner != WinnerBuyer && winner != WinnerSeller {
		return reply(v.Error(false)), nil
	}
	deal, ok, err := f.dealIn(ctx, in.Arg(0), api.DealPaid)
	if err != nil {
		return Result{}, fmt.Errorf("close deal: %w", err)
	}
	if !ok {
		return reply(v.Error(false)), nil
	}
	if err := f.api.CloseDealAdmin(ctx, deal.Identificator, winner); err != nil {
		return Result{}, fmt.Errorf("close deal: %w", err)
	}
	return reply(v.Done()), nil
}
