// Package relay turns the backend notification feeds into Telegram messages. The feeds
// are polled by the scheduler; every item is handled on its own, so one broken update
// never blocks the rest of a batch.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/Proton-105/skyexchange-bot/internal/api"
	"github.com/Proton-105/skyexchange-bot/internal/bot/keyboard"
	"github.com/Proton-105/skyexchange-bot/internal/composer"
	"github.com/Proton-105/skyexchange-bot/pkg/config"
	"github.com/Proton-105/skyexchange-bot/pkg/metrics"
)

// Feed categories, also used as metric labels.
const (
	CategoryMessages             = "messages"
	CategoryNewReferrals         = "new_referrals"
	CategoryTransactions         = "transactions"
	CategoryAccountsJoin         = "accounts_join"
	CategoryTimeouts             = "deals.timeouts"
	CategoryDealReferrals        = "deals.referrals"
	CategoryDeals                = "deals.deals"
	CategoryCancel               = "deals.cancel"
	CategoryPromocodes           = "promocodes"
	CategoryDisputes             = "deals.disputes"
	CategoryDisputeNotifications = "deals.dispute_notifications"
	CategoryClosedDisputes       = "deals.closed_disputes"
	CategoryUserMessages         = "usermessages"
	CategoryEarnings             = "earnings"
	CategorySecondaryNode        = "secondary_node"
	CategoryControl              = "control"
)

// dealControlMarkers select ledger messages that are also posted to the deal control chat.
var dealControlMarkers = []string{"deal", "sky pay", "sale", "processing temp seller balance", "cpayment"}

// API is the part of the backend the relay reads from.
type API interface {
	Updates(ctx context.Context) (*api.Updates, error)
	ControlUpdates(ctx context.Context) ([]api.ControlUpdate, error)
	GetUser(ctx context.Context, userID int64) (*api.User, error)
	GetDeal(ctx context.Context, id string, expandEmail, withMerchant bool) (*api.Deal, error)
	GetDispute(ctx context.Context, dealID string) (*api.Dispute, error)
	Mask(ctx context.Context, dealID string) (string, error)
	Settings(ctx context.Context) (*api.Settings, error)
	Profit(ctx context.Context) (*api.Profit, error)
}

// Notifier delivers to user and service chats.
type Notifier interface {
	// Notify queues the message for retry when delivery fails.
	Notify(ctx context.Context, chatID int64, r composer.Response) error
	// Send makes a single attempt.
	Send(ctx context.Context, chatID int64, r composer.Response) error
}

// ControlPoster accepts ledger posts for the control chats.
type ControlPoster interface {
	Push(chatID int64, text string)
}

// Reminders schedules the deferred "dispute is available" notice.
type Reminders interface {
	ScheduleDisputeReminder(ctx context.Context, userID int64, dealID string) error
}

type Relay struct {
	api       API
	comp      *composer.Composer
	notifier  Notifier
	control   ControlPoster
	reminders Reminders
	chats     config.ChatsConfig
	symbol    string
	log       *slog.Logger
	now       func() time.Time
}

// New builds a relay. reminders may be nil, then no reminders are scheduled.
func New(client API, comp *composer.Composer, notifier Notifier, control ControlPoster, reminders Reminders, chats config.ChatsConfig, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{
		api:       client,
		comp:      comp,
		notifier:  notifier,
		control:   control,
		reminders: reminders,
		chats:     chats,
		symbol:    strings.ToLower(comp.Symbol()),
		log:       log.With(slog.String("component", "relay")),
		now:       time.Now,
	}
}

// each runs fn for every item, logging and counting failures without stopping.
func each[T any](ctx context.Context, r *Relay, category string, items []T, fn func(context.Context, T) error) {
	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		err := fn(ctx, item)
		metrics.RecordRelayUpdate(category, err)
		if err != nil {
			r.log.Error("relay update failed",
				slog.String("category", category),
				slog.Any("update", item),
				slog.Any("error", err))
		}
	}
}

// PollUpdates fetches one batch from the notification feed and relays it.
func (r *Relay) PollUpdates(ctx context.Context) error {
	u, err := r.api.Updates(ctx)
	if err != nil {
		return fmt.Errorf("relay: fetch updates: %w", err)
	}
	if u == nil {
		return nil
	}
	r.Dispatch(ctx, u)
	return nil
}

// Dispatch relays one batch in the fixed category order.
func (r *Relay) Dispatch(ctx context.Context, u *api.Updates) {
	each(ctx, r, CategoryMessages, u.Messages, r.message)
	each(ctx, r, CategoryNewReferrals, u.NewReferrals, r.newReferral)
	each(ctx, r, CategoryTransactions, u.Transactions, r.transaction)
	each(ctx, r, CategoryAccountsJoin, u.AccountsJoin, r.accountsJoin)
	each(ctx, r, CategoryTimeouts, u.Deals.Timeouts, r.timeout)
	each(ctx, r, CategoryDealReferrals, u.Deals.Referrals, r.dealReferral)
	each(ctx, r, CategoryDeals, u.Deals.Deals, r.deal)
	each(ctx, r, CategoryCancel, u.Deals.Cancel, r.cancel)
	each(ctx, r, CategoryPromocodes, u.Promocodes, r.promocode)
	each(ctx, r, CategoryDisputes, u.Deals.Disputes, r.dispute)
	each(ctx, r, CategoryDisputeNotifications, u.Deals.DisputeNotifications, r.disputeNotification)
	each(ctx, r, CategoryClosedDisputes, u.Deals.ClosedDisputes, r.closedDispute)
	each(ctx, r, CategoryUserMessages, u.UserMessages, r.userMessage)
	each(ctx, r, CategoryEarnings, u.Earnings, r.earning)
	if r.symbol == "btc" {
		each(ctx, r, CategorySecondaryNode, u.SecondaryNode, r.secondaryNode)
	}
}

func (r *Relay) view(u *api.User) composer.View {
	return r.comp.For(u.Lang)
}

func (r *Relay) user(ctx context.Context, id int64) (*api.User, error) {
	u, err := r.api.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r *Relay) message(ctx context.Context, m api.MessageUpdate) error {
	sender, err := r.user(ctx, m.SenderID)
	if err != nil {
		return err
	}
	receiver, err := r.user(ctx, m.ReceiverID)
	if err != nil {
		return err
	}
	if !receiver.HasChat() {
		return nil
	}
	text := m.Message
	if m.MediaURL != "" {
		if err := r.notifier.Send(ctx, receiver.TelegramID, composer.Response{Attachment: composer.Media(m.MediaURL, "")}); err != nil {
			r.log.Warn("media not delivered", slog.Int64("receiver", receiver.ID), slog.Any("error", err))
		}
		text = ""
	}
	return r.notifier.Notify(ctx, receiver.TelegramID, r.view(receiver).MessageReceived(*sender, text))
}

func (r *Relay) newReferral(ctx context.Context, m api.ReferralUpdate) error {
	u, err := r.user(ctx, m.UserID)
	if err != nil {
		return err
	}
	return r.notifier.Notify(ctx, u.TelegramID, r.view(u).NewReferral(m.Referral))
}

func (r *Relay) transaction(ctx context.Context, m api.TransactionUpdate) error {
	u, err := r.user(ctx, m.UserID)
	if err != nil {
		return err
	}
	switch m.Type {
	case "in":
		return r.notifier.Notify(ctx, u.TelegramID, r.view(u).NewIncome(m.Amount))
	case "out":
		return r.notifier.Notify(ctx, u.TelegramID, r.view(u).TransactionProcessed(m.Link))
	}
	return nil
}

func (r *Relay) accountsJoin(ctx context.Context, m api.AccountsJoin) error {
	tg, err := r.user(ctx, m.TelegramAccount)
	if err != nil {
		return err
	}
	web, err := r.user(ctx, m.WebAccount)
	if err != nil {
		return err
	}
	return r.notifier.Notify(ctx, tg.TelegramID, r.view(tg).AccountsJoin(*tg, *web, m.Token))
}

func (r *Relay) timeout(ctx context.Context, m api.DealEvent) error {
	u, err := r.user(ctx, m.UserID)
	if err != nil {
		return err
	}
	return r.notifier.Notify(ctx, u.TelegramID, r.view(u).DealTimeout(m.DealID))
}

func (r *Relay) dealReferral(ctx context.Context, m api.DealReferral) error {
	u, err := r.user(ctx, m.UserID)
	if err != nil {
		return err
	}
	referral, err := r.user(ctx, m.ReferralID)
	if err != nil {
		return err
	}
	return r.notifier.Notify(ctx, u.TelegramID, r.view(u).ReferralEarning(referral.Nickname, m.Amount))
}

// deal maps the current state of a deal to the notice its participant should see.
func (r *Relay) deal(ctx context.Context, m api.DealChange) error {
	u, err := r.user(ctx, m.UserID)
	if err != nil {
		return err
	}
	if !u.HasChat() {
		return nil
	}
	deal, err := r.api.GetDeal(ctx, m.DealID, false, false)
	if err != nil {
		return fmt.Errorf("get deal %s: %w", m.DealID, err)
	}
	v := r.view(u)

	var resp composer.Response
	switch deal.State {
	case api.DealProposed:
		opponent, err := r.user(ctx, m.Opponent)
		if err != nil {
			return err
		}
		settings, err := r.api.Settings(ctx)
		if err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		resp = v.ProposeDeal(deal.Lot, *deal, opponent.Nickname, settings.BaseDealTime)
	case api.DealConfirmed:
		settings, err := r.api.Settings(ctx)
		if err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		if deal.Lot.Type == api.LotBuy {
			resp = v.OpponentConfirmed(*deal, u.ID, settings.AdvancedDealTime)
		} else {
			withMerchant, err := r.api.GetDeal(ctx, m.DealID, false, true)
			if err != nil {
				return fmt.Errorf("get deal %s: %w", m.DealID, err)
			}
			resp = v.ConfirmSentFiat(*withMerchant, settings.AdvancedDealTime)
		}
	case api.DealPaid:
		resp, err = r.paid(ctx, u, deal)
		if err != nil {
			return err
		}
	case api.DealClosed:
		resp = v.YouReceivedCrypto(*deal)
	case api.DealDeleted:
		resp = v.OpponentCanceledDeal(m.DealID)
	default:
		return nil
	}
	return r.notifier.Notify(ctx, u.TelegramID, resp)
}

// paid builds the "check incoming fiat" notice for the seller and schedules the dispute
// reminder when the dispute button is not available yet.
func (r *Relay) paid(ctx context.Context, u *api.User, deal *api.Deal) (composer.Response, error) {
	mask, err := r.api.Mask(ctx, deal.Identificator)
	if err != nil {
		return composer.Response{}, fmt.Errorf("mask %s: %w", deal.Identificator, err)
	}
	show := u.CanDispute()
	if deal.Type.DelayedDispute() {
		show = keyboard.SellerDisputeReady(*deal, r.now()) && u.Rating.IsPositive()
	}
	if !show && u.CanDispute() && r.reminders != nil {
		if err := r.reminders.ScheduleDisputeReminder(ctx, u.ID, deal.Identificator); err != nil {
			r.log.Error("dispute reminder not scheduled", slog.String("deal_id", deal.Identificator), slog.Any("error", err))
		}
	}
	return r.view(u).PleaseCheckFiat(*deal, mask, !show, show), nil
}

// DisputeReminder tells the seller the dispute button is available, unless the deal has
// moved on in the meantime.
func (r *Relay) DisputeReminder(ctx context.Context, userID int64, dealID string) error {
	deal, err := r.api.GetDeal(ctx, dealID, false, false)
	if err != nil {
		return fmt.Errorf("get deal %s: %w", dealID, err)
	}
	if deal.State != api.DealPaid {
		r.log.Debug("dispute reminder skipped", slog.String("deal_id", dealID), slog.String("state", deal.State))
		return nil
	}
	u, err := r.user(ctx, userID)
	if err != nil {
		return err
	}
	return r.notifier.Notify(ctx, u.TelegramID, r.view(u).DisputeReady(dealID))
}

func (r *Relay) cancel(ctx context.Context, m api.DealEvent) error {
	u, err := r.user(ctx, m.UserID)
	if err != nil {
		return err
	}
	return r.notifier.Notify(ctx, u.TelegramID, r.view(u).OpponentCanceledDeal(m.DealID))
}

func (r *Relay) promocode(ctx context.Context, m api.PromocodeUsed) error {
	u, err := r.user(ctx, m.UserID)
	if err != nil {
		return err
	}
	return r.notifier.Notify(ctx, u.TelegramID, r.view(u).PromocodeActivatedBy(m.Activator, m.Code, m.Amount))
}

func (r *Relay) dispute(ctx context.Context, m api.DisputeOpened) error {
	u, err := r.user(ctx, m.UserID)
	if err != nil {
		return err
	}
	dispute, err := r.api.GetDispute(ctx, m.DealID)
	if err != nil {
		return fmt.Errorf("get dispute %s: %w", m.DealID, err)
	}
	v := r.view(u)
	if dispute.Both() {
		return r.notifier.Notify(ctx, u.TelegramID, v.BothOpenedDispute(m.DealID))
	}
	deal, err := r.api.GetDeal(ctx, m.DealID, false, false)
	if err != nil {
		return fmt.Errorf("get deal %s: %w", m.DealID, err)
	}
	// merchant v2 payments are settled by support only
	if deal.Type == api.DealSkyPayV2 {
		return nil
	}
	canDecline := deal.Buyer.ID == u.ID
	return r.notifier.Notify(ctx, u.TelegramID, v.OpponentOpenedDispute(m.DealID, m.DisputeTime, canDecline))
}

func (r *Relay) disputeNotification(ctx context.Context, m api.DealEvent) error {
	u, err := r.user(ctx, m.UserID)
	if err != nil {
		return err
	}
	return r.notifier.Notify(ctx, u.TelegramID, r.view(u).DisputeOpenedNotification(m.DealID))
}

func (r *Relay) closedDispute(ctx context.Context, m api.DisputeClosed) error {
	u, err := r.user(ctx, m.UserID)
	if err != nil {
		return err
	}
	return r.notifier.Notify(ctx, u.TelegramID, r.view(u).DealClosedByDispute(m.DealID, m.Winner, m.Admin))
}

func (r *Relay) userMessage(ctx context.Context, m api.UserMessageCopy) error {
	caption := r.comp.UserMessageCaption(m)
	if m.URL != "" {
		return r.notifier.Send(ctx, r.chats.Messages, composer.Response{Attachment: composer.Media(m.URL, caption)})
	}
	return r.notifier.Notify(ctx, r.chats.Messages, composer.Response{Text: caption + "\n\n" + composer.StripTags(m.Message)})
}

func (r *Relay) earning(ctx context.Context, m api.Earning) error {
	return r.notifier.Send(ctx, r.chats.Earnings, composer.Response{Text: r.comp.Earning(m)})
}

func (r *Relay) secondaryNode(ctx context.Context, m api.NodeFunding) error {
	return r.notifier.Send(ctx, r.chats.Profits, composer.Response{Text: r.comp.NodeFunding(m)})
}

// PollControl mirrors the balance ledger into the control chats.
func (r *Relay) PollControl(ctx context.Context) error {
	updates, err := r.api.ControlUpdates(ctx)
	if err != nil {
		return fmt.Errorf("relay: fetch control updates: %w", err)
	}
	each(ctx, r, CategoryControl, updates, r.controlUpdate)
	return nil
}

func (r *Relay) controlUpdate(ctx context.Context, u api.ControlUpdate) error {
	r.control.Push(r.chats.Control, r.comp.ControlUpdate(u))

	lower := strings.ToLower(u.Message)
	if !lo.SomeBy(dealControlMarkers, func(m string) bool { return strings.Contains(lower, m) }) {
		return nil
	}
	var deal *api.Deal
	if id := DealIDFromLedger(u.Message); id != "" {
		d, err := r.api.GetDeal(ctx, id, true, false)
		if err != nil {
			r.log.Warn("deal for control post not found", slog.String("deal_id", id), slog.Any("error", err))
		} else {
			deal = d
		}
	}
	r.control.Push(r.chats.DealControl, r.comp.DealControl(u, deal))
	return nil
}

// DealIDFromLedger extracts the ten character deal id that follows the word "deal" in a
// ledger message, or returns "" when there is none.
func DealIDFromLedger(message string) string {
	idx := strings.Index(strings.ToLower(message), "deal")
	if idx < 0 {
		return ""
	}
	start := idx + 5
	if strings.Contains(message, "Recreating deal") {
		start = idx + 6
	}
	end := start + 10
	if end > len(message) {
		return ""
	}
	return strings.TrimSpace(message[start:end])
}

// PostProfit sends the balance summary to the profits chat.
func (r *Relay) PostProfit(ctx context.Context) error {
	p, err := r.api.Profit(ctx)
	if err != nil {
		return fmt.Errorf("relay: profit: %w", err)
	}
	return r.notifier.Send(ctx, r.chats.Profits, composer.Response{Text: r.comp.Profit(p)})
}
