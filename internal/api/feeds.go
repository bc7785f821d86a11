package api

import (
	"context"

	"github.com/shopspring/decimal"
)

// Updates is one batch of pending notifications from /updates.
type Updates struct {
	Messages      []MessageUpdate     `json:"messages"`
	NewReferrals  []ReferralUpdate    `json:"new-referral"`
	Transactions  []TransactionUpdate `json:"transactions"`
	AccountsJoin  []AccountsJoin      `json:"accounts_join"`
	Deals         DealUpdates         `json:"deals"`
	Promocodes    []PromocodeUsed     `json:"promocodes"`
	UserMessages  []UserMessageCopy   `json:"usermessages"`
	Earnings      []Earning           `json:"earnings"`
	SecondaryNode []NodeFunding       `json:"secondary_node"`
}

type DealUpdates struct {
	Timeouts             []DealEvent     `json:"timeouts"`
	Referrals            []DealReferral  `json:"referrals"`
	Deals                []DealChange    `json:"deals"`
	Cancel               []DealEvent     `json:"cancel"`
	Disputes             []DisputeOpened `json:"disputes"`
	DisputeNotifications []DealEvent     `json:"dispute_notifications"`
	ClosedDisputes       []DisputeClosed `json:"closed_disputes"`
}

type MessageUpdate struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
	MediaURL   string `json:"media_url"`
}

type ReferralUpdate struct {
	UserID   int64  `json:"user_id"`
	Referral string `json:"referral"`
}

// TransactionUpdate is an incoming deposit ("in") or a processed withdrawal ("out").
type TransactionUpdate struct {
	UserID int64           `json:"user_id"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Link   string          `json:"link"`
}

type AccountsJoin struct {
	TelegramAccount int64  `json:"tg_account"`
	WebAccount      int64  `json:"web_account"`
	Token           string `json:"token"`
}

type DealEvent struct {
	UserID int64  `json:"user_id"`
	DealID string `json:"deal_id"`
}

type DealReferral struct {
	UserID     int64           `json:"user_id"`
	ReferralID int64           `json:"referral_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type DealChange struct {
	UserID   int64  `json:"user_id"`
	Opponent int64  `json:"opponent"`
	DealID   string `json:"deal_id"`
}

type DisputeOpened struct {
	UserID      int64  `json:"user_id"`
	DealID      string `json:"deal_id"`
	DisputeTime int    `json:"dispute_time"`
}

// DisputeClosed reports a dispute verdict to one participant. Winner is true when that participant won.
type DisputeClosed struct {
	UserID int64  `json:"user_id"`
	DealID string `json:"deal_id"`
	Winner bool   `json:"winner"`
	Admin  bool   `json:"admin"`
}

type PromocodeUsed struct {
	UserID    int64           `json:"user_id"`
	Activator string          `json:"activator"`
	Amount    decimal.Decimal `json:"amount"`
	Code      string          `json:"code"`
}

// UserMessageCopy mirrors a user-to-user message into the moderation chat.
type UserMessageCopy struct {
	Sender   int64  `json:"sender"`
	Receiver int64  `json:"receiver"`
	Message  string `json:"message"`
	URL      string `json:"url"`
}

type Earning struct {
	Income decimal.Decimal `json:"income"`
}

type NodeFunding struct {
	Amount decimal.Decimal `json:"amount"`
	Link   string          `json:"link"`
}

// ControlUpdate is a balance ledger entry for the control chat.
type ControlUpdate struct {
	User          int64           `json:"user"`
	Instance      string          `json:"instance"`
	Symbol        string          `json:"symbol"`
	CreatedAt     string          `json:"created_at"`
	Balance       decimal.Decimal `json:"balance"`
	Frozen        decimal.Decimal `json:"frozen"`
	ChangeBalance decimal.Decimal `json:"change_balance"`
	ChangeFrozen  decimal.Decimal `json:"change_frozen"`
	Message       string          `json:"message"`
}

// Updates drains the pending notification feed.
func (c *Client) Updates(ctx context.Context) (*Updates, error) {
	var u Updates
	if err := c.get(ctx, "/updates", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ControlUpdates(ctx context.Context) ([]ControlUpdate, error) {
	var out []ControlUpdate
	if err := c.get(ctx, "/control-updates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
