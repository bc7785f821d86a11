package api

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"
)

type balanceChange struct {
	ToUserID      int64           `json:"to_user_id"`
	AdminID       int64           `json:"admin_id"`
	Amount        decimal.Decimal `json:"amount"`
	WithOperation *bool           `json:"with_operation,omitempty"`
}

// ChangeBalance adds amount (possibly negative) to the user's balance.
// withOperation also records a ledger operation visible to the user.
func (c *Client) ChangeBalance(ctx context.Context, userID, adminID int64, amount decimal.Decimal, withOperation bool) error {
	body := balanceChange{ToUserID: userID, AdminID: adminID, Amount: amount, WithOperation: &withOperation}
	return c.patch(ctx, "/balance", body, nil)
}

func (c *Client) SetBalance(ctx context.Context, userID, adminID int64, amount decimal.Decimal) error {
	return c.patch(ctx, "/balance-fixed", balanceChange{ToUserID: userID, AdminID: adminID, Amount: amount}, nil)
}

func (c *Client) ChangeFrozen(ctx context.Context, userID, adminID int64, amount decimal.Decimal) error {
	return c.patch(ctx, "/frozen", balanceChange{ToUserID: userID, AdminID: adminID, Amount: amount}, nil)
}

func (c *Client) SetFrozen(ctx context.Context, userID, adminID int64, amount decimal.Decimal) error {
	return c.patch(ctx, "/frozen-fixed", balanceChange{ToUserID: userID, AdminID: adminID, Amount: amount}, nil)
}

// WithdrawFromPaymentsNode sends funds from the payments node and returns the explorer link.
func (c *Client) WithdrawFromPaymentsNode(ctx context.Context, adminID int64, address string, amount decimal.Decimal) (string, error) {
	var resp struct {
		Link string `json:"link"`
	}
	body := map[string]any{"address": address, "admin_id": adminID, "amount": amount}
	if err := c.post(ctx, "/withdraw-from-payments-node", body, &resp); err != nil {
		return "", err
	}
	return resp.Link, nil
}

func (c *Client) CreateCampaign(ctx context.Context, adminID int64, name string) (*Campaign, error) {
	var out Campaign
	if err := c.post(ctx, "/campaigns", map[string]any{"admin_id": adminID, "name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResetImbalance(ctx context.Context, adminID int64) error {
	return c.post(ctx, "/reset-imbalance", map[string]any{"admin_id": adminID}, nil)
}

func (c *Client) FrozenAll(ctx context.Context) ([]FrozenEntry, error) {
	var out []FrozenEntry
	if err := c.get(ctx, "/frozen-all", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleWithdrawals flips the global withdrawal switch and returns the new state.
func (c *Client) ToggleWithdrawals(ctx context.Context) (bool, error) {
	var out StatusToggle
	if err := c.post(ctx, "/change-withdraw-status", nil, &out); err != nil {
		return false, err
	}
	return out.Status, nil
}

// ToggleFastDeals flips the global fast-deal switch and returns the new state.
func (c *Client) ToggleFastDeals(ctx context.Context) (bool, error) {
	var out StatusToggle
	if err := c.post(ctx, "/change-fast-deal-status", nil, &out); err != nil {
		return false, err
	}
	return out.Status, nil
}

func (c *Client) Profit(ctx context.Context) (*Profit, error) {
	var p Profit
	if err := c.get(ctx, "/profit", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) FinReport(ctx context.Context) (FinReport, error) {
	var r FinReport
	if err := c.get(ctx, "/finreport", nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Client) Transit(ctx context.Context, userID int64) (*Transit, error) {
	var t Transit
	if err := c.get(ctx, "/transit/"+itoa(userID), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// AllReports returns report rows of type t across all users. Empty from/to means no date filter.
func (c *Client) AllReports(ctx context.Context, t, from, to string) (Report, error) {
	var q url.Values
	if from != "" && to != "" {
		q = url.Values{"from": {from}, "to": {to}}
	}
	var r Report
	if err := c.get(ctx, "/reports-all/"+url.PathEscape(t), q, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// NodeTx is the node view of an on-chain transaction. Times are unix seconds.
type NodeTx struct {
	TxID         string          `json:"txid"`
	TimeReceived int64           `json:"timereceived"`
	BlockTime    int64           `json:"blocktime"`
	Amount       decimal.Decimal `json:"amount"`
	Fee          decimal.Decimal `json:"fee"`
}

func (c *Client) NodeTransaction(ctx context.Context, hash string) (*NodeTx, error) {
	var tx NodeTx
	if err := c.get(ctx, "/node-transaction/"+url.PathEscape(hash), nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Support lookups return free-form objects that are printed as is.

func (c *Client) PaymentInfo(ctx context.Context, id string) (map[string]any, error) {
	return c.info(ctx, "/payment-info/", id)
}

func (c *Client) PaymentV2Info(ctx context.Context, id string) (map[string]any, error) {
	return c.info(ctx, "/payment-v2-info/", id)
}

func (c *Client) SaleInfo(ctx context.Context, id string) (map[string]any, error) {
	return c.info(ctx, "/sale-info/", id)
}

func (c *Client) SaleV2Info(ctx context.Context, id string) (map[string]any, error) {
	return c.info(ctx, "/sale_v2-info/", id)
}

func (c *Client) CPaymentInfo(ctx context.Context, id string) (map[string]any, error) {
	return c.info(ctx, "/cpayment-info/", id)
}

func (c *Client) WithdrawalInfo(ctx context.Context, id string) (map[string]any, error) {
	return c.info(ctx, "/withdrawal-info/", id)
}

func (c *Client) info(ctx context.Context, prefix, id string) (map[string]any, error) {
	var out map[string]any
	if err := c.get(ctx, prefix+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
