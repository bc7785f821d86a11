package api

import (
	"context"
	"net/url"
)

// GetDeal fetches a deal. withMerchant expands merchant settings, expandEmail adds the buyer email.
func (c *Client) GetDeal(ctx context.Context, id string, expandEmail, withMerchant bool) (*Deal, error) {
	q := url.Values{}
	if expandEmail {
		q.Set("expand_email", "1")
	}
	if withMerchant {
		q.Set("with_merchant", "1")
	}
	var d Deal
	if err := c.get(ctx, "/deal/"+url.PathEscape(id), q, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) ActiveDeals(ctx context.Context, userID int64) ([]ActiveDeal, error) {
	var deals []ActiveDeal
	if err := c.get(ctx, "/active-deals/"+itoa(userID), nil, &deals); err != nil {
		return nil, err
	}
	return deals, nil
}

func (c *Client) ActiveDealsCount(ctx context.Context, userID int64) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/active-deals-count/"+itoa(userID), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) CreateDeal(ctx context.Context, d NewDeal) (*Deal, error) {
	var created Deal
	if err := c.post(ctx, "/new-deal", d, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Mask returns the masked sender requisites attached to a merchant deal.
func (c *Client) Mask(ctx context.Context, dealID string) (string, error) {
	var resp struct {
		Mask string `json:"mask"`
	}
	if err := c.get(ctx, "/deal/"+url.PathEscape(dealID)+"/mask", nil, &resp); err != nil {
		return "", err
	}
	return resp.Mask, nil
}

func (c *Client) SetMask(ctx context.Context, dealID, mask string) error {
	return c.post(ctx, "/deal/"+url.PathEscape(dealID)+"/mask", map[string]string{"mask": mask}, nil)
}

func (c *Client) StopDeal(ctx context.Context, dealID string) error {
	return c.post(ctx, "/stop-deal", map[string]string{"deal_id": dealID}, nil)
}

func (c *Client) CancelDeal(ctx context.Context, userID int64, dealID string) error {
	return c.post(ctx, "/cancel-deal", dealAction{DealID: dealID, UserID: userID}, nil)
}

func (c *Client) UpdateDealRequisite(ctx context.Context, userID int64, dealID, requisite string) error {
	body := map[string]any{"deal_id": dealID, "user_id": userID, "requisite": requisite}
	return c.patch(ctx, "/deal-requisite", body, nil)
}

// AdvanceDeal moves the deal to its next state on behalf of userID.
func (c *Client) AdvanceDeal(ctx context.Context, userID int64, dealID string) error {
	return c.patch(ctx, "/deal-state", dealAction{DealID: dealID, UserID: userID}, nil)
}

// SendCryptoWithoutAgreement releases crypto on a confirmed merchant deal before fiat is marked paid.
func (c *Client) SendCryptoWithoutAgreement(ctx context.Context, userID int64, dealID string) error {
	return c.post(ctx, "/deal-confirmation-no-agreement", dealAction{DealID: dealID, UserID: userID}, nil)
}

// ConfirmDeclinedFastDeal completes a deleted fast deal by the seller's choice.
func (c *Client) ConfirmDeclinedFastDeal(ctx context.Context, userID int64, dealID string) error {
	return c.post(ctx, "/fd-deal-confirm", dealAction{DealID: dealID, UserID: userID}, nil)
}

// GetDispute returns the dispute for a deal, or nil when none is open.
func (c *Client) GetDispute(ctx context.Context, dealID string) (*Dispute, error) {
	var d *Dispute
	if err := c.get(ctx, "/dispute/"+url.PathEscape(dealID), nil, &d); err != nil {
		return nil, err
	}
	return d, nil
}

func (c *Client) CreateDispute(ctx context.Context, userID int64, dealID string) (*Dispute, error) {
	var d Dispute
	if err := c.post(ctx, "/new-dispute", dealAction{DealID: dealID, UserID: userID}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CloseDealAdmin resolves a disputed deal in favour of winner ("buyer" or "seller").
func (c *Client) CloseDealAdmin(ctx context.Context, dealID, winner string) error {
	return c.post(ctx, "/close-deal-admin", map[string]string{"winner": winner, "deal_id": dealID}, nil)
}

type dealAction struct {
	DealID string `json:"deal_id"`
	UserID int64  `json:"user_id"`
}
