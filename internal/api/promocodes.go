package api

import (
	"context"

	"github.com/shopspring/decimal"
)

func (c *Client) ActivePromocodesCount(ctx context.Context, userID int64) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.get(ctx, "/active-promocodes-count/"+itoa(userID), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) ActivePromocodes(ctx context.Context, userID int64) ([]Promocode, error) {
	var out []Promocode
	if err := c.get(ctx, "/active-promocodes/"+itoa(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ActivatePromocode(ctx context.Context, userID int64, code string) (*PromocodeActivation, error) {
	var out PromocodeActivation
	body := map[string]any{"user_id": userID, "code": code}
	if err := c.post(ctx, "/promocode-activation", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePromocode issues a code worth amount of crypto, redeemable activations times.
func (c *Client) CreatePromocode(ctx context.Context, userID int64, activations int, amount decimal.Decimal) (*Promocode, error) {
	var out Promocode
	body := map[string]any{"user_id": userID, "activations": activations, "amount": amount.String()}
	if err := c.post(ctx, "/new-promocode", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePromocode(ctx context.Context, userID, promocodeID int64) error {
	body := map[string]any{"user_id": userID, "promocode_id": promocodeID}
	return c.delete(ctx, "/promocode", body, nil)
}
