package api

import (
	"context"
	"net/url"
)

// MarketLots returns the per-broker overview for buy or sell lots.
func (c *Client) MarketLots(ctx context.Context, userID int64, lotType string) ([]MarketLot, error) {
	var lots []MarketLot
	q := url.Values{"user_id": {itoa(userID)}}
	if err := c.get(ctx, "/lots/"+lotType, q, &lots); err != nil {
		return nil, err
	}
	return lots, nil
}

func (c *Client) BrokerLots(ctx context.Context, userID int64, lotType, brokerID string) ([]Lot, error) {
	var lots []Lot
	q := url.Values{"broker": {brokerID}, "user_id": {itoa(userID)}}
	if err := c.get(ctx, "/broker-lots/"+lotType, q, &lots); err != nil {
		return nil, err
	}
	return lots, nil
}

func (c *Client) GetLot(ctx context.Context, identificator string) (*Lot, error) {
	var lot Lot
	if err := c.get(ctx, "/lot/"+url.PathEscape(identificator), nil, &lot); err != nil {
		return nil, err
	}
	return &lot, nil
}

func (c *Client) UserLots(ctx context.Context, userID int64) ([]Lot, error) {
	var lots []Lot
	if err := c.get(ctx, "/user-lots/"+itoa(userID), nil, &lots); err != nil {
		return nil, err
	}
	return lots, nil
}

func (c *Client) CreateLot(ctx context.Context, lot NewLot) (*Lot, error) {
	var created Lot
	if err := c.post(ctx, "/new-lot", lot, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) UpdateLot(ctx context.Context, upd LotUpdate) error {
	return c.patch(ctx, "/lot", upd, nil)
}

func (c *Client) DeleteLot(ctx context.Context, identificator string, userID int64) error {
	body := map[string]any{"identificator": identificator, "user_id": userID}
	return c.delete(ctx, "/lot", body, nil)
}

// ToggleTrading flips whether all of the user's lots are listed.
func (c *Client) ToggleTrading(ctx context.Context, userID int64) error {
	return c.patch(ctx, "/trading-status", map[string]any{"user_id": userID}, nil)
}

func (c *Client) Brokers(ctx context.Context, currency string) ([]Broker, error) {
	var q url.Values
	if currency != "" {
		q = url.Values{"currency": {currency}}
	}
	var brokers []Broker
	if err := c.get(ctx, "/brokers", q, &brokers); err != nil {
		return nil, err
	}
	return brokers, nil
}

func (c *Client) Currencies(ctx context.Context) ([]Currency, error) {
	var out []Currency
	if err := c.get(ctx, "/currencies", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LastRequisites returns requisites the user entered before for this broker.
func (c *Client) LastRequisites(ctx context.Context, userID int64, currency, brokerID string) ([]string, error) {
	var reqs []string
	q := url.Values{"user_id": {itoa(userID)}, "currency": {currency}}
	if err := c.get(ctx, "/last-requisites/"+url.PathEscape(brokerID), q, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}
