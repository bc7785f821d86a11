package api

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"
)

func (c *Client) GetWallet(ctx context.Context, userID int64) (*Wallet, error) {
	var w Wallet
	if err := c.get(ctx, "/wallet/"+itoa(userID), nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *Client) CreateWalletIfNotExists(ctx context.Context, userID int64) error {
	return c.post(ctx, "/create-wallet-if-not-exists", map[string]any{"user_id": userID}, nil)
}

// Rate returns the market rate of the configured coin in currency.
func (c *Client) Rate(ctx context.Context, currency string) (decimal.Decimal, error) {
	var rate decimal.Decimal
	if err := c.get(ctx, "/rate", url.Values{"currency": {currency}}, &rate); err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var s Settings
	if err := c.get(ctx, "/settings", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// WithdrawCommission quotes the network fee for withdrawing amount.
func (c *Client) WithdrawCommission(ctx context.Context, amount decimal.Decimal) (*Commission, error) {
	var cm Commission
	if err := c.get(ctx, "/commission", url.Values{"amount": {amount.String()}}, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// ValidateAddress asks the node whether address is well-formed.
func (c *Client) ValidateAddress(ctx context.Context, address string) (bool, error) {
	var resp struct {
		IsValid bool `json:"is_valid"`
	}
	if err := c.get(ctx, "/address-validation/"+url.PathEscape(address), nil, &resp); err != nil {
		return false, err
	}
	return resp.IsValid, nil
}

// SendTransaction queues an on-chain withdrawal and waits for the API to accept it.
func (c *Client) SendTransaction(ctx context.Context, req SendTransactionRequest) error {
	return c.post(ctx, "/send-transaction", req, nil)
}

// DepositRub requests a fiat deposit QR code, base64 encoded.
func (c *Client) DepositRub(ctx context.Context, userID int64) (string, error) {
	var resp struct {
		QR string `json:"qrBase64"`
	}
	if err := c.post(ctx, "/deposit-rub", map[string]any{"user_id": userID}, &resp); err != nil {
		return "", err
	}
	return resp.QR, nil
}

func (c *Client) Reports(ctx context.Context, userID int64) (Reports, error) {
	var r Reports
	if err := c.get(ctx, "/reports/"+itoa(userID), nil, &r); err != nil {
		return nil, err
	}
	return r, nil
}
