package api

import (
	"context"
	"net/url"
)

// GetUser fetches a user by internal id.
func (c *Client) GetUser(ctx context.Context, userID int64) (*User, error) {
	var u User
	if err := c.get(ctx, "/user/"+itoa(userID), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByTelegram fetches a user by Telegram id.
func (c *Client) GetUserByTelegram(ctx context.Context, telegramID int64) (*User, error) {
	var u User
	q := url.Values{"telegram_id": {itoa(telegramID)}}
	if err := c.get(ctx, "/user", q, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserInfo fetches a public profile with stats by nickname.
func (c *Client) GetUserInfo(ctx context.Context, nickname string) (*UserInfo, error) {
	var u UserInfo
	if err := c.get(ctx, "/user-info/"+url.PathEscape(nickname), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UserExists(ctx context.Context, telegramID int64) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	q := url.Values{"telegram_id": {itoa(telegramID)}}
	if err := c.get(ctx, "/user-exists", q, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *Client) NicknameExists(ctx context.Context, nickname string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.get(ctx, "/user-exists/"+url.PathEscape(nickname), nil, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// NewUser registers a Telegram account. campaign and refCode are optional.
func (c *Client) NewUser(ctx context.Context, telegramID int64, campaign, refCode string) (*User, error) {
	body := map[string]*string{"campaign": nilIfEmpty(campaign), "ref_code": nilIfEmpty(refCode)}
	var u User
	path := "/new-user?telegram_id=" + itoa(telegramID)
	if err := c.post(ctx, path, body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, upd UserUpdate) error {
	return c.patch(ctx, "/user", upd, nil)
}

func (c *Client) UserStat(ctx context.Context, userID int64) (*UserStat, error) {
	var s UserStat
	if err := c.get(ctx, "/user-stat/"+itoa(userID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Affiliate(ctx context.Context, userID int64) (*Affiliate, error) {
	var a Affiliate
	if err := c.get(ctx, "/affiliate/"+itoa(userID), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// IsWebBound reports whether the Telegram account is linked to a web account.
func (c *Client) IsWebBound(ctx context.Context, userID int64) (bool, error) {
	var resp struct {
		Status bool `json:"status"`
	}
	if err := c.get(ctx, "/bind-status/"+itoa(userID), nil, &resp); err != nil {
		return false, err
	}
	return resp.Status, nil
}

// UserMessagesBanned reports whether targetID blocked messages from userID.
func (c *Client) UserMessagesBanned(ctx context.Context, userID, targetID int64) (bool, error) {
	var resp struct {
		IsBaned bool `json:"is_baned"`
	}
	q := url.Values{"user_id": {itoa(userID)}}
	if err := c.get(ctx, "/usermessages-ban-status/"+itoa(targetID), q, &resp); err != nil {
		return false, err
	}
	return resp.IsBaned, nil
}

func (c *Client) SetUserMessagesBan(ctx context.Context, userID, targetID int64, status bool) error {
	body := map[string]any{"user_id": userID, "target_user_id": targetID, "status": status}
	return c.patch(ctx, "/usermessages-ban-status", body, nil)
}

type newUserMessage struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
	MediaID    *int64 `json:"media_id"`
}

// SendUserMessage relays a text message between two users.
func (c *Client) SendUserMessage(ctx context.Context, senderID, receiverID int64, text string) error {
	return c.post(ctx, "/new-usermessage", newUserMessage{SenderID: senderID, ReceiverID: receiverID, Message: text}, nil)
}

// SendUserMedia relays a previously uploaded media item between two users.
func (c *Client) SendUserMedia(ctx context.Context, senderID, receiverID, mediaID int64) error {
	return c.post(ctx, "/new-usermessage", newUserMessage{SenderID: senderID, ReceiverID: receiverID, MediaID: &mediaID}, nil)
}

func (c *Client) RateUser(ctx context.Context, from, to int64, dealID, method string) error {
	body := map[string]any{"from": from, "to": to, "method": method, "deal_id": dealID}
	return c.patch(ctx, "/user-rate", body, nil)
}

func (c *Client) AllTelegramIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := c.get(ctx, "/all_telegram_ids", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SaveMessage archives a chat message for support.
func (c *Client) SaveMessage(ctx context.Context, telegramID int64, messageID int, text string, fromBot bool) error {
	body := map[string]any{"message_id": messageID, "text": text, "bot": fromBot}
	return c.post(ctx, "/message?telegram_id="+itoa(telegramID), body, nil)
}

// ReportError forwards a user-visible failure to the API error log.
func (c *Client) ReportError(ctx context.Context, telegramID int64, text string) error {
	body := map[string]any{"text": text, "telegram_id": telegramID}
	return c.post(ctx, "/error", body, nil)
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
