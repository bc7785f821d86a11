// Package notify delivers messages outside of the request/response cycle: relay notices,
// messages to counterparties and posts into service chats. Failed deliveries are retried
// from in-memory queues swept by the scheduler.
package notify

import (
	"bytes"
	"context"
	"errors"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/skyexchange-bot/internal/composer"
)

// Message is one outbound delivery. Tries counts failed attempts so far.
type Message struct {
	ChatID   int64
	Text     string
	Markup   *telebot.ReplyMarkup
	Document *composer.Attachment
	Tries    int
}

// FromResponse addresses a composed reply to chatID.
func FromResponse(chatID int64, r composer.Response) Message {
	return Message{ChatID: chatID, Text: r.Text, Markup: r.Markup, Document: r.Attachment}
}

// Sender performs a single delivery attempt.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// botAPI is the part of *telebot.Bot used for sending.
type botAPI interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelebotSender sends through a telebot bot. Text goes out in HTML parse mode.
type TelebotSender struct {
	bot botAPI
}

func NewTelebotSender(bot botAPI) *TelebotSender {
	return &TelebotSender{bot: bot}
}

func (s *TelebotSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chat := &telebot.Chat{ID: m.ChatID}
	if m.Document != nil {
		if _, err := s.bot.Send(chat, Attachment(m.Document, m.Document.Caption)); err != nil {
			return err
		}
	}
	if m.Text == "" {
		return nil
	}
	_, err := s.bot.Send(chat, m.Text, &telebot.SendOptions{
		ParseMode:             telebot.ModeHTML,
		ReplyMarkup:           m.Markup,
		DisableWebPagePreview: true,
	})
	return err
}

// Attachment converts a composed attachment into something telebot can send.
func Attachment(a *composer.Attachment, caption string) telebot.Sendable {
	file := telebot.FromURL(a.URL)
	if a.URL == "" {
		file = telebot.FromReader(bytes.NewReader(a.Content))
	}
	if a.Kind == composer.KindPhoto {
		return &telebot.Photo{File: file, Caption: caption}
	}
	return &telebot.Document{File: file, FileName: a.Name, Caption: caption}
}

// Permanent reports whether retrying a delivery can never succeed.
func Permanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, telebot.ErrBlockedByUser) ||
		errors.Is(err, telebot.ErrUserIsDeactivated) ||
		errors.Is(err, telebot.ErrNotStartedByUser) ||
		errors.Is(err, telebot.ErrChatNotFound) {
		return true
	}
	return ParseError(err)
}

// ParseError reports whether Telegram rejected the markup of the text.
func ParseError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "can't parse entities")
}
