package notify

import (
	"context"
	"log/slog"

	"github.com/Proton-105/skyexchange-bot/internal/composer"
	apperrors "github.com/Proton-105/skyexchange-bot/internal/errors"
	"github.com/Proton-105/skyexchange-bot/pkg/metrics"
)

// Notifier sends replies to chats other than the one being answered.
type Notifier struct {
	sender Sender
	queue  *Queue
	log    *slog.Logger
}

func NewNotifier(sender Sender, queue *Queue, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{sender: sender, queue: queue, log: log.With(slog.String("component", "notifier"))}
}

// Notify delivers r once and queues it for retry on failure. Delivery problems are not
// returned to the caller.
func (n *Notifier) Notify(ctx context.Context, chatID int64, r composer.Response) error {
	if chatID == 0 || r.Empty() {
		return nil
	}
	m := FromResponse(chatID, r)
	err := n.sender.Send(ctx, m)
	if err == nil {
		metrics.RecordDelivery(queueUser, "sent")
		return nil
	}
	if Permanent(err) {
		metrics.RecordDelivery(queueUser, "dropped")
		n.log.Info("recipient unreachable", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return nil
	}
	n.log.Warn("delivery queued", slog.Any("error", apperrors.NewDeliveryError(chatID, err)))
	if n.queue != nil {
		m.Tries = 1
		n.queue.Push(m)
	}
	return nil
}

// Send delivers r once and returns the delivery error as is.
func (n *Notifier) Send(ctx context.Context, chatID int64, r composer.Response) error {
	if chatID == 0 || r.Empty() {
		return nil
	}
	if err := n.sender.Send(ctx, FromResponse(chatID, r)); err != nil {
		return apperrors.NewDeliveryError(chatID, err)
	}
	return nil
}

// Text sends plain service text once without queueing.
func (n *Notifier) Text(ctx context.Context, chatID int64, text string) error {
	return n.Send(ctx, chatID, composer.Response{Text: text})
}
