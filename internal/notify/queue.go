package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Proton-105/skyexchange-bot/pkg/metrics"
)

// DefaultMaxTries is how many failed attempts a user message gets before it is dropped.
const DefaultMaxTries = 10

const (
	queueUser    = "user"
	queueControl = "control"
)

// Queue holds user messages whose delivery failed. Flush is called periodically by the
// scheduler and never runs concurrently with itself.
type Queue struct {
	sender   Sender
	maxTries int
	delay    time.Duration
	log      *slog.Logger

	mu    sync.Mutex
	items []Message
}

// NewQueue creates a retry queue. delay paces consecutive sends within one sweep.
func NewQueue(sender Sender, maxTries int, delay time.Duration, log *slog.Logger) *Queue {
	if maxTries <= 0 {
		maxTries = DefaultMaxTries
	}
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		sender:   sender,
		maxTries: maxTries,
		delay:    delay,
		log:      log.With(slog.String("component", "notify_queue")),
	}
}

// Push adds a failed message.
func (q *Queue) Push(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	n := len(q.items)
	q.mu.Unlock()
	metrics.SetQueueDepth(queueUser, n)
}

// Len returns the number of waiting messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) take() []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Flush makes one more attempt for every queued message. Messages that fail again are
// requeued until they reach the try limit. On cancellation the unsent rest is requeued.
func (q *Queue) Flush(ctx context.Context) error {
	items := q.take()
	defer func() { metrics.SetQueueDepth(queueUser, q.Len()) }()

	for i, m := range items {
		if m.Tries >= q.maxTries {
			metrics.RecordDelivery(queueUser, "dropped")
			q.log.Warn("message dropped", slog.Int64("chat_id", m.ChatID), slog.Int("tries", m.Tries))
			continue
		}
		if err := q.sender.Send(ctx, m); err != nil {
			if ctx.Err() != nil {
				q.requeue(items[i:])
				return ctx.Err()
			}
			if Permanent(err) {
				metrics.RecordDelivery(queueUser, "dropped")
				q.log.Info("message dropped", slog.Int64("chat_id", m.ChatID), slog.Any("error", err))
				continue
			}
			m.Tries++
			q.requeue([]Message{m})
			metrics.RecordDelivery(queueUser, "retry")
			continue
		}
		metrics.RecordDelivery(queueUser, "sent")
		if !pause(ctx, q.delay) {
			q.requeue(items[i+1:])
			return ctx.Err()
		}
	}
	return nil
}

func (q *Queue) requeue(items []Message) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
}

// ControlQueue holds service chat posts. Each one is retried until it is delivered or
// Telegram rejects its markup.
type ControlQueue struct {
	sender     Sender
	sendDelay  time.Duration
	retryDelay time.Duration
	log        *slog.Logger

	mu    sync.Mutex
	items []Message
}

func NewControlQueue(sender Sender, sendDelay, retryDelay time.Duration, log *slog.Logger) *ControlQueue {
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &ControlQueue{
		sender:     sender,
		sendDelay:  sendDelay,
		retryDelay: retryDelay,
		log:        log.With(slog.String("component", "control_queue")),
	}
}

// Push schedules a post into chatID. A zero chat is ignored.
func (q *ControlQueue) Push(chatID int64, text string) {
	if chatID == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, Message{ChatID: chatID, Text: text})
	n := len(q.items)
	q.mu.Unlock()
	metrics.SetQueueDepth(queueControl, n)
}

func (q *ControlQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Flush delivers everything queued, in order.
func (q *ControlQueue) Flush(ctx context.Context) error {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	defer func() { metrics.SetQueueDepth(queueControl, q.Len()) }()

	for i, m := range items {
		if err := q.deliver(ctx, m); err != nil {
			q.mu.Lock()
			q.items = append(items[i:], q.items...)
			q.mu.Unlock()
			return err
		}
		if !pause(ctx, q.sendDelay) {
			q.mu.Lock()
			q.items = append(items[i+1:], q.items...)
			q.mu.Unlock()
			return ctx.Err()
		}
	}
	return nil
}

// deliver returns an error only when ctx is done.
func (q *ControlQueue) deliver(ctx context.Context, m Message) error {
	for {
		err := q.sender.Send(ctx, m)
		switch {
		case err == nil:
			metrics.RecordDelivery(queueControl, "sent")
			return nil
		case ParseError(err):
			metrics.RecordDelivery(queueControl, "dropped")
			q.log.Error("control message rejected", slog.Int64("chat_id", m.ChatID), slog.Any("error", err))
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		}
		metrics.RecordDelivery(queueControl, "retry")
		q.log.Warn("control message retry", slog.Int64("chat_id", m.ChatID), slog.Any("error", err))
		if !pause(ctx, q.retryDelay) {
			return ctx.Err()
		}
	}
}

// pause waits d and reports false if ctx ended first.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
