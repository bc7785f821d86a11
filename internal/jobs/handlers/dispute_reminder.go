package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/skyexchange-bot/internal/jobs"
	"github.com/Proton-105/skyexchange-bot/pkg/logger"
)

// Reminder sends the deferred dispute notice.
type Reminder interface {
	DisputeReminder(ctx context.Context, userID int64, dealID string) error
}

type DisputeReminderHandler struct {
	reminder Reminder
	log      *slog.Logger
}

func NewDisputeReminderHandler(r Reminder, log *slog.Logger) *DisputeReminderHandler {
	return &DisputeReminderHandler{reminder: r, log: log}
}

func (h *DisputeReminderHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.DisputeReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "dispute reminder: failed to decode payload", slog.String("task_type", t.Type()), slog.String("error", err.Error()))
		}
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	ctx = logger.WithCorrelationID(ctx)
	if h.log != nil {
		h.log.InfoContext(ctx, "sending dispute reminder",
			slog.String("task_type", t.Type()),
			slog.Int64("user_id", payload.UserID),
			slog.String("deal_id", payload.DealID))
	}

	return h.reminder.DisputeReminder(ctx, payload.UserID, payload.DealID)
}
