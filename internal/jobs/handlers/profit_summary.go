package handlers

import (
	"context"

	"github.com/hibiken/asynq"
)

// ProfitPoster posts the balance summary to the profits chat.
type ProfitPoster interface {
	PostProfit(ctx context.Context) error
}

type ProfitSummaryHandler struct {
	poster ProfitPoster
}

func NewProfitSummaryHandler(p ProfitPoster) *ProfitSummaryHandler {
	return &ProfitSummaryHandler{poster: p}
}

func (h *ProfitSummaryHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	return h.poster.PostProfit(ctx)
}
