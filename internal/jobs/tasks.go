package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskTypeDisputeReminder = "dispute:reminder"
	TaskTypeProfitSummary   = "profit:summary"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Queues are the asynq queues with their priorities.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
	QueueLow:      1,
}

// DefaultReminderDelay is how long a delayed dispute stays closed after the deal was paid.
const DefaultReminderDelay = 5 * time.Minute

type DisputeReminderPayload struct {
	UserID int64  `json:"user_id"`
	DealID string `json:"deal_id"`
}

func NewDisputeReminderTask(userID int64, dealID string) (*asynq.Task, error) {
	payload, err := json.Marshal(DisputeReminderPayload{UserID: userID, DealID: dealID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeDisputeReminder, payload, asynq.Queue(QueueCritical), asynq.MaxRetry(3)), nil
}

func NewProfitSummaryTask() *asynq.Task {
	return asynq.NewTask(TaskTypeProfitSummary, nil, asynq.Queue(QueueLow), asynq.MaxRetry(0))
}
