package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Manager describes the minimal queue operations needed by the application.
type Manager interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type manager struct {
	client *asynq.Client
	log    *slog.Logger
}

// NewManager builds a Manager backed by an asynq client.
func NewManager(redisOpt asynq.RedisConnOpt, log *slog.Logger) Manager {
	client := asynq.NewClient(redisOpt)

	return &manager{
		client: client,
		log:    log,
	}
}

func (m *manager) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return m.client.EnqueueContext(ctx, task, opts...)
}

func (m *manager) Close() error {
	return m.client.Close()
}

// Reminders schedules dispute reminders through a Manager.
type Reminders struct {
	manager Manager
	delay   time.Duration
	log     *slog.Logger
}

func NewReminders(m Manager, delay time.Duration, log *slog.Logger) *Reminders {
	if delay <= 0 {
		delay = DefaultReminderDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reminders{manager: m, delay: delay, log: log}
}

// ScheduleDisputeReminder enqueues the reminder to run once the dispute delay has passed.
func (r *Reminders) ScheduleDisputeReminder(ctx context.Context, userID int64, dealID string) error {
	task, err := NewDisputeReminderTask(userID, dealID)
	if err != nil {
		return fmt.Errorf("jobs: build reminder: %w", err)
	}
	info, err := r.manager.Enqueue(ctx, task, asynq.ProcessIn(r.delay))
	if err != nil {
		return fmt.Errorf("jobs: enqueue reminder: %w", err)
	}
	r.log.InfoContext(ctx, "dispute reminder scheduled",
		slog.String("task_id", info.ID),
		slog.String("deal_id", dealID),
		slog.Time("process_at", info.NextProcessAt))
	return nil
}
