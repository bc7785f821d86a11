package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Scheduler registers the periodic asynq tasks.
type Scheduler interface {
	RegisterTasks() error
	Run()
	Shutdown()
}

type scheduler struct {
	asynqScheduler *asynq.Scheduler
	profitInterval time.Duration
	log            *slog.Logger
}

// NewScheduler builds the periodic scheduler. profitInterval spaces the profit summaries.
func NewScheduler(redisOpt asynq.RedisConnOpt, profitInterval time.Duration, log *slog.Logger) Scheduler {
	if profitInterval <= 0 {
		profitInterval = 15 * time.Minute
	}
	return &scheduler{
		asynqScheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC}),
		profitInterval: profitInterval,
		log:            log,
	}
}

func (s *scheduler) RegisterTasks() error {
	spec := fmt.Sprintf("@every %s", s.profitInterval)
	if _, err := s.asynqScheduler.Register(spec, NewProfitSummaryTask(), profitSummaryOptions(s.profitInterval)...); err != nil {
		return fmt.Errorf("jobs: register profit summary: %w", err)
	}

	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: registered profit summary task", slog.String("spec", spec))
	}

	return nil
}

// profitSummaryOptions keeps at most one summary per interval in the queue, so a backlog
// after downtime does not post the same profit twice.
func profitSummaryOptions(interval time.Duration) []asynq.Option {
	return []asynq.Option{asynq.Unique(interval)}
}

func (s *scheduler) Run() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: starting")
	}

	go func() {
		if err := s.asynqScheduler.Run(); err != nil && s.log != nil {
			s.log.ErrorContext(context.Background(), "scheduler: run failed", "error", err)
		}
	}()
}

func (s *scheduler) Shutdown() {
	if s.log != nil {
		s.log.InfoContext(context.Background(), "scheduler: shutting down")
	}

	s.asynqScheduler.Shutdown()
}
