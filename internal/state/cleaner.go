package state

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultWizardTimeout is how long a wizard may wait for the next answer.
const DefaultWizardTimeout = 30 * time.Minute

// AbandonFunc is told about every wizard the cleaner dropped.
type AbandonFunc func(ctx context.Context, abandoned *UserState)

// Cleaner drops wizards nobody answered within the timeout, well before the storage TTL
// removes the key silently.
type Cleaner struct {
	storage   Storage
	timeout   time.Duration
	onAbandon AbandonFunc
	log       *slog.Logger
	now       func() time.Time
}

func NewCleaner(storage Storage, timeout time.Duration, onAbandon AbandonFunc, log *slog.Logger) *Cleaner {
	if timeout <= 0 {
		timeout = DefaultWizardTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{
		storage:   storage,
		timeout:   timeout,
		onAbandon: onAbandon,
		log:       log.With(slog.String("component", "state_cleaner")),
		now:       time.Now,
	}
}

// Sweep clears idle records and wizards older than the timeout. It returns the number of
// abandoned wizards.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	states, err := c.storage.GetAllStates(ctx)
	if err != nil {
		return 0, fmt.Errorf("state cleaner: list: %w", err)
	}

	abandoned := 0
	for _, st := range states {
		if ctx.Err() != nil {
			return abandoned, ctx.Err()
		}
		idle := st.Current() == StateIdle
		if !idle && c.now().Sub(st.UpdatedAt) < c.timeout {
			continue
		}
		if err := c.storage.ClearState(ctx, st.UserID); err != nil {
			c.log.Error("failed to clear state", slog.Int64("user_id", st.UserID), slog.Any("error", err))
			continue
		}
		if idle {
			continue
		}
		abandoned++
		c.log.Info("wizard abandoned",
			slog.Int64("user_id", st.UserID),
			slog.String("state", string(st.CurrentState)),
			slog.Time("updated_at", st.UpdatedAt))
		if c.onAbandon != nil {
			c.onAbandon(ctx, st)
		}
	}
	return abandoned, nil
}

// Run is the jobs.Poller form of Sweep.
func (c *Cleaner) Run(ctx context.Context) error {
	_, err := c.Sweep(ctx)
	return err
}
