package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeManager struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (m *fakeManager) Enqueue(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tasks = append(m.tasks, task)
	m.opts = append(m.opts, opts)
	return &asynq.TaskInfo{ID: "t1"}, nil
}

func (m *fakeManager) Close() error { return nil }

func TestScheduleDisputeReminder(t *testing.T) {
	m := &fakeManager{}
	r := NewReminders(m, 0, nil)

	require.NoError(t, r.ScheduleDisputeReminder(context.Background(), 7, "ABCDEFGHIJ"))
	require.Len(t, m.tasks, 1)
	assert.Equal(t, TaskTypeDisputeReminder, m.tasks[0].Type())

	var payload DisputeReminderPayload
	require.NoError(t, json.Unmarshal(m.tasks[0].Payload(), &payload))
	assert.Equal(t, DisputeReminderPayload{UserID: 7, DealID: "ABCDEFGHIJ"}, payload)

	require.Len(t, m.opts[0], 1)
	assert.Equal(t, asynq.ProcessInOpt, m.opts[0][0].Type())
	assert.Equal(t, DefaultReminderDelay, m.opts[0][0].Value())
}

func TestScheduleDisputeReminderEnqueueError(t *testing.T) {
	r := NewReminders(&fakeManager{err: errors.New("redis down")}, time.Minute, nil)
	assert.Error(t, r.ScheduleDisputeReminder(context.Background(), 1, "X"))
}

func TestPollerRunsJobs(t *testing.T) {
	p := NewPoller(nil)
	var runs atomic.Int32
	p.Add("tick", time.Second, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	p.Add("disabled", 0, func(context.Context) error {
		t.Error("disabled job ran")
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestPollerSkipsOverlappingRuns(t *testing.T) {
	p := NewPoller(nil)
	var running, overlaps atomic.Int32
	p.Add("slow", time.Second, func(ctx context.Context) error {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer running.Add(-1)
		select {
		case <-time.After(1500 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3500*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	assert.Zero(t, overlaps.Load())
}

func TestProfitSummaryIsUniquePerInterval(t *testing.T) {
	opts := profitSummaryOptions(15 * time.Minute)
	require.Len(t, opts, 1)
	assert.Equal(t, asynq.UniqueOpt, opts[0].Type())
	assert.Equal(t, 15*time.Minute, opts[0].Value())
}
