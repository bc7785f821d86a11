package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/jobs"
)

type fakeReminder struct {
	userID int64
	dealID string
	err    error
}

func (f *fakeReminder) DisputeReminder(_ context.Context, userID int64, dealID string) error {
	f.userID, f.dealID = userID, dealID
	return f.err
}

func TestDisputeReminderHandler(t *testing.T) {
	task, err := jobs.NewDisputeReminderTask(9, "DEALDEAL01")
	require.NoError(t, err)

	r := &fakeReminder{}
	require.NoError(t, NewDisputeReminderHandler(r, nil).ProcessTask(context.Background(), task))
	assert.Equal(t, int64(9), r.userID)
	assert.Equal(t, "DEALDEAL01", r.dealID)
}

func TestDisputeReminderHandlerPropagatesErrors(t *testing.T) {
	task, err := jobs.NewDisputeReminderTask(9, "DEALDEAL01")
	require.NoError(t, err)

	r := &fakeReminder{err: errors.New("api down")}
	assert.EqualError(t, NewDisputeReminderHandler(r, nil).ProcessTask(context.Background(), task), "api down")
}

func TestDisputeReminderHandlerSkipsBadPayload(t *testing.T) {
	task := asynq.NewTask(jobs.TaskTypeDisputeReminder, []byte("{"))
	err := NewDisputeReminderHandler(&fakeReminder{}, nil).ProcessTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type fakePoster struct{ calls int }

func (f *fakePoster) PostProfit(context.Context) error {
	f.calls++
	return nil
}

func TestProfitSummaryHandler(t *testing.T) {
	p := &fakePoster{}
	require.NoError(t, NewProfitSummaryHandler(p).ProcessTask(context.Background(), jobs.NewProfitSummaryTask()))
	assert.Equal(t, 1, p.calls)
}
