package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Proton-105/skyexchange-bot/pkg/metrics"
)

// JobFunc is one run of a periodic job.
type JobFunc func(ctx context.Context) error

type pollJob struct {
	name  string
	every time.Duration
	run   JobFunc
}

// Poller runs in-process periodic jobs. A tick is skipped while the previous run of the
// same job is still in flight.
type Poller struct {
	cron *cron.Cron
	jobs []pollJob
	log  *slog.Logger
}

func NewPoller(log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "poller"))
	cl := cronLogger{log: log}
	return &Poller{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// Add registers a job. Jobs with a non-positive interval are ignored.
func (p *Poller) Add(name string, every time.Duration, run JobFunc) {
	if every <= 0 {
		p.log.Warn("job disabled", slog.String("job", name))
		return
	}
	p.jobs = append(p.jobs, pollJob{name: name, every: every, run: run})
}

// Run schedules every job and blocks until ctx is done, then waits for running jobs.
func (p *Poller) Run(ctx context.Context) error {
	for _, j := range p.jobs {
		j := j
		p.cron.Schedule(cron.Every(j.every), cron.FuncJob(func() { p.runJob(ctx, j) }))
		p.log.Info("job scheduled", slog.String("job", j.name), slog.Duration("every", j.every))
	}
	p.cron.Start()

	<-ctx.Done()
	p.log.Info("poller: shutting down")
	<-p.cron.Stop().Done()
	return nil
}

func (p *Poller) runJob(ctx context.Context, j pollJob) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := j.run(ctx)
	metrics.RecordJobRun(j.name, err)
	if err != nil {
		p.log.Error("job failed", slog.String("job", j.name), slog.Duration("took", time.Since(start)), slog.Any("error", err))
		return
	}
	p.log.Debug("job done", slog.String("job", j.name), slog.Duration("took", time.Since(start)))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
