// Package schedule runs a job on a cron expression. It backs
// `wreckit watch`, which re-runs the batch on the configured schedule.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/thruflo/wreckit/internal/logging"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron parses a five-field cron expression or a descriptor such as
// "@hourly" or "@every 30m".
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// Job is one scheduled run.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a schedule. Runs never overlap: a tick that
// arrives while the previous run is still going is skipped.
type Scheduler struct {
	expr  string
	sched cron.Schedule
	job   Job
	log   *logging.Logger

	mu      sync.Mutex
	lastRun time.Time
	runs    int
}

// New creates a Scheduler for expr.
func New(expr string, job Job, log *logging.Logger) (*Scheduler, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Default()
	}
	return &Scheduler{expr: expr, sched: sched, job: job, log: log.Named("schedule")}, nil
}

// Next returns the first scheduled time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

// LastRun returns when the job last started and how many times it ran.
func (s *Scheduler) LastRun() (time.Time, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.runs
}

// Run blocks until ctx is cancelled, running the job on every tick. When
// immediately is set the job also runs once at start. It waits for an
// in-flight run to return before it returns.
func (s *Scheduler) Run(ctx context.Context, immediately bool) error {
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cronLogger{s.log}),
	)
	// One wrapper shared by the immediate run and the ticks.
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cronLogger{s.log})).Then(cron.FuncJob(func() {
		s.runOnce(ctx)
	}))
	c.Schedule(s.sched, wrapped)

	if immediately {
		wrapped.Run()
	}
	if ctx.Err() != nil {
		return nil
	}

	s.log.Info("scheduler started", "cron", s.expr, "next", s.Next(time.Now()).Format(time.RFC3339))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	s.lastRun = time.Now()
	s.runs++
	s.mu.Unlock()

	if err := s.job(ctx); err != nil {
		s.log.Error("scheduled run failed", "error", err)
	}
}

// cronLogger adapts logging.Logger to cron.Logger.
type cronLogger struct {
	log *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
