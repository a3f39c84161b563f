// Package sched wraps gocron for one-shot delayed jobs such as the
// registration kick check.
package sched

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/m3rciful/studbot/core/logger"
	"log/slog"
)

// Delayer runs a function once after a delay. The interface exists so flows
// can be tested with a captured scheduler instead of real timers.
type Delayer interface {
	Once(name string, delay time.Duration, fn func()) error
	Cancel(name string)
	Stop()
}

// Scheduler is the gocron backed Delayer used in production.
type Scheduler struct {
	s *gocron.Scheduler
}

// New starts an asynchronous scheduler.
func New() *Scheduler {
	s := gocron.NewScheduler(time.Local)
	s.StartAsync()
	return &Scheduler{s: s}
}

// Once schedules fn to run a single time after delay. The name tags the job
// so it can be cancelled before it fires.
func (x *Scheduler) Once(name string, delay time.Duration, fn func()) error {
	runAt := time.Now().Add(delay)
	_, err := x.s.Every(delay).LimitRunsTo(1).StartAt(runAt).Tag(name).Do(func() {
		fn()
		// A fired job keeps its tag; drop it so the name can be reused.
		_ = x.s.RemoveByTag(name)
	})
	if err != nil {
		logger.SCHED.Error("job schedule failed",
			slog.String("event", "sched.once"),
			slog.String("status", "fail"),
			slog.String("handler", name),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.SCHED.Debug("job scheduled",
		slog.String("event", "sched.once"),
		slog.String("handler", name),
		slog.Duration("delay", delay),
	)
	return nil
}

// Cancel removes a pending job by name. Cancelling an unknown name is a no-op.
func (x *Scheduler) Cancel(name string) {
	_ = x.s.RemoveByTag(name)
}

// Stop halts the scheduler and drops all pending jobs.
func (x *Scheduler) Stop() {
	x.s.Stop()
}
