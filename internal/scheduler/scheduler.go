// Package scheduler runs Lantern's periodic maintenance on cron expressions.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionSweepSpec runs the idle chat-session sweep every 15 minutes.
const SessionSweepSpec = "*/15 * * * *"

// DefaultSessionIdleTTL is how long a chat session may sit untouched before it is swept.
const DefaultSessionIdleTTL = 2 * time.Hour

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler. Expressions use the standard
// 5 fields (min, hour, dom, month, dow) or descriptors such as "@every 5m".
func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// SessionEvicter drops sessions idle for longer than maxIdle and reports how many went.
type SessionEvicter interface {
	EvictIdle(maxIdle time.Duration) int
}

// SweepSessions runs one eviction pass.
func SweepSessions(e SessionEvicter, maxIdle time.Duration) int {
	n := e.EvictIdle(maxIdle)
	if n > 0 {
		slog.Info("scheduler.SweepSessions: evicted idle sessions", "count", n, "maxIdle", maxIdle)
	} else {
		slog.Debug("scheduler.SweepSessions: nothing to evict", "maxIdle", maxIdle)
	}
	return n
}

// ScheduleSessionSweep registers the idle-session sweep on spec. A non-positive
// maxIdle uses DefaultSessionIdleTTL.
func (s *Scheduler) ScheduleSessionSweep(spec string, e SessionEvicter, maxIdle time.Duration) error {
	if maxIdle <= 0 {
		maxIdle = DefaultSessionIdleTTL
	}
	if err := s.AddJob(spec, func() { SweepSessions(e, maxIdle) }); err != nil {
		return fmt.Errorf("failed to schedule session sweep %q: %w", spec, err)
	}
	slog.Debug("Scheduler.ScheduleSessionSweep: sweep scheduled", "spec", spec, "maxIdle", maxIdle)
	return nil
}
