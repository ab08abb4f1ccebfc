// Package digest sends a periodic earnings summary to the notifier,
// scheduled by a cron expression.
package digest

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jspencer/fieldlink/internal/models"
	"github.com/jspencer/fieldlink/internal/notify"
)

// cronParser accepts standard 5-field cron expressions (minute, hour,
// dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// History is the slice of job history the digest reads. db.Store
// implements it.
type History interface {
	FinishedJobsSince(since time.Time) ([]models.Job, error)
}

// Opts holds configuration for the digest scheduler.
type Opts struct {
	History  History
	Notifier notify.Notifier
	Cron     string // 5-field cron expression
	Out      io.Writer
}

// Scheduler fires an earnings digest on a cron schedule.
type Scheduler struct {
	history  History
	notifier notify.Notifier
	cron     string
	sched    cron.Schedule
	out      io.Writer
	lastRun  time.Time
}

// New creates a Scheduler. The cron expression is parsed once here; Run
// reuses the parsed schedule.
func New(opts Opts) (*Scheduler, error) {
	if opts.History == nil {
		return nil, fmt.Errorf("digest: history is required")
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("digest: notifier is required")
	}
	sched, err := cronParser.Parse(opts.Cron)
	if err != nil {
		return nil, fmt.Errorf("digest: parse cron %q: %w", opts.Cron, err)
	}
	return &Scheduler{
		history:  opts.History,
		notifier: opts.Notifier,
		cron:     opts.Cron,
		sched:    sched,
		out:      opts.Out,
		lastRun:  time.Now(),
	}, nil
}

// untilNext returns the duration from now to the schedule's next fire
// time, never negative.
func (s *Scheduler) untilNext(now time.Time) time.Duration {
	d := s.sched.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Run blocks until ctx is cancelled, firing a digest at each cron tick.
func (s *Scheduler) Run(ctx context.Context) {
	timer := time.NewTimer(s.untilNext(time.Now()))
	defer timer.Stop()

	if s.out != nil {
		fmt.Fprintf(s.out, "Earnings digest scheduled (%s)\n", s.cron)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.fire(ctx)
			timer.Reset(s.untilNext(time.Now()))
		}
	}
}

// fire builds and sends one digest covering the window since the last run.
// A window with no finished jobs is suppressed.
func (s *Scheduler) fire(ctx context.Context) {
	since := s.lastRun
	s.lastRun = time.Now()

	summary, err := s.Build(since)
	if err != nil {
		log.Printf("digest: %v", err)
		return
	}
	if summary == nil {
		return
	}
	if err := s.notifier.Digest(ctx, *summary); err != nil {
		log.Printf("digest: send: %v", err)
	}
}

// Build totals the jobs finished since the given time. Returns nil when
// nothing finished in the window.
func (s *Scheduler) Build(since time.Time) (*notify.Summary, error) {
	jobs, err := s.history.FinishedJobsSince(since)
	if err != nil {
		return nil, fmt.Errorf("load finished jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	summary := notify.Summary{
		Period: fmt.Sprintf("since %s", since.Format("Jan 2 15:04")),
	}
	for _, job := range jobs {
		switch job.Status {
		case models.StatusCompleted:
			summary.Completed++
			summary.Earnings += job.Price
		case models.StatusCancelled, models.StatusExpired:
			summary.Cancelled++
		}
	}
	return &summary, nil
}
