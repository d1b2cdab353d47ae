// Package scheduler runs the backend's periodic jobs: sweeping elapsed
// one-shot reminders and generating nightly reports.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/notexe/companion/internal/config"
	"github.com/notexe/companion/internal/report"
)

// Sweeper expires elapsed reminders.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Reporter generates today's report for recently active devices.
type Reporter interface {
	GenerateActive(ctx context.Context, window time.Duration) (*report.BatchResult, error)
}

// Scheduler owns a cron instance for the configured jobs.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	reporter Reporter
	cfg      config.SchedulerConfig
	log      *logrus.Logger
}

// New creates a scheduler evaluating cron specs in loc. reporter may be nil,
// which disables nightly reports.
func New(cfg config.SchedulerConfig, loc *time.Location, sweeper Sweeper, reporter Reporter, log *logrus.Logger) (*Scheduler, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
		),
		sweeper:  sweeper,
		reporter: reporter,
		cfg:      cfg,
		log:      log,
	}

	if cfg.ExpirySweep != "" && sweeper != nil {
		if _, err := s.cron.AddFunc(cfg.ExpirySweep, s.sweep); err != nil {
			return nil, fmt.Errorf("invalid expiry_sweep schedule %q: %w", cfg.ExpirySweep, err)
		}
	}
	if cfg.DailyReports != "" && reporter != nil {
		if _, err := s.cron.AddFunc(cfg.DailyReports, s.reports); err != nil {
			return nil, fmt.Errorf("invalid daily_reports schedule %q: %w", cfg.DailyReports, err)
		}
	}
	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Run starts the jobs and blocks until ctx is cancelled, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.WithField("jobs", s.Jobs()).Info("scheduler started")
	s.cron.Start()

	<-ctx.Done()

	s.log.Info("scheduler shutting down")
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) sweep() {
	n, err := s.sweeper.SweepExpired(context.Background())
	if err != nil {
		s.log.WithError(err).Error("expiry sweep failed")
		return
	}
	if n > 0 {
		s.log.WithField("expired", n).Info("expiry sweep completed reminders")
	}
}

func (s *Scheduler) reports() {
	days := s.cfg.ActiveDays
	if days <= 0 {
		days = 7
	}
	if _, err := s.reporter.GenerateActive(context.Background(), time.Duration(days)*24*time.Hour); err != nil {
		s.log.WithError(err).Error("nightly reports failed")
	}
}
