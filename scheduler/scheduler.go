// Package scheduler runs the periodic housekeeping jobs of the server.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"loanmanager/database"
	"loanmanager/metrics"
	"loanmanager/models"
)

// Job is a unit of periodic work. Each run gets its own timeout.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner whose jobs never overlap themselves.
type Scheduler struct {
	cron    *cron.Cron
	log     logrus.FieldLogger
	timeout time.Duration
}

func New(log logrus.FieldLogger) *Scheduler {
	logger := cron.PrintfLogger(log)
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		log:     log,
		timeout: 30 * time.Second,
	}
}

// Add registers job under a cron spec such as "@every 1m".
func (s *Scheduler) Add(spec, name string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			s.log.WithError(err).WithField("job", name).Warn("Scheduled job failed")
			return
		}
		s.log.WithFields(logrus.Fields{"job": name, "duration": time.Since(start).String()}).Debug("Scheduled job finished")
	})
	return err
}

func (s *Scheduler) Start() {
	s.log.WithField("jobs", len(s.cron.Entries())).Info("Starting task scheduler")
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs or ctx, whichever ends
// first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out")
	}
}

// RefreshPending sets the pending-applications gauge from the store.
func RefreshPending(store database.Store, m *metrics.Metrics) Job {
	return func(ctx context.Context) error {
		n, err := store.Repos().Loans.CountByStatus(ctx, models.LoanPending)
		if err != nil {
			return err
		}
		m.SetPending(n)
		return nil
	}
}

// Sweeper is anything holding per-client state that can be aged out.
type Sweeper interface {
	Cleanup(maxIdle time.Duration) int
}

// SweepIdle drops client state idle for longer than maxIdle.
func SweepIdle(sw Sweeper, maxIdle time.Duration, log logrus.FieldLogger) Job {
	return func(ctx context.Context) error {
		if n := sw.Cleanup(maxIdle); n > 0 {
			log.WithField("removed", n).Debug("Swept idle rate limiter entries")
		}
		return nil
	}
}
