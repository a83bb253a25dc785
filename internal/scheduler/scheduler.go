// Package scheduler run periodic maintenance jobs of the API.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// QuotaResetter start new billing period of usage counters
type QuotaResetter interface {
	ResetPeriod(ctx context.Context, now time.Time) (int, error)
}

// ExpiredCleaner drop expired entries of an in-memory store
type ExpiredCleaner interface {
	CleanUpExpired()
}

// Scheduler wraps robfig/cron and own the maintenance jobs.
type Scheduler struct {
	cron      *cron.Cron
	quota     QuotaResetter
	blacklist ExpiredCleaner
	resetSpec string
	log       *logrus.Entry
}

// CleanupSpec is how often expired blacklist entries are dropped
const CleanupSpec = "@every 10m"

// New create scheduler. blacklist may be nil when revoked tokens live in redis.
func New(quota QuotaResetter, blacklist ExpiredCleaner, resetSpec string, log *logrus.Entry) *Scheduler {
	if resetSpec == "" {
		resetSpec = "@monthly"
	}
	if log == nil {
		log = logrus.WithField("component", "scheduler")
	}
	return &Scheduler{
		cron:      cron.New(cron.WithLogger(cron.PrintfLogger(log))),
		quota:     quota,
		blacklist: blacklist,
		resetSpec: resetSpec,
		log:       log,
	}
}

// Start registers the jobs and starts the scheduler. Counters left over from a previous
// period are reset right away so a restart never skips a reset.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.resetSpec, func() { s.ResetQuota(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc %q: %w", s.resetSpec, err)
	}
	if s.blacklist != nil {
		if _, err := s.cron.AddFunc(CleanupSpec, s.blacklist.CleanUpExpired); err != nil {
			return fmt.Errorf("cron.AddFunc %q: %w", CleanupSpec, err)
		}
	}

	s.cron.Start()
	s.log.WithFields(logrus.Fields{"quota_reset": s.resetSpec, "billing_period": "calendar month"}).Info("cron started")

	go s.ResetQuota(ctx)
	return nil
}

// ResetQuota run one reset of usage counters
func (s *Scheduler) ResetQuota(ctx context.Context) {
	n, err := s.quota.ResetPeriod(ctx, time.Now())
	if err != nil {
		s.log.WithError(err).Error("quota reset failed")
		return
	}
	if n > 0 {
		s.log.WithField("reset", n).Info("usage counters moved to new period")
	}
}

// Entries count registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Stop gracefully shuts down the scheduler and wait for running job.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}
