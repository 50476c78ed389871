// Package scheduler runs periodic housekeeping on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 30 * time.Second

type banSweeper interface {
	ClearExpiredBans(ctx context.Context, now time.Time) (int64, error)
}

type pruner interface {
	Prune() int
}

// BanSweepJob lifts bans whose expiry has passed.
type BanSweepJob struct {
	users  banSweeper
	logger *zap.Logger
	now    func() time.Time
}

// NewBanSweepJob creates the job.
func NewBanSweepJob(users banSweeper, logger *zap.Logger) *BanSweepJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BanSweepJob{users: users, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Run implements cron.Job.
func (j *BanSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	cleared, err := j.users.ClearExpiredBans(ctx, j.now())
	if err != nil {
		j.logger.Warn("ban sweep failed", zap.Error(err))
		return
	}
	if cleared > 0 {
		j.logger.Info("expired bans cleared", zap.Int64("count", cleared))
	}
}

// BlocklistPruneJob drops expired entries from an in-process token blocklist.
type BlocklistPruneJob struct {
	blocklist pruner
	logger    *zap.Logger
}

// NewBlocklistPruneJob creates the job.
func NewBlocklistPruneJob(blocklist pruner, logger *zap.Logger) *BlocklistPruneJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlocklistPruneJob{blocklist: blocklist, logger: logger}
}

// Run implements cron.Job.
func (j *BlocklistPruneJob) Run() {
	if removed := j.blocklist.Prune(); removed > 0 {
		j.logger.Debug("blocklist pruned", zap.Int("removed", removed))
	}
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates an idle scheduler running in UTC.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		logger: logger,
	}
}

// Add registers job under spec. Standard five-field specs and descriptors such as @hourly are accepted.
func (s *Scheduler) Add(name, spec string, job cron.Job) error {
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return err
	}
	s.logger.Info("job scheduled", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// Len reports how many jobs are registered.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
