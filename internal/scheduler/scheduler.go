// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of scheduled work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs.
type Scheduler struct {
	cron *cron.Cron
	l    *zap.Logger
}

// New creates a scheduler. Schedules accept an optional seconds field and
// descriptors such as "@every 1m".
func New(l *zap.Logger) *Scheduler {
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	return &Scheduler{
		cron: cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		l:    l.With(zap.String("component", "scheduler")),
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.l.Info("scheduler stopped")
}

// AddJob registers job with a cron schedule, e.g. "@every 30s" or "0 */5 * * * *".
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.l.Debug("running job", zap.String("job", job.Name()))

		if err := job.Run(); err != nil {
			s.l.Error("job failed", zap.String("job", job.Name()), zap.Error(err))
			return
		}
		s.l.Debug("job completed", zap.String("job", job.Name()))
	})
	if err != nil {
		return errors.Wrapf(err, "schedule job %s", job.Name())
	}

	s.l.Info("job registered", zap.String("schedule", schedule), zap.String("job", job.Name()))
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.l.Info("running job immediately", zap.String("job", job.Name()))
	return job.Run()
}
