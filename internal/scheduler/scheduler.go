package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is a unit of background work
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs cache maintenance jobs on cron specs
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// NewScheduler initializes a scheduler; a panicking job is logged and recovered
func NewScheduler(log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log)))),
		log:  log,
	}
}

// Schedule registers job under spec, e.g. "@daily" or "@every 1h"
func (s *Scheduler) Schedule(spec string, job Job) error {
	if _, err := s.cron.AddJob(spec, s.wrap(job)); err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, job.Name(), err)
	}
	s.log.Infof("Scheduled job %s (%s)", job.Name(), spec)
	return nil
}

func (s *Scheduler) wrap(job Job) cron.FuncJob {
	return func() {
		start := time.Now()
		if err := job.Run(); err != nil {
			s.log.Errorf("Job %s failed: %v", job.Name(), err)
			return
		}
		s.log.Debugf("Job %s finished in %s", job.Name(), time.Since(start))
	}
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Shutdown stops scheduling and waits for running jobs until ctx is done
func (s *Scheduler) Shutdown(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warnf("Scheduler shutdown: %v", ctx.Err())
	}
}
