package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CardExpirer persists the expired status of cards past their expiry date
type CardExpirer interface {
	ExpireCards(ctx context.Context) (int64, error)
}

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cron    *cron.Cron
	expirer CardExpirer
	log     *logrus.Logger
	timeout time.Duration
}

// NewScheduler creates a scheduler evaluating specs in loc
func NewScheduler(expirer CardExpirer, log *logrus.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		expirer: expirer,
		log:     log,
		timeout: time.Minute,
	}
}

// ScheduleExpirySweep registers the expiry sweep with a cron spec such as "@daily"
func (s *Scheduler) ScheduleExpirySweep(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.SweepExpired); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep %q: %w", spec, err)
	}
	s.log.Infof("Expiry sweep scheduled: %s", spec)
	return nil
}

// SweepExpired runs one expiry sweep
func (s *Scheduler) SweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.expirer.ExpireCards(ctx)
	if err != nil {
		s.log.Errorf("Expiry sweep failed: %v", err)
		return
	}
	s.log.Infof("Expiry sweep finished, %d cards updated", n)
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("Scheduler stop timed out")
	}
}
