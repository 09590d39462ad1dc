package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"vidnest/accounts/internal/queue"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, task queue.Task) error
}

// Scheduler periodically asks the media worker to sweep orphaned uploads.
type Scheduler struct {
	cron     *cron.Cron
	queue    Enqueuer
	schedule string
	log      zerolog.Logger
}

func NewScheduler(queue Enqueuer, schedule string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		queue:    queue,
		schedule: schedule,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil || s.schedule == "" {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.enqueueSweep); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron and waits up to five seconds for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.queue.Enqueue(ctx, queue.Task{Type: queue.TaskSweep, Reason: "scheduled"}); err != nil {
		s.log.Error().Err(err).Msg("enqueue sweep failed")
	}
}
