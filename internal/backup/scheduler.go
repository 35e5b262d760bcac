package backup

import (
	"context"
	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"nodeconductor/internal/tasks"
	"nodeconductor/logger"
	"time"
)

type (
	// Intervals of the periodic jobs run by the Scheduler.
	Intervals struct {
		Trigger   time.Duration
		Poll      time.Duration
		ResultTTL time.Duration
	}

	// Scheduler periodically fires due backup schedules, polls in-flight
	// backups and purges expired task results.
	Scheduler struct {
		scheduler gocron.Scheduler
		executor  *Executor
		lifecycle *Lifecycle
		pool      *tasks.Pool
		intervals Intervals
		now       func() time.Time
	}
)

const (
	jobTrigger = "trigger-due-schedules"
	jobPoll    = "poll-in-flight-backups"
	jobPurge   = "purge-task-results"
)

func NewScheduler(executor *Executor, lifecycle *Lifecycle, pool *tasks.Pool, intervals Intervals) (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLimitConcurrentJobs(10, gocron.LimitModeWait))
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		scheduler: scheduler,
		executor:  executor,
		lifecycle: lifecycle,
		pool:      pool,
		intervals: intervals,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start registers the periodic jobs and starts running them. Jobs stop when
// Shutdown is called.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name     string
		interval time.Duration
		task     func(ctx context.Context) error
	}{
		{name: jobTrigger, interval: s.intervals.Trigger, task: s.trigger},
		{name: jobPoll, interval: s.intervals.Poll, task: s.poll},
		{name: jobPurge, interval: s.intervals.ResultTTL, task: s.purge},
	}

	for _, next := range jobs {
		if next.interval <= 0 {
			return errors.Errorf("job %s needs a positive interval", next.name)
		}
		job, err := s.scheduler.NewJob(
			gocron.DurationJob(next.interval),
			gocron.NewTask(s.run, ctx, next.name, next.task),
			gocron.WithName(next.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()))
		if err != nil {
			return errors.Wrapf(err, "failed to schedule %s", next.name)
		}

		logger.Info("periodic job queued",
			zap.String("name", job.Name()),
			zap.Duration("interval", next.interval))
	}

	s.scheduler.Start()
	return nil
}

func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) run(ctx context.Context, name string, task func(ctx context.Context) error) {
	if err := task(ctx); err != nil {
		logger.Error("periodic job returned error",
			zap.String("name", name),
			zap.Error(err))
	}
}

func (s *Scheduler) trigger(ctx context.Context) error {
	fired, err := s.executor.RunDue(ctx, s.now())
	if fired > 0 {
		logger.Debug("backup schedules fired", zap.Int("count", fired))
	}
	return err
}

func (s *Scheduler) poll(ctx context.Context) error {
	return s.lifecycle.PollInFlight(ctx)
}

func (s *Scheduler) purge(ctx context.Context) error {
	return s.pool.Purge(ctx, s.intervals.ResultTTL)
}
