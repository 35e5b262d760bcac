package backup

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"nodeconductor/internal/database"
	"nodeconductor/internal/eventbus"
	"nodeconductor/internal/types"
	"nodeconductor/logger"
	"time"
)

// ErrNotDue is returned when a schedule is inactive or its trigger time has
// not come yet, usually because another worker already fired it.
var ErrNotDue = errors.New("backup schedule is not due")

type Executor struct {
	schedules database.BackupScheduleRepository
	backups   database.BackupRepository
	lifecycle *Lifecycle
	bus       eventbus.Bus
}

func NewExecutor(schedules database.BackupScheduleRepository, backups database.BackupRepository,
	lifecycle *Lifecycle, bus eventbus.Bus) *Executor {
	return &Executor{
		schedules: schedules,
		backups:   backups,
		lifecycle: lifecycle,
		bus:       bus,
	}
}

// ListDue returns the active schedules whose trigger time is not after now.
func (e *Executor) ListDue(ctx context.Context, now time.Time) ([]*types.BackupSchedule, error) {
	return e.schedules.FindDue(ctx, now)
}

// Execute fires a due schedule: it records a new backup and advances the
// trigger time atomically, starts the backup, then retires the backups the
// schedule no longer keeps. When the backup cannot be started nothing is
// retired and the start error is returned with the created backup.
func (e *Executor) Execute(ctx context.Context, scheduleID uuid.UUID, now time.Time, actor string) (*types.Backup, error) {
	now = now.UTC()

	var (
		schedule *types.BackupSchedule
		bk       *types.Backup
	)
	err := e.schedules.WithLock(ctx, scheduleID, func(l database.Locked) error {
		if !l.Schedule.IsDue(now) {
			return ErrNotDue
		}

		bk = types.NewBackup(l.Schedule.BackupSource, l.Schedule, now)
		bk.KeptUntil = l.Schedule.KeptUntil(now)
		if err := l.Backups.Create(ctx, bk); err != nil {
			return errors.Wrap(err, "failed to create backup")
		}

		if err := l.Schedule.RecomputeNextTrigger(now); err != nil {
			return err
		}
		if err := l.Schedules.Save(ctx, l.Schedule); err != nil {
			return errors.Wrap(err, "failed to advance backup schedule")
		}

		schedule = l.Schedule
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.publish(schedule, actor)

	// a backup that never started holds no artifact, retiring against it
	// would delete good backups
	if err := e.lifecycle.StartBackup(ctx, bk, actor); err != nil {
		logger.Error("failed to start scheduled backup",
			zap.String("schedule", schedule.ID.String()),
			zap.String("backup", bk.ID.String()),
			zap.Error(err))
		return bk, err
	}

	return bk, e.retire(ctx, schedule, now, actor)
}

// RunDue executes every due schedule. A failing schedule does not stop the
// others; it returns the number of schedules fired.
func (e *Executor) RunDue(ctx context.Context, now time.Time) (int, error) {
	due, err := e.ListDue(ctx, now)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list due backup schedules")
	}

	fired := 0
	for _, schedule := range due {
		_, err := e.Execute(ctx, schedule.ID, now, eventbus.SystemActor)
		if errors.Is(err, ErrNotDue) {
			continue
		}
		if err != nil {
			logger.Error("backup schedule execution failed",
				zap.String("schedule", schedule.ID.String()),
				zap.Error(err))
		}
		fired++
	}
	return fired, nil
}

func (e *Executor) retire(ctx context.Context, schedule *types.BackupSchedule, now time.Time, actor string) error {
	backups, err := e.backups.FindByScheduleID(ctx, schedule.ID)
	if err != nil {
		return errors.Wrap(err, "failed to fetch backups of schedule")
	}

	var errs error
	for _, bk := range SelectRetired(backups, schedule.MaximalNumberOfBackups, now) {
		logger.Info("retiring backup",
			zap.String("schedule", schedule.ID.String()),
			zap.String("backup", bk.ID.String()),
			zap.Bool("expired", bk.IsExpired(now)))
		if err := e.lifecycle.StartDeletion(ctx, bk, actor); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (e *Executor) publish(schedule *types.BackupSchedule, actor string) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{
		Type:       eventbus.ScheduleExecuted,
		Message:    fmt.Sprintf("Backup schedule %s has been executed", schedule.ID),
		Actor:      actor,
		ScheduleID: &schedule.ID,
		SourceID:   &schedule.BackupSourceID,
	})
}
