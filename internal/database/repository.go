package database

import (
	"context"
	"github.com/google/uuid"
	"nodeconductor/internal/types"
	"time"
)

type BackupSourceRepository interface {
	Save(ctx context.Context, source *types.BackupSource) error
	FindByID(ctx context.Context, id uuid.UUID) (*types.BackupSource, error)
	FindAll(ctx context.Context) ([]*types.BackupSource, error)
}

type BackupScheduleRepository interface {
	Save(ctx context.Context, schedule *types.BackupSchedule) error
	FindByID(ctx context.Context, id uuid.UUID) (*types.BackupSchedule, error)
	FindAll(ctx context.Context) ([]*types.BackupSchedule, error)
	FindDue(ctx context.Context, now time.Time) ([]*types.BackupSchedule, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// WithLock runs fn in a transaction holding an exclusive lock on the
	// schedule row. Repositories in Locked are bound to that transaction.
	WithLock(ctx context.Context, id uuid.UUID, fn func(l Locked) error) error
}

type BackupRepository interface {
	Create(ctx context.Context, bk *types.Backup) error
	Save(ctx context.Context, bk *types.Backup) error
	FindByID(ctx context.Context, id uuid.UUID) (*types.Backup, error)
	FindAll(ctx context.Context, filter types.BackupFilter) ([]*types.Backup, error)
	FindByScheduleID(ctx context.Context, scheduleID uuid.UUID) ([]*types.Backup, error)
	FindInFlight(ctx context.Context) ([]*types.Backup, error)
}

type TaskRepository interface {
	Create(ctx context.Context, task *types.Task) error
	FindByID(ctx context.Context, id uuid.UUID) (*types.Task, error)
	Claim(ctx context.Context, kinds []types.TaskKind, now time.Time) (*types.Task, error)
	Finish(ctx context.Context, id uuid.UUID, status types.TaskStatus, output, errMsg string, now time.Time) error
	FailRunning(ctx context.Context, reason string, now time.Time) (int64, error)
	PurgeFinished(ctx context.Context, before time.Time) (int64, error)

	// WithBackups runs fn in one transaction shared by the task repository and
	// a backup repository on the same database.
	WithBackups(ctx context.Context, fn func(tasks TaskRepository, backups BackupRepository) error) error
}

// Locked is handed to BackupScheduleRepository.WithLock callbacks.
type Locked struct {
	Schedule  *types.BackupSchedule
	Schedules BackupScheduleRepository
	Backups   BackupRepository
}
