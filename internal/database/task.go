package database

import (
	"context"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"nodeconductor/internal/types"
	"time"
)

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (t taskRepository) Create(ctx context.Context, task *types.Task) error {
	return t.db.WithContext(ctx).Create(task).Error
}

func (t taskRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.Task, error) {
	task := &types.Task{}
	err := t.db.WithContext(ctx).Where("id = ?", id).First(task).Error
	if err != nil {
		return nil, notFound(err)
	}
	return task, nil
}

// Claim moves the oldest pending task of one of kinds to RUNNING and returns
// it. It returns ErrNotFound when nothing is pending. Two workers never claim
// the same task: the update only succeeds while the row is still PENDING.
func (t taskRepository) Claim(ctx context.Context, kinds []types.TaskKind, now time.Time) (*types.Task, error) {
	for {
		task := &types.Task{}
		err := t.db.WithContext(ctx).
			Where("status = ? AND kind IN ?", types.TaskStatusPending, kinds).
			Order("created_at ASC").
			First(task).Error
		if err != nil {
			return nil, notFound(err)
		}

		startedAt := now.UTC()
		result := t.db.WithContext(ctx).
			Model(&types.Task{}).
			Where("id = ? AND status = ?", task.ID, types.TaskStatusPending).
			Updates(map[string]interface{}{
				"status":     types.TaskStatusRunning,
				"started_at": startedAt,
			})
		if result.Error != nil {
			return nil, result.Error
		}

		if result.RowsAffected == 1 {
			task.Status = types.TaskStatusRunning
			task.StartedAt = &startedAt
			return task, nil
		}
	}
}

func (t taskRepository) Finish(ctx context.Context, id uuid.UUID, status types.TaskStatus, output, errMsg string, now time.Time) error {
	return t.db.WithContext(ctx).
		Model(&types.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"output":      output,
			"error":       errMsg,
			"finished_at": now.UTC(),
		}).Error
}

// FailRunning marks tasks left RUNNING by a stopped worker as failed.
func (t taskRepository) FailRunning(ctx context.Context, reason string, now time.Time) (int64, error) {
	result := t.db.WithContext(ctx).
		Model(&types.Task{}).
		Where("status = ?", types.TaskStatusRunning).
		Updates(map[string]interface{}{
			"status":      types.TaskStatusFailure,
			"error":       reason,
			"finished_at": now.UTC(),
		})
	return result.RowsAffected, result.Error
}

// PurgeFinished deletes finished tasks older than before. Their handles are
// unknown from then on.
func (t taskRepository) PurgeFinished(ctx context.Context, before time.Time) (int64, error) {
	result := t.db.WithContext(ctx).
		Where("status IN ? AND finished_at < ?",
			[]types.TaskStatus{types.TaskStatusSuccess, types.TaskStatusFailure}, before.UTC()).
		Delete(&types.Task{})
	return result.RowsAffected, result.Error
}

func (t taskRepository) WithBackups(ctx context.Context, fn func(tasks TaskRepository, backups BackupRepository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&taskRepository{db: tx}, &backupRepository{db: tx})
	})
}
