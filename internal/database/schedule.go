package database

import (
	"context"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"nodeconductor/internal/types"
	"time"
)

type backupScheduleRepository struct {
	db *gorm.DB
}

func NewBackupScheduleRepository(db *gorm.DB) BackupScheduleRepository {
	return &backupScheduleRepository{db: db}
}

func (b backupScheduleRepository) Save(ctx context.Context, schedule *types.BackupSchedule) error {
	return b.db.WithContext(ctx).Omit(clause.Associations).Save(schedule).Error
}

func (b backupScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.BackupSchedule, error) {
	schedule := &types.BackupSchedule{}
	err := b.db.WithContext(ctx).Preload("BackupSource").Where("id = ?", id).First(schedule).Error
	if err != nil {
		return nil, notFound(err)
	}
	return schedule, nil
}

func (b backupScheduleRepository) FindAll(ctx context.Context) ([]*types.BackupSchedule, error) {
	result := make([]*types.BackupSchedule, 0)
	err := b.db.WithContext(ctx).Order("created_at ASC").Find(&result).Error
	return result, err
}

func (b backupScheduleRepository) FindDue(ctx context.Context, now time.Time) ([]*types.BackupSchedule, error) {
	result := make([]*types.BackupSchedule, 0)
	err := b.db.WithContext(ctx).
		Where("is_active = ? AND next_trigger_at IS NOT NULL AND next_trigger_at <= ?", true, now.UTC()).
		Order("next_trigger_at ASC").
		Find(&result).Error
	return result, err
}

func (b backupScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := b.db.WithContext(ctx).Where("id = ?", id).Delete(&types.BackupSchedule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (b backupScheduleRepository) WithLock(ctx context.Context, id uuid.UUID, fn func(l Locked) error) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Preload("BackupSource")
		// sqlite has no row locks, the immediate transaction already holds the database write lock
		if tx.Dialector.Name() != DriverSQLite {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		schedule := &types.BackupSchedule{}
		if err := query.Where("id = ?", id).First(schedule).Error; err != nil {
			return notFound(err)
		}

		return fn(Locked{
			Schedule:  schedule,
			Schedules: &backupScheduleRepository{db: tx},
			Backups:   &backupRepository{db: tx},
		})
	})
}
