package database

import (
	"context"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"nodeconductor/internal/types"
)

type backupRepository struct {
	db *gorm.DB
}

func NewBackupRepository(db *gorm.DB) BackupRepository {
	return &backupRepository{db: db}
}

// Create inserts a new backup. A backup without a source violates the NOT NULL
// constraint and the driver error is returned as is.
func (b backupRepository) Create(ctx context.Context, bk *types.Backup) error {
	return b.db.WithContext(ctx).Omit(clause.Associations).Create(bk).Error
}

// Save writes every column of bk in a single statement.
func (b backupRepository) Save(ctx context.Context, bk *types.Backup) error {
	return b.db.WithContext(ctx).Omit(clause.Associations).Save(bk).Error
}

func (b backupRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.Backup, error) {
	bk := &types.Backup{}
	err := b.db.WithContext(ctx).Preload("BackupSource").Where("id = ?", id).First(bk).Error
	if err != nil {
		return nil, notFound(err)
	}
	return bk, nil
}

func (b backupRepository) FindAll(ctx context.Context, filter types.BackupFilter) ([]*types.Backup, error) {
	result := make([]*types.Backup, 0)
	query := b.db.WithContext(ctx).Preload("BackupSource")
	if filter.BackupScheduleID != nil {
		query = query.Where("backup_schedule_id = ?", *filter.BackupScheduleID)
	}
	if filter.BackupSourceID != nil {
		query = query.Where("backup_source_id = ?", *filter.BackupSourceID)
	}
	if len(filter.States) > 0 {
		query = query.Where("state IN ?", filter.States)
	}

	if err := query.Order("created_at ASC").Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// FindByScheduleID returns every backup of the schedule, oldest first.
func (b backupRepository) FindByScheduleID(ctx context.Context, scheduleID uuid.UUID) ([]*types.Backup, error) {
	return b.FindAll(ctx, types.BackupFilter{BackupScheduleID: &scheduleID})
}

func (b backupRepository) FindInFlight(ctx context.Context) ([]*types.Backup, error) {
	return b.FindAll(ctx, types.BackupFilter{States: types.InFlightBackupStates})
}
