package database

import (
	"context"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"nodeconductor/internal/types"
)

type backupSourceRepository struct {
	db *gorm.DB
}

func NewBackupSourceRepository(db *gorm.DB) BackupSourceRepository {
	return &backupSourceRepository{db: db}
}

func (b backupSourceRepository) Save(ctx context.Context, source *types.BackupSource) error {
	return b.db.WithContext(ctx).Save(source).Error
}

func (b backupSourceRepository) FindByID(ctx context.Context, id uuid.UUID) (*types.BackupSource, error) {
	source := &types.BackupSource{}
	err := b.db.WithContext(ctx).Where("id = ?", id).First(source).Error
	if err != nil {
		return nil, notFound(err)
	}
	return source, nil
}

func (b backupSourceRepository) FindAll(ctx context.Context) ([]*types.BackupSource, error) {
	result := make([]*types.BackupSource, 0)
	err := b.db.WithContext(ctx).Order("created_at ASC").Find(&result).Error
	return result, err
}
