package service

import (
	"context"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"nodeconductor/internal/backup"
	"nodeconductor/internal/database"
	"nodeconductor/internal/types"
	"time"
)

type (
	BackupService interface {
		// CreateBackup starts a backup of source outside of any schedule.
		CreateBackup(ctx context.Context, sourceID uuid.UUID, actor string) (*types.Backup, error)
		Restore(ctx context.Context, backupID uuid.UUID, replaceOriginal bool, actor string) (*types.Backup, error)
		Delete(ctx context.Context, backupID uuid.UUID, actor string) (*types.Backup, error)
		// Poll moves every backup whose task finished to its next state.
		Poll(ctx context.Context) error
		Get(ctx context.Context, backupID uuid.UUID) (*types.Backup, error)
		List(ctx context.Context, filter types.BackupFilter) ([]*types.Backup, error)
	}

	backupService struct {
		sourceRepository database.BackupSourceRepository
		backupRepository database.BackupRepository
		lifecycle        *backup.Lifecycle
	}
)

func NewBackupService(sources database.BackupSourceRepository, backups database.BackupRepository,
	lifecycle *backup.Lifecycle) BackupService {
	return &backupService{
		sourceRepository: sources,
		backupRepository: backups,
		lifecycle:        lifecycle,
	}
}

func (b *backupService) CreateBackup(ctx context.Context, sourceID uuid.UUID, actor string) (*types.Backup, error) {
	source, err := b.sourceRepository.FindByID(ctx, sourceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find backup source")
	}

	bk := types.NewBackup(source, nil, time.Now().UTC())
	if err := b.backupRepository.Create(ctx, bk); err != nil {
		return nil, errors.Wrap(err, "failed to create backup")
	}

	// the READY record stays behind when starting fails so it can be retried
	if err := b.lifecycle.StartBackup(ctx, bk, actor); err != nil {
		return bk, err
	}
	return bk, nil
}

func (b *backupService) Restore(ctx context.Context, backupID uuid.UUID, replaceOriginal bool, actor string) (*types.Backup, error) {
	bk, err := b.backupRepository.FindByID(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if err := b.lifecycle.StartRestoration(ctx, bk, replaceOriginal, actor); err != nil {
		return nil, err
	}
	return bk, nil
}

func (b *backupService) Delete(ctx context.Context, backupID uuid.UUID, actor string) (*types.Backup, error) {
	bk, err := b.backupRepository.FindByID(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if err := b.lifecycle.StartDeletion(ctx, bk, actor); err != nil {
		return nil, err
	}
	return bk, nil
}

func (b *backupService) Poll(ctx context.Context) error {
	return b.lifecycle.PollInFlight(ctx)
}

func (b *backupService) Get(ctx context.Context, backupID uuid.UUID) (*types.Backup, error) {
	return b.backupRepository.FindByID(ctx, backupID)
}

func (b *backupService) List(ctx context.Context, filter types.BackupFilter) ([]*types.Backup, error) {
	return b.backupRepository.FindAll(ctx, filter)
}
