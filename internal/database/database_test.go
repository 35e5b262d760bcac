package database

import (
	"context"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"nodeconductor/internal/types"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(DriverSQLite, SQLiteDSN(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newSource(t *testing.T, db *gorm.DB) *types.BackupSource {
	t.Helper()
	source := &types.BackupSource{
		ID:   uuid.New(),
		Kind: "instance",
		Name: "vm-" + uuid.NewString()[:8],
		Path: "/var/lib/instances/vm",
	}
	require.NoError(t, NewBackupSourceRepository(db).Save(context.Background(), source))
	return source
}

func TestBackupScheduleSave(t *testing.T) {
	db := newTestDB(t)
	repo := NewBackupScheduleRepository(db)
	ctx := context.Background()
	source := newSource(t, db)

	schedule := &types.BackupSchedule{
		ID:             uuid.New(),
		BackupSourceID: source.ID,
		Schedule:       "0 * * * *",
		IsActive:       true,
	}
	require.NoError(t, repo.Save(ctx, schedule))
	require.NotNil(t, schedule.NextTriggerAt)
	assert.True(t, schedule.NextTriggerAt.After(time.Now()))

	// deactivating never recomputes
	schedule.IsActive = false
	schedule.NextTriggerAt = nil
	require.NoError(t, repo.Save(ctx, schedule))
	assert.Nil(t, schedule.NextTriggerAt)

	// reactivating recomputes
	schedule.IsActive = true
	require.NoError(t, repo.Save(ctx, schedule))
	require.NotNil(t, schedule.NextTriggerAt)
	assert.True(t, schedule.NextTriggerAt.After(time.Now()))

	// changing the expression recomputes
	past := time.Now().Add(-time.Hour).UTC()
	schedule.NextTriggerAt = &past
	schedule.Schedule = "*/10 * * * *"
	require.NoError(t, repo.Save(ctx, schedule))
	assert.True(t, schedule.NextTriggerAt.After(time.Now()))

	stored, err := repo.FindByID(ctx, schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, "*/10 * * * *", stored.Schedule)
	assert.WithinDuration(t, *schedule.NextTriggerAt, *stored.NextTriggerAt, time.Second)
	assert.Equal(t, source.ID, stored.BackupSource.ID)
}

func TestBackupScheduleSaveRejectsInvalidExpression(t *testing.T) {
	db := newTestDB(t)
	repo := NewBackupScheduleRepository(db)
	source := newSource(t, db)

	schedule := &types.BackupSchedule{
		ID:             uuid.New(),
		BackupSourceID: source.ID,
		Schedule:       "every hour",
		IsActive:       false,
	}
	assert.Error(t, repo.Save(context.Background(), schedule))

	_, err := repo.FindByID(context.Background(), schedule.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBackupScheduleFindDue(t *testing.T) {
	db := newTestDB(t)
	repo := NewBackupScheduleRepository(db)
	ctx := context.Background()
	source := newSource(t, db)
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := &types.BackupSchedule{ID: uuid.New(), BackupSourceID: source.ID, Schedule: "* * * * *", IsActive: true, NextTriggerAt: &past}
	notYet := &types.BackupSchedule{ID: uuid.New(), BackupSourceID: source.ID, Schedule: "* * * * *", IsActive: true, NextTriggerAt: &future}
	inactive := &types.BackupSchedule{ID: uuid.New(), BackupSourceID: source.ID, Schedule: "* * * * *", IsActive: false, NextTriggerAt: &past}
	for _, next := range []*types.BackupSchedule{due, notYet, inactive} {
		require.NoError(t, repo.Save(ctx, next))
	}

	result, err := repo.FindDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, due.ID, result[0].ID)
}

func TestBackupScheduleDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewBackupScheduleRepository(db)
	ctx := context.Background()
	source := newSource(t, db)

	schedule := &types.BackupSchedule{ID: uuid.New(), BackupSourceID: source.ID, Schedule: "* * * * *", IsActive: true}
	require.NoError(t, repo.Save(ctx, schedule))
	require.NoError(t, repo.Delete(ctx, schedule.ID))
	assert.ErrorIs(t, repo.Delete(ctx, schedule.ID), ErrNotFound)
}

func TestBackupCreateWithoutSource(t *testing.T) {
	db := newTestDB(t)
	bk := types.NewBackup(nil, nil, time.Now())
	assert.Error(t, NewBackupRepository(db).Create(context.Background(), bk))
}

func TestBackupFindByScheduleIDOrdersOldestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewBackupRepository(db)
	ctx := context.Background()
	source := newSource(t, db)
	schedule := &types.BackupSchedule{ID: uuid.New(), BackupSourceID: source.ID, Schedule: "* * * * *"}
	require.NoError(t, NewBackupScheduleRepository(db).Save(ctx, schedule))

	now := time.Now().UTC()
	newer := types.NewBackup(source, schedule, now.Add(-time.Hour))
	older := types.NewBackup(source, schedule, now.Add(-2*time.Hour))
	adHoc := types.NewBackup(source, nil, now.Add(-3*time.Hour))
	for _, next := range []*types.Backup{newer, older, adHoc} {
		require.NoError(t, repo.Create(ctx, next))
	}

	result, err := repo.FindByScheduleID(ctx, schedule.ID)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, older.ID, result[0].ID)
	assert.Equal(t, newer.ID, result[1].ID)
	assert.Equal(t, source.Name, result[0].BackupSource.Name)
}

func TestBackupFindInFlight(t *testing.T) {
	db := newTestDB(t)
	repo := NewBackupRepository(db)
	ctx := context.Background()
	source := newSource(t, db)

	states := []types.BackupState{
		types.BackupStateReady,
		types.BackupStateBackingUp,
		types.BackupStateRestoring,
		types.BackupStateDeleting,
		types.BackupStateErred,
		types.BackupStateDeleted,
	}
	for _, state := range states {
		bk := types.NewBackup(source, nil, time.Now())
		bk.State = state
		require.NoError(t, repo.Create(ctx, bk))
	}

	result, err := repo.FindInFlight(ctx)
	require.NoError(t, err)
	require.Len(t, result, 3)
	for _, next := range result {
		assert.True(t, next.State.IsInFlight())
	}
}

func TestWithLock(t *testing.T) {
	db := newTestDB(t)
	repo := NewBackupScheduleRepository(db)
	ctx := context.Background()
	source := newSource(t, db)
	schedule := &types.BackupSchedule{ID: uuid.New(), BackupSourceID: source.ID, Schedule: "* * * * *", IsActive: true}
	require.NoError(t, repo.Save(ctx, schedule))

	var created *types.Backup
	err := repo.WithLock(ctx, schedule.ID, func(l Locked) error {
		assert.Equal(t, schedule.ID, l.Schedule.ID)
		created = types.NewBackup(l.Schedule.BackupSource, l.Schedule, time.Now())
		return l.Backups.Create(ctx, created)
	})
	require.NoError(t, err)

	stored, err := NewBackupRepository(db).FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.ID, *stored.BackupScheduleID)

	err = repo.WithLock(ctx, uuid.New(), func(l Locked) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithLockRollsBack(t *testing.T) {
	db := newTestDB(t)
	repo := NewBackupScheduleRepository(db)
	ctx := context.Background()
	source := newSource(t, db)
	schedule := &types.BackupSchedule{ID: uuid.New(), BackupSourceID: source.ID, Schedule: "* * * * *", IsActive: true}
	require.NoError(t, repo.Save(ctx, schedule))

	bk := types.NewBackup(source, schedule, time.Now())
	err := repo.WithLock(ctx, schedule.ID, func(l Locked) error {
		if err := l.Backups.Create(ctx, bk); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = NewBackupRepository(db).FindByID(ctx, bk.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskClaimAndFinish(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	first := &types.Task{ID: uuid.New(), Kind: types.TaskKindBackup, Status: types.TaskStatusPending, CreatedAt: now.Add(-time.Minute)}
	second := &types.Task{ID: uuid.New(), Kind: types.TaskKindDeletion, Status: types.TaskStatusPending, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	claimed, err := repo.Claim(ctx, []types.TaskKind{types.TaskKindBackup, types.TaskKindDeletion}, now)
	require.NoError(t, err)
	assert.Equal(t, first.ID, claimed.ID)
	assert.Equal(t, types.TaskStatusRunning, claimed.Status)

	claimed, err = repo.Claim(ctx, []types.TaskKind{types.TaskKindBackup}, now)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, claimed)

	require.NoError(t, repo.Finish(ctx, first.ID, types.TaskStatusSuccess, "location", "", now))
	stored, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsFinished())
	assert.Equal(t, "location", stored.Output)

	purged, err := repo.PurgeFinished(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
	_, err = repo.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskFailRunning(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	task := &types.Task{ID: uuid.New(), Kind: types.TaskKindRestoration, Status: types.TaskStatusPending, CreatedAt: now}
	require.NoError(t, repo.Create(ctx, task))
	_, err := repo.Claim(ctx, []types.TaskKind{types.TaskKindRestoration}, now)
	require.NoError(t, err)

	count, err := repo.FailRunning(ctx, "interrupted", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TaskStatusFailure, stored.Status)
	assert.Equal(t, "interrupted", stored.Error)
}
