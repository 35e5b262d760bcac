package backup

import (
	"context"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"nodeconductor/internal/database"
	"nodeconductor/internal/eventbus"
	"nodeconductor/internal/tasks"
	"nodeconductor/internal/types"
	"path/filepath"
	"testing"
	"time"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) DispatchBackup(ctx context.Context, target tasks.Target) (tasks.Handle, error) {
	args := m.Called(ctx, target)
	return args.Get(0).(tasks.Handle), args.Error(1)
}

func (m *mockRunner) DispatchRestoration(ctx context.Context, target tasks.Target, replaceOriginal bool) (tasks.Handle, error) {
	args := m.Called(ctx, target, replaceOriginal)
	return args.Get(0).(tasks.Handle), args.Error(1)
}

func (m *mockRunner) DispatchDeletion(ctx context.Context, target tasks.Target) (tasks.Handle, error) {
	args := m.Called(ctx, target)
	return args.Get(0).(tasks.Handle), args.Error(1)
}

func (m *mockRunner) Lookup(ctx context.Context, kind types.TaskKind, handle tasks.Handle) (*tasks.Result, error) {
	args := m.Called(ctx, kind, handle)
	res, _ := args.Get(0).(*tasks.Result)
	return res, args.Error(1)
}

type testEnv struct {
	db        *gorm.DB
	sources   database.BackupSourceRepository
	schedules database.BackupScheduleRepository
	backups   database.BackupRepository
	runner    *mockRunner
	bus       eventbus.Bus
	lifecycle *Lifecycle
	executor  *Executor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "backup.db")))
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})

	env := &testEnv{
		db:        db,
		sources:   database.NewBackupSourceRepository(db),
		schedules: database.NewBackupScheduleRepository(db),
		backups:   database.NewBackupRepository(db),
		runner:    &mockRunner{},
		bus:       eventbus.New(),
	}
	env.lifecycle = NewLifecycle(env.backups, env.runner, env.bus)
	env.executor = NewExecutor(env.schedules, env.backups, env.lifecycle, env.bus)
	return env
}

func (e *testEnv) source(t *testing.T) *types.BackupSource {
	t.Helper()
	source := &types.BackupSource{
		ID:   uuid.New(),
		Kind: "instance",
		Name: "vm-" + uuid.NewString()[:8],
		Path: "/var/lib/instances/vm",
	}
	require.NoError(t, e.sources.Save(context.Background(), source))
	return source
}

func (e *testEnv) schedule(t *testing.T, retention, max int) *types.BackupSchedule {
	t.Helper()
	source := e.source(t)
	schedule := &types.BackupSchedule{
		ID:                     uuid.New(),
		BackupSourceID:         source.ID,
		Schedule:               "0 * * * *",
		IsActive:               true,
		RetentionTime:          retention,
		MaximalNumberOfBackups: max,
	}
	require.NoError(t, e.schedules.Save(context.Background(), schedule))
	require.NotNil(t, schedule.NextTriggerAt)

	loaded, err := e.schedules.FindByID(context.Background(), schedule.ID)
	require.NoError(t, err)
	return loaded
}

func (e *testEnv) backup(t *testing.T, schedule *types.BackupSchedule, state types.BackupState, createdAt time.Time) *types.Backup {
	t.Helper()
	bk := types.NewBackup(schedule.BackupSource, schedule, createdAt.UTC())
	bk.State = state
	bk.ResultID = "task-" + bk.ID.String()[:8]
	require.NoError(t, e.backups.Create(context.Background(), bk))

	loaded, err := e.backups.FindByID(context.Background(), bk.ID)
	require.NoError(t, err)
	return loaded
}

func (e *testEnv) reload(t *testing.T, bk *types.Backup) *types.Backup {
	t.Helper()
	loaded, err := e.backups.FindByID(context.Background(), bk.ID)
	require.NoError(t, err)
	return loaded
}
