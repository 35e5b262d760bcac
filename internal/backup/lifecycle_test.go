package backup

import (
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"nodeconductor/internal/database"
	"nodeconductor/internal/eventbus"
	"nodeconductor/internal/tasks"
	"nodeconductor/internal/types"
	"testing"
	"time"
)

var allStates = []types.BackupState{
	types.BackupStateReady,
	types.BackupStateBackingUp,
	types.BackupStateRestoring,
	types.BackupStateDeleting,
	types.BackupStateErred,
	types.BackupStateDeleted,
}

func TestStartTransitions(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		target  types.BackupState
		allowed []types.BackupState
	}{
		{
			name:    "start backup",
			method:  "DispatchBackup",
			target:  types.BackupStateBackingUp,
			allowed: []types.BackupState{types.BackupStateReady, types.BackupStateErred},
		},
		{
			name:    "start restoration",
			method:  "DispatchRestoration",
			target:  types.BackupStateRestoring,
			allowed: []types.BackupState{types.BackupStateReady, types.BackupStateErred},
		},
		{
			name:   "start deletion",
			method: "DispatchDeletion",
			target: types.BackupStateDeleting,
			allowed: []types.BackupState{
				types.BackupStateReady,
				types.BackupStateBackingUp,
				types.BackupStateRestoring,
				types.BackupStateErred,
			},
		},
	}

	for _, tt := range tests {
		for _, from := range allStates {
			t.Run(tt.name+" from "+from.String(), func(t *testing.T) {
				ctx := context.Background()
				env := newTestEnv(t)
				bk := env.backup(t, env.schedule(t, 0, 0), from, time.Now())
				previousResult := bk.ResultID

				switch tt.method {
				case "DispatchRestoration":
					env.runner.On(tt.method, mock.Anything, mock.Anything, true).Return(tasks.Handle("handle-1"), nil).Maybe()
				default:
					env.runner.On(tt.method, mock.Anything, mock.Anything).Return(tasks.Handle("handle-1"), nil).Maybe()
				}

				var err error
				switch tt.method {
				case "DispatchBackup":
					err = env.lifecycle.StartBackup(ctx, bk, "alice")
				case "DispatchRestoration":
					err = env.lifecycle.StartRestoration(ctx, bk, true, "alice")
				case "DispatchDeletion":
					err = env.lifecycle.StartDeletion(ctx, bk, "alice")
				}

				stored := env.reload(t, bk)
				if !stateIn(from, tt.allowed) {
					assert.ErrorIs(t, err, ErrInvalidTransition)
					env.runner.AssertNumberOfCalls(t, tt.method, 0)
					assert.Equal(t, from, stored.State)
					assert.Equal(t, previousResult, stored.ResultID)
					return
				}

				require.NoError(t, err)
				env.runner.AssertNumberOfCalls(t, tt.method, 1)
				assert.Equal(t, tt.target, stored.State)
				assert.Equal(t, "handle-1", stored.ResultID)

				recent := env.bus.Recent(bk.ID.String())
				require.Len(t, recent, 1)
				assert.Equal(t, "alice", recent[0].Actor)
			})
		}
	}
}

func TestStartDispatchFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bk := env.backup(t, env.schedule(t, 0, 0), types.BackupStateReady, time.Now())

	env.runner.On("DispatchBackup", mock.Anything, mock.Anything).Return(tasks.Handle(""), assert.AnError)

	err := env.lifecycle.StartBackup(ctx, bk, eventbus.SystemActor)
	assert.ErrorIs(t, err, tasks.ErrDispatch)

	stored := env.reload(t, bk)
	assert.Equal(t, types.BackupStateReady, stored.State)
	assert.Equal(t, bk.ResultID, stored.ResultID)
	assert.Empty(t, env.bus.Recent(bk.ID.String()))
}

func TestStartQueuesTaskWithBackupSave(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	queue := tasks.NewQueue(database.NewTaskRepository(env.db))
	lifecycle := NewLifecycle(env.backups, queue, env.bus)
	schedule := env.schedule(t, 0, 0)

	countTasks := func() int64 {
		var count int64
		require.NoError(t, env.db.Model(&types.Task{}).Count(&count).Error)
		return count
	}

	saved := env.backup(t, schedule, types.BackupStateReady, time.Now())
	require.NoError(t, lifecycle.StartDeletion(ctx, saved, eventbus.SystemActor))
	assert.Equal(t, int64(1), countTasks())
	assert.Len(t, queue.Wake(), 1)

	stored := env.reload(t, saved)
	assert.Equal(t, types.BackupStateDeleting, stored.State)
	result, err := queue.Lookup(ctx, types.TaskKindDeletion, tasks.Handle(stored.ResultID))
	require.NoError(t, err)
	assert.NotNil(t, result)

	// a backup row without a source violates NOT NULL, so the save fails
	broken := env.backup(t, schedule, types.BackupStateReady, time.Now())
	resultID := broken.ResultID
	broken.BackupSourceID = nil
	err = lifecycle.StartDeletion(ctx, broken, eventbus.SystemActor)
	assert.Error(t, err)
	assert.Equal(t, types.BackupStateReady, broken.State)
	assert.Equal(t, resultID, broken.ResultID)
	assert.Equal(t, int64(1), countTasks(), "the deletion task is rolled back with the save")
	assert.Equal(t, types.BackupStateReady, env.reload(t, broken).State)
}

func TestStartRestorationKeepsOriginal(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	bk := env.backup(t, env.schedule(t, 0, 0), types.BackupStateErred, time.Now())

	env.runner.On("DispatchRestoration", mock.Anything, mock.MatchedBy(func(target tasks.Target) bool {
		return target.BackupID == bk.ID && target.Source != nil && target.Source.ID == *bk.BackupSourceID
	}), false).Return(tasks.Handle("restore-1"), nil).Once()

	require.NoError(t, env.lifecycle.StartRestoration(ctx, bk, false, eventbus.SystemActor))
	env.runner.AssertExpectations(t)
	assert.Equal(t, types.BackupStateRestoring, env.reload(t, bk).State)
}

func TestPollCurrentState(t *testing.T) {
	tests := []struct {
		name     string
		state    types.BackupState
		kind     types.TaskKind
		result   *tasks.Result
		expected types.BackupState
		message  string
		location string
		event    eventbus.Type
	}{
		{
			name:     "backup finished",
			state:    types.BackupStateBackingUp,
			kind:     types.TaskKindBackup,
			result:   &tasks.Result{Ready: true, Output: "instance/a/b"},
			expected: types.BackupStateReady,
			location: "instance/a/b",
			event:    eventbus.BackupCreationSucceeded,
		},
		{
			name:     "backup still running",
			state:    types.BackupStateBackingUp,
			kind:     types.TaskKindBackup,
			result:   &tasks.Result{Ready: false},
			expected: types.BackupStateBackingUp,
		},
		{
			name:     "backup result missing",
			state:    types.BackupStateBackingUp,
			kind:     types.TaskKindBackup,
			result:   nil,
			expected: types.BackupStateErred,
			message:  "missing task result",
			event:    eventbus.BackupErred,
		},
		{
			name:     "backup task failed",
			state:    types.BackupStateBackingUp,
			kind:     types.TaskKindBackup,
			result:   &tasks.Result{Ready: true, Failed: true, Error: "disk full"},
			expected: types.BackupStateErred,
			message:  "disk full",
			event:    eventbus.BackupErred,
		},
		{
			name:     "restoration finished",
			state:    types.BackupStateRestoring,
			kind:     types.TaskKindRestoration,
			result:   &tasks.Result{Ready: true},
			expected: types.BackupStateReady,
			event:    eventbus.BackupRestorationSucceeded,
		},
		{
			name:     "restoration result missing",
			state:    types.BackupStateRestoring,
			kind:     types.TaskKindRestoration,
			result:   nil,
			expected: types.BackupStateErred,
			message:  "missing task result",
			event:    eventbus.BackupErred,
		},
		{
			name:     "deletion finished",
			state:    types.BackupStateDeleting,
			kind:     types.TaskKindDeletion,
			result:   &tasks.Result{Ready: true},
			expected: types.BackupStateDeleted,
			event:    eventbus.BackupDeletionSucceeded,
		},
		{
			name:     "deletion still running",
			state:    types.BackupStateDeleting,
			kind:     types.TaskKindDeletion,
			result:   &tasks.Result{},
			expected: types.BackupStateDeleting,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			env := newTestEnv(t)
			bk := env.backup(t, env.schedule(t, 0, 0), tt.state, time.Now())

			env.runner.On("Lookup", mock.Anything, tt.kind, tasks.Handle(bk.ResultID)).Return(tt.result, nil).Once()

			require.NoError(t, env.lifecycle.PollCurrentState(ctx, bk))
			env.runner.AssertExpectations(t)

			stored := env.reload(t, bk)
			assert.Equal(t, tt.expected, stored.State)
			assert.Equal(t, tt.message, stored.Message)
			assert.Equal(t, tt.location, stored.Location)

			recent := env.bus.Recent(bk.ID.String())
			if tt.event == "" {
				assert.Empty(t, recent)
				return
			}
			require.Len(t, recent, 1)
			assert.Equal(t, tt.event, recent[0].Type)
			assert.Equal(t, eventbus.SystemActor, recent[0].Actor)
		})
	}
}

func TestPollCurrentStateIgnoresSettledBackups(t *testing.T) {
	for _, state := range []types.BackupState{types.BackupStateReady, types.BackupStateErred, types.BackupStateDeleted} {
		t.Run(state.String(), func(t *testing.T) {
			env := newTestEnv(t)
			bk := env.backup(t, env.schedule(t, 0, 0), state, time.Now())

			require.NoError(t, env.lifecycle.PollCurrentState(context.Background(), bk))
			env.runner.AssertNumberOfCalls(t, "Lookup", 0)
			assert.Equal(t, state, env.reload(t, bk).State)
		})
	}
}

func TestPollInFlight(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	schedule := env.schedule(t, 0, 0)
	now := time.Now()

	done := env.backup(t, schedule, types.BackupStateBackingUp, now)
	broken := env.backup(t, schedule, types.BackupStateDeleting, now)
	running := env.backup(t, schedule, types.BackupStateRestoring, now)
	settled := env.backup(t, schedule, types.BackupStateReady, now)

	env.runner.On("Lookup", mock.Anything, types.TaskKindBackup, tasks.Handle(done.ResultID)).
		Return(&tasks.Result{Ready: true, Output: "loc"}, nil)
	env.runner.On("Lookup", mock.Anything, types.TaskKindDeletion, tasks.Handle(broken.ResultID)).
		Return(nil, assert.AnError)
	env.runner.On("Lookup", mock.Anything, types.TaskKindRestoration, tasks.Handle(running.ResultID)).
		Return(&tasks.Result{}, nil)

	err := env.lifecycle.PollInFlight(ctx)
	assert.ErrorIs(t, err, assert.AnError)

	assert.Equal(t, types.BackupStateReady, env.reload(t, done).State)
	assert.Equal(t, types.BackupStateDeleting, env.reload(t, broken).State)
	assert.Equal(t, types.BackupStateRestoring, env.reload(t, running).State)
	assert.Equal(t, types.BackupStateReady, env.reload(t, settled).State)
	env.runner.AssertNumberOfCalls(t, "Lookup", 3)
}
