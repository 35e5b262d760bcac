package backup

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"nodeconductor/internal/database"
	"nodeconductor/internal/eventbus"
	"nodeconductor/internal/tasks"
	"nodeconductor/internal/types"
	"nodeconductor/logger"
	"time"
)

var (
	ErrInvalidTransition = errors.New("invalid backup state transition")
	ErrMissingResult     = errors.New("missing task result")
)

type (
	// Lifecycle drives backups through their states by dispatching tasks and
	// confirming their results.
	Lifecycle struct {
		backups database.BackupRepository
		runner  tasks.Runner
		bus     eventbus.Bus
		poll    map[types.BackupState]pollHandler
	}

	pollHandler struct {
		kind    types.TaskKind
		confirm func(ctx context.Context, bk *types.Backup, res *tasks.Result) error
	}
)

var (
	backupFrom      = []types.BackupState{types.BackupStateReady, types.BackupStateErred}
	restorationFrom = []types.BackupState{types.BackupStateReady, types.BackupStateErred}
)

func NewLifecycle(backups database.BackupRepository, runner tasks.Runner, bus eventbus.Bus) *Lifecycle {
	l := &Lifecycle{
		backups: backups,
		runner:  runner,
		bus:     bus,
	}
	l.poll = map[types.BackupState]pollHandler{
		types.BackupStateBackingUp: {kind: types.TaskKindBackup, confirm: l.confirmBackup},
		types.BackupStateRestoring: {kind: types.TaskKindRestoration, confirm: l.confirmRestoration},
		types.BackupStateDeleting:  {kind: types.TaskKindDeletion, confirm: l.confirmDeletion},
	}
	return l
}

func (l *Lifecycle) StartBackup(ctx context.Context, bk *types.Backup, actor string) error {
	if !stateIn(bk.State, backupFrom) {
		return transitionError(bk, types.BackupStateBackingUp)
	}

	err := l.start(ctx, bk, types.BackupStateBackingUp, types.TaskKindBackup, func(ctx context.Context, r tasks.Runner) (tasks.Handle, error) {
		return r.DispatchBackup(ctx, target(bk))
	})
	if err != nil {
		return err
	}

	l.publish(bk, eventbus.BackupCreationScheduled, actor, "Backup creation has been scheduled")
	return nil
}

func (l *Lifecycle) StartRestoration(ctx context.Context, bk *types.Backup, replaceOriginal bool, actor string) error {
	if !stateIn(bk.State, restorationFrom) {
		return transitionError(bk, types.BackupStateRestoring)
	}

	err := l.start(ctx, bk, types.BackupStateRestoring, types.TaskKindRestoration, func(ctx context.Context, r tasks.Runner) (tasks.Handle, error) {
		return r.DispatchRestoration(ctx, target(bk), replaceOriginal)
	})
	if err != nil {
		return err
	}

	l.publish(bk, eventbus.BackupRestorationScheduled, actor, "Backup restoration has been scheduled")
	return nil
}

func (l *Lifecycle) StartDeletion(ctx context.Context, bk *types.Backup, actor string) error {
	if bk.State == types.BackupStateDeleting || bk.State == types.BackupStateDeleted {
		return transitionError(bk, types.BackupStateDeleting)
	}

	err := l.start(ctx, bk, types.BackupStateDeleting, types.TaskKindDeletion, func(ctx context.Context, r tasks.Runner) (tasks.Handle, error) {
		return r.DispatchDeletion(ctx, target(bk))
	})
	if err != nil {
		return err
	}

	l.publish(bk, eventbus.BackupDeletionScheduled, actor, "Backup deletion has been scheduled")
	return nil
}

// PollCurrentState checks the task behind an in-flight backup and moves the
// backup on once it finished. Backups in other states are left alone.
func (l *Lifecycle) PollCurrentState(ctx context.Context, bk *types.Backup) error {
	handler, ok := l.poll[bk.State]
	if !ok {
		return nil
	}
	return l.checkTaskResult(ctx, bk, handler.kind, handler.confirm)
}

// PollInFlight polls every backup with a running task. A failing backup does
// not stop the others.
func (l *Lifecycle) PollInFlight(ctx context.Context) error {
	backups, err := l.backups.FindInFlight(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to fetch in-flight backups")
	}

	var errs error
	for _, bk := range backups {
		if err := l.PollCurrentState(ctx, bk); err != nil {
			logger.Error("failed to poll backup",
				zap.String("backup", bk.ID.String()),
				zap.String("state", bk.State.String()),
				zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (l *Lifecycle) checkTaskResult(ctx context.Context, bk *types.Backup, kind types.TaskKind,
	onSuccess func(ctx context.Context, bk *types.Backup, res *tasks.Result) error) error {
	res, err := l.runner.Lookup(ctx, kind, tasks.Handle(bk.ResultID))
	if err != nil {
		return errors.Wrapf(err, "failed to look up %s task of backup %s", kind, bk.ID)
	}

	// an unknown handle never comes back, so the backup is failed for good
	if res == nil {
		logger.Warn("task result not found",
			zap.String("backup", bk.ID.String()),
			zap.String("kind", kind.String()),
			zap.String("result_id", bk.ResultID))
		return l.erred(ctx, bk, ErrMissingResult.Error())
	}

	if !res.Ready {
		return nil
	}
	return onSuccess(ctx, bk, res)
}

func (l *Lifecycle) confirmBackup(ctx context.Context, bk *types.Backup, res *tasks.Result) error {
	if res.Failed {
		return l.erred(ctx, bk, res.Error)
	}

	bk.State = types.BackupStateReady
	bk.Location = res.Output
	bk.Message = ""
	if err := l.backups.Save(ctx, bk); err != nil {
		return errors.Wrap(err, "failed to save backup")
	}

	l.publish(bk, eventbus.BackupCreationSucceeded, eventbus.SystemActor, "Backup has been created")
	return nil
}

func (l *Lifecycle) confirmRestoration(ctx context.Context, bk *types.Backup, res *tasks.Result) error {
	if res.Failed {
		return l.erred(ctx, bk, res.Error)
	}

	bk.State = types.BackupStateReady
	bk.Message = ""
	if err := l.backups.Save(ctx, bk); err != nil {
		return errors.Wrap(err, "failed to save backup")
	}

	l.publish(bk, eventbus.BackupRestorationSucceeded, eventbus.SystemActor, "Backup has been restored")
	return nil
}

func (l *Lifecycle) confirmDeletion(ctx context.Context, bk *types.Backup, res *tasks.Result) error {
	if res.Failed {
		return l.erred(ctx, bk, res.Error)
	}

	bk.State = types.BackupStateDeleted
	bk.Message = ""
	if err := l.backups.Save(ctx, bk); err != nil {
		return errors.Wrap(err, "failed to save backup")
	}

	l.publish(bk, eventbus.BackupDeletionSucceeded, eventbus.SystemActor, "Backup has been deleted")
	return nil
}

func (l *Lifecycle) erred(ctx context.Context, bk *types.Backup, reason string) error {
	previous := bk.State
	bk.State = types.BackupStateErred
	bk.Message = reason
	if err := l.backups.Save(ctx, bk); err != nil {
		return errors.Wrap(err, "failed to save erred backup")
	}

	l.publish(bk, eventbus.BackupErred, eventbus.SystemActor,
		fmt.Sprintf("Backup failed while %s: %s", describe(previous), reason))
	return nil
}

// start dispatches a task and records its handle with the new state in a
// single save. With a TxRunner both happen in one transaction. bk is left
// unchanged when either fails.
func (l *Lifecycle) start(ctx context.Context, bk *types.Backup, state types.BackupState, kind types.TaskKind,
	dispatch func(ctx context.Context, r tasks.Runner) (tasks.Handle, error)) error {
	previousState, previousResult := bk.State, bk.ResultID

	var err error
	if txRunner, ok := l.runner.(tasks.TxRunner); ok {
		err = txRunner.DispatchInTx(ctx, func(runner tasks.Runner, backups database.BackupRepository) error {
			return transition(ctx, runner, backups, bk, state, kind, dispatch)
		})
	} else {
		err = transition(ctx, l.runner, l.backups, bk, state, kind, dispatch)
	}

	if err != nil {
		bk.State, bk.ResultID = previousState, previousResult
		return err
	}
	return nil
}

func transition(ctx context.Context, runner tasks.Runner, backups database.BackupRepository, bk *types.Backup,
	state types.BackupState, kind types.TaskKind, dispatch func(ctx context.Context, r tasks.Runner) (tasks.Handle, error)) error {
	handle, err := dispatch(ctx, runner)
	if err != nil {
		return dispatchError(err, bk, kind)
	}

	bk.State = state
	bk.ResultID = handle.String()
	if err := backups.Save(ctx, bk); err != nil {
		return errors.Wrapf(err, "failed to move backup %s to %s", bk.ID, state)
	}
	return nil
}

func (l *Lifecycle) publish(bk *types.Backup, typ eventbus.Type, actor, message string) {
	if l.bus == nil {
		return
	}
	l.bus.Publish(eventbus.Event{
		Type:       typ,
		Message:    message,
		Actor:      actor,
		BackupID:   &bk.ID,
		ScheduleID: bk.BackupScheduleID,
		SourceID:   bk.BackupSourceID,
		Timestamp:  time.Now().UTC(),
	})
}

func target(bk *types.Backup) tasks.Target {
	return tasks.Target{BackupID: bk.ID, Source: bk.BackupSource}
}

func stateIn(state types.BackupState, allowed []types.BackupState) bool {
	for _, next := range allowed {
		if state == next {
			return true
		}
	}
	return false
}

func transitionError(bk *types.Backup, to types.BackupState) error {
	return errors.Wrapf(ErrInvalidTransition, "backup %s cannot move from %s to %s", bk.ID, bk.State, to)
}

func dispatchError(err error, bk *types.Backup, kind types.TaskKind) error {
	if errors.Is(err, tasks.ErrDispatch) {
		return errors.Wrapf(err, "backup %s", bk.ID)
	}
	return errors.Wrapf(tasks.ErrDispatch, "backup %s, %s task: %v", bk.ID, kind, err)
}

func describe(state types.BackupState) string {
	switch state {
	case types.BackupStateBackingUp:
		return "backing up"
	case types.BackupStateRestoring:
		return "restoring"
	case types.BackupStateDeleting:
		return "deleting"
	}
	return "in state " + state.String()
}
