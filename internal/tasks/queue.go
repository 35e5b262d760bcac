package tasks

import (
	"context"
	"encoding/json"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"nodeconductor/internal/database"
	"nodeconductor/internal/types"
	"time"
)

// Payload is the JSON body stored with a task.
type Payload struct {
	Target
	ReplaceOriginal bool `json:"replace_original,omitempty"`
}

// Queue is a Runner persisting tasks in the database so handles survive
// process restarts and can be looked up from any process sharing it.
type Queue struct {
	repo database.TaskRepository
	wake chan struct{}
	now  func() time.Time
}

func NewQueue(repo database.TaskRepository) *Queue {
	return &Queue{
		repo: repo,
		wake: make(chan struct{}, 1),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (q *Queue) DispatchBackup(ctx context.Context, target Target) (Handle, error) {
	return q.dispatch(ctx, types.TaskKindBackup, Payload{Target: target})
}

func (q *Queue) DispatchRestoration(ctx context.Context, target Target, replaceOriginal bool) (Handle, error) {
	return q.dispatch(ctx, types.TaskKindRestoration, Payload{Target: target, ReplaceOriginal: replaceOriginal})
}

func (q *Queue) DispatchDeletion(ctx context.Context, target Target) (Handle, error) {
	return q.dispatch(ctx, types.TaskKindDeletion, Payload{Target: target})
}

func (q *Queue) dispatch(ctx context.Context, kind types.TaskKind, payload Payload) (Handle, error) {
	if payload.Source == nil {
		return "", errors.Wrapf(ErrDispatch, "%s task for backup %s has no source", kind, payload.BackupID)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrapf(ErrDispatch, "failed to encode %s task: %v", kind, err)
	}

	task := &types.Task{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    types.TaskStatusPending,
		Payload:   string(body),
		CreatedAt: q.now(),
	}
	if err := q.repo.Create(ctx, task); err != nil {
		return "", errors.Wrapf(ErrDispatch, "failed to queue %s task: %v", kind, err)
	}

	q.signal()
	return Handle(task.ID.String()), nil
}

// DispatchInTx runs fn with a queue bound to a transaction. Workers are woken
// once the transaction committed.
func (q *Queue) DispatchInTx(ctx context.Context, fn func(runner Runner, backups database.BackupRepository) error) error {
	err := q.repo.WithBackups(ctx, func(repo database.TaskRepository, backups database.BackupRepository) error {
		return fn(&Queue{repo: repo, now: q.now}, backups)
	})
	if err != nil {
		return err
	}
	q.signal()
	return nil
}

// signal is a no-op on a transaction bound queue, its wake channel is nil.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) Lookup(ctx context.Context, kind types.TaskKind, handle Handle) (*Result, error) {
	id, err := uuid.Parse(handle.String())
	if err != nil {
		return nil, nil
	}

	task, err := q.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to look up task")
	}
	if task.Kind != kind {
		return nil, nil
	}

	return &Result{
		Ready:  task.IsFinished(),
		Failed: task.Status == types.TaskStatusFailure,
		Output: task.Output,
		Error:  task.Error,
	}, nil
}

// Wake returns a channel signalled whenever a task is dispatched.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

func decodePayload(task *types.Task) (Payload, error) {
	payload := Payload{}
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		return payload, errors.Wrapf(err, "failed to decode payload of task %s", task.ID)
	}
	return payload, nil
}
