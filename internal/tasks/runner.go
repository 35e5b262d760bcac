package tasks

import (
	"context"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"nodeconductor/internal/database"
	"nodeconductor/internal/types"
)

var ErrDispatch = errors.New("task dispatch failed")

type (
	// Handle identifies a dispatched task. It is stored as Backup.ResultID.
	Handle string

	// Target is what a task operates on.
	Target struct {
		BackupID uuid.UUID           `json:"backup_id"`
		Source   *types.BackupSource `json:"source"`
	}

	// Result is the observable outcome of a dispatched task.
	Result struct {
		Ready  bool
		Failed bool
		Output string
		Error  string
	}

	Runner interface {
		DispatchBackup(ctx context.Context, target Target) (Handle, error)
		DispatchRestoration(ctx context.Context, target Target, replaceOriginal bool) (Handle, error)
		DispatchDeletion(ctx context.Context, target Target) (Handle, error)

		// Lookup returns nil, nil when the runner no longer knows handle.
		Lookup(ctx context.Context, kind types.TaskKind, handle Handle) (*Result, error)
	}

	// TxRunner is a Runner whose tasks live next to the backups. fn receives a
	// runner and a backup repository bound to one transaction, so a task is
	// only queued if the backup recording it is saved too.
	TxRunner interface {
		Runner
		DispatchInTx(ctx context.Context, fn func(runner Runner, backups database.BackupRepository) error) error
	}
)

func (h Handle) String() string {
	return string(h)
}

// Successful reports whether the task finished without failing.
func (r *Result) Successful() bool {
	return r.Ready && !r.Failed
}
