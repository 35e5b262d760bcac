package tasks

import (
	"context"
	"fmt"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"nodeconductor/internal/database"
	"nodeconductor/internal/types"
	"nodeconductor/logger"
	"time"
)

// Handler performs one task and returns its output.
type Handler func(ctx context.Context, payload Payload) (string, error)

const interruptedReason = "interrupted"

// Pool runs queued tasks with a fixed number of workers.
type Pool struct {
	queue    *Queue
	repo     database.TaskRepository
	handlers map[types.TaskKind]Handler
	workers  int
	idle     time.Duration
}

func NewPool(queue *Queue, workers int, idle time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if idle <= 0 {
		idle = time.Second
	}
	return &Pool{
		queue:    queue,
		repo:     queue.repo,
		handlers: make(map[types.TaskKind]Handler),
		workers:  workers,
		idle:     idle,
	}
}

func (p *Pool) Handle(kind types.TaskKind, handler Handler) {
	p.handlers[kind] = handler
}

// Recover fails tasks a previous process left RUNNING.
func (p *Pool) Recover(ctx context.Context) error {
	n, err := p.repo.FailRunning(ctx, interruptedReason, p.queue.now())
	if err != nil {
		return errors.Wrap(err, "failed to recover interrupted tasks")
	}
	if n > 0 {
		logger.Warn("marked interrupted tasks as failed", zap.Int64("count", n))
	}
	return nil
}

// Purge deletes results finished more than ttl ago.
func (p *Pool) Purge(ctx context.Context, ttl time.Duration) error {
	n, err := p.repo.PurgeFinished(ctx, p.queue.now().Add(-ttl))
	if err != nil {
		return errors.Wrap(err, "failed to purge task results")
	}
	if n > 0 {
		logger.Info("purged task results", zap.Int64("count", n))
	}
	return nil
}

// Run recovers interrupted tasks and processes the queue until ctx is done.
func (p *Pool) Run(ctx context.Context) error {
	if err := p.Recover(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			return p.work(ctx)
		})
	}
	return g.Wait()
}

func (p *Pool) work(ctx context.Context) error {
	ticker := time.NewTicker(p.idle)
	defer ticker.Stop()

	for {
		ran, err := p.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error("task worker failed", zap.Error(err))
		}
		if ran {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-p.queue.Wake():
		case <-ticker.C:
		}
	}
}

// RunOnce claims and runs a single pending task. It reports whether a task
// was found.
func (p *Pool) RunOnce(ctx context.Context) (bool, error) {
	task, err := p.repo.Claim(ctx, p.kinds(), p.queue.now())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to claim task")
	}

	output, runErr := p.run(ctx, task)
	status := types.TaskStatusSuccess
	errMsg := ""
	if runErr != nil {
		status = types.TaskStatusFailure
		errMsg = runErr.Error()
		logger.Warn("task failed",
			zap.String("task", task.ID.String()),
			zap.String("kind", task.Kind.String()),
			zap.Error(runErr))
	}

	// the result is stored even when ctx was cancelled mid-run
	if err := p.repo.Finish(context.WithoutCancel(ctx), task.ID, status, output, errMsg, p.queue.now()); err != nil {
		return true, errors.Wrapf(err, "failed to store result of task %s", task.ID)
	}
	return true, nil
}

func (p *Pool) run(ctx context.Context, task *types.Task) (output string, err error) {
	handler, ok := p.handlers[task.Kind]
	if !ok {
		return "", fmt.Errorf("no handler for %s tasks", task.Kind)
	}

	payload, err := decodePayload(task)
	if err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return handler(ctx, payload)
}

func (p *Pool) kinds() []types.TaskKind {
	kinds := make([]types.TaskKind, 0, len(p.handlers))
	for kind := range p.handlers {
		kinds = append(kinds, kind)
	}
	return kinds
}
