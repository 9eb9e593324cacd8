// Package async runs long map jobs (load, save) off the event path. The
// owner polls a Task with a timeout and may ask it to stop; the job checks
// for that request at points of its own choosing.
package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrCanceled is returned by jobs that stopped because cancellation was requested.
var ErrCanceled = errors.New("task canceled")

// Job is the body of a Task. It should return ErrCanceled soon after
// t.CancelRequested() starts reporting true.
type Job func(ctx context.Context, t *Task) error

// Task is a running job.
type Task struct {
	name    string
	logger  *zap.Logger
	started time.Time

	cancelRequested atomic.Bool
	cancel          context.CancelFunc
	g               *errgroup.Group
	ctx             context.Context

	done chan struct{}
	once sync.Once
	err  error
}

// Start launches job in the background.
//
// Precondition: logger and job must be non-nil.
// Postcondition: The returned Task is running; Poll or Wait observe its completion.
func Start(ctx context.Context, name string, logger *zap.Logger, job Job) *Task {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	t := &Task{
		name:    name,
		logger:  logger.Named("async").With(zap.String("task", name)),
		started: time.Now(),
		cancel:  cancel,
		g:       g,
		ctx:     gctx,
		done:    make(chan struct{}),
	}
	t.logger.Debug("task started")
	g.Go(func() error { return job(gctx, t) })
	go t.finish()
	return t
}

// Go runs fn as part of the task. The task completes when every part has
// returned; the first failure cancels the context given to the others.
func (t *Task) Go(fn func(ctx context.Context) error) {
	t.g.Go(func() error { return fn(t.ctx) })
}

func (t *Task) finish() {
	err := t.g.Wait()
	t.cancel()
	t.err = err
	switch {
	case err == nil:
		t.logger.Info("task finished", zap.Duration("elapsed", time.Since(t.started)))
	case errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled):
		t.logger.Info("task canceled", zap.Duration("elapsed", time.Since(t.started)))
	default:
		t.logger.Warn("task failed", zap.Error(err), zap.Duration("elapsed", time.Since(t.started)))
	}
	close(t.done)
}

// Name returns the name the task was started with.
func (t *Task) Name() string { return t.name }

// RequestCancel asks the job to stop at its next cooperative point.
func (t *Task) RequestCancel() {
	t.once.Do(func() {
		t.cancelRequested.Store(true)
		t.logger.Debug("cancellation requested")
	})
}

// CancelRequested reports whether RequestCancel has been called.
func (t *Task) CancelRequested() bool { return t.cancelRequested.Load() }

// Poll waits up to timeout for the task to finish.
//
// Postcondition: Returns (true, err) once the task has finished, where err
// is the job's result, or (false, nil) if it is still running.
func (t *Task) Poll(timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		select {
		case <-t.done:
			return true, t.err
		default:
			return false, nil
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-t.done:
		return true, t.err
	case <-timer.C:
		return false, nil
	}
}

// Wait blocks until the task finishes or ctx is done. Abandoning the wait
// does not stop the task.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
