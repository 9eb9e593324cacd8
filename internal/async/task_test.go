package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/MUME/MMapper-sub000/internal/async"
)

func TestTask_PollReportsCompletion(t *testing.T) {
	release := make(chan struct{})
	task := async.Start(context.Background(), "save", zaptest.NewLogger(t), func(ctx context.Context, _ *async.Task) error {
		<-release
		return nil
	})

	done, err := task.Poll(10 * time.Millisecond)
	assert.False(t, done)
	assert.NoError(t, err)

	close(release)
	done, err = task.Poll(2 * time.Second)
	assert.True(t, done)
	assert.NoError(t, err)
	assert.Equal(t, "save", task.Name())
}

func TestTask_CooperativeCancel(t *testing.T) {
	var steps atomic.Int32
	task := async.Start(context.Background(), "load", zaptest.NewLogger(t), func(ctx context.Context, tk *async.Task) error {
		for {
			if tk.CancelRequested() {
				return async.ErrCanceled
			}
			steps.Add(1)
			time.Sleep(time.Millisecond)
		}
	})

	require.Eventually(t, func() bool { return steps.Load() > 0 }, time.Second, time.Millisecond)
	task.RequestCancel()
	task.RequestCancel()
	assert.True(t, task.CancelRequested())

	err := task.Wait(context.Background())
	assert.ErrorIs(t, err, async.ErrCanceled)
}

func TestTask_FirstPartFailureCancelsOthers(t *testing.T) {
	boom := errors.New("disk full")
	task := async.Start(context.Background(), "export", zaptest.NewLogger(t), func(ctx context.Context, tk *async.Task) error {
		tk.Go(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
		return boom
	})

	err := task.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestTask_ZeroTimeoutDoesNotBlock(t *testing.T) {
	block := make(chan struct{})
	task := async.Start(context.Background(), "idle", zaptest.NewLogger(t), func(ctx context.Context, _ *async.Task) error {
		<-block
		return nil
	})
	defer func() {
		close(block)
		_ = task.Wait(context.Background())
	}()
	done, err := task.Poll(0)
	assert.False(t, done)
	assert.NoError(t, err)
}

func TestTask_WaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	task := async.Start(context.Background(), "slow", zaptest.NewLogger(t), func(ctx context.Context, _ *async.Task) error {
		<-block
		return nil
	})
	defer func() {
		close(block)
		_ = task.Wait(context.Background())
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, task.Wait(ctx), context.DeadlineExceeded)
}
