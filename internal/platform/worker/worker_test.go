package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	iterations := 0

	done := make(chan error, 1)
	go func() {
		done <- Loop(ctx, Config{
			Name:         "test",
			PollInterval: 5 * time.Millisecond,
			Process: func(_ context.Context) error {
				iterations++
				if iterations >= 3 {
					cancel()
				}

				return nil
			},
		})
	}()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, iterations, 3)
}

func TestLoopContinuesAfterProcessError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	iterations := 0

	done := make(chan error, 1)
	go func() {
		done <- Loop(ctx, Config{
			Name:         "flaky",
			PollInterval: time.Millisecond,
			Process: func(_ context.Context) error {
				iterations++
				if iterations >= 3 {
					cancel()
				}

				return errors.New("cycle failed")
			},
		})
	}()

	<-done
	assert.GreaterOrEqual(t, iterations, 3, "errors must not stop the loop")
}

func TestLoopOnErrorCanStop(t *testing.T) {
	fatal := errors.New("fatal")

	err := Loop(context.Background(), Config{
		Name:         "fatal",
		PollInterval: time.Millisecond,
		Process: func(_ context.Context) error {
			return fatal
		},
		OnError: func(_ error) bool { return false },
	})

	assert.ErrorIs(t, err, fatal)
}

func TestLoopCallbacks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started, stopped bool

	err := Loop(ctx, Config{
		Name:    "callbacks",
		OnStart: func(_ context.Context) { started = true },
		OnStop:  func() { stopped = true },
		Process: func(_ context.Context) error {
			cancel()

			return nil
		},
		PollInterval: time.Millisecond,
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, started)
	assert.True(t, stopped)
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

func TestRunWithTimeout(t *testing.T) {
	err := RunWithTimeout(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
