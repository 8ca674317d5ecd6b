package pipeline

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func blockUntilCancelled(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestStartStop(t *testing.T) {
	var running atomic.Int32
	pipe := New(quietLogger())
	for i := 0; i < 3; i++ {
		pipe.Register("loop", func(ctx context.Context) error {
			running.Add(1)
			defer running.Add(-1)
			return blockUntilCancelled(ctx)
		})
	}

	require.NoError(t, pipe.Start(context.Background()))
	require.Eventually(t, func() bool { return running.Load() == 3 }, time.Second, time.Millisecond)

	require.NoError(t, pipe.Stop())
	assert.Zero(t, running.Load())
}

func TestStartIsIdempotent(t *testing.T) {
	var starts atomic.Int32
	pipe := New(quietLogger())
	pipe.Register("loop", func(ctx context.Context) error {
		starts.Add(1)
		return blockUntilCancelled(ctx)
	})

	require.NoError(t, pipe.Start(context.Background()))
	require.NoError(t, pipe.Start(context.Background()))
	require.NoError(t, pipe.Start(context.Background()))

	require.NoError(t, pipe.Stop())
	assert.Equal(t, int32(1), starts.Load())
}

func TestStopIsIdempotent(t *testing.T) {
	pipe := New(quietLogger())
	pipe.Register("loop", blockUntilCancelled)

	require.NoError(t, pipe.Stop())
	require.NoError(t, pipe.Start(context.Background()))
	require.NoError(t, pipe.Stop())
	require.NoError(t, pipe.Stop())
}

func TestStartWithoutComponents(t *testing.T) {
	pipe := New(quietLogger())
	assert.Error(t, pipe.Start(context.Background()))
}

func TestComponentFailureSurfacesThroughWait(t *testing.T) {
	boom := errors.New("boom")
	pipe := New(quietLogger())
	pipe.Register("failing", func(ctx context.Context) error {
		return boom
	})
	pipe.Register("healthy", blockUntilCancelled)

	require.NoError(t, pipe.Start(context.Background()))
	assert.ErrorIs(t, pipe.Wait(), boom)
	require.ErrorIs(t, pipe.Stop(), boom)
}

func TestParentContextCancelStopsComponents(t *testing.T) {
	var running atomic.Int32
	pipe := New(quietLogger())
	pipe.Register("loop", func(ctx context.Context) error {
		running.Add(1)
		defer running.Add(-1)
		return blockUntilCancelled(ctx)
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pipe.Start(ctx))
	require.Eventually(t, func() bool { return running.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, pipe.Wait())
	assert.Zero(t, running.Load())
}
