package runner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRunnerRunAndStop(t *testing.T) {
	r := New("test", zap.NewNop())

	var started, stopped atomic.Int32
	const numTasks = 10
	for i := 0; i < numTasks; i++ {
		err := r.Run(func(ctx context.Context) {
			started.Add(1)
			<-ctx.Done()
			stopped.Add(1)
		})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return started.Load() == numTasks
	}, time.Second, time.Millisecond)
	assert.Equal(t, numTasks, r.NumTasks())

	r.Stop()
	assert.EqualValues(t, numTasks, stopped.Load())
	assert.Zero(t, r.NumTasks())
	assert.Equal(t, Stopped, r.State())
}

func TestRunnerRejectsAfterStop(t *testing.T) {
	r := New("test", zap.NewNop())
	r.Stop()
	err := r.Run(func(context.Context) {})
	assert.Error(t, err)
}

func TestRunnerStopTwice(t *testing.T) {
	r := New("test", zap.NewNop())
	require.NoError(t, r.Run(func(ctx context.Context) {
		<-ctx.Done()
	}))
	r.Stop()
	r.Stop()
	assert.Equal(t, Stopped, r.State())
}

func TestRunnerTaskFinishesEarly(t *testing.T) {
	r := New("test", zap.NewNop())
	require.NoError(t, r.Run(func(context.Context) {}))
	require.Eventually(t, func() bool {
		return r.NumTasks() == 0
	}, time.Second, time.Millisecond)
	r.Stop()
}
