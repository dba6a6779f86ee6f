package tablet

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/quartzdb/quartz/pkg/qerrors"
)

func TestSelectRoundLength(t *testing.T) {
	tcs := []struct {
		backlog int
		want    int
	}{
		{backlog: 0, want: 16},
		{backlog: 1, want: 16},
		{backlog: 16, want: 16},
		{backlog: 17, want: 64},
		{backlog: 64, want: 64},
		{backlog: 65, want: 256},
		{backlog: 256, want: 256},
		{backlog: 257, want: 1024},
		{backlog: 1024, want: 1024},
		{backlog: 1 << 20, want: 1024},
	}
	for _, tc := range tcs {
		require.Equal(t, tc.want, selectRoundLength(tc.backlog), "backlog=%d", tc.backlog)
	}
}

func TestPreparerCoalescesRounds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var mu sync.Mutex
	var roundLengths []int
	te := TestNewReplicationEngine(t)
	te.SubmitHook = func(round *Round) error {
		mu.Lock()
		roundLengths = append(roundLengths, round.Len())
		mu.Unlock()
		return nil
	}
	c := TestNewCoordinator(t, te)
	defer func() {
		assert.NoError(t, c.Close())
		assert.NoError(t, c.stg.Close())
	}()

	// Hold the prepare worker on the first driver so the rest pile up in the
	// queue and are drained as one round.
	block := make(chan struct{})
	running := make(chan struct{})

	const numDrivers = 10
	var completed sync.WaitGroup
	drivers := make([]*OperationDriver, 0, numDrivers)
	for i := 0; i < numDrivers; i++ {
		completed.Add(1)
		op := newTestOperation(t, ctrl, OperationKindWrite, 16)
		if i == 0 {
			op.EXPECT().Prepare(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
				close(running)
				<-block
				return nil
			})
		} else {
			op.EXPECT().Prepare(gomock.Any()).Return(nil)
		}
		op.EXPECT().Start(gomock.Any()).Return(nil)
		op.EXPECT().Apply(gomock.Any()).Return(nil, nil)
		op.EXPECT().Complete(nil).Do(func(err error) {
			completed.Done()
		})
		d, err := c.NewDriver(op, OriginLeader)
		require.NoError(t, err)
		drivers = append(drivers, d)
	}

	drivers[0].ExecuteAsync()
	<-running
	for _, d := range drivers[1:] {
		d.ExecuteAsync()
	}
	close(block)
	completed.Wait()

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, n := range roundLengths {
		total += n
	}
	require.Equal(t, numDrivers, total)
	// The first round carries only the blocked driver; the piled-up drivers
	// come in at most a handful of coalesced rounds afterwards.
	require.Less(t, len(roundLengths), numDrivers)
}

func TestPreparerOverload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := TestNewCoordinator(t, TestNewReplicationEngine(t),
		WithPrepareQueueCapacity(1),
	)
	defer func() {
		assert.NoError(t, c.Close())
		assert.NoError(t, c.stg.Close())
	}()

	block := make(chan struct{})
	running := make(chan struct{})
	var completed sync.WaitGroup

	completed.Add(1)
	blocked := newTestOperation(t, ctrl, OperationKindWrite, 16)
	blocked.EXPECT().Prepare(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		close(running)
		<-block
		return nil
	})
	blocked.EXPECT().Start(gomock.Any()).Return(nil)
	blocked.EXPECT().Apply(gomock.Any()).Return(nil, nil)
	blocked.EXPECT().Complete(nil).Do(func(err error) {
		completed.Done()
	})
	d, err := c.NewDriver(blocked, OriginLeader)
	require.NoError(t, err)
	d.ExecuteAsync()
	<-running

	completed.Add(1)
	queued := newTestOperation(t, ctrl, OperationKindWrite, 16)
	queued.EXPECT().Prepare(gomock.Any()).Return(nil)
	queued.EXPECT().Start(gomock.Any()).Return(nil)
	queued.EXPECT().Apply(gomock.Any()).Return(nil, nil)
	queued.EXPECT().Complete(nil).Do(func(err error) {
		completed.Done()
	})
	d, err = c.NewDriver(queued, OriginLeader)
	require.NoError(t, err)
	d.ExecuteAsync()

	// The worker is busy and the queue is full, so the next driver is
	// rejected instead of blocking the caller.
	rejectedDone := make(chan struct{})
	rejected := newTestOperation(t, ctrl, OperationKindWrite, 16)
	rejected.EXPECT().Complete(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, qerrors.ErrOverloaded)
		close(rejectedDone)
	})
	d, err = c.NewDriver(rejected, OriginLeader)
	require.NoError(t, err)
	d.ExecuteAsync()
	<-rejectedDone

	close(block)
	completed.Wait()
	require.Eventually(t, func() bool {
		return c.NumInflight() == 0
	}, time.Second, time.Millisecond)
}

func TestPreparerInvalidConfig(t *testing.T) {
	c := &Coordinator{}
	tcs := []struct {
		name string
		cfg  preparerConfig
	}{
		{
			name: "NegativeQueueCapacity",
			cfg:  preparerConfig{queueCapacity: -1, c: c, logger: zap.NewNop()},
		},
		{
			name: "TooLargeQueueCapacity",
			cfg:  preparerConfig{queueCapacity: maxQueueCapacity + 1, c: c, logger: zap.NewNop()},
		},
		{
			name: "NilCoordinator",
			cfg:  preparerConfig{queueCapacity: 1, logger: zap.NewNop()},
		},
		{
			name: "NilLogger",
			cfg:  preparerConfig{queueCapacity: 1, c: c},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newPreparer(tc.cfg)
			require.Error(t, err)
		})
	}
}
