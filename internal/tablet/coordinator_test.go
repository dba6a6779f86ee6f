package tablet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zaptest"

	"github.com/quartzdb/quartz/internal/storage"
	"github.com/quartzdb/quartz/pkg/types"
)

func TestNewCoordinatorInvalidConfig(t *testing.T) {
	stg := storage.TestNewStorage(t)
	defer func() {
		assert.NoError(t, stg.Close())
	}()
	engine := TestNewReplicationEngine(t)

	tcs := []struct {
		name string
		opts []CoordinatorOption
	}{
		{
			name: "NoStorage",
			opts: []CoordinatorOption{
				WithReplicationEngine(engine),
			},
		},
		{
			name: "NoReplicationEngine",
			opts: []CoordinatorOption{
				WithStorage(stg),
			},
		},
		{
			name: "NoLogger",
			opts: []CoordinatorOption{
				WithStorage(stg),
				WithReplicationEngine(engine),
				WithLogger(nil),
			},
		},
		{
			name: "NegativePrepareQueueCapacity",
			opts: []CoordinatorOption{
				WithStorage(stg),
				WithReplicationEngine(engine),
				WithPrepareQueueCapacity(-1),
			},
		},
		{
			name: "ZeroApplyConcurrency",
			opts: []CoordinatorOption{
				WithStorage(stg),
				WithReplicationEngine(engine),
				WithApplyConcurrency(0),
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCoordinator(tc.opts...)
			require.Error(t, err)
		})
	}
}

func TestCoordinatorNilOperation(t *testing.T) {
	c := TestNewCoordinator(t, TestNewReplicationEngine(t))
	defer func() {
		assert.NoError(t, c.Close())
		assert.NoError(t, c.stg.Close())
	}()

	_, err := c.NewDriver(nil, OriginLeader)
	require.Error(t, err)
}

func TestCoordinatorRecoversFromWriteLog(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	path := t.TempDir()
	engine := TestNewReplicationEngine(t)

	newCoordinator := func(stg *storage.Storage) *Coordinator {
		c, err := NewCoordinator(
			WithTabletID(types.TabletID(1)),
			WithStorage(stg),
			WithReplicationEngine(engine),
			WithLogger(zaptest.NewLogger(t)),
		)
		require.NoError(t, err)
		return c
	}

	stg := storage.TestNewStorage(t, storage.WithPath(path))
	c := newCoordinator(stg)

	const numOps = 10
	var lastID types.OpID
	for i := 0; i < numOps; i++ {
		done := make(chan struct{})
		op := newTestOperation(t, ctrl, OperationKindWrite, 16)
		op.EXPECT().Prepare(gomock.Any()).Return(nil)
		op.EXPECT().Start(gomock.Any()).Return(nil)
		op.EXPECT().Apply(gomock.Any()).Return([]byte("x"), nil)
		op.EXPECT().Complete(nil).Do(func(err error) {
			close(done)
		})
		d, err := c.NewDriver(op, OriginLeader)
		require.NoError(t, err)
		d.ExecuteAsync()
		<-done
		lastID = d.GetOpID()
	}
	watermark := c.Watermark()
	require.Equal(t, lastID, c.LastCommittedOpID())
	require.NoError(t, c.Close())
	require.NoError(t, stg.Close())

	stg = storage.TestNewStorage(t, storage.WithPath(path))
	c = newCoordinator(stg)
	defer func() {
		assert.NoError(t, c.Close())
		assert.NoError(t, stg.Close())
	}()

	require.Equal(t, lastID, c.LastCommittedOpID())
	require.Equal(t, watermark, c.Watermark())
	require.NoError(t, c.WaitVisible(context.Background(), watermark))
	// The restored clock must issue timestamps above the watermark.
	require.Greater(t, c.tc.nextTimestamp(), watermark)
}

func TestCoordinatorInflightDiagnostics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := TestNewCoordinator(t, TestNewReplicationEngine(t))
	defer func() {
		assert.NoError(t, c.Close())
		assert.NoError(t, c.stg.Close())
	}()

	block := make(chan struct{})
	running := make(chan struct{})
	done := make(chan struct{})
	op := newTestOperation(t, ctrl, OperationKindTruncate, 256)
	op.EXPECT().Prepare(gomock.Any()).DoAndReturn(func(ctx context.Context) error {
		close(running)
		<-block
		return nil
	})
	op.EXPECT().Start(gomock.Any()).Return(nil)
	op.EXPECT().Apply(gomock.Any()).Return(nil, nil)
	op.EXPECT().Complete(nil).Do(func(err error) {
		close(done)
	})

	d, err := c.NewDriver(op, OriginLeader)
	require.NoError(t, err)
	d.ExecuteAsync()
	<-running

	var descs []string
	c.Inflight(func(d *OperationDriver) {
		descs = append(descs, d.String())
	})
	require.Len(t, descs, 1)
	require.Contains(t, descs[0], "truncate")
	require.Equal(t, int64(1), c.NumInflightOfKind(OperationKindTruncate))
	require.Equal(t, int64(0), c.NumInflightOfKind(OperationKindWrite))
	require.False(t, d.StartTime().IsZero())
	require.Equal(t, OriginLeader, d.Origin())

	close(block)
	<-done
	require.Eventually(t, func() bool {
		return c.NumInflight() == 0
	}, time.Second, time.Millisecond)
}
