package tablet

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quartzdb/quartz/internal/tablet/telemetry"
)

func TestTracker(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	trk := newTracker(telemetry.NewNopMetrics())

	newDriver := func(kind OperationKind, size int) *OperationDriver {
		op := newTestOperation(t, ctrl, kind, size)
		d := &OperationDriver{op: op}
		d.seq = trk.register(d)
		return d
	}

	d1 := newDriver(OperationKindWrite, 100)
	d2 := newDriver(OperationKindWrite, 200)
	d3 := newDriver(OperationKindTruncate, 50)
	require.NotEqual(t, d1.seq, d2.seq)

	require.Equal(t, int64(3), trk.count())
	require.Equal(t, int64(2), trk.countOfKind(OperationKindWrite))
	require.Equal(t, int64(1), trk.countOfKind(OperationKindTruncate))
	require.Equal(t, int64(0), trk.countOfKind(OperationKindChangeConfig))
	require.Equal(t, int64(350), trk.bytes())

	visited := 0
	trk.foreach(func(*OperationDriver) {
		visited++
	})
	require.Equal(t, 3, visited)

	trk.release(d2)
	require.Equal(t, int64(2), trk.count())
	require.Equal(t, int64(1), trk.countOfKind(OperationKindWrite))
	require.Equal(t, int64(150), trk.bytes())

	// Releasing twice has no effect.
	trk.release(d2)
	require.Equal(t, int64(2), trk.count())
	require.Equal(t, int64(150), trk.bytes())

	trk.release(d1)
	trk.release(d3)
	require.Equal(t, int64(0), trk.count())
	require.Equal(t, int64(0), trk.bytes())
}

func TestTrackerUnknownKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	trk := newTracker(telemetry.NewNopMetrics())

	op := newTestOperation(t, ctrl, OperationKind(42), 10)
	d := &OperationDriver{op: op}
	d.seq = trk.register(d)

	// Out-of-range kinds are accounted as unknown rather than panicking.
	require.Equal(t, int64(1), trk.countOfKind(OperationKindUnknown))
	trk.release(d)
	require.Equal(t, int64(0), trk.countOfKind(OperationKindUnknown))
}
