package tablet

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v2"

	"github.com/quartzdb/quartz/internal/tablet/telemetry"
)

// tracker is the registry of in-flight operation drivers. A driver is
// registered when it is created and released after its terminal callback
// fired. Outer layers query the tracker for back-pressure and diagnostics.
type tracker struct {
	seq     atomic.Uint64
	drivers *xsync.MapOf[uint64, *OperationDriver]

	numDrivers atomic.Int64
	numByKind  [4]atomic.Int64
	bytesUsed  atomic.Int64

	metrics *telemetry.Metrics
}

func newTracker(metrics *telemetry.Metrics) *tracker {
	return &tracker{
		drivers: xsync.NewIntegerMapOf[uint64, *OperationDriver](),
		metrics: metrics,
	}
}

// register adds the driver and returns its registration sequence.
func (trk *tracker) register(d *OperationDriver) uint64 {
	seq := trk.seq.Add(1)
	trk.drivers.Store(seq, d)
	trk.numDrivers.Add(1)
	trk.countByKind(d.Kind()).Add(1)
	trk.bytesUsed.Add(int64(d.RequestSize()))
	trk.metrics.TrackedDrivers.Add(1)
	return seq
}

// release removes the driver. It is called exactly once per driver, after the
// terminal callback.
func (trk *tracker) release(d *OperationDriver) {
	if _, ok := trk.drivers.LoadAndDelete(d.seq); !ok {
		return
	}
	trk.numDrivers.Add(-1)
	trk.countByKind(d.Kind()).Add(-1)
	trk.bytesUsed.Add(-int64(d.RequestSize()))
	trk.metrics.TrackedDrivers.Add(-1)
}

// count returns the number of live drivers.
func (trk *tracker) count() int64 {
	return trk.numDrivers.Load()
}

// countOfKind returns the number of live drivers of the given kind.
func (trk *tracker) countOfKind(kind OperationKind) int64 {
	return trk.countByKind(kind).Load()
}

// bytes returns the total request size of live drivers.
func (trk *tracker) bytes() int64 {
	return trk.bytesUsed.Load()
}

// foreach visits every live driver, for diagnostics.
func (trk *tracker) foreach(f func(*OperationDriver)) {
	trk.drivers.Range(func(_ uint64, d *OperationDriver) bool {
		f(d)
		return true
	})
}

func (trk *tracker) countByKind(kind OperationKind) *atomic.Int64 {
	idx := int(kind)
	if idx < 0 || idx >= len(trk.numByKind) {
		idx = int(OperationKindUnknown)
	}
	return &trk.numByKind[idx]
}
