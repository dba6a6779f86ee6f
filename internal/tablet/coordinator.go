package tablet

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/quartzdb/quartz/internal/stopchannel"
	"github.com/quartzdb/quartz/pkg/qerrors"
	"github.com/quartzdb/quartz/pkg/types"
)

// Coordinator owns the write path of a single tablet: the preparer, the apply
// pool, the in-flight driver registry, and the write log. Clients create
// drivers through NewDriver and submit them with OperationDriver.ExecuteAsync.
type Coordinator struct {
	coordinatorConfig

	tc  *tabletContext
	vc  *visibleCondition
	trk *tracker
	pr  *preparer
	ap  *applier

	sc *stopchannel.StopChannel
}

// NewCoordinator creates a Coordinator whose positions are restored from the
// write log of the given storage.
func NewCoordinator(opts ...CoordinatorOption) (*Coordinator, error) {
	cfg, err := newCoordinatorConfig(opts)
	if err != nil {
		return nil, err
	}

	rp, err := cfg.stg.ReadRecoveryPoints()
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		coordinatorConfig: cfg,
		tc:                newTabletContext(rp.Watermark),
		sc:                stopchannel.New(),
	}
	if rp.LastCommit != nil {
		c.tc.storeCommitted(rp.LastCommit.OpID, rp.LastCommit.Timestamp)
	}
	c.vc = newVisibleCondition(c.tc)
	c.trk = newTracker(cfg.metrics)

	c.pr, err = newPreparer(preparerConfig{
		queueCapacity: cfg.prepareQueueCapacity,
		c:             c,
		logger:        cfg.logger,
	})
	if err != nil {
		return nil, err
	}
	c.ap, err = newApplier(applierConfig{
		queueCapacity: cfg.applyQueueCapacity,
		concurrency:   cfg.applyConcurrency,
		c:             c,
		logger:        cfg.logger,
	})
	if err != nil {
		c.pr.stop()
		return nil, err
	}

	c.logger.Info("created coordinator", zap.Object("recoveryPoints", rp))
	return c, nil
}

// NewDriver creates a driver for op. Leader-origin drivers go through the full
// pipeline; follower-origin drivers are created for entries already
// replicating through the leader, so the replication engine drives them with
// RoundAppended and ReplicationFinished directly.
func (c *Coordinator) NewDriver(op Operation, origin Origin) (*OperationDriver, error) {
	if op == nil {
		return nil, errOperationIsNil
	}
	if c.closed() {
		return nil, errors.WithStack(qerrors.ErrClosed)
	}
	d := &OperationDriver{
		c:         c,
		op:        op,
		origin:    origin,
		ts:        types.InvalidTimestamp,
		startTime: time.Now(),
		logger:    c.logger,
	}
	if origin == OriginFollower {
		d.replState = replicating
	}
	d.seq = c.trk.register(d)
	return d, nil
}

// NumInflight returns the number of drivers that have not yet completed.
func (c *Coordinator) NumInflight() int64 {
	return c.trk.count()
}

// NumInflightOfKind returns the number of in-flight drivers of the given kind.
func (c *Coordinator) NumInflightOfKind(kind OperationKind) int64 {
	return c.trk.countOfKind(kind)
}

// InflightBytes returns the total request size of in-flight drivers.
func (c *Coordinator) InflightBytes() int64 {
	return c.trk.bytes()
}

// Watermark returns the visibility watermark: every operation with a timestamp
// at or below it has been applied and is visible to readers.
func (c *Coordinator) Watermark() types.Timestamp {
	_, watermark := c.tc.committedState()
	return watermark
}

// LastCommittedOpID returns the op id of the latest finalized operation.
func (c *Coordinator) LastCommittedOpID() types.OpID {
	id, _ := c.tc.committedState()
	return id
}

// WaitVisible blocks until changes at or below ts are visible, ctx is
// canceled, or the coordinator closes.
func (c *Coordinator) WaitVisible(ctx context.Context, ts types.Timestamp) error {
	return c.vc.waitC(ctx, ts)
}

// Inflight visits every in-flight driver. The snapshot is weakly consistent;
// it is meant for diagnostics, not coordination.
func (c *Coordinator) Inflight(f func(*OperationDriver)) {
	c.trk.foreach(f)
}

func (c *Coordinator) closed() bool {
	return c.sc.Stopped()
}

// Close stops the coordinator. Queued drivers that have not started any stage
// fail with qerrors.ErrClosed; dispatched applies are drained, since their
// operations already passed replication.
func (c *Coordinator) Close() error {
	c.sc.Stop()
	c.pr.stop()
	c.ap.stop()
	c.vc.destroy()
	c.logger.Info("closed coordinator")
	return nil
}

// fatal reports an unrecoverable failure. The default hook stops the process.
func (c *Coordinator) fatal(msg string, fields ...zap.Field) {
	c.fatalf(msg, fields...)
}
