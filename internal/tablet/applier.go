package tablet

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/quartzdb/quartz/pkg/qerrors"
	"github.com/quartzdb/quartz/pkg/util/runner"
)

// applier is the apply pool of the write path. Dispatched drivers are past
// the replication-success boundary, so the applier never rejects a driver
// unless its queue overflows, which callers treat as a correctness emergency.
// The queue must therefore be sized at least as large as the number of
// drivers the tracker admits.
type applier struct {
	applierConfig
	queue    chan *OperationDriver
	inflight atomic.Int64
	runner   *runner.Runner
}

// newApplier creates a new applier with cfg.concurrency workers.
func newApplier(cfg applierConfig) (*applier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ap := &applier{
		applierConfig: cfg,
		queue:         make(chan *OperationDriver, cfg.queueCapacity),
		runner:        runner.New("applier", cfg.logger),
	}
	for i := 0; i < cfg.concurrency; i++ {
		if err := ap.runner.Run(ap.applyLoop); err != nil {
			ap.runner.Stop()
			return nil, err
		}
	}
	return ap, nil
}

// send submits a driver whose apply was dispatched. It never blocks.
func (ap *applier) send(d *OperationDriver) (err error) {
	inflight := ap.inflight.Add(1)
	defer func() {
		if err != nil {
			inflight = ap.inflight.Add(-1)
		}
		ap.c.metrics.ApplierInflight.Store(inflight)
	}()

	select {
	case ap.queue <- d:
	default:
		err = qerrors.ErrOverloaded
	}
	return err
}

// applyLoop is the loop of a single apply worker.
func (ap *applier) applyLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-ap.queue:
			ap.applyLoopInternal(ctx, d)
		}
	}
}

func (ap *applier) applyLoopInternal(ctx context.Context, d *OperationDriver) {
	defer func() {
		inflight := ap.inflight.Add(-1)
		ap.c.metrics.ApplierInflight.Store(inflight)
	}()
	d.applyTask(ctx)
}

// waitForDrainage waits until dispatched applies are drained by the running
// workers. Unlike the preparer, drivers are never dropped here: they carry
// replicated operations.
func (ap *applier) waitForDrainage() {
	const tick = time.Millisecond
	timer := time.NewTimer(tick)
	defer timer.Stop()

	if ce := ap.logger.Check(zap.DebugLevel, "draining applier queue"); ce != nil {
		ce.Write(zap.Int64("inflight", ap.inflight.Load()))
	}

	for ap.inflight.Load() > 0 {
		<-timer.C
		timer.Reset(tick)
	}
}

// stop drains dispatched applies and terminates the workers. The terminated
// applier cannot be used.
func (ap *applier) stop() {
	ap.waitForDrainage()
	ap.runner.Stop()
}

type applierConfig struct {
	queueCapacity int
	concurrency   int
	c             *Coordinator
	logger        *zap.Logger
}

func (cfg applierConfig) validate() error {
	if err := validateQueueCapacity("apply", cfg.queueCapacity); err != nil {
		return fmt.Errorf("applier: %w", err)
	}
	// send never blocks, so an unbuffered queue would reject every driver.
	if cfg.queueCapacity < 1 {
		return fmt.Errorf("applier: queue capacity must be positive")
	}
	if cfg.concurrency < 1 {
		return fmt.Errorf("applier: concurrency must be positive")
	}
	if cfg.c == nil {
		return fmt.Errorf("applier: %w", errCoordinatorIsNil)
	}
	if cfg.logger == nil {
		return fmt.Errorf("applier: %w", errLoggerIsNil)
	}
	return nil
}
