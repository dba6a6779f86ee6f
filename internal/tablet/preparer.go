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

const (
	minQueueCapacity = 0
	maxQueueCapacity = 1 << 16
)

// roundLengthClasses are the coalescing classes of the preparer. The class is
// chosen by the backlog of the queue, so a loaded preparer amortizes the
// replication append over more drivers.
var roundLengthClasses = []int{
	1 << 4,
	1 << 6,
	1 << 8,
	1 << 10,
}

func selectRoundLength(backlog int) int {
	idx := 0
	for idx < len(roundLengthClasses)-1 {
		if backlog <= roundLengthClasses[idx] {
			break
		}
		idx++
	}
	return roundLengthClasses[idx]
}

// preparer is the batching dispatcher of the write path. It runs
// prepareAndStartTask on every enqueued driver and submits the leader-origin
// drivers that prepared successfully to the replication engine as one
// coalesced round.
type preparer struct {
	preparerConfig
	queue    chan *OperationDriver
	batch    []*OperationDriver
	inflight atomic.Int64
	runner   *runner.Runner
}

// newPreparer creates a new preparer.
func newPreparer(cfg preparerConfig) (*preparer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	pr := &preparer{
		preparerConfig: cfg,
		queue:          make(chan *OperationDriver, cfg.queueCapacity),
		batch:          make([]*OperationDriver, 0, roundLengthClasses[len(roundLengthClasses)-1]),
		runner:         runner.New("preparer", cfg.logger),
	}
	if err := pr.runner.Run(pr.prepareLoop); err != nil {
		return nil, err
	}
	return pr, nil
}

// send enqueues a driver. It never blocks: when the coordinator is closed or
// the queue is full it returns an error instead.
func (pr *preparer) send(d *OperationDriver) (err error) {
	inflight := pr.inflight.Add(1)
	defer func() {
		if err != nil {
			inflight = pr.inflight.Add(-1)
		}
		pr.c.metrics.PreparerInflight.Store(inflight)
		if ce := pr.logger.Check(zap.DebugLevel, "sent preparer a driver"); ce != nil {
			ce.Write(
				zap.Int64("inflight", inflight),
				zap.Error(err),
			)
		}
	}()

	if pr.c.closed() {
		return qerrors.ErrClosed
	}

	select {
	case pr.queue <- d:
	default:
		err = qerrors.ErrOverloaded
	}
	return err
}

// prepareLoop is the main loop of the preparer.
func (pr *preparer) prepareLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-pr.queue:
			pr.prepareLoopInternal(ctx, d)
		}
	}
}

// prepareLoopInternal drains a batch of drivers from the queue, prepares and
// starts each of them, and submits the coalesced round.
func (pr *preparer) prepareLoopInternal(ctx context.Context, first *OperationDriver) {
	batch := pr.nextBatch(first)
	round := newRound(len(batch))
	for _, d := range batch {
		if err := d.prepareAndStartTask(ctx); err != nil {
			continue
		}
		if d.IsLeaderSide() {
			round.add(d)
		}
	}
	inflight := pr.inflight.Add(-int64(len(batch)))
	pr.c.metrics.PreparerInflight.Store(inflight)

	if round.Len() == 0 {
		return
	}
	pr.c.metrics.RecordRound(ctx, round.Len())

	if err := pr.c.engine.Submit(round); err != nil {
		pr.logger.Error("could not submit round",
			zap.Int("drivers", round.Len()),
			zap.Error(err),
		)
		// A synchronous rejection means no peer has seen any of these
		// operations.
		err = qerrors.NewReplicationError(err, true)
		for _, d := range round.Drivers() {
			d.SetReplicationFailed(err)
		}
	}
}

// nextBatch collects drivers from the queue up to the round length class
// chosen by the backlog.
func (pr *preparer) nextBatch(first *OperationDriver) []*OperationDriver {
	pr.batch = pr.batch[:0]
	pr.batch = append(pr.batch, first)
	maxLen := selectRoundLength(len(pr.queue) + 1)
	for len(pr.batch) < maxLen {
		select {
		case d := <-pr.queue:
			pr.batch = append(pr.batch, d)
		default:
			return pr.batch
		}
	}
	return pr.batch
}

// waitForDrainage waits for queued drivers being drained. The argument
// forceDrain should be set only if prepareLoop is stopped; drained drivers
// are failed with the argument cause.
func (pr *preparer) waitForDrainage(cause error, forceDrain bool) {
	const tick = time.Millisecond
	timer := time.NewTimer(tick)
	defer timer.Stop()

	if ce := pr.logger.Check(zap.DebugLevel, "draining preparer queue"); ce != nil {
		ce.Write(
			zap.Int64("inflight", pr.inflight.Load()),
			zap.Error(cause),
		)
	}

	for pr.inflight.Load() > 0 {
		if !forceDrain {
			<-timer.C
			timer.Reset(tick)
			continue
		}

		select {
		case <-timer.C:
			timer.Reset(tick)
		case d := <-pr.queue:
			d.cancelQueued(cause)
			pr.inflight.Add(-1)
		}
	}
}

// stop terminates the preparer. The terminated preparer cannot be used.
func (pr *preparer) stop() {
	pr.runner.Stop()
	pr.waitForDrainage(qerrors.ErrClosed, true)
}

type preparerConfig struct {
	queueCapacity int
	c             *Coordinator
	logger        *zap.Logger
}

func (cfg preparerConfig) validate() error {
	if err := validateQueueCapacity("prepare", cfg.queueCapacity); err != nil {
		return fmt.Errorf("preparer: %w", err)
	}
	if cfg.c == nil {
		return fmt.Errorf("preparer: %w", errCoordinatorIsNil)
	}
	if cfg.logger == nil {
		return fmt.Errorf("preparer: %w", errLoggerIsNil)
	}
	return nil
}
