package tablet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/quartzdb/quartz/internal/storage"
	"github.com/quartzdb/quartz/pkg/qerrors"
	"github.com/quartzdb/quartz/pkg/types"
)

// Origin tells whether a driver was created by a client submission on the
// leader or from an already-replicating entry on a follower.
type Origin int8

const (
	OriginLeader Origin = iota
	OriginFollower
)

func (o Origin) String() string {
	if o == OriginFollower {
		return "follower"
	}
	return "leader"
}

type replicationState int8

const (
	// The operation has not yet been sent to the replication engine.
	notReplicating replicationState = iota

	// Replication has been triggered, either because the preparer submitted
	// the round on the leader, or because the driver was created for an entry
	// a follower received from its leader.
	replicating

	// Replication has failed, and it is certain that no peer has received the
	// operation.
	replicationFailed

	// Replication has succeeded.
	replicated
)

func (s replicationState) String() string {
	switch s {
	case notReplicating:
		return "NR"
	case replicating:
		return "R"
	case replicationFailed:
		return "RF"
	case replicated:
		return "RD"
	}
	return "?"
}

type prepareState int8

const (
	notPrepared prepareState = iota
	prepared
)

func (s prepareState) String() string {
	if s == prepared {
		return "P"
	}
	return "NP"
}

// OperationDriver coordinates the execution of a single operation across the
// prepare pool, the replication engine's notification thread, and the apply
// pool. The general flow is:
//
//  1. The driver is created by Coordinator.NewDriver. A follower-origin
//     driver starts out replicating, since the entry already went through the
//     leader.
//
//  2. ExecuteAsync submits the driver to the preparer and returns.
//
//  3. A prepare-pool worker runs prepareAndStartTask, which calls Prepare and
//     Start on the operation. Leader-origin drivers stop short of submitting
//     for replication here; the preparer batches several prepared drivers
//     into one round before handing it to the replication engine. If the
//     driver is already replicated at this point, the worker triggers the
//     apply.
//
//  4. The replication engine calls RoundAppended when the round is durably
//     enqueued and later ReplicationFinished when agreement is reached. On a
//     follower, ReplicationFinished can arrive before the prepare finishes,
//     and then the apply is deferred to the prepare-pool worker.
//
//  5. An apply-pool worker runs applyTask, which applies the operation to
//     in-memory structures, appends a commit record to the write log, and
//     finalizes: the changes become visible, the operation's completion
//     callback fires, and the driver deregisters from the tracker.
//
// All methods are safe to call from any goroutine.
type OperationDriver struct {
	c *Coordinator

	// mu guards the multi-field state transitions below. It is held only
	// across short, non-blocking sections and never across a call into the
	// operation.
	mu        sync.Mutex
	replState replicationState
	prepState prepareState
	// status is the terminal failure status. Once set it never changes.
	status error
	// applyDispatched flips when one of the two racing completion paths
	// submits the apply task, so the other does nothing.
	applyDispatched bool
	// done flips when the terminal callback has fired.
	done bool

	// opIDMu guards only opID. Diagnostic readers call GetOpID from outside
	// the driver's control and must not contend with mu.
	opIDMu sync.RWMutex
	opID   types.OpID

	// op is owned exclusively by the driver.
	op     Operation
	origin Origin
	seq    uint64
	// ts is the operation timestamp: assigned by the local clock during
	// prepare on the leader, or propagated by the leader on a follower. It is
	// written before the driver is enqueued or by the prepare-pool worker
	// only.
	ts        types.Timestamp
	startTime time.Time

	logger *zap.Logger
}

// ExecuteAsync submits the driver for execution and returns immediately. The
// result reaches the caller only through the operation's completion callback.
func (d *OperationDriver) ExecuteAsync() {
	if err := d.c.pr.send(d); err != nil {
		// No stage has run yet. A driver already replicating must not take
		// the post-replication fatal route for a local queue rejection; like
		// the drain path, it is re-driven from the log after a restart.
		d.mu.Lock()
		queued := d.replState != notReplicating
		d.mu.Unlock()
		if queued {
			d.cancelQueued(err)
			return
		}
		d.handleFailure(err)
	}
}

// GetOpID returns the op id assigned by the replication engine, or
// types.InvalidOpID if none has been assigned yet.
func (d *OperationDriver) GetOpID() types.OpID {
	d.opIDMu.RLock()
	defer d.opIDMu.RUnlock()
	return d.opID
}

func (d *OperationDriver) setOpID(id types.OpID) {
	if id.Invalid() {
		d.c.fatal("replication engine assigned an invalid op id",
			zap.Stringer("kind", d.Kind()))
		return
	}
	d.opIDMu.Lock()
	prev := d.opID
	if prev.Invalid() {
		d.opID = id
	}
	d.opIDMu.Unlock()
	if !prev.Invalid() && prev != id {
		d.c.fatal("op id reassigned",
			zap.Stringer("assigned", prev),
			zap.Stringer("reassigned", id),
		)
	}
}

// Kind returns the kind of the driven operation.
func (d *OperationDriver) Kind() OperationKind {
	return d.op.Kind()
}

// RequestSize returns the request size of the driven operation in bytes.
func (d *OperationDriver) RequestSize() int {
	return d.op.RequestSize()
}

// StartTime returns the creation time of the driver.
func (d *OperationDriver) StartTime() time.Time {
	return d.startTime
}

// Origin returns the origin of the driver.
func (d *OperationDriver) Origin() Origin {
	return d.origin
}

// IsLeaderSide reports whether the driver still has to be submitted for
// replication by the preparer.
func (d *OperationDriver) IsLeaderSide() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.replState == notReplicating
}

// String returns a short description of where the driver currently is in the
// state machine.
func (d *OperationDriver) String() string {
	d.mu.Lock()
	repl, prep := d.replState, d.prepState
	d.mu.Unlock()
	return fmt.Sprintf("driver{opid=%s, kind=%s, origin=%s, state=%s-%s}",
		d.GetOpID(), d.Kind(), d.origin, repl, prep)
}

// SetPropagatedWatermark sets the visibility timestamp propagated by the
// leader. Only follower-origin drivers carry one, and it must be set before
// ExecuteAsync.
func (d *OperationDriver) SetPropagatedWatermark(ts types.Timestamp) {
	d.ts = ts
	d.c.tc.observeTimestamp(ts)
}

// Abort requests a best-effort cancellation. It cannot interrupt a stage
// already executing on another worker; it only takes effect at the next
// checkpoint that stage observes. Once replication has been triggered the
// abort is ignored: the operation may reach peers regardless, so only the
// replication outcome decides its fate.
func (d *OperationDriver) Abort(err error) {
	if err == nil {
		err = errors.WithStack(qerrors.ErrAborted)
	}
	d.mu.Lock()
	if d.replState != notReplicating || d.done {
		d.mu.Unlock()
		if ce := d.logger.Check(zap.DebugLevel, "ignoring abort"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return
	}
	if d.status == nil {
		d.status = err
	}
	d.mu.Unlock()
}

// prepareAndStart calls Prepare and Start on the operation. For leader-origin
// drivers it deliberately stops short of submitting for replication: the
// preparer does that, so several rounds can be appended to the replication
// pipeline together.
func (d *OperationDriver) prepareAndStart(ctx context.Context) error {
	d.mu.Lock()
	if d.status != nil {
		err := d.status
		d.mu.Unlock()
		return err
	}
	d.mu.Unlock()

	startTime := time.Now()
	if err := d.op.Prepare(ctx); err != nil {
		return err
	}
	if d.ts.Invalid() {
		d.ts = d.c.tc.nextTimestamp()
	}
	if err := d.op.Start(d.ts); err != nil {
		return err
	}
	d.c.metrics.RecordPrepare(ctx, time.Since(startTime).Microseconds())

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != nil {
		return d.status
	}
	d.prepState = prepared
	d.maybeApplyLocked()
	return nil
}

// prepareAndStartTask is run by the preparer. Any failure routes to
// handleFailure.
func (d *OperationDriver) prepareAndStartTask(ctx context.Context) error {
	err := d.prepareAndStart(ctx)
	if err != nil {
		d.handleFailure(err)
	}
	return err
}

// RoundAppended is called by the replication engine for each driver of a
// round once the round is durably enqueued in the replication pipeline. The
// engine assigns the op id at this point.
func (d *OperationDriver) RoundAppended(id types.OpID) {
	d.setOpID(id)
	d.mu.Lock()
	if d.replState == notReplicating {
		d.replState = replicating
	}
	d.mu.Unlock()
}

// ReplicationFinished is called by the replication engine when the operation
// is committed from the replication perspective: it will be applied on every
// replica and never truncated from the history. A non-nil err certainly local
// to this node routes to ordinary failure handling; an ambiguous err stops
// the process, since retrying an operation that a peer may have recorded
// risks divergence between replicas.
func (d *OperationDriver) ReplicationFinished(id types.OpID, err error) {
	if err != nil {
		if !qerrors.Recoverable(err) {
			d.c.fatal("replication failed with ambiguous result",
				zap.Stringer("kind", d.Kind()),
				zap.Stringer("opid", d.GetOpID()),
				zap.Error(err),
			)
			return
		}
		d.SetReplicationFailed(err)
		return
	}

	d.setOpID(id)

	d.mu.Lock()
	if d.replState != replicating {
		state := d.replState
		d.mu.Unlock()
		d.c.fatal("replication finished in unexpected state",
			zap.Stringer("kind", d.Kind()),
			zap.Stringer("opid", id),
			zap.Stringer("replicationState", state),
		)
		return
	}
	d.replState = replicated
	d.maybeApplyLocked()
	d.mu.Unlock()
}

// SetReplicationFailed is called when submission for replication failed and
// it is certain that no peer has seen the operation. It is always locally
// recoverable. The replication state never moves backwards: reporting a
// failure for an already replicated operation stops the process.
func (d *OperationDriver) SetReplicationFailed(err error) {
	d.mu.Lock()
	if d.replState != notReplicating && d.replState != replicating {
		state := d.replState
		d.mu.Unlock()
		d.c.fatal("replication failure reported in unexpected state",
			zap.Stringer("kind", d.Kind()),
			zap.Stringer("opid", d.GetOpID()),
			zap.Stringer("replicationState", state),
			zap.Error(err),
		)
		return
	}
	d.replState = replicationFailed
	if d.status == nil {
		d.status = err
	}
	d.mu.Unlock()
	d.handleFailure(err)
}

// handleFailure terminates the operation. Failures before replication started
// are surfaced through the operation's completion callback. A failure when
// the operation is replicating or replicated stops the process: the operation
// may already be recorded by peers, and partial application after agreement
// cannot be undone.
func (d *OperationDriver) handleFailure(err error) {
	d.mu.Lock()
	if d.status == nil {
		d.status = err
	} else {
		err = d.status
	}
	if d.done {
		d.mu.Unlock()
		return
	}
	switch d.replState {
	case replicating, replicated:
		d.mu.Unlock()
		d.c.fatal("operation failed after replication started",
			zap.Stringer("kind", d.Kind()),
			zap.Stringer("opid", d.GetOpID()),
			zap.Error(err),
		)
		return
	default:
	}
	d.done = true
	d.mu.Unlock()

	if ce := d.logger.Check(zap.DebugLevel, "operation failed"); ce != nil {
		ce.Write(zap.Stringer("kind", d.Kind()), zap.Error(err))
	}
	d.op.Complete(err)
	d.c.trk.release(d)
}

// cancelQueued fails a driver that was drained from a queue before any stage
// ran. It skips the state machine entirely; on a follower the entry is
// re-driven from the log after a restart.
func (d *OperationDriver) cancelQueued(err error) {
	d.mu.Lock()
	if d.done {
		d.mu.Unlock()
		return
	}
	d.done = true
	if d.status == nil {
		d.status = err
	}
	d.mu.Unlock()
	d.op.Complete(err)
	d.c.trk.release(d)
}

// maybeApplyLocked submits the apply task if both racing completion paths
// have arrived: the prepare finished and the replication succeeded. The
// caller must hold mu. Whichever caller observes both conditions flips
// applyDispatched and performs the submission; the flag guarantees it happens
// exactly once.
func (d *OperationDriver) maybeApplyLocked() {
	if d.applyDispatched || d.prepState != prepared || d.replState != replicated {
		return
	}
	d.applyDispatched = true
	if err := d.c.ap.send(d); err != nil {
		// Replication already succeeded; losing the apply would diverge this
		// replica from its peers.
		d.c.fatal("could not submit apply task",
			zap.Stringer("kind", d.Kind()),
			zap.Stringer("opid", d.GetOpID()),
			zap.Error(err),
		)
	}
}

// applyTask runs on an apply-pool worker. Consensus has already been reached,
// so any failure here is a durability violation and stops the process.
func (d *OperationDriver) applyTask(ctx context.Context) {
	startTime := time.Now()
	payload, err := d.op.Apply(ctx)
	if err != nil {
		d.c.fatal("could not apply replicated operation",
			zap.Stringer("kind", d.Kind()),
			zap.Stringer("opid", d.GetOpID()),
			zap.Error(err),
		)
		return
	}
	rec := storage.CommitRecord{
		OpID:      d.GetOpID(),
		Kind:      int32(d.op.Kind()),
		Timestamp: d.ts,
		Payload:   payload,
	}
	if err := d.c.stg.AppendCommit(rec); err != nil {
		d.c.fatal("could not append commit record",
			zap.Stringer("kind", d.Kind()),
			zap.Stringer("opid", rec.OpID),
			zap.Error(err),
		)
		return
	}
	d.c.metrics.RecordApply(ctx, time.Since(startTime).Microseconds())
	d.finalize(rec)
}

// finalize makes the operation's changes visible to readers, replies to the
// caller, and deregisters the driver from the tracker.
func (d *OperationDriver) finalize(rec storage.CommitRecord) {
	d.mu.Lock()
	if d.done {
		d.mu.Unlock()
		return
	}
	d.done = true
	d.mu.Unlock()

	d.c.vc.change(func() {
		d.c.tc.storeCommitted(rec.OpID, rec.Timestamp)
	})
	d.op.Complete(nil)
	d.c.trk.release(d)

	if ce := d.logger.Check(zap.DebugLevel, "operation finalized"); ce != nil {
		ce.Write(
			zap.Stringer("opid", rec.OpID),
			zap.Stringer("kind", d.Kind()),
			zap.Duration("elapsed", time.Since(d.startTime)),
		)
	}
}
