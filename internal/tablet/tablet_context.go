package tablet

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/quartzdb/quartz/internal/stopchannel"
	"github.com/quartzdb/quartz/pkg/qerrors"
	"github.com/quartzdb/quartz/pkg/types"
)

// tabletContext keeps the per-tablet positions of the write path: the
// timestamp clock issuing operation timestamps, the last committed op id, and
// the visibility watermark released as operations finalize.
type tabletContext struct {
	// clock is the last issued operation timestamp. It never goes backwards.
	clock types.AtomicTimestamp

	committed struct {
		mu        sync.RWMutex
		lastOpID  types.OpID
		watermark types.Timestamp
	}
}

func newTabletContext(seed types.Timestamp) *tabletContext {
	tc := &tabletContext{}
	tc.clock.Store(seed)
	tc.committed.watermark = seed
	return tc
}

// nextTimestamp issues a new operation timestamp.
func (tc *tabletContext) nextTimestamp() types.Timestamp {
	return tc.clock.Add(1)
}

// observeTimestamp advances the clock to at least ts. Follower-origin drivers
// call it with the timestamp propagated by the leader.
func (tc *tabletContext) observeTimestamp(ts types.Timestamp) {
	for {
		cur := tc.clock.Load()
		if cur >= ts || tc.clock.CompareAndSwap(cur, ts) {
			return
		}
	}
}

// committedState returns the last committed op id and the visibility
// watermark.
func (tc *tabletContext) committedState() (types.OpID, types.Timestamp) {
	tc.committed.mu.RLock()
	defer tc.committed.mu.RUnlock()
	return tc.committed.lastOpID, tc.committed.watermark
}

// storeCommitted advances the last committed op id and the watermark. Applies
// may finalize out of order, so only forward movement is recorded.
func (tc *tabletContext) storeCommitted(id types.OpID, ts types.Timestamp) {
	tc.committed.mu.Lock()
	if tc.committed.lastOpID.LessThan(id) {
		tc.committed.lastOpID = id
	}
	if tc.committed.watermark < ts {
		tc.committed.watermark = ts
	}
	tc.committed.mu.Unlock()
}

// visibleCondition is a wrapper of a condition variable to wait for the
// visibility watermark to advance.
type visibleCondition struct {
	mu sync.Mutex
	cv *sync.Cond

	tc *tabletContext

	sc *stopchannel.StopChannel
}

func newVisibleCondition(tc *tabletContext) *visibleCondition {
	vc := &visibleCondition{
		tc: tc,
		sc: stopchannel.New(),
	}
	vc.cv = sync.NewCond(&vc.mu)
	return vc
}

// visible returns true if changes at or below ts are visible to readers.
func (vc *visibleCondition) visible(ts types.Timestamp) bool {
	_, watermark := vc.tc.committedState()
	return ts <= watermark
}

// NOTE: Canceling ctx does not wake up waiters immediately; they are checked
// at the next change.
func (vc *visibleCondition) waitC(ctx context.Context, ts types.Timestamp) error {
	vc.cv.L.Lock()
	defer vc.cv.L.Unlock()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-vc.sc.StopC():
			return errors.WithStack(qerrors.ErrClosed)
		default:
		}
		if vc.visible(ts) {
			return nil
		}
		vc.cv.Wait()
	}
}

// change runs f, which modifies the tablet context, and wakes up all waiters
// so they recheck visibility.
func (vc *visibleCondition) change(f func()) {
	vc.cv.L.Lock()
	defer vc.cv.L.Unlock()
	f()
	vc.cv.Broadcast()
}

// destroy wakes up all waiters with qerrors.ErrClosed.
func (vc *visibleCondition) destroy() {
	vc.change(func() {
		vc.sc.Stop()
	})
}
