package tablet

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/quartzdb/quartz/internal/storage"
	"github.com/quartzdb/quartz/pkg/types"
)

// TestReplicationEngine is a single-replica ReplicationEngine: every submitted
// round is appended and committed on the calling goroutine. SubmitHook, when
// set, is consulted first and its error is returned without driving any
// driver.
type TestReplicationEngine struct {
	SubmitHook func(round *Round) error

	mu    sync.Mutex
	index types.Index
	term  types.Term
}

var _ ReplicationEngine = (*TestReplicationEngine)(nil)

func TestNewReplicationEngine(tb testing.TB) *TestReplicationEngine {
	return &TestReplicationEngine{term: 1}
}

func (te *TestReplicationEngine) Submit(round *Round) error {
	if te.SubmitHook != nil {
		if err := te.SubmitHook(round); err != nil {
			return err
		}
	}
	te.mu.Lock()
	defer te.mu.Unlock()
	drivers := round.Drivers()
	ids := make([]types.OpID, len(drivers))
	for i, d := range drivers {
		te.index++
		ids[i] = types.OpID{Term: te.term, Index: te.index}
		d.RoundAppended(ids[i])
	}
	for i, d := range drivers {
		d.ReplicationFinished(ids[i], nil)
	}
	return nil
}

// NextOpID returns the op id the engine will assign next.
func (te *TestReplicationEngine) NextOpID() types.OpID {
	te.mu.Lock()
	defer te.mu.Unlock()
	return types.OpID{Term: te.term, Index: te.index + 1}
}

// TestNewCoordinator returns a Coordinator backed by a temporary storage and
// the given engine. Unrecoverable failures fail the test instead of stopping
// the process.
func TestNewCoordinator(tb testing.TB, engine ReplicationEngine, opts ...CoordinatorOption) *Coordinator {
	defaultOpts := []CoordinatorOption{
		WithTabletID(types.TabletID(1)),
		WithStorage(storage.TestNewStorage(tb)),
		WithReplicationEngine(engine),
		WithLogger(zaptest.NewLogger(tb)),
		WithFatalFunc(func(msg string, fields ...zap.Field) {
			tb.Errorf("unrecoverable failure: %s", msg)
		}),
	}
	c, err := NewCoordinator(append(defaultOpts, opts...)...)
	assert.NoError(tb, err)
	return c
}
