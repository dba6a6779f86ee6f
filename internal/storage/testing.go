package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNewStorage returns a Storage backed by a temporary directory. WAL sync
// is off to keep tests fast.
func TestNewStorage(tb testing.TB, opts ...Option) *Storage {
	defaultOpts := []Option{
		WithPath(tb.TempDir()),
		WithSyncWAL(false),
	}
	s, err := New(append(defaultOpts, opts...)...)
	assert.NoError(tb, err)
	return s
}
