package storage

import (
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/quartzdb/quartz/pkg/qerrors"
)

var commitBatchPool = sync.Pool{
	New: func() interface{} {
		return &CommitBatch{
			key: make([]byte, commitKeyLength),
		}
	},
}

// CommitBatch is a batch of commit records appended to the write log at once.
// The batch becomes durable when Apply returns nil.
type CommitBatch struct {
	batch     *pebble.Batch
	writeOpts *pebble.WriteOptions
	key       []byte
	count     int
}

// NewCommitBatch creates a batch of commit records.
func (s *Storage) NewCommitBatch() *CommitBatch {
	cb := commitBatchPool.Get().(*CommitBatch)
	cb.batch = s.db.NewBatch()
	cb.writeOpts = s.writeOpts
	cb.count = 0
	return cb
}

// Set adds a commit record to the batch.
func (cb *CommitBatch) Set(rec CommitRecord) error {
	if rec.OpID.Invalid() {
		return errors.Wrap(qerrors.ErrInvalid, "storage: unassigned opid")
	}
	if err := cb.batch.Set(encodeCommitKeyInternal(rec.OpID, cb.key), encodeCommitValue(rec), nil); err != nil {
		return errors.WithStack(err)
	}
	cb.count++
	return nil
}

// Count returns the number of records in the batch.
func (cb *CommitBatch) Count() int {
	return cb.count
}

// Apply makes the batch durable.
func (cb *CommitBatch) Apply() error {
	return errors.WithStack(cb.batch.Commit(cb.writeOpts))
}

// Close releases acquired resources.
func (cb *CommitBatch) Close() error {
	err := errors.WithStack(cb.batch.Close())
	cb.batch = nil
	cb.writeOpts = nil
	commitBatchPool.Put(cb)
	return err
}
