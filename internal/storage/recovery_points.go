package storage

import (
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/quartzdb/quartz/pkg/types"
)

// RecoveryPoints describes where a restarted tablet resumes: the last durable
// commit record and the visibility watermark it released. Both are zero if the
// write log is empty.
type RecoveryPoints struct {
	LastCommit *CommitRecord
	Watermark  types.Timestamp
}

var _ zapcore.ObjectMarshaler = RecoveryPoints{}

func (rp RecoveryPoints) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if rp.LastCommit != nil {
		if err := enc.AddObject("lastCommit", *rp.LastCommit); err != nil {
			return err
		}
	}
	enc.AddUint64("watermark", uint64(rp.Watermark))
	return nil
}

// ReadRecoveryPoints scans the write log for the last durable commit record.
func (s *Storage) ReadRecoveryPoints() (rp RecoveryPoints, err error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{commitKeyPrefix},
		UpperBound: []byte{commitKeySentinelPrefix},
	})
	if err != nil {
		return rp, errors.WithStack(err)
	}
	defer func() {
		err = multierr.Append(err, it.Close())
	}()

	if !it.Last() {
		return rp, nil
	}

	id, err := decodeCommitKey(it.Key())
	if err != nil {
		return rp, err
	}
	rec, err := decodeCommitValue(it.Value())
	if err != nil {
		return rp, err
	}
	rec.OpID = id
	rp.LastCommit = &rec
	rp.Watermark = rec.Timestamp
	return rp, nil
}
