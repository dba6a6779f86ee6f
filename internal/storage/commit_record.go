package storage

import (
	"go.uber.org/zap/zapcore"

	"github.com/quartzdb/quartz/pkg/types"
)

// CommitRecord is a durable record of an applied operation. It is appended to
// the write log after the operation's apply step and before its changes become
// visible to readers.
type CommitRecord struct {
	// OpID is the ordered identifier the replication engine assigned to the
	// operation.
	OpID types.OpID
	// Kind tags the operation kind that produced the record.
	Kind int32
	// Timestamp is the visibility watermark released once the record is
	// durable.
	Timestamp types.Timestamp
	// Payload is the commit payload built by the operation's apply step.
	Payload []byte
}

var _ zapcore.ObjectMarshaler = CommitRecord{}

func (rec CommitRecord) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("opid", rec.OpID.String())
	enc.AddInt32("kind", rec.Kind)
	enc.AddUint64("timestamp", uint64(rec.Timestamp))
	enc.AddInt("payloadSize", len(rec.Payload))
	return nil
}
