package tablet

import (
	"context"

	"github.com/quartzdb/quartz/pkg/types"
)

//go:generate mockgen -package tablet -source operation.go -destination operation_mock.go -mock_names Operation=MockOperation

// OperationKind tags the concrete kind of a write operation.
type OperationKind int32

const (
	OperationKindUnknown OperationKind = iota
	OperationKindWrite
	OperationKindTruncate
	OperationKindChangeConfig
)

func (k OperationKind) String() string {
	switch k {
	case OperationKindWrite:
		return "write"
	case OperationKindTruncate:
		return "truncate"
	case OperationKindChangeConfig:
		return "changeConfig"
	}
	return "unknown"
}

// Operation is a unit of client work executed by an OperationDriver. The
// driver owns the operation exclusively and advances it through prepare,
// start, and apply. Exactly one of Complete(nil) or Complete(err) is invoked
// at the end of the operation's life, from an execution context chosen by the
// driver.
//
// Prepare and Start run on a prepare-pool worker before the operation is
// submitted for replication on the leader path, or concurrently with
// replication on the follower path. Apply runs on an apply-pool worker only
// after replication succeeded; it mutates in-memory structures and returns the
// commit payload appended to the write log. Changes made by Apply must stay
// invisible to readers until the driver releases the visibility watermark.
type Operation interface {
	// Kind returns the kind of the operation.
	Kind() OperationKind

	// Prepare validates the request and acquires resources the operation
	// needs before replication.
	Prepare(ctx context.Context) error

	// Start marks the operation as started at the given timestamp.
	Start(ts types.Timestamp) error

	// Apply mutates in-memory structures and returns the commit payload.
	Apply(ctx context.Context) (payload []byte, err error)

	// RequestSize returns the size of the operation's request in bytes, used
	// for accounting.
	RequestSize() int

	// Complete delivers the final result of the operation to the caller. A
	// nil err means the operation was replicated, applied, and is durable.
	Complete(err error)
}
