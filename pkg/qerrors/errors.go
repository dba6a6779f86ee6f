package qerrors

import (
	"errors"
)

var (
	ErrNoEntry        = errors.New("storage: no entry")
	ErrCorruptStorage = errors.New("storage: corrupt")
)

var (
	ErrClosed     = errors.New("tablet: closed")
	ErrAborted    = errors.New("tablet: aborted")
	ErrOverloaded = errors.New("tablet: too many operations")
)

var ErrInvalid = errors.New("invalid argument")

// replicationError tags an error reported by the replication engine with the
// information needed to classify it: whether the engine is certain that no
// peer could have recorded the operation. That certainty decides whether the
// failure is recoverable or must stop the process; the caller must not guess
// it. See Recoverable.
type replicationError struct {
	err     error
	certain bool
}

func (e *replicationError) Error() string { return e.err.Error() }

func (e *replicationError) Unwrap() error { return e.err }

// NewReplicationError returns an error reported by the replication engine.
// The argument certain must be true only if the failure happened strictly
// before any peer could have recorded the operation, for example a synchronous
// rejection due to loss of leadership before dispatch.
func NewReplicationError(err error, certain bool) error {
	if err == nil {
		return nil
	}
	return &replicationError{err: err, certain: certain}
}

// Recoverable reports whether the replication failure err is certainly local,
// meaning no peer could have recorded the operation and the failure can be
// returned to the client. Errors not created by NewReplicationError are
// ambiguous and therefore not recoverable.
func Recoverable(err error) bool {
	var re *replicationError
	if errors.As(err, &re) {
		return re.certain
	}
	return false
}
