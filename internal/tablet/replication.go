package tablet

// Round is a unit submitted to the replication engine for agreement. The
// preparer coalesces several leader-origin drivers into one round to amortize
// the cost of a replication append.
type Round struct {
	drivers []*OperationDriver
}

func newRound(capacity int) *Round {
	return &Round{drivers: make([]*OperationDriver, 0, capacity)}
}

func (r *Round) add(d *OperationDriver) {
	r.drivers = append(r.drivers, d)
}

// Drivers returns the drivers coalesced into the round.
func (r *Round) Drivers() []*OperationDriver {
	return r.drivers
}

// Len returns the number of drivers in the round.
func (r *Round) Len() int {
	return len(r.drivers)
}

// ReplicationEngine accepts rounds of operations for replication and reports
// their outcomes asynchronously.
//
// Submit either takes responsibility for the round or rejects it. A non-nil
// error from Submit is a synchronous rejection: the engine guarantees that no
// peer could have seen any operation of the round, so the failure is surfaced
// to callers as an ordinary error.
//
// Once Submit returns nil, the engine must, for every driver of the round and
// in this order:
//  1. call RoundAppended with the assigned op id once the round is durably
//     enqueued in the replication pipeline, and
//  2. call ReplicationFinished once agreement is reached or replication
//     failed.
//
// An error passed to ReplicationFinished should be built with
// qerrors.NewReplicationError so the driver can tell certainly-local failures
// from ambiguous ones. Ambiguous failures after submission stop the process.
//
// Follower-origin drivers are never submitted; the engine calls RoundAppended
// and ReplicationFinished on them directly.
type ReplicationEngine interface {
	Submit(round *Round) error
}
