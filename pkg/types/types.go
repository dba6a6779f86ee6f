package types

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
)

type ClusterID int32

var _ fmt.Stringer = (*ClusterID)(nil)

func ParseClusterID(s string) (ClusterID, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	return ClusterID(id), err
}

func (cid ClusterID) String() string {
	return strconv.FormatInt(int64(cid), 10)
}

type NodeID int32

const MinNodeID = NodeID(1)

var _ fmt.Stringer = (*NodeID)(nil)

func ParseNodeID(s string) (NodeID, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	return NodeID(id), err
}

func (nid NodeID) String() string {
	return strconv.FormatInt(int64(nid), 10)
}

func (nid NodeID) Invalid() bool {
	return nid < MinNodeID
}

type TabletID int32

const MinTabletID = TabletID(1)
const MaxTabletID = TabletID(math.MaxInt32)

var _ fmt.Stringer = (*TabletID)(nil)

func ParseTabletID(s string) (TabletID, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	return TabletID(id), err
}

func (tid TabletID) String() string {
	return strconv.FormatInt(int64(tid), 10)
}

func (tid TabletID) Invalid() bool {
	return tid < MinTabletID
}

type Term uint64

const (
	InvalidTerm = Term(0)
	MinTerm     = Term(1)
	MaxTerm     = Term(math.MaxUint64)
)

func (t Term) Invalid() bool {
	return t == InvalidTerm
}

type Index uint64

const (
	InvalidIndex = Index(0)
	MinIndex     = Index(1)
	MaxIndex     = Index(math.MaxUint64)
)

func (idx Index) Invalid() bool {
	return idx == InvalidIndex
}

// OpID is the ordered identifier assigned by the replication engine once a
// round is accepted. The zero value is the unassigned marker.
type OpID struct {
	Term  Term
	Index Index
}

var InvalidOpID = OpID{}

var _ fmt.Stringer = (*OpID)(nil)

func (id OpID) Invalid() bool {
	return id.Term.Invalid() || id.Index.Invalid()
}

func (id OpID) String() string {
	return strconv.FormatUint(uint64(id.Term), 10) + "." + strconv.FormatUint(uint64(id.Index), 10)
}

// LessThan compares two OpIDs by term first, then index.
func (id OpID) LessThan(other OpID) bool {
	if id.Term == other.Term {
		return id.Index < other.Index
	}
	return id.Term < other.Term
}

// Timestamp is a visibility watermark unit. Changes applied at or below a
// published timestamp are durable and visible to readers.
type Timestamp uint64

const (
	InvalidTimestamp = Timestamp(0)
	MinTimestamp     = Timestamp(1)
	MaxTimestamp     = Timestamp(math.MaxUint64)
)

func (ts Timestamp) Invalid() bool {
	return ts == InvalidTimestamp
}

func (ts Timestamp) String() string {
	return strconv.FormatUint(uint64(ts), 10)
}

type AtomicTimestamp uint64

func (ts *AtomicTimestamp) Add(delta uint64) Timestamp {
	return Timestamp(atomic.AddUint64((*uint64)(ts), delta))
}

func (ts *AtomicTimestamp) Load() Timestamp {
	return Timestamp(atomic.LoadUint64((*uint64)(ts)))
}

func (ts *AtomicTimestamp) Store(val Timestamp) {
	atomic.StoreUint64((*uint64)(ts), uint64(val))
}

func (ts *AtomicTimestamp) CompareAndSwap(old, new Timestamp) (swapped bool) {
	swapped = atomic.CompareAndSwapUint64((*uint64)(ts), uint64(old), uint64(new))
	return swapped
}
