package storage

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/quartzdb/quartz/pkg/qerrors"
	"github.com/quartzdb/quartz/pkg/types"
)

const (
	commitKeyPrefix         = byte(0x80)
	commitKeySentinelPrefix = byte(0x81)
	commitKeyLength         = 17 // prefix(1) + term(8) + index(8)

	commitValueHeaderLength = 12 // timestamp(8) + kind(4)
)

func encodeCommitKeyInternal(id types.OpID, key []byte) []byte {
	key[0] = commitKeyPrefix
	binary.BigEndian.PutUint64(key[1:], uint64(id.Term))
	binary.BigEndian.PutUint64(key[9:], uint64(id.Index))
	return key
}

func encodeCommitKey(id types.OpID) []byte {
	return encodeCommitKeyInternal(id, make([]byte, commitKeyLength))
}

func decodeCommitKey(k []byte) (types.OpID, error) {
	if len(k) != commitKeyLength || k[0] != commitKeyPrefix {
		return types.InvalidOpID, errors.WithStack(qerrors.ErrCorruptStorage)
	}
	return types.OpID{
		Term:  types.Term(binary.BigEndian.Uint64(k[1:])),
		Index: types.Index(binary.BigEndian.Uint64(k[9:])),
	}, nil
}

func encodeCommitValue(rec CommitRecord) []byte {
	v := make([]byte, commitValueHeaderLength+len(rec.Payload))
	binary.BigEndian.PutUint64(v, uint64(rec.Timestamp))
	binary.BigEndian.PutUint32(v[8:], uint32(rec.Kind))
	copy(v[commitValueHeaderLength:], rec.Payload)
	return v
}

func decodeCommitValue(v []byte) (rec CommitRecord, err error) {
	if len(v) < commitValueHeaderLength {
		return rec, errors.WithStack(qerrors.ErrCorruptStorage)
	}
	rec.Timestamp = types.Timestamp(binary.BigEndian.Uint64(v))
	rec.Kind = int32(binary.BigEndian.Uint32(v[8:]))
	if len(v) > commitValueHeaderLength {
		rec.Payload = make([]byte, len(v)-commitValueHeaderLength)
		copy(rec.Payload, v[commitValueHeaderLength:])
	}
	return rec, nil
}
