package storage

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartzdb/quartz/pkg/types"
)

func TestEncodeCommitKeyOrder(t *testing.T) {
	ids := make([]types.OpID, 100)
	for i := range ids {
		ids[i] = types.OpID{
			Term:  types.Term(rand.Uint64()%16 + 1),
			Index: types.Index(rand.Uint64()%1024 + 1),
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].LessThan(ids[j])
	})

	prev := encodeCommitKey(ids[0])
	for _, id := range ids[1:] {
		key := encodeCommitKey(id)
		assert.LessOrEqual(t, string(prev), string(key))
		prev = key
	}
}

func TestEncodeCommitKeyRoundTrip(t *testing.T) {
	id := types.OpID{Term: 3, Index: 77}
	got, err := decodeCommitKey(encodeCommitKey(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = decodeCommitKey([]byte{commitKeyPrefix, 0x00})
	assert.Error(t, err)
	_, err = decodeCommitKey(make([]byte, commitKeyLength))
	assert.Error(t, err)
}

func TestEncodeCommitValue(t *testing.T) {
	rec := CommitRecord{Kind: 7, Timestamp: 11, Payload: []byte("payload")}
	got, err := decodeCommitValue(encodeCommitValue(rec))
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// empty payload
	rec = CommitRecord{Kind: 1, Timestamp: 2}
	got, err = decodeCommitValue(encodeCommitValue(rec))
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = decodeCommitValue([]byte{0x00})
	assert.Error(t, err)
}
