package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kmuto-dev/mvdb/transaction/txid"
)

func TestStoreAppendVersions(t *testing.T) {
	s := NewStore()

	_, err := s.Versions(Key("missing"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	s.Append(Key("a"), NewTuple(txid.TxID(3), []byte("v1")))
	s.Append(Key("a"), NewTuple(txid.TxID(4), []byte("v2")))

	versions, err := s.Versions(Key("a"))
	assert.Nil(t, err)
	assert.Equal(t, 2, len(versions))
	// oldest first
	assert.Equal(t, []byte("v1"), versions[0].Payload())
	assert.Equal(t, []byte("v2"), versions[1].Payload())
}

func TestStoreVersionsShareTuples(t *testing.T) {
	s := NewStore()
	s.Append(Key("a"), NewTuple(txid.TxID(3), []byte("v1")))

	// a stamp through one caller's copy of the chain is seen by the next:
	// the chain slice is copied, the versions are not
	versions, err := s.Versions(Key("a"))
	assert.Nil(t, err)
	assert.True(t, versions[0].CompareAndSwapXmax(txid.InvalidTxID, txid.TxID(5)))

	again, err := s.Versions(Key("a"))
	assert.Nil(t, err)
	assert.Equal(t, txid.TxID(5), again[0].Xmax())
}

func TestStoreWalk(t *testing.T) {
	s := NewStore()
	s.Append(Key("a"), NewTuple(txid.TxID(3), nil))
	s.Append(Key("b"), NewTuple(txid.TxID(4), nil))

	seen := make(map[Key]int)
	s.Walk(func(key Key, versions []*Tuple) bool {
		seen[key] = len(versions)
		return true
	})
	assert.Equal(t, map[Key]int{"a": 1, "b": 1}, seen)
	assert.Equal(t, 2, s.Keys())
}

// the walk callback may write back into the store without deadlocking; it
// keeps observing the chains as of the walk's start.
func TestStoreWalkReentrant(t *testing.T) {
	s := NewStore()
	s.Append(Key("a"), NewTuple(txid.TxID(3), nil))

	s.Walk(func(key Key, versions []*Tuple) bool {
		s.Append(Key("during-"+key), NewTuple(txid.TxID(4), nil))
		return true
	})

	assert.Equal(t, 2, s.Keys())
	_, err := s.Versions(Key("during-a"))
	assert.Nil(t, err)
}
