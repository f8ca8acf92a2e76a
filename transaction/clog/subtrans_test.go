package clog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kmuto-dev/mvdb/transaction/txid"
)

func TestSubtransSetParent(t *testing.T) {
	sm, err := newSubtransManager(filepath.Join(t.TempDir(), subtransFileName))
	assert.Nil(t, err)
	defer sm.close()

	t.Run("unset child has no parent", func(t *testing.T) {
		parent, err := sm.parent(txid.TxID(10))
		assert.Nil(t, err)
		assert.Equal(t, txid.InvalidTxID, parent)
	})
	t.Run("set then get", func(t *testing.T) {
		assert.Nil(t, sm.setParent(txid.TxID(10), txid.TxID(9)))
		parent, err := sm.parent(txid.TxID(10))
		assert.Nil(t, err)
		assert.Equal(t, txid.TxID(9), parent)
	})
	t.Run("entry on a later page", func(t *testing.T) {
		child := txid.TxID(subtransNumPerPage*3 + 7)
		assert.Nil(t, sm.setParent(child, txid.TxID(100)))
		parent, err := sm.parent(child)
		assert.Nil(t, err)
		assert.Equal(t, txid.TxID(100), parent)
	})
}
