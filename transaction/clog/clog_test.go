package clog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kmuto-dev/mvdb/transaction/txid"
)

func TestClogOffsets(t *testing.T) {
	tests := []struct {
		name           string
		txID           txid.TxID
		wantPageID     pageID
		wantByteOffset int
		wantBitOffset  int
	}{
		{
			name:           "first id on the first page",
			txID:           0,
			wantPageID:     0,
			wantByteOffset: 0,
			wantBitOffset:  0,
		},
		{
			name:           "fourth id starts the second byte",
			txID:           4,
			wantPageID:     0,
			wantByteOffset: 1,
			wantBitOffset:  0,
		},
		{
			name:           "id within a byte",
			txID:           6,
			wantPageID:     0,
			wantByteOffset: 1,
			wantBitOffset:  4,
		},
		{
			name:           "first id of the second page",
			txID:           clogNumPerPage,
			wantPageID:     1,
			wantByteOffset: 0,
			wantBitOffset:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantPageID, getPageIDFromTxID(tt.txID))
			assert.Equal(t, tt.wantByteOffset, getByteOffsetFromTxID(tt.txID))
			assert.Equal(t, tt.wantBitOffset, getBitOffsetFromTxID(tt.txID))
		})
	}
}

func TestGetUpdatedState(t *testing.T) {
	t.Run("update does not clobber neighbours", func(t *testing.T) {
		var b byte
		b = getUpdatedState(b, txid.TxID(0), stateCommitted)
		b = getUpdatedState(b, txid.TxID(1), stateAborted)
		b = getUpdatedState(b, txid.TxID(2), stateSubCommitted)

		assert.Equal(t, stateCommitted, getState(b, txid.TxID(0)))
		assert.Equal(t, stateAborted, getState(b, txid.TxID(1)))
		assert.Equal(t, stateSubCommitted, getState(b, txid.TxID(2)))
		assert.Equal(t, stateInProgress, getState(b, txid.TxID(3)))
	})
	t.Run("state transitions overwrite in place", func(t *testing.T) {
		var b byte
		b = getUpdatedState(b, txid.TxID(1), stateSubCommitted)
		b = getUpdatedState(b, txid.TxID(1), stateCommitted)
		assert.Equal(t, stateCommitted, getState(b, txid.TxID(1)))
	})
}
