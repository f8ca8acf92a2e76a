package txid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFollows(t *testing.T) {
	tests := []struct {
		name     string
		txID1    TxID
		txID2    TxID
		expected bool
	}{
		{
			name:     "txID1 follows txID2 without wraparound",
			txID1:    TxID(200),
			txID2:    TxID(199),
			expected: true,
		},
		{
			name:     "txID2 follows txID1 without wraparound",
			txID1:    TxID(200),
			txID2:    TxID(201),
			expected: false,
		},
		{
			name:     "txID1 follows txID2 across wraparound",
			txID1:    TxID(4),
			txID2:    TxID(uint32(math.Pow(2, 31)) + 100),
			expected: true,
		},
		{
			name:     "txID2 follows txID1 across wraparound",
			txID1:    TxID(uint32(math.Pow(2, 31)) + 100),
			txID2:    TxID(4),
			expected: false,
		},
		{
			name:     "(boundary) ids exactly half the space apart are not ordered",
			txID1:    TxID(100),
			txID2:    TxID(uint32(math.Pow(2, 31)) + 100),
			expected: false,
		},
		{
			name:     "(boundary) just inside the half-space window",
			txID1:    TxID(99),
			txID2:    TxID(uint32(math.Pow(2, 31)) + 100),
			expected: true,
		},
		{
			name:     "sentinel ids compare numerically",
			txID1:    FirstTxID,
			txID2:    FrozenTxID,
			expected: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.txID1.IsFollows(tt.txID2)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestPrecedes(t *testing.T) {
	tests := []struct {
		name     string
		txID1    TxID
		txID2    TxID
		expected bool
	}{
		{
			name:     "smaller id precedes without wraparound",
			txID1:    TxID(199),
			txID2:    TxID(200),
			expected: true,
		},
		{
			name:     "bigger id does not precede without wraparound",
			txID1:    TxID(201),
			txID2:    TxID(200),
			expected: false,
		},
		{
			name:     "old id near the top of the space precedes a wrapped id",
			txID1:    TxID(uint32(math.Pow(2, 31)) + 100),
			txID2:    TxID(4),
			expected: true,
		},
		{
			name:     "frozen sentinel precedes every normal id",
			txID1:    FrozenTxID,
			txID2:    TxID(4_000_000_000),
			expected: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.txID1.Precedes(tt.txID2)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAdvance(t *testing.T) {
	t.Run("ordinary increment", func(t *testing.T) {
		assert.Equal(t, TxID(101), TxID(100).Advance())
	})
	t.Run("wraparound skips the reserved ids", func(t *testing.T) {
		assert.Equal(t, FirstTxID, TxID(math.MaxUint32).Advance())
	})
}

func TestIsNormal(t *testing.T) {
	assert.False(t, InvalidTxID.IsNormal())
	assert.False(t, BootstrapTxID.IsNormal())
	assert.False(t, FrozenTxID.IsNormal())
	assert.True(t, FirstTxID.IsNormal())
}
