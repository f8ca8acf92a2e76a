package heap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kmuto-dev/mvdb/transaction/txid"
)

func TestNewTuple(t *testing.T) {
	tup := NewTuple(txid.TxID(10), []byte("hello"))
	assert.Equal(t, txid.TxID(10), tup.Xmin())
	assert.Equal(t, txid.InvalidTxID, tup.Xmax())
	assert.Equal(t, []byte("hello"), tup.Payload())
}

func TestCompareAndSwapXmax(t *testing.T) {
	tup := NewTuple(txid.TxID(10), []byte("hello"))

	// a stale expectation does not stamp
	assert.False(t, tup.CompareAndSwapXmax(txid.TxID(5), txid.TxID(20)))
	assert.Equal(t, txid.InvalidTxID, tup.Xmax())

	assert.True(t, tup.CompareAndSwapXmax(txid.InvalidTxID, txid.TxID(20)))
	assert.Equal(t, txid.TxID(20), tup.Xmax())
	// the rest of the header is untouched
	assert.Equal(t, txid.TxID(10), tup.Xmin())
	assert.Equal(t, []byte("hello"), tup.Payload())
}

func TestSwapXmaxClearsDeleterHints(t *testing.T) {
	tup := NewTuple(txid.TxID(10), nil)
	assert.True(t, tup.CompareAndSwapXmax(txid.InvalidTxID, txid.TxID(20)))

	// deleter 20 aborts, the hint is stamped, then a new deleter overwrites
	tup.SetXmaxInvalid(txid.TxID(20))
	_, _, invalid := tup.XmaxWithHints()
	assert.True(t, invalid)

	assert.True(t, tup.CompareAndSwapXmax(txid.TxID(20), txid.TxID(21)))
	xmax, committed, invalid := tup.XmaxWithHints()
	assert.Equal(t, txid.TxID(21), xmax)
	assert.False(t, committed)
	assert.False(t, invalid)
}

func TestXmaxHintRequiresMatchingDeleter(t *testing.T) {
	tup := NewTuple(txid.TxID(10), nil)
	assert.True(t, tup.CompareAndSwapXmax(txid.InvalidTxID, txid.TxID(20)))

	// a hint resolved for deleter 20 must not land once 21 took over
	assert.True(t, tup.CompareAndSwapXmax(txid.TxID(20), txid.TxID(21)))
	tup.SetXmaxCommitted(txid.TxID(20))

	xmax, committed, _ := tup.XmaxWithHints()
	assert.Equal(t, txid.TxID(21), xmax)
	assert.False(t, committed)
}

func TestHintBits(t *testing.T) {
	tup := NewTuple(txid.TxID(10), nil)
	assert.True(t, tup.CompareAndSwapXmax(txid.InvalidTxID, txid.TxID(20)))

	assert.False(t, tup.XminCommitted())
	assert.False(t, tup.XminInvalid())
	assert.False(t, tup.XminFrozen())

	tup.SetXminCommitted()
	assert.True(t, tup.XminCommitted())

	tup.SetXmaxInvalid(txid.TxID(20))
	_, committed, invalid := tup.XmaxWithHints()
	assert.True(t, invalid)
	// bits are independent
	assert.True(t, tup.XminCommitted())
	assert.False(t, committed)
	assert.False(t, tup.XminFrozen())
}

// concurrent hint stamping and deleter swaps on one tuple must never pair a
// deleter id with another deleter's hints.
func TestConcurrentHeaderStamping(t *testing.T) {
	tup := NewTuple(txid.TxID(10), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				tup.SetXminCommitted()
				xmax, _, _ := tup.XmaxWithHints()
				tup.SetXmaxInvalid(xmax)
				tup.CompareAndSwapXmax(xmax, xmax+1)
			}
		}()
	}
	wg.Wait()

	assert.True(t, tup.XminCommitted())
	xmax, committed, _ := tup.XmaxWithHints()
	// every swap cleared the hints and no committed hint was ever stamped
	assert.False(t, committed)
	assert.NotEqual(t, txid.InvalidTxID, xmax)
}
