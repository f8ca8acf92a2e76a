/*
Tuple is one version of a logical record.

Versions are never rewritten in place: an update or delete stamps xmax on the
old version and (for updates) appends a fresh one. The header carries what
MVCC visibility needs:

- xmin: the transaction that created the version
- xmax: the transaction that deleted/superseded it, InvalidTxID while live
- infomask: hint bits caching resolved commit status

Hint bits are a cache of the clog. Once a transaction is known committed or
aborted that never reverts, so a stamped hint is valid forever and spares
every later visibility check the clog lookup.

----
About the header word

Readers evaluate visibility while writers stamp xmax and while other readers
stamp hints, with no common lock. xmax and the infomask therefore live in one
atomic 64-bit word (xmax in the high 32 bits, the infomask in the low 16) and
every mutation is a compare-and-swap of that word:

  - stamping xmax clears the xmax hint bits in the same swap, so no reader
    can ever pair a fresh deleter id with a stale deleter hint
  - stamping an xmax hint names the deleter it was resolved for and is
    dropped if the deleter changed in the meantime

xmin is immutable after construction, so its hints are plain monotonic bits.
*/
package heap

import (
	"sync/atomic"

	"github.com/kmuto-dev/mvdb/transaction/txid"
)

// Tuple is one version: an immutable creator and payload plus the atomic
// header word described in the package comment.
type Tuple struct {
	xmin    txid.TxID
	word    atomic.Uint64
	payload []byte
}

// header word layout
const (
	xmaxShift           = 32
	infomaskMask uint64 = 0xFFFF
)

// infomask hint bits
const (
	// xminCommitted: the creator is known committed
	xminCommitted uint64 = 0x0001
	// xminInvalid: the creator is known aborted
	xminInvalid uint64 = 0x0002
	// xminFrozen: the creator is older than every live snapshot.
	// no xmaxFrozen exists: a frozen deleter would mean no one can ever
	// see the version, at which point it is garbage, not data.
	xminFrozen uint64 = 0x0004
	// xmaxCommitted: the deleter is known committed
	xmaxCommitted uint64 = 0x0008
	// xmaxInvalid: the deleter is known aborted
	xmaxInvalid uint64 = 0x0010
)

// NewTuple initializes a version created by xmin, with no deleter yet
func NewTuple(xmin txid.TxID, payload []byte) *Tuple {
	return &Tuple{
		xmin:    xmin,
		payload: append([]byte(nil), payload...),
	}
}

// Xmin returns the creating transaction id
func (t *Tuple) Xmin() txid.TxID {
	return t.xmin
}

// Xmax returns the deleting transaction id, InvalidTxID while live
func (t *Tuple) Xmax() txid.TxID {
	return txid.TxID(t.word.Load() >> xmaxShift)
}

// XmaxWithHints returns the deleter id together with its cached hints, read
// from a single load so the hints always describe that id.
func (t *Tuple) XmaxWithHints() (xmax txid.TxID, committed, invalid bool) {
	w := t.word.Load()
	return txid.TxID(w >> xmaxShift), w&xmaxCommitted != 0, w&xmaxInvalid != 0
}

// CompareAndSwapXmax stamps the deleting transaction id if the current
// deleter is still old, and reports whether it swapped. hints cached for the
// previous deleter (an aborted one being overwritten) no longer apply, so
// the xmax hint bits are cleared in the same swap.
func (t *Tuple) CompareAndSwapXmax(old, new txid.TxID) bool {
	for {
		w := t.word.Load()
		if txid.TxID(w>>xmaxShift) != old {
			return false
		}
		nw := uint64(new)<<xmaxShift | (w & infomaskMask &^ (xmaxCommitted | xmaxInvalid))
		if t.word.CompareAndSwap(w, nw) {
			return true
		}
	}
}

// Payload returns the record data
func (t *Tuple) Payload() []byte {
	return t.payload
}

func (t *Tuple) infomask() uint64 {
	return t.word.Load() & infomaskMask
}

// setInfomask sets an xmin hint bit. xmin never changes, so the bit holds
// for every future load of the word.
func (t *Tuple) setInfomask(bit uint64) {
	for {
		w := t.word.Load()
		if w&bit != 0 || t.word.CompareAndSwap(w, w|bit) {
			return
		}
	}
}

// setXmaxInfomask sets an xmax hint bit, but only while the tuple's deleter
// is still the one the hint was resolved for. a concurrent deleter swap
// makes the hint stale, and the swap cleared the bits, so losing it here is
// the correct outcome.
func (t *Tuple) setXmaxInfomask(bit uint64, xmax txid.TxID) {
	for {
		w := t.word.Load()
		if txid.TxID(w>>xmaxShift) != xmax {
			return
		}
		if w&bit != 0 || t.word.CompareAndSwap(w, w|bit) {
			return
		}
	}
}

// XminCommitted checks the creator-committed hint
func (t *Tuple) XminCommitted() bool {
	return t.infomask()&xminCommitted != 0
}

// SetXminCommitted stamps the creator-committed hint
func (t *Tuple) SetXminCommitted() {
	t.setInfomask(xminCommitted)
}

// XminInvalid checks the creator-aborted hint
func (t *Tuple) XminInvalid() bool {
	return t.infomask()&xminInvalid != 0
}

// SetXminInvalid stamps the creator-aborted hint
func (t *Tuple) SetXminInvalid() {
	t.setInfomask(xminInvalid)
}

// XminFrozen checks the frozen hint
func (t *Tuple) XminFrozen() bool {
	return t.infomask()&xminFrozen != 0
}

// SetXminFrozen stamps the frozen hint
func (t *Tuple) SetXminFrozen() {
	t.setInfomask(xminFrozen)
}

// SetXmaxCommitted stamps the deleter-committed hint for xmax.
// a no-op if the deleter has changed since the caller resolved it.
func (t *Tuple) SetXmaxCommitted(xmax txid.TxID) {
	t.setXmaxInfomask(xmaxCommitted, xmax)
}

// SetXmaxInvalid stamps the deleter-aborted hint for xmax.
// the aborted deleter's id is left in place; the hint is what matters.
func (t *Tuple) SetXmaxInvalid(xmax txid.TxID) {
	t.setXmaxInfomask(xmaxInvalid, xmax)
}
