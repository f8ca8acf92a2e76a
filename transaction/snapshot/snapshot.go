package snapshot

import "github.com/kmuto-dev/mvdb/transaction/txid"

// Snapshot is an immutable visibility boundary captured at a point in time.
// once captured its decisions never change, whatever the commit log does
// afterwards.
type Snapshot struct {
	// xmin is the lowest id among transactions active at capture time.
	// every id strictly preceding it had completed by then.
	xmin txid.TxID

	// xmax is one past the highest id that had completed at capture time.
	// this id and everything after it is invisible.
	xmax txid.TxID

	// xip is the set of ids that were active at capture time.
	// each falls in [xmin, xmax) yet stays hidden even if it commits later.
	// capture and registry entry/exit share one guard: if they did not, a
	// transaction could commit between the xmax read and the registry walk
	// and be wrongly omitted here while its effects are not yet published.
	xip map[txid.TxID]struct{}
}

// NewSnapshot initializes a snapshot. the xip set is copied so later
// registry changes cannot leak in.
func NewSnapshot(xmin, xmax txid.TxID, xip map[txid.TxID]struct{}) *Snapshot {
	own := make(map[txid.TxID]struct{}, len(xip))
	for id := range xip {
		own[id] = struct{}{}
	}
	return &Snapshot{
		xmin: xmin,
		xmax: xmax,
		xip:  own,
	}
}

// Xmin returns the snapshot's lower visibility bound
func (snap *Snapshot) Xmin() txid.TxID {
	return snap.xmin
}

// Xmax returns the snapshot's upper visibility bound (exclusive)
func (snap *Snapshot) Xmax() txid.TxID {
	return snap.xmax
}

// isInProgress checks whether the transaction id is still in flight from
// this snapshot's point of view
func (snap *Snapshot) isInProgress(txID txid.TxID) bool {
	// everything strictly before xmin had completed at capture time
	if txID.Precedes(snap.xmin) {
		return false
	}
	// xmax and everything after it had not completed at capture time
	if !txID.Precedes(snap.xmax) {
		return true
	}
	// in between: in flight exactly when captured in xip
	_, ok := snap.xip[txID]
	return ok
}
