/*
Tuple visibility

A snapshot alone cannot decide whether a version is visible: it knows which
transactions were in flight at capture time, but for everything that had
already completed it cannot tell committed from aborted. That is the commit
log's job. The decision here combines the two, in order:

 1. resolve the creator's outcome (hint bits first, clog on a miss)
 2. apply the snapshot's boundary to the creator
 3. repeat both steps symmetrically for the deleter

Resolved outcomes are stamped back onto the tuple as hint bits. A
transaction's outcome never reverts once resolved, so a stamped hint is valid
against every snapshot forever and the clog lookup is paid once per tuple,
not once per read.
*/
package snapshot

import (
	"github.com/pkg/errors"

	"github.com/kmuto-dev/mvdb/storage/heap"
	"github.com/kmuto-dev/mvdb/transaction/clog"
	"github.com/kmuto-dev/mvdb/transaction/txid"
)

// IsTupleVisibleFromSnapshot decides whether the version is visible to the
// snapshot. apart from hint-bit stamping the check is pure, and it is safe
// to evaluate the same tuple from any number of goroutines.
func (m *Manager) IsTupleVisibleFromSnapshot(tup *heap.Tuple, snap *Snapshot) (bool, error) {
	visible, err := m.isXminVisible(tup, snap)
	if err != nil {
		return false, errors.Wrap(err, "isXminVisible failed")
	}
	if !visible {
		return false, nil
	}
	deleted, err := m.isXmaxVisible(tup, snap)
	if err != nil {
		return false, errors.Wrap(err, "isXmaxVisible failed")
	}
	return !deleted, nil
}

// isXminVisible checks whether the creating transaction's work is visible
// to the snapshot
func (m *Manager) isXminVisible(tup *heap.Tuple, snap *Snapshot) (bool, error) {
	xmin := tup.Xmin()

	// frozen versions predate every live snapshot
	if tup.XminFrozen() || xmin == txid.BootstrapTxID || xmin == txid.FrozenTxID {
		return true, nil
	}
	if tup.XminInvalid() {
		return false, nil
	}

	if !tup.XminCommitted() {
		st, err := m.cm.Status(xmin)
		if err != nil {
			return false, errors.Wrap(err, "cm.Status failed")
		}
		switch st {
		case clog.StatusAborted:
			tup.SetXminInvalid()
			return false, nil
		case clog.StatusInProgress:
			// no hint: the outcome is not resolved yet
			return false, nil
		}
		tup.SetXminCommitted()
	}

	// committed, but possibly not from this snapshot's point of view
	return !snap.isInProgress(xmin), nil
}

// isXmaxVisible checks whether the deleting transaction's work (the delete
// itself) is visible to the snapshot. a visible delete makes the version
// invisible. the deleter id and its hints come from one load so a concurrent
// re-stamp cannot pair this check's hints with a different deleter.
func (m *Manager) isXmaxVisible(tup *heap.Tuple, snap *Snapshot) (bool, error) {
	xmax, committed, invalid := tup.XmaxWithHints()

	if !xmax.IsValid() {
		return false, nil
	}
	if invalid {
		return false, nil
	}

	if !committed {
		st, err := m.cm.Status(xmax)
		if err != nil {
			return false, errors.Wrap(err, "cm.Status failed")
		}
		switch st {
		case clog.StatusAborted:
			tup.SetXmaxInvalid(xmax)
			return false, nil
		case clog.StatusInProgress:
			return false, nil
		}
		tup.SetXmaxCommitted(xmax)
	}

	return !snap.isInProgress(xmax), nil
}
