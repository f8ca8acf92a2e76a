/*
Clog manager manages the commit log: the durable record of every
transaction's outcome.

The version store only stamps tuples with the ids that created and deleted
them; whether those ids actually committed lives here. Visibility checks
consult the clog whenever a snapshot alone cannot decide (see
transaction/snapshot).

----
About durability

A commit has happened only once its clog write is flushed to stable storage.
SetStateCommitted and SetStateCommittedTree return only after fsync; the
coordinator publishes the commit (advances the latest-committed id, leaves
the active registry) strictly after that. An abort is written without a
flush: losing an abort record merely leaves the id reading as in-progress,
and in-progress and aborted are equally invisible, so nothing observable is
lost.

----
About tree commits

A transaction may commit together with child ids it spawned. The underlying
page writes are not atomic, so the children cannot simply be marked committed
one by one: a crash in the middle must not leave a child readable as
committed while its siblings or parent are not. The sequence is

 1. children are marked sub-committed, parent map flushed, bitmap flushed
 2. parent is marked committed, bitmap flushed  <- the atomic commit point
 3. children are re-marked committed (no flush; lazy cleanup)

A reader that hits a sub-committed entry resolves it through the parent map:
the child's status IS the parent's status. After a crash between 1 and 2 the
parent reads in-progress and so do all its children.
*/
package clog

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kmuto-dev/mvdb/transaction/txid"
)

// ErrUnknownTxID is returned when a status query names an id that can never
// have been allocated. this signals a caller bug, not an engine state.
var ErrUnknownTxID = errors.New("clog: unknown transaction id")

// Status is a transaction's resolved outcome as read from the log
type Status uint

const (
	StatusInProgress Status = iota
	StatusCommitted
	StatusAborted
)

const (
	clogFileName     = "clog"
	subtransFileName = "subtrans"
)

// Manager is the clog manager
type Manager struct {
	// bm caches the pages of the status bitmap file
	bm *bufferManager
	// st maps child ids to their tree-commit parent
	st *subtransManager
	// idBound reads the allocator's next unallocated id; nil disables the
	// unknown-id check. installed once before the manager is shared.
	idBound func() txid.TxID
}

// NewManager opens (or creates) the commit log under dir.
// reopening a directory recovers every resolved status: the whole log state
// is the two files, there is no replay step.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrap(err, "os.MkdirAll failed")
	}
	dm, err := newDiskManager(filepath.Join(dir, clogFileName))
	if err != nil {
		return nil, errors.Wrap(err, "newDiskManager failed")
	}
	st, err := newSubtransManager(filepath.Join(dir, subtransFileName))
	if err != nil {
		return nil, errors.Wrap(err, "newSubtransManager failed")
	}
	return &Manager{
		bm: newBufferManager(dm),
		st: st,
	}, nil
}

// SetIDBound installs the allocator's next-id reader. with a bound in place,
// Status rejects ids that were never allocated with ErrUnknownTxID instead
// of reading them as in-progress. the reader must be lock-free: it runs on
// every status lookup.
func (m *Manager) SetIDBound(next func() txid.TxID) {
	m.idBound = next
}

// Status returns the resolved outcome of the transaction.
// safe for concurrent readers while writers update the log.
func (m *Manager) Status(txID txid.TxID) (Status, error) {
	if !txID.IsValid() {
		return StatusInProgress, ErrUnknownTxID
	}
	// the bootstrap and frozen sentinels denote work that predates every
	// snapshot; they always read as committed
	if !txID.IsNormal() {
		return StatusCommitted, nil
	}
	if m.idBound != nil {
		if next := m.idBound(); next.IsNormal() && !txID.Precedes(next) {
			return StatusInProgress, ErrUnknownTxID
		}
	}

	st, err := m.getState(txID)
	if err != nil {
		return StatusInProgress, errors.Wrap(err, "getState failed")
	}
	switch st {
	case stateCommitted:
		return StatusCommitted, nil
	case stateAborted:
		return StatusAborted, nil
	case stateSubCommitted:
		// resolve through the parent. an unresolved parent gates the
		// whole tree: the child reads as in-progress until the parent's
		// own commit record is durable.
		parent, err := m.st.parent(txID)
		if err != nil {
			return StatusInProgress, errors.Wrap(err, "st.parent failed")
		}
		if !parent.IsValid() {
			return StatusInProgress, nil
		}
		return m.Status(parent)
	default:
		return StatusInProgress, nil
	}
}

// IsTxCommitted checks whether the transaction has committed
func (m *Manager) IsTxCommitted(txID txid.TxID) (bool, error) {
	st, err := m.Status(txID)
	if err != nil {
		return false, err
	}
	return st == StatusCommitted, nil
}

// IsTxAborted checks whether the transaction has aborted
func (m *Manager) IsTxAborted(txID txid.TxID) (bool, error) {
	st, err := m.Status(txID)
	if err != nil {
		return false, err
	}
	return st == StatusAborted, nil
}

// SetParent records the tree-commit parent of a child id.
// expected to be called when the child id is allocated, before the child
// stamps any tuple.
func (m *Manager) SetParent(child, parent txid.TxID) error {
	if !child.IsNormal() || !parent.IsNormal() {
		return ErrUnknownTxID
	}
	if err := m.st.setParent(child, parent); err != nil {
		return errors.Wrap(err, "st.setParent failed")
	}
	return nil
}

// SetStateCommitted durably marks the transaction committed.
// the returned error is a durability failure: the commit has NOT happened
// and the caller must not publish it.
func (m *Manager) SetStateCommitted(txID txid.TxID) error {
	return m.SetStateCommittedTree(txID, nil)
}

// SetStateCommittedTree durably marks the transaction and its children
// committed, gated on the parent record as described in the package comment.
func (m *Manager) SetStateCommittedTree(txID txid.TxID, children []txid.TxID) error {
	if !txID.IsNormal() {
		return ErrUnknownTxID
	}

	if len(children) > 0 {
		for _, child := range children {
			if err := m.updateState(child, stateSubCommitted); err != nil {
				return errors.Wrap(err, "updateState failed")
			}
		}
		// parents must be durable before any sub-committed entry is,
		// or a recovered sub-committed child could not be resolved
		if err := m.st.flush(); err != nil {
			return errors.Wrap(err, "st.flush failed")
		}
		if err := m.bm.flushAll(); err != nil {
			return errors.Wrap(err, "bm.flushAll failed")
		}
	}

	if err := m.updateState(txID, stateCommitted); err != nil {
		return errors.Wrap(err, "updateState failed")
	}
	// the commit point: after this flush returns, the transaction has
	// committed; before it, a crash leaves the whole tree in progress
	if err := m.bm.flushAll(); err != nil {
		return errors.Wrap(err, "bm.flushAll failed")
	}

	// lazy cleanup so later readers skip the parent lookup. a crash here
	// is harmless: sub-committed entries still resolve through the parent.
	for _, child := range children {
		if err := m.updateState(child, stateCommitted); err != nil {
			return errors.Wrap(err, "updateState failed")
		}
	}
	return nil
}

// SetStateAborted marks the transaction aborted. no flush: a lost abort
// record reads as in-progress after restart, which is equally invisible.
func (m *Manager) SetStateAborted(txID txid.TxID) error {
	return m.SetStateAbortedTree(txID, nil)
}

// SetStateAbortedTree marks the transaction and its children aborted
func (m *Manager) SetStateAbortedTree(txID txid.TxID, children []txid.TxID) error {
	if !txID.IsNormal() {
		return ErrUnknownTxID
	}
	for _, child := range children {
		if err := m.updateState(child, stateAborted); err != nil {
			return errors.Wrap(err, "updateState failed")
		}
	}
	if err := m.updateState(txID, stateAborted); err != nil {
		return errors.Wrap(err, "updateState failed")
	}
	return nil
}

// Flush forces everything buffered out to stable storage
func (m *Manager) Flush() error {
	if err := m.st.flush(); err != nil {
		return errors.Wrap(err, "st.flush failed")
	}
	if err := m.bm.flushAll(); err != nil {
		return errors.Wrap(err, "bm.flushAll failed")
	}
	return nil
}

// Close flushes and closes the underlying files
func (m *Manager) Close() error {
	if err := m.st.close(); err != nil {
		return errors.Wrap(err, "st.close failed")
	}
	if err := m.bm.flushAll(); err != nil {
		return errors.Wrap(err, "bm.flushAll failed")
	}
	if err := m.bm.dm.close(); err != nil {
		return errors.Wrap(err, "dm.close failed")
	}
	return nil
}

// getState reads the raw 2-bit state of the transaction
func (m *Manager) getState(txID txid.TxID) (state, error) {
	pid := getPageIDFromTxID(txID)
	off := getByteOffsetFromTxID(txID)
	b, err := m.bm.getByte(pid, off)
	if err != nil {
		return stateInProgress, errors.Wrap(err, "bm.getByte failed")
	}
	return getState(b, txID), nil
}

// updateState rewrites the raw 2-bit state of the transaction
func (m *Manager) updateState(txID txid.TxID, st state) error {
	pid := getPageIDFromTxID(txID)
	off := getByteOffsetFromTxID(txID)
	if err := m.bm.updateByte(pid, off, func(b byte) byte {
		return getUpdatedState(b, txID, st)
	}); err != nil {
		return errors.Wrap(err, "bm.updateByte failed")
	}
	return nil
}
