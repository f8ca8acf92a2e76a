/*
subtrans parent map

Tree commits mark children sub-committed before the parent's commit record is
flushed, so a reader that sees a sub-committed entry must resolve it through
the parent. The mapping child id -> parent id lives in its own page-structured
file: 4 bytes per transaction id, zero meaning no parent recorded.

The parent of a child is recorded when the child id is allocated and must be
durable before any of the child's clog entries are, which the tree-commit
sequence in manager.go guarantees by flushing this file first.
*/
package clog

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/kmuto-dev/mvdb/transaction/txid"
)

const (
	// subtransEntrySize is the width of one parent entry
	subtransEntrySize = 4
	// subtransNumPerPage is the number of parent entries per page
	subtransNumPerPage = pageSize / subtransEntrySize
)

// getSubtransPageIDFromTxID returns the page id holding the entry
func getSubtransPageIDFromTxID(txID txid.TxID) pageID {
	return pageID(txID / subtransNumPerPage)
}

// getSubtransByteOffsetFromTxID returns the byte offset of the entry
func getSubtransByteOffsetFromTxID(txID txid.TxID) int {
	return int(txID%subtransNumPerPage) * subtransEntrySize
}

// subtransManager manages the parent map file
type subtransManager struct {
	bm *bufferManager
}

// newSubtransManager initializes the subtrans manager over the file
func newSubtransManager(path string) (*subtransManager, error) {
	dm, err := newDiskManager(path)
	if err != nil {
		return nil, errors.Wrap(err, "newDiskManager failed")
	}
	return &subtransManager{bm: newBufferManager(dm)}, nil
}

// setParent records parent as the parent of child
func (sm *subtransManager) setParent(child, parent txid.TxID) error {
	pid := getSubtransPageIDFromTxID(child)
	off := getSubtransByteOffsetFromTxID(child)
	var buf [subtransEntrySize]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(parent))
	if err := sm.bm.setBytes(pid, off, buf[:]); err != nil {
		return errors.Wrap(err, "setBytes failed")
	}
	return nil
}

// parent returns the recorded parent of child, or InvalidTxID when none
// has been recorded
func (sm *subtransManager) parent(child txid.TxID) (txid.TxID, error) {
	pid := getSubtransPageIDFromTxID(child)
	off := getSubtransByteOffsetFromTxID(child)
	var buf [subtransEntrySize]byte
	if err := sm.bm.getBytes(pid, off, buf[:]); err != nil {
		return txid.InvalidTxID, errors.Wrap(err, "getBytes failed")
	}
	return txid.TxID(binary.LittleEndian.Uint32(buf[:])), nil
}

// flush makes the parent map durable
func (sm *subtransManager) flush() error {
	if err := sm.bm.flushAll(); err != nil {
		return errors.Wrap(err, "flushAll failed")
	}
	return nil
}

// close flushes and closes the file
func (sm *subtransManager) close() error {
	if err := sm.flush(); err != nil {
		return errors.Wrap(err, "flush failed")
	}
	if err := sm.bm.dm.close(); err != nil {
		return errors.Wrap(err, "close failed")
	}
	return nil
}
