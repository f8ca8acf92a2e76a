/*
clog bitmap

The outcome of each transaction is packed into 2 bits in the clog file, so a
page is just an array of 2-bit entries. The location of a transaction's entry
(page id, byte offset within the page, bit offset within the byte) is
calculated from the transaction id.

A zero-filled page means every transaction on it is still in progress. That is
what makes the log recoverable by construction: pages never written (or lost
before a flush) read back as in-progress, never as committed.

The fourth state, sub-committed, exists for tree commits. A child id is marked
sub-committed before its parent's commit record is flushed; readers resolve a
sub-committed entry through the parent map (subtrans.go), so the children only
become visible as committed once the parent record itself is durable.
*/
package clog

import (
	"github.com/kmuto-dev/mvdb/transaction/txid"
)

// state is the on-disk state of one transaction, 2 bits wide
type state byte

const (
	// zero means in progress, so a fresh page needs no initialization
	stateInProgress   state = 0x00
	stateCommitted    state = 0x01
	stateAborted      state = 0x02
	stateSubCommitted state = 0x03
)

const (
	// 2 bits per transaction
	clogBits = 2
	// clogNumPerByte is the number of clog entries per byte
	clogNumPerByte = 4
	// clogNumPerPage is the number of clog entries per page
	clogNumPerPage = pageSize * clogNumPerByte
)

// getPageIDFromTxID returns the page id holding the transaction's entry
func getPageIDFromTxID(txID txid.TxID) pageID {
	return pageID(txID / clogNumPerPage)
}

// getByteOffsetFromTxID returns the byte offset within the page
func getByteOffsetFromTxID(txID txid.TxID) int {
	clogNumInPage := int(txID % clogNumPerPage)
	return clogNumInPage / clogNumPerByte
}

// getBitOffsetFromTxID returns the bit offset within the byte (0, 2, 4 or 6)
func getBitOffsetFromTxID(txID txid.TxID) int {
	clogNumInByte := int(txID % clogNumPerByte)
	return clogNumInByte * clogBits
}

// getState extracts the transaction's state from the byte holding it
func getState(data byte, txID txid.TxID) state {
	bitOffset := getBitOffsetFromTxID(txID)
	st := data >> (6 - bitOffset)
	mask := byte((1 << clogBits) - 1)
	return state(st & mask)
}

// getUpdatedState returns data with the transaction's 2 bits replaced by st
func getUpdatedState(data byte, txID txid.TxID, st state) byte {
	bitOffset := getBitOffsetFromTxID(txID)
	mask := byte(0x03 << (6 - bitOffset))
	data = data & ^mask
	return data | (byte(st) << (6 - bitOffset))
}
