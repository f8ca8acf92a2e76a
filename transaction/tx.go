package transaction

import (
	"github.com/kmuto-dev/mvdb/transaction/snapshot"
	"github.com/kmuto-dev/mvdb/transaction/txid"
)

// Tx is one transaction. it is owned exclusively by the caller that began it
// until it terminates; all state transitions go through the Manager.
type Tx struct {
	// id stays InvalidTxID until the first write. pure readers never
	// consume an id and never touch the commit log.
	id       txid.TxID
	state    State
	snapshot *snapshot.Snapshot
	// childIDs are ids spawned under this transaction. they commit or
	// abort with it, atomically, via the commit log's tree write.
	childIDs []txid.TxID
}

// NewTransaction initializes a transaction over the captured snapshot
func NewTransaction(snap *snapshot.Snapshot) *Tx {
	return &Tx{
		id:       txid.InvalidTxID,
		state:    StateInProgress,
		snapshot: snap,
	}
}

// ID returns the transaction id, InvalidTxID if nothing was written yet
func (tx *Tx) ID() txid.TxID {
	return tx.id
}

// State returns the lifecycle state
func (tx *Tx) State() State {
	return tx.state
}

// Snapshot returns the snapshot the transaction reads through
func (tx *Tx) Snapshot() *snapshot.Snapshot {
	return tx.snapshot
}

// ChildIDs returns the ids spawned under this transaction
func (tx *Tx) ChildIDs() []txid.TxID {
	return tx.childIDs
}
