/*
Transaction manager drives the begin/commit/abort lifecycle.

The commit path is where atomicity lives, and it is an ordering argument:

 1. the outcome is made durable in the commit log (flushed), outside any lock
 2. only then is it published: the latest-completed id advances and the
    transaction leaves the active registry, under the registry guard

A crash between 1 and 2 is safe: the log says committed, and every later
snapshot resolves visibility through the log. A failure during 1 is a
durability failure: nothing was published, the transaction's effects read as
in-progress (invisible) forever, and the caller gets a fatal error rather
than a retry, because the correct recovery is a restart that rereads the
log, not a blind second flush.

Transaction ids are assigned lazily on the first write. a transaction that
never writes has nothing to make durable, so its commit is a pure state
transition with no log traffic at all.
*/
package transaction

import (
	"github.com/pkg/errors"

	"github.com/kmuto-dev/mvdb/transaction/clog"
	"github.com/kmuto-dev/mvdb/transaction/snapshot"
	"github.com/kmuto-dev/mvdb/transaction/txid"
)

// ErrDurabilityFailure is returned when the commit log flush fails.
// the transaction is stuck in Committing: its effects stay invisible and the
// process should restart and recover from the log. this is not retryable.
var ErrDurabilityFailure = errors.New("transaction: commit log flush failed; restart and recover from the log")

// ErrTxCompleted is returned when a completed transaction is used again
var ErrTxCompleted = errors.New("transaction: transaction already completed")

// Manager is the transaction manager
type Manager struct {
	Cm *clog.Manager
	Sm *snapshot.Manager
}

// NewManager initializes the transaction manager
func NewManager(cm *clog.Manager, sm *snapshot.Manager) *Manager {
	return &Manager{
		Cm: cm,
		Sm: sm,
	}
}

// Begin starts a transaction: a fresh snapshot, no id, no log write.
func (m *Manager) Begin() *Tx {
	return NewTransaction(m.Sm.TakeSnapshot())
}

// EnsureTxID returns the transaction's id, assigning one on the first call.
// callers invoke this on the transaction's first write; the assignment also
// enters the id into the active registry so no concurrent snapshot can
// misread the transaction as completed.
func (m *Manager) EnsureTxID(tx *Tx) (txid.TxID, error) {
	if IsCompleted(tx.state) {
		return txid.InvalidTxID, ErrTxCompleted
	}
	if tx.id.IsValid() {
		return tx.id, nil
	}
	id, err := m.Sm.AssignTxID()
	if err != nil {
		return txid.InvalidTxID, errors.Wrap(err, "Sm.AssignTxID failed")
	}
	tx.id = id
	return id, nil
}

// BeginChild spawns a child id under tx. the child's outcome is decided by
// tx's commit or abort, atomically with its siblings and the parent.
func (m *Manager) BeginChild(tx *Tx) (txid.TxID, error) {
	parent, err := m.EnsureTxID(tx)
	if err != nil {
		return txid.InvalidTxID, errors.Wrap(err, "EnsureTxID failed")
	}
	child, err := m.Sm.AssignChildTxID(parent)
	if err != nil {
		return txid.InvalidTxID, errors.Wrap(err, "Sm.AssignChildTxID failed")
	}
	tx.childIDs = append(tx.childIDs, child)
	return child, nil
}

// Commit commits the transaction.
func (m *Manager) Commit(tx *Tx) error {
	if IsCompleted(tx.state) {
		return ErrTxCompleted
	}

	// read-only transaction: nothing was written, nothing to make durable,
	// and the commit log must stay untouched
	if !tx.id.IsValid() {
		tx.state = StateCommitted
		return nil
	}

	tx.state = StateCommitting
	if err := m.Cm.SetStateCommittedTree(tx.id, tx.childIDs); err != nil {
		// not published: the registry still holds the id, the
		// latest-completed id did not advance, and the effects stay
		// invisible. recovery rereads the log after restart.
		return errors.Wrap(ErrDurabilityFailure, err.Error())
	}

	// durable, now publish
	m.Sm.CompleteTxIDs(append([]txid.TxID{tx.id}, tx.childIDs...)...)
	tx.state = StateCommitted
	return nil
}

// Abort aborts the transaction. the abort record is written without a
// flush: losing it leaves the id reading in-progress after restart, which
// hides the effects just as well.
func (m *Manager) Abort(tx *Tx) error {
	if IsCompleted(tx.state) {
		return ErrTxCompleted
	}

	if !tx.id.IsValid() {
		tx.state = StateAborted
		return nil
	}

	tx.state = StateAborting
	if err := m.Cm.SetStateAbortedTree(tx.id, tx.childIDs); err != nil {
		return errors.Wrap(err, "Cm.SetStateAbortedTree failed")
	}

	m.Sm.CompleteTxIDs(append([]txid.TxID{tx.id}, tx.childIDs...)...)
	tx.state = StateAborted
	return nil
}
