/*
Snapshot manager owns the active transaction registry and takes snapshots
over it.

The registry and the latest-completed id are the only shared mutable state in
the engine, and a single mutex guards all three operations that touch them:

- id assignment (registry entry, on a transaction's first write)
- completion (registry exit plus latest-completed advancement)
- snapshot capture

The single guard is load-bearing. If capture did not exclude completion, a
transaction could commit and leave the registry between the xmax read and the
registry walk: the new snapshot would omit it from xip while the commit is
not yet published, and the transaction's effects would flicker into view too
early. Allocation is folded under the same guard for the mirror-image race
(an id handed out but not yet registered must not be missing from a
concurrent snapshot that its commit could outrun).

The guard is held only for these short critical sections, never across the
commit log's durable flush.
*/
package snapshot

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/kmuto-dev/mvdb/transaction/clog"
	"github.com/kmuto-dev/mvdb/transaction/txid"
)

// Manager is the snapshot manager
type Manager struct {
	mu sync.Mutex

	tm *txid.Manager
	cm *clog.Manager

	// inProgressTxIDs is the active transaction registry: every id that has
	// been assigned and has not completed
	inProgressTxIDs map[txid.TxID]struct{}
	// latestCompletedTxID is the newest id known to have committed or
	// aborted. a fresh snapshot's xmax is one past it.
	latestCompletedTxID txid.TxID
}

// NewManager initializes the snapshot manager
func NewManager(tm *txid.Manager, cm *clog.Manager) *Manager {
	return &Manager{
		tm: tm,
		cm: cm,
		// Advance on the frozen sentinel yields FirstTxID, so before any
		// completion the first snapshot's xmax is FirstTxID
		latestCompletedTxID: txid.FrozenTxID,
		inProgressTxIDs:     make(map[txid.TxID]struct{}),
	}
}

// AssignTxID allocates a fresh id and enters it into the registry as one
// atomic step.
func (m *Manager) AssignTxID() (txid.TxID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.tm.Allocate()
	if err != nil {
		return txid.InvalidTxID, errors.Wrap(err, "tm.Allocate failed")
	}
	m.inProgressTxIDs[id] = struct{}{}
	return id, nil
}

// AssignChildTxID allocates an id for a child of parent, registers it, and
// records the parentage in the commit log's parent map. the parent map write
// happens outside the guard; it only has to precede the child's first
// tuple stamp, which the caller cannot reach before this returns.
func (m *Manager) AssignChildTxID(parent txid.TxID) (txid.TxID, error) {
	id, err := m.AssignTxID()
	if err != nil {
		return txid.InvalidTxID, err
	}
	if err := m.cm.SetParent(id, parent); err != nil {
		m.CompleteTxIDs(id)
		return txid.InvalidTxID, errors.Wrap(err, "cm.SetParent failed")
	}
	return id, nil
}

// TakeSnapshot captures the current visibility boundary
func (m *Manager) TakeSnapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	xmax := m.latestCompletedTxID.Advance()

	xip := make(map[txid.TxID]struct{}, len(m.inProgressTxIDs))
	xmin := xmax
	for id := range m.inProgressTxIDs {
		// an id at or past xmax is hidden by the xmax rule already and
		// would break the xmin <= id < xmax invariant of xip
		if !id.Precedes(xmax) {
			continue
		}
		xip[id] = struct{}{}
		if id.Precedes(xmin) {
			xmin = id
		}
	}
	return NewSnapshot(xmin, xmax, xip)
}

// CompleteTxIDs removes the ids from the registry and advances the
// latest-completed id, as one atomic step. the caller must have made the
// outcome durable (or be aborting) before publishing it here.
func (m *Manager) CompleteTxIDs(txIDs ...txid.TxID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range txIDs {
		delete(m.inProgressTxIDs, id)
		if id.IsFollows(m.latestCompletedTxID) {
			m.latestCompletedTxID = id
		}
	}
}

// OldestActiveTxID returns the smallest registered id, or InvalidTxID when
// the registry is empty. this is the reclaim horizon the allocator needs.
func (m *Manager) OldestActiveTxID() txid.TxID {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldest := txid.InvalidTxID
	for id := range m.inProgressTxIDs {
		if oldest == txid.InvalidTxID || id.Precedes(oldest) {
			oldest = id
		}
	}
	return oldest
}
