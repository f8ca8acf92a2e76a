/*
Transaction id manager hands out transaction ids.
MVCC needs a timestamp per transaction and the id doubles as that timestamp,
so the latest id is shared state and allocation has to hold a lock.

The id space is 32 bits wide and wraps around. When the allocator wraps, it
skips the reserved sentinel ids and restarts at FirstTxID. Wraparound is only
safe while no live snapshot still needs an id the allocator is about to reuse;
a full system enforces this with a reclamation horizon (vacuum-style
freezing). This core does not reclaim old versions, but the allocator still
exposes the fault: callers may install the horizon with SetReclaimHorizon and
Allocate fails instead of silently reusing an id the horizon still covers.
*/
package txid

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrIDSpaceExhausted is returned when the next id to allocate is still
// referenced by a live snapshot (the reclaim horizon has not passed it).
// this is a misconfiguration of the embedding system, not a transient fault.
var ErrIDSpaceExhausted = errors.New("txid: id space exhausted: next id is still covered by the reclaim horizon")

// Manager allocates transaction ids.
type Manager struct {
	mu sync.Mutex
	// nextTxID is the id handed out by the next Allocate call. kept in an
	// atomic so NextTxID can serve clog status queries without taking the
	// allocation lock; Allocate still serializes on mu.
	nextTxID atomic.Uint32
	// wrapped indicates the allocator has wrapped around at least once.
	// before the first wrap every id is fresh and the horizon check is moot.
	wrapped bool
	// reclaimHorizon is the oldest id a live snapshot may still need.
	// InvalidTxID disables the check.
	reclaimHorizon TxID
}

// NewManager initializes the transaction id manager
func NewManager() *Manager {
	tm := &Manager{}
	tm.nextTxID.Store(uint32(FirstTxID))
	return tm
}

// Allocate returns the next transaction id and advances the counter.
// concurrent callers receive distinct ids. the caller is expected to insert
// the id into the active transaction registry before the id can leak into
// any snapshot; see snapshot.Manager.AssignTxID.
func (tm *Manager) Allocate() (TxID, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	id := TxID(tm.nextTxID.Load())
	if tm.wrapped && tm.reclaimHorizon.IsValid() && id == tm.reclaimHorizon {
		return InvalidTxID, ErrIDSpaceExhausted
	}

	next := id.Advance()
	if next < id {
		tm.wrapped = true
	}
	tm.nextTxID.Store(uint32(next))
	return id, nil
}

// SetReclaimHorizon installs the oldest id that must not be reused.
// pass InvalidTxID to disable the check.
func (tm *Manager) SetReclaimHorizon(id TxID) {
	tm.mu.Lock()
	tm.reclaimHorizon = id
	tm.mu.Unlock()
}

// NextTxID returns the id the next Allocate call would return. every id at
// or past it (in wraparound order) has never been allocated. lock-free, so
// it is cheap enough for the clog's read path.
func (tm *Manager) NextTxID() TxID {
	return TxID(tm.nextTxID.Load())
}
