/*
Engine is the embedding surface: it wires the id allocator, commit log,
snapshot manager and transaction manager over a version store and exposes
the transactional read/write path.

Reads go through snapshots. A transaction's own uncommitted writes are the
one exception snapshots cannot express: the clog still says in-progress for
the writer itself, so the scan path special-cases versions stamped with the
reading transaction's own id (and its child ids). Everything else defers to
snapshot visibility.

Writers never block writers here. When an update or delete finds its target
version already stamped by another transaction whose outcome is not aborted,
it fails with ErrUpdateConflict instead of waiting the way a lock-based
engine would.
*/
package engine

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/kmuto-dev/mvdb/logger"
	"github.com/kmuto-dev/mvdb/storage/heap"
	"github.com/kmuto-dev/mvdb/transaction"
	"github.com/kmuto-dev/mvdb/transaction/clog"
	"github.com/kmuto-dev/mvdb/transaction/snapshot"
	"github.com/kmuto-dev/mvdb/transaction/txid"
)

// ErrUpdateConflict is returned when the target version was updated or
// deleted by another transaction that has not aborted.
var ErrUpdateConflict = errors.New("engine: version updated or deleted by a concurrent transaction")

// ErrKeyNotFound is returned when no version of the key is visible to the
// transaction's snapshot.
var ErrKeyNotFound = errors.New("engine: key not visible")

// Engine is one engine instance.
type Engine struct {
	id  uuid.UUID
	log *zap.Logger

	cm    *clog.Manager
	sm    *snapshot.Manager
	tm    *transaction.Manager
	store *heap.Store
}

// Open builds an engine over the directory in cfg. reopening a directory
// recovers the commit log; the version store starts empty.
func Open(cfg Config) (*Engine, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, errors.Wrap(err, "logger.New failed")
	}

	cm, err := clog.NewManager(cfg.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "clog.NewManager failed")
	}
	tm := txid.NewManager()
	// with the allocator's bound installed, status queries for ids that
	// were never handed out fail instead of reading as in-progress
	cm.SetIDBound(tm.NextTxID)
	sm := snapshot.NewManager(tm, cm)

	instanceID := uuid.New()
	e := &Engine{
		id:    instanceID,
		log:   log.With(zap.String("instance_id", instanceID.String())),
		cm:    cm,
		sm:    sm,
		tm:    transaction.NewManager(cm, sm),
		store: heap.NewStore(),
	}
	e.log.Info("engine opened", zap.String("dir", cfg.Dir))
	return e, nil
}

// Close flushes and closes the commit log.
func (e *Engine) Close() error {
	if err := e.cm.Close(); err != nil {
		return errors.Wrap(err, "cm.Close failed")
	}
	e.log.Info("engine closed")
	// stderr/stdout cannot be synced on all platforms; best effort
	_ = e.log.Sync()
	return nil
}

// InstanceID identifies this engine instance in logs.
func (e *Engine) InstanceID() uuid.UUID {
	return e.id
}

// Begin starts a transaction.
func (e *Engine) Begin() *transaction.Tx {
	return e.tm.Begin()
}

// Commit commits the transaction. a durability failure is fatal for the
// transaction: it stays stuck in committing and the error is not retryable.
func (e *Engine) Commit(tx *transaction.Tx) error {
	if err := e.tm.Commit(tx); err != nil {
		if errors.Is(err, transaction.ErrDurabilityFailure) {
			e.log.Error("commit log flush failed",
				zap.Uint32("txid", uint32(tx.ID())), zap.Error(err))
		}
		return err
	}
	return nil
}

// Abort aborts the transaction.
func (e *Engine) Abort(tx *transaction.Tx) error {
	return e.tm.Abort(tx)
}

// BeginChild spawns a child id under tx for a multi-part write that must
// commit atomically with the rest of the transaction.
func (e *Engine) BeginChild(tx *transaction.Tx) (txid.TxID, error) {
	return e.tm.BeginChild(tx)
}

// Insert writes a new version of key created by tx.
func (e *Engine) Insert(tx *transaction.Tx, key heap.Key, value []byte) error {
	return e.insertAs(tx, txid.InvalidTxID, key, value)
}

// InsertAsChild writes a new version of key created by one of tx's child
// ids. the child must have come from BeginChild on the same transaction.
func (e *Engine) InsertAsChild(tx *transaction.Tx, child txid.TxID, key heap.Key, value []byte) error {
	return e.insertAs(tx, child, key, value)
}

func (e *Engine) insertAs(tx *transaction.Tx, child txid.TxID, key heap.Key, value []byte) error {
	id, err := e.tm.EnsureTxID(tx)
	if err != nil {
		return errors.Wrap(err, "EnsureTxID failed")
	}
	if child.IsValid() {
		id = child
	}
	e.store.Append(key, heap.NewTuple(id, value))
	return nil
}

// Update stamps the visible version of key as superseded by tx and appends
// the new version.
func (e *Engine) Update(tx *transaction.Tx, key heap.Key, value []byte) error {
	id, err := e.tm.EnsureTxID(tx)
	if err != nil {
		return errors.Wrap(err, "EnsureTxID failed")
	}
	target, err := e.visibleVersion(tx, key)
	if err != nil {
		return err
	}
	if err := e.stampXmax(tx, target, id); err != nil {
		return err
	}
	e.store.Append(key, heap.NewTuple(id, value))
	return nil
}

// Delete stamps the visible version of key as deleted by tx.
func (e *Engine) Delete(tx *transaction.Tx, key heap.Key) error {
	id, err := e.tm.EnsureTxID(tx)
	if err != nil {
		return errors.Wrap(err, "EnsureTxID failed")
	}
	target, err := e.visibleVersion(tx, key)
	if err != nil {
		return err
	}
	return e.stampXmax(tx, target, id)
}

// Get returns the version of key visible to tx.
func (e *Engine) Get(tx *transaction.Tx, key heap.Key) ([]byte, error) {
	tup, err := e.visibleVersion(tx, key)
	if err != nil {
		return nil, err
	}
	return tup.Payload(), nil
}

// Scan calls fn with every key's visible version until fn returns false.
// fn may call back into the engine, including writes in the same
// transaction; it observes the store as of the scan's start.
// iteration order is unspecified.
func (e *Engine) Scan(tx *transaction.Tx, fn func(key heap.Key, value []byte) bool) error {
	var walkErr error
	e.store.Walk(func(key heap.Key, versions []*heap.Tuple) bool {
		for i := len(versions) - 1; i >= 0; i-- {
			visible, err := e.isVisible(tx, versions[i])
			if err != nil {
				walkErr = errors.Wrap(err, "isVisible failed")
				return false
			}
			if visible {
				return fn(key, versions[i].Payload())
			}
		}
		return true
	})
	return walkErr
}

// visibleVersion returns the newest version of key visible to tx.
func (e *Engine) visibleVersion(tx *transaction.Tx, key heap.Key) (*heap.Tuple, error) {
	versions, err := e.store.Versions(key)
	if err != nil {
		if errors.Is(err, heap.ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, errors.Wrap(err, "store.Versions failed")
	}
	for i := len(versions) - 1; i >= 0; i-- {
		visible, err := e.isVisible(tx, versions[i])
		if err != nil {
			return nil, errors.Wrap(err, "isVisible failed")
		}
		if visible {
			return versions[i], nil
		}
	}
	return nil, ErrKeyNotFound
}

// isVisible decides visibility for tx, layering read-your-own-writes over
// snapshot visibility.
func (e *Engine) isVisible(tx *transaction.Tx, tup *heap.Tuple) (bool, error) {
	// own deletes hide the version from the deleter immediately
	if e.ownID(tx, tup.Xmax()) {
		return false, nil
	}
	// own creations are visible to the creator before commit
	if e.ownID(tx, tup.Xmin()) {
		return true, nil
	}
	visible, err := e.sm.IsTupleVisibleFromSnapshot(tup, tx.Snapshot())
	if err != nil {
		return false, errors.Wrap(err, "IsTupleVisibleFromSnapshot failed")
	}
	return visible, nil
}

// ownID checks whether id belongs to tx or one of its children
func (e *Engine) ownID(tx *transaction.Tx, id txid.TxID) bool {
	if !id.IsValid() {
		return false
	}
	if id == tx.ID() {
		return true
	}
	for _, child := range tx.ChildIDs() {
		if id == child {
			return true
		}
	}
	return false
}

// stampXmax marks the version deleted by id, failing on a write-write
// conflict instead of waiting for the other writer. the conflict check and
// the stamp form one compare-and-swap: a second updater racing past the
// check loses the swap and re-judges whoever beat it to the stamp.
func (e *Engine) stampXmax(tx *transaction.Tx, target *heap.Tuple, id txid.TxID) error {
	for {
		prev := target.Xmax()
		if prev.IsValid() && !e.ownID(tx, prev) {
			st, err := e.cm.Status(prev)
			if err != nil {
				return errors.Wrap(err, "cm.Status failed")
			}
			// only an aborted deleter may be overwritten. an in-progress
			// one would mean waiting, a committed one means our snapshot
			// is stale: both surface as a conflict, first updater wins.
			if st != clog.StatusAborted {
				return ErrUpdateConflict
			}
		}
		if target.CompareAndSwapXmax(prev, id) {
			return nil
		}
	}
}
