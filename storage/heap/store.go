/*
Store is the version store: every logical key maps to a chain of versions in
creation order. Nothing is ever rewritten except the xmax stamp and the hint
bits on existing versions; updates and deletes append, they do not replace.

The store's lock covers only the chain map and the slices in it. The tuples
themselves synchronize their own header mutations (see Tuple), so callers
stamp xmax and hints on the returned tuples without holding any store lock.

A version becomes garbage only once no open snapshot could still need it.
Reclamation is not implemented here; chains only grow.
*/
package heap

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned when no version chain exists for the key
var ErrKeyNotFound = errors.New("heap: key not found")

// Key identifies one logical record
type Key string

// Store holds the version chains
type Store struct {
	mu sync.RWMutex
	// chains maps each key to its versions, oldest first
	chains map[Key][]*Tuple
}

// NewStore initializes an empty version store
func NewStore() *Store {
	return &Store{
		chains: make(map[Key][]*Tuple),
	}
}

// Append adds a new version to the key's chain
func (s *Store) Append(key Key, tup *Tuple) {
	s.mu.Lock()
	s.chains[key] = append(s.chains[key], tup)
	s.mu.Unlock()
}

// Versions returns the key's chain, oldest first. the returned tuples are
// the live versions: callers stamp xmax and hint bits through them.
func (s *Store) Versions(key Key) ([]*Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chain, ok := s.chains[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]*Tuple, len(chain))
	copy(out, chain)
	return out, nil
}

// Walk calls fn for every key's chain until fn returns false.
// the chains are copied out under the lock first, so fn may call back into
// the store (even to append); it observes the chains as of the copy.
// iteration order over keys is unspecified.
func (s *Store) Walk(fn func(key Key, versions []*Tuple) bool) {
	s.mu.RLock()
	snap := make(map[Key][]*Tuple, len(s.chains))
	for key, chain := range s.chains {
		out := make([]*Tuple, len(chain))
		copy(out, chain)
		snap[key] = out
	}
	s.mu.RUnlock()

	for key, versions := range snap {
		if !fn(key, versions) {
			return
		}
	}
}

// Keys returns the number of distinct keys
func (s *Store) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chains)
}
