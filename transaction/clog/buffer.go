package clog

import (
	"sync"

	"github.com/pkg/errors"
)

const (
	// bufferNum is the number of in-memory pages. the access pattern is
	// predictable (writes land on the latest page, reads hit a handful of
	// recent pages) so a small fixed set with lru eviction is enough.
	bufferNum = 10
)

// bufferID indexes one slot of the buffer set
type bufferID int

const (
	invalidBufferID bufferID = -1
	firstBufferID   bufferID = 0
)

// bufferDescriptor describes what one buffer slot holds
type bufferDescriptor struct {
	// pageID is the page the slot holds
	pageID pageID
	// used indicates the slot holds a page at all
	used bool
	// dirty indicates the slot has unwritten modifications
	dirty bool
	// lruCount is the pseudo-timestamp of the last access
	lruCount uint64
}

// bufferManager caches pages of one page-structured file.
// readers take the shared lock; a cache miss upgrades to the exclusive lock
// and faults the page in while holding it. io under the exclusive lock is
// acceptable here because pages are small and misses are rare.
type bufferManager struct {
	mu sync.RWMutex

	dm          *diskManager
	buffers     [bufferNum]pagePtr
	descriptors [bufferNum]bufferDescriptor

	// currLRUCount is the last lru pseudo-timestamp handed out
	currLRUCount uint64
	// latestPageID is the page writes are currently landing on.
	// it is skipped during victim selection.
	latestPageID pageID
}

// newBufferManager initializes the buffer manager
func newBufferManager(dm *diskManager) *bufferManager {
	bm := &bufferManager{
		dm:           dm,
		latestPageID: invalidPageID,
	}
	for i := 0; i < bufferNum; i++ {
		bm.buffers[i] = newPagePtr()
		bm.descriptors[i].pageID = invalidPageID
	}
	return bm
}

// getByte returns one byte of the page, faulting the page in on a miss
func (bm *bufferManager) getByte(pid pageID, byteOffset int) (byte, error) {
	bm.mu.RLock()
	if bufID := bm.searchPage(pid); bufID != invalidBufferID {
		b := bm.buffers[bufID][byteOffset]
		bm.mu.RUnlock()
		return b, nil
	}
	bm.mu.RUnlock()

	bm.mu.Lock()
	defer bm.mu.Unlock()
	bufID, err := bm.fetchPage(pid)
	if err != nil {
		return 0, errors.Wrap(err, "fetchPage failed")
	}
	return bm.buffers[bufID][byteOffset], nil
}

// getBytes copies len(dst) bytes of the page starting at byteOffset
func (bm *bufferManager) getBytes(pid pageID, byteOffset int, dst []byte) error {
	bm.mu.RLock()
	if bufID := bm.searchPage(pid); bufID != invalidBufferID {
		copy(dst, bm.buffers[bufID][byteOffset:])
		bm.mu.RUnlock()
		return nil
	}
	bm.mu.RUnlock()

	bm.mu.Lock()
	defer bm.mu.Unlock()
	bufID, err := bm.fetchPage(pid)
	if err != nil {
		return errors.Wrap(err, "fetchPage failed")
	}
	copy(dst, bm.buffers[bufID][byteOffset:])
	return nil
}

// updateByte applies fn to one byte of the page and marks the slot dirty
func (bm *bufferManager) updateByte(pid pageID, byteOffset int, fn func(byte) byte) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	bufID, err := bm.fetchPage(pid)
	if err != nil {
		return errors.Wrap(err, "fetchPage failed")
	}
	bm.buffers[bufID][byteOffset] = fn(bm.buffers[bufID][byteOffset])
	bm.descriptors[bufID].dirty = true
	if pid.isFollows(bm.latestPageID) {
		bm.latestPageID = pid
	}
	return nil
}

// setBytes overwrites len(src) bytes of the page starting at byteOffset
func (bm *bufferManager) setBytes(pid pageID, byteOffset int, src []byte) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	bufID, err := bm.fetchPage(pid)
	if err != nil {
		return errors.Wrap(err, "fetchPage failed")
	}
	copy(bm.buffers[bufID][byteOffset:], src)
	bm.descriptors[bufID].dirty = true
	if pid.isFollows(bm.latestPageID) {
		bm.latestPageID = pid
	}
	return nil
}

// flushAll writes every dirty page out and syncs the file.
// this is the durability point of the whole log.
func (bm *bufferManager) flushAll() error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	synced := false
	for i := firstBufferID; i < bufferNum; i++ {
		if !bm.descriptors[i].used || !bm.descriptors[i].dirty {
			continue
		}
		if err := bm.dm.writePage(bm.descriptors[i].pageID, bm.buffers[i]); err != nil {
			return errors.Wrap(err, "dm.writePage failed")
		}
		bm.descriptors[i].dirty = false
		synced = true
	}
	if !synced {
		return nil
	}
	if err := bm.dm.sync(); err != nil {
		return errors.Wrap(err, "dm.sync failed")
	}
	return nil
}

// fetchPage returns the buffer id holding the page, reading it from disk
// if necessary. the exclusive lock is expected to be held.
func (bm *bufferManager) fetchPage(pid pageID) (bufferID, error) {
	if bufID := bm.searchPage(pid); bufID != invalidBufferID {
		bm.updateLRUCount(bufID)
		return bufID, nil
	}

	victim := bm.selectVictimBuffer()
	if bm.descriptors[victim].dirty {
		if err := bm.dm.writePage(bm.descriptors[victim].pageID, bm.buffers[victim]); err != nil {
			return invalidBufferID, errors.Wrap(err, "dm.writePage failed")
		}
		bm.descriptors[victim].dirty = false
	}
	if err := bm.dm.readPage(pid, bm.buffers[victim]); err != nil {
		return invalidBufferID, errors.Wrap(err, "dm.readPage failed")
	}
	bm.descriptors[victim].pageID = pid
	bm.descriptors[victim].used = true
	bm.updateLRUCount(victim)
	return victim, nil
}

// searchPage searches the buffer set for the page.
// either lock is expected to be held. the linear scan is fine for a set
// this small.
func (bm *bufferManager) searchPage(pid pageID) bufferID {
	for i := firstBufferID; i < bufferNum; i++ {
		if bm.descriptors[i].used && bm.descriptors[i].pageID == pid {
			return i
		}
	}
	return invalidBufferID
}

// isFollows reports whether pid comes after compared
func (pid pageID) isFollows(compared pageID) bool {
	return pid > compared
}
