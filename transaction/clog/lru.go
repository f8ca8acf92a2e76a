package clog

const firstLRUCount uint64 = 1

// selectVictimBuffer returns the slot to reuse for a page fault.
// unused slots win outright; otherwise the least recently touched slot is
// taken, skipping the latest page since writes keep landing there.
// the exclusive lock is expected to be held.
func (bm *bufferManager) selectVictimBuffer() bufferID {
	victim := invalidBufferID
	var victimLRUCount uint64
	for i := firstBufferID; i < bufferNum; i++ {
		if !bm.descriptors[i].used {
			return i
		}
		if bm.descriptors[i].pageID == bm.latestPageID {
			continue
		}
		if victim == invalidBufferID || bm.descriptors[i].lruCount < victimLRUCount {
			victim = i
			victimLRUCount = bm.descriptors[i].lruCount
		}
	}
	if victim == invalidBufferID {
		// every other slot holds the latest page (cannot happen with
		// bufferNum > 1); fall back to the first slot
		victim = firstBufferID
	}
	return victim
}

// updateLRUCount stamps the slot with a fresh access pseudo-timestamp.
// consecutive accesses to the same slot reuse the current count so the
// counter does not advance needlessly (the usual access pattern hammers the
// latest page).
func (bm *bufferManager) updateLRUCount(bufID bufferID) {
	if bm.descriptors[bufID].lruCount == bm.currLRUCount && bm.currLRUCount >= firstLRUCount {
		return
	}
	bm.currLRUCount++
	bm.descriptors[bufID].lruCount = bm.currLRUCount
}
